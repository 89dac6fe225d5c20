package client

import (
	"errors"
	"fmt"
)

// Failure taxonomy for transport calls. Callers classify with errors.Is;
// the wrapped message carries whatever detail the server or network stack
// provided.
var (
	// ErrUnauthorized means the bearer credential is missing or invalid.
	// Propagate to the session collaborator for re-authentication.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound covers both a missing conversation and a caller that is
	// not a participant; the server does not distinguish the two.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument means the request was rejected before any side
	// effect, e.g. empty message content.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrTransient is a network or transport failure with no further
	// classification. Safe to retry on a later trigger.
	ErrTransient = errors.New("transient transport failure")
	// ErrInternal is an unexpected server fault.
	ErrInternal = errors.New("internal server error")
)

func statusError(status int, serverMsg string) error {
	var kind error
	switch {
	case status == 401:
		kind = ErrUnauthorized
	case status == 404:
		kind = ErrNotFound
	case status == 400:
		kind = ErrInvalidArgument
	default:
		kind = ErrInternal
	}
	if serverMsg != "" {
		return fmt.Errorf("%w: %s", kind, serverMsg)
	}
	return fmt.Errorf("%w: http %d", kind, status)
}
