package validation

import (
	"errors"
	"fmt"
	"strings"

	"convosync/pkg/models"
)

// ValidateContent checks an incoming message body before it is persisted
// or sent. The returned error lists every violation.
func ValidateContent(content string) error {
	var errs []string
	if strings.TrimSpace(content) == "" {
		errs = append(errs, "content is required")
	}
	if len(content) > models.MaxContentLen {
		errs = append(errs, fmt.Sprintf("content exceeds %d characters", models.MaxContentLen))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// ValidateConversation checks conversation metadata at creation time.
func ValidateConversation(c models.Conversation) error {
	var errs []string
	if len(c.Participants) == 0 {
		errs = append(errs, "participants are required")
	}
	seen := map[string]struct{}{}
	for _, p := range c.Participants {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, "participant ids must be non-empty")
			break
		}
		if _, dup := seen[p]; dup {
			errs = append(errs, "participant ids must be unique")
			break
		}
		seen[p] = struct{}{}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
