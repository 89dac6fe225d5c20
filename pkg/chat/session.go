package chat

import (
	"context"
	"time"
)

// Session owns every per-conversation-screen resource: the message store,
// the optimistic send pipeline and the read-state syncer with its ticker
// and notification subscription. Entering a conversation screen creates a
// Session; leaving it calls Close. Switching conversations is close old,
// open new - never two sessions for one screen.
type Session struct {
	Store  *MessageStore
	Sender *Sender
	Sync   *ReadSyncer
}

// SessionConfig carries per-session tunables.
type SessionConfig struct {
	PageSize     int
	SyncInterval time.Duration
}

// NewSession wires the per-screen components for one conversation and
// starts read-state syncing. The initial history load is issued here too;
// a failure leaves the store empty for the screen to render as an error
// state, and the error is returned.
func NewSession(ctx context.Context, api Transport, bridge Bridge, conversationID, userID string, cfg SessionConfig) (*Session, error) {
	store := NewMessageStore(api, conversationID, cfg.PageSize)
	s := &Session{
		Store:  store,
		Sender: NewSender(api, store, userID),
		Sync:   NewReadSyncer(api, store, bridge, cfg.SyncInterval),
	}
	err := store.Load(ctx)
	s.Sync.Start(ctx)
	return s, err
}

// Close releases the session's timer and subscription and fires the
// best-effort final read mark.
func (s *Session) Close() {
	s.Sync.Close()
}
