package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"convosync/pkg/models"
)

var (
	// ErrEmptyDraft is returned when the trimmed message text is empty.
	ErrEmptyDraft = errors.New("message text is empty")
	// ErrSendPending is returned while a previous send is still awaiting
	// its server response; the input control should be disabled meanwhile.
	ErrSendPending = errors.New("a send is already pending")
)

// Sender is the optimistic send pipeline for one conversation. Each send
// appends a provisional message to the store before the network round trip
// begins, then reconciles: the provisional entry is replaced by the
// server-confirmed message on success and removed on failure. At most one
// send is pending at a time.
type Sender struct {
	api            Transport
	store          *MessageStore
	conversationID string
	senderID       string

	mu      sync.Mutex
	pending bool
}

// NewSender binds a pipeline to a store and the sending user.
func NewSender(api Transport, store *MessageStore, senderID string) *Sender {
	return &Sender{
		api:            api,
		store:          store,
		conversationID: store.ConversationID(),
		senderID:       senderID,
	}
}

// Pending reports whether a send is awaiting confirmation.
func (p *Sender) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending
}

// Send submits the draft. The provisional message is visible in the store
// before this function blocks on the network. On failure the store is
// rolled back to its pre-send state and the error is returned for user
// feedback; the caller still owns the draft text and may re-present it.
func (p *Sender) Send(ctx context.Context, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return models.Message{}, ErrEmptyDraft
	}

	p.mu.Lock()
	if p.pending {
		p.mu.Unlock()
		return models.Message{}, ErrSendPending
	}
	p.pending = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.pending = false
		p.mu.Unlock()
	}()

	provisional := models.Message{
		ID:             models.ProvisionalIDPrefix + uuid.NewString(),
		ConversationID: p.conversationID,
		SenderID:       p.senderID,
		Content:        text,
		MessageType:    "text",
		CreatedAt:      time.Now().UTC().UnixNano(),
	}
	p.store.Append(provisional)

	confirmed, err := p.api.SendMessage(ctx, p.conversationID, text)
	if err != nil {
		p.store.Remove(provisional.ID)
		return models.Message{}, err
	}
	// the server never sees the provisional id; the pipeline tracked it
	p.store.Replace(provisional.ID, confirmed)
	return confirmed, nil
}
