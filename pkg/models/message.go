package models

// MaxContentLen bounds message content length in bytes.
const MaxContentLen = 1000

// ProvisionalIDPrefix marks client-generated ids that have not been
// confirmed by the server. Server-assigned ids never carry this prefix.
const ProvisionalIDPrefix = "local-"

type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	Content        string `json:"content"`
	// MessageType is an open tag; the server stores it opaquely. Empty
	// means "text".
	MessageType string `json:"messageType,omitempty"`
	// CreatedAt is a server timestamp (unix nanoseconds). Provisional
	// messages carry local clock time until replaced.
	CreatedAt int64 `json:"createdAt"`
}

// Provisional reports whether the message still carries a client-side id.
func (m Message) Provisional() bool {
	return len(m.ID) >= len(ProvisionalIDPrefix) && m.ID[:len(ProvisionalIDPrefix)] == ProvisionalIDPrefix
}

// MessagePage is one page of history, newest-first as returned by the
// server. Cursor is the id of the oldest returned row when more history
// exists, empty otherwise.
type MessagePage struct {
	Data   []Message `json:"data"`
	Cursor *string   `json:"cursor"`
}
