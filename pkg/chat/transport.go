package chat

import (
	"context"

	"convosync/pkg/models"
)

// Transport is the slice of the conversation API this package consumes.
// *client.Client satisfies it; tests substitute fakes.
type Transport interface {
	GetMessages(ctx context.Context, conversationID string, limit int, cursor string) (models.MessagePage, error)
	SendMessage(ctx context.Context, conversationID, content string) (models.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
}
