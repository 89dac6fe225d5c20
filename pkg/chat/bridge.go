package chat

import "sync"

// Notification is an inbound push event as delivered by the notification
// collaborator. Only the conversation id matters to this package.
type Notification struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId,omitempty"`
}

// Bridge is a subscribable stream of inbound notifications. Subscribe
// returns a receive channel and a cancel func that releases it.
type Bridge interface {
	Subscribe() (<-chan Notification, func())
}

// PushBridge is a channel-fed Bridge. The push delivery layer calls
// Publish; each subscriber gets its own buffered channel and slow
// subscribers drop events rather than block delivery.
type PushBridge struct {
	mu   sync.Mutex
	subs map[int]chan Notification
	next int
}

// NewPushBridge returns an empty bridge.
func NewPushBridge() *PushBridge {
	return &PushBridge{subs: make(map[int]chan Notification)}
}

// Subscribe registers a new subscriber.
func (b *PushBridge) Subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	id := b.next
	b.next++
	ch := make(chan Notification, 16)
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans the notification out to every subscriber without blocking.
func (b *PushBridge) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
