package chat

import (
	"context"
	"sync"

	"convosync/pkg/logger"
	"convosync/pkg/models"
)

// DefaultPageSize is the pagination limit used when none is configured.
const DefaultPageSize = 50

// MessageStore holds the ordered message list for exactly one active
// conversation. Messages are kept unique by id in ascending createdAt
// order for display, even though the server returns pages newest-first.
//
// Only the store's own methods and the Sender's reconciliation step mutate
// the list. Pagination requests are generation-tagged: a Load invalidates
// every in-flight LoadMore, whose response is then discarded.
type MessageStore struct {
	api            Transport
	conversationID string
	pageSize       int

	mu          sync.Mutex
	msgs        []models.Message
	hasMore     bool
	cursor      string
	gen         uint64
	loadingMore bool
	onChange    func()
}

// NewMessageStore returns an empty store bound to one conversation.
func NewMessageStore(api Transport, conversationID string, pageSize int) *MessageStore {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &MessageStore{api: api, conversationID: conversationID, pageSize: pageSize}
}

// SetOnChange registers a callback invoked after every successful mutation.
// The callback runs outside the store's lock.
func (s *MessageStore) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *MessageStore) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// ConversationID returns the conversation this store is bound to.
func (s *MessageStore) ConversationID() string { return s.conversationID }

// Load clears the store and fetches the first (newest) page. On failure the
// store stays empty and the error is returned; the caller decides how to
// surface it. A Load invalidates any LoadMore still in flight.
func (s *MessageStore) Load(ctx context.Context) error {
	s.mu.Lock()
	s.gen++
	myGen := s.gen
	s.msgs = nil
	s.hasMore = false
	s.cursor = ""
	s.mu.Unlock()

	page, err := s.api.GetMessages(ctx, s.conversationID, s.pageSize, "")
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.gen != myGen {
		// a newer Load superseded this request
		s.mu.Unlock()
		return nil
	}
	s.msgs = reverseCopy(page.Data)
	s.cursor = ""
	if page.Cursor != nil {
		s.cursor = *page.Cursor
	}
	s.hasMore = s.cursor != ""
	s.mu.Unlock()

	s.notify()
	return nil
}

// LoadMore prepends the next older page. It is a no-op when history is
// exhausted or another LoadMore is already in flight; overlapping calls are
// suppressed, not queued.
func (s *MessageStore) LoadMore(ctx context.Context) error {
	s.mu.Lock()
	if !s.hasMore || s.loadingMore {
		s.mu.Unlock()
		return nil
	}
	s.loadingMore = true
	myGen := s.gen
	cursor := s.cursor
	s.mu.Unlock()

	page, err := s.api.GetMessages(ctx, s.conversationID, s.pageSize, cursor)

	s.mu.Lock()
	s.loadingMore = false
	if s.gen != myGen {
		// the cursor context this request was issued for no longer exists
		s.mu.Unlock()
		logger.Debug("stale_page_discarded", "conversation", s.conversationID, "cursor", cursor)
		return nil
	}
	if err != nil {
		s.mu.Unlock()
		return err
	}
	older := reverseCopy(page.Data)
	s.msgs = append(older, s.msgs...)
	s.dedupeLocked()
	s.cursor = ""
	if page.Cursor != nil {
		s.cursor = *page.Cursor
	}
	s.hasMore = s.cursor != ""
	s.mu.Unlock()

	s.notify()
	return nil
}

// Append adds a message at the tail. Used by the Sender for provisional
// entries; ids already present are ignored.
func (s *MessageStore) Append(m models.Message) {
	s.mu.Lock()
	for _, e := range s.msgs {
		if e.ID == m.ID {
			s.mu.Unlock()
			return
		}
	}
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()
	s.notify()
}

// Replace substitutes the provisional entry with the server-confirmed
// message, in place. If the provisional entry is gone (the store was
// reloaded meanwhile) the confirmed message is appended unless its server
// id is already present.
func (s *MessageStore) Replace(provisionalID string, confirmed models.Message) {
	s.mu.Lock()
	replaced := false
	for i, e := range s.msgs {
		if e.ID == provisionalID {
			s.msgs[i] = confirmed
			replaced = true
			break
		}
	}
	if !replaced {
		present := false
		for _, e := range s.msgs {
			if e.ID == confirmed.ID {
				present = true
				break
			}
		}
		if !present {
			s.msgs = append(s.msgs, confirmed)
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Remove deletes the entry with the given id, if present.
func (s *MessageStore) Remove(id string) {
	s.mu.Lock()
	for i, e := range s.msgs {
		if e.ID == id {
			s.msgs = append(s.msgs[:i], s.msgs[i+1:]...)
			break
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Messages returns a copy of the current ascending-ordered list.
func (s *MessageStore) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of held messages.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// LastID returns the id of the newest held message, or "".
func (s *MessageStore) LastID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return ""
	}
	return s.msgs[len(s.msgs)-1].ID
}

// HasMore reports whether older history remains.
func (s *MessageStore) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// dedupeLocked drops later duplicates by id, keeping first occurrence.
func (s *MessageStore) dedupeLocked() {
	seen := make(map[string]struct{}, len(s.msgs))
	out := s.msgs[:0]
	for _, m := range s.msgs {
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	s.msgs = out
}

// reverseCopy turns a newest-first page into ascending order.
func reverseCopy(in []models.Message) []models.Message {
	out := make([]models.Message, len(in))
	for i, m := range in {
		out[len(in)-1-i] = m
	}
	return out
}
