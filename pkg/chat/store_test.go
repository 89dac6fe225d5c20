package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"convosync/pkg/models"
)

// fakeAPI is a configurable Transport shared by the tests in this package.
type fakeAPI struct {
	mu           sync.Mutex
	getCalls     int
	sendCalls    int
	markCalls    int
	getMessages  func(conversationID string, limit int, cursor string) (models.MessagePage, error)
	sendMessage  func(conversationID, content string) (models.Message, error)
	markReadErr  error
}

func (f *fakeAPI) GetMessages(ctx context.Context, conversationID string, limit int, cursor string) (models.MessagePage, error) {
	f.mu.Lock()
	f.getCalls++
	fn := f.getMessages
	f.mu.Unlock()
	if fn == nil {
		return models.MessagePage{}, nil
	}
	return fn(conversationID, limit, cursor)
}

func (f *fakeAPI) SendMessage(ctx context.Context, conversationID, content string) (models.Message, error) {
	f.mu.Lock()
	f.sendCalls++
	fn := f.sendMessage
	f.mu.Unlock()
	if fn == nil {
		return models.Message{}, nil
	}
	return fn(conversationID, content)
}

func (f *fakeAPI) MarkRead(ctx context.Context, conversationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	return f.markReadErr
}

func (f *fakeAPI) markCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markCalls
}

func (f *fakeAPI) setMarkErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadErr = err
}

func msg(id string, ts int64) models.Message {
	return models.Message{ID: id, ConversationID: "c1", SenderID: "alice", Content: id, CreatedAt: ts}
}

func page(cursor string, msgs ...models.Message) models.MessagePage {
	p := models.MessagePage{Data: msgs}
	if cursor != "" {
		p.Cursor = &cursor
	}
	return p
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func ids(msgs []models.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestLoadOrdersAscending(t *testing.T) {
	api := &fakeAPI{
		getMessages: func(convID string, limit int, cursor string) (models.MessagePage, error) {
			require.Equal(t, "c1", convID)
			require.Empty(t, cursor)
			return page("", msg("m3", 3), msg("m2", 2), msg("m1", 1)), nil
		},
	}
	s := NewMessageStore(api, "c1", 10)
	require.NoError(t, s.Load(context.Background()))
	require.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages()))
	require.False(t, s.HasMore())
	require.Equal(t, "m3", s.LastID())
}

func TestLoadMorePrependsOlderPage(t *testing.T) {
	api := &fakeAPI{
		getMessages: func(convID string, limit int, cursor string) (models.MessagePage, error) {
			if cursor == "" {
				return page("m3", msg("m4", 4), msg("m3", 3)), nil
			}
			require.Equal(t, "m3", cursor)
			return page("", msg("m2", 2), msg("m1", 1)), nil
		},
	}
	s := NewMessageStore(api, "c1", 2)
	require.NoError(t, s.Load(context.Background()))
	require.True(t, s.HasMore())

	require.NoError(t, s.LoadMore(context.Background()))
	require.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids(s.Messages()))
	require.False(t, s.HasMore())

	// exhausted history makes LoadMore a no-op
	before := api.getCalls
	require.NoError(t, s.LoadMore(context.Background()))
	require.Equal(t, before, api.getCalls)
}

func TestLoadMoreDedupesOverlap(t *testing.T) {
	api := &fakeAPI{
		getMessages: func(convID string, limit int, cursor string) (models.MessagePage, error) {
			if cursor == "" {
				return page("m2", msg("m3", 3), msg("m2", 2)), nil
			}
			// server page overlaps the boundary row
			return page("", msg("m2", 2), msg("m1", 1)), nil
		},
	}
	s := NewMessageStore(api, "c1", 2)
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.LoadMore(context.Background()))
	require.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages()))
}

func TestStaleLoadMoreDiscarded(t *testing.T) {
	block := make(chan struct{})
	api := &fakeAPI{}
	api.getMessages = func(convID string, limit int, cursor string) (models.MessagePage, error) {
		if cursor != "" {
			<-block
			return page("", msg("old-2", 2), msg("old-1", 1)), nil
		}
		return page("old-3", msg("m5", 5), msg("m4", 4)), nil
	}

	s := NewMessageStore(api, "c1", 2)
	require.NoError(t, s.Load(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.LoadMore(context.Background()) }()
	waitFor(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.getCalls == 2
	})

	// a reload supersedes the pagination request still in flight
	require.NoError(t, s.Load(context.Background()))
	close(block)
	require.NoError(t, <-done)
	require.Equal(t, []string{"m4", "m5"}, ids(s.Messages()))
	require.True(t, s.HasMore())
}

func TestOverlappingLoadMoreSuppressed(t *testing.T) {
	block := make(chan struct{})
	api := &fakeAPI{}
	api.getMessages = func(convID string, limit int, cursor string) (models.MessagePage, error) {
		if cursor != "" {
			<-block
			return page("", msg("m1", 1)), nil
		}
		return page("m2", msg("m3", 3), msg("m2", 2)), nil
	}

	s := NewMessageStore(api, "c1", 2)
	require.NoError(t, s.Load(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.LoadMore(context.Background()) }()
	waitFor(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return api.getCalls == 2
	})

	// second call while the first is pending is dropped, not queued
	require.NoError(t, s.LoadMore(context.Background()))
	api.mu.Lock()
	calls := api.getCalls
	api.mu.Unlock()
	require.Equal(t, 2, calls)

	close(block)
	require.NoError(t, <-done)
	require.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages()))
}

func TestReplaceAndRemove(t *testing.T) {
	s := NewMessageStore(&fakeAPI{}, "c1", 10)
	s.Append(msg("m1", 1))
	s.Append(models.Message{ID: models.ProvisionalIDPrefix + "abc", Content: "draft"})
	s.Append(msg("m1", 1)) // duplicate id ignored
	require.Equal(t, 2, s.Len())

	// provisional entry swaps in place, position preserved
	s.Replace(models.ProvisionalIDPrefix+"abc", msg("m2", 2))
	require.Equal(t, []string{"m1", "m2"}, ids(s.Messages()))

	// provisional gone (store reloaded meanwhile): confirmed is appended once
	s.Replace(models.ProvisionalIDPrefix+"gone", msg("m3", 3))
	s.Replace(models.ProvisionalIDPrefix+"gone", msg("m3", 3))
	require.Equal(t, []string{"m1", "m2", "m3"}, ids(s.Messages()))

	s.Remove("m2")
	require.Equal(t, []string{"m1", "m3"}, ids(s.Messages()))
}

func TestOnChangeFires(t *testing.T) {
	api := &fakeAPI{
		getMessages: func(convID string, limit int, cursor string) (models.MessagePage, error) {
			return page("", msg("m1", 1)), nil
		},
	}
	s := NewMessageStore(api, "c1", 10)
	var mu sync.Mutex
	fired := 0
	s.SetOnChange(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	require.NoError(t, s.Load(context.Background()))
	s.Append(msg("m2", 2))
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, fired)
}
