package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"convosync/pkg/models"
)

func TestSendOptimisticLifecycle(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{
		sendMessage: func(convID, content string) (models.Message, error) {
			<-release
			return msg("m1", 1), nil
		},
	}
	s := NewMessageStore(api, "c1", 10)
	p := NewSender(api, s, "alice")

	done := make(chan struct{})
	var got models.Message
	var sendErr error
	go func() {
		got, sendErr = p.Send(context.Background(), "  hello  ")
		close(done)
	}()

	// the provisional entry is visible before the round trip finishes
	waitFor(t, func() bool { return s.Len() == 1 })
	prov := s.Messages()[0]
	require.True(t, prov.Provisional())
	require.Equal(t, "hello", prov.Content)
	require.Equal(t, "alice", prov.SenderID)
	require.True(t, p.Pending())

	close(release)
	<-done
	require.NoError(t, sendErr)
	require.Equal(t, "m1", got.ID)

	// confirmed message replaced the provisional one, nothing else remains
	require.Equal(t, []string{"m1"}, ids(s.Messages()))
	require.False(t, p.Pending())
}

func TestSendFailureRollsBack(t *testing.T) {
	boom := errors.New("boom")
	api := &fakeAPI{
		sendMessage: func(convID, content string) (models.Message, error) {
			return models.Message{}, boom
		},
	}
	s := NewMessageStore(api, "c1", 10)
	s.Append(msg("m0", 0))
	p := NewSender(api, s, "alice")

	_, err := p.Send(context.Background(), "hello")
	require.ErrorIs(t, err, boom)

	// store back to its pre-send state
	require.Equal(t, []string{"m0"}, ids(s.Messages()))
	require.False(t, p.Pending())
}

func TestSendEmptyDraft(t *testing.T) {
	api := &fakeAPI{}
	s := NewMessageStore(api, "c1", 10)
	p := NewSender(api, s, "alice")

	_, err := p.Send(context.Background(), "   \n\t ")
	require.ErrorIs(t, err, ErrEmptyDraft)
	require.Zero(t, s.Len())
	require.Zero(t, api.sendCalls)
}

func TestSendPendingGuard(t *testing.T) {
	release := make(chan struct{})
	api := &fakeAPI{
		sendMessage: func(convID, content string) (models.Message, error) {
			<-release
			return msg("m1", 1), nil
		},
	}
	s := NewMessageStore(api, "c1", 10)
	p := NewSender(api, s, "alice")

	done := make(chan struct{})
	go func() {
		_, _ = p.Send(context.Background(), "first")
		close(done)
	}()
	waitFor(t, p.Pending)

	_, err := p.Send(context.Background(), "second")
	require.ErrorIs(t, err, ErrSendPending)

	close(release)
	<-done
	require.Equal(t, 1, api.sendCalls)
	require.Equal(t, []string{"m1"}, ids(s.Messages()))
}
