package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"convosync/pkg/models"
)

func TestSessionLifecycle(t *testing.T) {
	api := &fakeAPI{
		getMessages: func(convID string, limit int, cursor string) (models.MessagePage, error) {
			return page("", msg("m2", 2), msg("m1", 1)), nil
		},
	}
	s, err := NewSession(context.Background(), api, NewPushBridge(), "c1", "alice", SessionConfig{
		PageSize:     25,
		SyncInterval: time.Hour,
	})
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, []string{"m1", "m2"}, ids(s.Store.Messages()))
	waitFor(t, func() bool {
		id, _ := s.Sync.LastSeen()
		return id == "m2"
	})
}

func TestSessionLoadFailure(t *testing.T) {
	api := &fakeAPI{
		getMessages: func(convID string, limit int, cursor string) (models.MessagePage, error) {
			return models.MessagePage{}, errors.New("offline")
		},
	}
	s, err := NewSession(context.Background(), api, nil, "c1", "alice", SessionConfig{SyncInterval: time.Hour})
	require.Error(t, err)
	require.NotNil(t, s)
	require.Zero(t, s.Store.Len())
	s.Close()
}
