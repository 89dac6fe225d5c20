package chat

import (
	"context"
	"sync"
	"time"

	"convosync/pkg/logger"
)

// DefaultSyncInterval is the periodic read-state tick while the
// conversation screen stays visible.
const DefaultSyncInterval = 2 * time.Second

// ReadSyncer keeps the server's read marker for one conversation current.
// Several independent triggers converge on a single guarded markAsRead
// call: screen focus (Start), a periodic tick, an inbound notification for
// the active conversation, a store change, and screen teardown (Close).
//
// The call itself is issued unconditionally (the endpoint is idempotent)
// but lastSeen state advances only after a success, so a failed attempt is
// retried by whatever trigger fires next. No retry loop of its own.
type ReadSyncer struct {
	api      Transport
	store    *MessageStore
	bridge   Bridge
	interval time.Duration

	mu            sync.Mutex
	lastSeenID    string
	lastSeenCount int
	inFlight      bool
	started       bool

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewReadSyncer binds a syncer to a store and notification bridge. The
// syncer owns its ticker and subscription; switching conversations means
// closing this syncer and creating a new one.
func NewReadSyncer(api Transport, store *MessageStore, bridge Bridge, interval time.Duration) *ReadSyncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &ReadSyncer{api: api, store: store, bridge: bridge, interval: interval}
}

// Start begins syncing: it fires the focus trigger once, starts the
// periodic ticker and subscribes to the notification bridge. The parent
// context bounds everything; Close tears it all down.
func (r *ReadSyncer) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	r.store.SetOnChange(r.onStoreChanged)

	// screen focus
	go r.sync()

	go r.tickLoop()
	go r.bridgeLoop()
}

// Close fires the best-effort teardown trigger and releases the ticker and
// subscription. The final markAsRead is not awaited; navigation must not
// block on it.
func (r *ReadSyncer) Close() {
	r.closeOnce.Do(func() {
		r.store.SetOnChange(nil)
		conversationID := r.store.ConversationID()
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := r.api.MarkRead(ctx, conversationID); err != nil {
				logger.Debug("mark_read_teardown_failed", "conversation", conversationID, "error", err)
			}
		}()
		r.mu.Lock()
		cancel := r.cancel
		r.mu.Unlock()
		if cancel != nil {
			cancel()
		}
	})
}

func (r *ReadSyncer) tickLoop() {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-t.C:
			r.sync()
		}
	}
}

func (r *ReadSyncer) bridgeLoop() {
	if r.bridge == nil {
		return
	}
	ch, cancelSub := r.bridge.Subscribe()
	defer cancelSub()
	for {
		select {
		case <-r.ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if n.ConversationID != r.store.ConversationID() {
				continue
			}
			// pull the new messages first, then mark them read
			if err := r.store.Load(r.ctx); err != nil {
				logger.Warn("notification_pull_failed", "conversation", n.ConversationID, "error", err)
			}
			r.sync()
		}
	}
}

// onStoreChanged fires when the store content moved past what was last
// marked: a different newest id, or more messages than last time.
func (r *ReadSyncer) onStoreChanged() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	changed := r.store.LastID() != r.lastSeenID || r.store.Len() > r.lastSeenCount
	r.mu.Unlock()
	if changed {
		go r.sync()
	}
}

// sync is the single guarded entry every trigger converges on. Concurrent
// callers are dropped, not queued; the next trigger picks up any slack.
func (r *ReadSyncer) sync() {
	r.mu.Lock()
	if !r.started || r.inFlight {
		r.mu.Unlock()
		return
	}
	r.inFlight = true
	ctx := r.ctx
	r.mu.Unlock()

	// snapshot before the call: anything arriving during the round trip
	// is caught by the next trigger
	id := r.store.LastID()
	count := r.store.Len()
	conversationID := r.store.ConversationID()

	err := r.api.MarkRead(ctx, conversationID)

	r.mu.Lock()
	r.inFlight = false
	if err == nil && count >= r.lastSeenCount {
		r.lastSeenID = id
		r.lastSeenCount = count
	}
	r.mu.Unlock()

	if err != nil {
		// best-effort: never surfaced, naturally retried by the next trigger
		logger.Debug("mark_read_failed", "conversation", conversationID, "error", err)
	}
}

// LastSeen reports the id and count recorded at the last successful mark.
func (r *ReadSyncer) LastSeen() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeenID, r.lastSeenCount
}
