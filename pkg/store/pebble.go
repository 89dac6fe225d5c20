package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/pebble"

	"convosync/pkg/logger"
	"convosync/pkg/models"
)

// ErrNotFound is returned when a conversation, message or read marker does
// not exist.
var ErrNotFound = errors.New("not found")

var db *pebble.DB

// seq provides a small counter to reduce key collisions when multiple
// messages share the same nanosecond timestamp.
var seq uint64

// Key layout:
//
//	conv:<convID>:meta                      conversation JSON
//	conv:<convID>:msg:<020d-ns>-<06d-seq>   message JSON, ascending = chronological
//	conv:<convID>:read:<userID>             read marker JSON
//
// Message ids are "msg-<020d-ns>-<06d-seq>" so the storage key is derivable
// from the id, which makes the pagination cursor a plain message id.

// Open opens (or creates) a Pebble database at the given path and keeps
// a global handle for simple usage in this package.
func Open(path string) error {
	var err error
	logger.Info("opening_pebble_db", "path", path)
	db, err = pebble.Open(path, &pebble.Options{})
	if err != nil {
		logger.Error("pebble_open_failed", "path", path, "error", err)
		return err
	}
	logger.Info("pebble_opened", "path", path)
	return nil
}

// Close closes the opened pebble DB if present.
func Close() error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return err
	}
	db = nil
	logger.Info("pebble_closed")
	return nil
}

// Ready reports whether the store is opened and ready.
func Ready() bool {
	return db != nil
}

func notOpened() error {
	return fmt.Errorf("pebble not opened; call store.Open first")
}

// NewMessageID mints a sortable server message id.
func NewMessageID() string {
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1) % 1000000
	return fmt.Sprintf("msg-%020d-%06d", ts, s)
}

// NewConversationID mints a conversation id.
func NewConversationID() string {
	ts := time.Now().UTC().UnixNano()
	s := atomic.AddUint64(&seq, 1) % 1000000
	return fmt.Sprintf("conv-%d-%d", ts, s)
}

func msgKey(convID, msgID string) []byte {
	return []byte("conv:" + convID + ":msg:" + strings.TrimPrefix(msgID, "msg-"))
}

func msgPrefix(convID string) []byte {
	return []byte("conv:" + convID + ":msg:")
}

// prefixEnd returns the smallest key greater than every key with prefix p.
func prefixEnd(p []byte) []byte {
	end := append([]byte(nil), p...)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil
}

// tsFromMsgKey extracts the embedded nanosecond timestamp from a message
// key suffix. Returns 0 on malformed input.
func tsFromMsgKey(k []byte) int64 {
	s := string(k)
	i := strings.LastIndex(s, ":msg:")
	if i < 0 || len(s) < i+5+20 {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimLeft(s[i+5:i+5+20], "0"), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// AppendMessage persists a message to a conversation, assigning the server
// id and timestamp, and bumps the conversation's updated timestamp. The
// conversation must already exist. The insert itself is a single atomic set.
func AppendMessage(convID string, m models.Message) (models.Message, error) {
	if db == nil {
		return models.Message{}, notOpened()
	}
	conv, err := GetConversation(convID)
	if err != nil {
		return models.Message{}, err
	}

	m.ID = NewMessageID()
	m.ConversationID = convID
	m.CreatedAt = time.Now().UTC().UnixNano()
	if m.MessageType == "" {
		m.MessageType = "text"
	}

	data, err := json.Marshal(m)
	if err != nil {
		return models.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}
	key := msgKey(convID, m.ID)
	if err := db.Set(key, data, pebble.Sync); err != nil {
		logger.Error("append_message_failed", "conversation", convID, "key", string(key), "error", err)
		return models.Message{}, err
	}
	messagesAppended.Inc()
	logger.Info("message_saved", "conversation", convID, "id", m.ID)

	// freshness signal for listing screens; message insert above is already durable
	conv.UpdatedTS = m.CreatedAt
	if err := SaveConversation(conv); err != nil {
		logger.Error("bump_conversation_failed", "conversation", convID, "error", err)
	}
	return m, nil
}

// ListMessagesBefore returns up to limit messages strictly older than the
// cursor (or the newest limit messages when cursor is empty), newest-first,
// plus the cursor for the next page. The next cursor is the id of the
// oldest returned row when more history remains, "" otherwise.
func ListMessagesBefore(convID string, limit int, cursor string) ([]models.Message, string, error) {
	if db == nil {
		return nil, "", notOpened()
	}
	if limit <= 0 {
		limit = 50
	}
	prefix := msgPrefix(convID)
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, "", err
	}
	defer iter.Close()

	var ok bool
	if cursor != "" {
		ok = iter.SeekLT(msgKey(convID, cursor))
	} else {
		ok = iter.Last()
	}

	// probe one row past the limit to learn whether history continues
	out := make([]models.Message, 0, limit)
	more := false
	for ; ok; ok = iter.Prev() {
		if len(out) == limit {
			more = true
			break
		}
		var m models.Message
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, "", fmt.Errorf("invalid stored message at %s: %w", iter.Key(), err)
		}
		out = append(out, m)
	}
	if err := iter.Error(); err != nil {
		return nil, "", err
	}
	pagesListed.Inc()

	next := ""
	if more && len(out) > 0 {
		next = out[len(out)-1].ID
	}
	return out, next, nil
}

// SaveConversation stores conversation metadata under its reserved key.
func SaveConversation(c models.Conversation) error {
	if db == nil {
		return notOpened()
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	key := []byte("conv:" + c.ID + ":meta")
	if err := db.Set(key, b, pebble.Sync); err != nil {
		logger.Error("save_conversation_failed", "conversation", c.ID, "error", err)
		return err
	}
	logger.Info("conversation_saved", "conversation", c.ID)
	return nil
}

// GetConversation returns the stored conversation for an id.
func GetConversation(convID string) (models.Conversation, error) {
	if db == nil {
		return models.Conversation{}, notOpened()
	}
	v, closer, err := db.Get([]byte("conv:" + convID + ":meta"))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return models.Conversation{}, ErrNotFound
		}
		return models.Conversation{}, err
	}
	defer closer.Close()
	var c models.Conversation
	if err := json.Unmarshal(v, &c); err != nil {
		return models.Conversation{}, fmt.Errorf("invalid stored conversation: %w", err)
	}
	return c, nil
}

// ListConversationsFor returns every conversation the user participates in,
// most recently updated first.
func ListConversationsFor(userID string) ([]models.Conversation, error) {
	if db == nil {
		return nil, notOpened()
	}
	prefix := []byte("conv:")
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []models.Conversation
	for iter.First(); iter.Valid(); iter.Next() {
		if !strings.HasSuffix(string(iter.Key()), ":meta") {
			continue
		}
		var c models.Conversation
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			continue
		}
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedTS > out[j].UpdatedTS })
	return out, nil
}

// SetReadMarker records that a participant has read everything in the
// conversation as of ts. Last write wins; the operation is idempotent.
func SetReadMarker(convID, userID string, ts int64) error {
	if db == nil {
		return notOpened()
	}
	b, err := json.Marshal(models.ReadMarker{UserID: userID, TS: ts})
	if err != nil {
		return err
	}
	key := []byte("conv:" + convID + ":read:" + userID)
	if err := db.Set(key, b, pebble.Sync); err != nil {
		logger.Error("set_read_marker_failed", "conversation", convID, "user", userID, "error", err)
		return err
	}
	readMarksSet.Inc()
	logger.Info("read_marker_set", "conversation", convID, "user", userID)
	return nil
}

// GetReadMarker returns the stored read marker for a participant.
func GetReadMarker(convID, userID string) (models.ReadMarker, error) {
	if db == nil {
		return models.ReadMarker{}, notOpened()
	}
	v, closer, err := db.Get([]byte("conv:" + convID + ":read:" + userID))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return models.ReadMarker{}, ErrNotFound
		}
		return models.ReadMarker{}, err
	}
	defer closer.Close()
	var rm models.ReadMarker
	if err := json.Unmarshal(v, &rm); err != nil {
		return models.ReadMarker{}, fmt.Errorf("invalid stored read marker: %w", err)
	}
	return rm, nil
}

// PurgeMessagesBefore deletes all messages older than cutoff (ns) across
// every conversation. Metadata and read markers are untouched. When dryRun
// is set it only counts. Returns the number of affected messages.
func PurgeMessagesBefore(cutoff int64, dryRun bool) (int, error) {
	if db == nil {
		return 0, notOpened()
	}
	prefix := []byte("conv:")
	iter, err := db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: prefixEnd(prefix)})
	if err != nil {
		return 0, err
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		k := string(iter.Key())
		if !strings.Contains(k, ":msg:") {
			continue
		}
		ts := tsFromMsgKey(iter.Key())
		if ts == 0 || ts >= cutoff {
			continue
		}
		n++
		if dryRun {
			continue
		}
		key := append([]byte(nil), iter.Key()...)
		if err := db.Delete(key, pebble.Sync); err != nil {
			return n, err
		}
		messagesPurged.Inc()
	}
	return n, iter.Error()
}
