package store

import (
	"errors"
	"testing"
	"time"

	"convosync/pkg/models"
)

func openTestStore(t *testing.T) {
	t.Helper()
	if err := Open(t.TempDir()); err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = Close() })
}

func mkConversation(t *testing.T, participants ...string) models.Conversation {
	t.Helper()
	now := time.Now().UTC().UnixNano()
	c := models.Conversation{
		ID:           NewConversationID(),
		Participants: participants,
		CreatedTS:    now,
		UpdatedTS:    now,
	}
	if err := SaveConversation(c); err != nil {
		t.Fatalf("save conversation: %v", err)
	}
	return c
}

func TestAppendAndGetConversation(t *testing.T) {
	openTestStore(t)
	c := mkConversation(t, "alice", "bob")

	m, err := AppendMessage(c.ID, models.Message{SenderID: "alice", Content: "hi"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if m.ID == "" || m.CreatedAt == 0 {
		t.Fatalf("server id/timestamp not assigned: %+v", m)
	}
	if m.Provisional() {
		t.Fatalf("server id must not look provisional: %s", m.ID)
	}
	if m.MessageType != "text" {
		t.Fatalf("default message type: got %q", m.MessageType)
	}

	got, err := GetConversation(c.ID)
	if err != nil {
		t.Fatalf("get conversation: %v", err)
	}
	if got.UpdatedTS != m.CreatedAt {
		t.Fatalf("updated_ts not bumped: conv=%d msg=%d", got.UpdatedTS, m.CreatedAt)
	}
}

func TestAppendToMissingConversation(t *testing.T) {
	openTestStore(t)
	_, err := AppendMessage("conv-nope", models.Message{SenderID: "x", Content: "hi"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListMessagesPagination(t *testing.T) {
	openTestStore(t)
	c := mkConversation(t, "alice", "bob")

	const total = 120
	ids := make([]string, 0, total)
	for i := 0; i < total; i++ {
		m, err := AppendMessage(c.ID, models.Message{SenderID: "alice", Content: "m"})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		ids = append(ids, m.ID)
	}

	// walk the full history in pages of 50
	seen := map[string]bool{}
	var collected []models.Message
	cursor := ""
	pages := 0
	for {
		page, next, err := ListMessagesBefore(c.ID, 50, cursor)
		if err != nil {
			t.Fatalf("list page %d: %v", pages, err)
		}
		pages++
		for _, m := range page {
			if seen[m.ID] {
				t.Fatalf("duplicate across pages: %s", m.ID)
			}
			seen[m.ID] = true
		}
		collected = append(collected, page...)
		if next == "" {
			break
		}
		if next != page[len(page)-1].ID {
			t.Fatalf("cursor is not the oldest returned row: %s vs %s", next, page[len(page)-1].ID)
		}
		cursor = next
	}

	if pages != 3 {
		t.Fatalf("want 3 pages (50+50+20), got %d", pages)
	}
	if len(collected) != total {
		t.Fatalf("pagination dropped messages: got %d of %d", len(collected), total)
	}
	// newest-first overall: collected[0] is the last appended
	if collected[0].ID != ids[total-1] {
		t.Fatalf("first page does not start at newest message")
	}
	if collected[total-1].ID != ids[0] {
		t.Fatalf("last page does not end at oldest message")
	}
	for i := 1; i < len(collected); i++ {
		if collected[i-1].CreatedAt < collected[i].CreatedAt {
			t.Fatalf("page order not newest-first at index %d", i)
		}
	}
}

func TestListMessagesShortHistory(t *testing.T) {
	openTestStore(t)
	c := mkConversation(t, "alice")

	for i := 0; i < 3; i++ {
		if _, err := AppendMessage(c.ID, models.Message{SenderID: "alice", Content: "m"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	page, next, err := ListMessagesBefore(c.ID, 50, "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 3 || next != "" {
		t.Fatalf("want 3 rows and no cursor, got %d rows cursor=%q", len(page), next)
	}

	// empty conversation
	empty := mkConversation(t, "alice")
	page, next, err = ListMessagesBefore(empty.ID, 50, "")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(page) != 0 || next != "" {
		t.Fatalf("empty conversation must yield empty page, got %d cursor=%q", len(page), next)
	}
}

func TestListConversationsFor(t *testing.T) {
	openTestStore(t)
	a := mkConversation(t, "alice", "bob")
	mkConversation(t, "bob", "carol")
	b := mkConversation(t, "alice")

	// bump a so it sorts first
	if _, err := AppendMessage(a.ID, models.Message{SenderID: "alice", Content: "bump"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	convs, err := ListConversationsFor("alice")
	if err != nil {
		t.Fatalf("list conversations: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("want 2 conversations for alice, got %d", len(convs))
	}
	if convs[0].ID != a.ID || convs[1].ID != b.ID {
		t.Fatalf("not sorted by freshness: %s, %s", convs[0].ID, convs[1].ID)
	}
}

func TestReadMarkers(t *testing.T) {
	openTestStore(t)
	c := mkConversation(t, "alice", "bob")

	if _, err := GetReadMarker(c.ID, "alice"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound before first mark, got %v", err)
	}

	t1 := time.Now().UTC().UnixNano()
	if err := SetReadMarker(c.ID, "alice", t1); err != nil {
		t.Fatalf("set marker: %v", err)
	}
	// idempotent last-write-wins
	t2 := t1 + 1
	if err := SetReadMarker(c.ID, "alice", t2); err != nil {
		t.Fatalf("set marker again: %v", err)
	}
	rm, err := GetReadMarker(c.ID, "alice")
	if err != nil {
		t.Fatalf("get marker: %v", err)
	}
	if rm.UserID != "alice" || rm.TS != t2 {
		t.Fatalf("marker mismatch: %+v", rm)
	}

	// markers are per participant
	if _, err := GetReadMarker(c.ID, "bob"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("bob must have no marker, got %v", err)
	}
}

func TestPurgeMessagesBefore(t *testing.T) {
	openTestStore(t)
	c := mkConversation(t, "alice")

	for i := 0; i < 5; i++ {
		if _, err := AppendMessage(c.ID, models.Message{SenderID: "alice", Content: "old"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	cutoff := time.Now().UTC().UnixNano()
	time.Sleep(time.Millisecond)
	keep, err := AppendMessage(c.ID, models.Message{SenderID: "alice", Content: "new"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	n, err := PurgeMessagesBefore(cutoff, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if n != 5 {
		t.Fatalf("dry run count: want 5, got %d", n)
	}
	page, _, err := ListMessagesBefore(c.ID, 50, "")
	if err != nil || len(page) != 6 {
		t.Fatalf("dry run must not delete: %d rows, err=%v", len(page), err)
	}

	n, err = PurgeMessagesBefore(cutoff, false)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if n != 5 {
		t.Fatalf("purge count: want 5, got %d", n)
	}
	page, _, err = ListMessagesBefore(c.ID, 50, "")
	if err != nil {
		t.Fatalf("list after purge: %v", err)
	}
	if len(page) != 1 || page[0].ID != keep.ID {
		t.Fatalf("purge removed the wrong rows: %+v", page)
	}

	// conversation metadata survives
	if _, err := GetConversation(c.ID); err != nil {
		t.Fatalf("metadata purged: %v", err)
	}
}
