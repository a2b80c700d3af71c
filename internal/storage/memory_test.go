package storage

import (
	"errors"
	"testing"
	"time"

	"rashid-gateway/internal/model"
)

func newSession(mrid string) *model.Session {
	now := time.Now()
	return &model.Session{
		MatchResultID: mrid,
		State:         model.StateUninitialized,
		Messages:      []model.Message{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestMemoryStorageSessionLifecycle(t *testing.T) {
	t.Parallel()

	m := NewMemoryStorage()
	if err := m.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	if _, err := m.GetSession("mr-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}

	sess := newSession("mr-1")
	if err := m.CreateSession(sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.CreateSession(newSession("mr-1")); !errors.Is(err, ErrSessionExists) {
		t.Fatalf("duplicate create err = %v, want ErrSessionExists", err)
	}

	got, err := m.GetSession("mr-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.MatchResultID != "mr-1" {
		t.Fatalf("unexpected session: %+v", got)
	}

	got.State = model.StateReady
	if err := m.UpdateSession(got); err != nil {
		t.Fatalf("update: %v", err)
	}

	list, err := m.ListSessions()
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, err = %v", list, err)
	}

	if err := m.DeleteSession("mr-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := m.DeleteSession("mr-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestMemoryStorageHandsOutCopies(t *testing.T) {
	t.Parallel()

	m := NewMemoryStorage()
	if err := m.CreateSession(newSession("mr-copy")); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := m.GetSession("mr-copy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got.State = model.StateFailed
	got.Messages = append(got.Messages, model.Message{ID: "x", Role: model.RoleUser, Content: "local only"})

	again, err := m.GetSession("mr-copy")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if again.State != model.StateUninitialized || len(again.Messages) != 0 {
		t.Fatalf("stored session changed through a handed-out copy: %+v", again)
	}
}

func TestMemoryStorageUpdateStateKeepsTranscript(t *testing.T) {
	t.Parallel()

	m := NewMemoryStorage()
	if err := m.CreateSession(newSession("mr-st")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := m.AddMessage("mr-st", &model.Message{ID: "m1", Role: model.RoleUser, Content: "سؤال", Timestamp: time.Now()}); err != nil {
		t.Fatalf("add message: %v", err)
	}

	if err := m.UpdateState("mr-st", model.StateReady, "https://example.com/doc.pdf", 9); err != nil {
		t.Fatalf("update state: %v", err)
	}
	if err := m.UpdateState("missing", model.StateReady, "", 0); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}

	sess, err := m.GetSession("mr-st")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if sess.State != model.StateReady || sess.SourceURL != "https://example.com/doc.pdf" || sess.ChunksIndexed != 9 {
		t.Fatalf("state fields = %+v", sess)
	}
	if len(sess.Messages) != 1 {
		t.Fatalf("transcript must survive a state update, got %d messages", len(sess.Messages))
	}
}

func TestMemoryStorageMessagesAndSummary(t *testing.T) {
	t.Parallel()

	m := NewMemoryStorage()
	if err := m.CreateSession(newSession("mr-2")); err != nil {
		t.Fatalf("create: %v", err)
	}

	msg := &model.Message{ID: "m1", Role: model.RoleUser, Content: "سؤال", Timestamp: time.Now()}
	if err := m.AddMessage("mr-2", msg); err != nil {
		t.Fatalf("add message: %v", err)
	}
	if err := m.AddMessage("missing", msg); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}

	msgs, err := m.GetMessages("mr-2")
	if err != nil || len(msgs) != 1 {
		t.Fatalf("messages = %v, err = %v", msgs, err)
	}

	if err := m.UpdateSummary("mr-2", model.SummarySnapshot{Text: "ملخص", Open: true}); err != nil {
		t.Fatalf("update summary: %v", err)
	}
	sess, _ := m.GetSession("mr-2")
	if !sess.Summary.Open || sess.Summary.Text != "ملخص" {
		t.Fatalf("summary = %+v", sess.Summary)
	}
}
