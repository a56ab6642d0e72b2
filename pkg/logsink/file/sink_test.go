package file

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/logsink/record"
)

func newTestSink(t *testing.T) *FileSink {
	t.Helper()
	s, err := NewFileSink(filepath.Join(t.TempDir(), "delivery.jsonl"))
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return s
}

func TestRecordAndList(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	first := record.NewEntry(1, "+5511987654321", "hello")
	second := record.NewEntry(1, "user@example.com", "world")
	second.SentAt = first.SentAt.Add(time.Second)
	other := record.NewEntry(2, "+5511912345678", "not yours")

	for _, e := range []record.Entry{first, second, other} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := s.List(ctx, 1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List returned %d entries, want 2", len(got))
	}
	// Newest (appended last) first.
	if got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("List order = [%s, %s]", got[0].ID, got[1].ID)
	}

	limited, err := s.List(ctx, 1, 1)
	if err != nil {
		t.Fatalf("List with limit: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != second.ID {
		t.Fatalf("limited List = %+v", limited)
	}
}

func TestPurge(t *testing.T) {
	s := newTestSink(t)
	ctx := context.Background()

	old := record.NewEntry(1, "+5511987654321", "old")
	old.SentAt = time.Now().UTC().Add(-30 * 24 * time.Hour)
	fresh := record.NewEntry(1, "+5511987654321", "fresh")

	for _, e := range []record.Entry{old, fresh} {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	removed, err := s.Purge(ctx, time.Now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Purge removed %d, want 1", removed)
	}

	got, err := s.List(ctx, 1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != fresh.ID {
		t.Fatalf("after purge List = %+v", got)
	}
}

func TestListEmpty(t *testing.T) {
	s := newTestSink(t)
	got, err := s.List(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("List on missing file: %v", err)
	}
	if got != nil {
		t.Fatalf("List = %+v, want nil", got)
	}
}

func TestSucceeded(t *testing.T) {
	e := record.NewEntry(1, "x", "y")
	if e.Succeeded() {
		t.Fatal("entry without message id should not count as succeeded")
	}
	id := int64(10)
	e.MessageID = &id
	if !e.Succeeded() {
		t.Fatal("entry with message id and no error should count as succeeded")
	}
	e.Error = "boom"
	if e.Succeeded() {
		t.Fatal("entry with error should not count as succeeded")
	}
}
