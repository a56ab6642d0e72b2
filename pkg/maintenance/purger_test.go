package maintenance

import (
	"context"
	"testing"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/logsink"
)

type fakeSink struct {
	purged  int
	cutoffs []time.Time
}

func (f *fakeSink) Record(_ context.Context, _ logsink.Entry) error { return nil }
func (f *fakeSink) List(_ context.Context, _ int64, _ int) ([]logsink.Entry, error) {
	return nil, nil
}
func (f *fakeSink) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	f.purged++
	f.cutoffs = append(f.cutoffs, olderThan)
	return 3, nil
}
func (f *fakeSink) Connect(_ context.Context) error { return nil }
func (f *fakeSink) Close() error                    { return nil }
func (f *fakeSink) Ping(_ context.Context) error    { return nil }

func TestNewPurgerValidatesSchedule(t *testing.T) {
	if _, err := NewPurger(&fakeSink{}, "not a cron", 7); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if _, err := NewPurger(&fakeSink{}, "", 7); err != nil {
		t.Fatalf("empty schedule should default: %v", err)
	}
}

func TestPurgeOnceUsesRetention(t *testing.T) {
	sink := &fakeSink{}
	p, err := NewPurger(sink, DefaultSchedule, 7)
	if err != nil {
		t.Fatalf("NewPurger: %v", err)
	}

	p.PurgeOnce(context.Background())
	if sink.purged != 1 {
		t.Fatalf("purge calls = %d, want 1", sink.purged)
	}

	want := time.Now().Add(-7 * 24 * time.Hour)
	got := sink.cutoffs[0]
	if got.Before(want.Add(-time.Minute)) || got.After(want.Add(time.Minute)) {
		t.Fatalf("cutoff = %v, want about %v", got, want)
	}
}

func TestPurgeDefaultRetention(t *testing.T) {
	sink := &fakeSink{}
	p, err := NewPurger(sink, "", 0)
	if err != nil {
		t.Fatalf("NewPurger: %v", err)
	}
	if p.retention != 7*24*time.Hour {
		t.Fatalf("retention = %v, want 7 days", p.retention)
	}
}
