package labels

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
)

type fakeLabelAPI struct {
	labels []allway.Label
	err    error
	calls  int
}

func (f *fakeLabelAPI) GetLabels(_ context.Context, _ *allway.Account) ([]allway.Label, error) {
	f.calls++
	return f.labels, f.err
}

var catalog = []allway.Label{
	{ID: 1, Title: "vip"},
	{ID: 2, Title: "Pós Venda"},
	{ID: 3, Title: "billing_issue"},
}

func acct() *allway.Account {
	return &allway.Account{AccountID: 7}
}

func TestLabelsCachesWithinTTL(t *testing.T) {
	api := &fakeLabelAPI{labels: catalog}
	cache := NewCache(time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		got, err := cache.Labels(ctx, api, acct())
		if err != nil {
			t.Fatalf("Labels: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("Labels = %+v", got)
		}
	}
	if api.calls != 1 {
		t.Fatalf("api calls = %d, want 1", api.calls)
	}
}

func TestLabelsServesStaleOnRefreshFailure(t *testing.T) {
	api := &fakeLabelAPI{labels: catalog}
	cache := NewCache(time.Nanosecond)
	ctx := context.Background()

	if _, err := cache.Labels(ctx, api, acct()); err != nil {
		t.Fatalf("Labels: %v", err)
	}
	time.Sleep(time.Millisecond)

	api.err = errors.New("platform down")
	got, err := cache.Labels(ctx, api, acct())
	if err != nil {
		t.Fatalf("Labels with stale fallback: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("stale Labels = %+v", got)
	}
}

func TestIDsByNames(t *testing.T) {
	api := &fakeLabelAPI{labels: catalog}
	cache := NewCache(time.Hour)

	ids, err := cache.IDsByNames(context.Background(), api, acct(), []string{"vip", "pós venda", "billing-issue", "nope"})
	if err != nil {
		t.Fatalf("IDsByNames: %v", err)
	}
	want := []allway.LabelID{1, 2, 3}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
}

func TestInvalidateForcesRefetch(t *testing.T) {
	api := &fakeLabelAPI{labels: catalog}
	cache := NewCache(time.Hour)
	ctx := context.Background()

	if _, err := cache.Labels(ctx, api, acct()); err != nil {
		t.Fatalf("Labels: %v", err)
	}
	cache.Invalidate(7)
	if _, err := cache.Labels(ctx, api, acct()); err != nil {
		t.Fatalf("Labels: %v", err)
	}
	if api.calls != 2 {
		t.Fatalf("api calls = %d, want 2", api.calls)
	}
}

func TestSlug(t *testing.T) {
	cases := map[string]string{
		"vip":            "vip",
		"Pós Venda":      "pós-venda",
		"billing_issue":  "billing-issue",
		"  Top   Deal  ": "top-deal",
		"already-slug":   "already-slug",
	}
	for in, want := range cases {
		if got := Slug(in); got != want {
			t.Errorf("Slug(%q) = %q, want %q", in, got, want)
		}
	}
}
