package resolve

import (
	"context"
	"testing"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
)

type fakeConversationAPI struct {
	existing  []allway.Conversation
	byContact []allway.Conversation
	byID      map[allway.ConversationID]allway.Conversation

	created      []map[string]any
	createStatus []string
	updated      []map[string]any
	updateErr    error
	nextID       int64
}

func (f *fakeConversationAPI) ListConversations(_ context.Context, _ *allway.Account, _ allway.InboxID, _ allway.ContactID) ([]allway.Conversation, error) {
	return f.existing, nil
}

func (f *fakeConversationAPI) ListConversationsByContact(_ context.Context, _ *allway.Account, _ allway.ContactID) ([]allway.Conversation, error) {
	return f.byContact, nil
}

func (f *fakeConversationAPI) UpdateConversation(_ context.Context, _ *allway.Account, id allway.ConversationID, attrs map[string]any) (allway.Conversation, error) {
	f.updated = append(f.updated, attrs)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	conv := f.byID[id]
	out := make(allway.Conversation, len(conv)+1)
	for k, v := range conv {
		out[k] = v
	}
	out["custom_attributes"] = attrs
	return out, nil
}

func (f *fakeConversationAPI) CreateConversation(_ context.Context, _ *allway.Account, _ allway.ContactID, inboxID allway.InboxID, attrs map[string]any, status string) (allway.Conversation, error) {
	f.created = append(f.created, attrs)
	f.createStatus = append(f.createStatus, status)
	f.nextID++
	conv := allway.Conversation{"id": float64(f.nextID + 100), "inbox_id": float64(inboxID), "status": "open"}
	if len(attrs) > 0 {
		m := make(map[string]any, len(attrs))
		for k, v := range attrs {
			m[k] = v
		}
		conv["custom_attributes"] = m
	}
	return conv, nil
}

func (f *fakeConversationAPI) GetConversation(_ context.Context, _ *allway.Account, id allway.ConversationID) (allway.Conversation, error) {
	return f.byID[id], nil
}

func TestResolveForceNewAlwaysCreates(t *testing.T) {
	api := &fakeConversationAPI{
		existing: []allway.Conversation{{"id": float64(5), "status": "open"}},
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, ForceNewPolicy(), nil, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.ID() == 5 {
		t.Fatal("force-new reused an existing conversation")
	}
	if len(api.created) != 1 {
		t.Fatalf("creates = %d, want 1", len(api.created))
	}
}

func TestResolveReusePicksMostRecent(t *testing.T) {
	api := &fakeConversationAPI{
		existing: []allway.Conversation{
			{"id": float64(9), "status": "resolved"},
			{"id": float64(5), "status": "open"},
		},
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, ReusePolicy(), nil, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The listing comes back newest first; reuse takes the head regardless of
	// status.
	if conv.ID() != 9 {
		t.Fatalf("conversation id = %d, want 9", conv.ID())
	}
	if len(api.created) != 0 {
		t.Fatal("reuse created a conversation despite existing ones")
	}
}

func TestResolveDefaultMatchesAttributesExactly(t *testing.T) {
	api := &fakeConversationAPI{
		existing: []allway.Conversation{
			{"id": float64(5), "custom_attributes": map[string]any{"order_id": float64(99), "origin": "checkout"}},
			{"id": float64(4), "custom_attributes": map[string]any{"order_id": float64(99)}},
		},
	}
	resolver := NewConversationResolver(api)

	// Exact match, with loose number equality across int and float64.
	conv, err := resolver.Resolve(context.Background(), testAcct(), 12, 3, DefaultPolicy(), map[string]any{"order_id": 99}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.ID() != 4 {
		t.Fatalf("conversation id = %d, want 4", conv.ID())
	}

	// A superset of the wanted attributes is not a match; a new conversation
	// is created instead.
	conv, err = resolver.Resolve(context.Background(), testAcct(), 12, 3, DefaultPolicy(), map[string]any{"origin": "checkout"}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.ID() == 5 || conv.ID() == 4 {
		t.Fatalf("conversation id = %d, want a new one", conv.ID())
	}
	if len(api.created) != 1 {
		t.Fatalf("creates = %d, want 1", len(api.created))
	}
}

func TestResolveSpecificFallsBackWhenMissing(t *testing.T) {
	api := &fakeConversationAPI{
		existing: []allway.Conversation{{"id": float64(5)}},
		byID:     map[allway.ConversationID]allway.Conversation{},
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, SpecificConversation(999), nil, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// 999 is gone; the default policy matches the attribute-less existing
	// conversation.
	if conv.ID() != 5 {
		t.Fatalf("conversation id = %d, want 5", conv.ID())
	}
}

func TestResolveSpecificReturnsTarget(t *testing.T) {
	target := allway.Conversation{"id": float64(7), "status": "resolved"}
	api := &fakeConversationAPI{
		byID: map[allway.ConversationID]allway.Conversation{7: target},
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, SpecificConversation(7), nil, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.ID() != 7 {
		t.Fatalf("conversation id = %d, want 7", conv.ID())
	}
}

func TestResolveSpecificRefreshesAttributes(t *testing.T) {
	target := allway.Conversation{"id": float64(7), "custom_attributes": map[string]any{"old": "x"}}
	api := &fakeConversationAPI{
		byID: map[allway.ConversationID]allway.Conversation{7: target},
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, SpecificConversation(7), map[string]any{"campaign": "spring"}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.CustomAttributes()["campaign"] != "spring" {
		t.Fatalf("attributes were not refreshed: %+v", conv.CustomAttributes())
	}
	if len(api.updated) != 1 {
		t.Fatalf("updates = %d, want 1", len(api.updated))
	}
}

func TestResolveSpecificUpdateFailureReturnsOriginal(t *testing.T) {
	target := allway.Conversation{"id": float64(7), "custom_attributes": map[string]any{"old": "x"}}
	api := &fakeConversationAPI{
		byID:      map[allway.ConversationID]allway.Conversation{7: target},
		updateErr: context.DeadlineExceeded,
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, SpecificConversation(7), map[string]any{"campaign": "spring"}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.CustomAttributes()["old"] != "x" {
		t.Fatalf("failed update should leave the conversation untouched: %+v", conv)
	}
}

func TestResolveDefaultSecondPassByContact(t *testing.T) {
	// Not in the inbox-scoped listing, but present in the contact-wide
	// listing on the same inbox.
	older := allway.Conversation{
		"id":                float64(2),
		"inbox_id":          float64(3),
		"custom_attributes": map[string]any{"campaign": "spring"},
	}
	otherInbox := allway.Conversation{
		"id":                float64(8),
		"inbox_id":          float64(9),
		"custom_attributes": map[string]any{"campaign": "spring"},
	}
	api := &fakeConversationAPI{
		byContact: []allway.Conversation{otherInbox, older},
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, DefaultPolicy(), map[string]any{"campaign": "spring"}, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.ID() != 2 {
		t.Fatalf("conversation id = %d, want 2 (same inbox only)", conv.ID())
	}
	if len(api.created) != 0 {
		t.Fatal("second pass should have avoided a create")
	}
}

func TestResolveDefaultNoAttrsReusesMostRecent(t *testing.T) {
	api := &fakeConversationAPI{
		existing: []allway.Conversation{
			{"id": float64(9), "custom_attributes": map[string]any{"campaign": "old"}},
			{"id": float64(5)},
		},
	}

	conv, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, DefaultPolicy(), nil, "")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if conv.ID() != 9 {
		t.Fatalf("conversation id = %d, want the most recent (9)", conv.ID())
	}
}

func TestResolvePassesStatusToCreate(t *testing.T) {
	api := &fakeConversationAPI{}
	_, err := NewConversationResolver(api).Resolve(context.Background(), testAcct(), 12, 3, ForceNewPolicy(), nil, "pending")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(api.createStatus) != 1 || api.createStatus[0] != "pending" {
		t.Fatalf("create status = %v, want [pending]", api.createStatus)
	}
}
