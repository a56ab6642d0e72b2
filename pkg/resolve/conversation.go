package resolve

import (
	"context"
	"fmt"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
	"github.com/AllWayChat/chat-plugin/pkg/logger"
)

const conversationComponent = "conversation-resolver"

// ConversationAPI is the slice of the platform client the resolver needs.
type ConversationAPI interface {
	ListConversations(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, contactID allway.ContactID) ([]allway.Conversation, error)
	ListConversationsByContact(ctx context.Context, acc *allway.Account, contactID allway.ContactID) ([]allway.Conversation, error)
	CreateConversation(ctx context.Context, acc *allway.Account, contactID allway.ContactID, inboxID allway.InboxID, attrs map[string]any, status string) (allway.Conversation, error)
	GetConversation(ctx context.Context, acc *allway.Account, id allway.ConversationID) (allway.Conversation, error)
	UpdateConversation(ctx context.Context, acc *allway.Account, id allway.ConversationID, attrs map[string]any) (allway.Conversation, error)
}

// PolicyKind selects how a conversation is picked for a dispatch.
type PolicyKind int

const (
	// PolicyDefault reuses a conversation whose custom attributes exactly
	// match the requested ones, otherwise creates a new conversation.
	PolicyDefault PolicyKind = iota
	// PolicyReuse always reuses the most recent conversation when one exists.
	PolicyReuse
	// PolicyForceNew always creates a new conversation.
	PolicyForceNew
	// PolicySpecific targets one conversation by id, falling back to the
	// default behavior when it no longer exists.
	PolicySpecific
)

// Policy is a conversation selection policy.
type Policy struct {
	Kind           PolicyKind
	ConversationID allway.ConversationID
}

func DefaultPolicy() Policy  { return Policy{Kind: PolicyDefault} }
func ReusePolicy() Policy    { return Policy{Kind: PolicyReuse} }
func ForceNewPolicy() Policy { return Policy{Kind: PolicyForceNew} }

// SpecificConversation targets an existing conversation by id.
func SpecificConversation(id allway.ConversationID) Policy {
	return Policy{Kind: PolicySpecific, ConversationID: id}
}

// ConversationResolver picks or creates the conversation a message goes into.
type ConversationResolver struct {
	api ConversationAPI
}

// NewConversationResolver creates a resolver on top of the given API surface.
func NewConversationResolver(api ConversationAPI) *ConversationResolver {
	return &ConversationResolver{api: api}
}

// Resolve returns the conversation to deliver into, per the policy. attrs are
// the custom attributes a newly created conversation gets, and the match key
// for the default policy. status only applies to newly created conversations.
func (r *ConversationResolver) Resolve(ctx context.Context, acc *allway.Account, contactID allway.ContactID, inboxID allway.InboxID, policy Policy, attrs map[string]any, status string) (allway.Conversation, error) {
	switch policy.Kind {
	case PolicySpecific:
		conv, err := r.api.GetConversation(ctx, acc, policy.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("fetching conversation %d: %w", policy.ConversationID, err)
		}
		if conv != nil {
			return r.refresh(ctx, acc, conv, attrs), nil
		}
		logger.WarnCF(conversationComponent, "Requested conversation not found, using default policy", map[string]interface{}{
			"conversation_id": policy.ConversationID,
		})
		return r.Resolve(ctx, acc, contactID, inboxID, DefaultPolicy(), attrs, status)

	case PolicyForceNew:
		return r.create(ctx, acc, contactID, inboxID, attrs, status)

	case PolicyReuse:
		return r.reuseMostRecent(ctx, acc, contactID, inboxID, attrs, status)

	default:
		// With no attributes to match there is nothing to distinguish
		// conversations by; the most recent one wins.
		if len(attrs) == 0 {
			return r.reuseMostRecent(ctx, acc, contactID, inboxID, attrs, status)
		}

		conversations, err := r.list(ctx, acc, inboxID, contactID)
		if err != nil {
			return nil, err
		}
		for _, conv := range conversations {
			if CompareCustomAttributes(conv.CustomAttributes(), attrs) {
				return conv, nil
			}
		}

		// Second pass over the contact's conversations across all inboxes,
		// restricted back to this inbox: the inbox-scoped listing paginates
		// and can miss older conversations.
		all, err := r.api.ListConversationsByContact(ctx, acc, contactID)
		if err != nil {
			return nil, fmt.Errorf("listing contact conversations: %w", err)
		}
		for _, conv := range all {
			if conv.InboxID() != inboxID {
				continue
			}
			if CompareCustomAttributes(conv.CustomAttributes(), attrs) {
				return conv, nil
			}
		}

		return r.create(ctx, acc, contactID, inboxID, attrs, status)
	}
}

func (r *ConversationResolver) reuseMostRecent(ctx context.Context, acc *allway.Account, contactID allway.ContactID, inboxID allway.InboxID, attrs map[string]any, status string) (allway.Conversation, error) {
	conversations, err := r.list(ctx, acc, inboxID, contactID)
	if err != nil {
		return nil, err
	}
	if len(conversations) > 0 {
		return conversations[0], nil
	}
	return r.create(ctx, acc, contactID, inboxID, attrs, status)
}

// refresh pushes the requested attributes onto a specifically targeted
// conversation, best effort: on failure the conversation is returned as it
// was fetched.
func (r *ConversationResolver) refresh(ctx context.Context, acc *allway.Account, conv allway.Conversation, attrs map[string]any) allway.Conversation {
	if len(attrs) == 0 {
		return conv
	}
	updated, err := r.api.UpdateConversation(ctx, acc, conv.ID(), attrs)
	if err != nil {
		logger.WarnCF(conversationComponent, "Could not update conversation attributes", map[string]interface{}{
			"conversation_id": conv.ID(),
			"error":           err.Error(),
		})
		return conv
	}
	return updated
}

func (r *ConversationResolver) list(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, contactID allway.ContactID) ([]allway.Conversation, error) {
	conversations, err := r.api.ListConversations(ctx, acc, inboxID, contactID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return conversations, nil
}

func (r *ConversationResolver) create(ctx context.Context, acc *allway.Account, contactID allway.ContactID, inboxID allway.InboxID, attrs map[string]any, status string) (allway.Conversation, error) {
	conv, err := r.api.CreateConversation(ctx, acc, contactID, inboxID, attrs, status)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv, nil
}
