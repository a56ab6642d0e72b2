package allway

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Typed identifiers for the platform's numeric ids.
type (
	AccountID      int64
	ContactID      int64
	ConversationID int64
	InboxID        int64
	MessageID      int64
	LabelID        int64
)

// Account is the per-call account context: where the platform lives and how
// to authenticate against it. The SDK never mutates or persists it.
type Account struct {
	Name      string    `json:"name"`
	ServerURL string    `json:"server_url"`
	Token     string    `json:"token"`
	AccountID AccountID `json:"account_id"`
	Active    bool      `json:"is_active"`
}

// APIURL is the private (agent) API root.
func (a *Account) APIURL() string {
	return strings.TrimRight(a.ServerURL, "/") + "/api/v1"
}

// PublicAPIURL is the public (inbox identifier) API root.
func (a *Account) PublicAPIURL() string {
	return strings.TrimRight(a.ServerURL, "/") + "/public/api/v1"
}

// ReportsAPIURL is the v2 root used only by the reports endpoints.
func (a *Account) ReportsAPIURL() string {
	return strings.TrimRight(a.ServerURL, "/") + "/api/v2"
}

// Inbox is a platform channel (one WhatsApp line, one widget, ...).
// InboxIdentifier is only present for inboxes that expose the public API.
type Inbox struct {
	ID              InboxID `json:"id"`
	Name            string  `json:"name"`
	ChannelType     string  `json:"channel_type"`
	InboxIdentifier string  `json:"inbox_identifier,omitempty"`
}

// Contact is a remote contact record. The platform owns its shape; the SDK
// relies on a handful of well-known keys and keeps everything else opaque.
type Contact map[string]any

func (c Contact) ID() ContactID         { return ContactID(asInt64(c["id"])) }
func (c Contact) Name() string          { return asString(c["name"]) }
func (c Contact) Email() string         { return asString(c["email"]) }
func (c Contact) PhoneNumber() string   { return asString(c["phone_number"]) }
func (c Contact) SourceIdentifier() string { return asString(c["identifier"]) }

func (c Contact) CustomAttributes() map[string]any {
	if m, ok := c["custom_attributes"].(map[string]any); ok {
		return m
	}
	return nil
}

// Merge returns a copy of the contact with the given fields applied on top.
// The original record is left untouched.
func (c Contact) Merge(fields map[string]any) Contact {
	out := make(Contact, len(c)+len(fields))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Conversation is a remote conversation record, opaque like Contact.
type Conversation map[string]any

func (v Conversation) ID() ConversationID { return ConversationID(asInt64(v["id"])) }
func (v Conversation) InboxID() InboxID   { return InboxID(asInt64(v["inbox_id"])) }
func (v Conversation) Status() string     { return asString(v["status"]) }

func (v Conversation) CustomAttributes() map[string]any {
	if m, ok := v["custom_attributes"].(map[string]any); ok {
		return m
	}
	return nil
}

// LabelIDs extracts the ids of the labels attached to the conversation, for
// payloads where labels come as objects.
func (v Conversation) LabelIDs() []LabelID {
	raw, ok := v["labels"].([]any)
	if !ok {
		return nil
	}
	var ids []LabelID
	for _, l := range raw {
		if m, ok := l.(map[string]any); ok {
			ids = append(ids, LabelID(asInt64(m["id"])))
		}
	}
	return ids
}

// Label is an account-level conversation label.
type Label struct {
	ID          LabelID `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
}

// ContactPayload is the body for contact create and update calls. Empty
// fields are omitted so partial updates stay partial.
type ContactPayload struct {
	Name                 string         `json:"name,omitempty"`
	Email                string         `json:"email,omitempty"`
	PhoneNumber          string         `json:"phone_number,omitempty"`
	Identifier           string         `json:"identifier,omitempty"`
	InboxID              InboxID        `json:"inbox_id,omitempty"`
	CustomAttributes     map[string]any `json:"custom_attributes,omitempty"`
	AdditionalAttributes map[string]any `json:"additional_attributes,omitempty"`
}

// TextMessage is the JSON body of an outgoing text message.
type TextMessage struct {
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	Private     bool   `json:"private"`
}

// OutgoingText builds the standard outgoing, non-private text message body.
func OutgoingText(content string) TextMessage {
	return TextMessage{Content: content, MessageType: "outgoing", Private: false}
}

// SendResult is the platform's answer to a message send.
type SendResult struct {
	ID  MessageID
	Raw map[string]any
}

// LabelMode selects how SetConversationLabels treats existing labels.
type LabelMode string

const (
	LabelModeReplace LabelMode = "replace"
	LabelModeAppend  LabelMode = "append"
)

// AttributeModel selects which custom attribute definitions to list.
type AttributeModel int

const (
	AttributeModelConversation AttributeModel = 0
	AttributeModelContact      AttributeModel = 1
)

// ValidConversationStatus reports whether s is a status the platform accepts.
func ValidConversationStatus(s string) bool {
	switch s {
	case "open", "pending", "resolved":
		return true
	}
	return false
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
