// Package allway is a typed client for the AllWay Chat (Chatwoot-compatible)
// REST API. It covers only the surface the SDK needs: inboxes, contacts,
// conversations, messages, labels and reports.
package allway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/AllWayChat/chat-plugin/pkg/logger"
)

const (
	component      = "allway-api"
	userAgent      = "allway-chat-plugin/1.0"
	defaultTimeout = 30 * time.Second

	// contactsPerPage bounds the fallback full-listing scan.
	contactsPerPage      = 50
	conversationsPerPage = 50
	contactConversations = 100
)

// Client talks to one or more platform installations; the account context is
// passed per call, so a single Client can serve every account.
type Client struct {
	http *resty.Client
}

// Option customizes the underlying HTTP client.
type Option func(*resty.Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(rc *resty.Client) { rc.SetTimeout(d) }
}

// WithHTTPClient swaps the transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(rc *resty.Client) { rc.SetTransport(hc.Transport) }
}

// New creates a platform client.
func New(opts ...Option) *Client {
	rc := resty.New().
		SetTimeout(defaultTimeout).
		SetHeader("User-Agent", userAgent)
	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

func privateHeaders(acc *Account) map[string]string {
	return map[string]string{"api_access_token": acc.Token}
}

func publicHeaders(acc *Account) map[string]string {
	return map[string]string{"Api-Key": acc.Token}
}

func itoa[T ~int64](v T) string {
	return strconv.FormatInt(int64(v), 10)
}

// accountURL is the account-scoped root every private (agent) endpoint lives
// under: {server}/api/v1/accounts/{account_id}. Only the public inbox API and
// the token check sit outside it.
func accountURL(acc *Account) string {
	return acc.APIURL() + "/accounts/" + itoa(acc.AccountID)
}

func (c *Client) do(ctx context.Context, method, url string, headers, query map[string]string, body any) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if len(headers) > 0 {
		req.SetHeaders(headers)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	if resp.IsError() {
		logger.DebugCF(component, "Request failed", map[string]interface{}{
			"method": method,
			"url":    url,
			"status": resp.StatusCode(),
		})
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Method:     method,
			URL:        url,
			Body:       string(resp.Body()),
		}
	}
	return resp.Body(), nil
}

// ---------------------------------------------------------------------------
// Account / inboxes
// ---------------------------------------------------------------------------

// TestConnection checks that the account id and token resolve to the expected
// account on the platform.
func (c *Client) TestConnection(ctx context.Context, acc *Account) bool {
	body, err := c.do(ctx, http.MethodGet, accountURL(acc), privateHeaders(acc), nil, nil)
	if err != nil {
		return false
	}
	return gjson.GetBytes(body, "id").Int() == int64(acc.AccountID)
}

// GetInbox fetches one inbox. A missing inbox returns (nil, nil).
func (c *Client) GetInbox(ctx context.Context, acc *Account, inboxID InboxID) (*Inbox, error) {
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/inboxes/"+itoa(inboxID), privateHeaders(acc), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var inbox Inbox
	if err := json.Unmarshal(body, &inbox); err != nil {
		return nil, fmt.Errorf("decoding inbox: %w", err)
	}
	if inbox.ID == 0 {
		return nil, nil
	}
	return &inbox, nil
}

// GetInboxes lists the account's inboxes.
func (c *Client) GetInboxes(ctx context.Context, acc *Account) ([]Inbox, error) {
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/inboxes", privateHeaders(acc), nil, nil)
	if err != nil {
		return nil, err
	}

	res := gjson.GetBytes(body, "payload")
	if !res.IsArray() {
		return nil, nil
	}
	var inboxes []Inbox
	if err := json.Unmarshal([]byte(res.Raw), &inboxes); err != nil {
		return nil, fmt.Errorf("decoding inboxes: %w", err)
	}
	return inboxes, nil
}

// ---------------------------------------------------------------------------
// Contacts
// ---------------------------------------------------------------------------

// FilterContacts runs one exact-match filter query against a contact
// attribute (email, phone_number, ...).
func (c *Client) FilterContacts(ctx context.Context, acc *Account, attributeKey, value string) ([]Contact, error) {
	filter := map[string]any{
		"payload": []map[string]any{
			{
				"attribute_key":   attributeKey,
				"filter_operator": "equal_to",
				"values":          []string{value},
				"query_operator":  nil,
			},
		},
	}

	body, err := c.do(ctx, http.MethodPost, accountURL(acc)+"/contacts/filter", privateHeaders(acc), nil, filter)
	if err != nil {
		return nil, err
	}
	return decodeContactList(body)
}

// ListContacts returns one page of the account's contacts, for the fallback
// suffix scan.
func (c *Client) ListContacts(ctx context.Context, acc *Account, page int) ([]Contact, error) {
	query := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(contactsPerPage),
	}
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/contacts", privateHeaders(acc), query, nil)
	if err != nil {
		return nil, err
	}
	return decodeContactList(body)
}

// CreateContactPublic creates a contact through the public API of an inbox
// that exposes an inbox identifier.
func (c *Client) CreateContactPublic(ctx context.Context, acc *Account, inboxIdentifier string, payload ContactPayload) (Contact, error) {
	url := acc.PublicAPIURL() + "/inboxes/" + inboxIdentifier + "/contacts"
	body, err := c.do(ctx, http.MethodPost, url, publicHeaders(acc), nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeContact(body)
}

// CreateContactPrivate creates a contact through the private API, attached to
// the given inbox.
func (c *Client) CreateContactPrivate(ctx context.Context, acc *Account, inboxID InboxID, payload ContactPayload) (Contact, error) {
	payload.InboxID = inboxID
	body, err := c.do(ctx, http.MethodPost, accountURL(acc)+"/contacts", privateHeaders(acc), nil, payload)
	if err != nil {
		return nil, err
	}
	return decodeContact(body)
}

// UpdateContactPublic patches a contact through the public API, addressed by
// its source identifier (email, phone or platform identifier).
func (c *Client) UpdateContactPublic(ctx context.Context, acc *Account, inboxIdentifier, sourceID string, fields map[string]any) error {
	url := acc.PublicAPIURL() + "/inboxes/" + inboxIdentifier + "/contacts/" + sourceID
	_, err := c.do(ctx, http.MethodPatch, url, publicHeaders(acc), nil, fields)
	return err
}

// UpdateContactPrivate updates a contact through the private API.
func (c *Client) UpdateContactPrivate(ctx context.Context, acc *Account, contactID ContactID, fields map[string]any) error {
	url := accountURL(acc) + "/contacts/" + itoa(contactID)
	_, err := c.do(ctx, http.MethodPut, url, privateHeaders(acc), nil, fields)
	return err
}

// ---------------------------------------------------------------------------
// Conversations
// ---------------------------------------------------------------------------

// ListConversations returns the latest conversations for an inbox + contact
// pair, newest first.
func (c *Client) ListConversations(ctx context.Context, acc *Account, inboxID InboxID, contactID ContactID) ([]Conversation, error) {
	query := map[string]string{
		"inbox_id":   itoa(inboxID),
		"contact_id": itoa(contactID),
		"sort":       "latest",
		"per_page":   strconv.Itoa(conversationsPerPage),
	}
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/conversations", privateHeaders(acc), query, nil)
	if err != nil {
		return nil, err
	}
	return decodeConversationList(body, "data.payload")
}

// ListConversationsByContact returns the contact's conversations across all
// inboxes, newest first.
func (c *Client) ListConversationsByContact(ctx context.Context, acc *Account, contactID ContactID) ([]Conversation, error) {
	query := map[string]string{
		"contact_id": itoa(contactID),
		"sort":       "latest",
		"per_page":   strconv.Itoa(contactConversations),
	}
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/conversations", privateHeaders(acc), query, nil)
	if err != nil {
		return nil, err
	}
	return decodeConversationList(body, "data.payload")
}

// ListConversationsCreated returns one page of conversations created inside
// the given window, used by the label-intersection report.
func (c *Client) ListConversationsCreated(ctx context.Context, acc *Account, page int, since, until time.Time) ([]Conversation, error) {
	query := map[string]string{
		"page":           strconv.Itoa(page),
		"per_page":       "25",
		"created_after":  since.Format("2006-01-02 15:04:05"),
		"created_before": until.Format("2006-01-02 15:04:05"),
	}
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/conversations", privateHeaders(acc), query, nil)
	if err != nil {
		return nil, err
	}
	return decodeConversationList(body, "data.conversations")
}

// CreateConversation opens a new conversation for a contact on an inbox.
// An invalid status is dropped rather than rejected.
func (c *Client) CreateConversation(ctx context.Context, acc *Account, contactID ContactID, inboxID InboxID, attrs map[string]any, status string) (Conversation, error) {
	payload := map[string]any{
		"contact_id": contactID,
		"inbox_id":   inboxID,
	}
	if len(attrs) > 0 {
		payload["custom_attributes"] = attrs
	}
	if ValidConversationStatus(status) {
		payload["status"] = status
	}

	body, err := c.do(ctx, http.MethodPost, accountURL(acc)+"/conversations", privateHeaders(acc), nil, payload)
	if err != nil {
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}
	return conv, nil
}

// GetConversation fetches one conversation. A missing id returns (nil, nil).
func (c *Client) GetConversation(ctx context.Context, acc *Account, id ConversationID) (Conversation, error) {
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/conversations/"+itoa(id), privateHeaders(acc), nil, nil)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}
	if conv.ID() == 0 {
		return nil, nil
	}
	return conv, nil
}

// UpdateConversation patches a conversation's custom attributes.
func (c *Client) UpdateConversation(ctx context.Context, acc *Account, id ConversationID, attrs map[string]any) (Conversation, error) {
	payload := map[string]any{
		"custom_attributes":     attrs,
		"additional_attributes": attrs,
	}
	body, err := c.do(ctx, http.MethodPatch, accountURL(acc)+"/conversations/"+itoa(id), privateHeaders(acc), nil, payload)
	if err != nil {
		return nil, err
	}

	var conv Conversation
	if err := json.Unmarshal(body, &conv); err != nil {
		return nil, fmt.Errorf("decoding conversation: %w", err)
	}
	return conv, nil
}

// ---------------------------------------------------------------------------
// Messages
// ---------------------------------------------------------------------------

// SendTextMessage posts a JSON message into a conversation.
func (c *Client) SendTextMessage(ctx context.Context, acc *Account, conversationID ConversationID, msg TextMessage) (*SendResult, error) {
	url := accountURL(acc) + "/conversations/" + itoa(conversationID) + "/messages"
	body, err := c.do(ctx, http.MethodPost, url, privateHeaders(acc), nil, msg)
	if err != nil {
		return nil, err
	}
	return decodeSendResult(body)
}

// SendAttachmentMessage uploads a file into a conversation as a multipart
// outgoing message.
func (c *Client) SendAttachmentMessage(ctx context.Context, acc *Account, conversationID ConversationID, content string, file io.Reader, filename string) (*SendResult, error) {
	url := accountURL(acc) + "/conversations/" + itoa(conversationID) + "/messages"

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(privateHeaders(acc)).
		SetFormData(map[string]string{
			"content":      content,
			"message_type": "outgoing",
			"private":      "false",
		}).
		SetFileReader("attachments[]", filename, file).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Method:     http.MethodPost,
			URL:        url,
			Body:       string(resp.Body()),
		}
	}
	return decodeSendResult(resp.Body())
}

// ---------------------------------------------------------------------------
// Labels and status
// ---------------------------------------------------------------------------

// GetLabels lists the account's labels.
func (c *Client) GetLabels(ctx context.Context, acc *Account) ([]Label, error) {
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/labels", privateHeaders(acc), nil, nil)
	if err != nil {
		return nil, err
	}

	res := gjson.GetBytes(body, "payload")
	if !res.IsArray() {
		return nil, nil
	}
	var labels []Label
	if err := json.Unmarshal([]byte(res.Raw), &labels); err != nil {
		return nil, fmt.Errorf("decoding labels: %w", err)
	}
	return labels, nil
}

// GetConversationLabels returns the label titles attached to a conversation.
func (c *Client) GetConversationLabels(ctx context.Context, acc *Account, conversationID ConversationID) ([]string, error) {
	url := accountURL(acc) + "/conversations/" + itoa(conversationID) + "/labels"
	body, err := c.do(ctx, http.MethodGet, url, privateHeaders(acc), nil, nil)
	if err != nil {
		return nil, err
	}

	var titles []string
	gjson.GetBytes(body, "payload").ForEach(func(_, v gjson.Result) bool {
		titles = append(titles, v.String())
		return true
	})
	return titles, nil
}

// SetConversationLabels assigns labels to a conversation. Replace mode
// overwrites the current set; append mode merges with it, best effort: when
// the current labels cannot be fetched only the new ones are applied.
func (c *Client) SetConversationLabels(ctx context.Context, acc *Account, conversationID ConversationID, labels []string, mode LabelMode) error {
	if len(labels) == 0 {
		return nil
	}

	final := labels
	if mode == LabelModeAppend {
		current, err := c.GetConversationLabels(ctx, acc, conversationID)
		if err != nil {
			logger.WarnCF(component, "Could not fetch current conversation labels", map[string]interface{}{
				"conversation_id": conversationID,
				"error":           err.Error(),
			})
		} else {
			final = mergeUnique(current, labels)
		}
	}

	url := accountURL(acc) + "/conversations/" + itoa(conversationID) + "/labels"
	_, err := c.do(ctx, http.MethodPost, url, privateHeaders(acc), nil, map[string]any{"labels": final})
	return err
}

// ToggleConversationStatus moves a conversation to open, pending or resolved.
func (c *Client) ToggleConversationStatus(ctx context.Context, acc *Account, conversationID ConversationID, status string) error {
	if !ValidConversationStatus(status) {
		return fmt.Errorf("invalid conversation status %q (want open, pending or resolved)", status)
	}

	url := accountURL(acc) + "/conversations/" + itoa(conversationID) + "/toggle_status"
	_, err := c.do(ctx, http.MethodPost, url, privateHeaders(acc), nil, map[string]any{"status": status})
	return err
}

// GetCustomAttributeDefinitions lists the account's custom attribute
// definitions for contacts or conversations.
func (c *Client) GetCustomAttributeDefinitions(ctx context.Context, acc *Account, model AttributeModel) ([]map[string]any, error) {
	query := map[string]string{"attribute_model": strconv.Itoa(int(model))}
	body, err := c.do(ctx, http.MethodGet, accountURL(acc)+"/custom_attribute_definitions", privateHeaders(acc), query, nil)
	if err != nil {
		return nil, err
	}

	var defs []map[string]any
	if err := json.Unmarshal(body, &defs); err != nil {
		return nil, fmt.Errorf("decoding custom attribute definitions: %w", err)
	}
	return defs, nil
}

// ---------------------------------------------------------------------------
// Decoding helpers
// ---------------------------------------------------------------------------

// The platform wraps list payloads inconsistently: filter answers use
// {"payload": [...]}, conversation listings use {"data": {"payload": [...]}},
// and some deployments return bare arrays.

func decodeContactList(body []byte) ([]Contact, error) {
	res := gjson.GetBytes(body, "payload")
	if !res.Exists() {
		res = gjson.ParseBytes(body)
	}
	if !res.IsArray() {
		return nil, nil
	}
	var contacts []Contact
	if err := json.Unmarshal([]byte(res.Raw), &contacts); err != nil {
		return nil, fmt.Errorf("decoding contacts: %w", err)
	}
	return contacts, nil
}

func decodeContact(body []byte) (Contact, error) {
	for _, path := range []string{"payload.contact", "payload"} {
		if res := gjson.GetBytes(body, path); res.IsObject() {
			var contact Contact
			if err := json.Unmarshal([]byte(res.Raw), &contact); err != nil {
				return nil, fmt.Errorf("decoding contact: %w", err)
			}
			return contact, nil
		}
	}

	var contact Contact
	if err := json.Unmarshal(body, &contact); err != nil {
		return nil, fmt.Errorf("decoding contact: %w", err)
	}
	return contact, nil
}

func decodeConversationList(body []byte, path string) ([]Conversation, error) {
	res := gjson.GetBytes(body, path)
	if !res.IsArray() {
		return nil, nil
	}
	var conversations []Conversation
	if err := json.Unmarshal([]byte(res.Raw), &conversations); err != nil {
		return nil, fmt.Errorf("decoding conversations: %w", err)
	}
	return conversations, nil
}

func decodeSendResult(body []byte) (*SendResult, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding send result: %w", err)
	}
	return &SendResult{
		ID:  MessageID(gjson.GetBytes(body, "id").Int()),
		Raw: raw,
	}, nil
}

func mergeUnique(current, extra []string) []string {
	seen := make(map[string]struct{}, len(current)+len(extra))
	var out []string
	for _, s := range append(append([]string(nil), current...), extra...) {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
