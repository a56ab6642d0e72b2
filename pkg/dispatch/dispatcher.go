// Package dispatch orchestrates message delivery: inbox lookup, contact and
// conversation resolution, the remote send, and the delivery log. Every
// attempt that gets past inbox resolution leaves exactly one log entry,
// success or failure.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
	"github.com/AllWayChat/chat-plugin/pkg/identifier"
	"github.com/AllWayChat/chat-plugin/pkg/logger"
	"github.com/AllWayChat/chat-plugin/pkg/logsink"
	"github.com/AllWayChat/chat-plugin/pkg/resolve"
)

const component = "dispatcher"

// Attachment caption defaults, matching what agents see in the timeline when
// no caption is given.
const (
	defaultImageCaption    = "Imagem"
	defaultDocumentCaption = "Arquivo"
)

var (
	// ErrInvalidIdentifier means the destination is neither a usable email
	// nor a usable phone number. Nothing is logged for these.
	ErrInvalidIdentifier = errors.New("invalid contact identifier")
	// ErrInboxNotFound means the inbox does not exist on the account.
	// Nothing is logged for these either: without an inbox there is no
	// delivery attempt to account for.
	ErrInboxNotFound = errors.New("inbox not found")
	// ErrEmptyMediaURL means an attachment send had no media URL.
	ErrEmptyMediaURL = errors.New("media URL is required")
)

// RemoteAPI is the slice of the platform client the dispatcher needs beyond
// what the resolvers already cover.
type RemoteAPI interface {
	GetInbox(ctx context.Context, acc *allway.Account, inboxID allway.InboxID) (*allway.Inbox, error)
	SendTextMessage(ctx context.Context, acc *allway.Account, conversationID allway.ConversationID, msg allway.TextMessage) (*allway.SendResult, error)
	SendAttachmentMessage(ctx context.Context, acc *allway.Account, conversationID allway.ConversationID, content string, file io.Reader, filename string) (*allway.SendResult, error)
}

type contactResolver interface {
	Resolve(ctx context.Context, acc *allway.Account, input resolve.ContactInput) (allway.Contact, error)
}

type conversationResolver interface {
	Resolve(ctx context.Context, acc *allway.Account, contactID allway.ContactID, inboxID allway.InboxID, policy resolve.Policy, attrs map[string]any, status string) (allway.Conversation, error)
}

// SendOptions carries the optional knobs of a dispatch.
type SendOptions struct {
	ContactName            string
	ContactAttributes      map[string]any
	AdditionalAttributes   map[string]any
	ConversationAttributes map[string]any
	Policy                 resolve.Policy
	ConversationStatus     string
}

// Receipt describes a successful delivery.
type Receipt struct {
	ContactID      allway.ContactID
	ConversationID allway.ConversationID
	MessageID      allway.MessageID
}

// Dispatcher wires the client, resolvers, media fetcher and delivery log
// together.
type Dispatcher struct {
	api           RemoteAPI
	contacts      contactResolver
	conversations conversationResolver
	media         MediaFetcher
	sink          logsink.Sink
}

// New creates a dispatcher. sink may be nil when delivery logging is
// disabled.
func New(api RemoteAPI, contacts contactResolver, conversations conversationResolver, media MediaFetcher, sink logsink.Sink) *Dispatcher {
	return &Dispatcher{
		api:           api,
		contacts:      contacts,
		conversations: conversations,
		media:         media,
		sink:          sink,
	}
}

// NewWithClient creates a dispatcher with the default resolvers and media
// fetcher on top of one platform client.
func NewWithClient(client *allway.Client, sink logsink.Sink) *Dispatcher {
	return New(
		client,
		resolve.NewContactResolver(client),
		resolve.NewConversationResolver(client),
		NewHTTPMediaFetcher(),
		sink,
	)
}

// SendText delivers a text message to the identifier through the inbox.
func (d *Dispatcher) SendText(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, to, content string, opts SendOptions) (*Receipt, error) {
	if !identifier.Validate(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, to)
	}

	inbox, err := d.resolveInbox(ctx, acc, inboxID)
	if err != nil {
		return nil, err
	}

	entry := logsink.NewEntry(int64(acc.AccountID), identifier.Normalize(to), content)
	contact, conv, err := d.resolveTargets(ctx, acc, inbox, to, opts, &entry)
	if err != nil {
		d.record(ctx, entry)
		return nil, err
	}

	res, err := d.api.SendTextMessage(ctx, acc, conv.ID(), allway.OutgoingText(content))
	return d.finish(ctx, entry, contact, conv, res, err)
}

// SendImage downloads the image at mediaURL and delivers it as an attachment.
// An empty caption becomes "Imagem".
func (d *Dispatcher) SendImage(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, to, mediaURL, caption string, opts SendOptions) (*Receipt, error) {
	if caption == "" {
		caption = defaultImageCaption
	}
	return d.sendAttachment(ctx, acc, inboxID, to, mediaURL, caption, opts)
}

// SendDocument downloads the file at mediaURL and delivers it as an
// attachment. An empty caption becomes "Arquivo".
func (d *Dispatcher) SendDocument(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, to, mediaURL, caption string, opts SendOptions) (*Receipt, error) {
	if caption == "" {
		caption = defaultDocumentCaption
	}
	return d.sendAttachment(ctx, acc, inboxID, to, mediaURL, caption, opts)
}

// SendToExistingConversation delivers a text reusing the contact's most
// recent conversation when one exists.
func (d *Dispatcher) SendToExistingConversation(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, to, content string, opts SendOptions) (*Receipt, error) {
	opts.Policy = resolve.ReusePolicy()
	return d.SendText(ctx, acc, inboxID, to, content, opts)
}

// SendAlwaysNewConversation delivers a text into a freshly created
// conversation.
func (d *Dispatcher) SendAlwaysNewConversation(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, to, content string, opts SendOptions) (*Receipt, error) {
	opts.Policy = resolve.ForceNewPolicy()
	return d.SendText(ctx, acc, inboxID, to, content, opts)
}

// SendToSpecificConversation delivers a text into the given conversation,
// falling back to the default policy when it no longer exists.
func (d *Dispatcher) SendToSpecificConversation(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, conversationID allway.ConversationID, to, content string, opts SendOptions) (*Receipt, error) {
	opts.Policy = resolve.SpecificConversation(conversationID)
	return d.SendText(ctx, acc, inboxID, to, content, opts)
}

func (d *Dispatcher) sendAttachment(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, to, mediaURL, caption string, opts SendOptions) (*Receipt, error) {
	if !identifier.Validate(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIdentifier, to)
	}
	if mediaURL == "" {
		return nil, ErrEmptyMediaURL
	}

	inbox, err := d.resolveInbox(ctx, acc, inboxID)
	if err != nil {
		return nil, err
	}

	filename := filenameFromURL(mediaURL, "attachment")
	entry := logsink.NewEntry(int64(acc.AccountID), identifier.Normalize(to), caption+" (Anexo: "+filename+")")

	localPath, cleanup, err := d.media.Fetch(ctx, mediaURL)
	if err != nil {
		entry.Error = err.Error()
		d.record(ctx, entry)
		return nil, err
	}
	defer cleanup()

	contact, conv, err := d.resolveTargets(ctx, acc, inbox, to, opts, &entry)
	if err != nil {
		d.record(ctx, entry)
		return nil, err
	}

	file, err := os.Open(localPath)
	if err != nil {
		entry.Error = err.Error()
		d.record(ctx, entry)
		return nil, fmt.Errorf("opening downloaded media: %w", err)
	}
	defer file.Close()

	res, err := d.api.SendAttachmentMessage(ctx, acc, conv.ID(), caption, file, filename)
	return d.finish(ctx, entry, contact, conv, res, err)
}

// resolveInbox fetches the inbox. Failure here is fatal and unlogged: with no
// inbox there is no delivery attempt to account for.
func (d *Dispatcher) resolveInbox(ctx context.Context, acc *allway.Account, inboxID allway.InboxID) (*allway.Inbox, error) {
	inbox, err := d.api.GetInbox(ctx, acc, inboxID)
	if err != nil {
		return nil, fmt.Errorf("fetching inbox %d: %w", inboxID, err)
	}
	if inbox == nil {
		return nil, fmt.Errorf("%w: %d", ErrInboxNotFound, inboxID)
	}
	return inbox, nil
}

// resolveTargets resolves the contact and conversation, stamping the entry's
// error on failure so the caller can record it.
func (d *Dispatcher) resolveTargets(ctx context.Context, acc *allway.Account, inbox *allway.Inbox, to string, opts SendOptions, entry *logsink.Entry) (allway.Contact, allway.Conversation, error) {
	contact, err := d.contacts.Resolve(ctx, acc, resolve.ContactInput{
		Identifier:           to,
		Name:                 opts.ContactName,
		CustomAttributes:     opts.ContactAttributes,
		AdditionalAttributes: opts.AdditionalAttributes,
		Inbox:                inbox,
	})
	if err != nil {
		entry.Error = err.Error()
		return nil, nil, fmt.Errorf("resolving contact: %w", err)
	}

	conv, err := d.conversations.Resolve(ctx, acc, contact.ID(), inbox.ID, opts.Policy, opts.ConversationAttributes, opts.ConversationStatus)
	if err != nil {
		entry.Error = err.Error()
		return nil, nil, fmt.Errorf("resolving conversation: %w", err)
	}

	convID := int64(conv.ID())
	entry.ConversationID = &convID
	return contact, conv, nil
}

// finish stamps the send outcome on the entry, records it and builds the
// receipt.
func (d *Dispatcher) finish(ctx context.Context, entry logsink.Entry, contact allway.Contact, conv allway.Conversation, res *allway.SendResult, sendErr error) (*Receipt, error) {
	if sendErr != nil {
		entry.Error = sendErr.Error()
		d.record(ctx, entry)
		return nil, fmt.Errorf("sending message: %w", sendErr)
	}

	msgID := int64(res.ID)
	entry.MessageID = &msgID
	d.record(ctx, entry)

	logger.InfoCF(component, "Message delivered", map[string]interface{}{
		"to":              entry.ToContact,
		"conversation_id": conv.ID(),
		"message_id":      res.ID,
	})
	return &Receipt{
		ContactID:      contact.ID(),
		ConversationID: conv.ID(),
		MessageID:      res.ID,
	}, nil
}

// record writes the entry to the sink. A sink failure never fails the
// dispatch; the message outcome is already decided by then.
func (d *Dispatcher) record(ctx context.Context, entry logsink.Entry) {
	if d.sink == nil {
		return
	}
	if err := d.sink.Record(ctx, entry); err != nil {
		logger.WarnCF(component, "Could not record delivery log", map[string]interface{}{
			"entry_id": entry.ID,
			"error":    err.Error(),
		})
	}
}
