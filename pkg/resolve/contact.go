package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/AllWayChat/chat-plugin/pkg/allway"
	"github.com/AllWayChat/chat-plugin/pkg/identifier"
	"github.com/AllWayChat/chat-plugin/pkg/logger"
	"github.com/AllWayChat/chat-plugin/pkg/phone"
)

const contactComponent = "contact-resolver"

// maxScanPages bounds the fallback suffix scan over the full contact listing.
// Beyond this the contact is treated as new; the platform's filter endpoint
// already covered every realistic spelling by then.
const maxScanPages = 4

// ContactAPI is the slice of the platform client the resolver needs.
type ContactAPI interface {
	FilterContacts(ctx context.Context, acc *allway.Account, attributeKey, value string) ([]allway.Contact, error)
	ListContacts(ctx context.Context, acc *allway.Account, page int) ([]allway.Contact, error)
	CreateContactPublic(ctx context.Context, acc *allway.Account, inboxIdentifier string, payload allway.ContactPayload) (allway.Contact, error)
	CreateContactPrivate(ctx context.Context, acc *allway.Account, inboxID allway.InboxID, payload allway.ContactPayload) (allway.Contact, error)
	UpdateContactPublic(ctx context.Context, acc *allway.Account, inboxIdentifier, sourceID string, fields map[string]any) error
	UpdateContactPrivate(ctx context.Context, acc *allway.Account, contactID allway.ContactID, fields map[string]any) error
}

// ContactInput describes the contact a dispatch wants to reach.
type ContactInput struct {
	Identifier           string
	Name                 string
	CustomAttributes     map[string]any
	AdditionalAttributes map[string]any
	Inbox                *allway.Inbox
}

// ContactResolver finds or creates the platform contact behind an identifier.
type ContactResolver struct {
	api ContactAPI
}

// NewContactResolver creates a resolver on top of the given API surface.
func NewContactResolver(api ContactAPI) *ContactResolver {
	return &ContactResolver{api: api}
}

// Resolve returns the contact for the input's identifier, creating it when no
// existing record matches. A found contact is reconciled with the input's
// name and attributes, best effort: reconciliation failures never fail the
// resolution.
func (r *ContactResolver) Resolve(ctx context.Context, acc *allway.Account, input ContactInput) (allway.Contact, error) {
	if !identifier.Validate(input.Identifier) {
		return nil, fmt.Errorf("invalid contact identifier %q", input.Identifier)
	}
	if input.Inbox == nil {
		return nil, fmt.Errorf("contact resolution requires an inbox")
	}

	found, err := r.search(ctx, acc, input.Identifier)
	if err != nil {
		return nil, err
	}
	if found != nil {
		return r.reconcile(ctx, acc, found, input), nil
	}

	created, err := r.create(ctx, acc, input)
	if err == nil {
		return created, nil
	}

	// A duplicate answer means someone else created the contact between our
	// search and create. Search again instead of failing the dispatch.
	if allway.IsConflict(err) {
		logger.InfoCF(contactComponent, "Create conflicted, re-searching", map[string]interface{}{
			"identifier": input.Identifier,
		})
		found, serr := r.search(ctx, acc, input.Identifier)
		if serr != nil {
			return nil, serr
		}
		if found != nil {
			return r.reconcile(ctx, acc, found, input), nil
		}
	}
	return nil, err
}

// search looks the identifier up without creating anything. It returns
// (nil, nil) when no contact matches.
func (r *ContactResolver) search(ctx context.Context, acc *allway.Account, raw string) (allway.Contact, error) {
	if identifier.Classify(raw) == identifier.KindEmail {
		email := identifier.Normalize(raw)
		contacts, err := r.api.FilterContacts(ctx, acc, "email", email)
		if err != nil {
			return nil, fmt.Errorf("filtering contacts by email: %w", err)
		}
		// The filter answer is not trusted blindly: only a record whose
		// email actually equals the searched one counts as a match.
		for _, c := range contacts {
			if c.Email() == email {
				return c, nil
			}
		}
		return nil, nil
	}
	return r.searchPhone(ctx, acc, raw)
}

// searchPhone sweeps every plausible spelling of the number through the
// filter endpoint, then falls back to a bounded suffix scan of the full
// contact listing for numbers stored in yet another format.
func (r *ContactResolver) searchPhone(ctx context.Context, acc *allway.Account, raw string) (allway.Contact, error) {
	target := phone.Normalize(raw)

	for _, variant := range phone.Variants(raw) {
		contacts, err := r.api.FilterContacts(ctx, acc, "phone_number", variant)
		if err != nil {
			return nil, fmt.Errorf("filtering contacts by phone: %w", err)
		}
		for _, c := range contacts {
			if c.PhoneNumber() != "" && phone.Normalize(c.PhoneNumber()) == target {
				return c, nil
			}
		}
	}

	return r.scanBySuffix(ctx, acc, target)
}

func (r *ContactResolver) scanBySuffix(ctx context.Context, acc *allway.Account, normalized string) (allway.Contact, error) {
	digits := phone.Digits(normalized)
	if len(digits) < 8 {
		return nil, nil
	}
	longSuffix := digits
	if len(digits) > 9 {
		longSuffix = digits[len(digits)-9:]
	}
	shortSuffix := digits[len(digits)-8:]

	for page := 1; page <= maxScanPages; page++ {
		contacts, err := r.api.ListContacts(ctx, acc, page)
		if err != nil {
			return nil, fmt.Errorf("scanning contacts: %w", err)
		}
		for _, c := range contacts {
			cd := phone.Digits(c.PhoneNumber())
			if cd == "" {
				continue
			}
			if strings.HasSuffix(cd, longSuffix) || strings.HasSuffix(cd, shortSuffix) {
				return c, nil
			}
		}
		if len(contacts) == 0 {
			break
		}
	}
	return nil, nil
}

func (r *ContactResolver) create(ctx context.Context, acc *allway.Account, input ContactInput) (allway.Contact, error) {
	normalized := identifier.Normalize(input.Identifier)
	payload := allway.ContactPayload{
		Name:                 input.Name,
		Identifier:           normalized,
		CustomAttributes:     input.CustomAttributes,
		AdditionalAttributes: input.AdditionalAttributes,
	}
	if identifier.Classify(input.Identifier) == identifier.KindEmail {
		payload.Email = normalized
	} else {
		payload.PhoneNumber = normalized
	}
	if payload.Name == "" {
		payload.Name = normalized
	}

	if input.Inbox.InboxIdentifier != "" {
		return r.api.CreateContactPublic(ctx, acc, input.Inbox.InboxIdentifier, payload)
	}
	return r.api.CreateContactPrivate(ctx, acc, input.Inbox.ID, payload)
}

// reconcile pushes the input's name and attributes onto an existing contact
// when they differ. Failures are logged and swallowed; the contact we found
// is good enough to deliver to.
func (r *ContactResolver) reconcile(ctx context.Context, acc *allway.Account, contact allway.Contact, input ContactInput) allway.Contact {
	fields := make(map[string]any)
	if input.Name != "" && input.Name != contact.Name() {
		fields["name"] = input.Name
	}
	// A contact found through a variant or suffix match may store the number
	// in a non-canonical spelling; push the canonical form so the next
	// resolution hits the exact filter.
	if identifier.Classify(input.Identifier) == identifier.KindPhone {
		canonical := identifier.Normalize(input.Identifier)
		if contact.PhoneNumber() != "" && contact.PhoneNumber() != canonical {
			fields["phone_number"] = canonical
		}
	}
	if len(input.CustomAttributes) > 0 && !CompareCustomAttributes(contact.CustomAttributes(), input.CustomAttributes) {
		merged := make(map[string]any, len(contact.CustomAttributes())+len(input.CustomAttributes))
		for k, v := range contact.CustomAttributes() {
			merged[k] = v
		}
		for k, v := range input.CustomAttributes {
			merged[k] = v
		}
		fields["custom_attributes"] = merged
	}
	if len(input.AdditionalAttributes) > 0 {
		fields["additional_attributes"] = input.AdditionalAttributes
	}
	if len(fields) == 0 {
		return contact
	}

	var err error
	if contact.ID() != 0 {
		err = r.api.UpdateContactPrivate(ctx, acc, contact.ID(), fields)
	} else if input.Inbox.InboxIdentifier != "" && contact.SourceIdentifier() != "" {
		err = r.api.UpdateContactPublic(ctx, acc, input.Inbox.InboxIdentifier, contact.SourceIdentifier(), fields)
	}
	if err != nil {
		logger.WarnCF(contactComponent, "Could not update contact attributes", map[string]interface{}{
			"contact_id": contact.ID(),
			"error":      err.Error(),
		})
		return contact
	}
	return contact.Merge(fields)
}
