// Package record holds the delivery log entry shared by every sink backend.
package record

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one delivery attempt, successful or failed. ConversationID and
// MessageID stay nil when the attempt failed before reaching that stage.
type Entry struct {
	ID             string    `json:"id"`
	AccountID      int64     `json:"account_id"`
	ToContact      string    `json:"to_contact"`
	Content        string    `json:"content"`
	ConversationID *int64    `json:"conversation_id,omitempty"`
	MessageID      *int64    `json:"allway_message_id,omitempty"`
	Error          string    `json:"error,omitempty"`
	SentAt         time.Time `json:"sent_at"`
}

// Succeeded reports whether the attempt resulted in a delivered message.
func (e Entry) Succeeded() bool {
	return e.Error == "" && e.MessageID != nil
}

// NewEntry stamps a fresh entry with an id and the current time.
func NewEntry(accountID int64, toContact, content string) Entry {
	return Entry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		ToContact: toContact,
		Content:   content,
		SentAt:    time.Now().UTC(),
	}
}
