// Package identifier classifies raw contact identifiers as email addresses or
// phone numbers and validates them before any remote call is made.
package identifier

import (
	"net/mail"
	"strings"

	"github.com/AllWayChat/chat-plugin/pkg/phone"
)

// Kind is the identifier classification.
type Kind string

const (
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// Accepted digit counts for a phone identifier, after stripping punctuation.
const (
	minPhoneDigits = 8
	maxPhoneDigits = 15
)

// Classify decides whether raw is an email or a phone. Classification is a
// pure function of the string's shape: anything that parses as an email
// address is an email, every other non-empty string is a phone.
func Classify(raw string) Kind {
	if IsEmail(raw) {
		return KindEmail
	}
	return KindPhone
}

// IsEmail reports whether raw passes address syntax validation.
func IsEmail(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !strings.Contains(trimmed, "@") {
		return false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Name <a@b.c>"; only the bare address
	// counts as an email identifier.
	return addr.Address == trimmed
}

// ValidateEmail reports whether raw is a usable email identifier.
func ValidateEmail(raw string) bool {
	return IsEmail(raw)
}

// ValidatePhone reports whether raw is a usable phone identifier: it must
// contain at least one digit and the digit count must be plausible for a
// phone number.
func ValidatePhone(raw string) bool {
	digits := phone.Digits(raw)
	return len(digits) >= minPhoneDigits && len(digits) <= maxPhoneDigits
}

// Validate reports whether raw is a usable contact identifier of either kind.
func Validate(raw string) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	if IsEmail(raw) {
		return true
	}
	return ValidatePhone(raw)
}

// Normalize canonicalizes raw: emails are lower-cased and trimmed, phones go
// through the Brazilian phone normalizer.
func Normalize(raw string) string {
	if IsEmail(raw) {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return phone.Normalize(raw)
}
