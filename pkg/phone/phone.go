// Package phone canonicalizes Brazilian phone numbers and generates the
// alternate encodings a remote contact record might be stored under.
//
// The rules here are heuristics for the Brazilian numbering plan (missing area
// codes default to 11, mobile prefixes gain the ninth digit), not guarantees.
// They are kept isolated in this package so a stricter numbering-plan library
// could replace them without touching the resolvers.
package phone

import "strings"

const (
	countryCode     = "55"
	defaultAreaCode = "11"
)

// mobile lines in the national plan start with one of these digits after the
// area code and must carry the extra 9.
func isMobilePrefix(d byte) bool {
	return d == '6' || d == '7' || d == '8' || d == '9'
}

// Digits strips every non-digit character.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			b.WriteByte(raw[i])
		}
	}
	return b.String()
}

// Normalize converts a raw phone string into the canonical +55 form.
// It never fails: inputs that do not fit any known shape are returned as
// best-effort digits with the +55 prefix, because the remote platform must
// still receive some identifier. Normalize is idempotent.
func Normalize(raw string) string {
	clean := Digits(raw)

	if strings.HasPrefix(clean, countryCode) && len(clean) >= 12 {
		return "+" + countryCode + normalizeCellphone(clean[2:])
	}

	// A leading + marks the digits as already international, so a 55 prefix is
	// the country code no matter how short the rest is. Without this, short
	// +55 forms would re-normalize into a different number.
	if strings.HasPrefix(strings.TrimSpace(raw), "+") && strings.HasPrefix(clean, countryCode) {
		return "+" + countryCode + normalizeCellphone(clean[2:])
	}

	if len(clean) >= 8 && len(clean) <= 11 {
		return "+" + countryCode + normalizeCellphone(clean)
	}

	return "+" + countryCode + clean
}

// normalizeCellphone corrects a national number: 10-digit numbers with a
// mobile prefix gain the ninth digit, 9-digit numbers are assumed to be
// missing the area code and get 11, 8-digit mobile numbers get both.
// Anything else passes through unchanged.
func normalizeCellphone(national string) string {
	p := Digits(national)

	switch len(p) {
	case 11:
		return p
	case 10:
		if isMobilePrefix(p[2]) {
			return p[:2] + "9" + p[2:]
		}
		return p
	case 9:
		return defaultAreaCode + p
	case 8:
		if isMobilePrefix(p[0]) {
			return defaultAreaCode + "9" + p
		}
		return p
	default:
		return p
	}
}

// Variants returns every textual encoding of raw that a remote record might
// legitimately be stored under: with/without the leading +, with/without the
// 55 country code and with/without the mobile ninth digit. The set always
// contains the digits-only form and the canonical form, contains no
// duplicates and no empty strings. Order carries no meaning.
func Variants(raw string) []string {
	original := Digits(raw)

	var out []string
	seen := make(map[string]struct{})
	add := func(v string) {
		if v == "" {
			return
		}
		if _, ok := seen[v]; ok {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}

	add(original)
	if !strings.HasPrefix(raw, "+") {
		add("+" + original)
	}

	switch {
	case len(original) == 13 && strings.HasPrefix(original, countryCode):
		national := original[2:]
		add(national)
		add("+" + countryCode + national)
		add("+" + original)
		if national[2] == '9' {
			withoutNine := national[:2] + national[3:]
			add(withoutNine)
			add(countryCode + withoutNine)
			add("+" + countryCode + withoutNine)
		}

	case len(original) == 12 && strings.HasPrefix(original, countryCode):
		national := original[2:]
		add(national)
		add("+" + countryCode + national)
		add("+" + original)
		if isMobilePrefix(national[2]) {
			withNine := national[:2] + "9" + national[2:]
			add(withNine)
			add(countryCode + withNine)
			add("+" + countryCode + withNine)
		}

	case len(original) == 11:
		add(countryCode + original)
		add("+" + countryCode + original)
		if original[2] == '9' {
			withoutNine := original[:2] + original[3:]
			add(withoutNine)
			add(countryCode + withoutNine)
			add("+" + countryCode + withoutNine)
		}

	case len(original) == 10:
		add(countryCode + original)
		add("+" + countryCode + original)
		if isMobilePrefix(original[2]) {
			withNine := original[:2] + "9" + original[2:]
			add(withNine)
			add(countryCode + withNine)
			add("+" + countryCode + withNine)
		}
	}

	// Every variant also contributes its canonical form.
	for _, v := range append([]string(nil), out...) {
		add(Normalize(v))
	}

	return out
}
