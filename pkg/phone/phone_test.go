package phone

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "+5511987654321", "+5511987654321"},
		{"national 11 digits", "11987654321", "+5511987654321"},
		{"national with country code", "5511987654321", "+5511987654321"},
		{"formatted", "(11) 98765-4321", "+5511987654321"},
		{"mobile missing ninth digit", "1187654321", "+5511987654321"},
		{"landline keeps ten digits", "1133334444", "+551133334444"},
		{"country code and missing ninth digit", "551187654321", "+5511987654321"},
		{"nine digits assumes area code 11", "987654321", "+5511987654321"},
		{"eight digit mobile assumes area and ninth", "87654321", "+5511987654321"},
		{"eight digit landline assumes nothing", "33334444", "+5533334444"},
		{"unrecognized length is best effort", "123", "+55123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.in); got != tc.want {
				t.Fatalf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"+5511987654321",
		"11987654321",
		"1187654321",
		"(11) 98765-4321",
		"987654321",
		"33334444",
		"123",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestNormalizeNeverShortensNationalNumber(t *testing.T) {
	inputs := []string{"11987654321", "1187654321", "1133334444", "2199887766"}
	for _, in := range inputs {
		got := Normalize(in)
		if !strings.HasPrefix(got, "+55") {
			t.Fatalf("Normalize(%q) = %q, want +55 prefix", in, got)
		}
		national := got[3:]
		if len(national) < len(in) {
			t.Errorf("Normalize(%q) shortened national part to %q", in, national)
		}
		if len(national) > len(in)+1 {
			t.Errorf("Normalize(%q) grew national part by more than one digit: %q", in, national)
		}
	}
}

func TestVariantsContainsCanonicalAndDigits(t *testing.T) {
	inputs := []string{
		"11987654321",
		"+5511987654321",
		"5511987654321",
		"1187654321",
		"(11) 98765-4321",
	}
	for _, in := range inputs {
		vs := Variants(in)
		want := []string{Normalize(in), Digits(in)}
		for _, w := range want {
			found := false
			for _, v := range vs {
				if v == w {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("Variants(%q) missing %q: %v", in, w, vs)
			}
		}
	}
}

func TestVariantsDuplicateFreeAndNonEmpty(t *testing.T) {
	for _, in := range []string{"11987654321", "5511987654321", "+551187654321", ""} {
		vs := Variants(in)
		seen := make(map[string]bool)
		for _, v := range vs {
			if v == "" {
				t.Errorf("Variants(%q) contains empty string", in)
			}
			if seen[v] {
				t.Errorf("Variants(%q) contains duplicate %q", in, v)
			}
			seen[v] = true
		}
	}
}

func TestVariantsCoverCountryCodeAndNinthDigitForms(t *testing.T) {
	vs := Variants("5511987654321")
	for _, want := range []string{
		"5511987654321",
		"11987654321",
		"+5511987654321",
		"1187654321",
		"551187654321",
		"+551187654321",
	} {
		found := false
		for _, v := range vs {
			if v == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Variants(5511987654321) missing %q: %v", want, vs)
		}
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+55 (11) 98765-4321"); got != "5511987654321" {
		t.Fatalf("Digits = %q", got)
	}
	if got := Digits("no digits"); got != "" {
		t.Fatalf("Digits = %q, want empty", got)
	}
}
