package identifier

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
	}{
		{"user@example.com", KindEmail},
		{"USER@Example.COM", KindEmail},
		{"11987654321", KindPhone},
		{"+55 (11) 98765-4321", KindPhone},
		{"not-an-email", KindPhone},
		{"user@", KindPhone},
	}
	for _, tc := range cases {
		if got := Classify(tc.in); got != tc.want {
			t.Errorf("Classify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidate(t *testing.T) {
	valid := []string{
		"user@example.com",
		"11987654321",
		"+5511987654321",
		"(11) 98765-4321",
		"33334444",
	}
	for _, in := range valid {
		if !Validate(in) {
			t.Errorf("Validate(%q) = false, want true", in)
		}
	}

	invalid := []string{
		"",
		"   ",
		"abc",
		"1234567",          // too few digits
		"1234567890123456", // too many digits
		"Name <user@example.com>",
	}
	for _, in := range invalid {
		if Validate(in) {
			t.Errorf("Validate(%q) = true, want false", in)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  User@Example.COM "); got != "user@example.com" {
		t.Fatalf("email Normalize = %q", got)
	}
	if got := Normalize("11987654321"); got != "+5511987654321" {
		t.Fatalf("phone Normalize = %q", got)
	}
}
