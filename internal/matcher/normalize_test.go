// file: internal/matcher/normalize_test.go
// version: 1.1.0
// guid: 6b7c8d9e-0f1a-2b3c-4d5e-6f7a8b9c0d1e

package matcher

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Sturgeon Electric", "sturgeon-electric"},
		{"STURGEON   ELECTRIC", "sturgeon-electric"},
		{"Johnson & Sons", "johnson-and-sons"},
		{"A.B.C. Trucking, Inc", "a-b-c-trucking-inc"},
		{"O'Brien Hauling", "o-brien-hauling"},
		{"Acme (West) Freight", "acme-west-freight"},
		{"  leading and trailing  ", "leading-and-trailing"},
		{"-leading-hyphen", "leading-hyphen"},
		{"double--hyphen", "double-hyphen"},
		{"", ""},
		{"   ", ""},
		{",.", ""},
	}
	for _, tt := range tests {
		got := Normalize(tt.input)
		if got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// Regression: a trailing "comma plus space" line must not hyphenate into a
// spurious trailing hyphen. The raw input is trimmed both before and after
// trailing-comma removal.
func TestNormalize_TrailingCommaAndSpace(t *testing.T) {
	got := Normalize("Sturgeon Electric ,")
	if got != "sturgeon-electric" {
		t.Errorf("Normalize(%q) = %q, want %q", "Sturgeon Electric ,", got, "sturgeon-electric")
	}
	if got != Normalize("Sturgeon Electric") {
		t.Errorf("trailing-comma input should normalize identically to the clean input")
	}
}

// Canonical keys that legitimately end in a hyphen must survive.
func TestNormalize_PreservesTrailingHyphen(t *testing.T) {
	got := Normalize("abbotts-clean-up-and-restoration-")
	if got != "abbotts-clean-up-and-restoration-" {
		t.Errorf("Normalize stripped a legitimate trailing hyphen: %q", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Sturgeon Electric ,",
		"Johnson & Sons",
		"abbotts-clean-up-and-restoration-",
		"A.B.C. Trucking, Inc",
		"  spaced out  ",
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

func TestFold(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"Sturgeon Electric", "sturgeonelectric"},
		{"sturgeon-electric-", "sturgeonelectric"},
		{"A.B.C. Trucking", "abctrucking"},
		{"Café Fleet Coöp", "cafefleetcoop"},
		{"Unit #42", "unit42"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Fold(tt.input)
		if got != tt.want {
			t.Errorf("Fold(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
