// file: internal/matcher/normalize.go
// version: 1.1.0
// guid: 7c2d3e4f-5a6b-7c8d-9e0f-1a2b3c4d5e6f

package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separator characters that collapse to a hyphen in canonical keys.
func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', ',', '.', '\'', '(', ')':
		return true
	}
	return unicode.IsSpace(r)
}

// foldTransformer strips diacritics (NFD decompose, drop combining marks).
var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize converts free-form human text into canonical company-key form:
// lowercase, "&" mapped to "and", separator runs collapsed to a single
// hyphen, a single leading hyphen stripped. A trailing hyphen is NOT
// stripped: some registered keys legitimately end in one, and deciding
// whether a trailing hyphen matters belongs to the matching tiers.
//
// Trailing separators are trimmed both before and after trailing-comma
// removal. Trimming only once leaves a stray space behind the comma which
// hyphenates into a spurious trailing hyphen and breaks exact lookups.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimRight(s, ",.;")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", "and")

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if isSeparator(r) {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			b.WriteByte('-')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	out := b.String()

	// Collapse runs of hyphens that were already present in the input.
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	out = strings.TrimPrefix(out, "-")
	return out
}

// Fold is the stricter normalizer used only for fuzzy scoring and substring
// comparison: lowercase, diacritics folded to ASCII, everything that is not
// a letter or digit dropped. Never used to produce a stored key.
func Fold(raw string) string {
	s := strings.ToLower(raw)
	if folded, _, err := transform.String(foldTransformer, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
