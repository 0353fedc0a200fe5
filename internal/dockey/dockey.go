// file: internal/dockey/dockey.go
// version: 1.0.0
// guid: 4d5e6f7a-8b9c-0d1e-2f3a-4b5c6d7e8f9a

package dockey

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofleetadvisor/fleetdocs/internal/models"
)

// The filename grammar is the wire-level contract with storage:
//
//	company__[dot__]I-<invoice>__U-<unit>__V-<vin>__D-<MMDDYYYY>__P-<plate>.pdf
//
// Field position is part of the contract, not just delimiters: absent fields
// are encoded as the literal "NA", never omitted. Every consumer must go
// through this package; historically several near-duplicate parsers drifted
// apart and produced inconsistent retrieval results.

// Delimiter separates filename fields.
const Delimiter = "__"

// DateLayout is the date token layout. MMDDYYYY, not ISO: inherited from the
// production system, and the decode side depends on it. Do not change one
// without the other.
const DateLayout = "01022006"

// dotMarker flags a DOT inspection document.
const dotMarker = "dot"

var (
	invoicePattern = regexp.MustCompile(`__I-(.*?)__`)
	unitPattern    = regexp.MustCompile(`__U-(.*?)__`)
	vinPattern     = regexp.MustCompile(`__V-(.*?)__`)
	datePattern    = regexp.MustCompile(`__D-(\d{8})(?:__|\.|$)`)
	platePattern   = regexp.MustCompile(`__P-(.*?)(?:\.|$)`)
)

// DecodeError marks a stored filename that does not conform to the key
// grammar at all. Listings skip (and log) such entries; they never abort a
// scan.
type DecodeError struct {
	Name string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("filename %q does not match the document key grammar", e.Name)
}

// Encode builds the canonical filename body for a document key. Optional
// fields default to "NA"; the company key is embedded verbatim, including a
// legitimate trailing hyphen.
func Encode(k models.DocumentKey) string {
	parts := make([]string, 0, 7)
	parts = append(parts, k.Company)
	if k.Inspection {
		parts = append(parts, dotMarker)
	}
	parts = append(parts,
		"I-"+orNA(k.Invoice),
		"U-"+orNA(k.Unit),
		"V-"+orNA(k.VIN),
		"D-"+encodeDate(k.Date),
		"P-"+orNA(k.Plate),
	)
	return strings.Join(parts, Delimiter) + ".pdf"
}

// Decode parses a stored filename back into a document key. Leading and
// trailing whitespace in the raw listing entry is trimmed first; raw
// listings have carried stray spaces before. Individual malformed fields
// decode to "NA" (or a zero date); only a name with no field delimiter at
// all is a DecodeError.
func Decode(name string) (models.DocumentKey, error) {
	trimmed := strings.TrimSpace(name)

	idx := strings.Index(trimmed, Delimiter)
	if idx < 0 {
		return models.DocumentKey{}, &DecodeError{Name: name}
	}

	k := models.DocumentKey{
		Company:    trimmed[:idx],
		Inspection: strings.Contains(trimmed, Delimiter+dotMarker+Delimiter),
		Invoice:    captureOrNA(invoicePattern, trimmed),
		Unit:       captureOrNA(unitPattern, trimmed),
		VIN:        captureOrNA(vinPattern, trimmed),
		Plate:      captureOrNA(platePattern, trimmed),
		Date:       decodeDate(trimmed),
		Raw:        trimmed,
	}
	return k, nil
}

func orNA(v string) string {
	if v == "" {
		return models.NA
	}
	return v
}

func encodeDate(d time.Time) string {
	if d.IsZero() {
		return models.NA
	}
	return d.Format(DateLayout)
}

func decodeDate(name string) time.Time {
	m := datePattern.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}
	}
	d, err := time.Parse(DateLayout, m[1])
	if err != nil {
		return time.Time{}
	}
	return d
}

func captureOrNA(p *regexp.Regexp, name string) string {
	m := p.FindStringSubmatch(name)
	if m == nil || m[1] == "" {
		return models.NA
	}
	return m[1]
}
