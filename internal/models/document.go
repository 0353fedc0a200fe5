// file: internal/models/document.go
// version: 1.1.0
// guid: 2b3c4d5e-6f7a-8b9c-0d1e-2f3a4b5c6d7e

package models

import (
	"encoding/json"
	"time"
)

// NA is the literal token recorded for any absent document field. Absent
// fields keep their position in the filename so parsers can anchor on it.
const NA = "NA"

// Document type filter values.
const (
	DocTypeDOT     = "dot"
	DocTypeInvoice = "invoice"
	DocTypeAll     = "all"
)

// DocumentKey is the fully decoded structured identity of one stored file.
// Created once at ingestion, never mutated. Date is the zero time when the
// filename carried no parseable date token.
type DocumentKey struct {
	Company    string    `json:"company"`
	Inspection bool      `json:"is_inspection"`
	Invoice    string    `json:"invoice"`
	Unit       string    `json:"unit"`
	VIN        string    `json:"vin"`
	Date       time.Time `json:"date"`
	Plate      string    `json:"plate"`

	// Raw is the filename the key was decoded from (or encoded to). Used for
	// deterministic tie-breaking and URL construction, not for matching.
	Raw string `json:"raw,omitempty"`
}

// HasDate reports whether the key carries a parseable date.
func (k DocumentKey) HasDate() bool { return !k.Date.IsZero() }

// documentKeyJSON is the wire shape of a key. Date is a pointer so undated
// documents omit the field instead of emitting the zero time.
type documentKeyJSON struct {
	Company    string     `json:"company"`
	Inspection bool       `json:"is_inspection"`
	Invoice    string     `json:"invoice"`
	Unit       string     `json:"unit"`
	VIN        string     `json:"vin"`
	Date       *time.Time `json:"date,omitempty"`
	Plate      string     `json:"plate"`
	Raw        string     `json:"raw,omitempty"`
}

func (k DocumentKey) jsonPayload() documentKeyJSON {
	p := documentKeyJSON{
		Company:    k.Company,
		Inspection: k.Inspection,
		Invoice:    k.Invoice,
		Unit:       k.Unit,
		VIN:        k.VIN,
		Plate:      k.Plate,
		Raw:        k.Raw,
	}
	if k.HasDate() {
		p.Date = &k.Date
	}
	return p
}

// MarshalJSON omits the date field for undated keys. Unmarshaling is the
// default field-tag decode; an absent or null date yields the zero time.
func (k DocumentKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.jsonPayload())
}

// Document is a matched key annotated for presentation.
type Document struct {
	DocumentKey
	Bucket    string `json:"bucket"`
	PublicURL string `json:"public_url,omitempty"`
}

// MarshalJSON flattens the key payload and the presentation fields into one
// object, keeping the undated-omits-date rule.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		documentKeyJSON
		Bucket    string `json:"bucket"`
		PublicURL string `json:"public_url,omitempty"`
	}{
		documentKeyJSON: d.DocumentKey.jsonPayload(),
		Bucket:          d.Bucket,
		PublicURL:       d.PublicURL,
	})
}

// RangeKind names a symbolic date range resolved at query time.
type RangeKind string

const (
	RangeNone      RangeKind = ""
	RangeExplicit  RangeKind = "explicit"
	RangeThisWeek  RangeKind = "this_week"
	RangeLastWeek  RangeKind = "last_week"
	RangeThisMonth RangeKind = "this_month"
	RangeLastMonth RangeKind = "last_month"
	RangeMonth     RangeKind = "month"
)

// DateRange is either symbolic (Kind) or explicit (Start/End) or a single
// month (Month/Year). Inclusive on both ends once resolved.
type DateRange struct {
	Kind  RangeKind `json:"kind,omitempty"`
	Start time.Time `json:"start,omitempty"`
	End   time.Time `json:"end,omitempty"`
	Month time.Month `json:"month,omitempty"`
	Year  int       `json:"year,omitempty"`
}

// IsZero reports whether no date constraint is present.
func (r DateRange) IsZero() bool {
	return r.Kind == RangeNone && r.Start.IsZero() && r.End.IsZero() && r.Month == 0 && r.Year == 0
}

// Query is a stateless retrieval request. Every field is optional; an empty
// query matches everything in scope, bounded only by Limit.
type Query struct {
	Company   string    `json:"company,omitempty"`
	Unit      string    `json:"unit,omitempty"`
	Invoice   string    `json:"invoice,omitempty"`
	VIN       string    `json:"vin,omitempty"`
	Plate     string    `json:"plate,omitempty"`
	DocType   string    `json:"doc_type,omitempty"`
	DateRange DateRange `json:"date_range,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// IsEmpty reports whether the query carries no constraint at all.
func (q Query) IsEmpty() bool {
	return q.Company == "" && q.Unit == "" && q.Invoice == "" && q.VIN == "" &&
		q.Plate == "" && (q.DocType == "" || q.DocType == DocTypeAll) && q.DateRange.IsZero()
}

// MatchResult is a filtered, sorted, truncated page of document keys with
// enough accounting for the caller to warn about truncation.
type MatchResult struct {
	Documents     []DocumentKey `json:"documents"`
	TotalMatches  int           `json:"total_matches"`
	ReturnedCount int           `json:"returned_count"`
	Truncated     bool          `json:"truncated"`
}

// Company is one canonical roster entry.
type Company struct {
	Key string `json:"key"`
}
