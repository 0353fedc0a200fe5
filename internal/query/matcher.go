// file: internal/query/matcher.go
// version: 1.1.0
// guid: 9c0d1e2f-3a4b-5c6d-7e8f-9a0b1c2d3e4f

package query

import (
	"sort"
	"strings"
	"time"

	"github.com/gofleetadvisor/fleetdocs/internal/matcher"
	"github.com/gofleetadvisor/fleetdocs/internal/models"
)

// DefaultLimit bounds result pages when the query does not set one. It is
// also the blast-radius cap for empty queries.
const DefaultLimit = 15

// vinSuffixThreshold: VIN fragments at or below this length match against
// the trailing characters of the stored VIN, mirroring how drivers quote the
// last eight of a VIN. Longer fragments match as substrings.
const vinSuffixThreshold = 8

// Match filters keys against the query, sorts newest first, and truncates to
// the limit. An absent query field always passes; a document with no
// parseable date always fails an active date filter, so dated queries never
// silently include undated files.
func Match(q models.Query, keys []models.DocumentKey, now Clock) models.MatchResult {
	start, end, dated := ResolveRange(q.DateRange, now)

	var matched []models.DocumentKey
	for _, k := range keys {
		if !matchesDocType(q.DocType, k) {
			continue
		}
		if !matchesCompany(q.Company, k.Company) {
			continue
		}
		if !matchesUnit(q.Unit, k.Unit) {
			continue
		}
		if !matchesSubstring(q.Invoice, k.Invoice) {
			continue
		}
		if !matchesVIN(q.VIN, k.VIN) {
			continue
		}
		if !matchesSubstring(q.Plate, k.Plate) {
			continue
		}
		if dated {
			if !k.HasDate() || !inRange(k.Date, start, end) {
				continue
			}
		}
		matched = append(matched, k)
	}

	sortDocuments(matched)

	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	total := len(matched)
	truncated := total > limit
	if truncated {
		matched = matched[:limit]
	}

	return models.MatchResult{
		Documents:     matched,
		TotalMatches:  total,
		ReturnedCount: len(matched),
		Truncated:     truncated,
	}
}

// sortDocuments orders by decoded date descending with undated documents
// last; ties break on the raw filename descending for determinism.
func sortDocuments(docs []models.DocumentKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		di, dj := docs[i], docs[j]
		switch {
		case di.HasDate() && !dj.HasDate():
			return true
		case !di.HasDate() && dj.HasDate():
			return false
		case di.HasDate() && !di.Date.Equal(dj.Date):
			return di.Date.After(dj.Date)
		}
		return di.Raw > dj.Raw
	})
}

func matchesDocType(docType string, k models.DocumentKey) bool {
	switch docType {
	case models.DocTypeDOT:
		return k.Inspection
	case models.DocTypeInvoice:
		return !k.Inspection
	default:
		return true
	}
}

// matchesCompany applies the normalized-substring rule: the folded query
// must appear inside the folded candidate key, so "sturgeon" finds
// "sturgeon-electric".
func matchesCompany(queryCompany, company string) bool {
	if queryCompany == "" {
		return true
	}
	folded := matcher.Fold(queryCompany)
	if folded == "" {
		return true
	}
	return strings.Contains(matcher.Fold(company), folded)
}

func matchesUnit(queryUnit, unit string) bool {
	if queryUnit == "" {
		return true
	}
	return strings.EqualFold(queryUnit, unit)
}

func matchesSubstring(queryVal, val string) bool {
	if queryVal == "" {
		return true
	}
	return strings.Contains(strings.ToUpper(val), strings.ToUpper(queryVal))
}

func matchesVIN(queryVIN, vin string) bool {
	if queryVIN == "" {
		return true
	}
	q := strings.ToUpper(strings.TrimSpace(queryVIN))
	v := strings.ToUpper(vin)
	if len(q) <= vinSuffixThreshold {
		return strings.HasSuffix(v, q)
	}
	return strings.Contains(v, q)
}

// inRange compares by calendar day in the range's location, so a document
// date decoded in UTC still lands inside a locally-resolved interval.
func inRange(d, start, end time.Time) bool {
	day := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, start.Location())
	return !day.Before(start) && !day.After(end)
}
