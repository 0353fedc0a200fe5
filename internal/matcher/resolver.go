// file: internal/matcher/resolver.go
// version: 1.2.0
// guid: 9e0f1a2b-3c4d-5e6f-7a8b-9c0d1e2f3a4b

package matcher

import (
	"sort"
	"strings"
)

// Match kinds, in tier order.
const (
	MatchExact     = "exact"
	MatchSuffix    = "suffix"
	MatchFuzzy     = "fuzzy"
	MatchAmbiguous = "ambiguous"
	MatchNone      = "none"
)

// MaxFuzzyDistance is the hard edit-distance cutoff for the fuzzy tier.
const MaxFuzzyDistance = 2

const (
	highConfidence   = 0.8
	mediumConfidence = 0.6
	suggestionFloor  = 0.3

	maxAmbiguousCandidates = 10
	maxSuggestions         = 3
)

// Candidate is one scored registry key.
type Candidate struct {
	Key        string  `json:"key"`
	Confidence float64 `json:"confidence"`
	Distance   int     `json:"distance"`
}

// Resolution is the outcome of resolving free text against the registry.
// Exactly one interpretation applies, identified by Kind. Fuzzy results
// carry the edit distance and confidence of the winning key; ambiguous and
// none results carry scored candidates.
type Resolution struct {
	Kind       string      `json:"kind"`
	Key        string      `json:"key,omitempty"`
	Input      string      `json:"input"`
	Distance   int         `json:"distance,omitempty"`
	Confidence float64     `json:"confidence,omitempty"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Matched reports whether the resolution identifies a single company.
func (r Resolution) Matched() bool {
	switch r.Kind {
	case MatchExact, MatchSuffix, MatchFuzzy:
		return true
	}
	return false
}

// Registry is a read-only snapshot of canonical company keys. It must not
// be mutated while a resolve call is in flight; refreshing is the caller's
// job.
type Registry struct {
	keys []string
	set  map[string]struct{}
}

// NewRegistry builds a snapshot from canonical keys. Empty entries are
// dropped; keys are stored as given (trailing hyphens included).
func NewRegistry(keys []string) *Registry {
	r := &Registry{set: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := r.set[k]; dup {
			continue
		}
		r.set[k] = struct{}{}
		r.keys = append(r.keys, k)
	}
	sort.Strings(r.keys)
	return r
}

// Keys returns the snapshot's keys in sorted order. The returned slice must
// be treated as read-only.
func (r *Registry) Keys() []string { return r.keys }

// Len returns the number of keys in the snapshot.
func (r *Registry) Len() int { return len(r.keys) }

// Contains reports exact-string membership.
func (r *Registry) Contains(key string) bool {
	_, ok := r.set[key]
	return ok
}

// Resolve maps free text to a canonical company key. Tiers, short-circuiting
// on first success:
//
//  1. exact: Normalize(raw) is in the registry
//  2. suffix: Normalize(raw)+"-" is in the registry
//  3. fuzzy: unique minimum edit distance <= MaxFuzzyDistance; a tie at the
//     minimum is never broken silently and falls through
//  4. confidence scoring: one high-confidence candidate resolves like fuzzy,
//     otherwise ambiguous (medium candidates) or none (weak suggestions)
//
// Resolve is pure: no I/O, no retries, the registry snapshot is supplied by
// the caller.
func Resolve(raw string, reg *Registry) Resolution {
	k := Normalize(raw)
	if k == "" {
		return Resolution{Kind: MatchNone, Input: k}
	}

	if reg.Contains(k) {
		return Resolution{Kind: MatchExact, Key: k, Input: k, Confidence: 1.0}
	}

	if reg.Contains(k + "-") {
		return Resolution{Kind: MatchSuffix, Key: k + "-", Input: k, Confidence: 1.0}
	}

	// Fuzzy tier: hard cutoff, unique winner only.
	bestDist := -1
	bestKey := ""
	tied := false
	for _, c := range reg.Keys() {
		d := Distance(k, c)
		if bestDist < 0 || d < bestDist {
			bestDist = d
			bestKey = c
			tied = false
		} else if d == bestDist {
			tied = true
		}
	}
	if bestDist >= 0 && bestDist <= MaxFuzzyDistance && !tied {
		return Resolution{
			Kind:       MatchFuzzy,
			Key:        bestKey,
			Input:      k,
			Distance:   bestDist,
			Confidence: confidence(k, bestKey),
		}
	}

	// Confidence stage: heuristic scores for human-facing disambiguation,
	// independent of the hard cutoff above.
	candidates := scoreAll(k, reg)

	var high, medium []Candidate
	for _, c := range candidates {
		if c.Confidence >= highConfidence {
			high = append(high, c)
		}
		if c.Confidence >= mediumConfidence {
			medium = append(medium, c)
		}
	}

	if len(high) == 1 {
		c := high[0]
		return Resolution{
			Kind:       MatchFuzzy,
			Key:        c.Key,
			Input:      k,
			Distance:   c.Distance,
			Confidence: c.Confidence,
		}
	}

	if len(medium) >= 1 {
		if len(medium) > maxAmbiguousCandidates {
			medium = medium[:maxAmbiguousCandidates]
		}
		return Resolution{Kind: MatchAmbiguous, Input: k, Candidates: medium}
	}

	var suggestions []Candidate
	for _, c := range candidates {
		if c.Confidence > suggestionFloor {
			suggestions = append(suggestions, c)
		}
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return Resolution{Kind: MatchNone, Input: k, Candidates: suggestions}
}

// scoreAll scores every registry key against the normalized input and
// returns candidates sorted by confidence descending, key ascending.
func scoreAll(k string, reg *Registry) []Candidate {
	candidates := make([]Candidate, 0, reg.Len())
	for _, c := range reg.Keys() {
		candidates = append(candidates, Candidate{
			Key:        c,
			Confidence: confidence(k, c),
			Distance:   Distance(k, c),
		})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Key < candidates[j].Key
	})
	return candidates
}

// confidence scores how plausible key is for the normalized input.
// Containment checks run on folded forms so punctuation noise cannot
// deflate the score.
func confidence(input, key string) float64 {
	if input == key {
		return 1.0
	}
	fi, fk := Fold(input), Fold(key)
	if fi != "" && fi == fk {
		return 1.0
	}
	switch {
	case fi != "" && fk != "" && strings.HasPrefix(fk, fi):
		return 0.9
	case fk != "" && strings.Contains(fi, fk):
		return 0.75
	case fi != "" && strings.Contains(fk, fi):
		return 0.7
	}
	d := Distance(input, key)
	maxLen := len(input)
	if len(key) > maxLen {
		maxLen = len(key)
	}
	if maxLen == 0 {
		return 0
	}
	score := 1.0 - float64(d)/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}
