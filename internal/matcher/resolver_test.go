// file: internal/matcher/resolver_test.go
// version: 1.2.0
// guid: 8d9e0f1a-2b3c-4d5e-6f7a-8b9c0d1e2f3a

package matcher

import "testing"

func TestResolve_Exact(t *testing.T) {
	reg := NewRegistry([]string{"sturgeon-electric", "rocky-mountain-transport"})

	res := Resolve("Sturgeon Electric", reg)
	if res.Kind != MatchExact {
		t.Fatalf("kind = %s, want %s", res.Kind, MatchExact)
	}
	if res.Key != "sturgeon-electric" {
		t.Errorf("key = %q, want sturgeon-electric", res.Key)
	}
	if !res.Matched() {
		t.Error("exact resolution should report Matched")
	}
}

// Exact membership always wins, regardless of near-duplicate keys.
func TestResolve_ExactBeatsFuzzy(t *testing.T) {
	reg := NewRegistry([]string{"sturgeon-electric", "sturgeon-electrics", "sturgeon-electric-"})

	res := Resolve("sturgeon-electric", reg)
	if res.Kind != MatchExact || res.Key != "sturgeon-electric" {
		t.Fatalf("got %s/%q, want exact/sturgeon-electric", res.Kind, res.Key)
	}
}

func TestResolve_Suffix(t *testing.T) {
	reg := NewRegistry([]string{"sturgeon-electric-"})

	res := Resolve("Sturgeon Electric", reg)
	if res.Kind != MatchSuffix {
		t.Fatalf("kind = %s, want %s", res.Kind, MatchSuffix)
	}
	if res.Key != "sturgeon-electric-" {
		t.Errorf("key = %q, want the trailing-hyphen key", res.Key)
	}
}

func TestResolve_TypoTolerance(t *testing.T) {
	reg := NewRegistry([]string{"sturgeon-electric"})

	res := Resolve("sturgon-electric", reg)
	if res.Kind != MatchFuzzy {
		t.Fatalf("kind = %s, want %s", res.Kind, MatchFuzzy)
	}
	if res.Key != "sturgeon-electric" || res.Distance != 1 {
		t.Errorf("got key=%q distance=%d, want sturgeon-electric/1", res.Key, res.Distance)
	}
}

// A tie at the minimum edit distance is never broken silently: both keys
// surface as candidates instead of the lexicographically first winning.
func TestResolve_FuzzyTieIsAmbiguous(t *testing.T) {
	reg := NewRegistry([]string{"aaa-transport", "aab-transport"})

	res := Resolve("aac-transport", reg)
	if res.Kind != MatchAmbiguous {
		t.Fatalf("kind = %s, want %s", res.Kind, MatchAmbiguous)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(res.Candidates))
	}
	seen := map[string]bool{}
	for _, c := range res.Candidates {
		seen[c.Key] = true
	}
	if !seen["aaa-transport"] || !seen["aab-transport"] {
		t.Errorf("both tied keys should be candidates, got %v", res.Candidates)
	}
}

// Partial names resolve through the confidence stage: the folded key begins
// with the folded input, which scores 0.9 and is the only high-confidence
// candidate.
func TestResolve_PrefixConfidence(t *testing.T) {
	reg := NewRegistry([]string{"sturgeon-electric", "rocky-mountain-transport"})

	res := Resolve("sturgeon", reg)
	if res.Kind != MatchFuzzy {
		t.Fatalf("kind = %s, want %s (confidence path)", res.Kind, MatchFuzzy)
	}
	if res.Key != "sturgeon-electric" {
		t.Errorf("key = %q, want sturgeon-electric", res.Key)
	}
	if res.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9", res.Confidence)
	}
}

// The trailing-dash registry key is far beyond the edit-distance cutoff for
// a truncated input, so resolution goes through the confidence stage and
// must still point at that key, trailing hyphen intact.
func TestResolve_TrailingDashKey(t *testing.T) {
	reg := NewRegistry([]string{"abbotts-clean-up-and-restoration-"})

	res := Resolve("Abbotts Clean Up", reg)
	if res.Kind != MatchFuzzy {
		t.Fatalf("kind = %s, want %s (single high-confidence candidate)", res.Kind, MatchFuzzy)
	}
	if res.Key != "abbotts-clean-up-and-restoration-" {
		t.Errorf("key = %q, trailing hyphen must be preserved", res.Key)
	}
	if res.Distance <= MaxFuzzyDistance {
		t.Errorf("distance = %d, expected the fuzzy tier to have been out of reach", res.Distance)
	}
}

func TestResolve_MediumOnlyIsAmbiguous(t *testing.T) {
	reg := NewRegistry([]string{"acme"})

	// Folded input contains the folded key: 0.75, medium but not high.
	res := Resolve("big acme logistics", reg)
	if res.Kind != MatchAmbiguous {
		t.Fatalf("kind = %s, want %s", res.Kind, MatchAmbiguous)
	}
	if len(res.Candidates) != 1 || res.Candidates[0].Key != "acme" {
		t.Errorf("candidates = %v, want single acme", res.Candidates)
	}
	if res.Candidates[0].Confidence != 0.75 {
		t.Errorf("confidence = %v, want 0.75", res.Candidates[0].Confidence)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	reg := NewRegistry([]string{"sturgeon-electric", "rocky-mountain-transport"})

	res := Resolve("zzz", reg)
	if res.Kind != MatchNone {
		t.Fatalf("kind = %s, want %s", res.Kind, MatchNone)
	}
	if len(res.Candidates) != 0 {
		t.Errorf("weak inputs should carry no suggestions, got %v", res.Candidates)
	}
	if res.Matched() {
		t.Error("none resolution must not report Matched")
	}
}

func TestResolve_EmptyInput(t *testing.T) {
	reg := NewRegistry([]string{"sturgeon-electric"})

	for _, in := range []string{"", "   ", ",."} {
		res := Resolve(in, reg)
		if res.Kind != MatchNone {
			t.Errorf("Resolve(%q): kind = %s, want %s", in, res.Kind, MatchNone)
		}
		if len(res.Candidates) != 0 {
			t.Errorf("Resolve(%q): empty input never suggests, got %v", in, res.Candidates)
		}
	}
}

func TestResolve_AmbiguousCap(t *testing.T) {
	keys := []string{
		"acme-freight-01", "acme-freight-02", "acme-freight-03", "acme-freight-04",
		"acme-freight-05", "acme-freight-06", "acme-freight-07", "acme-freight-08",
		"acme-freight-09", "acme-freight-10", "acme-freight-11", "acme-freight-12",
	}
	reg := NewRegistry(keys)

	// "xx" shares no digit with any numeric suffix, so every key sits at
	// edit distance 2: the fuzzy tier ties twelve ways and falls through.
	// All twelve then score identically in the confidence stage, so the
	// ambiguous list must be capped at ten.
	res := Resolve("acme-freight-xx", reg)
	if res.Kind != MatchAmbiguous {
		t.Fatalf("kind = %s, want %s", res.Kind, MatchAmbiguous)
	}
	if len(res.Candidates) != 10 {
		t.Errorf("got %d candidates, want cap of 10", len(res.Candidates))
	}
	for i, c := range res.Candidates {
		if c.Distance != 2 {
			t.Errorf("candidate %q distance = %d, want 2 (no unique minimum)", c.Key, c.Distance)
		}
		if i > 0 && c.Confidence > res.Candidates[i-1].Confidence {
			t.Errorf("candidates not sorted by confidence descending")
		}
	}
}

func TestRegistry_Snapshot(t *testing.T) {
	reg := NewRegistry([]string{"b-co", "a-co", "a-co", ""})
	if reg.Len() != 2 {
		t.Fatalf("Len = %d, want 2 (dedup, drop empties)", reg.Len())
	}
	keys := reg.Keys()
	if keys[0] != "a-co" || keys[1] != "b-co" {
		t.Errorf("Keys() = %v, want sorted [a-co b-co]", keys)
	}
	if !reg.Contains("a-co") || reg.Contains("c-co") {
		t.Error("Contains misbehaving")
	}
}
