// file: internal/matcher/levenshtein.go
// version: 1.0.0
// guid: 3f8a1b2c-4d5e-6f70-8192-a3b4c5d6e7f8

package matcher

// Distance computes the Levenshtein edit distance between a and b:
// the minimum number of single-character insertions, deletions, and
// substitutions needed to turn a into b. It is case-sensitive; callers
// normalize first.
func Distance(a, b string) int {
	la, lb := len(a), len(b)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	// Single-row DP
	prev := make([]int, lb+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr := make([]int, lb+1)
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(curr[j-1]+1, min(prev[j]+1, prev[j-1]+cost))
		}
		prev = curr
	}
	return prev[lb]
}
