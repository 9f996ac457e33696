package ui

import (
	"sort"
	"strings"
)

// maxSuggestDistance bounds the edit distance of a suggestion
const maxSuggestDistance = 3

// Suggest returns up to limit candidates within a small edit distance of target, closest
// first. Comparison ignores case.
func Suggest(target string, candidates []string, limit int) []string {
	type match struct {
		value    string
		distance int
	}

	lower := strings.ToLower(target)
	var matches []match
	for _, c := range candidates {
		if d := editDistance(lower, strings.ToLower(c)); d <= maxSuggestDistance {
			matches = append(matches, match{value: c, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].value < matches[j].value
	})

	out := make([]string, 0, limit)
	for i := 0; i < len(matches) && i < limit; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// editDistance is the Levenshtein distance over runes
func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
