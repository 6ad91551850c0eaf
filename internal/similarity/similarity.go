// Package similarity scores how alike two canonical strings are.
package similarity

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// TokenSort returns the tokens of s sorted and joined by single spaces.
func TokenSort(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// Ratio is the normalized Indel similarity of a and b on a 0-100 scale:
// twice the longest common subsequence over the combined length. Empty
// input on either side scores 0.
func Ratio(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	lcs := LCS(ra, rb)
	return int(math.Round(100 * 2 * float64(lcs) / float64(len(ra)+len(rb))))
}

// LCS is the length of the longest common subsequence of a and b.
func LCS(a, b []rune) int {
	if len(b) > len(a) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := range a {
		for j := range b {
			switch {
			case a[i] == b[j]:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// EditDistance is the Levenshtein distance between a and b in runes. It is
// a diagnostic; decisions use Ratio.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(a, b)
}

// TokenSortRatio compares a and b independently of word order: both sides are
// tokenized on whitespace, sorted and rejoined before Ratio is applied.
// The score is symmetric and two blank strings score 0.
func TokenSortRatio(a, b string) int {
	return Ratio(TokenSort(a), TokenSort(b))
}

// JaroWinkler is a 0-100 diagnostic score that favours shared prefixes. It is
// reported in match notes, never used for decisions.
func JaroWinkler(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	return int(math.Round(100 * smetrics.JaroWinkler(a, b, 0.7, 4)))
}
