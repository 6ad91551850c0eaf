package match

import (
	"math"

	"github.com/leed-ll97/internal/similarity"
)

// Scorer returns a 0-100 similarity for two normalized strings.
type Scorer func(a, b string) int

// DefaultScorer is the order-invariant token-sort ratio.
var DefaultScorer Scorer = similarity.TokenSortRatio

// AddressConfidence maps a fuzzy address score at or above threshold onto
// the [70,89] confidence band.
func AddressConfidence(score, threshold int) int {
	return bandConfidence(score, threshold, 70, 89)
}

// NameConfidence maps a fuzzy name score at or above threshold onto the
// [50,69] confidence band.
func NameConfidence(score, threshold int) int {
	return bandConfidence(score, threshold, 50, 69)
}

// bandConfidence linearly maps [threshold,100] onto [lo,hi], clamped.
func bandConfidence(score, threshold, lo, hi int) int {
	if threshold >= 100 {
		return hi
	}
	frac := float64(score-threshold) / float64(100-threshold)
	c := lo + int(math.Round(frac*float64(hi-lo)))
	if c < lo {
		return lo
	}
	if c > hi {
		return hi
	}
	return c
}

// maxRatio bounds the token-sort ratio of two strings from their rune
// lengths: the common subsequence is at most the shorter string.
func maxRatio(la, lb int) int {
	if la == 0 || lb == 0 {
		return 0
	}
	return int(math.Ceil(100 * 2 * float64(min(la, lb)) / float64(la+lb)))
}
