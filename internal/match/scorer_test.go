package match

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leed-ll97/internal/similarity"
)

func TestAddressConfidence(t *testing.T) {
	tests := []struct {
		score, threshold, want int
	}{
		{84, 80, 74},
		{80, 80, 70},
		{100, 80, 89},
		{90, 80, 80},
		{93, 80, 82},
		{92, 80, 81},
		{95, 95, 70},
		{100, 100, 89},
		{60, 80, 70},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AddressConfidence(tt.score, tt.threshold), "score=%d threshold=%d", tt.score, tt.threshold)
	}
}

func TestNameConfidence(t *testing.T) {
	assert.Equal(t, 50, NameConfidence(75, 75))
	assert.Equal(t, 69, NameConfidence(100, 75))
	assert.Equal(t, 63, NameConfidence(92, 75))
	assert.Equal(t, 69, NameConfidence(100, 100))
}

func TestMaxRatioBoundsScore(t *testing.T) {
	pairs := [][2]string{
		{"10 HUDSON YARDS", "10 HUDSON YARD"},
		{"EMPIRE STATE", "EMPIRE STATE BLDG"},
		{"A", "ABCDEFGHIJKLMNOP"},
		{"1 BROADWAY", "2 BROADWAY"},
		{"EMPIRE STATE", "EMPIRE STATE TOWER"},
		{"123 W 57 ST", "123 W 57 STREET"},
	}
	for _, p := range pairs {
		a, b := similarity.TokenSort(p[0]), similarity.TokenSort(p[1])
		assert.GreaterOrEqual(t, maxRatio(len(a), len(b)), similarity.Ratio(a, b), "%q vs %q", a, b)
	}
	assert.Equal(t, 0, maxRatio(0, 5))
	assert.Equal(t, 80, maxRatio(12, 18))
	assert.Equal(t, 100, maxRatio(7, 7))
}

func TestMethodConfidenceRange(t *testing.T) {
	lo, hi := MethodFuzzyAddress.ConfidenceRange()
	assert.Equal(t, []int{70, 89}, []int{lo, hi})
	lo, hi = MethodNone.ConfidenceRange()
	assert.Equal(t, []int{0, 0}, []int{lo, hi})
	assert.True(t, MethodManual.Valid())
	assert.False(t, Method("guess").Valid())
}
