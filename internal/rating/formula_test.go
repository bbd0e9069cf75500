package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-ladder/internal/domain"
)

func TestExpectedScore(t *testing.T) {
	tests := []struct {
		name     string
		rating   int
		opponent int
		want     float64
	}{
		{"equal ratings", 1500, 1500, 0.5},
		{"400 points ahead", 1900, 1500, 10.0 / 11.0},
		{"400 points behind", 1500, 1900, 1.0 / 11.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ExpectedScore(tt.rating, tt.opponent), 1e-9)
		})
	}
}

func TestExpectedScoreComplementary(t *testing.T) {
	// E(a,b) + E(b,a) == 1 for any pair.
	pairs := [][2]int{{1500, 1500}, {1200, 1800}, {100, 3000}, {2399, 2400}}
	for _, p := range pairs {
		assert.InDelta(t, 1.0, ExpectedScore(p[0], p[1])+ExpectedScore(p[1], p[0]), 1e-9)
	}
}

func TestDeltaZeroSumAtEqualRatings(t *testing.T) {
	p := DefaultParams()

	win := p.Delta(1500, 1500, 1, domain.MatchType1v1, false)
	loss := p.Delta(1500, 1500, 0, domain.MatchType1v1, false)

	require.Equal(t, 16, win)
	require.Equal(t, -16, loss)
	assert.Equal(t, 1516, p.Clamp(1500+win))
	assert.Equal(t, 1484, p.Clamp(1500+loss))
}

func TestDeltaProvisionalAmplification(t *testing.T) {
	p := DefaultParams()

	for _, mt := range domain.MatchTypes {
		normal := p.Delta(1500, 1600, 1, mt, false)
		amplified := p.Delta(1500, 1600, 1, mt, true)
		require.Positive(t, normal, "match type %s", mt)
		assert.Greater(t, amplified, normal, "match type %s", mt)

		normalLoss := p.Delta(1500, 1400, 0, mt, false)
		amplifiedLoss := p.Delta(1500, 1400, 0, mt, true)
		require.Negative(t, normalLoss, "match type %s", mt)
		assert.Less(t, amplifiedLoss, normalLoss, "match type %s", mt)
	}
}

func TestDeltaTopologySensitivity(t *testing.T) {
	p := DefaultParams()

	// 1v1 is the most sensitive topology, 4v4 the least, vsAI below both.
	d1v1 := p.Delta(1500, 1700, 1, domain.MatchType1v1, false)
	d4v4 := p.Delta(1500, 1700, 1, domain.MatchType4v4, false)
	dAI := p.Delta(1500, 1700, 1, domain.MatchTypeVsAI, false)
	assert.Greater(t, d1v1, d4v4)
	assert.Greater(t, d4v4, dAI)
}

func TestDeltaUnknownMatchTypeUsesDefaultK(t *testing.T) {
	p := DefaultParams()
	assert.Equal(t,
		p.Delta(1500, 1500, 1, domain.MatchType1v1, false),
		p.Delta(1500, 1500, 1, domain.MatchType("2v2v2"), false))
}

func TestClampBoundedness(t *testing.T) {
	p := DefaultParams()

	// Any sequence of deltas stays inside [MinRating, MaxRating] when
	// applied through the single clamp point.
	r := 1500
	deltas := []int{500, 500, 500, 500, -4000, -100, 9999, 1}
	for _, d := range deltas {
		r = p.Clamp(r + d)
		assert.GreaterOrEqual(t, r, p.MinRating)
		assert.LessOrEqual(t, r, p.MaxRating)
	}
}
