package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankForRatingBoundaries(t *testing.T) {
	table := DefaultRankTable()

	tests := []struct {
		name   string
		rating int
		want   string
	}{
		{"below every threshold", -50, "Peasant"},
		{"at lowest threshold", 0, "Peasant"},
		{"just under a threshold", 1199, "Peasant"},
		{"exactly at a threshold belongs to the tier it defines", 1200, "Footman"},
		{"inside a tier", 1750, "Knight"},
		{"at top threshold", 2400, "Grand Marshal"},
		{"above everything", 9000, "Grand Marshal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, table.RankForRating(tt.rating).Name)
		})
	}
}

func TestRankForRatingTotality(t *testing.T) {
	table := DefaultRankTable()
	p := DefaultParams()

	// Defined and unique for every rating in the clamped domain.
	for r := p.MinRating; r <= p.MaxRating; r++ {
		tier := table.RankForRating(r)
		require.NotEmpty(t, tier.Name)
		require.LessOrEqual(t, tier.MinRating, r)
	}
}

func TestNewRankTableSortsTiers(t *testing.T) {
	table := NewRankTable([]Tier{
		{Name: "High", MinRating: 2000},
		{Name: "Low", MinRating: 0},
		{Name: "Mid", MinRating: 1000},
	})
	assert.Equal(t, "Low", table.RankForRating(500).Name)
	assert.Equal(t, "Mid", table.RankForRating(1000).Name)
	assert.Equal(t, "High", table.RankForRating(2500).Name)
	assert.Equal(t, 2, table.TierIndex(2500))
}
