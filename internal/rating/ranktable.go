package rating

import "sort"

type Tier struct {
	Name      string
	MinRating int
	Icon      string
}

// RankTable is an ascending list of rating tiers. Rank is always derived
// from rating through it, never stored independently.
type RankTable struct {
	tiers []Tier
}

func NewRankTable(tiers []Tier) RankTable {
	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].MinRating < sorted[j].MinRating })
	return RankTable{tiers: sorted}
}

func DefaultRankTable() RankTable {
	return NewRankTable([]Tier{
		{Name: "Peasant", MinRating: 0, Icon: "rank_peasant.png"},
		{Name: "Footman", MinRating: 1200, Icon: "rank_footman.png"},
		{Name: "Grunt", MinRating: 1400, Icon: "rank_grunt.png"},
		{Name: "Knight", MinRating: 1600, Icon: "rank_knight.png"},
		{Name: "Ogre", MinRating: 1800, Icon: "rank_ogre.png"},
		{Name: "Champion", MinRating: 2000, Icon: "rank_champion.png"},
		{Name: "Warlord", MinRating: 2200, Icon: "rank_warlord.png"},
		{Name: "Grand Marshal", MinRating: 2400, Icon: "rank_grand_marshal.png"},
	})
}

// RankForRating returns the highest tier whose threshold the rating meets.
// A rating exactly at a threshold belongs to the tier it defines. Ratings
// below every threshold fall into the lowest tier.
func (t RankTable) RankForRating(r int) Tier {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if t.tiers[i].MinRating <= r {
			return t.tiers[i]
		}
	}
	return t.tiers[0]
}

// TierIndex returns the position of the rating's tier, lowest tier first.
func (t RankTable) TierIndex(r int) int {
	for i := len(t.tiers) - 1; i >= 0; i-- {
		if t.tiers[i].MinRating <= r {
			return i
		}
	}
	return 0
}

func (t RankTable) Tiers() []Tier {
	out := make([]Tier, len(t.tiers))
	copy(out, t.tiers)
	return out
}
