package rating

import (
	"math"

	"arena-ladder/internal/constants"
	"arena-ladder/internal/domain"
)

// Params carries every tunable of the rating formula. One value is shared
// by the live match path, the decay sweep and the recomputation pipeline
// so all of them agree on bounds and sensitivity.
type Params struct {
	StartingRating         int
	MinRating              int
	MaxRating              int
	KFactors               map[domain.MatchType]float64
	PlacementMatches       int
	PlacementAmplification float64
	AIOpponentRating       int
}

func DefaultParams() Params {
	return Params{
		StartingRating:         constants.StartingRating,
		MinRating:              constants.MinRating,
		MaxRating:              constants.MaxRating,
		KFactors: map[domain.MatchType]float64{
			domain.MatchType1v1:  32,
			domain.MatchType2v2:  28,
			domain.MatchType3v3:  24,
			domain.MatchType4v4:  20,
			domain.MatchTypeFFA:  28,
			domain.MatchTypeVsAI: 16,
		},
		PlacementMatches:       constants.PlacementMatches,
		PlacementAmplification: constants.PlacementAmplification,
		AIOpponentRating:       constants.AIOpponentRating,
	}
}

// ExpectedScore is the logistic win probability of a rated player against
// an opponent rating.
func ExpectedScore(rating, opponent int) float64 {
	return 1.0 / (1.0 + math.Pow(10, float64(opponent-rating)/400.0))
}

// Delta computes the signed rating change for one participant of one match.
// It never clamps; the caller applies Clamp at the single clamp point so the
// live path and replay share identical bounds behavior.
func (p Params) Delta(current, opponentAvg int, actual float64, mt domain.MatchType, provisional bool) int {
	k, ok := p.KFactors[mt]
	if !ok {
		k = p.KFactors[domain.MatchType1v1]
	}
	if provisional {
		k *= p.PlacementAmplification
	}
	return int(math.Round(k * (actual - ExpectedScore(current, opponentAvg))))
}

// Clamp bounds a rating into [MinRating, MaxRating].
func (p Params) Clamp(r int) int {
	if r < p.MinRating {
		return p.MinRating
	}
	if r > p.MaxRating {
		return p.MaxRating
	}
	return r
}
