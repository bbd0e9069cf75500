package rating

import "arena-ladder/internal/domain"

// PlacementTracker reads and advances the per-bucket rated-match counters
// that drive provisional status. The match that crosses the threshold is
// itself still rated as provisional: RecordMatch runs after the delta for
// that match has been computed.
type PlacementTracker struct {
	threshold int
}

func NewPlacementTracker(threshold int) PlacementTracker {
	return PlacementTracker{threshold: threshold}
}

func (t PlacementTracker) IsProvisional(p *domain.Player, bucket domain.MatchType) bool {
	b, ok := p.Ratings[bucket]
	if !ok {
		return true
	}
	return b.Matches < t.threshold
}

// RecordMatch advances the bucket counters for one rated match, keeping
// wins+losses+draws equal to matches.
func (t PlacementTracker) RecordMatch(b *domain.BucketRating, score float64) {
	b.Matches++
	switch {
	case score > 0.5:
		b.Wins++
	case score < 0.5:
		b.Losses++
	default:
		b.Draws++
	}
}
