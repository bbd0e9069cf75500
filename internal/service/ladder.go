package service

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"arena-ladder/internal/constants"
	"arena-ladder/internal/domain"
	"arena-ladder/internal/rating"
)

// LadderService owns the live rating path: a match is reported, verified,
// and applied once to the players it lists. The same apply step is reused
// by the recomputation pipeline so live updates and replay share one clamp
// point and one set of rules.
type LadderService struct {
	players    PlayerStore
	matches    MatchStore
	history    HistoryStore
	resolver   *rating.OutcomeResolver
	params     rating.Params
	table      rating.RankTable
	placements rating.PlacementTracker
	locks      *playerLocks
	logger     zerolog.Logger
}

func NewLadderService(
	players PlayerStore,
	matches MatchStore,
	history HistoryStore,
	params rating.Params,
	table rating.RankTable,
	logger zerolog.Logger,
) *LadderService {
	return &LadderService{
		players:    players,
		matches:    matches,
		history:    history,
		resolver:   rating.NewOutcomeResolver(logger),
		params:     params,
		table:      table,
		placements: rating.NewPlacementTracker(params.PlacementMatches),
		locks:      newPlayerLocks(),
		logger:     logger,
	}
}

// ReportMatch stores a new match in the log. Unverified matches never
// touch ratings.
func (s *LadderService) ReportMatch(ctx context.Context, m *domain.Match) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if !m.MatchType.Valid() {
		return fmt.Errorf("invalid match type %q", m.MatchType)
	}
	if len(m.Participants) == 0 {
		return fmt.Errorf("match has no participants")
	}
	if m.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate match id: %w", err)
		}
		m.ID = id
	}
	if m.PlayedAt.IsZero() {
		m.PlayedAt = time.Now().UTC()
	}
	if m.Verification == "" {
		m.Verification = domain.VerificationPending
	}

	if err := s.matches.Insert(ctx, m); err != nil {
		s.logger.Error().Err(err).Str("match_id", m.ID).Msg("failed to store match")
		return err
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Str("match_type", string(m.MatchType)).
		Int("participants", len(m.Participants)).
		Msg("match reported")
	return nil
}

// VerifyMatch flips a match to verified and applies it to its players.
// Verification is a one-way transition: a match that is already verified
// has already rated its players and must not be applied again.
func (s *LadderService) VerifyMatch(ctx context.Context, matchID string) ([]domain.RatingChange, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if err := s.matches.SetVerification(ctx, matchID, domain.VerificationVerified); err != nil {
		return nil, fmt.Errorf("failed to verify match %s: %w", matchID, err)
	}
	return s.ApplyMatchToPlayers(ctx, matchID)
}

// ApplyMatchToPlayers runs the live path for one verified match: resolve
// outcomes, compute deltas, update every listed player exactly once, and
// persist players, participant snapshots and history atomically enough
// that no player update is silently lost.
func (s *LadderService) ApplyMatchToPlayers(ctx context.Context, matchID string) ([]domain.RatingChange, error) {
	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load match %s: %w", matchID, err)
	}
	if m.Verification != domain.VerificationVerified {
		return nil, fmt.Errorf("match %s is not verified", matchID)
	}

	ids := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		if !p.IsAI && p.PlayerID != "" {
			ids = append(ids, p.PlayerID)
		}
	}
	unlock := s.locks.lockPlayers(ids)
	defer unlock()

	players, err := s.players.GetBatch(ctx, ids)
	if err != nil {
		return nil, err
	}

	changes := s.applyMatch(m, players)
	if len(changes) == 0 {
		s.logger.Warn().Str("match_id", m.ID).Msg("match produced no rating changes")
		return nil, nil
	}

	updated := make([]*domain.Player, 0, len(changes))
	for _, c := range changes {
		updated = append(updated, players[c.PlayerID])
	}
	if err := s.players.UpsertBatch(ctx, updated); err != nil {
		return nil, fmt.Errorf("failed to persist player updates: %w", err)
	}
	if err := s.matches.WriteSnapshots(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to persist rating snapshots: %w", err)
	}
	if err := s.history.InsertBatch(ctx, changes); err != nil {
		return nil, fmt.Errorf("failed to persist rating history: %w", err)
	}

	s.logger.Info().
		Str("match_id", m.ID).
		Int("players_updated", len(changes)).
		Msg("match applied to players")
	return changes, nil
}

// applyMatch is the single match-processing step shared by the live path
// and the recomputation pipeline. It mutates the given players and the
// match's participant snapshots in memory and returns the change records;
// persistence is the caller's job. All deltas are computed against the
// ratings as they stood before this match, then applied together.
func (s *LadderService) applyMatch(m *domain.Match, players map[string]*domain.Player) []domain.RatingChange {
	scores := s.resolver.Resolve(m)
	if len(scores) == 0 {
		return nil
	}
	bucket := m.MatchType

	// Ratings as of before this match, per slot. AI slots rate at the
	// configured AI opponent rating. A listed player whose record is gone
	// still anchors the opponent average, at the starting rating, so the
	// surviving participants keep rating against something.
	before := make(map[int]int, len(m.Participants))
	for _, p := range m.Participants {
		switch {
		case p.IsAI:
			before[p.Slot] = s.params.AIOpponentRating
		case p.PlayerID != "":
			if player, ok := players[p.PlayerID]; ok {
				before[p.Slot] = player.Bucket(bucket, s.params.StartingRating).Rating
			} else {
				before[p.Slot] = s.params.StartingRating
			}
		}
	}

	var changes []domain.RatingChange
	for i := range m.Participants {
		p := &m.Participants[i]
		score, rated := scores[p.Slot]
		if !rated {
			continue
		}
		player, ok := players[p.PlayerID]
		if !ok {
			// Missing player: skip this participant, keep the rest.
			s.logger.Warn().
				Str("match_id", m.ID).
				Str("player_id", p.PlayerID).
				Msg("participant player not found, skipped for rating")
			continue
		}

		oppAvg, ok := opponentAverage(m, *p, before)
		if !ok {
			s.logger.Warn().
				Str("match_id", m.ID).
				Str("player_id", p.PlayerID).
				Msg("no resolvable opponents, participant skipped for rating")
			continue
		}

		b := player.Bucket(bucket, s.params.StartingRating)
		provisional := s.placements.IsProvisional(player, bucket)
		delta := s.params.Delta(b.Rating, oppAvg, score, bucket, provisional)
		after := s.params.Clamp(b.Rating + delta)

		p.RatingBefore = b.Rating
		p.RatingAfter = after
		change := domain.RatingChange{
			MatchID:      m.ID,
			PlayerID:     player.ID,
			Bucket:       bucket,
			RatingBefore: b.Rating,
			RatingAfter:  after,
			Delta:        after - b.Rating,
			CreatedAt:    m.PlayedAt,
		}

		b.Rating = after
		s.placements.RecordMatch(b, score)

		oldRank := player.RankName
		player.RecomputeOverall(s.params.StartingRating)
		player.RankName = s.table.RankForRating(player.OverallRating).Name
		player.LastActive = m.PlayedAt
		if player.RankName != oldRank {
			player.LastRankChange = m.PlayedAt
		}
		change.RankName = player.RankName
		change.RankChanged = player.RankName != oldRank

		changes = append(changes, change)
	}
	return changes
}

// opponentAverage computes the mean before-match rating of a participant's
// opponents: everyone not on the participant's team when team numbers are
// present (team and co-op vs-AI matches), everyone else otherwise (1v1, FFA).
func opponentAverage(m *domain.Match, self domain.Participant, before map[int]int) (int, bool) {
	sum, n := 0, 0
	for _, other := range m.Participants {
		if other.Slot == self.Slot {
			continue
		}
		r, ok := before[other.Slot]
		if !ok {
			continue
		}
		if self.Team != 0 && other.Team == self.Team {
			continue
		}
		sum += r
		n++
	}
	if n == 0 {
		return 0, false
	}
	return (sum + n/2) / n, true
}

// GetPlayer returns a player with all rating buckets loaded.
func (s *LadderService) GetPlayer(ctx context.Context, id string) (*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.players.Get(ctx, id)
}

// History returns a player's most recent rating changes.
func (s *LadderService) History(ctx context.Context, playerID string, limit int) ([]domain.RatingChange, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	return s.history.ForPlayer(ctx, playerID, limit)
}

// Leaderboard returns the top players by bucket (or overall when empty).
func (s *LadderService) Leaderboard(ctx context.Context, bucket domain.MatchType, limit int) ([]*domain.Player, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()
	if bucket != "" && !bucket.Valid() {
		return nil, fmt.Errorf("invalid bucket %q", bucket)
	}
	return s.players.Leaderboard(ctx, bucket, limit)
}
