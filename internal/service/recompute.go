package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"arena-ladder/internal/constants"
	"arena-ladder/internal/domain"
	"arena-ladder/internal/rating"
)

// RecomputeService rebuilds every player's rating from the verified match
// log, and migrates ratings to a new scale. Both are rare maintenance
// operations; a run excludes all other write paths and processes matches
// strictly one at a time in timestamp order, because each delta depends on
// the ratings produced by every earlier match.
type RecomputeService struct {
	players PlayerStore
	matches MatchStore
	history HistoryStore
	ladder  *LadderService
	params  rating.Params
	table   rating.RankTable
	logger  zerolog.Logger
}

func NewRecomputeService(
	players PlayerStore,
	matches MatchStore,
	history HistoryStore,
	ladder *LadderService,
	params rating.Params,
	table rating.RankTable,
	logger zerolog.Logger,
) *RecomputeService {
	return &RecomputeService{
		players: players,
		matches: matches,
		history: history,
		ladder:  ladder,
		params:  params,
		table:   table,
		logger:  logger,
	}
}

// RecomputeAll resets every player to the starting state and replays the
// full verified match log in ascending timestamp order through the same
// apply step as the live path. Identical log and starting state produce
// identical final ratings however many times it runs.
func (s *RecomputeService) RecomputeAll(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RecomputeTimeout)
	defer cancel()

	unlock := s.ladder.locks.lockAll()
	defer unlock()

	started := time.Now()
	s.logger.Info().Msg("full rating recomputation started")

	startRank := s.table.RankForRating(s.params.StartingRating).Name
	if err := s.players.ResetAll(ctx, s.params.StartingRating, startRank); err != nil {
		return fmt.Errorf("failed to reset players: %w", err)
	}
	if err := s.history.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	existing, err := s.players.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}
	players := make(map[string]*domain.Player, len(existing))
	for _, p := range existing {
		p.OverallRating = s.params.StartingRating
		p.RankName = startRank
		p.Ratings = make(map[domain.MatchType]*domain.BucketRating)
		players[p.ID] = p
	}

	processed := 0
	err = s.matches.ForEachVerified(ctx, func(m *domain.Match) error {
		changes := s.ladder.applyMatch(m, players)
		processed++
		if len(changes) == 0 {
			return nil
		}
		if err := s.matches.WriteSnapshots(ctx, m); err != nil {
			return err
		}
		return s.history.InsertBatch(ctx, changes)
	})
	if err != nil {
		return fmt.Errorf("recomputation aborted after %d matches: %w", processed, err)
	}

	all := make([]*domain.Player, 0, len(players))
	for _, p := range existing {
		all = append(all, p)
	}
	if err := s.players.UpsertBatch(ctx, all); err != nil {
		return fmt.Errorf("failed to persist recomputed players: %w", err)
	}

	s.logger.Info().
		Int("matches_replayed", processed).
		Int("players", len(all)).
		Dur("took", time.Since(started)).
		Msg("full rating recomputation completed")
	return nil
}

// RescaleFunc is a monotonic transform from the old rating scale to the new one.
type RescaleFunc func(int) int

// PowerCurve builds a monotonic power transform mapping [oldMin, oldMax]
// onto [newMin, newMax]; exponents below 1 compress the top of the range.
func PowerCurve(oldMin, oldMax, newMin, newMax int, exponent float64) RescaleFunc {
	return func(r int) int {
		t := float64(r-oldMin) / float64(oldMax-oldMin)
		if t < 0 {
			t = 0
		}
		if t > 1 {
			t = 1
		}
		return newMin + int(math.Round(math.Pow(t, exponent)*float64(newMax-newMin)))
	}
}

// Rescale applies a monotonic transform to every rating and re-derives
// tiers. Buckets with fewer rated matches than resetPlacementFloor get
// their counters zeroed so those players re-calibrate under the new scale;
// pass 0 to keep all counters.
func (s *RecomputeService) Rescale(ctx context.Context, transform RescaleFunc, resetPlacementFloor int) error {
	ctx, cancel := context.WithTimeout(ctx, constants.RecomputeTimeout)
	defer cancel()

	unlock := s.ladder.locks.lockAll()
	defer unlock()

	players, err := s.players.All(ctx)
	if err != nil {
		return fmt.Errorf("failed to load players: %w", err)
	}

	rescaled := 0
	for _, player := range players {
		for _, b := range player.Ratings {
			b.Rating = s.params.Clamp(transform(b.Rating))
			if resetPlacementFloor > 0 && b.Matches < resetPlacementFloor {
				b.Matches, b.Wins, b.Losses, b.Draws = 0, 0, 0, 0
			}
		}
		player.RecomputeOverall(s.params.StartingRating)
		player.RankName = s.table.RankForRating(player.OverallRating).Name
		rescaled++
	}

	if err := s.players.UpsertBatch(ctx, players); err != nil {
		return fmt.Errorf("failed to persist rescaled players: %w", err)
	}

	s.logger.Info().
		Int("players", rescaled).
		Int("reset_placement_floor", resetPlacementFloor).
		Msg("rating rescale completed")
	return nil
}
