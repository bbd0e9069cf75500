package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"arena-ladder/internal/clock"
	"arena-ladder/internal/config"
	"arena-ladder/internal/constants"
	"arena-ladder/internal/domain"
	"arena-ladder/internal/rating"
)

const decaySweepConcurrency = 8

// DecayService reduces the ratings of players who fall below the activity
// quota for their rank tier. It is driven by an external periodic trigger;
// each run produces a structured report.
type DecayService struct {
	players PlayerStore
	matches MatchStore
	params  rating.Params
	table   rating.RankTable
	quotas  []int // matches required per period, indexed by tier
	locks   *playerLocks
	clock   clock.Clock

	period          time.Duration
	rankChangeGrace time.Duration
	inactivityGrace time.Duration
	perPeriod       int
	maxPerRun       int

	logger zerolog.Logger
}

// DefaultActivityQuotas returns the per-tier matches-per-period quota.
// The bottom tiers never decay; quotas grow with rank.
func DefaultActivityQuotas(table rating.RankTable) []int {
	tiers := table.Tiers()
	quotas := make([]int, len(tiers))
	for i := range tiers {
		switch {
		case i < 2:
			quotas[i] = 0
		case i < 4:
			quotas[i] = 1
		case i < 6:
			quotas[i] = 2
		default:
			quotas[i] = 3
		}
	}
	return quotas
}

func NewDecayService(
	players PlayerStore,
	matches MatchStore,
	ladder *LadderService,
	params rating.Params,
	table rating.RankTable,
	cfg *config.Config,
	clk clock.Clock,
	logger zerolog.Logger,
) *DecayService {
	return &DecayService{
		players:         players,
		matches:         matches,
		params:          params,
		table:           table,
		quotas:          DefaultActivityQuotas(table),
		locks:           ladder.locks,
		clock:           clk,
		period:          cfg.DecayPeriod,
		rankChangeGrace: cfg.RankChangeGrace,
		inactivityGrace: cfg.InactivityGrace,
		perPeriod:       cfg.DecayPerPeriod,
		maxPerRun:       cfg.DecayMaxPerRun,
		logger:          logger,
	}
}

// RunSweep checks every player once. Per-player work is independent, so
// players are processed in parallel; each player's read-modify-write holds
// that player's lock so a live match update cannot interleave with it.
// An empty gameType counts activity across all games.
func (s *DecayService) RunSweep(ctx context.Context, gameType string) (*domain.DecayReport, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.SweepTimeout)
	defer cancel()

	now := s.clock.Now()
	report := &domain.DecayReport{StartedAt: now}

	players, err := s.players.All(ctx)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(decaySweepConcurrency)

	for _, player := range players {
		g.Go(func() error {
			detail, err := s.checkPlayer(gctx, player, now, gameType)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			report.PlayersChecked++
			switch detail.Action {
			case domain.DecayActionActive:
				report.PlayersActive++
			case domain.DecayActionSkipped:
				report.PlayersSkipped++
			case domain.DecayActionWarned:
				report.PlayersWarned++
			case domain.DecayActionDecayed:
				report.PlayersDecayed++
				report.TotalRatingRemoved += detail.Penalty
			}
			report.Details = append(report.Details, detail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(report.Details, func(i, j int) bool {
		return report.Details[i].PlayerID < report.Details[j].PlayerID
	})
	report.FinishedAt = s.clock.Now()

	s.logger.Info().
		Int("checked", report.PlayersChecked).
		Int("active", report.PlayersActive).
		Int("skipped", report.PlayersSkipped).
		Int("warned", report.PlayersWarned).
		Int("decayed", report.PlayersDecayed).
		Int("total_rating_removed", report.TotalRatingRemoved).
		Msg("decay sweep completed")
	return report, nil
}

func (s *DecayService) checkPlayer(ctx context.Context, player *domain.Player, now time.Time, gameType string) (domain.DecayDetail, error) {
	unlock := s.locks.lockPlayers([]string{player.ID})
	defer unlock()

	detail := domain.DecayDetail{
		PlayerID:     player.ID,
		RatingBefore: player.OverallRating,
		RatingAfter:  player.OverallRating,
		RankName:     player.RankName,
	}

	// Freshly promoted players are protected.
	if now.Sub(player.LastRankChange) < s.rankChangeGrace {
		detail.Action = domain.DecayActionSkipped
		return detail, nil
	}

	quota := s.quotaForRating(player.OverallRating)
	if quota == 0 {
		// Tier has no activity requirement.
		detail.Action = domain.DecayActionActive
		return detail, nil
	}

	played, err := s.matches.CountVerifiedForPlayerSince(ctx, player.ID, now.Add(-s.period), gameType)
	if err != nil {
		return detail, err
	}
	if played >= quota {
		detail.Action = domain.DecayActionActive
		player.LastDecayCheck = now
		if err := s.players.Upsert(ctx, player); err != nil {
			return detail, err
		}
		return detail, nil
	}

	// Quota unmet. Within the inactivity grace window this is only a warning.
	if now.Sub(player.LastActive) <= s.inactivityGrace {
		detail.Action = domain.DecayActionWarned
		s.logger.Warn().
			Str("player_id", player.ID).
			Int("played", played).
			Int("quota", quota).
			Msg("activity quota unmet, decay warning")
		return detail, nil
	}

	// Penalize elapsed whole periods since the last decay write (or since
	// the grace window closed), capped per run.
	base := player.LastDecayCheck
	if graceEnd := player.LastActive.Add(s.inactivityGrace); graceEnd.After(base) {
		base = graceEnd
	}
	periods := int(now.Sub(base) / s.period)
	if periods < 1 {
		detail.Action = domain.DecayActionWarned
		return detail, nil
	}
	penalty := periods * s.perPeriod
	if penalty > s.maxPerRun {
		penalty = s.maxPerRun
	}

	for _, b := range player.Ratings {
		if b.Matches > 0 {
			b.Rating = s.params.Clamp(b.Rating - penalty)
		}
	}
	oldRank := player.RankName
	player.RecomputeOverall(s.params.StartingRating)
	player.RankName = s.table.RankForRating(player.OverallRating).Name
	if player.RankName != oldRank {
		player.LastRankChange = now
	}
	player.LastDecayCheck = now

	if err := s.players.Upsert(ctx, player); err != nil {
		return detail, err
	}

	detail.Action = domain.DecayActionDecayed
	detail.Periods = periods
	detail.Penalty = detail.RatingBefore - player.OverallRating
	detail.RatingAfter = player.OverallRating
	detail.RankName = player.RankName

	s.logger.Info().
		Str("player_id", player.ID).
		Int("periods", periods).
		Int("penalty", penalty).
		Int("rating_before", detail.RatingBefore).
		Int("rating_after", detail.RatingAfter).
		Msg("player rating decayed")
	return detail, nil
}

func (s *DecayService) quotaForRating(r int) int {
	idx := s.table.TierIndex(r)
	if idx < 0 || idx >= len(s.quotas) {
		return 0
	}
	return s.quotas[idx]
}
