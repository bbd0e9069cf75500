package fx

import (
	"arena-ladder/internal/clock"
	"arena-ladder/internal/config"
	"arena-ladder/internal/database"
	"arena-ladder/internal/logger"
	"arena-ladder/internal/rating"
	"arena-ladder/internal/repository"
	"arena-ladder/internal/scheduler"
	"arena-ladder/internal/server"
	"arena-ladder/internal/service"

	"go.uber.org/fx"
)

func ProvideRatingParams(cfg *config.Config) rating.Params {
	params := rating.DefaultParams()
	params.StartingRating = cfg.StartingRating
	params.MinRating = cfg.MinRating
	params.MaxRating = cfg.MaxRating
	params.PlacementMatches = cfg.PlacementMatches
	params.PlacementAmplification = cfg.PlacementAmplification
	params.AIOpponentRating = cfg.AIOpponentRating
	return params
}

func ProvidePlayerStore(r *repository.PlayerRepository) service.PlayerStore { return r }

func ProvideMatchStore(r *repository.MatchRepository) service.MatchStore { return r }

func ProvideHistoryStore(r *repository.RatingHistoryRepository) service.HistoryStore { return r }

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(clock.System),
	fx.Provide(rating.DefaultRankTable),
	fx.Provide(ProvideRatingParams),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewRatingHistoryRepository),
	fx.Provide(ProvidePlayerStore),
	fx.Provide(ProvideMatchStore),
	fx.Provide(ProvideHistoryStore),
	// svc
	fx.Provide(service.NewLadderService),
	fx.Provide(service.NewDecayService),
	fx.Provide(service.NewRecomputeService),
	fx.Provide(scheduler.New),
	// server
	fx.Provide(server.NewLadderServer),
)
