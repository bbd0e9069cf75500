package constants

import "time"

const (
	StartingRating = 1500
	MinRating      = 100
	MaxRating      = 3000
)

const (
	PlacementMatches       = 10
	PlacementAmplification = 2.0
	AIOpponentRating       = 1500
	RescalePlacementFloor  = 5
)

const (
	DecayPeriod     = 7 * 24 * time.Hour
	RankChangeGrace = 14 * 24 * time.Hour
	InactivityGrace = 14 * 24 * time.Hour
	DecayPerPeriod  = 25
	DecayMaxPerRun  = 100
)

const (
	LadderCacheTTL  = 2 * time.Minute
	LadderPageLimit = 100
)

const (
	DatabaseTimeout  = 5 * time.Second
	RequestTimeout   = 30 * time.Second
	SweepTimeout     = 5 * time.Minute
	RecomputeTimeout = 30 * time.Minute
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)
