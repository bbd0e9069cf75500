package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"arena-ladder/internal/constants"
	"arena-ladder/internal/logger"
)

type Config struct {
	DBPath     string
	ServerPort string
	LogLevel   string

	StartingRating         int
	MinRating              int
	MaxRating              int
	PlacementMatches       int
	PlacementAmplification float64
	AIOpponentRating       int

	DecayPeriod     time.Duration
	RankChangeGrace time.Duration
	InactivityGrace time.Duration
	DecayPerPeriod  int
	DecayMaxPerRun  int
	DecaySweep      bool

	LadderCacheTTL time.Duration
}

func Load(log zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:     getEnv("DB_PATH", "ladder.db"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),

		StartingRating:         getEnvInt("STARTING_RATING", constants.StartingRating),
		MinRating:              getEnvInt("MIN_RATING", constants.MinRating),
		MaxRating:              getEnvInt("MAX_RATING", constants.MaxRating),
		PlacementMatches:       getEnvInt("PLACEMENT_MATCHES", constants.PlacementMatches),
		PlacementAmplification: getEnvFloat("PLACEMENT_AMPLIFICATION", constants.PlacementAmplification),
		AIOpponentRating:       getEnvInt("AI_OPPONENT_RATING", constants.AIOpponentRating),

		DecayPeriod:     getEnvDuration("DECAY_PERIOD", constants.DecayPeriod),
		RankChangeGrace: getEnvDuration("RANK_CHANGE_GRACE", constants.RankChangeGrace),
		InactivityGrace: getEnvDuration("INACTIVITY_GRACE", constants.InactivityGrace),
		DecayPerPeriod:  getEnvInt("DECAY_PER_PERIOD", constants.DecayPerPeriod),
		DecayMaxPerRun:  getEnvInt("DECAY_MAX_PER_RUN", constants.DecayMaxPerRun),
		DecaySweep:      getEnvBool("DECAY_SWEEP", true),

		LadderCacheTTL: getEnvDuration("LADDER_CACHE_TTL", constants.LadderCacheTTL),
	}

	if err := logger.SetLevel(cfg.LogLevel); err != nil {
		log.Warn().Err(err).Str("log_level", cfg.LogLevel).Msg("invalid log level, keeping default")
	}

	log.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Int("starting_rating", cfg.StartingRating).
		Int("min_rating", cfg.MinRating).
		Int("max_rating", cfg.MaxRating).
		Int("placement_matches", cfg.PlacementMatches).
		Dur("decay_period", cfg.DecayPeriod).
		Bool("decay_sweep", cfg.DecaySweep).
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

var Module = fx.Provide(Load)
