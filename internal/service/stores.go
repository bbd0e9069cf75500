package service

import (
	"context"
	"time"

	"arena-ladder/internal/domain"
)

// The engine treats persistence as abstract reads/writes of the ladder
// entities; the sqlite repositories implement these.

type PlayerStore interface {
	Get(ctx context.Context, id string) (*domain.Player, error)
	GetBatch(ctx context.Context, ids []string) (map[string]*domain.Player, error)
	Upsert(ctx context.Context, player *domain.Player) error
	UpsertBatch(ctx context.Context, players []*domain.Player) error
	All(ctx context.Context) ([]*domain.Player, error)
	ResetAll(ctx context.Context, startingRating int, rankName string) error
	Leaderboard(ctx context.Context, bucket domain.MatchType, limit int) ([]*domain.Player, error)
}

type MatchStore interface {
	Get(ctx context.Context, id string) (*domain.Match, error)
	Insert(ctx context.Context, m *domain.Match) error
	SetVerification(ctx context.Context, id string, status domain.VerificationStatus) error
	WriteSnapshots(ctx context.Context, m *domain.Match) error
	ForEachVerified(ctx context.Context, fn func(*domain.Match) error) error
	CountVerifiedForPlayerSince(ctx context.Context, playerID string, since time.Time, gameType string) (int, error)
}

type HistoryStore interface {
	InsertBatch(ctx context.Context, records []domain.RatingChange) error
	ForPlayer(ctx context.Context, playerID string, limit int) ([]domain.RatingChange, error)
	DeleteAll(ctx context.Context) error
}
