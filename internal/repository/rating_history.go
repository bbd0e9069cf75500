package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"arena-ladder/internal/domain"
)

type RatingHistoryRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRatingHistoryRepository(sqlDB *sql.DB, logger zerolog.Logger) *RatingHistoryRepository {
	return &RatingHistoryRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *RatingHistoryRepository) InsertBatch(ctx context.Context, records []domain.RatingChange) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, record := range records {
		id := record.ID
		if id == "" {
			id, err = gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}
		}
		createdAt := record.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO rating_history
			   (id, match_id, player_id, bucket, rating_before, rating_after, delta, rank_name, rank_changed, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, record.MatchID, record.PlayerID, string(record.Bucket),
			record.RatingBefore, record.RatingAfter, record.Delta,
			record.RankName, record.RankChanged, createdAt)
		if err != nil {
			return fmt.Errorf("failed to insert rating history: %w", err)
		}
	}

	return tx.Commit()
}

func (r *RatingHistoryRepository) ForPlayer(ctx context.Context, playerID string, limit int) ([]domain.RatingChange, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, match_id, player_id, bucket, rating_before, rating_after, delta, rank_name, rank_changed, created_at
		 FROM rating_history
		 WHERE player_id = ?
		 ORDER BY created_at DESC
		 LIMIT ?`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rating history: %w", err)
	}
	defer rows.Close()

	var records []domain.RatingChange
	for rows.Next() {
		var rec domain.RatingChange
		var bucket string
		if err := rows.Scan(&rec.ID, &rec.MatchID, &rec.PlayerID, &bucket,
			&rec.RatingBefore, &rec.RatingAfter, &rec.Delta,
			&rec.RankName, &rec.RankChanged, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Bucket = domain.MatchType(bucket)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteAll clears the history before a full recomputation rewrites it.
func (r *RatingHistoryRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM rating_history`); err != nil {
		return fmt.Errorf("failed to clear rating history: %w", err)
	}
	r.logger.Info().Msg("rating history cleared")
	return nil
}
