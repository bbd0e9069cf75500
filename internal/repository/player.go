package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"arena-ladder/internal/constants"
	"arena-ladder/internal/domain"
)

type PlayerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayerRepository {
	return &PlayerRepository{
		db:     sqlDB,
		logger: logger,
	}
}

const playerColumns = `id, name, overall_rating, rank_name, last_active, last_rank_change, last_decay_check, created_at, updated_at`

func (r *PlayerRepository) Get(ctx context.Context, id string) (*domain.Player, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = ?`, id)

	player, err := scanPlayer(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadRatings(ctx, player); err != nil {
		return nil, err
	}
	return player, nil
}

// GetBatch loads the given players and their rating buckets in one pass.
// Missing IDs are simply absent from the result; the caller decides whether
// that is a data-quality problem.
func (r *PlayerRepository) GetBatch(ctx context.Context, ids []string) (map[string]*domain.Player, error) {
	players := make(map[string]*domain.Player, len(ids))
	for _, id := range ids {
		if _, ok := players[id]; ok {
			continue
		}
		p, err := r.Get(ctx, id)
		if err == sql.ErrNoRows {
			r.logger.Warn().Str("player_id", id).Msg("player referenced but not found")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load player %s: %w", id, err)
		}
		players[id] = p
	}
	return players, nil
}

func (r *PlayerRepository) Create(ctx context.Context, player *domain.Player) error {
	now := time.Now().UTC()
	player.CreatedAt = now
	player.UpdatedAt = now
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO players (`+playerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		player.ID, player.Name, player.OverallRating, player.RankName,
		player.LastActive, player.LastRankChange, player.LastDecayCheck,
		player.CreatedAt, player.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("player_id", player.ID).Msg("failed to create player")
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

// Upsert writes a player and all rating buckets in a single transaction so
// the decay sweep and the live path never see a half-written player.
func (r *PlayerRepository) Upsert(ctx context.Context, player *domain.Player) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertPlayerTx(ctx, tx, player); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PlayerRepository) UpsertBatch(ctx context.Context, players []*domain.Player) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i < len(players); i += constants.DBBatchSize {
		end := i + constants.DBBatchSize
		if end > len(players) {
			end = len(players)
		}
		for _, player := range players[i:end] {
			if err := upsertPlayerTx(ctx, tx, player); err != nil {
				return fmt.Errorf("failed to upsert player %s: %w", player.ID, err)
			}
		}
	}

	return tx.Commit()
}

func upsertPlayerTx(ctx context.Context, tx *sql.Tx, player *domain.Player) error {
	player.UpdatedAt = time.Now().UTC()
	if player.CreatedAt.IsZero() {
		player.CreatedAt = player.UpdatedAt
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO players (`+playerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   overall_rating = excluded.overall_rating,
		   rank_name = excluded.rank_name,
		   last_active = excluded.last_active,
		   last_rank_change = excluded.last_rank_change,
		   last_decay_check = excluded.last_decay_check,
		   updated_at = excluded.updated_at`,
		player.ID, player.Name, player.OverallRating, player.RankName,
		player.LastActive, player.LastRankChange, player.LastDecayCheck,
		player.CreatedAt, player.UpdatedAt)
	if err != nil {
		return err
	}

	for _, b := range player.Ratings {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO player_ratings (player_id, bucket, rating, matches, wins, losses, draws)
			 VALUES (?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(player_id, bucket) DO UPDATE SET
			   rating = excluded.rating,
			   matches = excluded.matches,
			   wins = excluded.wins,
			   losses = excluded.losses,
			   draws = excluded.draws`,
			player.ID, string(b.Bucket), b.Rating, b.Matches, b.Wins, b.Losses, b.Draws)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *PlayerRepository) All(ctx context.Context) ([]*domain.Player, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+playerColumns+` FROM players ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	var players []*domain.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range players {
		if err := r.loadRatings(ctx, p); err != nil {
			return nil, err
		}
	}
	return players, nil
}

// ResetAll returns every player to the starting state before a full
// recomputation: starting rating, lowest rank, zeroed bucket counters.
func (r *PlayerRepository) ResetAll(ctx context.Context, startingRating int, rankName string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET overall_rating = ?, rank_name = ?, updated_at = ?`,
		startingRating, rankName, now); err != nil {
		return fmt.Errorf("failed to reset players: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_ratings`); err != nil {
		return fmt.Errorf("failed to reset player ratings: %w", err)
	}

	r.logger.Info().Int("starting_rating", startingRating).Msg("all players reset to starting state")
	return tx.Commit()
}

// Leaderboard returns the top players by overall rating, or by bucket
// rating when a bucket is given.
func (r *PlayerRepository) Leaderboard(ctx context.Context, bucket domain.MatchType, limit int) ([]*domain.Player, error) {
	var rows *sql.Rows
	var err error
	if bucket == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+playerColumns+` FROM players ORDER BY overall_rating DESC, id LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT p.id, p.name, p.overall_rating, p.rank_name, p.last_active,
			        p.last_rank_change, p.last_decay_check, p.created_at, p.updated_at
			 FROM players p
			 JOIN player_ratings b ON b.player_id = p.id AND b.bucket = ?
			 WHERE b.matches > 0
			 ORDER BY b.rating DESC, p.id LIMIT ?`, string(bucket), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var players []*domain.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range players {
		if err := r.loadRatings(ctx, p); err != nil {
			return nil, err
		}
	}
	return players, nil
}

func (r *PlayerRepository) loadRatings(ctx context.Context, player *domain.Player) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT bucket, rating, matches, wins, losses, draws
		 FROM player_ratings WHERE player_id = ?`, player.ID)
	if err != nil {
		return fmt.Errorf("failed to load ratings for %s: %w", player.ID, err)
	}
	defer rows.Close()

	player.Ratings = make(map[domain.MatchType]*domain.BucketRating)
	for rows.Next() {
		var b domain.BucketRating
		var bucket string
		if err := rows.Scan(&bucket, &b.Rating, &b.Matches, &b.Wins, &b.Losses, &b.Draws); err != nil {
			return err
		}
		b.Bucket = domain.MatchType(bucket)
		player.Ratings[b.Bucket] = &b
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row rowScanner) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(&p.ID, &p.Name, &p.OverallRating, &p.RankName,
		&p.LastActive, &p.LastRankChange, &p.LastDecayCheck, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
