package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"arena-ladder/internal/domain"
)

type MatchRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewMatchRepository(sqlDB *sql.DB, logger zerolog.Logger) *MatchRepository {
	return &MatchRepository{
		db:     sqlDB,
		logger: logger,
	}
}

func (r *MatchRepository) Get(ctx context.Context, id string) (*domain.Match, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, game_type, match_type, winner, verification_status, played_at, created_at
		 FROM matches WHERE id = ?`, id)

	m, err := scanMatch(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadParticipants(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MatchRepository) Insert(ctx context.Context, m *domain.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO matches (id, game_type, match_type, winner, verification_status, played_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.GameType, string(m.MatchType), m.Winner.Encode(),
		string(m.Verification), m.PlayedAt, m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}

	for _, p := range m.Participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO match_participants (match_id, slot, player_id, is_ai, team, placement, rating_before, rating_after)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, p.Slot, p.PlayerID, p.IsAI, p.Team, p.Placement, p.RatingBefore, p.RatingAfter)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	r.logger.Debug().
		Str("match_id", m.ID).
		Str("match_type", string(m.MatchType)).
		Int("participants", len(m.Participants)).
		Msg("match stored")
	return tx.Commit()
}

// SetVerification transitions a match's status. Verified is terminal: a
// verified match has already been applied to its players, so any further
// transition attempt reports domain.ErrAlreadyVerified.
func (r *MatchRepository) SetVerification(ctx context.Context, id string, status domain.VerificationStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE matches SET verification_status = ?
		 WHERE id = ? AND verification_status != ?`,
		string(status), id, string(domain.VerificationVerified))
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		var current string
		if err := r.db.QueryRowContext(ctx,
			`SELECT verification_status FROM matches WHERE id = ?`, id).Scan(&current); err != nil {
			return err
		}
		return domain.ErrAlreadyVerified
	}
	return nil
}

// WriteSnapshots persists the rating-before/after values computed for a
// match's participants. The match row itself is never touched.
func (r *MatchRepository) WriteSnapshots(ctx context.Context, m *domain.Match) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range m.Participants {
		_, err := tx.ExecContext(ctx,
			`UPDATE match_participants SET rating_before = ?, rating_after = ?
			 WHERE match_id = ? AND slot = ?`,
			p.RatingBefore, p.RatingAfter, m.ID, p.Slot)
		if err != nil {
			return fmt.Errorf("failed to write participant snapshot: %w", err)
		}
	}
	return tx.Commit()
}

// ForEachVerified streams verified matches in ascending played_at order,
// the sole ordering key for replay. The callback's error aborts the stream.
func (r *MatchRepository) ForEachVerified(ctx context.Context, fn func(*domain.Match) error) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_type, match_type, winner, verification_status, played_at, created_at
		 FROM matches
		 WHERE verification_status = ?
		 ORDER BY played_at ASC, id ASC`, string(domain.VerificationVerified))
	if err != nil {
		return fmt.Errorf("failed to query verified matches: %w", err)
	}
	defer rows.Close()

	var matches []*domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range matches {
		if err := r.loadParticipants(ctx, m); err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// CountVerifiedForPlayerSince counts a player's verified matches in the
// current activity period, for the decay quota check. An empty gameType
// counts across all games.
func (r *MatchRepository) CountVerifiedForPlayerSince(ctx context.Context, playerID string, since time.Time, gameType string) (int, error) {
	query := `SELECT COUNT(*)
		 FROM matches m
		 JOIN match_participants p ON p.match_id = m.id
		 WHERE p.player_id = ? AND m.verification_status = ? AND m.played_at >= ?`
	args := []any{playerID, string(domain.VerificationVerified), since}
	if gameType != "" {
		query += ` AND m.game_type = ?`
		args = append(args, gameType)
	}

	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count matches for %s: %w", playerID, err)
	}
	return n, nil
}

func (r *MatchRepository) loadParticipants(ctx context.Context, m *domain.Match) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT slot, player_id, is_ai, team, placement, rating_before, rating_after
		 FROM match_participants WHERE match_id = ? ORDER BY slot`, m.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants for %s: %w", m.ID, err)
	}
	defer rows.Close()

	m.Participants = nil
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.Slot, &p.PlayerID, &p.IsAI, &p.Team, &p.Placement,
			&p.RatingBefore, &p.RatingAfter); err != nil {
			return err
		}
		m.Participants = append(m.Participants, p)
	}
	return rows.Err()
}

func scanMatch(row rowScanner) (*domain.Match, error) {
	var m domain.Match
	var matchType, winner, status string
	err := row.Scan(&m.ID, &m.GameType, &matchType, &winner, &status, &m.PlayedAt, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.MatchType = domain.MatchType(matchType)
	// The winner column conflates team numbers and participant identities
	// across data eras; decode it exactly once, here.
	m.Winner = domain.ParseWinner(winner)
	m.Verification = domain.VerificationStatus(status)
	return &m, nil
}
