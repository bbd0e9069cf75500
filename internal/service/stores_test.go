package service

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"arena-ladder/internal/domain"
)

// memStore is an in-memory implementation of the three stores, so the
// engine's behavior can be tested without a database.
type memStore struct {
	players map[string]*domain.Player
	matches map[string]*domain.Match
	history []domain.RatingChange
}

func newMemStore() *memStore {
	return &memStore{
		players: make(map[string]*domain.Player),
		matches: make(map[string]*domain.Match),
	}
}

func (s *memStore) addPlayer(p *domain.Player) {
	if p.Ratings == nil {
		p.Ratings = make(map[domain.MatchType]*domain.BucketRating)
	}
	s.players[p.ID] = p
}

func (s *memStore) Get(ctx context.Context, id string) (*domain.Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return p, nil
}

func (s *memStore) GetBatch(ctx context.Context, ids []string) (map[string]*domain.Player, error) {
	out := make(map[string]*domain.Player)
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *memStore) Upsert(ctx context.Context, player *domain.Player) error {
	s.players[player.ID] = player
	return nil
}

func (s *memStore) UpsertBatch(ctx context.Context, players []*domain.Player) error {
	for _, p := range players {
		s.players[p.ID] = p
	}
	return nil
}

func (s *memStore) All(ctx context.Context) ([]*domain.Player, error) {
	ids := make([]string, 0, len(s.players))
	for id := range s.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*domain.Player, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.players[id])
	}
	return out, nil
}

func (s *memStore) ResetAll(ctx context.Context, startingRating int, rankName string) error {
	for _, p := range s.players {
		p.OverallRating = startingRating
		p.RankName = rankName
		p.Ratings = make(map[domain.MatchType]*domain.BucketRating)
	}
	return nil
}

func (s *memStore) Leaderboard(ctx context.Context, bucket domain.MatchType, limit int) ([]*domain.Player, error) {
	all, _ := s.All(ctx)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].OverallRating > all[j].OverallRating
	})
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *memStore) GetMatch(ctx context.Context, id string) (*domain.Match, error) {
	m, ok := s.matches[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return m, nil
}

func (s *memStore) Insert(ctx context.Context, m *domain.Match) error {
	s.matches[m.ID] = m
	return nil
}

func (s *memStore) SetVerification(ctx context.Context, id string, status domain.VerificationStatus) error {
	m, ok := s.matches[id]
	if !ok {
		return sql.ErrNoRows
	}
	if m.Verification == domain.VerificationVerified {
		return domain.ErrAlreadyVerified
	}
	m.Verification = status
	return nil
}

func (s *memStore) WriteSnapshots(ctx context.Context, m *domain.Match) error {
	s.matches[m.ID] = m
	return nil
}

func (s *memStore) ForEachVerified(ctx context.Context, fn func(*domain.Match) error) error {
	var verified []*domain.Match
	for _, m := range s.matches {
		if m.Verification == domain.VerificationVerified {
			verified = append(verified, m)
		}
	}
	sort.Slice(verified, func(i, j int) bool {
		if verified[i].PlayedAt.Equal(verified[j].PlayedAt) {
			return verified[i].ID < verified[j].ID
		}
		return verified[i].PlayedAt.Before(verified[j].PlayedAt)
	})
	for _, m := range verified {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *memStore) CountVerifiedForPlayerSince(ctx context.Context, playerID string, since time.Time, gameType string) (int, error) {
	n := 0
	for _, m := range s.matches {
		if m.Verification != domain.VerificationVerified || m.PlayedAt.Before(since) {
			continue
		}
		if gameType != "" && m.GameType != gameType {
			continue
		}
		for _, p := range m.Participants {
			if p.PlayerID == playerID {
				n++
				break
			}
		}
	}
	return n, nil
}

func (s *memStore) InsertBatch(ctx context.Context, records []domain.RatingChange) error {
	s.history = append(s.history, records...)
	return nil
}

func (s *memStore) ForPlayer(ctx context.Context, playerID string, limit int) ([]domain.RatingChange, error) {
	var out []domain.RatingChange
	for i := len(s.history) - 1; i >= 0 && len(out) < limit; i-- {
		if s.history[i].PlayerID == playerID {
			out = append(out, s.history[i])
		}
	}
	return out, nil
}

func (s *memStore) DeleteAll(ctx context.Context) error {
	s.history = nil
	return nil
}

// matchStoreAdapter satisfies MatchStore on top of memStore, whose Get is
// taken by PlayerStore.
type matchStoreAdapter struct{ *memStore }

func (a matchStoreAdapter) Get(ctx context.Context, id string) (*domain.Match, error) {
	return a.GetMatch(ctx, id)
}
