package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arena-ladder/internal/domain"
	"arena-ladder/internal/rating"
)

func newTestRecompute(store *memStore) (*RecomputeService, *LadderService) {
	ladder := newTestLadder(store)
	svc := NewRecomputeService(
		store,
		matchStoreAdapter{store},
		store,
		ladder,
		rating.DefaultParams(),
		rating.DefaultRankTable(),
		zerolog.Nop(),
	)
	return svc, ladder
}

func seedMatchLog(store *memStore) {
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		store.addPlayer(&domain.Player{ID: id, Name: id, OverallRating: 1500})
	}

	matches := []*domain.Match{
		{
			ID: "m1", MatchType: domain.MatchType1v1,
			Winner: domain.ParseWinner("p1"),
			Participants: []domain.Participant{
				{Slot: 0, PlayerID: "p1"}, {Slot: 1, PlayerID: "p2"},
			},
			PlayedAt: playedAt(1),
		},
		{
			ID: "m2", MatchType: domain.MatchType2v2,
			Winner: domain.ParseWinner("2"),
			Participants: []domain.Participant{
				{Slot: 0, PlayerID: "p1", Team: 1}, {Slot: 1, PlayerID: "p2", Team: 1},
				{Slot: 2, PlayerID: "p3", Team: 2}, {Slot: 3, PlayerID: "p4", Team: 2},
			},
			PlayedAt: playedAt(2),
		},
		{
			ID: "m3", MatchType: domain.MatchTypeFFA,
			Winner: domain.ParseWinner("p3"),
			Participants: []domain.Participant{
				{Slot: 0, PlayerID: "p1", Placement: 3},
				{Slot: 1, PlayerID: "p2", Placement: 2},
				{Slot: 2, PlayerID: "p3", Placement: 1},
				{Slot: 3, PlayerID: "p4", Placement: 4},
			},
			PlayedAt: playedAt(3),
		},
		{
			ID: "m4", MatchType: domain.MatchType1v1,
			Winner: domain.ParseWinner("p2"),
			Participants: []domain.Participant{
				{Slot: 0, PlayerID: "p2"}, {Slot: 1, PlayerID: "p3"},
			},
			PlayedAt: playedAt(4),
		},
		// Unverified: must never influence ratings.
		{
			ID: "m5", MatchType: domain.MatchType1v1,
			Winner: domain.ParseWinner("p4"),
			Participants: []domain.Participant{
				{Slot: 0, PlayerID: "p4"}, {Slot: 1, PlayerID: "p1"},
			},
			PlayedAt: playedAt(5),
		},
	}
	for _, m := range matches {
		m.Verification = domain.VerificationVerified
		if m.ID == "m5" {
			m.Verification = domain.VerificationPending
		}
		store.matches[m.ID] = m
	}
}

type playerState struct {
	Overall int
	Rank    string
	Buckets map[domain.MatchType]domain.BucketRating
}

func snapshot(store *memStore) map[string]playerState {
	out := make(map[string]playerState)
	for id, p := range store.players {
		buckets := make(map[domain.MatchType]domain.BucketRating)
		for mt, b := range p.Ratings {
			buckets[mt] = *b
		}
		out[id] = playerState{Overall: p.OverallRating, Rank: p.RankName, Buckets: buckets}
	}
	return out
}

func TestRecomputeDeterminism(t *testing.T) {
	store := newMemStore()
	seedMatchLog(store)
	svc, _ := newTestRecompute(store)

	require.NoError(t, svc.RecomputeAll(context.Background()))
	first := snapshot(store)

	require.NoError(t, svc.RecomputeAll(context.Background()))
	second := snapshot(store)

	assert.Equal(t, first, second, "identical log and starting state produce identical ratings")
}

func TestRecomputeMatchesLivePath(t *testing.T) {
	// Applying the log live, match by match, must equal one recomputation.
	liveStore := newMemStore()
	seedMatchLog(liveStore)
	liveLadder := newTestLadder(liveStore)
	for _, id := range []string{"m1", "m2", "m3", "m4"} {
		_, err := liveLadder.ApplyMatchToPlayers(context.Background(), id)
		require.NoError(t, err)
	}

	recomputeStore := newMemStore()
	seedMatchLog(recomputeStore)
	svc, _ := newTestRecompute(recomputeStore)
	require.NoError(t, svc.RecomputeAll(context.Background()))

	assert.Equal(t, snapshot(liveStore), snapshot(recomputeStore))
}

func TestRecomputeIgnoresUnverifiedMatches(t *testing.T) {
	store := newMemStore()
	seedMatchLog(store)
	svc, _ := newTestRecompute(store)
	require.NoError(t, svc.RecomputeAll(context.Background()))

	p4 := store.players["p4"]
	// p4 lost m2 and m3; the pending m5 win must not count.
	assert.Equal(t, 2, p4.Ratings[domain.MatchType2v2].Matches+p4.Ratings[domain.MatchTypeFFA].Matches)
	_, has1v1 := p4.Ratings[domain.MatchType1v1]
	assert.False(t, has1v1)
}

func TestRecomputeOrderSensitivity(t *testing.T) {
	// Moving a match in time changes the replay result: deltas depend on
	// the ratings produced by every earlier match.
	buildStore := func(swap bool) *memStore {
		store := newMemStore()
		seedMatchLog(store)
		if swap {
			store.matches["m1"].PlayedAt = playedAt(10)
		}
		return store
	}

	a := buildStore(false)
	svcA, _ := newTestRecompute(a)
	require.NoError(t, svcA.RecomputeAll(context.Background()))

	b := buildStore(true)
	svcB, _ := newTestRecompute(b)
	require.NoError(t, svcB.RecomputeAll(context.Background()))

	assert.NotEqual(t, snapshot(a), snapshot(b))
}

func TestRescalePowerCurve(t *testing.T) {
	curve := PowerCurve(100, 3000, 100, 2400, 0.8)

	assert.Equal(t, 100, curve(100), "range floor maps to new floor")
	assert.Equal(t, 2400, curve(3000), "range ceiling maps to new ceiling")

	// Monotonic over the whole old range.
	prev := curve(100)
	for r := 101; r <= 3000; r += 7 {
		cur := curve(r)
		require.GreaterOrEqual(t, cur, prev, "rating %d", r)
		prev = cur
	}
}

func TestRescaleAppliesTransformAndResetsPlacements(t *testing.T) {
	store := newMemStore()
	veteran := testPlayer("veteran", domain.MatchType1v1, 2800, 50)
	rookie := testPlayer("rookie", domain.MatchType1v1, 1600, 3)
	store.addPlayer(veteran)
	store.addPlayer(rookie)
	svc, _ := newTestRecompute(store)

	halve := func(r int) int { return r / 2 }
	require.NoError(t, svc.Rescale(context.Background(), halve, 5))

	assert.Equal(t, 1400, veteran.Ratings[domain.MatchType1v1].Rating)
	assert.Equal(t, 800, rookie.Ratings[domain.MatchType1v1].Rating)

	assert.Equal(t, 50, veteran.Ratings[domain.MatchType1v1].Matches, "active bucket keeps its counters")
	assert.Equal(t, 0, rookie.Ratings[domain.MatchType1v1].Matches, "low-activity bucket re-calibrates")

	assert.Equal(t, "Grunt", veteran.RankName)
}

func TestRecomputeHistoryRewritten(t *testing.T) {
	store := newMemStore()
	seedMatchLog(store)
	store.history = []domain.RatingChange{{ID: "stale", PlayerID: "p1"}}
	svc, _ := newTestRecompute(store)

	require.NoError(t, svc.RecomputeAll(context.Background()))

	for _, rec := range store.history {
		require.NotEqual(t, "stale", rec.ID, "old history cleared before replay")
	}
	assert.NotEmpty(t, store.history)
}

func ExamplePowerCurve() {
	curve := PowerCurve(0, 3000, 0, 2400, 1.0)
	fmt.Println(curve(1500))
	// Output: 1200
}
