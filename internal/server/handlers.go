package server

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"arena-ladder/internal/cache"
	"arena-ladder/internal/clock"
	"arena-ladder/internal/config"
	"arena-ladder/internal/constants"
	"arena-ladder/internal/domain"
	"arena-ladder/internal/service"
)

// LadderServer exposes the rating engine over a small JSON API: match
// reporting and verification for the site, the ladder and player views,
// and the admin maintenance operations.
type LadderServer struct {
	ladder      *service.LadderService
	decay       *service.DecayService
	recompute   *service.RecomputeService
	ladderCache *cache.Cache[[]playerResponse]
	logger      zerolog.Logger
}

func NewLadderServer(
	ladder *service.LadderService,
	decay *service.DecayService,
	recompute *service.RecomputeService,
	cfg *config.Config,
	clk clock.Clock,
	logger zerolog.Logger,
) *LadderServer {
	return &LadderServer{
		ladder:      ladder,
		decay:       decay,
		recompute:   recompute,
		ladderCache: cache.New[[]playerResponse](clk, cfg.LadderCacheTTL),
		logger:      logger,
	}
}

func (s *LadderServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/matches", s.reportMatch)
	mux.HandleFunc("POST /api/v1/matches/{id}/verify", s.verifyMatch)
	mux.HandleFunc("GET /api/v1/players/{id}", s.getPlayer)
	mux.HandleFunc("GET /api/v1/players/{id}/history", s.getHistory)
	mux.HandleFunc("GET /api/v1/ladder", s.getLadder)
	mux.HandleFunc("POST /api/v1/admin/decay", s.runDecay)
	mux.HandleFunc("POST /api/v1/admin/recompute", s.runRecompute)
	mux.HandleFunc("POST /api/v1/admin/rescale", s.runRescale)
}

type participantRequest struct {
	PlayerID  string `json:"playerId"`
	AI        bool   `json:"ai"`
	Team      int    `json:"team"`
	Placement int    `json:"placement"`
}

type matchRequest struct {
	ID           string               `json:"id"`
	GameType     string               `json:"gameType"`
	MatchType    string               `json:"matchType"`
	Winner       string               `json:"winner"`
	PlayedAt     time.Time            `json:"playedAt"`
	Verified     bool                 `json:"verified"`
	Participants []participantRequest `json:"participants"`
}

type ratingChangeResponse struct {
	MatchID      string `json:"matchId"`
	PlayerID     string `json:"playerId"`
	Bucket       string `json:"bucket"`
	RatingBefore int    `json:"ratingBefore"`
	RatingAfter  int    `json:"ratingAfter"`
	Delta        int    `json:"delta"`
	RankName     string `json:"rankName"`
	RankChanged  bool   `json:"rankChanged"`
}

type bucketResponse struct {
	Rating  int `json:"rating"`
	Matches int `json:"matches"`
	Wins    int `json:"wins"`
	Losses  int `json:"losses"`
	Draws   int `json:"draws"`
}

type playerResponse struct {
	ID            string                    `json:"id"`
	Name          string                    `json:"name"`
	OverallRating int                       `json:"overallRating"`
	RankName      string                    `json:"rankName"`
	Ratings       map[string]bucketResponse `json:"ratings"`
	LastActive    time.Time                 `json:"lastActive"`
}

func (s *LadderServer) reportMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	m := &domain.Match{
		ID:        req.ID,
		GameType:  req.GameType,
		MatchType: domain.MatchType(req.MatchType),
		Winner:    domain.ParseWinner(req.Winner),
		PlayedAt:  req.PlayedAt,
	}
	for i, p := range req.Participants {
		m.Participants = append(m.Participants, domain.Participant{
			Slot:      i,
			PlayerID:  p.PlayerID,
			IsAI:      p.AI,
			Team:      p.Team,
			Placement: p.Placement,
		})
	}

	if err := s.ladder.ReportMatch(r.Context(), m); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	if req.Verified {
		changes, err := s.ladder.VerifyMatch(r.Context(), m.ID)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.ladderCache.Invalidate()
		s.writeJSON(w, http.StatusCreated, map[string]any{
			"matchId": m.ID,
			"changes": toChangeResponses(changes),
		})
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]any{"matchId": m.ID})
}

func (s *LadderServer) verifyMatch(w http.ResponseWriter, r *http.Request) {
	changes, err := s.ladder.VerifyMatch(r.Context(), r.PathValue("id"))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			s.writeError(w, http.StatusNotFound, err)
		case errors.Is(err, domain.ErrAlreadyVerified):
			s.writeError(w, http.StatusConflict, err)
		default:
			s.writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.ladderCache.Invalidate()
	s.writeJSON(w, http.StatusOK, map[string]any{"changes": toChangeResponses(changes)})
}

func (s *LadderServer) getPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.ladder.GetPlayer(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.writeError(w, http.StatusNotFound, fmt.Errorf("player not found"))
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toPlayerResponse(player))
}

func (s *LadderServer) getHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.ladder.History(r.Context(), r.PathValue("id"), constants.LadderPageLimit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]ratingChangeResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toChangeResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"history": out})
}

func (s *LadderServer) getLadder(w http.ResponseWriter, r *http.Request) {
	bucket := domain.MatchType(r.URL.Query().Get("bucket"))
	key := "ladder:" + string(bucket)

	if cached, ok := s.ladderCache.Get(key); ok {
		s.writeJSON(w, http.StatusOK, map[string]any{"players": cached, "cached": true})
		return
	}

	players, err := s.ladder.Leaderboard(r.Context(), bucket, constants.LadderPageLimit)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	out := make([]playerResponse, 0, len(players))
	for _, p := range players {
		out = append(out, toPlayerResponse(p))
	}
	s.ladderCache.Set(key, out)
	s.writeJSON(w, http.StatusOK, map[string]any{"players": out, "cached": false})
}

func (s *LadderServer) runDecay(w http.ResponseWriter, r *http.Request) {
	report, err := s.decay.RunSweep(r.Context(), r.URL.Query().Get("gameType"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.ladderCache.Invalidate()
	s.writeJSON(w, http.StatusOK, report)
}

func (s *LadderServer) runRecompute(w http.ResponseWriter, r *http.Request) {
	if err := s.recompute.RecomputeAll(r.Context()); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.ladderCache.Invalidate()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "recomputed"})
}

type rescaleRequest struct {
	OldMin               int     `json:"oldMin"`
	OldMax               int     `json:"oldMax"`
	NewMin               int     `json:"newMin"`
	NewMax               int     `json:"newMax"`
	Exponent             float64 `json:"exponent"`
	ResetPlacementsBelow *int    `json:"resetPlacementsBelow"`
}

// rescaleFloor resolves the placement-reset floor: omitted means the
// default, an explicit zero disables the reset.
func rescaleFloor(req rescaleRequest) int {
	if req.ResetPlacementsBelow == nil {
		return constants.RescalePlacementFloor
	}
	return *req.ResetPlacementsBelow
}

func (s *LadderServer) runRescale(w http.ResponseWriter, r *http.Request) {
	var req rescaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.OldMax <= req.OldMin || req.NewMax <= req.NewMin || req.Exponent <= 0 {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid rescale parameters"))
		return
	}

	transform := service.PowerCurve(req.OldMin, req.OldMax, req.NewMin, req.NewMax, req.Exponent)
	if err := s.recompute.Rescale(r.Context(), transform, rescaleFloor(req)); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.ladderCache.Invalidate()
	s.writeJSON(w, http.StatusOK, map[string]any{"status": "rescaled"})
}

func toPlayerResponse(p *domain.Player) playerResponse {
	resp := playerResponse{
		ID:            p.ID,
		Name:          p.Name,
		OverallRating: p.OverallRating,
		RankName:      p.RankName,
		Ratings:       make(map[string]bucketResponse, len(p.Ratings)),
		LastActive:    p.LastActive,
	}
	for mt, b := range p.Ratings {
		resp.Ratings[string(mt)] = bucketResponse{
			Rating: b.Rating, Matches: b.Matches, Wins: b.Wins, Losses: b.Losses, Draws: b.Draws,
		}
	}
	return resp
}

func toChangeResponse(c domain.RatingChange) ratingChangeResponse {
	return ratingChangeResponse{
		MatchID:      c.MatchID,
		PlayerID:     c.PlayerID,
		Bucket:       string(c.Bucket),
		RatingBefore: c.RatingBefore,
		RatingAfter:  c.RatingAfter,
		Delta:        c.Delta,
		RankName:     c.RankName,
		RankChanged:  c.RankChanged,
	}
}

func toChangeResponses(changes []domain.RatingChange) []ratingChangeResponse {
	out := make([]ratingChangeResponse, 0, len(changes))
	for _, c := range changes {
		out = append(out, toChangeResponse(c))
	}
	return out
}

func (s *LadderServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *LadderServer) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
