package rating

import (
	"github.com/rs/zerolog"

	"arena-ladder/internal/domain"
)

// OutcomeResolver turns a verified match of any topology into per-participant
// actual scores (1 win, 0.5 draw, 0 loss). Results are keyed by participant
// slot; AI slots and slots that cannot be resolved are absent from the result
// and therefore receive no rating update.
type OutcomeResolver struct {
	logger zerolog.Logger
}

func NewOutcomeResolver(logger zerolog.Logger) *OutcomeResolver {
	return &OutcomeResolver{logger: logger}
}

func (r *OutcomeResolver) Resolve(m *domain.Match) map[int]float64 {
	scores := make(map[int]float64, len(m.Participants))

	// A verified match with no winner is a draw for everyone.
	if m.Winner.Kind == domain.WinnerNone {
		for _, p := range m.Participants {
			if r.ratable(m, p) {
				scores[p.Slot] = 0.5
			}
		}
		return scores
	}

	switch m.MatchType {
	case domain.MatchType1v1, domain.MatchTypeVsAI:
		r.resolveHeadToHead(m, scores)
	case domain.MatchType2v2, domain.MatchType3v3, domain.MatchType4v4:
		r.resolveTeam(m, scores)
	case domain.MatchTypeFFA:
		r.resolveFFA(m, scores)
	default:
		r.logger.Warn().
			Str("match_id", m.ID).
			Str("match_type", string(m.MatchType)).
			Msg("unknown match type, no outcomes resolved")
	}
	return scores
}

func (r *OutcomeResolver) resolveHeadToHead(m *domain.Match, scores map[int]float64) {
	switch m.Winner.Kind {
	case domain.WinnerParticipant:
		// An AI winner simply means no human slot matches, so the human
		// participants all score 0.
		for _, p := range m.Participants {
			if !r.ratable(m, p) {
				continue
			}
			if p.PlayerID == m.Winner.ParticipantID {
				scores[p.Slot] = 1
			} else {
				scores[p.Slot] = 0
			}
		}
	case domain.WinnerTeam:
		// 1v1 rows from the team-era schema carry a team number; honor it.
		r.logger.Warn().
			Str("match_id", m.ID).
			Int("team", m.Winner.Team).
			Msg("head-to-head match with team-number winner, resolving by team")
		r.resolveWinningTeam(m, m.Winner.Team, scores)
	}
}

func (r *OutcomeResolver) resolveTeam(m *domain.Match, scores map[int]float64) {
	winningTeam := 0
	switch m.Winner.Kind {
	case domain.WinnerTeam:
		winningTeam = m.Winner.Team
	case domain.WinnerParticipant:
		// Legacy rows stored a participant identity where a team number
		// belongs. Fall back to that participant's team.
		for _, p := range m.Participants {
			if p.PlayerID == m.Winner.ParticipantID {
				winningTeam = p.Team
				break
			}
		}
		if winningTeam == 0 {
			r.logger.Warn().
				Str("match_id", m.ID).
				Str("winner", m.Winner.ParticipantID).
				Msg("team match winner resolves to no participant, skipping match outcomes")
			return
		}
		r.logger.Warn().
			Str("match_id", m.ID).
			Str("winner", m.Winner.ParticipantID).
			Int("team", winningTeam).
			Msg("team match with participant-identity winner, using that participant's team")
	}
	r.resolveWinningTeam(m, winningTeam, scores)
}

func (r *OutcomeResolver) resolveWinningTeam(m *domain.Match, team int, scores map[int]float64) {
	for _, p := range m.Participants {
		if !r.ratable(m, p) {
			continue
		}
		if p.Team == team {
			scores[p.Slot] = 1
		} else {
			scores[p.Slot] = 0
		}
	}
}

func (r *OutcomeResolver) resolveFFA(m *domain.Match, scores map[int]float64) {
	winnerID := ""
	if m.Winner.Kind == domain.WinnerParticipant {
		winnerID = m.Winner.ParticipantID
	}

	found := false
	for _, p := range m.Participants {
		if p.PlayerID == winnerID && winnerID != "" {
			found = true
			break
		}
	}
	if !found {
		// Old FFA rows sometimes carry a stale winner value; placement 1
		// is authoritative in that case.
		for _, p := range m.Participants {
			if p.Placement == 1 {
				winnerID = p.PlayerID
				found = true
				break
			}
		}
		r.logger.Warn().
			Str("match_id", m.ID).
			Str("winner", winnerID).
			Bool("recovered", found).
			Msg("ffa winner did not match a participant, fell back to placement")
	}
	if !found {
		return
	}

	// Winner takes all; placement beyond first earns no partial credit.
	for _, p := range m.Participants {
		if !r.ratable(m, p) {
			continue
		}
		if p.PlayerID == winnerID {
			scores[p.Slot] = 1
		} else {
			scores[p.Slot] = 0
		}
	}
}

// ratable reports whether a participant slot can receive a rating update.
// Malformed slots are excluded with a warning instead of failing the match.
func (r *OutcomeResolver) ratable(m *domain.Match, p domain.Participant) bool {
	if p.IsAI {
		return false
	}
	if p.PlayerID == "" {
		r.logger.Warn().
			Str("match_id", m.ID).
			Int("slot", p.Slot).
			Msg("participant has no player reference, excluded from rating")
		return false
	}
	return true
}
