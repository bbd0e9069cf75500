package domain

import (
	"errors"
	"strconv"
	"time"
)

type MatchType string

const (
	MatchType1v1  MatchType = "1v1"
	MatchType2v2  MatchType = "2v2"
	MatchType3v3  MatchType = "3v3"
	MatchType4v4  MatchType = "4v4"
	MatchTypeFFA  MatchType = "ffa"
	MatchTypeVsAI MatchType = "vsai"
)

var MatchTypes = []MatchType{
	MatchType1v1, MatchType2v2, MatchType3v3, MatchType4v4, MatchTypeFFA, MatchTypeVsAI,
}

func (m MatchType) Valid() bool {
	for _, t := range MatchTypes {
		if m == t {
			return true
		}
	}
	return false
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// ErrAlreadyVerified guards the one-way verification transition: a verified
// match has rated its players and must never be applied a second time.
var ErrAlreadyVerified = errors.New("match already verified")

type WinnerKind int

const (
	WinnerNone WinnerKind = iota
	WinnerTeam
	WinnerParticipant
)

// WinnerRef is the decoded form of the legacy winner column, which stored a
// team number or a participant ID in the same field depending on data era.
type WinnerRef struct {
	Kind          WinnerKind
	Team          int
	ParticipantID string
}

// ParseWinner decodes the raw winner column once, at the load boundary.
// An empty value means a draw. Small integers are team numbers; anything
// else is treated as a participant identity.
func ParseWinner(raw string) WinnerRef {
	if raw == "" {
		return WinnerRef{Kind: WinnerNone}
	}
	if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= 8 {
		return WinnerRef{Kind: WinnerTeam, Team: n}
	}
	return WinnerRef{Kind: WinnerParticipant, ParticipantID: raw}
}

// Encode is the inverse of ParseWinner, used when persisting a match.
func (w WinnerRef) Encode() string {
	switch w.Kind {
	case WinnerTeam:
		return strconv.Itoa(w.Team)
	case WinnerParticipant:
		return w.ParticipantID
	default:
		return ""
	}
}

// AIPlayerID marks an AI participant slot. AI slots never receive rating updates.
const AIPlayerID = "AI"

type Participant struct {
	Slot         int
	PlayerID     string
	IsAI         bool
	Team         int // team matches only
	Placement    int // FFA only, 1 = first
	RatingBefore int // written as output of rating application
	RatingAfter  int
}

// Match is an append-only log entry; the engine never mutates one after
// it is stored, except to write the participant rating snapshots.
type Match struct {
	ID           string
	GameType     string
	MatchType    MatchType
	Participants []Participant
	Winner       WinnerRef
	Verification VerificationStatus
	PlayedAt     time.Time // sole ordering key for replay
	CreatedAt    time.Time
}

type BucketRating struct {
	Bucket  MatchType
	Rating  int
	Matches int
	Wins    int
	Losses  int
	Draws   int
}

type Player struct {
	ID             string
	Name           string
	OverallRating  int
	RankName       string // derived from OverallRating, never edited directly
	Ratings        map[MatchType]*BucketRating
	LastActive     time.Time
	LastRankChange time.Time
	LastDecayCheck time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Bucket returns the rating bucket for a match type, creating it at the
// given starting rating on first use.
func (p *Player) Bucket(mt MatchType, startingRating int) *BucketRating {
	if p.Ratings == nil {
		p.Ratings = make(map[MatchType]*BucketRating)
	}
	b, ok := p.Ratings[mt]
	if !ok {
		b = &BucketRating{Bucket: mt, Rating: startingRating}
		p.Ratings[mt] = b
	}
	return b
}

// RecomputeOverall sets the overall rating to the mean of all buckets with
// at least one rated match. Players with no rated matches keep the starting
// rating.
func (p *Player) RecomputeOverall(startingRating int) {
	sum, n := 0, 0
	for _, b := range p.Ratings {
		if b.Matches > 0 {
			sum += b.Rating
			n++
		}
	}
	if n == 0 {
		p.OverallRating = startingRating
		return
	}
	p.OverallRating = (sum + n/2) / n
}

type RatingChange struct {
	ID           string // nanoid
	MatchID      string
	PlayerID     string
	Bucket       MatchType
	RatingBefore int
	RatingAfter  int
	Delta        int
	RankName     string
	RankChanged  bool
	CreatedAt    time.Time
}

type DecayAction string

const (
	DecayActionActive  DecayAction = "active"
	DecayActionSkipped DecayAction = "skipped"
	DecayActionWarned  DecayAction = "warned"
	DecayActionDecayed DecayAction = "decayed"
)

type DecayDetail struct {
	PlayerID     string      `json:"playerId"`
	Action       DecayAction `json:"action"`
	Periods      int         `json:"periods"`
	Penalty      int         `json:"penalty"`
	RatingBefore int         `json:"ratingBefore"`
	RatingAfter  int         `json:"ratingAfter"`
	RankName     string      `json:"rankName"`
}

type DecayReport struct {
	StartedAt          time.Time     `json:"startedAt"`
	FinishedAt         time.Time     `json:"finishedAt"`
	PlayersChecked     int           `json:"playersChecked"`
	PlayersActive      int           `json:"playersActive"`
	PlayersSkipped     int           `json:"playersSkipped"`
	PlayersWarned      int           `json:"playersWarned"`
	PlayersDecayed     int           `json:"playersDecayed"`
	TotalRatingRemoved int           `json:"totalRatingRemoved"`
	Details            []DecayDetail `json:"details"`
}
