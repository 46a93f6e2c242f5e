package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled  MatchStatus = "Scheduled"
	MatchStatusInProgress MatchStatus = "In_Progress"
	MatchStatusCompleted  MatchStatus = "Completed"
)

type MatchResult string

const (
	ResultTeam1Win MatchResult = "Team1_Win"
	ResultTeam2Win MatchResult = "Team2_Win"
	ResultDraw     MatchResult = "Draw"
)

// Match принадлежит ровно одному Bracket. Team2ID == nil означает bye:
// такой матч авто-завершается с Team1ID в качестве победителя.
// Инвариант: завершённый матч всегда имеет ненулевой Result.
type Match struct {
	ID           int          `json:"id" db:"id"`
	BracketID    int          `json:"bracket_id" db:"bracket_id"`
	TournamentID int          `json:"tournament_id" db:"tournament_id"`
	MatchNumber  int          `json:"match_number" db:"match_number"`
	Team1ID      *int         `json:"team1_id" db:"team1_id"`
	Team2ID      *int         `json:"team2_id" db:"team2_id"`
	Status       MatchStatus  `json:"status" db:"status"`
	Result       *MatchResult `json:"result,omitempty" db:"result"`
	WinnerID     *int         `json:"winner_id,omitempty" db:"winner_id"`
	BestOf       int          `json:"best_of" db:"best_of"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`

	// Заполняются из связанного bracket при выборке с JOIN.
	RoundNumber     int `json:"round_number" db:"-"`
	BracketPosition int `json:"bracket_position" db:"-"`
}

// IsBye reports whether the match is an unopposed slot.
func (m *Match) IsBye() bool {
	return m.Team1ID != nil && m.Team2ID == nil
}
