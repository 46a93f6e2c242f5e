package models

import "time"

// Participant — запись (турнир, команда). Создаётся при подтверждении
// регистрации; никогда не удаляется, только деактивируется.
// SwissScore and OpponentsPlayed are denormalized hints: the ledger recomputes
// both from match history before every pairing decision.
type Participant struct {
	ID                     int       `json:"id" db:"id"`
	TournamentID           int       `json:"tournament_id" db:"tournament_id"`
	TeamID                 int       `json:"team_id" db:"team_id"`
	SeedNumber             int       `json:"seed_number" db:"seed_number"`
	InitialBracketPosition int       `json:"initial_bracket_position" db:"initial_bracket_position"`
	SwissScore             int       `json:"swiss_score" db:"swiss_score"`
	OpponentsPlayed        []int     `json:"opponents_played" db:"-"`
	IsActive               bool      `json:"is_active" db:"is_active"`
	CreatedAt              time.Time `json:"created_at" db:"created_at"`
}
