package models

import "time"

// Bracket — слот раунда. Создаётся пачками при генерации раунда; неизменяем,
// пока на него ссылаются матчи, кроме перегенерации (delete-and-recreate).
type Bracket struct {
	ID              int       `json:"id" db:"id"`
	TournamentID    int       `json:"tournament_id" db:"tournament_id"`
	RoundNumber     int       `json:"round_number" db:"round_number"`
	BracketPosition int       `json:"bracket_position" db:"bracket_position"`
	IsFinal         bool      `json:"is_final" db:"is_final"`
	IsThirdPlace    bool      `json:"is_third_place" db:"is_third_place"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
