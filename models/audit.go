package models

import (
	"encoding/json"
	"time"
)

// AuditEntry — запись журнала турнира. Каждая мутирующая операция движка
// добавляет ровно одну запись.
type AuditEntry struct {
	ID           int             `json:"id" db:"id"`
	TournamentID int             `json:"tournament_id" db:"tournament_id"`
	Action       string          `json:"action" db:"action"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	RoundNumber  *int            `json:"round_number,omitempty" db:"round_number"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
}
