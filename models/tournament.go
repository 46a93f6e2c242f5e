package models

import "time"

type TournamentFormat string

const (
	FormatSingleElimination TournamentFormat = "Single_Elimination"
	FormatSwiss             TournamentFormat = "Swiss"
)

// Tournament представляет турнир.
// Status мутируется только через LifecycleService; CurrentRound/TotalRounds -
// только операциями генерации и продвижения раундов.
type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Name         string           `json:"name" db:"name"`
	Format       TournamentFormat `json:"format" db:"format"`
	Status       TournamentState  `json:"status" db:"status"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	TotalRounds  int              `json:"total_rounds" db:"total_rounds"`

	// Scoring configuration (Swiss).
	PointsPerWin  int `json:"points_per_win" db:"points_per_win"`
	PointsPerDraw int `json:"points_per_draw" db:"points_per_draw"`
	PointsPerLoss int `json:"points_per_loss" db:"points_per_loss"`

	// Qualification / elimination thresholds (Swiss), default 3/3.
	MaxWins   int `json:"max_wins" db:"max_wins"`
	MaxLosses int `json:"max_losses" db:"max_losses"`

	// Best-of schedule per match phase.
	OpeningBestOf     int `json:"opening_best_of" db:"opening_best_of"`
	ProgressionBestOf int `json:"progression_best_of" db:"progression_best_of"`
	EliminationBestOf int `json:"elimination_best_of" db:"elimination_best_of"`
	FinalsBestOf      int `json:"finals_best_of" db:"finals_best_of"`

	WinnerTeamID *int      `json:"winner_team_id,omitempty" db:"winner_team_id"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Participants []*Participant `json:"participants,omitempty" db:"-"`
	Brackets     []*Bracket     `json:"brackets,omitempty" db:"-"`
	Matches      []*Match       `json:"matches,omitempty" db:"-"`
}
