// Package engine contains the pure computation core of the tournament
// progression engine: record ledger, elimination classifier, opponent history,
// single-elimination seeding/advancement and Swiss pairing. No package here
// touches storage; everything is a deterministic function of its inputs.
package engine

import (
	"errors"
	"fmt"

	"github.com/riftarena/tournament-engine/models"
)

var (
	// ErrConfiguration — некорректная конфигурация best-of или порогов.
	ErrConfiguration = errors.New("invalid tournament configuration")

	// ErrInsufficientParticipants — меньше двух активных участников.
	ErrInsufficientParticipants = errors.New("not enough active participants (minimum 2)")
)

// Config carries the scoring and pacing configuration the engine needs.
// Built from a Tournament row via ConfigFrom.
type Config struct {
	PointsPerWin  int
	PointsPerDraw int
	PointsPerLoss int

	MaxWins   int
	MaxLosses int

	TotalRounds  int
	CurrentRound int

	OpeningBestOf     int
	ProgressionBestOf int
	EliminationBestOf int
	FinalsBestOf      int
}

func ConfigFrom(t *models.Tournament) Config {
	return Config{
		PointsPerWin:      t.PointsPerWin,
		PointsPerDraw:     t.PointsPerDraw,
		PointsPerLoss:     t.PointsPerLoss,
		MaxWins:           t.MaxWins,
		MaxLosses:         t.MaxLosses,
		TotalRounds:       t.TotalRounds,
		CurrentRound:      t.CurrentRound,
		OpeningBestOf:     t.OpeningBestOf,
		ProgressionBestOf: t.ProgressionBestOf,
		EliminationBestOf: t.EliminationBestOf,
		FinalsBestOf:      t.FinalsBestOf,
	}
}

func (c Config) Validate() error {
	if c.MaxWins <= 0 {
		return fmt.Errorf("%w: max_wins must be positive, got %d", ErrConfiguration, c.MaxWins)
	}
	if c.MaxLosses <= 0 {
		return fmt.Errorf("%w: max_losses must be positive, got %d", ErrConfiguration, c.MaxLosses)
	}
	for _, bo := range []struct {
		name  string
		value int
	}{
		{"opening_best_of", c.OpeningBestOf},
		{"progression_best_of", c.ProgressionBestOf},
		{"elimination_best_of", c.EliminationBestOf},
		{"finals_best_of", c.FinalsBestOf},
	} {
		if bo.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrConfiguration, bo.name, bo.value)
		}
	}
	return nil
}
