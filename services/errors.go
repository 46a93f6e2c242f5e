package services

import (
	"errors"
	"fmt"
)

// Ошибки уровня сервисов. Хендлеры маппят их в HTTP-коды.
var (
	ErrInvalidTransition     = errors.New("invalid tournament state transition")
	ErrConfirmationRequired  = errors.New("destructive transition requires confirmation")
	ErrRoundIncomplete       = errors.New("round has incomplete matches")
	ErrRoundAlreadyPlayed    = errors.New("round has completed matches and cannot be regenerated")
	ErrConflictingGeneration = errors.New("conflicting round generation detected")
	ErrFormatMismatch        = errors.New("operation not supported for tournament format")
	ErrMatchAlreadyDecided   = errors.New("match result already recorded")
	ErrSeedOutOfRange        = errors.New("seed number out of range")
)

// RoundIncompleteError carries how many matches are still outstanding so
// clients can show progress instead of a bare rejection.
type RoundIncompleteError struct {
	RoundNumber int
	Outstanding int
}

func (e *RoundIncompleteError) Error() string {
	return fmt.Sprintf("round %d has %d incomplete matches", e.RoundNumber, e.Outstanding)
}

func (e *RoundIncompleteError) Is(target error) bool {
	return target == ErrRoundIncomplete
}

// InvalidTransitionError names both ends of the rejected edge.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition tournament from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
