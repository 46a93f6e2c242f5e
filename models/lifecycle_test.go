package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	legal := []struct {
		from TournamentState
		to   TournamentState
	}{
		{StateRegistration, StateSeeding},
		{StateRegistration, StateCancelled},
		{StateSeeding, StateRegistration},
		{StateSeeding, StateInProgress},
		{StateSeeding, StateCancelled},
		{StateInProgress, StatePaused},
		{StateInProgress, StateCompleted},
		{StateInProgress, StateCancelled},
		{StatePaused, StateInProgress},
		{StatePaused, StateCancelled},
		{StateCompleted, StateArchived},
		{StateCancelled, StateArchived},
		{StateCancelled, StateRegistration}, // revive
	}
	for _, tt := range legal {
		assert.True(t, tt.from.CanTransitionTo(tt.to), "%s -> %s must be legal", tt.from, tt.to)
	}

	illegal := []struct {
		from TournamentState
		to   TournamentState
	}{
		{StateRegistration, StateInProgress}, // обязателен проход через Seeding
		{StateRegistration, StateCompleted},
		{StateSeeding, StateCompleted},
		{StateCompleted, StateInProgress},
		{StateCompleted, StateRegistration},
		{StateCancelled, StateInProgress},
		{StateArchived, StateRegistration},
		{StateArchived, StateArchived},
		{StateInProgress, StateRegistration},
		{StatePaused, StateCompleted},
	}
	for _, tt := range illegal {
		assert.False(t, tt.from.CanTransitionTo(tt.to), "%s -> %s must be rejected", tt.from, tt.to)
	}
}

func TestArchivedIsTerminal(t *testing.T) {
	assert.Empty(t, StateArchived.ValidTransitions())
	assert.True(t, StateArchived.Capabilities().IsTerminal)
}

func TestIsValid(t *testing.T) {
	for _, s := range AllStates {
		assert.True(t, s.IsValid(), "state %s", s)
	}
	assert.False(t, TournamentState("Underway").IsValid())
	assert.False(t, TournamentState("").IsValid())
}

func TestIsDestructiveTransition(t *testing.T) {
	assert.True(t, IsDestructiveTransition(StateCancelled))
	assert.True(t, IsDestructiveTransition(StateCompleted))
	assert.True(t, IsDestructiveTransition(StateArchived))

	assert.False(t, IsDestructiveTransition(StateSeeding))
	assert.False(t, IsDestructiveTransition(StateInProgress))
	assert.False(t, IsDestructiveTransition(StateRegistration))
	assert.False(t, IsDestructiveTransition(StatePaused))
}

func TestCapabilities(t *testing.T) {
	reg := StateRegistration.Capabilities()
	assert.True(t, reg.CanRegister)
	assert.True(t, reg.IsMutable)
	assert.False(t, reg.CanGenerateBracket)

	seeding := StateSeeding.Capabilities()
	assert.True(t, seeding.CanEditSeeding)
	assert.True(t, seeding.CanGenerateBracket)
	assert.False(t, seeding.CanPlayMatches)

	inProgress := StateInProgress.Capabilities()
	assert.True(t, inProgress.CanPlayMatches)
	assert.True(t, inProgress.CanAdvanceRound)
	assert.True(t, inProgress.CanModifyPairings)
	assert.False(t, inProgress.CanRegister)

	paused := StatePaused.Capabilities()
	assert.False(t, paused.CanPlayMatches)
	assert.False(t, paused.CanAdvanceRound)
	assert.True(t, paused.IsMutable)

	for _, s := range []TournamentState{StateCompleted, StateCancelled, StateArchived} {
		caps := s.Capabilities()
		assert.False(t, caps.IsMutable, "state %s", s)
		assert.False(t, caps.CanAdvanceRound, "state %s", s)
		assert.False(t, caps.CanPlayMatches, "state %s", s)
	}
}
