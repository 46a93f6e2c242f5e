package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftarena/tournament-engine/engine"
	"github.com/riftarena/tournament-engine/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Предусловия проверяются до открытия транзакции, поэтому db == nil:
// дошедший до BeginTx тест упадёт паникой и сразу укажет на дырку в guard.
func newLifecycleFixture(tournament *models.Tournament) (LifecycleService, *fakeParticipantRepo, *fakeMatchRepo) {
	tournaments := &fakeTournamentRepo{tournament: tournament}
	participants := &fakeParticipantRepo{}
	matches := &fakeMatchRepo{}
	svc := NewLifecycleService(nil, tournaments, participants, &fakeBracketRepo{}, matches, &fakeAuditRepo{}, nil, nil, testLogger())
	return svc, participants, matches
}

func activeParticipant(tournamentID, teamID, seed int) *models.Participant {
	return &models.Participant{
		ID:           teamID,
		TournamentID: tournamentID,
		TeamID:       teamID,
		SeedNumber:   seed,
		IsActive:     true,
	}
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	tests := []struct {
		name   string
		from   models.TournamentState
		target models.TournamentState
	}{
		{"completed cannot resume", models.StateCompleted, models.StateInProgress},
		{"registration cannot skip seeding", models.StateRegistration, models.StateInProgress},
		{"archived is terminal", models.StateArchived, models.StateRegistration},
		{"in progress cannot reopen registration", models.StateInProgress, models.StateRegistration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newLifecycleFixture(&models.Tournament{ID: 1, Status: tt.from})

			_, err := svc.Transition(context.Background(), 1, tt.target, true)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			var ite *InvalidTransitionError
			require.ErrorAs(t, err, &ite)
			assert.Equal(t, string(tt.from), ite.From)
			assert.Equal(t, string(tt.target), ite.To)
		})
	}
}

func TestTransitionRejectsUnknownState(t *testing.T) {
	svc, _, _ := newLifecycleFixture(&models.Tournament{ID: 1, Status: models.StateRegistration})

	_, err := svc.Transition(context.Background(), 1, models.TournamentState("Limbo"), true)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionDestructiveRequiresConfirmation(t *testing.T) {
	tests := []struct {
		from   models.TournamentState
		target models.TournamentState
	}{
		{models.StateInProgress, models.StateCancelled},
		{models.StateCompleted, models.StateArchived},
	}
	for _, tt := range tests {
		svc, _, _ := newLifecycleFixture(&models.Tournament{ID: 1, Status: tt.from})

		_, err := svc.Transition(context.Background(), 1, tt.target, false)

		assert.ErrorIs(t, err, ErrConfirmationRequired, "%s -> %s", tt.from, tt.target)
	}
}

func TestTransitionToSeedingRequiresParticipants(t *testing.T) {
	svc, participants, _ := newLifecycleFixture(&models.Tournament{ID: 1, Status: models.StateRegistration})
	participants.participants = []*models.Participant{activeParticipant(1, 101, 1)}

	_, err := svc.Transition(context.Background(), 1, models.StateSeeding, false)

	assert.ErrorIs(t, err, engine.ErrInsufficientParticipants)
}

func TestTransitionToInProgressRequiresCompleteSeeding(t *testing.T) {
	svc, participants, _ := newLifecycleFixture(&models.Tournament{ID: 1, Status: models.StateSeeding})
	participants.participants = []*models.Participant{
		activeParticipant(1, 101, 1),
		activeParticipant(1, 102, 0), // без посева
	}

	_, err := svc.Transition(context.Background(), 1, models.StateInProgress, false)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionToCompletedRequiresFinishedRound(t *testing.T) {
	svc, _, matches := newLifecycleFixture(&models.Tournament{
		ID: 1, Status: models.StateInProgress, CurrentRound: 2, TotalRounds: 3,
	})
	matches.matches = []*models.Match{
		{ID: 10, TournamentID: 1, RoundNumber: 2, Status: models.MatchStatusCompleted},
		{ID: 11, TournamentID: 1, RoundNumber: 2, Status: models.MatchStatusScheduled},
		{ID: 12, TournamentID: 1, RoundNumber: 2, Status: models.MatchStatusInProgress},
	}

	_, err := svc.Transition(context.Background(), 1, models.StateCompleted, true)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRoundIncomplete)
	var rie *RoundIncompleteError
	require.ErrorAs(t, err, &rie)
	assert.Equal(t, 2, rie.RoundNumber)
	assert.Equal(t, 2, rie.Outstanding)
}

func TestTransitionUnknownTournament(t *testing.T) {
	svc, _, _ := newLifecycleFixture(&models.Tournament{ID: 1, Status: models.StateRegistration})

	_, err := svc.Transition(context.Background(), 99, models.StateSeeding, false)

	assert.Error(t, err)
}

func TestCapabilitiesView(t *testing.T) {
	svc, _, _ := newLifecycleFixture(&models.Tournament{ID: 7, Status: models.StateInProgress})

	view, err := svc.Capabilities(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 7, view.TournamentID)
	assert.Equal(t, models.StateInProgress, view.State)
	assert.True(t, view.Capabilities.CanAdvanceRound)
	assert.True(t, view.Capabilities.CanPlayMatches)
	assert.False(t, view.Capabilities.CanGenerateBracket)
	assert.ElementsMatch(t,
		[]models.TournamentState{models.StatePaused, models.StateCompleted, models.StateCancelled},
		view.ValidTransitions)
}
