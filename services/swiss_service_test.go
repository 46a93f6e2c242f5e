package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftarena/tournament-engine/models"
)

func swissTournament(state models.TournamentState, currentRound int) *models.Tournament {
	return &models.Tournament{
		ID:            1,
		Format:        models.FormatSwiss,
		Status:        state,
		CurrentRound:  currentRound,
		TotalRounds:   5,
		PointsPerWin:  3,
		PointsPerDraw: 1,
		MaxWins:       3,
		MaxLosses:     3,
		OpeningBestOf: 1, ProgressionBestOf: 1, EliminationBestOf: 3, FinalsBestOf: 5,
	}
}

func newSwissFixture(tournament *models.Tournament) (SwissService, *fakeParticipantRepo, *fakeBracketRepo, *fakeMatchRepo) {
	participants := &fakeParticipantRepo{}
	brackets := &fakeBracketRepo{}
	matches := &fakeMatchRepo{}
	svc := NewSwissService(nil, &fakeTournamentRepo{tournament: tournament},
		participants, brackets, matches, &fakeAuditRepo{}, nil, testLogger())
	return svc, participants, brackets, matches
}

func TestSwissGenerateRoundRejectsEliminationFormat(t *testing.T) {
	tournament := swissTournament(models.StateSeeding, 0)
	tournament.Format = models.FormatSingleElimination
	svc, _, _, _ := newSwissFixture(tournament)

	_, err := svc.GenerateRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestSwissGenerateRoundRejectsWrongState(t *testing.T) {
	for _, state := range []models.TournamentState{
		models.StateRegistration, models.StateCompleted, models.StateCancelled,
	} {
		svc, _, _, _ := newSwissFixture(swissTournament(state, 0))

		_, err := svc.GenerateRound(context.Background(), 1)

		assert.ErrorIs(t, err, ErrInvalidTransition, "state %s", state)
	}
}

func TestSwissGenerateRoundRejectsExhaustedSchedule(t *testing.T) {
	svc, _, _, _ := newSwissFixture(swissTournament(models.StateInProgress, 5))

	_, err := svc.GenerateRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrConflictingGeneration)
}

func TestSwissGenerateRoundRejectsDuplicateRound(t *testing.T) {
	svc, _, brackets, _ := newSwissFixture(swissTournament(models.StateInProgress, 1))
	brackets.brackets = []*models.Bracket{
		{ID: 1, TournamentID: 1, RoundNumber: 2, BracketPosition: 1},
	}

	_, err := svc.GenerateRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrConflictingGeneration)
}

func TestSwissGenerateRoundRejectsIncompleteCurrentRound(t *testing.T) {
	// Следующий раунд не сдаётся, пока в текущем есть незакрытые матчи:
	// леджер посчитался бы по недоигранному раунду.
	svc, _, _, matches := newSwissFixture(swissTournament(models.StateInProgress, 1))
	team1, team2 := 101, 102
	matches.matches = []*models.Match{
		{ID: 1, TournamentID: 1, RoundNumber: 1, BracketPosition: 1,
			Team1ID: &team1, Team2ID: &team2, Status: models.MatchStatusScheduled},
	}

	_, err := svc.GenerateRound(context.Background(), 1)

	require.Error(t, err)
	var rie *RoundIncompleteError
	require.ErrorAs(t, err, &rie)
	assert.Equal(t, 1, rie.RoundNumber)
	assert.Equal(t, 1, rie.Outstanding)
}

func TestSwissAdvanceRoundRequiresGeneratedRound(t *testing.T) {
	svc, _, _, _ := newSwissFixture(swissTournament(models.StateInProgress, 0))

	_, err := svc.AdvanceRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrRoundIncomplete)
}

func TestSwissAdvanceRoundRejectsIncompleteRound(t *testing.T) {
	svc, participants, _, matches := newSwissFixture(swissTournament(models.StateInProgress, 1))
	participants.participants = []*models.Participant{
		activeParticipant(1, 101, 1),
		activeParticipant(1, 102, 2),
		activeParticipant(1, 103, 3),
		activeParticipant(1, 104, 4),
	}
	team1, team2, team3, team4 := 101, 102, 103, 104
	result := models.ResultTeam1Win
	matches.matches = []*models.Match{
		{ID: 1, TournamentID: 1, RoundNumber: 1, BracketPosition: 1,
			Team1ID: &team1, Team2ID: &team2,
			Status: models.MatchStatusCompleted, Result: &result, WinnerID: &team1},
		{ID: 2, TournamentID: 1, RoundNumber: 1, BracketPosition: 2,
			Team1ID: &team3, Team2ID: &team4, Status: models.MatchStatusScheduled},
	}

	_, err := svc.AdvanceRound(context.Background(), 1)

	require.Error(t, err)
	var rie *RoundIncompleteError
	require.ErrorAs(t, err, &rie)
	assert.Equal(t, 1, rie.RoundNumber)
	assert.Equal(t, 1, rie.Outstanding)
}

func TestSwissAdvanceRoundRejectsWrongState(t *testing.T) {
	svc, _, _, _ := newSwissFixture(swissTournament(models.StatePaused, 1))

	_, err := svc.AdvanceRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSwissRegenerateRejectsWrongState(t *testing.T) {
	svc, _, _, _ := newSwissFixture(swissTournament(models.StateCompleted, 2))

	_, err := svc.RegenerateCurrentRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSwissRegenerateRequiresGeneratedRound(t *testing.T) {
	svc, _, _, _ := newSwissFixture(swissTournament(models.StateInProgress, 0))

	_, err := svc.RegenerateCurrentRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrRoundIncomplete)
}

func TestSwissRegenerateAllowedDuringSeeding(t *testing.T) {
	// После правки посева в Seeding несыгранный раунд можно пересдать:
	// предусловия проходят, до начала транзакции ничего не удаляется.
	tournament := swissTournament(models.StateSeeding, 1)
	team1, team2 := 101, 102
	matches := &fakeMatchRepo{matches: []*models.Match{
		{ID: 1, TournamentID: 1, RoundNumber: 1, BracketPosition: 1,
			Team1ID: &team1, Team2ID: &team2, Status: models.MatchStatusScheduled},
	}}
	svc := NewSwissService(unreachableDB(t), &fakeTournamentRepo{tournament: tournament},
		&fakeParticipantRepo{}, &fakeBracketRepo{}, matches, &fakeAuditRepo{}, nil, testLogger())

	_, err := svc.RegenerateCurrentRound(context.Background(), 1)

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidTransition)
	assert.ErrorContains(t, err, "failed to begin transaction")
	assert.Len(t, matches.matches, 1)
}

func TestSwissRegenerateRejectsPlayedRound(t *testing.T) {
	svc, _, _, matches := newSwissFixture(swissTournament(models.StateInProgress, 2))
	team1, team2 := 101, 102
	result := models.ResultTeam2Win
	matches.matches = []*models.Match{
		{ID: 1, TournamentID: 1, RoundNumber: 2, BracketPosition: 1,
			Team1ID: &team1, Team2ID: &team2,
			Status: models.MatchStatusCompleted, Result: &result, WinnerID: &team2},
	}

	_, err := svc.RegenerateCurrentRound(context.Background(), 1)

	assert.ErrorIs(t, err, ErrRoundAlreadyPlayed)
}
