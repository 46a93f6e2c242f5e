package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riftarena/tournament-engine/models"
)

func newMatchFixture(tournament *models.Tournament, match *models.Match) MatchService {
	matches := &fakeMatchRepo{}
	if match != nil {
		matches.matches = []*models.Match{match}
	}
	return NewMatchService(nil, &fakeTournamentRepo{tournament: tournament},
		matches, &fakeAuditRepo{}, nil, testLogger())
}

func TestReportResultRejectsDecidedMatch(t *testing.T) {
	team1, team2 := 101, 102
	result := models.ResultTeam1Win
	svc := newMatchFixture(
		&models.Tournament{ID: 1, Format: models.FormatSingleElimination, Status: models.StateInProgress},
		&models.Match{ID: 5, TournamentID: 1, Team1ID: &team1, Team2ID: &team2,
			Status: models.MatchStatusCompleted, Result: &result, WinnerID: &team1},
	)

	_, err := svc.ReportResult(context.Background(), 5, models.ResultTeam2Win)

	assert.ErrorIs(t, err, ErrMatchAlreadyDecided)
}

func TestReportResultRejectsWrongState(t *testing.T) {
	team1, team2 := 101, 102
	for _, state := range []models.TournamentState{
		models.StateSeeding, models.StatePaused, models.StateCompleted,
	} {
		svc := newMatchFixture(
			&models.Tournament{ID: 1, Format: models.FormatSingleElimination, Status: state},
			&models.Match{ID: 5, TournamentID: 1, Team1ID: &team1, Team2ID: &team2,
				Status: models.MatchStatusScheduled},
		)

		_, err := svc.ReportResult(context.Background(), 5, models.ResultTeam1Win)

		assert.ErrorIs(t, err, ErrInvalidTransition, "state %s", state)
	}
}

func TestReportResultRejectsDrawOutsideSwiss(t *testing.T) {
	team1, team2 := 101, 102
	svc := newMatchFixture(
		&models.Tournament{ID: 1, Format: models.FormatSingleElimination, Status: models.StateInProgress},
		&models.Match{ID: 5, TournamentID: 1, Team1ID: &team1, Team2ID: &team2,
			Status: models.MatchStatusScheduled},
	)

	_, err := svc.ReportResult(context.Background(), 5, models.ResultDraw)

	assert.ErrorIs(t, err, ErrFormatMismatch)
}

func TestReportResultRejectsEmptySlotWinner(t *testing.T) {
	team1 := 101
	svc := newMatchFixture(
		&models.Tournament{ID: 1, Format: models.FormatSingleElimination, Status: models.StateInProgress},
		&models.Match{ID: 5, TournamentID: 1, Team1ID: &team1, Team2ID: nil,
			Status: models.MatchStatusScheduled},
	)

	_, err := svc.ReportResult(context.Background(), 5, models.ResultTeam2Win)

	assert.Error(t, err)
}

func TestReportResultRejectsUnknownResult(t *testing.T) {
	team1, team2 := 101, 102
	svc := newMatchFixture(
		&models.Tournament{ID: 1, Format: models.FormatSwiss, Status: models.StateInProgress},
		&models.Match{ID: 5, TournamentID: 1, Team1ID: &team1, Team2ID: &team2,
			Status: models.MatchStatusScheduled},
	)

	_, err := svc.ReportResult(context.Background(), 5, models.MatchResult("Coin_Flip"))

	assert.Error(t, err)
}
