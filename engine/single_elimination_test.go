package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftarena/tournament-engine/models"
)

func testConfig() Config {
	return Config{
		PointsPerWin:      3,
		PointsPerDraw:     1,
		PointsPerLoss:     0,
		MaxWins:           3,
		MaxLosses:         3,
		TotalRounds:       5,
		OpeningBestOf:     1,
		ProgressionBestOf: 1,
		EliminationBestOf: 3,
		FinalsBestOf:      5,
	}
}

func makeParticipants(n int) []*models.Participant {
	participants := make([]*models.Participant, 0, n)
	for i := 1; i <= n; i++ {
		participants = append(participants, &models.Participant{
			ID:         i,
			TeamID:     100 + i,
			SeedNumber: i,
			IsActive:   true,
		})
	}
	return participants
}

func TestGenerateSingleEliminationCanonicalPairings(t *testing.T) {
	plan, err := GenerateSingleElimination(makeParticipants(8), testConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, plan.TotalRounds)
	assert.Equal(t, 0, plan.ByeCount)
	assert.Empty(t, plan.Validate())

	// Позиции 1..4: 1v8, 4v5, 2v7, 3v6 (team id = 100 + seed).
	want := [][2]int{{101, 108}, {104, 105}, {102, 107}, {103, 106}}
	for i, pair := range want {
		m := plan.matchAt(1, i+1)
		require.NotNil(t, m)
		require.NotNil(t, m.Team1ID)
		require.NotNil(t, m.Team2ID)
		assert.Equal(t, pair[0], *m.Team1ID, "position %d team1", i+1)
		assert.Equal(t, pair[1], *m.Team2ID, "position %d team2", i+1)
		assert.Equal(t, models.MatchStatusScheduled, m.Status)
	}
}

func TestGenerateSingleEliminationByes(t *testing.T) {
	plan, err := GenerateSingleElimination(makeParticipants(5), testConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, plan.TotalRounds)
	assert.Equal(t, 3, plan.ByeCount)
	assert.Empty(t, plan.Validate())

	byes := 0
	for _, m := range plan.Matches {
		if m.RoundNumber != 1 {
			continue
		}
		if m.IsBye {
			byes++
			assert.Equal(t, models.MatchStatusCompleted, m.Status)
			require.NotNil(t, m.Result)
			assert.Equal(t, models.ResultTeam1Win, *m.Result)
			require.NotNil(t, m.WinnerID)
			require.NotNil(t, m.Team1ID)
			assert.Equal(t, *m.Team1ID, *m.WinnerID)
			assert.Nil(t, m.Team2ID)
		}
	}
	assert.Equal(t, 3, byes)
}

func TestGenerateSingleEliminationByeWinnersPreAdvanced(t *testing.T) {
	plan, err := GenerateSingleElimination(makeParticipants(5), testConfig())
	require.NoError(t, err)

	for _, m := range plan.Matches {
		if m.RoundNumber != 1 || !m.IsBye {
			continue
		}
		next := plan.matchAt(2, NextBracketPosition(m.BracketPosition))
		require.NotNil(t, next)

		var slotValue *int
		if NextSlot(m.BracketPosition) == SlotTeam1 {
			slotValue = next.Team1ID
		} else {
			slotValue = next.Team2ID
		}
		require.NotNil(t, slotValue, "bye winner from position %d not advanced", m.BracketPosition)
		assert.Equal(t, *m.WinnerID, *slotValue)
	}
}

func TestGenerateSingleEliminationRoundStructure(t *testing.T) {
	plan, err := GenerateSingleElimination(makeParticipants(8), testConfig())
	require.NoError(t, err)

	counts := map[int]int{}
	for _, b := range plan.Brackets {
		counts[b.RoundNumber]++
		assert.Equal(t, b.RoundNumber == plan.TotalRounds, b.IsFinal)
	}
	assert.Equal(t, map[int]int{1: 4, 2: 2, 3: 1}, counts)

	// Пустые матчи поздних раундов созданы заранее.
	final := plan.matchAt(3, 1)
	require.NotNil(t, final)
	assert.Nil(t, final.Team1ID)
	assert.Nil(t, final.Team2ID)
	assert.Equal(t, testConfig().FinalsBestOf, final.BestOf)

	semifinal := plan.matchAt(2, 1)
	require.NotNil(t, semifinal)
	assert.Equal(t, testConfig().EliminationBestOf, semifinal.BestOf)
}

func TestGenerateSingleEliminationInsufficientParticipants(t *testing.T) {
	_, err := GenerateSingleElimination(makeParticipants(1), testConfig())
	assert.ErrorIs(t, err, ErrInsufficientParticipants)

	_, err = GenerateSingleElimination(nil, testConfig())
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}

func TestGenerateSingleEliminationInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.FinalsBestOf = 0
	_, err := GenerateSingleElimination(makeParticipants(4), cfg)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestGenerateSingleEliminationTwoTeams(t *testing.T) {
	plan, err := GenerateSingleElimination(makeParticipants(2), testConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, plan.TotalRounds)
	require.Len(t, plan.Matches, 1)
	m := plan.Matches[0]
	assert.False(t, m.IsBye)
	assert.Equal(t, 101, *m.Team1ID)
	assert.Equal(t, 102, *m.Team2ID)
}
