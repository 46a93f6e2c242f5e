package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftarena/tournament-engine/models"
)

func swissParticipants(teamIDs ...int) []*models.Participant {
	participants := make([]*models.Participant, 0, len(teamIDs))
	for i, id := range teamIDs {
		participants = append(participants, &models.Participant{
			ID:         i + 1,
			TeamID:     id,
			SeedNumber: i + 1,
			IsActive:   true,
		})
	}
	return participants
}

func TestGenerateSwissRoundFirstRound(t *testing.T) {
	// Нулевые очки: сортировка по посеву даёт пары соседних сеяных.
	active := swissParticipants(10, 20, 30, 40)
	round, err := GenerateSwissRound(active, map[int]int{}, map[int]*Record{}, nil, 1, testConfig())
	require.NoError(t, err)

	require.Len(t, round.Pairings, 2)
	assert.Equal(t, 0, round.Byes)
	assert.Equal(t, 0, round.ForcedRematches)

	assert.Equal(t, 10, round.Pairings[0].Team1ID)
	assert.Equal(t, 20, *round.Pairings[0].Team2ID)
	assert.Equal(t, 30, round.Pairings[1].Team1ID)
	assert.Equal(t, 40, *round.Pairings[1].Team2ID)
}

func TestGenerateSwissRoundScoreGroups(t *testing.T) {
	active := swissParticipants(1, 2, 3, 4)
	scores := map[int]int{1: 0, 2: 3, 3: 0, 4: 3}
	round, err := GenerateSwissRound(active, scores, map[int]*Record{}, nil, 2, testConfig())
	require.NoError(t, err)

	// Лидеры (2 и 4) встречаются между собой, аутсайдеры тоже.
	require.Len(t, round.Pairings, 2)
	assert.Equal(t, 2, round.Pairings[0].Team1ID)
	assert.Equal(t, 4, *round.Pairings[0].Team2ID)
	assert.Equal(t, 1, round.Pairings[1].Team1ID)
	assert.Equal(t, 3, *round.Pairings[1].Team2ID)
}

func TestGenerateSwissRoundAvoidsRematch(t *testing.T) {
	active := swissParticipants(1, 2, 3, 4)
	history := map[int]map[int]bool{
		1: {2: true},
		2: {1: true},
	}
	round, err := GenerateSwissRound(active, map[int]int{}, map[int]*Record{}, history, 2, testConfig())
	require.NoError(t, err)

	for _, p := range round.Pairings {
		require.NotNil(t, p.Team2ID)
		assert.False(t, history[p.Team1ID][*p.Team2ID],
			"rematch %d vs %d proposed with alternatives available", p.Team1ID, *p.Team2ID)
	}
	assert.Equal(t, 0, round.ForcedRematches)
}

func TestGenerateSwissRoundForcedRematchOnlyWhenUnavoidable(t *testing.T) {
	// Полный граф историй из двух команд: рематч неизбежен.
	active := swissParticipants(1, 2)
	history := map[int]map[int]bool{
		1: {2: true},
		2: {1: true},
	}
	round, err := GenerateSwissRound(active, map[int]int{}, map[int]*Record{}, history, 3, testConfig())
	require.NoError(t, err)

	require.Len(t, round.Pairings, 1)
	assert.True(t, round.Pairings[0].Rematch)
	assert.Equal(t, 1, round.ForcedRematches)
}

func TestGenerateSwissRoundNoRematchProperty(t *testing.T) {
	// Случайные неполные графы историй: пока есть не-рематч вариант,
	// генератор не должен предлагать повтор.
	rng := rand.New(rand.NewSource(7))
	teamIDs := []int{1, 2, 3, 4, 5, 6, 7, 8}

	for trial := 0; trial < 200; trial++ {
		history := map[int]map[int]bool{}
		addEdge := func(a, b int) {
			if history[a] == nil {
				history[a] = map[int]bool{}
			}
			history[a][b] = true
		}
		// До 8 случайных рёбер из 28 возможных — граф заведомо неполный.
		for e := 0; e < 8; e++ {
			a := teamIDs[rng.Intn(len(teamIDs))]
			b := teamIDs[rng.Intn(len(teamIDs))]
			if a == b {
				continue
			}
			addEdge(a, b)
			addEdge(b, a)
		}
		scores := map[int]int{}
		for _, id := range teamIDs {
			scores[id] = rng.Intn(4) * 3
		}

		round, err := GenerateSwissRound(swissParticipants(teamIDs...), scores, map[int]*Record{}, history, 2, testConfig())
		require.NoError(t, err)

		for _, p := range round.Pairings {
			if p.Team2ID == nil || p.Rematch {
				continue
			}
			assert.False(t, history[p.Team1ID][*p.Team2ID],
				"trial %d: undeclared rematch %d vs %d", trial, p.Team1ID, *p.Team2ID)
		}
	}
}

func TestGenerateSwissRoundOddTeamGetsBye(t *testing.T) {
	active := swissParticipants(1, 2, 3, 4, 5)
	round, err := GenerateSwissRound(active, map[int]int{}, map[int]*Record{}, nil, 1, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 1, round.Byes)
	require.Len(t, round.Pairings, 3)
	last := round.Pairings[2]
	assert.True(t, last.IsBye)
	assert.Nil(t, last.Team2ID)
	assert.Equal(t, 5, last.Team1ID) // нижний посев при нулевых очках
}

func TestGenerateSwissRoundIgnoresStoredScores(t *testing.T) {
	// Поле SwissScore участника намеренно искажено: на пары влияет только
	// переданная карта очков из пересчитанного леджера.
	active := swissParticipants(1, 2, 3, 4)
	active[0].SwissScore = 999
	active[3].SwissScore = -5

	scores := map[int]int{1: 0, 2: 3, 3: 0, 4: 3}
	round, err := GenerateSwissRound(active, scores, map[int]*Record{}, nil, 2, testConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, round.Pairings[0].Team1ID)
	assert.Equal(t, 4, *round.Pairings[0].Team2ID)
}

func TestGenerateSwissRoundInsufficientParticipants(t *testing.T) {
	_, err := GenerateSwissRound(swissParticipants(1), nil, nil, nil, 1, testConfig())
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}

func TestGenerateSwissRoundExcludesDecidedTeams(t *testing.T) {
	// Команды с решённым исходом не попадают в пары, даже если их ещё не
	// успели деактивировать.
	// Команда 1 уже quali, команда 2 уже вылетела.
	active := swissParticipants(1, 2, 3, 4, 5, 6)
	records := map[int]*Record{
		1: {TeamID: 1, Wins: 3},
		2: {TeamID: 2, Losses: 3},
		3: {TeamID: 3, Wins: 2, Losses: 1},
		4: {TeamID: 4, Wins: 1, Losses: 2},
		5: {TeamID: 5, Wins: 2, Losses: 1},
		6: {TeamID: 6, Wins: 1, Losses: 2},
	}
	cfg := testConfig()
	round, err := GenerateSwissRound(active, SwissScores(records, cfg), records, nil, 4, cfg)
	require.NoError(t, err)

	require.Len(t, round.Pairings, 2)
	assert.Equal(t, 0, round.Byes)
	for _, p := range round.Pairings {
		assert.NotContains(t, []int{1, 2}, p.Team1ID)
		require.NotNil(t, p.Team2ID)
		assert.NotContains(t, []int{1, 2}, *p.Team2ID)
	}
}

func TestGenerateSwissRoundAllDecided(t *testing.T) {
	records := map[int]*Record{
		1: {TeamID: 1, Wins: 3},
		2: {TeamID: 2, Losses: 3},
	}
	cfg := testConfig()
	_, err := GenerateSwissRound(swissParticipants(1, 2), SwissScores(records, cfg), records, nil, 4, cfg)
	assert.ErrorIs(t, err, ErrInsufficientParticipants)
}

func TestPairingBestOf(t *testing.T) {
	cfg := testConfig() // total 5, opening 1, progression 1, elimination 3, finals 5

	fresh := &Record{}
	mid := &Record{Wins: 1, Losses: 1}
	risk := &Record{Wins: 1, Losses: 2} // losses == max_losses-1

	tests := []struct {
		name  string
		round int
		r1    *Record
		r2    *Record
		want  int
	}{
		{"final round", 5, mid, mid, cfg.FinalsBestOf},
		{"both fresh round 1", 1, fresh, fresh, cfg.OpeningBestOf},
		{"nil records round 1", 1, nil, nil, cfg.OpeningBestOf},
		{"elimination risk", 3, risk, mid, cfg.EliminationBestOf},
		{"elimination risk other side", 3, mid, risk, cfg.EliminationBestOf},
		{"progression", 3, mid, mid, cfg.ProgressionBestOf},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PairingBestOf(tt.round, cfg, tt.r1, tt.r2))
		})
	}
}

func TestValidatePairings(t *testing.T) {
	t.Run("valid set", func(t *testing.T) {
		pairings := []*Pairing{
			{Team1ID: 1, Team2ID: intp(2)},
			{Team1ID: 3, IsBye: true},
		}
		assert.Empty(t, ValidatePairings(pairings, []int{1, 2, 3}))
	})

	t.Run("self play", func(t *testing.T) {
		pairings := []*Pairing{{Team1ID: 1, Team2ID: intp(1)}}
		errs := ValidatePairings(pairings, []int{1})
		assert.NotEmpty(t, errs)
	})

	t.Run("duplicate appearance", func(t *testing.T) {
		pairings := []*Pairing{
			{Team1ID: 1, Team2ID: intp(2)},
			{Team1ID: 2, Team2ID: intp(3)},
		}
		errs := ValidatePairings(pairings, []int{1, 2, 3})
		assert.NotEmpty(t, errs)
	})

	t.Run("missing active team", func(t *testing.T) {
		pairings := []*Pairing{{Team1ID: 1, Team2ID: intp(2)}}
		errs := ValidatePairings(pairings, []int{1, 2, 3})
		assert.NotEmpty(t, errs)
	})
}
