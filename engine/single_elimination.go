package engine

import (
	"fmt"
	"sort"

	"github.com/riftarena/tournament-engine/models"
)

// BracketSlot — слот раунда в плане сетки, до сохранения в БД.
type BracketSlot struct {
	RoundNumber     int  `json:"round_number"`
	BracketPosition int  `json:"bracket_position"`
	IsFinal         bool `json:"is_final"`
}

// MatchSlot — матч в плане сетки. Nil в Team1ID/Team2ID означает bye или
// ещё не определённого победителя предыдущего раунда.
type MatchSlot struct {
	RoundNumber     int                 `json:"round_number"`
	BracketPosition int                 `json:"bracket_position"`
	Team1ID         *int                `json:"team1_id"`
	Team2ID         *int                `json:"team2_id"`
	Status          models.MatchStatus  `json:"status"`
	Result          *models.MatchResult `json:"result,omitempty"`
	WinnerID        *int                `json:"winner_id,omitempty"`
	BestOf          int                 `json:"best_of"`
	IsBye           bool                `json:"is_bye"`
}

// BracketPlan — полный план single-elimination сетки: все раунды, bye-матчи
// уже завершены, их победители продвинуты во второй раунд.
type BracketPlan struct {
	TotalRounds int            `json:"total_rounds"`
	Brackets    []*BracketSlot `json:"brackets"`
	Matches     []*MatchSlot   `json:"matches"`
	TeamCount   int            `json:"team_count"`
	ByeCount    int            `json:"bye_count"`
}

// GenerateSingleElimination строит полную сетку для участников,
// отсортированных по seed_number. Count of round-1 matches is always
// bracketSize/2; unfilled slots become byes, auto-completed with the present
// team as winner and pre-advanced into round 2.
func GenerateSingleElimination(participants []*models.Participant, cfg Config) (*BracketPlan, error) {
	n := len(participants)
	if n < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrInsufficientParticipants, n)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seeded := make([]*models.Participant, n)
	copy(seeded, participants)
	sort.SliceStable(seeded, func(i, j int) bool {
		return seeded[i].SeedNumber < seeded[j].SeedNumber
	})

	bracketSize, totalRounds := BracketSize(n)
	seedOrder := SeedOrder(bracketSize)

	plan := &BracketPlan{
		TotalRounds: totalRounds,
		TeamCount:   n,
		ByeCount:    bracketSize - n,
	}

	for round := 1; round <= totalRounds; round++ {
		matchesInRound := bracketSize >> uint(round)
		for pos := 1; pos <= matchesInRound; pos++ {
			plan.Brackets = append(plan.Brackets, &BracketSlot{
				RoundNumber:     round,
				BracketPosition: pos,
				IsFinal:         round == totalRounds,
			})
		}
	}

	// Round 1: map the seed permutation onto participant list positions.
	teamAt := func(orderIdx int) *int {
		idx := seedOrder[orderIdx]
		if idx >= n {
			return nil
		}
		teamID := seeded[idx].TeamID
		return &teamID
	}

	firstRoundCount := bracketSize / 2
	for i := 0; i < firstRoundCount; i++ {
		team1 := teamAt(i * 2)
		team2 := teamAt(i*2 + 1)

		slot := &MatchSlot{
			RoundNumber:     1,
			BracketPosition: i + 1,
			Team1ID:         team1,
			Team2ID:         team2,
			Status:          models.MatchStatusScheduled,
			BestOf:          cfg.OpeningBestOf,
		}

		switch {
		case team1 != nil && team2 == nil:
			slot.IsBye = true
			slot.Status = models.MatchStatusCompleted
			slot.WinnerID = team1
			result := models.ResultTeam1Win
			slot.Result = &result
		case team1 == nil && team2 != nil:
			// Normalize: лишняя команда всегда в первом слоте.
			slot.Team1ID, slot.Team2ID = team2, nil
			slot.IsBye = true
			slot.Status = models.MatchStatusCompleted
			slot.WinnerID = team2
			result := models.ResultTeam1Win
			slot.Result = &result
		}

		plan.Matches = append(plan.Matches, slot)
	}

	// Rounds 2..N are pre-created empty so later rounds have stable slot
	// identities to advance winners into.
	for round := 2; round <= totalRounds; round++ {
		matchesInRound := bracketSize >> uint(round)
		bestOf := cfg.EliminationBestOf
		if round == totalRounds {
			bestOf = cfg.FinalsBestOf
		}
		for pos := 1; pos <= matchesInRound; pos++ {
			plan.Matches = append(plan.Matches, &MatchSlot{
				RoundNumber:     round,
				BracketPosition: pos,
				Status:          models.MatchStatusScheduled,
				BestOf:          bestOf,
			})
		}
	}

	// Push bye winners straight into their round-2 slots.
	for _, m := range plan.Matches {
		if m.RoundNumber != 1 || !m.IsBye || m.WinnerID == nil {
			continue
		}
		nextPos := NextBracketPosition(m.BracketPosition)
		next := plan.matchAt(2, nextPos)
		if next == nil {
			continue // two-team bracket: round 1 is the final
		}
		if NextSlot(m.BracketPosition) == SlotTeam1 {
			next.Team1ID = m.WinnerID
		} else {
			next.Team2ID = m.WinnerID
		}
	}

	return plan, nil
}

func (p *BracketPlan) matchAt(round, pos int) *MatchSlot {
	for _, m := range p.Matches {
		if m.RoundNumber == round && m.BracketPosition == pos {
			return m
		}
	}
	return nil
}

// Validate проверяет структурную корректность плана перед сохранением.
func (p *BracketPlan) Validate() []string {
	var errs []string

	_, expectedRounds := BracketSize(p.TeamCount)
	if p.TotalRounds != expectedRounds {
		errs = append(errs, fmt.Sprintf("expected %d rounds for %d teams, got %d",
			expectedRounds, p.TeamCount, p.TotalRounds))
	}

	bracketSize := 1 << uint(p.TotalRounds)
	firstRound := 0
	for _, m := range p.Matches {
		if m.RoundNumber == 1 {
			firstRound++
		}
		if m.Team1ID != nil && m.Team2ID != nil && *m.Team1ID == *m.Team2ID {
			errs = append(errs, fmt.Sprintf("round %d position %d: team %d plays itself",
				m.RoundNumber, m.BracketPosition, *m.Team1ID))
		}
	}
	if firstRound != bracketSize/2 {
		errs = append(errs, fmt.Sprintf("expected %d first-round matches, got %d",
			bracketSize/2, firstRound))
	}

	seen := make(map[int]bool)
	for _, m := range p.Matches {
		if m.RoundNumber != 1 {
			continue
		}
		for _, teamID := range []*int{m.Team1ID, m.Team2ID} {
			if teamID == nil {
				continue
			}
			if seen[*teamID] {
				errs = append(errs, fmt.Sprintf("team %d appears in multiple first-round matches", *teamID))
			}
			seen[*teamID] = true
		}
	}

	return errs
}
