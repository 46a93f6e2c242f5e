package engine

import (
	"fmt"
	"sort"

	"github.com/riftarena/tournament-engine/models"
)

// Pairing — одна пара раунда швейцарской системы. Team2ID == nil означает bye.
type Pairing struct {
	Team1ID  int  `json:"team1_id"`
	Team2ID  *int `json:"team2_id"`
	IsBye    bool `json:"is_bye"`
	Rematch  bool `json:"rematch"`
	BestOf   int  `json:"best_of"`
	Position int  `json:"position"`
}

// SwissRound — предложенный набор пар очередного раунда плюс метаданные
// для журнала (количество bye, вынужденных рематчей).
type SwissRound struct {
	RoundNumber     int        `json:"round_number"`
	Pairings        []*Pairing `json:"pairings"`
	Byes            int        `json:"byes"`
	ForcedRematches int        `json:"forced_rematches"`
}

// GenerateSwissRound proposes pairings for roundNumber.
//
// The walk: drop teams whose record already decides them, sort the rest by
// recomputed swiss score descending, seed ascending on ties; for each unpaired team scan forward for the first
// unpaired opponent not in its history; fall back to the first unpaired
// opponent when every candidate is a rematch; the odd team out gets a bye.
// Scores MUST come from the ledger, never from stored participant rows.
//
// Known simplification, kept deliberately: the rematch fallback takes the
// first available opponent in scan order rather than the least recently
// played one, which can bias forced rematches under some score
// distributions.
func GenerateSwissRound(
	active []*models.Participant,
	scores map[int]int,
	records map[int]*Record,
	history map[int]map[int]bool,
	roundNumber int,
	cfg Config,
) (*SwissRound, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Команды с решённым исходом (quali или вылет) в сетку раунда не попадают.
	standings := Classify(records, cfg)
	candidates := make([]*models.Participant, 0, len(active))
	for _, p := range active {
		if s, ok := standings[p.TeamID]; ok && s != StandingActive {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) < 2 {
		return nil, fmt.Errorf("%w: found %d", ErrInsufficientParticipants, len(candidates))
	}

	sorted := make([]*models.Participant, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := scores[sorted[i].TeamID], scores[sorted[j].TeamID]
		if si != sj {
			return si > sj
		}
		return sorted[i].SeedNumber < sorted[j].SeedNumber
	})

	round := &SwissRound{RoundNumber: roundNumber}
	paired := make(map[int]bool, len(sorted))

	for i, p1 := range sorted {
		if paired[p1.TeamID] {
			continue
		}
		paired[p1.TeamID] = true

		var opponent *models.Participant
		rematch := false

		// First pass: closest-scored opponent not yet faced.
		for j := i + 1; j < len(sorted); j++ {
			p2 := sorted[j]
			if paired[p2.TeamID] || history[p1.TeamID][p2.TeamID] {
				continue
			}
			opponent = p2
			break
		}

		// Fallback: rematch permitted only when unavoidable.
		if opponent == nil {
			for j := i + 1; j < len(sorted); j++ {
				p2 := sorted[j]
				if paired[p2.TeamID] {
					continue
				}
				opponent = p2
				rematch = true
				break
			}
		}

		pairing := &Pairing{
			Team1ID:  p1.TeamID,
			Position: len(round.Pairings) + 1,
		}

		if opponent == nil {
			pairing.IsBye = true
			pairing.BestOf = cfg.OpeningBestOf
			round.Byes++
		} else {
			paired[opponent.TeamID] = true
			teamID := opponent.TeamID
			pairing.Team2ID = &teamID
			pairing.Rematch = rematch
			pairing.BestOf = PairingBestOf(roundNumber, cfg, records[p1.TeamID], records[opponent.TeamID])
			if rematch {
				round.ForcedRematches++
			}
		}

		round.Pairings = append(round.Pairings, pairing)
	}

	return round, nil
}

// PairingBestOf выбирает длину серии для пары.
// Final round plays finals length; fresh teams (no completed games, i.e.
// round 1) play the opening length; a team one loss from elimination plays
// the elimination length; everything else is a progression match.
func PairingBestOf(roundNumber int, cfg Config, r1, r2 *Record) int {
	if roundNumber >= cfg.TotalRounds {
		return cfg.FinalsBestOf
	}
	if fresh(r1) && fresh(r2) {
		return cfg.OpeningBestOf
	}
	if atEliminationRisk(r1, cfg) || atEliminationRisk(r2, cfg) {
		return cfg.EliminationBestOf
	}
	return cfg.ProgressionBestOf
}

func fresh(r *Record) bool {
	return r == nil || r.games() == 0
}

func atEliminationRisk(r *Record, cfg Config) bool {
	return r != nil && r.Losses >= cfg.MaxLosses-1
}

// ValidatePairings проверяет набор пар перед сохранением: без self-play, без
// дублей, каждая активная команда учтена.
func ValidatePairings(pairings []*Pairing, activeTeamIDs []int) []string {
	var errs []string
	seen := make(map[int]bool)

	for _, p := range pairings {
		if p.Team2ID != nil && *p.Team2ID == p.Team1ID {
			errs = append(errs, fmt.Sprintf("team %d is paired against itself", p.Team1ID))
		}
		if seen[p.Team1ID] {
			errs = append(errs, fmt.Sprintf("team %d appears in multiple pairings", p.Team1ID))
		}
		seen[p.Team1ID] = true

		if p.Team2ID != nil {
			if seen[*p.Team2ID] {
				errs = append(errs, fmt.Sprintf("team %d appears in multiple pairings", *p.Team2ID))
			}
			seen[*p.Team2ID] = true
		}
	}

	for _, id := range activeTeamIDs {
		if !seen[id] {
			errs = append(errs, fmt.Sprintf("active team %d is missing from pairings", id))
		}
	}

	return errs
}
