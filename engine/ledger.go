package engine

import "github.com/riftarena/tournament-engine/models"

// Record — счёт побед/поражений/ничьих одной команды, выводится заново из
// истории завершённых матчей. Сохранённые значения — только кэш.
type Record struct {
	TeamID int `json:"team_id"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}

func (r *Record) games() int {
	return r.Wins + r.Losses + r.Draws
}

// ComputeRecords derives every team's record from the match set. Only
// Completed matches count. A bye (team2 == nil, result Team1_Win) is a win
// for the lone team with no corresponding loss.
func ComputeRecords(teamIDs []int, matches []*models.Match) map[int]*Record {
	records := make(map[int]*Record, len(teamIDs))
	for _, id := range teamIDs {
		records[id] = &Record{TeamID: id}
	}

	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted || m.Result == nil {
			continue
		}
		switch *m.Result {
		case models.ResultTeam1Win:
			if m.Team1ID != nil {
				if r, ok := records[*m.Team1ID]; ok {
					r.Wins++
				}
			}
			if m.Team2ID != nil {
				if r, ok := records[*m.Team2ID]; ok {
					r.Losses++
				}
			}
		case models.ResultTeam2Win:
			if m.Team2ID != nil {
				if r, ok := records[*m.Team2ID]; ok {
					r.Wins++
				}
			}
			if m.Team1ID != nil {
				if r, ok := records[*m.Team1ID]; ok {
					r.Losses++
				}
			}
		case models.ResultDraw:
			if m.Team1ID != nil {
				if r, ok := records[*m.Team1ID]; ok {
					r.Draws++
				}
			}
			if m.Team2ID != nil {
				if r, ok := records[*m.Team2ID]; ok {
					r.Draws++
				}
			}
		}
	}

	return records
}

// SwissScores converts records into swiss points under the configured
// scoring. This is the only way a swiss score enters a pairing decision.
func SwissScores(records map[int]*Record, cfg Config) map[int]int {
	scores := make(map[int]int, len(records))
	for id, r := range records {
		scores[id] = r.Wins*cfg.PointsPerWin + r.Draws*cfg.PointsPerDraw + r.Losses*cfg.PointsPerLoss
	}
	return scores
}

// Standing — классификация команды относительно порогов отсева.
type Standing string

const (
	StandingActive     Standing = "Active"
	StandingQualified  Standing = "Qualified"
	StandingEliminated Standing = "Eliminated"
)

// Classify partitions teams into Active / Qualified / Eliminated. A team at
// both thresholds simultaneously is a configuration anomaly; ties favor
// advancement, so Qualified wins.
func Classify(records map[int]*Record, cfg Config) map[int]Standing {
	standings := make(map[int]Standing, len(records))
	for id, r := range records {
		switch {
		case r.Wins >= cfg.MaxWins:
			standings[id] = StandingQualified
		case r.Losses >= cfg.MaxLosses:
			standings[id] = StandingEliminated
		default:
			standings[id] = StandingActive
		}
	}
	return standings
}

// OpponentHistory builds, per team, the set of opponents already faced.
// O(matches) to build, O(1) lookup.
func OpponentHistory(matches []*models.Match) map[int]map[int]bool {
	history := make(map[int]map[int]bool)
	add := func(a, b int) {
		if history[a] == nil {
			history[a] = make(map[int]bool)
		}
		history[a][b] = true
	}

	for _, m := range matches {
		if m.Status != models.MatchStatusCompleted {
			continue
		}
		if m.Team1ID == nil || m.Team2ID == nil {
			continue
		}
		add(*m.Team1ID, *m.Team2ID)
		add(*m.Team2ID, *m.Team1ID)
	}

	return history
}

// DetectGhostMatches returns the ids of non-completed matches whose outcome
// cannot affect standings: both sides already Qualified or Eliminated (a nil
// side counts as settled). Такие матчи авто-закрываются ничьёй без победителя.
func DetectGhostMatches(roundMatches []*models.Match, standings map[int]Standing) []int {
	var ghosts []int
	settled := func(teamID *int) bool {
		if teamID == nil {
			return true
		}
		return standings[*teamID] != StandingActive
	}

	for _, m := range roundMatches {
		if m.Status == models.MatchStatusCompleted {
			continue
		}
		if settled(m.Team1ID) && settled(m.Team2ID) {
			ghosts = append(ghosts, m.ID)
		}
	}
	return ghosts
}
