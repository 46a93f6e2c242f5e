package engine

import "github.com/riftarena/tournament-engine/models"

// Slot обозначает, в какую сторону следующего матча записывается победитель.
type Slot string

const (
	SlotTeam1 Slot = "team1"
	SlotTeam2 Slot = "team2"
)

// NextBracketPosition computes the slot index a winner advances into:
// ceil(position / 2).
func NextBracketPosition(pos int) int {
	return (pos + 1) / 2
}

// NextSlot: odd bracket positions feed team1, even feed team2. Это правило
// и гарантирует, что верхние сеяные не встретятся раньше, чем необходимо.
func NextSlot(pos int) Slot {
	if pos%2 == 1 {
		return SlotTeam1
	}
	return SlotTeam2
}

// Advancement — один победитель и слот следующего раунда, куда его записать.
type Advancement struct {
	WinnerID            int  `json:"winner_id"`
	NextRound           int  `json:"next_round"`
	NextBracketPosition int  `json:"next_bracket_position"`
	Slot                Slot `json:"slot"`
}

// AdvanceResult — результат продвижения раунда.
type AdvanceResult struct {
	Advancements        []Advancement `json:"advancements"`
	TournamentCompleted bool          `json:"tournament_completed"`
}

// ComputeAdvancements maps every completed current-round match onto its
// next-round slot. Matches must carry RoundNumber/BracketPosition (joined
// from their bracket). When the current round was the last, the result only
// flags completion.
func ComputeAdvancements(currentRound, totalRounds int, matches []*models.Match) AdvanceResult {
	if currentRound >= totalRounds {
		return AdvanceResult{TournamentCompleted: true}
	}

	var advancements []Advancement
	for _, m := range matches {
		if m.RoundNumber != currentRound || m.Status != models.MatchStatusCompleted {
			continue
		}
		if m.WinnerID == nil {
			continue
		}
		advancements = append(advancements, Advancement{
			WinnerID:            *m.WinnerID,
			NextRound:           currentRound + 1,
			NextBracketPosition: NextBracketPosition(m.BracketPosition),
			Slot:                NextSlot(m.BracketPosition),
		})
	}

	return AdvanceResult{Advancements: advancements}
}
