package models

// TournamentState представляет фазу жизненного цикла турнира, соответствует ENUM в БД.
type TournamentState string

const (
	StateRegistration TournamentState = "Registration"
	StateSeeding      TournamentState = "Seeding"
	StateInProgress   TournamentState = "In_Progress"
	StatePaused       TournamentState = "Paused"
	StateCompleted    TournamentState = "Completed"
	StateCancelled    TournamentState = "Cancelled"
	StateArchived     TournamentState = "Archived"
)

var AllStates = []TournamentState{
	StateRegistration, StateSeeding, StateInProgress, StatePaused,
	StateCompleted, StateCancelled, StateArchived,
}

// stateTransitions is the full set of legal lifecycle edges. Any transition
// not present here is rejected before anything is mutated.
var stateTransitions = map[TournamentState][]TournamentState{
	StateRegistration: {StateSeeding, StateCancelled},
	StateSeeding:      {StateInProgress, StateRegistration, StateCancelled},
	StateInProgress:   {StatePaused, StateCompleted, StateCancelled},
	StatePaused:       {StateInProgress, StateCancelled},
	StateCompleted:    {StateArchived},
	StateCancelled:    {StateArchived, StateRegistration}, // revival allowed
	StateArchived:     {},
}

func (s TournamentState) IsValid() bool {
	_, ok := stateTransitions[s]
	return ok
}

func (s TournamentState) CanTransitionTo(to TournamentState) bool {
	for _, next := range stateTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s TournamentState) ValidTransitions() []TournamentState {
	next := stateTransitions[s]
	out := make([]TournamentState, len(next))
	copy(out, next)
	return out
}

// IsDestructiveTransition reports whether a transition into the target state
// requires an explicit acknowledgment from the caller.
func IsDestructiveTransition(to TournamentState) bool {
	switch to {
	case StateCancelled, StateCompleted, StateArchived:
		return true
	}
	return false
}

// StateCapabilities описывает какие операции разрешены в данном состоянии.
type StateCapabilities struct {
	CanRegister        bool `json:"can_register"`
	CanEditSeeding     bool `json:"can_edit_seeding"`
	CanGenerateBracket bool `json:"can_generate_bracket"`
	CanPlayMatches     bool `json:"can_play_matches"`
	CanAdvanceRound    bool `json:"can_advance_round"`
	CanModifyPairings  bool `json:"can_modify_pairings"`
	IsMutable          bool `json:"is_mutable"`
	IsTerminal         bool `json:"is_terminal"`
}

var stateCapabilities = map[TournamentState]StateCapabilities{
	StateRegistration: {
		CanRegister:    true,
		CanEditSeeding: true,
		IsMutable:      true,
	},
	StateSeeding: {
		CanEditSeeding:     true,
		CanGenerateBracket: true,
		IsMutable:          true,
	},
	StateInProgress: {
		CanEditSeeding:    true,
		CanPlayMatches:    true,
		CanAdvanceRound:   true,
		CanModifyPairings: true,
		IsMutable:         true,
	},
	StatePaused: {
		CanEditSeeding:    true,
		CanModifyPairings: true,
		IsMutable:         true,
	},
	StateCompleted: {},
	StateCancelled: {},
	StateArchived: {
		IsTerminal: true,
	},
}

func (s TournamentState) Capabilities() StateCapabilities {
	return stateCapabilities[s]
}
