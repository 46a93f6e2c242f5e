package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/riftarena/tournament-engine/engine"
	"github.com/riftarena/tournament-engine/live"
	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
)

// SwissAdvanceOutcome — итог закрытия швейцарского раунда.
type SwissAdvanceOutcome struct {
	ClosedRound          int                     `json:"closed_round"`
	GhostMatchesResolved []int                   `json:"ghost_matches_resolved,omitempty"`
	Eliminated           []int                   `json:"eliminated_team_ids,omitempty"`
	Qualified            []int                   `json:"qualified_team_ids,omitempty"`
	TournamentCompleted  bool                    `json:"tournament_completed"`
	NextRound            *engine.SwissRound      `json:"next_round,omitempty"`
	Standings            map[int]engine.Standing `json:"standings"`
}

type SwissService interface {
	GenerateRound(ctx context.Context, tournamentID int) (*engine.SwissRound, error)
	AdvanceRound(ctx context.Context, tournamentID int) (*SwissAdvanceOutcome, error)
	RegenerateCurrentRound(ctx context.Context, tournamentID int) (*engine.SwissRound, error)
}

type swissService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	auditRepo       repositories.AuditRepository
	hub             *live.Hub
	logger          *slog.Logger
}

func NewSwissService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	auditRepo repositories.AuditRepository,
	hub *live.Hub,
	logger *slog.Logger,
) SwissService {
	return &swissService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		auditRepo:       auditRepo,
		hub:             hub,
		logger:          logger,
	}
}

// ledgerState — всё, что движку нужно для пейринга, пересчитанное из матчей.
type ledgerState struct {
	active  []*models.Participant
	records map[int]*engine.Record
	scores  map[int]int
	history map[int]map[int]bool
}

// loadLedger recomputes records, scores and opponent history from completed
// matches. Stored swiss_score values are never read back into decisions.
func (s *swissService) loadLedger(ctx context.Context, tournamentID int) (*ledgerState, engine.Config, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, engine.Config{}, err
	}
	cfg := engine.ConfigFrom(tournament)

	active, err := s.participantRepo.ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, cfg, err
	}
	matches, err := s.matchRepo.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, cfg, err
	}

	teamIDs := make([]int, 0, len(active))
	for _, p := range active {
		teamIDs = append(teamIDs, p.TeamID)
	}
	records := engine.ComputeRecords(teamIDs, matches)
	return &ledgerState{
		active:  active,
		records: records,
		scores:  engine.SwissScores(records, cfg),
		history: engine.OpponentHistory(matches),
	}, cfg, nil
}

func (s *swissService) GenerateRound(ctx context.Context, tournamentID int) (*engine.SwissRound, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Format != models.FormatSwiss {
		return nil, fmt.Errorf("%w: tournament %d has format %s",
			ErrFormatMismatch, tournamentID, tournament.Format)
	}
	caps := tournament.Status.Capabilities()
	if !caps.CanGenerateBracket && !caps.CanAdvanceRound {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: "round generation"}
	}

	targetRound := tournament.CurrentRound + 1
	if tournament.TotalRounds > 0 && targetRound > tournament.TotalRounds {
		return nil, fmt.Errorf("%w: all %d rounds already generated",
			ErrConflictingGeneration, tournament.TotalRounds)
	}

	// Текущий раунд должен быть закрыт, иначе ledger посчитается по
	// недоигранным матчам.
	if tournament.CurrentRound > 0 {
		outstanding, err := s.matchRepo.CountIncompleteByRound(ctx, tournamentID, tournament.CurrentRound)
		if err != nil {
			return nil, err
		}
		if outstanding > 0 {
			return nil, &RoundIncompleteError{RoundNumber: tournament.CurrentRound, Outstanding: outstanding}
		}
	}

	round, err := s.generateAndPersist(ctx, tournament, targetRound)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventRoundGenerated,
			TournamentID: tournamentID,
			Payload:      round,
		})
	}
	return round, nil
}

func (s *swissService) generateAndPersist(ctx context.Context, tournament *models.Tournament, targetRound int) (*engine.SwissRound, error) {
	existing, err := s.bracketRepo.ListByRound(ctx, tournament.ID, targetRound)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: round %d already has %d brackets",
			ErrConflictingGeneration, targetRound, len(existing))
	}

	state, cfg, err := s.loadLedger(ctx, tournament.ID)
	if err != nil {
		return nil, err
	}

	round, err := engine.GenerateSwissRound(state.active, state.scores, state.records, state.history, targetRound, cfg)
	if err != nil {
		return nil, err
	}

	// Пейринг покрывает только команды без решённого исхода: quali и
	// вылетевшие в нём не участвуют.
	standings := engine.Classify(state.records, cfg)
	activeIDs := make([]int, 0, len(state.active))
	for _, p := range state.active {
		if standings[p.TeamID] != engine.StandingActive {
			continue
		}
		activeIDs = append(activeIDs, p.TeamID)
	}
	if problems := engine.ValidatePairings(round.Pairings, activeIDs); len(problems) > 0 {
		return nil, fmt.Errorf("generated pairings failed validation: %v", problems)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", "tournament_id", tournament.ID, "error", rbErr)
			}
		}
	}()

	brackets := make([]*models.Bracket, 0, len(round.Pairings))
	for _, p := range round.Pairings {
		brackets = append(brackets, &models.Bracket{
			TournamentID:    tournament.ID,
			RoundNumber:     targetRound,
			BracketPosition: p.Position,
			IsFinal:         targetRound == cfg.TotalRounds,
		})
	}
	if txErr = s.bracketRepo.CreateBatch(ctx, tx, brackets); txErr != nil {
		if errors.Is(txErr, repositories.ErrBracketPositionConflict) {
			txErr = fmt.Errorf("%w: %v", ErrConflictingGeneration, txErr)
		}
		return nil, txErr
	}

	for i, p := range round.Pairings {
		match := &models.Match{
			BracketID:    brackets[i].ID,
			TournamentID: tournament.ID,
			MatchNumber:  p.Position,
			Team1ID:      &p.Team1ID,
			Team2ID:      p.Team2ID,
			Status:       models.MatchStatusScheduled,
			BestOf:       p.BestOf,
		}
		if p.IsBye {
			// Bye засчитывается как победа сразу при генерации.
			match.Status = models.MatchStatusCompleted
			result := models.ResultTeam1Win
			match.Result = &result
			match.WinnerID = &p.Team1ID
		}
		if txErr = s.matchRepo.Create(ctx, tx, match); txErr != nil {
			return nil, txErr
		}
	}

	// Персистим пересчитанные очки и историю — справочно, решения по ним
	// не принимаются.
	for _, p := range state.active {
		opponents := make([]int, 0, len(state.history[p.TeamID]))
		for opp := range state.history[p.TeamID] {
			opponents = append(opponents, opp)
		}
		if txErr = s.participantRepo.UpdateSwissState(ctx, tx, p.ID, state.scores[p.TeamID], opponents); txErr != nil {
			return nil, txErr
		}
	}

	totalRounds := tournament.TotalRounds
	if totalRounds == 0 {
		totalRounds = cfg.TotalRounds
	}
	if txErr = s.tournamentRepo.UpdateRounds(ctx, tx, tournament.ID, targetRound, totalRounds); txErr != nil {
		return nil, txErr
	}

	details, _ := json.Marshal(map[string]interface{}{
		"pairings":         len(round.Pairings),
		"byes":             round.Byes,
		"forced_rematches": round.ForcedRematches,
	})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournament.ID,
		Action:       "swiss_round_generated",
		Details:      details,
		RoundNumber:  &targetRound,
	}); txErr != nil {
		return nil, txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit swiss round: %w", txErr)
	}

	s.logger.Info("swiss round generated",
		"tournament_id", tournament.ID, "round", targetRound,
		"pairings", len(round.Pairings), "byes", round.Byes,
		"forced_rematches", round.ForcedRematches)
	return round, nil
}

func (s *swissService) AdvanceRound(ctx context.Context, tournamentID int) (*SwissAdvanceOutcome, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Format != models.FormatSwiss {
		return nil, fmt.Errorf("%w: tournament %d has format %s",
			ErrFormatMismatch, tournamentID, tournament.Format)
	}
	if !tournament.Status.Capabilities().CanAdvanceRound {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: "round advancement"}
	}
	if tournament.CurrentRound == 0 {
		return nil, fmt.Errorf("%w: no round generated yet", ErrRoundIncomplete)
	}

	state, cfg, err := s.loadLedger(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	standings := engine.Classify(state.records, cfg)

	// Ghost-матчи — пары, исход которых уже не влияет на зачёт: обе
	// стороны решены. Закрываем их ничьёй перед проверкой полноты раунда.
	roundMatches, err := s.matchRepo.ListByRound(ctx, tournamentID, tournament.CurrentRound)
	if err != nil {
		return nil, err
	}
	ghosts := engine.DetectGhostMatches(roundMatches, standings)
	if len(ghosts) > 0 {
		if err := s.resolveGhosts(ctx, tournamentID, tournament.CurrentRound, ghosts); err != nil {
			return nil, err
		}
	}

	outstanding, err := s.matchRepo.CountIncompleteByRound(ctx, tournamentID, tournament.CurrentRound)
	if err != nil {
		return nil, err
	}
	if outstanding > 0 {
		return nil, &RoundIncompleteError{RoundNumber: tournament.CurrentRound, Outstanding: outstanding}
	}

	// Пересчёт после ghost-резолюции: ничьи меняют записи.
	state, cfg, err = s.loadLedger(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	standings = engine.Classify(state.records, cfg)

	outcome := &SwissAdvanceOutcome{
		ClosedRound:          tournament.CurrentRound,
		GhostMatchesResolved: ghosts,
		Standings:            standings,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", "tournament_id", tournamentID, "error", rbErr)
			}
		}
	}()

	undecided := 0
	for _, p := range state.active {
		switch standings[p.TeamID] {
		case engine.StandingEliminated:
			outcome.Eliminated = append(outcome.Eliminated, p.TeamID)
			if txErr = s.participantRepo.Deactivate(ctx, tx, p.ID); txErr != nil {
				return nil, txErr
			}
		case engine.StandingQualified:
			outcome.Qualified = append(outcome.Qualified, p.TeamID)
		default:
			undecided++
		}
	}

	roundsExhausted := cfg.TotalRounds > 0 && tournament.CurrentRound >= cfg.TotalRounds
	if undecided <= 1 || roundsExhausted {
		outcome.TournamentCompleted = true
		if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StateCompleted); txErr != nil {
			return nil, txErr
		}
	}

	details, _ := json.Marshal(map[string]interface{}{
		"ghost_matches": len(ghosts),
		"eliminated":    outcome.Eliminated,
		"qualified":     outcome.Qualified,
		"completed":     outcome.TournamentCompleted,
	})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournamentID,
		Action:       "swiss_round_closed",
		Details:      details,
		RoundNumber:  &tournament.CurrentRound,
	}); txErr != nil {
		return nil, txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit swiss advancement: %w", txErr)
	}

	s.logger.Info("swiss round closed",
		"tournament_id", tournamentID, "round", tournament.CurrentRound,
		"eliminated", len(outcome.Eliminated), "qualified", len(outcome.Qualified),
		"completed", outcome.TournamentCompleted)

	if outcome.TournamentCompleted {
		if s.hub != nil {
			s.hub.Publish(live.Event{
				Type:         live.EventLifecycleChange,
				TournamentID: tournamentID,
				Payload:      map[string]interface{}{"to": models.StateCompleted},
			})
		}
		return outcome, nil
	}

	// Следующий раунд генерируется сразу после закрытия текущего.
	tournament, err = s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	nextRound, err := s.generateAndPersist(ctx, tournament, outcome.ClosedRound+1)
	if err != nil {
		return nil, err
	}
	outcome.NextRound = nextRound

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventRoundAdvanced,
			TournamentID: tournamentID,
			Payload:      outcome,
		})
	}
	return outcome, nil
}

// resolveGhosts закрывает матчи ничьёй отдельной транзакцией до проверки
// полноты раунда.
func (s *swissService) resolveGhosts(ctx context.Context, tournamentID, roundNumber int, matchIDs []int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	draw := models.ResultDraw
	for _, id := range matchIDs {
		if txErr = s.matchRepo.UpdateOutcome(ctx, tx, id, models.MatchStatusCompleted, &draw, nil); txErr != nil {
			return txErr
		}
	}

	details, _ := json.Marshal(map[string]interface{}{"match_ids": matchIDs})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournamentID,
		Action:       "ghost_matches_resolved",
		Details:      details,
		RoundNumber:  &roundNumber,
	}); txErr != nil {
		return txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit ghost resolution: %w", txErr)
	}

	s.logger.Info("ghost matches resolved as draws",
		"tournament_id", tournamentID, "round", roundNumber, "count", len(matchIDs))
	return nil
}

// RegenerateCurrentRound пересдаёт текущий раунд. Разрешено только пока в
// раунде нет ни одного сыгранного матча (bye не считается).
func (s *swissService) RegenerateCurrentRound(ctx context.Context, tournamentID int) (*engine.SwissRound, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Format != models.FormatSwiss {
		return nil, fmt.Errorf("%w: tournament %d has format %s",
			ErrFormatMismatch, tournamentID, tournament.Format)
	}
	// Те же состояния, из которых раунд можно сгенерировать: пересдача
	// в Seeding нужна после правок посева.
	caps := tournament.Status.Capabilities()
	if !caps.CanModifyPairings && !caps.CanGenerateBracket {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: "round regeneration"}
	}
	if tournament.CurrentRound == 0 {
		return nil, fmt.Errorf("%w: no round to regenerate", ErrRoundIncomplete)
	}

	matches, err := s.matchRepo.ListByRound(ctx, tournamentID, tournament.CurrentRound)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.Status == models.MatchStatusCompleted && !m.IsBye() {
			return nil, fmt.Errorf("%w: match %d is completed", ErrRoundAlreadyPlayed, m.ID)
		}
	}

	if err := s.deleteRound(ctx, tournamentID, tournament.CurrentRound, tournament.TotalRounds); err != nil {
		return nil, err
	}

	tournament.CurrentRound--
	round, err := s.generateAndPersist(ctx, tournament, tournament.CurrentRound+1)
	if err != nil {
		return nil, err
	}

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventRoundGenerated,
			TournamentID: tournamentID,
			Payload:      round,
		})
	}
	return round, nil
}

func (s *swissService) deleteRound(ctx context.Context, tournamentID, roundNumber, totalRounds int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if _, txErr = s.matchRepo.DeleteByRound(ctx, tx, tournamentID, roundNumber); txErr != nil {
		return txErr
	}
	if _, txErr = s.bracketRepo.DeleteByRound(ctx, tx, tournamentID, roundNumber); txErr != nil {
		return txErr
	}
	if txErr = s.tournamentRepo.UpdateRounds(ctx, tx, tournamentID, roundNumber-1, totalRounds); txErr != nil {
		return txErr
	}

	details, _ := json.Marshal(map[string]interface{}{"round": roundNumber})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournamentID,
		Action:       "swiss_round_deleted",
		Details:      details,
		RoundNumber:  &roundNumber,
	}); txErr != nil {
		return txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit round deletion: %w", txErr)
	}
	return nil
}
