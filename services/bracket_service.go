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

type BracketService interface {
	GenerateBracket(ctx context.Context, tournamentID int) (*engine.BracketPlan, error)
	AdvanceRound(ctx context.Context, tournamentID int) (*engine.AdvanceResult, error)
	RegenerateBracket(ctx context.Context, tournamentID int) (*engine.BracketPlan, error)
	ResetBracket(ctx context.Context, tournamentID int) error
}

type bracketService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	auditRepo       repositories.AuditRepository
	hub             *live.Hub
	logger          *slog.Logger
}

func NewBracketService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	auditRepo repositories.AuditRepository,
	hub *live.Hub,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
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

func (s *bracketService) GenerateBracket(ctx context.Context, tournamentID int) (*engine.BracketPlan, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Format != models.FormatSingleElimination {
		return nil, fmt.Errorf("%w: tournament %d has format %s",
			ErrFormatMismatch, tournamentID, tournament.Format)
	}
	if !tournament.Status.Capabilities().CanGenerateBracket {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: "bracket generation"}
	}

	existing, err := s.bracketRepo.ListByRound(ctx, tournamentID, 1)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, fmt.Errorf("%w: round 1 already has %d brackets",
			ErrConflictingGeneration, len(existing))
	}

	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}

	cfg := engine.ConfigFrom(tournament)
	plan, err := engine.GenerateSingleElimination(participants, cfg)
	if err != nil {
		return nil, err
	}
	if problems := plan.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("generated bracket failed validation: %v", problems)
	}

	if err := s.persistPlan(ctx, tournament, plan); err != nil {
		return nil, err
	}

	s.logger.Info("bracket generated",
		"tournament_id", tournamentID, "teams", plan.TeamCount,
		"rounds", plan.TotalRounds, "byes", plan.ByeCount)

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventRoundGenerated,
			TournamentID: tournamentID,
			Payload:      plan,
		})
	}
	return plan, nil
}

// persistPlan сохраняет план в одной транзакции: сетки, матчи, счётчики
// раундов. Гонка двух генераций ловится уникальным индексом по
// (tournament_id, round_number, bracket_position).
func (s *bracketService) persistPlan(ctx context.Context, tournament *models.Tournament, plan *engine.BracketPlan) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", "tournament_id", tournament.ID, "error", rbErr)
			}
		}
	}()

	if txErr = s.writePlan(ctx, tx, tournament, plan, "bracket_generated"); txErr != nil {
		return txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit bracket for tournament %d: %w", tournament.ID, txErr)
	}
	return nil
}

// writePlan пишет сетки, матчи, счётчики раундов и запись журнала в рамках
// уже открытой транзакции.
func (s *bracketService) writePlan(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, plan *engine.BracketPlan, action string) error {
	brackets := make([]*models.Bracket, 0, len(plan.Brackets))
	for _, slot := range plan.Brackets {
		brackets = append(brackets, &models.Bracket{
			TournamentID:    tournament.ID,
			RoundNumber:     slot.RoundNumber,
			BracketPosition: slot.BracketPosition,
			IsFinal:         slot.IsFinal,
		})
	}
	if err := s.bracketRepo.CreateBatch(ctx, tx, brackets); err != nil {
		if errors.Is(err, repositories.ErrBracketPositionConflict) {
			return fmt.Errorf("%w: %v", ErrConflictingGeneration, err)
		}
		return err
	}

	bracketID := make(map[[2]int]int, len(brackets))
	for _, b := range brackets {
		bracketID[[2]int{b.RoundNumber, b.BracketPosition}] = b.ID
	}

	matchNumber := 1
	for _, slot := range plan.Matches {
		id, ok := bracketID[[2]int{slot.RoundNumber, slot.BracketPosition}]
		if !ok {
			return fmt.Errorf("no bracket persisted for round %d position %d",
				slot.RoundNumber, slot.BracketPosition)
		}
		match := &models.Match{
			BracketID:    id,
			TournamentID: tournament.ID,
			MatchNumber:  matchNumber,
			Team1ID:      slot.Team1ID,
			Team2ID:      slot.Team2ID,
			Status:       slot.Status,
			Result:       slot.Result,
			WinnerID:     slot.WinnerID,
			BestOf:       slot.BestOf,
		}
		if err := s.matchRepo.Create(ctx, tx, match); err != nil {
			return err
		}
		matchNumber++
	}

	if err := s.tournamentRepo.UpdateRounds(ctx, tx, tournament.ID, 1, plan.TotalRounds); err != nil {
		return err
	}

	details, _ := json.Marshal(map[string]interface{}{
		"teams":        plan.TeamCount,
		"total_rounds": plan.TotalRounds,
		"byes":         plan.ByeCount,
	})
	round := 1
	return s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournament.ID,
		Action:       action,
		Details:      details,
		RoundNumber:  &round,
	})
}

func (s *bracketService) AdvanceRound(ctx context.Context, tournamentID int) (*engine.AdvanceResult, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Format != models.FormatSingleElimination {
		return nil, fmt.Errorf("%w: tournament %d has format %s",
			ErrFormatMismatch, tournamentID, tournament.Format)
	}
	if !tournament.Status.Capabilities().CanAdvanceRound {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: "round advancement"}
	}

	outstanding, err := s.matchRepo.CountIncompleteByRound(ctx, tournamentID, tournament.CurrentRound)
	if err != nil {
		return nil, err
	}
	if outstanding > 0 {
		return nil, &RoundIncompleteError{RoundNumber: tournament.CurrentRound, Outstanding: outstanding}
	}

	currentMatches, err := s.matchRepo.ListByRound(ctx, tournamentID, tournament.CurrentRound)
	if err != nil {
		return nil, err
	}

	result := engine.ComputeAdvancements(tournament.CurrentRound, tournament.TotalRounds, currentMatches)

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

	if result.TournamentCompleted {
		winnerID := finalWinner(currentMatches, tournament.TotalRounds)
		if winnerID == nil {
			txErr = fmt.Errorf("final round completed but no winner recorded for tournament %d", tournamentID)
			return nil, txErr
		}
		if txErr = s.tournamentRepo.UpdateWinner(ctx, tx, tournamentID, winnerID); txErr != nil {
			return nil, txErr
		}
		// Завершение по сетке инициировано движком, подтверждение не требуется.
		if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StateCompleted); txErr != nil {
			return nil, txErr
		}
		details, _ := json.Marshal(map[string]interface{}{"winner_team_id": *winnerID})
		if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
			TournamentID: tournamentID,
			Action:       "tournament_completed",
			Details:      details,
			RoundNumber:  &tournament.CurrentRound,
		}); txErr != nil {
			return nil, txErr
		}
		if txErr = tx.Commit(); txErr != nil {
			return nil, fmt.Errorf("failed to commit completion: %w", txErr)
		}

		s.logger.Info("tournament completed", "tournament_id", tournamentID, "winner_team_id", *winnerID)
		if s.hub != nil {
			s.hub.Publish(live.Event{
				Type:         live.EventLifecycleChange,
				TournamentID: tournamentID,
				Payload:      map[string]interface{}{"to": models.StateCompleted, "winner_team_id": *winnerID},
			})
		}
		return &result, nil
	}

	nextRound := tournament.CurrentRound + 1
	nextMatches, err := s.matchRepo.ListByRound(ctx, tournamentID, nextRound)
	if err != nil {
		txErr = err
		return nil, err
	}
	byPosition := make(map[int]*models.Match, len(nextMatches))
	for _, m := range nextMatches {
		byPosition[m.BracketPosition] = m
	}

	for _, adv := range result.Advancements {
		target, ok := byPosition[adv.NextBracketPosition]
		if !ok {
			txErr = fmt.Errorf("no round %d match at position %d for tournament %d",
				nextRound, adv.NextBracketPosition, tournamentID)
			return nil, txErr
		}
		if txErr = s.matchRepo.UpdateSlot(ctx, tx, target.ID, adv.Slot == engine.SlotTeam1, adv.WinnerID); txErr != nil {
			return nil, txErr
		}
	}

	if txErr = s.tournamentRepo.UpdateRounds(ctx, tx, tournamentID, nextRound, tournament.TotalRounds); txErr != nil {
		return nil, txErr
	}

	details, _ := json.Marshal(map[string]interface{}{
		"from_round":   tournament.CurrentRound,
		"to_round":     nextRound,
		"advancements": len(result.Advancements),
	})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournamentID,
		Action:       "round_advanced",
		Details:      details,
		RoundNumber:  &nextRound,
	}); txErr != nil {
		return nil, txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit advancement: %w", txErr)
	}

	s.logger.Info("round advanced",
		"tournament_id", tournamentID, "round", nextRound, "advancements", len(result.Advancements))

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventRoundAdvanced,
			TournamentID: tournamentID,
			Payload:      result,
		})
	}
	return &result, nil
}

func finalWinner(matches []*models.Match, totalRounds int) *int {
	for _, m := range matches {
		if m.RoundNumber == totalRounds && m.Status == models.MatchStatusCompleted {
			return m.WinnerID
		}
	}
	return nil
}

// RegenerateBracket пересоздаёт сетку целиком, но только пока ни один матч
// первого раунда не сыгран вручную (bye-матчи завершены автоматически и не
// считаются сыгранными). Снос и пересоздание идут одной транзакцией: при
// любой ошибке старая сетка остаётся на месте.
func (s *bracketService) RegenerateBracket(ctx context.Context, tournamentID int) (*engine.BracketPlan, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if tournament.Format != models.FormatSingleElimination {
		return nil, fmt.Errorf("%w: tournament %d has format %s",
			ErrFormatMismatch, tournamentID, tournament.Format)
	}
	// Пересдача доступна из тех же состояний, что генерация, плюс состояния
	// с правкой пар: после правки посева в In_Progress сетку надо пересдать.
	caps := tournament.Status.Capabilities()
	if !caps.CanGenerateBracket && !caps.CanModifyPairings {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: "bracket regeneration"}
	}
	if tournament.CurrentRound > 1 {
		return nil, fmt.Errorf("%w: tournament already at round %d",
			ErrRoundAlreadyPlayed, tournament.CurrentRound)
	}

	matches, err := s.matchRepo.ListByRound(ctx, tournamentID, 1)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if m.Status == models.MatchStatusCompleted && !m.IsBye() {
			return nil, fmt.Errorf("%w: match %d is completed", ErrRoundAlreadyPlayed, m.ID)
		}
	}

	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants for tournament %d: %w", tournamentID, err)
	}

	cfg := engine.ConfigFrom(tournament)
	plan, err := engine.GenerateSingleElimination(participants, cfg)
	if err != nil {
		return nil, err
	}
	if problems := plan.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("generated bracket failed validation: %v", problems)
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

	if txErr = s.matchRepo.DeleteByTournament(ctx, tx, tournamentID); txErr != nil {
		return nil, txErr
	}
	if txErr = s.bracketRepo.DeleteByTournament(ctx, tx, tournamentID); txErr != nil {
		return nil, txErr
	}
	if txErr = s.participantRepo.ResetProgress(ctx, tx, tournamentID); txErr != nil {
		return nil, txErr
	}
	if txErr = s.tournamentRepo.UpdateWinner(ctx, tx, tournamentID, nil); txErr != nil {
		return nil, txErr
	}
	if txErr = s.writePlan(ctx, tx, tournament, plan, "bracket_regenerated"); txErr != nil {
		return nil, txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit regeneration for tournament %d: %w", tournamentID, txErr)
	}

	s.logger.Info("bracket regenerated",
		"tournament_id", tournamentID, "teams", plan.TeamCount,
		"rounds", plan.TotalRounds, "byes", plan.ByeCount)

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventRoundGenerated,
			TournamentID: tournamentID,
			Payload:      plan,
		})
	}
	return plan, nil
}

// ResetBracket стирает сетку и возвращает турнир в фазу Seeding.
func (s *bracketService) ResetBracket(ctx context.Context, tournamentID int) error {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return err
	}
	if !tournament.Status.Capabilities().IsMutable {
		return &InvalidTransitionError{From: string(tournament.Status), To: "bracket reset"}
	}

	if err := s.wipe(ctx, tournamentID, "bracket_reset"); err != nil {
		return err
	}

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

	if tournament.Status != models.StateSeeding {
		if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, models.StateSeeding); txErr != nil {
			return txErr
		}
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit reset: %w", txErr)
	}

	s.logger.Info("bracket reset", "tournament_id", tournamentID)
	return nil
}

// wipe удаляет матчи, сетки и прогресс участников одной транзакцией.
func (s *bracketService) wipe(ctx context.Context, tournamentID int, action string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("rollback failed", "tournament_id", tournamentID, "error", rbErr)
			}
		}
	}()

	if txErr = s.matchRepo.DeleteByTournament(ctx, tx, tournamentID); txErr != nil {
		return txErr
	}
	if txErr = s.bracketRepo.DeleteByTournament(ctx, tx, tournamentID); txErr != nil {
		return txErr
	}
	if txErr = s.participantRepo.ResetProgress(ctx, tx, tournamentID); txErr != nil {
		return txErr
	}
	if txErr = s.tournamentRepo.UpdateRounds(ctx, tx, tournamentID, 0, 0); txErr != nil {
		return txErr
	}
	if txErr = s.tournamentRepo.UpdateWinner(ctx, tx, tournamentID, nil); txErr != nil {
		return txErr
	}
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournamentID,
		Action:       action,
		Details:      json.RawMessage(`{}`),
	}); txErr != nil {
		return txErr
	}
	if txErr = tx.Commit(); txErr != nil {
		return fmt.Errorf("failed to commit wipe: %w", txErr)
	}
	return nil
}
