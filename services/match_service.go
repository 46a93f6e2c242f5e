package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/riftarena/tournament-engine/live"
	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
)

type MatchService interface {
	ReportResult(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, error)
	GetByID(ctx context.Context, matchID int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Match, error)
}

type matchService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	matchRepo      repositories.MatchRepository
	auditRepo      repositories.AuditRepository
	hub            *live.Hub
	logger         *slog.Logger
}

func NewMatchService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	matchRepo repositories.MatchRepository,
	auditRepo repositories.AuditRepository,
	hub *live.Hub,
	logger *slog.Logger,
) MatchService {
	return &matchService{
		db:             db,
		tournamentRepo: tournamentRepo,
		matchRepo:      matchRepo,
		auditRepo:      auditRepo,
		hub:            hub,
		logger:         logger,
	}
}

func (s *matchService) GetByID(ctx context.Context, matchID int) (*models.Match, error) {
	return s.matchRepo.GetByID(ctx, matchID)
}

func (s *matchService) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return s.matchRepo.ListByTournament(ctx, tournamentID)
}

func (s *matchService) ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Match, error) {
	return s.matchRepo.ListByRound(ctx, tournamentID, roundNumber)
}

// ReportResult фиксирует исход матча. Победитель выводится из результата,
// ничья допустима только в швейцарской системе.
func (s *matchService) ReportResult(ctx context.Context, matchID int, result models.MatchResult) (*models.Match, error) {
	match, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusCompleted {
		return nil, fmt.Errorf("%w: match %d", ErrMatchAlreadyDecided, matchID)
	}

	tournament, err := s.tournamentRepo.GetByID(ctx, match.TournamentID)
	if err != nil {
		return nil, err
	}
	if !tournament.Status.Capabilities().CanPlayMatches {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: "match result reporting"}
	}

	var winnerID *int
	switch result {
	case models.ResultTeam1Win:
		if match.Team1ID == nil {
			return nil, fmt.Errorf("match %d has no team in slot 1", matchID)
		}
		winnerID = match.Team1ID
	case models.ResultTeam2Win:
		if match.Team2ID == nil {
			return nil, fmt.Errorf("match %d has no team in slot 2", matchID)
		}
		winnerID = match.Team2ID
	case models.ResultDraw:
		if tournament.Format != models.FormatSwiss {
			return nil, fmt.Errorf("%w: draws are not allowed in %s", ErrFormatMismatch, tournament.Format)
		}
	default:
		return nil, fmt.Errorf("unknown match result %q", result)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	var txErr error
	defer func() {
		if txErr != nil {
			_ = tx.Rollback()
		}
	}()

	if txErr = s.matchRepo.UpdateOutcome(ctx, tx, matchID, models.MatchStatusCompleted, &result, winnerID); txErr != nil {
		return nil, txErr
	}

	details, _ := json.Marshal(map[string]interface{}{
		"match_id":  matchID,
		"result":    result,
		"winner_id": winnerID,
	})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: match.TournamentID,
		Action:       "match_result_reported",
		Details:      details,
		RoundNumber:  &match.RoundNumber,
	}); txErr != nil {
		return nil, txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit match result: %w", txErr)
	}

	match.Status = models.MatchStatusCompleted
	match.Result = &result
	match.WinnerID = winnerID

	s.logger.Info("match result reported",
		"tournament_id", match.TournamentID, "match_id", matchID, "result", result)

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventMatchCompleted,
			TournamentID: match.TournamentID,
			Payload:      match,
		})
	}
	return match, nil
}
