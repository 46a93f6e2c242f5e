package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/riftarena/tournament-engine/engine"
	"github.com/riftarena/tournament-engine/live"
	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
)

// MinParticipants — нижняя граница для перехода Registration → Seeding.
const MinParticipants = 2

// CapabilitiesView собирает всё, что клиенту нужно знать о текущей фазе.
type CapabilitiesView struct {
	TournamentID     int                      `json:"tournament_id"`
	State            models.TournamentState   `json:"state"`
	Capabilities     models.StateCapabilities `json:"capabilities"`
	ValidTransitions []models.TournamentState `json:"valid_transitions"`
}

type LifecycleService interface {
	Transition(ctx context.Context, tournamentID int, target models.TournamentState, confirmed bool) (*models.Tournament, error)
	Capabilities(ctx context.Context, tournamentID int) (*CapabilitiesView, error)
}

// SnapshotExporter выгружает финальный снимок турнира во внешнее хранилище.
type SnapshotExporter interface {
	Export(ctx context.Context, tournamentID int) (string, error)
}

type lifecycleService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	auditRepo       repositories.AuditRepository
	snapshots       SnapshotExporter
	hub             *live.Hub
	logger          *slog.Logger
}

func NewLifecycleService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	auditRepo repositories.AuditRepository,
	snapshots SnapshotExporter,
	hub *live.Hub,
	logger *slog.Logger,
) LifecycleService {
	return &lifecycleService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		auditRepo:       auditRepo,
		snapshots:       snapshots,
		hub:             hub,
		logger:          logger,
	}
}

func (s *lifecycleService) Capabilities(ctx context.Context, tournamentID int) (*CapabilitiesView, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return &CapabilitiesView{
		TournamentID:     tournament.ID,
		State:            tournament.Status,
		Capabilities:     tournament.Status.Capabilities(),
		ValidTransitions: tournament.Status.ValidTransitions(),
	}, nil
}

func (s *lifecycleService) Transition(ctx context.Context, tournamentID int, target models.TournamentState, confirmed bool) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	if !target.IsValid() {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: string(target)}
	}
	if !tournament.Status.CanTransitionTo(target) {
		return nil, &InvalidTransitionError{From: string(tournament.Status), To: string(target)}
	}
	if models.IsDestructiveTransition(target) && !confirmed {
		return nil, ErrConfirmationRequired
	}

	if err := s.checkGuards(ctx, tournament, target); err != nil {
		return nil, err
	}

	// Снимок выгружается до смены статуса: если выгрузка упала,
	// турнир остаётся в прежнем состоянии и архивацию можно повторить.
	var snapshotKey string
	if target == models.StateArchived && s.snapshots != nil {
		snapshotKey, err = s.snapshots.Export(ctx, tournamentID)
		if err != nil {
			return nil, fmt.Errorf("failed to export archive snapshot for tournament %d: %w", tournamentID, err)
		}
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

	from := tournament.Status
	if txErr = s.tournamentRepo.UpdateStatus(ctx, tx, tournamentID, target); txErr != nil {
		return nil, fmt.Errorf("failed to update tournament %d status: %w", tournamentID, txErr)
	}

	details, _ := json.Marshal(map[string]interface{}{
		"from":         from,
		"to":           target,
		"confirmed":    confirmed,
		"snapshot_key": snapshotKey,
	})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournamentID,
		Action:       "lifecycle_transition",
		Details:      details,
	}); txErr != nil {
		return nil, fmt.Errorf("failed to append audit entry: %w", txErr)
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", txErr)
	}

	tournament.Status = target
	s.logger.Info("tournament transitioned",
		"tournament_id", tournamentID, "from", from, "to", target)

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventLifecycleChange,
			TournamentID: tournamentID,
			Payload:      map[string]interface{}{"from": from, "to": target},
		})
	}
	return tournament, nil
}

// checkGuards проверяет предусловия перехода поверх матрицы состояний.
func (s *lifecycleService) checkGuards(ctx context.Context, t *models.Tournament, target models.TournamentState) error {
	switch {
	case t.Status == models.StateRegistration && target == models.StateSeeding:
		count, err := s.participantRepo.CountByTournament(ctx, t.ID, true)
		if err != nil {
			return err
		}
		if count < MinParticipants {
			return fmt.Errorf("%w: have %d, need at least %d",
				engine.ErrInsufficientParticipants, count, MinParticipants)
		}

	case t.Status == models.StateSeeding && target == models.StateInProgress:
		participants, err := s.participantRepo.ListByTournament(ctx, t.ID, true)
		if err != nil {
			return err
		}
		for _, p := range participants {
			if p.SeedNumber <= 0 {
				return fmt.Errorf("%w: team %d has no seed assigned",
					ErrInvalidTransition, p.TeamID)
			}
		}

	case t.Status == models.StateInProgress && target == models.StateCompleted:
		if t.CurrentRound > 0 {
			outstanding, err := s.matchRepo.CountIncompleteByRound(ctx, t.ID, t.CurrentRound)
			if err != nil {
				return err
			}
			if outstanding > 0 {
				return &RoundIncompleteError{RoundNumber: t.CurrentRound, Outstanding: outstanding}
			}
		}
	}
	return nil
}
