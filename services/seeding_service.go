package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/riftarena/tournament-engine/live"
	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
)

// RoundRegenerator пересдаёт несыгранный текущий раунд после правки посева.
// Реализуется фасадом прогрессии, чтобы не замыкать сервисы друг на друга.
type RoundRegenerator interface {
	RegenerateForSeeding(ctx context.Context, tournament *models.Tournament) error
}

type SeedingService interface {
	Reseed(ctx context.Context, tournamentID int, orderedTeamIDs []int) ([]*models.Participant, error)
	Swap(ctx context.Context, tournamentID, teamA, teamB int) ([]*models.Participant, error)
	SetSeed(ctx context.Context, tournamentID, teamID, seedNumber int) ([]*models.Participant, error)
	MoveUp(ctx context.Context, tournamentID, teamID int) ([]*models.Participant, error)
	MoveDown(ctx context.Context, tournamentID, teamID int) ([]*models.Participant, error)
	MoveToPosition(ctx context.Context, tournamentID, teamID, position int) ([]*models.Participant, error)
	Randomize(ctx context.Context, tournamentID int) ([]*models.Participant, error)
}

type seedingService struct {
	db              *sql.DB
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	auditRepo       repositories.AuditRepository
	regenerator     RoundRegenerator
	hub             *live.Hub
	logger          *slog.Logger
}

func NewSeedingService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	auditRepo repositories.AuditRepository,
	hub *live.Hub,
	logger *slog.Logger,
) *seedingService {
	return &seedingService{
		db:              db,
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		auditRepo:       auditRepo,
		hub:             hub,
		logger:          logger,
	}
}

// SetRegenerator подключает фасад прогрессии после его создания.
func (s *seedingService) SetRegenerator(r RoundRegenerator) {
	s.regenerator = r
}

// apply переставляет посев согласно newOrder (позиция в срезе = seed-1),
// сохраняет, журналирует и при необходимости пересдаёт несыгранный раунд.
func (s *seedingService) apply(ctx context.Context, tournament *models.Tournament, action string, newOrder []*models.Participant) ([]*models.Participant, error) {
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

	seeds := make(map[int]int, len(newOrder))
	for i, p := range newOrder {
		seed := i + 1
		if p.SeedNumber != seed {
			if txErr = s.participantRepo.UpdateSeed(ctx, tx, p.ID, seed); txErr != nil {
				return nil, txErr
			}
		}
		p.SeedNumber = seed
		p.InitialBracketPosition = seed
		seeds[p.TeamID] = seed
	}

	details, _ := json.Marshal(map[string]interface{}{"seeds": seeds})
	if txErr = s.auditRepo.Append(ctx, tx, &models.AuditEntry{
		TournamentID: tournament.ID,
		Action:       action,
		Details:      details,
	}); txErr != nil {
		return nil, txErr
	}

	if txErr = tx.Commit(); txErr != nil {
		return nil, fmt.Errorf("failed to commit seeding change: %w", txErr)
	}

	s.logger.Info("seeding updated", "tournament_id", tournament.ID, "action", action)

	// Сетка уже сгенерирована, но не сыграна — пересдаём под новый посев.
	// Сыгранный раунд отклоняет пересдачу (RoundAlreadyPlayed).
	if tournament.CurrentRound >= 1 && s.regenerator != nil {
		if err := s.regenerator.RegenerateForSeeding(ctx, tournament); err != nil {
			return nil, err
		}
	}

	if s.hub != nil {
		s.hub.Publish(live.Event{
			Type:         live.EventSeedingChanged,
			TournamentID: tournament.ID,
			Payload:      map[string]interface{}{"action": action, "seeds": seeds},
		})
	}
	return newOrder, nil
}

// load возвращает турнир и активных участников по возрастанию посева.
func (s *seedingService) load(ctx context.Context, tournamentID int) (*models.Tournament, []*models.Participant, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, nil, err
	}
	if !tournament.Status.Capabilities().CanEditSeeding {
		return nil, nil, &InvalidTransitionError{From: string(tournament.Status), To: "seeding edit"}
	}
	participants, err := s.participantRepo.ListByTournament(ctx, tournamentID, true)
	if err != nil {
		return nil, nil, err
	}
	return tournament, participants, nil
}

func indexOfTeam(participants []*models.Participant, teamID int) int {
	for i, p := range participants {
		if p.TeamID == teamID {
			return i
		}
	}
	return -1
}

func (s *seedingService) Reseed(ctx context.Context, tournamentID int, orderedTeamIDs []int) ([]*models.Participant, error) {
	tournament, participants, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(orderedTeamIDs) != len(participants) {
		return nil, fmt.Errorf("%w: got %d team ids for %d active participants",
			ErrSeedOutOfRange, len(orderedTeamIDs), len(participants))
	}

	byTeam := make(map[int]*models.Participant, len(participants))
	for _, p := range participants {
		byTeam[p.TeamID] = p
	}
	newOrder := make([]*models.Participant, 0, len(orderedTeamIDs))
	for _, teamID := range orderedTeamIDs {
		p, ok := byTeam[teamID]
		if !ok {
			return nil, fmt.Errorf("%w: team %d is not an active participant", repositories.ErrParticipantNotFound, teamID)
		}
		delete(byTeam, teamID)
		newOrder = append(newOrder, p)
	}
	return s.apply(ctx, tournament, "seeding_reseed", newOrder)
}

func (s *seedingService) Swap(ctx context.Context, tournamentID, teamA, teamB int) ([]*models.Participant, error) {
	tournament, participants, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	i, j := indexOfTeam(participants, teamA), indexOfTeam(participants, teamB)
	if i < 0 || j < 0 {
		return nil, repositories.ErrParticipantNotFound
	}
	participants[i], participants[j] = participants[j], participants[i]
	return s.apply(ctx, tournament, "seeding_swap", participants)
}

func (s *seedingService) SetSeed(ctx context.Context, tournamentID, teamID, seedNumber int) ([]*models.Participant, error) {
	return s.MoveToPosition(ctx, tournamentID, teamID, seedNumber)
}

func (s *seedingService) MoveUp(ctx context.Context, tournamentID, teamID int) ([]*models.Participant, error) {
	return s.moveBy(ctx, tournamentID, teamID, -1, "seeding_move_up")
}

func (s *seedingService) MoveDown(ctx context.Context, tournamentID, teamID int) ([]*models.Participant, error) {
	return s.moveBy(ctx, tournamentID, teamID, +1, "seeding_move_down")
}

func (s *seedingService) moveBy(ctx context.Context, tournamentID, teamID, delta int, action string) ([]*models.Participant, error) {
	tournament, participants, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	i := indexOfTeam(participants, teamID)
	if i < 0 {
		return nil, repositories.ErrParticipantNotFound
	}
	j := i + delta
	if j < 0 || j >= len(participants) {
		// Уже на краю — изменений нет, но операция не ошибка.
		return participants, nil
	}
	participants[i], participants[j] = participants[j], participants[i]
	return s.apply(ctx, tournament, action, participants)
}

func (s *seedingService) MoveToPosition(ctx context.Context, tournamentID, teamID, position int) ([]*models.Participant, error) {
	tournament, participants, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if position < 1 || position > len(participants) {
		return nil, fmt.Errorf("%w: position %d with %d participants",
			ErrSeedOutOfRange, position, len(participants))
	}
	i := indexOfTeam(participants, teamID)
	if i < 0 {
		return nil, repositories.ErrParticipantNotFound
	}

	moved := participants[i]
	rest := append(participants[:i:i], participants[i+1:]...)
	newOrder := make([]*models.Participant, 0, len(participants))
	newOrder = append(newOrder, rest[:position-1]...)
	newOrder = append(newOrder, moved)
	newOrder = append(newOrder, rest[position-1:]...)
	return s.apply(ctx, tournament, "seeding_move_to_position", newOrder)
}

func (s *seedingService) Randomize(ctx context.Context, tournamentID int) ([]*models.Participant, error) {
	tournament, participants, err := s.load(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(participants), func(i, j int) {
		participants[i], participants[j] = participants[j], participants[i]
	})
	return s.apply(ctx, tournament, "seeding_randomize", participants)
}
