package services

import (
	"context"
	"fmt"

	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
)

// ProgressionService — единая точка входа "продвинуть турнир": диспетчер по
// формату поверх сеточного и швейцарского сервисов.
type ProgressionService interface {
	AdvanceRound(ctx context.Context, tournamentID int) (interface{}, error)
	GenerateRound(ctx context.Context, tournamentID int) (interface{}, error)
	RegenerateCurrentRound(ctx context.Context, tournamentID int) (interface{}, error)
	RegenerateForSeeding(ctx context.Context, tournament *models.Tournament) error
}

type progressionService struct {
	tournamentRepo repositories.TournamentRepository
	brackets       BracketService
	swiss          SwissService
}

func NewProgressionService(
	tournamentRepo repositories.TournamentRepository,
	brackets BracketService,
	swiss SwissService,
) ProgressionService {
	return &progressionService{
		tournamentRepo: tournamentRepo,
		brackets:       brackets,
		swiss:          swiss,
	}
}

func (s *progressionService) format(ctx context.Context, tournamentID int) (models.TournamentFormat, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return "", err
	}
	return tournament.Format, nil
}

func (s *progressionService) AdvanceRound(ctx context.Context, tournamentID int) (interface{}, error) {
	format, err := s.format(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	switch format {
	case models.FormatSingleElimination:
		return s.brackets.AdvanceRound(ctx, tournamentID)
	case models.FormatSwiss:
		return s.swiss.AdvanceRound(ctx, tournamentID)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrFormatMismatch, format)
	}
}

func (s *progressionService) GenerateRound(ctx context.Context, tournamentID int) (interface{}, error) {
	format, err := s.format(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	switch format {
	case models.FormatSingleElimination:
		return s.brackets.GenerateBracket(ctx, tournamentID)
	case models.FormatSwiss:
		return s.swiss.GenerateRound(ctx, tournamentID)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrFormatMismatch, format)
	}
}

func (s *progressionService) RegenerateCurrentRound(ctx context.Context, tournamentID int) (interface{}, error) {
	format, err := s.format(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	switch format {
	case models.FormatSingleElimination:
		return s.brackets.RegenerateBracket(ctx, tournamentID)
	case models.FormatSwiss:
		return s.swiss.RegenerateCurrentRound(ctx, tournamentID)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", ErrFormatMismatch, format)
	}
}

// RegenerateForSeeding пересдаёт несыгранный раунд после правки посева.
func (s *progressionService) RegenerateForSeeding(ctx context.Context, tournament *models.Tournament) error {
	_, err := s.RegenerateCurrentRound(ctx, tournament.ID)
	return err
}
