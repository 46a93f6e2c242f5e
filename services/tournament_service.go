package services

import (
	"context"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/riftarena/tournament-engine/engine"
	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
)

// StandingRow — строка таблицы: перевычисленный рекорд плюс классификация.
type StandingRow struct {
	TeamID     int             `json:"team_id"`
	SeedNumber int             `json:"seed_number"`
	Wins       int             `json:"wins"`
	Losses     int             `json:"losses"`
	Draws      int             `json:"draws"`
	SwissScore int             `json:"swiss_score"`
	Standing   engine.Standing `json:"standing"`
	IsActive   bool            `json:"is_active"`
}

type TournamentService interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error)
	List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error)
	GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error)
	GetStandings(ctx context.Context, tournamentID int) ([]*StandingRow, error)
	GetAuditLog(ctx context.Context, tournamentID, limit int) ([]*models.AuditEntry, error)
}

type tournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	participantRepo repositories.ParticipantRepository
	bracketRepo     repositories.BracketRepository
	matchRepo       repositories.MatchRepository
	auditRepo       repositories.AuditRepository
	logger          *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	participantRepo repositories.ParticipantRepository,
	bracketRepo repositories.BracketRepository,
	matchRepo repositories.MatchRepository,
	auditRepo repositories.AuditRepository,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:  tournamentRepo,
		participantRepo: participantRepo,
		bracketRepo:     bracketRepo,
		matchRepo:       matchRepo,
		auditRepo:       auditRepo,
		logger:          logger,
	}
}

func (s *tournamentService) Create(ctx context.Context, tournament *models.Tournament) error {
	if tournament.Status == "" {
		tournament.Status = models.StateRegistration
	}
	if err := engine.ConfigFrom(tournament).Validate(); err != nil {
		return err
	}
	return s.tournamentRepo.Create(ctx, tournament)
}

func (s *tournamentService) GetByID(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	return s.tournamentRepo.GetByID(ctx, tournamentID)
}

func (s *tournamentService) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.tournamentRepo.List(ctx, filter)
}

// GetFullTournamentData загружает турнир, участников, сетки и матчи
// параллельно.
func (s *tournamentService) GetFullTournamentData(ctx context.Context, tournamentID int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		participants, err := s.participantRepo.ListByTournament(gctx, tournamentID, false)
		if err == nil {
			tournament.Participants = participants
		}
		return err
	})
	g.Go(func() error {
		brackets, err := s.bracketRepo.ListByTournament(gctx, tournamentID)
		if err == nil {
			tournament.Brackets = brackets
		}
		return err
	})
	g.Go(func() error {
		matches, err := s.matchRepo.ListByTournament(gctx, tournamentID)
		if err == nil {
			tournament.Matches = matches
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}

// GetStandings пересчитывает таблицу из завершённых матчей. Сохранённые
// swiss_score не используются.
func (s *tournamentService) GetStandings(ctx context.Context, tournamentID int) ([]*StandingRow, error) {
	tournament, err := s.GetFullTournamentData(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	cfg := engine.ConfigFrom(tournament)

	teamIDs := make([]int, 0, len(tournament.Participants))
	for _, p := range tournament.Participants {
		teamIDs = append(teamIDs, p.TeamID)
	}
	records := engine.ComputeRecords(teamIDs, tournament.Matches)
	scores := engine.SwissScores(records, cfg)
	standings := engine.Classify(records, cfg)

	rows := make([]*StandingRow, 0, len(tournament.Participants))
	for _, p := range tournament.Participants {
		rec := records[p.TeamID]
		if rec == nil {
			rec = &engine.Record{TeamID: p.TeamID}
		}
		rows = append(rows, &StandingRow{
			TeamID:     p.TeamID,
			SeedNumber: p.SeedNumber,
			Wins:       rec.Wins,
			Losses:     rec.Losses,
			Draws:      rec.Draws,
			SwissScore: scores[p.TeamID],
			Standing:   standings[p.TeamID],
			IsActive:   p.IsActive,
		})
	}

	// Лучший счёт сверху, при равенстве — верхний посев.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SwissScore != rows[j].SwissScore {
			return rows[i].SwissScore > rows[j].SwissScore
		}
		return rows[i].SeedNumber < rows[j].SeedNumber
	})
	return rows, nil
}

func (s *tournamentService) GetAuditLog(ctx context.Context, tournamentID, limit int) ([]*models.AuditEntry, error) {
	return s.auditRepo.ListByTournament(ctx, tournamentID, limit)
}
