package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/riftarena/tournament-engine/models"
)

var (
	ErrParticipantNotFound     = errors.New("participant not found")
	ErrParticipantSeedConflict = errors.New("participant seed conflict")
)

type ParticipantRepository interface {
	Create(ctx context.Context, participant *models.Participant) error
	GetByTeam(ctx context.Context, tournamentID, teamID int) (*models.Participant, error)
	ListByTournament(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Participant, error)
	CountByTournament(ctx context.Context, tournamentID int, activeOnly bool) (int, error)
	UpdateSeed(ctx context.Context, exec SQLExecutor, participantID, seedNumber int) error
	UpdateSwissState(ctx context.Context, exec SQLExecutor, participantID, swissScore int, opponents []int) error
	Deactivate(ctx context.Context, exec SQLExecutor, participantID int) error
	ResetProgress(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresParticipantRepository struct {
	db *sql.DB
}

func NewPostgresParticipantRepository(db *sql.DB) ParticipantRepository {
	return &postgresParticipantRepository{db: db}
}

func (r *postgresParticipantRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresParticipantRepository) Create(ctx context.Context, p *models.Participant) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO tournament_participants
			(tournament_id, team_id, seed_number, initial_bracket_position, swiss_score, opponents_played, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		p.TournamentID, p.TeamID, p.SeedNumber, p.InitialBracketPosition,
		p.SwissScore, pq.Array(toInt64(p.OpponentsPlayed)), p.IsActive,
	).Scan(&p.ID, &p.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrParticipantSeedConflict
	}
	return err
}

func (r *postgresParticipantRepository) GetByTeam(ctx context.Context, tournamentID, teamID int) (*models.Participant, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT id, tournament_id, team_id, seed_number, initial_bracket_position,
			swiss_score, opponents_played, is_active, created_at
		FROM tournament_participants
		WHERE tournament_id = $1 AND team_id = $2`

	p := &models.Participant{}
	var opponents pq.Int64Array
	err := executor.QueryRowContext(ctx, query, tournamentID, teamID).Scan(
		&p.ID, &p.TournamentID, &p.TeamID, &p.SeedNumber, &p.InitialBracketPosition,
		&p.SwissScore, &opponents, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrParticipantNotFound
		}
		return nil, err
	}
	p.OpponentsPlayed = toInt(opponents)
	return p, nil
}

func (r *postgresParticipantRepository) ListByTournament(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Participant, error) {
	executor := r.getExecutor(nil)
	query := `
		SELECT id, tournament_id, team_id, seed_number, initial_bracket_position,
			swiss_score, opponents_played, is_active, created_at
		FROM tournament_participants
		WHERE tournament_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY seed_number ASC, id ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*models.Participant, 0)
	for rows.Next() {
		p := &models.Participant{}
		var opponents pq.Int64Array
		if scanErr := rows.Scan(
			&p.ID, &p.TournamentID, &p.TeamID, &p.SeedNumber, &p.InitialBracketPosition,
			&p.SwissScore, &opponents, &p.IsActive, &p.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		p.OpponentsPlayed = toInt(opponents)
		participants = append(participants, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return participants, nil
}

func (r *postgresParticipantRepository) CountByTournament(ctx context.Context, tournamentID int, activeOnly bool) (int, error) {
	executor := r.getExecutor(nil)
	query := `SELECT COUNT(*) FROM tournament_participants WHERE tournament_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	var count int
	if err := executor.QueryRowContext(ctx, query, tournamentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count participants for tournament %d: %w", tournamentID, err)
	}
	return count, nil
}

func (r *postgresParticipantRepository) UpdateSeed(ctx context.Context, exec SQLExecutor, participantID, seedNumber int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_participants
		SET seed_number = $1, initial_bracket_position = $1
		WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, seedNumber, participantID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) UpdateSwissState(ctx context.Context, exec SQLExecutor, participantID, swissScore int, opponents []int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_participants
		SET swiss_score = $1, opponents_played = $2
		WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, swissScore, pq.Array(toInt64(opponents)), participantID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

func (r *postgresParticipantRepository) Deactivate(ctx context.Context, exec SQLExecutor, participantID int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_participants SET is_active = FALSE WHERE id = $1`
	result, err := executor.ExecContext(ctx, query, participantID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrParticipantNotFound)
}

// ResetProgress возвращает всех участников турнира к состоянию до первого
// раунда: нулевой счёт, пустая история, все активны.
func (r *postgresParticipantRepository) ResetProgress(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_participants
		SET swiss_score = 0, opponents_played = '{}', is_active = TRUE
		WHERE tournament_id = $1`
	_, err := executor.ExecContext(ctx, query, tournamentID)
	return err
}

func toInt64(in []int) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = int64(v)
	}
	return out
}

func toInt(in pq.Int64Array) []int {
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
