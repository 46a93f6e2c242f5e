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
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict")
	ErrTournamentInUse        = errors.New("tournament is in use (participants/matches exist)")
)

type ListTournamentsFilter struct {
	Format *models.TournamentFormat
	Status *models.TournamentState
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentState) error
	UpdateRounds(ctx context.Context, exec SQLExecutor, id int, currentRound, totalRounds int) error
	UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID *int) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, format, status, current_round, total_rounds,
	points_per_win, points_per_draw, points_per_loss,
	max_wins, max_losses,
	opening_best_of, progression_best_of, elimination_best_of, finals_best_of,
	winner_team_id, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }, t *models.Tournament) error {
	return row.Scan(
		&t.ID, &t.Name, &t.Format, &t.Status, &t.CurrentRound, &t.TotalRounds,
		&t.PointsPerWin, &t.PointsPerDraw, &t.PointsPerLoss,
		&t.MaxWins, &t.MaxLosses,
		&t.OpeningBestOf, &t.ProgressionBestOf, &t.EliminationBestOf, &t.FinalsBestOf,
		&t.WinnerTeamID, &t.CreatedAt,
	)
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	executor := r.getExecutor(nil)
	query := `
		INSERT INTO tournaments (
			name, format, status, current_round, total_rounds,
			points_per_win, points_per_draw, points_per_loss,
			max_wins, max_losses,
			opening_best_of, progression_best_of, elimination_best_of, finals_best_of
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		t.Name, t.Format, t.Status, t.CurrentRound, t.TotalRounds,
		t.PointsPerWin, t.PointsPerDraw, t.PointsPerLoss,
		t.MaxWins, t.MaxLosses,
		t.OpeningBestOf, t.ProgressionBestOf, t.EliminationBestOf, t.FinalsBestOf,
	).Scan(&t.ID, &t.CreatedAt)

	return r.handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE id = $1`

	t := &models.Tournament{}
	err := scanTournament(executor.QueryRowContext(ctx, query, id), t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	executor := r.getExecutor(nil)
	query := `SELECT` + tournamentColumns + ` FROM tournaments WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.Format != nil {
		query += fmt.Sprintf(" AND format = $%d", argID)
		args = append(args, *filter.Format)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentState) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, status, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateRounds(ctx context.Context, exec SQLExecutor, id int, currentRound, totalRounds int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET current_round = $1, total_rounds = $2 WHERE id = $3`
	result, err := executor.ExecContext(ctx, query, currentRound, totalRounds, id)
	if err != nil {
		return r.handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateWinner(ctx context.Context, exec SQLExecutor, id int, winnerTeamID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournaments SET winner_team_id = $1 WHERE id = $2`
	result, err := executor.ExecContext(ctx, query, winnerTeamID, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament winner for tournament %d: %w", id, err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case "23505":
			return ErrTournamentNameConflict
		case "23503":
			return ErrTournamentInUse
		}
	}
	return err
}
