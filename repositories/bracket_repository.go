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
	ErrBracketNotFound = errors.New("bracket not found")

	// ErrBracketPositionConflict — нарушение уникальности
	// (tournament_id, round_number, bracket_position); так гонка двух
	// генераций одного раунда всплывает как конфликт, а не дубли.
	ErrBracketPositionConflict = errors.New("bracket position already exists for this round")
)

type BracketRepository interface {
	CreateBatch(ctx context.Context, exec SQLExecutor, brackets []*models.Bracket) error
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Bracket, error)
	ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Bracket, error)
	DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (int64, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresBracketRepository struct {
	db *sql.DB
}

func NewPostgresBracketRepository(db *sql.DB) BracketRepository {
	return &postgresBracketRepository{db: db}
}

func (r *postgresBracketRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresBracketRepository) CreateBatch(ctx context.Context, exec SQLExecutor, brackets []*models.Bracket) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_brackets
			(tournament_id, round_number, bracket_position, is_final, is_third_place)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	for _, b := range brackets {
		err := executor.QueryRowContext(ctx, query,
			b.TournamentID, b.RoundNumber, b.BracketPosition, b.IsFinal, b.IsThirdPlace,
		).Scan(&b.ID, &b.CreatedAt)
		if err != nil {
			if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
				return ErrBracketPositionConflict
			}
			return fmt.Errorf("failed to create bracket r%dp%d: %w", b.RoundNumber, b.BracketPosition, err)
		}
	}
	return nil
}

func (r *postgresBracketRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Bracket, error) {
	return r.list(ctx, `
		SELECT id, tournament_id, round_number, bracket_position, is_final, is_third_place, created_at
		FROM tournament_brackets
		WHERE tournament_id = $1
		ORDER BY round_number, bracket_position`, tournamentID)
}

func (r *postgresBracketRepository) ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Bracket, error) {
	return r.list(ctx, `
		SELECT id, tournament_id, round_number, bracket_position, is_final, is_third_place, created_at
		FROM tournament_brackets
		WHERE tournament_id = $1 AND round_number = $2
		ORDER BY bracket_position`, tournamentID, roundNumber)
}

func (r *postgresBracketRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Bracket, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	brackets := make([]*models.Bracket, 0)
	for rows.Next() {
		b := &models.Bracket{}
		if scanErr := rows.Scan(
			&b.ID, &b.TournamentID, &b.RoundNumber, &b.BracketPosition,
			&b.IsFinal, &b.IsThirdPlace, &b.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		brackets = append(brackets, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return brackets, nil
}

func (r *postgresBracketRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `DELETE FROM tournament_brackets WHERE tournament_id = $1 AND round_number = $2`
	result, err := executor.ExecContext(ctx, query, tournamentID, roundNumber)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresBracketRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM tournament_brackets WHERE tournament_id = $1`, tournamentID)
	return err
}
