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
	ErrMatchNotFound       = errors.New("match not found")
	ErrMatchBracketInvalid = errors.New("match bracket reference invalid")
)

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, id int) (*models.Match, error)
	ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Match, error)
	CountIncompleteByRound(ctx context.Context, tournamentID, roundNumber int) (int, error)
	UpdateSlot(ctx context.Context, exec SQLExecutor, matchID int, slotTeam1 bool, teamID int) error
	UpdateOutcome(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus, result *models.MatchResult, winnerID *int) error
	DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (int64, error)
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

func (r *postgresMatchRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, m *models.Match) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_matches
			(bracket_id, tournament_id, match_number, team1_id, team2_id, status, result, winner_id, best_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := executor.QueryRowContext(ctx, query,
		m.BracketID, m.TournamentID, m.MatchNumber,
		m.Team1ID, m.Team2ID, m.Status, m.Result, m.WinnerID, m.BestOf,
	).Scan(&m.ID, &m.CreatedAt)

	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
		return ErrMatchBracketInvalid
	}
	return err
}

// Матчи всегда выбираются с JOIN на bracket, чтобы round_number и
// bracket_position были заполнены: движку продвижения они необходимы.
const matchSelect = `
	SELECT m.id, m.bracket_id, m.tournament_id, m.match_number,
		m.team1_id, m.team2_id, m.status, m.result, m.winner_id, m.best_of, m.created_at,
		b.round_number, b.bracket_position
	FROM tournament_matches m
	JOIN tournament_brackets b ON b.id = m.bracket_id`

func scanMatch(rows interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := rows.Scan(
		&m.ID, &m.BracketID, &m.TournamentID, &m.MatchNumber,
		&m.Team1ID, &m.Team2ID, &m.Status, &m.Result, &m.WinnerID, &m.BestOf, &m.CreatedAt,
		&m.RoundNumber, &m.BracketPosition,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := matchSelect + ` WHERE m.id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := matchSelect + ` WHERE m.tournament_id = $1 ORDER BY b.round_number, b.bracket_position`
	return r.list(ctx, query, tournamentID)
}

func (r *postgresMatchRepository) ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Match, error) {
	query := matchSelect + ` WHERE m.tournament_id = $1 AND b.round_number = $2 ORDER BY b.bracket_position`
	return r.list(ctx, query, tournamentID, roundNumber)
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]*models.Match, 0)
	for rows.Next() {
		m, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *postgresMatchRepository) CountIncompleteByRound(ctx context.Context, tournamentID, roundNumber int) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM tournament_matches m
		JOIN tournament_brackets b ON b.id = m.bracket_id
		WHERE m.tournament_id = $1 AND b.round_number = $2 AND m.status <> $3`

	var count int
	err := r.db.QueryRowContext(ctx, query, tournamentID, roundNumber, models.MatchStatusCompleted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incomplete matches for tournament %d round %d: %w",
			tournamentID, roundNumber, err)
	}
	return count, nil
}

func (r *postgresMatchRepository) UpdateSlot(ctx context.Context, exec SQLExecutor, matchID int, slotTeam1 bool, teamID int) error {
	executor := r.getExecutor(exec)
	column := "team2_id"
	if slotTeam1 {
		column = "team1_id"
	}
	query := fmt.Sprintf(`UPDATE tournament_matches SET %s = $1 WHERE id = $2`, column)
	result, err := executor.ExecContext(ctx, query, teamID, matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) UpdateOutcome(ctx context.Context, exec SQLExecutor, matchID int, status models.MatchStatus, result *models.MatchResult, winnerID *int) error {
	executor := r.getExecutor(exec)
	query := `UPDATE tournament_matches SET status = $1, result = $2, winner_id = $3 WHERE id = $4`
	res, err := executor.ExecContext(ctx, query, status, result, winnerID, matchID)
	if err != nil {
		return err
	}
	return checkAffectedRows(res, ErrMatchNotFound)
}

func (r *postgresMatchRepository) DeleteByRound(ctx context.Context, exec SQLExecutor, tournamentID, roundNumber int) (int64, error) {
	executor := r.getExecutor(exec)
	query := `
		DELETE FROM tournament_matches
		WHERE tournament_id = $1 AND bracket_id IN (
			SELECT id FROM tournament_brackets WHERE tournament_id = $1 AND round_number = $2
		)`
	result, err := executor.ExecContext(ctx, query, tournamentID, roundNumber)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *postgresMatchRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM tournament_matches WHERE tournament_id = $1`, tournamentID)
	return err
}
