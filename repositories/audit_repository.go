package repositories

import (
	"context"
	"database/sql"

	"github.com/riftarena/tournament-engine/models"
)

type AuditRepository interface {
	Append(ctx context.Context, exec SQLExecutor, entry *models.AuditEntry) error
	ListByTournament(ctx context.Context, tournamentID int, limit int) ([]*models.AuditEntry, error)
}

type postgresAuditRepository struct {
	db *sql.DB
}

func NewPostgresAuditRepository(db *sql.DB) AuditRepository {
	return &postgresAuditRepository{db: db}
}

func (r *postgresAuditRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresAuditRepository) Append(ctx context.Context, exec SQLExecutor, entry *models.AuditEntry) error {
	executor := r.getExecutor(exec)
	query := `
		INSERT INTO tournament_audit_log (tournament_id, action, details, round_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	return executor.QueryRowContext(ctx, query,
		entry.TournamentID, entry.Action, entry.Details, entry.RoundNumber,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *postgresAuditRepository) ListByTournament(ctx context.Context, tournamentID int, limit int) ([]*models.AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `
		SELECT id, tournament_id, action, details, round_number, created_at
		FROM tournament_audit_log
		WHERE tournament_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, tournamentID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]*models.AuditEntry, 0)
	for rows.Next() {
		e := &models.AuditEntry{}
		if err := rows.Scan(&e.ID, &e.TournamentID, &e.Action, &e.Details, &e.RoundNumber, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
