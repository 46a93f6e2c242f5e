package services

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
)

// unreachableDB возвращает пул, у которого BeginTx гарантированно падает.
// Им проверяется, что операция прошла все предусловия и дошла до транзакции,
// ничего не записав и не удалив.
func unreachableDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 user=x dbname=x sslmode=disable connect_timeout=1")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Фейковые репозитории для проверки предусловий сервисов: все проверяемые
// ошибки возвращаются до открытия транзакции, поэтому *sql.DB не нужен.

type fakeTournamentRepo struct {
	tournament *models.Tournament
}

func (f *fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	f.tournament = t
	return nil
}

func (f *fakeTournamentRepo) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	if f.tournament == nil || f.tournament.ID != id {
		return nil, repositories.ErrTournamentNotFound
	}
	copied := *f.tournament
	return &copied, nil
}

func (f *fakeTournamentRepo) List(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	if f.tournament == nil {
		return nil, nil
	}
	return []models.Tournament{*f.tournament}, nil
}

func (f *fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentState) error {
	f.tournament.Status = status
	return nil
}

func (f *fakeTournamentRepo) UpdateRounds(ctx context.Context, exec repositories.SQLExecutor, id int, currentRound, totalRounds int) error {
	f.tournament.CurrentRound = currentRound
	f.tournament.TotalRounds = totalRounds
	return nil
}

func (f *fakeTournamentRepo) UpdateWinner(ctx context.Context, exec repositories.SQLExecutor, id int, winnerTeamID *int) error {
	f.tournament.WinnerTeamID = winnerTeamID
	return nil
}

type fakeParticipantRepo struct {
	participants []*models.Participant
}

func (f *fakeParticipantRepo) Create(ctx context.Context, p *models.Participant) error {
	f.participants = append(f.participants, p)
	return nil
}

func (f *fakeParticipantRepo) GetByTeam(ctx context.Context, tournamentID, teamID int) (*models.Participant, error) {
	for _, p := range f.participants {
		if p.TournamentID == tournamentID && p.TeamID == teamID {
			return p, nil
		}
	}
	return nil, repositories.ErrParticipantNotFound
}

func (f *fakeParticipantRepo) ListByTournament(ctx context.Context, tournamentID int, activeOnly bool) ([]*models.Participant, error) {
	var out []*models.Participant
	for _, p := range f.participants {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeParticipantRepo) CountByTournament(ctx context.Context, tournamentID int, activeOnly bool) (int, error) {
	list, _ := f.ListByTournament(ctx, tournamentID, activeOnly)
	return len(list), nil
}

func (f *fakeParticipantRepo) UpdateSeed(ctx context.Context, exec repositories.SQLExecutor, participantID, seedNumber int) error {
	return nil
}

func (f *fakeParticipantRepo) UpdateSwissState(ctx context.Context, exec repositories.SQLExecutor, participantID, swissScore int, opponents []int) error {
	return nil
}

func (f *fakeParticipantRepo) Deactivate(ctx context.Context, exec repositories.SQLExecutor, participantID int) error {
	return nil
}

func (f *fakeParticipantRepo) ResetProgress(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return nil
}

type fakeBracketRepo struct {
	brackets []*models.Bracket
}

func (f *fakeBracketRepo) CreateBatch(ctx context.Context, exec repositories.SQLExecutor, brackets []*models.Bracket) error {
	f.brackets = append(f.brackets, brackets...)
	return nil
}

func (f *fakeBracketRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Bracket, error) {
	return f.brackets, nil
}

func (f *fakeBracketRepo) ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Bracket, error) {
	var out []*models.Bracket
	for _, b := range f.brackets {
		if b.RoundNumber == roundNumber {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBracketRepo) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, roundNumber int) (int64, error) {
	return 0, nil
}

func (f *fakeBracketRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return nil
}

type fakeMatchRepo struct {
	matches []*models.Match
}

func (f *fakeMatchRepo) Create(ctx context.Context, exec repositories.SQLExecutor, m *models.Match) error {
	f.matches = append(f.matches, m)
	return nil
}

func (f *fakeMatchRepo) GetByID(ctx context.Context, id int) (*models.Match, error) {
	for _, m := range f.matches {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) ListByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	return f.matches, nil
}

func (f *fakeMatchRepo) ListByRound(ctx context.Context, tournamentID, roundNumber int) ([]*models.Match, error) {
	var out []*models.Match
	for _, m := range f.matches {
		if m.RoundNumber == roundNumber {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMatchRepo) CountIncompleteByRound(ctx context.Context, tournamentID, roundNumber int) (int, error) {
	count := 0
	for _, m := range f.matches {
		if m.RoundNumber == roundNumber && m.Status != models.MatchStatusCompleted {
			count++
		}
	}
	return count, nil
}

func (f *fakeMatchRepo) UpdateSlot(ctx context.Context, exec repositories.SQLExecutor, matchID int, slotTeam1 bool, teamID int) error {
	return nil
}

func (f *fakeMatchRepo) UpdateOutcome(ctx context.Context, exec repositories.SQLExecutor, matchID int, status models.MatchStatus, result *models.MatchResult, winnerID *int) error {
	for _, m := range f.matches {
		if m.ID == matchID {
			m.Status = status
			m.Result = result
			m.WinnerID = winnerID
			return nil
		}
	}
	return repositories.ErrMatchNotFound
}

func (f *fakeMatchRepo) DeleteByRound(ctx context.Context, exec repositories.SQLExecutor, tournamentID, roundNumber int) (int64, error) {
	return 0, nil
}

func (f *fakeMatchRepo) DeleteByTournament(ctx context.Context, exec repositories.SQLExecutor, tournamentID int) error {
	return nil
}

type fakeAuditRepo struct {
	entries []*models.AuditEntry
}

func (f *fakeAuditRepo) Append(ctx context.Context, exec repositories.SQLExecutor, entry *models.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAuditRepo) ListByTournament(ctx context.Context, tournamentID int, limit int) ([]*models.AuditEntry, error) {
	return f.entries, nil
}
