package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/storage"
)

// snapshotDocument — финальный снимок турнира, выгружаемый при архивации.
type snapshotDocument struct {
	Tournament *models.Tournament `json:"tournament"`
	Standings  []*StandingRow     `json:"standings"`
	ExportedAt time.Time          `json:"exported_at"`
}

type snapshotService struct {
	tournaments TournamentService
	uploader    storage.ObjectUploader
	logger      *slog.Logger
}

func NewSnapshotService(tournaments TournamentService, uploader storage.ObjectUploader, logger *slog.Logger) SnapshotExporter {
	return &snapshotService{
		tournaments: tournaments,
		uploader:    uploader,
		logger:      logger,
	}
}

// Export собирает полный снимок (сетки, матчи, таблица) и кладёт его в
// объектное хранилище. Возвращает ключ объекта.
func (s *snapshotService) Export(ctx context.Context, tournamentID int) (string, error) {
	tournament, err := s.tournaments.GetFullTournamentData(ctx, tournamentID)
	if err != nil {
		return "", fmt.Errorf("failed to load tournament %d for snapshot: %w", tournamentID, err)
	}
	standings, err := s.tournaments.GetStandings(ctx, tournamentID)
	if err != nil {
		return "", fmt.Errorf("failed to compute standings for snapshot: %w", err)
	}

	doc := snapshotDocument{
		Tournament: tournament,
		Standings:  standings,
		ExportedAt: time.Now().UTC(),
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("archives/tournament-%d/%s.json", tournamentID, doc.ExportedAt.Format("20060102T150405Z"))
	result, err := s.uploader.Upload(ctx, key, "application/json", bytes.NewReader(raw))
	if err != nil {
		return "", err
	}

	s.logger.Info("archive snapshot exported",
		"tournament_id", tournamentID, "key", result.Key, "location", result.Location)
	return result.Key, nil
}
