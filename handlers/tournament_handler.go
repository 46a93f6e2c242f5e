package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/repositories"
	"github.com/riftarena/tournament-engine/services"
)

type TournamentHandler struct {
	tournaments services.TournamentService
	lifecycle   services.LifecycleService
	progression services.ProgressionService
	brackets    services.BracketService
	logger      *slog.Logger
}

func NewTournamentHandler(
	tournaments services.TournamentService,
	lifecycle services.LifecycleService,
	progression services.ProgressionService,
	brackets services.BracketService,
	logger *slog.Logger,
) *TournamentHandler {
	return &TournamentHandler{
		tournaments: tournaments,
		lifecycle:   lifecycle,
		progression: progression,
		brackets:    brackets,
		logger:      logger,
	}
}

func tournamentIDParam(r *http.Request) (int, error) {
	return strconv.Atoi(chi.URLParam(r, "tournamentID"))
}

type createTournamentRequest struct {
	Name              string                  `json:"name"`
	Format            models.TournamentFormat `json:"format"`
	PointsPerWin      int                     `json:"points_per_win"`
	PointsPerDraw     int                     `json:"points_per_draw"`
	PointsPerLoss     int                     `json:"points_per_loss"`
	MaxWins           int                     `json:"max_wins"`
	MaxLosses         int                     `json:"max_losses"`
	TotalRounds       int                     `json:"total_rounds"`
	OpeningBestOf     int                     `json:"opening_best_of"`
	ProgressionBestOf int                     `json:"progression_best_of"`
	EliminationBestOf int                     `json:"elimination_best_of"`
	FinalsBestOf      int                     `json:"finals_best_of"`
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTournamentRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament := &models.Tournament{
		Name:              req.Name,
		Format:            req.Format,
		Status:            models.StateRegistration,
		PointsPerWin:      req.PointsPerWin,
		PointsPerDraw:     req.PointsPerDraw,
		PointsPerLoss:     req.PointsPerLoss,
		MaxWins:           req.MaxWins,
		MaxLosses:         req.MaxLosses,
		TotalRounds:       req.TotalRounds,
		OpeningBestOf:     req.OpeningBestOf,
		ProgressionBestOf: req.ProgressionBestOf,
		EliminationBestOf: req.EliminationBestOf,
		FinalsBestOf:      req.FinalsBestOf,
	}
	applyTournamentDefaults(tournament)

	if err := h.tournaments.Create(r.Context(), tournament); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, tournament, nil)
}

// applyTournamentDefaults подставляет стандартную конфигурацию: пороги 3/3,
// очки 3/1/0, все серии best-of-1, финал best-of-5.
func applyTournamentDefaults(t *models.Tournament) {
	if t.MaxWins == 0 {
		t.MaxWins = 3
	}
	if t.MaxLosses == 0 {
		t.MaxLosses = 3
	}
	if t.PointsPerWin == 0 {
		t.PointsPerWin = 3
	}
	if t.OpeningBestOf == 0 {
		t.OpeningBestOf = 1
	}
	if t.ProgressionBestOf == 0 {
		t.ProgressionBestOf = 1
	}
	if t.EliminationBestOf == 0 {
		t.EliminationBestOf = 3
	}
	if t.FinalsBestOf == 0 {
		t.FinalsBestOf = 5
	}
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.ListTournamentsFilter{}
	if status := r.URL.Query().Get("status"); status != "" {
		state := models.TournamentState(status)
		filter.Status = &state
	}
	if format := r.URL.Query().Get("format"); format != "" {
		f := models.TournamentFormat(format)
		filter.Format = &f
	}

	tournaments, err := h.tournaments.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

func (h *TournamentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	tournament, err := h.tournaments.GetFullTournamentData(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tournament, nil)
}

func (h *TournamentHandler) GetLifecycle(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	view, err := h.lifecycle.Capabilities(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, view, nil)
}

type transitionRequest struct {
	Target    models.TournamentState `json:"target"`
	Confirmed bool                   `json:"confirmed"`
}

func (h *TournamentHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req transitionRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.lifecycle.Transition(r.Context(), id, req.Target, req.Confirmed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, tournament, nil)
}

func (h *TournamentHandler) GenerateRound(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	payload, err := h.progression.GenerateRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusCreated, payload, nil)
}

func (h *TournamentHandler) AdvanceRound(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	payload, err := h.progression.AdvanceRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, payload, nil)
}

func (h *TournamentHandler) RegenerateRound(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	payload, err := h.progression.RegenerateCurrentRound(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, payload, nil)
}

func (h *TournamentHandler) ResetBracket(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := h.brackets.ResetBracket(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"message": "bracket reset"}, nil)
}

func (h *TournamentHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	standings, err := h.tournaments.GetStandings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil)
}

func (h *TournamentHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.tournaments.GetAuditLog(r.Context(), id, limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"audit_log": entries}, nil)
}
