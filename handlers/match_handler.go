package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/services"
)

type MatchHandler struct {
	matches services.MatchService
	logger  *slog.Logger
}

func NewMatchHandler(matches services.MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, logger: logger}
}

func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "matchID"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matches.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, match, nil)
}

func (h *MatchHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if roundStr := r.URL.Query().Get("round"); roundStr != "" {
		round, err := strconv.Atoi(roundStr)
		if err != nil {
			badRequestResponse(w, r, err)
			return
		}
		matches, err := h.matches.ListByRound(r.Context(), id, round)
		if err != nil {
			mapServiceErrorToHTTP(w, r, err)
			return
		}
		_ = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
		return
	}

	matches, err := h.matches.ListByTournament(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil)
}

type reportResultRequest struct {
	Result models.MatchResult `json:"result"`
}

func (h *MatchHandler) ReportResult(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "matchID"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req reportResultRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	match, err := h.matches.ReportResult(r.Context(), id, req.Result)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, match, nil)
}
