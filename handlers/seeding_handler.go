package handlers

import (
	"log/slog"
	"net/http"

	"github.com/riftarena/tournament-engine/models"
	"github.com/riftarena/tournament-engine/services"
)

type SeedingHandler struct {
	seeding services.SeedingService
	logger  *slog.Logger
}

func NewSeedingHandler(seeding services.SeedingService, logger *slog.Logger) *SeedingHandler {
	return &SeedingHandler{seeding: seeding, logger: logger}
}

func (h *SeedingHandler) respond(w http.ResponseWriter, r *http.Request, participants []*models.Participant, err error) {
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	_ = writeJSON(w, http.StatusOK, jsonResponse{"participants": participants}, nil)
}

type reseedRequest struct {
	OrderedTeamIDs []int `json:"ordered_team_ids"`
}

func (h *SeedingHandler) Reseed(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req reseedRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.seeding.Reseed(r.Context(), id, req.OrderedTeamIDs)
	h.respond(w, r, participants, err)
}

type swapRequest struct {
	TeamA int `json:"team_a"`
	TeamB int `json:"team_b"`
}

func (h *SeedingHandler) Swap(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req swapRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.seeding.Swap(r.Context(), id, req.TeamA, req.TeamB)
	h.respond(w, r, participants, err)
}

type moveRequest struct {
	TeamID   int `json:"team_id"`
	Position int `json:"position,omitempty"`
}

func (h *SeedingHandler) MoveUp(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req moveRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.seeding.MoveUp(r.Context(), id, req.TeamID)
	h.respond(w, r, participants, err)
}

func (h *SeedingHandler) MoveDown(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req moveRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.seeding.MoveDown(r.Context(), id, req.TeamID)
	h.respond(w, r, participants, err)
}

func (h *SeedingHandler) MoveToPosition(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req moveRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.seeding.MoveToPosition(r.Context(), id, req.TeamID, req.Position)
	h.respond(w, r, participants, err)
}

type setSeedRequest struct {
	TeamID     int `json:"team_id"`
	SeedNumber int `json:"seed_number"`
}

func (h *SeedingHandler) SetSeed(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	var req setSeedRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.seeding.SetSeed(r.Context(), id, req.TeamID, req.SeedNumber)
	h.respond(w, r, participants, err)
}

func (h *SeedingHandler) Randomize(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	participants, err := h.seeding.Randomize(r.Context(), id)
	h.respond(w, r, participants, err)
}
