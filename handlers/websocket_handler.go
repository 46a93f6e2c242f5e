package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/riftarena/tournament-engine/live"
	"github.com/riftarena/tournament-engine/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить Origin списком доверенных доменов перед выкаткой.
		return true
	},
}

type WebSocketHandler struct {
	hub         *live.Hub
	tournaments services.TournamentService
	logger      *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, tournaments services.TournamentService, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, tournaments: tournaments, logger: logger}
}

// ServeWs подписывает клиента на события турнира: /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := strconv.Atoi(chi.URLParam(r, "tournamentID"))
	if err != nil {
		http.Error(w, "invalid tournament id", http.StatusBadRequest)
		return
	}

	if _, err := h.tournaments.GetByID(r.Context(), tournamentID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "tournament_id", tournamentID, "error", err)
		return
	}

	h.hub.Register(live.NewClient(h.hub, conn, tournamentID))
}
