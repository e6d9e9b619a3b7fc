package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/skilltree/internal/service"
)

type LeaderboardHandler struct {
	leaderboard *service.LeaderboardService
	logger      *slog.Logger
}

func NewLeaderboardHandler(leaderboard *service.LeaderboardService, logger *slog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard, logger: logger}
}

// HandleLeaderboard ranks every user by total level.
//
// HTTP: GET /api/leaderboard
func (h *LeaderboardHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.leaderboard.Rankings(r.Context())
	if err != nil {
		fail(w, r, h.logger, "leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
