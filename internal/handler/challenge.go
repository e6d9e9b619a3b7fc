package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skilltree/internal/auth"
	"github.com/sakif/skilltree/internal/service"
)

// ChallengeHandler serves the daily challenge checklist.
type ChallengeHandler struct {
	challenges *service.ChallengeService
	logger     *slog.Logger
}

func NewChallengeHandler(challenges *service.ChallengeService, logger *slog.Logger) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, logger: logger}
}

// HandleList returns today's challenges in catalog order.
//
// HTTP: GET /api/challenges
// Auth: Required
func (h *ChallengeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	challenges, err := h.challenges.List(r.Context(), userID)
	if err != nil {
		fail(w, r, h.logger, "list challenges", err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

// HandleComplete marks one challenge done for today. Completing it twice is
// fine.
//
// HTTP: POST /api/challenges/{name}/complete
// Auth: Required
func (h *ChallengeHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	name := chi.URLParam(r, "name")

	if err := h.challenges.Complete(r.Context(), userID, name); err != nil {
		fail(w, r, h.logger, "complete challenge", err)
		return
	}

	challenges, err := h.challenges.List(r.Context(), userID)
	if err != nil {
		fail(w, r, h.logger, "list challenges", err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}
