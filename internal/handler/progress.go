package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skilltree/internal/auth"
	"github.com/sakif/skilltree/internal/service"
)

// ProgressHandler serves XP gains and spends and the category cards.
type ProgressHandler struct {
	progress *service.ProgressService
	logger   *slog.Logger
}

func NewProgressHandler(progress *service.ProgressService, logger *slog.Logger) *ProgressHandler {
	return &ProgressHandler{progress: progress, logger: logger}
}

// xpRequest is the body of gain and spend. Amount is a pointer so a missing
// amount is told apart from 0.
type xpRequest struct {
	Skill  string `json:"skill"  validate:"required"`
	Amount *int   `json:"amount" validate:"required"`
}

// HandleGain adds XP to one skill.
//
// HTTP: POST /api/xp/gain
// Body: {"skill": "Strength", "amount": 150}
// Auth: Required
//
// The response says whether the skill leveled up and which titles and
// badges the gain unlocked.
func (h *ProgressHandler) HandleGain(w http.ResponseWriter, r *http.Request) {
	var req xpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	outcome, err := h.progress.GainXP(r.Context(), userID, req.Skill, *req.Amount)
	if err != nil {
		fail(w, r, h.logger, "gain xp", err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// HandleSpend removes XP from one skill, dropping levels as needed.
//
// HTTP: POST /api/xp/spend
// Body: {"skill": "Strength", "amount": 50}
// Auth: Required
func (h *ProgressHandler) HandleSpend(w http.ResponseWriter, r *http.Request) {
	var req xpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	outcome, err := h.progress.SpendXP(r.Context(), userID, req.Skill, *req.Amount)
	if err != nil {
		fail(w, r, h.logger, "spend xp", err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// HandleCategory returns the skills of one category with their guides.
//
// HTTP: GET /api/categories/{category}
// Auth: Required
func (h *ProgressHandler) HandleCategory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	view, err := h.progress.CategoryView(r.Context(), userID, chi.URLParam(r, "category"))
	if err != nil {
		fail(w, r, h.logger, "category view", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
