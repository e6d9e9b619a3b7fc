package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/auth"
	"github.com/sakif/skilltree/internal/model"
	"github.com/sakif/skilltree/internal/service"
)

// UnlockHandler serves unlocked titles and badges and the user's choice of
// which ones to display.
type UnlockHandler struct {
	unlocks *service.UnlockService
	logger  *slog.Logger
}

func NewUnlockHandler(unlocks *service.UnlockService, logger *slog.Logger) *UnlockHandler {
	return &UnlockHandler{unlocks: unlocks, logger: logger}
}

type titleSelectionRequest struct {
	Title  string `json:"title"  validate:"required"`
	Action string `json:"action" validate:"required"`
}

type badgeSelectionRequest struct {
	Badge  string `json:"badge"  validate:"required"`
	Action string `json:"action" validate:"required"`
}

// SelectionResponse is the stored selection after a toggle.
type SelectionResponse struct {
	Selected model.Selection `json:"selected"`
}

// HandleTitles returns unlocked titles grouped by skill, plus the selection.
//
// HTTP: GET /api/titles
// Auth: Required
func (h *UnlockHandler) HandleTitles(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	view, err := h.unlocks.Titles(r.Context(), userID)
	if err != nil {
		fail(w, r, h.logger, "list titles", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSelectTitle adds a title to, or removes it from, the displayed set.
//
// HTTP: POST /api/titles/selection
// Body: {"title": "Iron Grip", "action": "add"}
// Auth: Required
func (h *UnlockHandler) HandleSelectTitle(w http.ResponseWriter, r *http.Request) {
	var req titleSelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	action, err := parseAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	sel, err := h.unlocks.ToggleTitle(r.Context(), userID, req.Title, action)
	if err != nil {
		fail(w, r, h.logger, "select title", err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{Selected: sel})
}

// HandleBadges returns unlocked badges plus the selection.
//
// HTTP: GET /api/badges
// Auth: Required
func (h *UnlockHandler) HandleBadges(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	view, err := h.unlocks.Badges(r.Context(), userID)
	if err != nil {
		fail(w, r, h.logger, "list badges", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleSelectBadge is the badge counterpart of HandleSelectTitle.
//
// HTTP: POST /api/badges/selection
// Body: {"badge": "Glow", "action": "remove"}
// Auth: Required
func (h *UnlockHandler) HandleSelectBadge(w http.ResponseWriter, r *http.Request) {
	var req badgeSelectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	action, err := parseAction(req.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	userID, _ := auth.UserIDFromContext(r.Context())

	sel, err := h.unlocks.ToggleBadge(r.Context(), userID, req.Badge, action)
	if err != nil {
		fail(w, r, h.logger, "select badge", err)
		return
	}
	writeJSON(w, http.StatusOK, SelectionResponse{Selected: sel})
}

func parseAction(s string) (model.Action, error) {
	action, err := model.ParseAction(s)
	if err != nil {
		return "", apperror.ValidationFailed("action", err.Error())
	}
	return action, nil
}
