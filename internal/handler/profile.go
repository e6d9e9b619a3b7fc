package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/skilltree/internal/auth"
	"github.com/sakif/skilltree/internal/service"
)

// ProfileHandler serves the owner's dashboard and public profiles.
type ProfileHandler struct {
	profiles *service.ProfileService
	logger   *slog.Logger
}

func NewProfileHandler(profiles *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleDashboard returns stats, challenges and displayed rewards.
//
// HTTP: GET /api/dashboard
// Auth: Required
func (h *ProfileHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	dash, err := h.profiles.Dashboard(r.Context(), userID)
	if err != nil {
		fail(w, r, h.logger, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// HandlePublicProfile returns what anyone may see about a user.
//
// HTTP: GET /api/profiles/{username}
func (h *ProfileHandler) HandlePublicProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.PublicProfile(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		fail(w, r, h.logger, "public profile", err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
