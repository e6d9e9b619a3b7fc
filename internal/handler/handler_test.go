package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/skilltree/internal/auth"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/handler"
	"github.com/sakif/skilltree/internal/repository/sqlite"
	"github.com/sakif/skilltree/internal/service"
)

const testSecret = "handler-test-secret-0123456789"

type testApp struct {
	router  http.Handler
	store   *sqlite.DB
	catalog *catalog.Catalog
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestApp wires every handler over an in-memory store. github may be nil.
func newTestApp(t *testing.T, github *auth.GitHubProvider) *testApp {
	t.Helper()
	logger := testLogger()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c, err := catalog.Default()
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceForTest(bcrypt.MinCost)

	progress := service.NewProgressService(store, c, logger)
	challenges := service.NewChallengeService(store, c, logger)
	unlocks := service.NewUnlockService(store, store, c, true, logger)
	leaderboard := service.NewLeaderboardService(store, c, 4, logger)
	authService := service.NewAuthService(store, c, tokens, passwords, logger)
	profiles, err := service.NewProfileService(store, progress, challenges, unlocks, 16, logger)
	require.NoError(t, err)

	authH := handler.NewAuthHandler(authService, github, tokens.TTL(), false, logger)
	progressH := handler.NewProgressHandler(progress, logger)
	challengeH := handler.NewChallengeHandler(challenges, logger)
	unlockH := handler.NewUnlockHandler(unlocks, logger)
	leaderboardH := handler.NewLeaderboardHandler(leaderboard, logger)
	profileH := handler.NewProfileHandler(profiles, logger)
	catalogH := handler.NewCatalogHandler(c)
	healthH := handler.NewHealthHandler(store, logger)

	r := chi.NewRouter()
	r.Get("/healthz", healthH.HandleHealth)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authH.HandleRegister)
		r.Post("/login", authH.HandleLogin)
		r.Post("/logout", authH.HandleLogout)
		r.Get("/github/login", authH.HandleGitHubLogin)
		r.Get("/github/callback", authH.HandleGitHubCallback)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", catalogH.HandleCatalog)
		r.Get("/catalog/titles", catalogH.HandleTitles)
		r.Get("/catalog/badges", catalogH.HandleBadges)
		r.Get("/catalog/search", catalogH.HandleSearch)
		r.Get("/leaderboard", leaderboardH.HandleLeaderboard)
		r.Get("/profiles/{username}", profileH.HandlePublicProfile)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authH.HandleMe)
			r.Get("/dashboard", profileH.HandleDashboard)
			r.Get("/categories/{category}", progressH.HandleCategory)
			r.Post("/xp/gain", progressH.HandleGain)
			r.Post("/xp/spend", progressH.HandleSpend)
			r.Get("/challenges", challengeH.HandleList)
			r.Post("/challenges/{name}/complete", challengeH.HandleComplete)
			r.Get("/titles", unlockH.HandleTitles)
			r.Post("/titles/selection", unlockH.HandleSelectTitle)
			r.Get("/badges", unlockH.HandleBadges)
			r.Post("/badges/selection", unlockH.HandleSelectBadge)
		})
	})

	return &testApp{router: r, store: store, catalog: c}
}

// do sends a request through the router. body is JSON-encoded unless it is
// already a string.
func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}

	req := httptest.NewRequestWithContext(context.Background(), method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// register creates an account and returns its session token.
func (a *testApp) register(t *testing.T, username string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"username": username,
		"password": "correct horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[handler.SessionResponse](t, rec).Token
}

func (a *testApp) gain(t *testing.T, token, skill string, amount int) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/xp/gain", token, map[string]any{"skill": skill, "amount": amount})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
