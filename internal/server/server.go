// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root: the store, catalog, services and handlers
// are built here and nowhere else.
//
//	config → store (sqlite | postgres) → services → handlers → chi routes
//
// Each layer only receives what it needs. Services get repository
// interfaces, handlers get services, and nothing below this package knows
// which database is in use.
package server

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/sakif/skilltree/internal/auth"
	"github.com/sakif/skilltree/internal/catalog"
	"github.com/sakif/skilltree/internal/config"
	"github.com/sakif/skilltree/internal/handler"
	"github.com/sakif/skilltree/internal/middleware"
	"github.com/sakif/skilltree/internal/repository"
	"github.com/sakif/skilltree/internal/repository/postgres"
	sqliteRepo "github.com/sakif/skilltree/internal/repository/sqlite"
	"github.com/sakif/skilltree/internal/service"
)

const (
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Server owns the store and the reset scheduler. The store is closed when
// Run returns.
type Server struct {
	router    *chi.Mux
	config    config.Config
	logger    *slog.Logger
	store     repository.Store
	catalog   *catalog.Catalog
	scheduler *service.ResetScheduler
}

// New opens the configured store and catalog and builds the server.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	c, err := LoadCatalog(cfg.Progression.CatalogPath)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStore(cfg, store, c, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore builds the server around an already open store. On success
// the server owns store; on error the caller still does.
func NewWithStore(cfg config.Config, store repository.Store, c *catalog.Catalog, logger *slog.Logger) (*Server, error) {
	loc, err := cfg.Progression.Location()
	if err != nil {
		return nil, fmt.Errorf("server: resolving timezone: %w", err)
	}

	s := &Server{
		router:    chi.NewRouter(),
		config:    cfg,
		logger:    logger,
		store:     store,
		catalog:   c,
		scheduler: service.NewResetScheduler(store, loc, cfg.Progression.ResetCheckInterval.Std(), logger),
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("server: setting up routes: %w", err)
	}
	return s, nil
}

// LoadCatalog reads the catalog file at path, or the embedded catalog when
// path is empty.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		c, err := catalog.Default()
		if err != nil {
			return nil, fmt.Errorf("server: loading embedded catalog: %w", err)
		}
		return c, nil
	}
	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: loading catalog %s: %w", path, err)
	}
	return c, nil
}

// OpenStore opens the database the config points at.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.URL, cfg.PoolSize)
		if err != nil {
			return nil, fmt.Errorf("server: opening postgres: %w", err)
		}
		return db, nil

	case config.DriverSQLite, "":
		if cfg.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("server: unknown database driver %q", cfg.Driver)
}

// sessionSecret returns the configured JWT secret or a random one.
func (s *Server) sessionSecret() (string, error) {
	if s.config.Auth.JWTSecret != "" {
		return s.config.Auth.JWTSecret, nil
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating session secret: %w", err)
	}
	s.logger.Warn("auth.jwt_secret not set; using a random key, sessions end on restart")
	return hex.EncodeToString(buf), nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /healthz
//	POST /auth/register, /auth/login, /auth/logout
//	GET  /auth/github/login, /auth/github/callback
//	GET  /api/catalog[/titles|/badges|/search]
//	GET  /api/leaderboard
//	GET  /api/profiles/{username}
//	-- session required, daily reset checked first --
//	GET  /api/me, /api/dashboard, /api/categories/{category}
//	POST /api/xp/gain, /api/xp/spend
//	GET  /api/challenges
//	POST /api/challenges/{name}/complete
//	GET  /api/titles, /api/badges
//	POST /api/titles/selection, /api/badges/selection
//
// Middleware runs in the order it is added.
func (s *Server) setupRoutes() error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewRateLimiter(
			cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.RateLimit.MaxClients, s.logger)
		if err != nil {
			return err
		}
		s.router.Use(limiter.Middleware)
	}

	secret, err := s.sessionSecret()
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenService(secret, cfg.Auth.TokenTTL.Std())
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	var github *auth.GitHubProvider
	if cfg.Auth.GitHubEnabled() {
		github = auth.NewGitHubProvider(cfg.Auth.GitHubClientID, cfg.Auth.GitHubClientSecret, cfg.CallbackURL())
		s.logger.Info("GitHub login enabled", slog.String("callback", cfg.CallbackURL()))
	}

	// === Services ===
	progress := service.NewProgressService(s.store, s.catalog, s.logger)
	challenges := service.NewChallengeService(s.store, s.catalog, s.logger)
	unlocks := service.NewUnlockService(s.store, s.store, s.catalog, cfg.Progression.StrictSelections, s.logger)
	leaderboard := service.NewLeaderboardService(s.store, s.catalog, cfg.Progression.LeaderboardConcurrency, s.logger)
	authService := service.NewAuthService(s.store, s.catalog, tokens, passwords, s.logger)
	profiles, err := service.NewProfileService(s.store, progress, challenges, unlocks,
		cfg.Progression.ProfileCacheSize, s.logger)
	if err != nil {
		return err
	}

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, github, tokens.TTL(), cfg.Auth.CookieSecure, s.logger)
	progressHandler := handler.NewProgressHandler(progress, s.logger)
	challengeHandler := handler.NewChallengeHandler(challenges, s.logger)
	unlockHandler := handler.NewUnlockHandler(unlocks, s.logger)
	leaderboardHandler := handler.NewLeaderboardHandler(leaderboard, s.logger)
	profileHandler := handler.NewProfileHandler(profiles, s.logger)
	catalogHandler := handler.NewCatalogHandler(s.catalog)
	healthHandler := handler.NewHealthHandler(s.store, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/github/login", authHandler.HandleGitHubLogin)
		r.Get("/github/callback", authHandler.HandleGitHubCallback)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/catalog", catalogHandler.HandleCatalog)
		r.Get("/catalog/titles", catalogHandler.HandleTitles)
		r.Get("/catalog/badges", catalogHandler.HandleBadges)
		r.Get("/catalog/search", catalogHandler.HandleSearch)
		r.Get("/leaderboard", leaderboardHandler.HandleLeaderboard)
		r.Get("/profiles/{username}", profileHandler.HandlePublicProfile)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Use(middleware.DailyReset(s.scheduler, s.logger))

			r.Get("/me", authHandler.HandleMe)
			r.Get("/dashboard", profileHandler.HandleDashboard)
			r.Get("/categories/{category}", progressHandler.HandleCategory)

			r.Post("/xp/gain", progressHandler.HandleGain)
			r.Post("/xp/spend", progressHandler.HandleSpend)

			r.Get("/challenges", challengeHandler.HandleList)
			r.Post("/challenges/{name}/complete", challengeHandler.HandleComplete)

			r.Get("/titles", unlockHandler.HandleTitles)
			r.Post("/titles/selection", unlockHandler.HandleSelectTitle)
			r.Get("/badges", unlockHandler.HandleBadges)
			r.Post("/badges/selection", unlockHandler.HandleSelectBadge)
		})
	})

	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server until SIGINT or SIGTERM.
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves HTTP and runs the reset scheduler until ctx is cancelled or the
// listener fails, then shuts down gracefully and closes the store.
//
// SHUTDOWN ORDER:
//  1. Stop accepting new connections
//  2. Wait up to 30s for in-flight requests
//  3. Close the store (flushes the SQLite WAL, drains the Postgres pool)
func (s *Server) Run(ctx context.Context) error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Server.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout.Std(),
		WriteTimeout: s.config.Server.WriteTimeout.Std(),
		IdleTimeout:  idleTimeout,
	}

	// Reset before the first request; the scheduler retries on failure.
	if _, err := s.scheduler.Check(ctx); err != nil {
		s.logger.Error("startup daily reset failed", slog.String("error", err.Error()))
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.scheduler.Run(gctx)
	})

	g.Go(func() error {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Server.Port),
			slog.String("database", s.config.Database.Driver),
			slog.Int("skills", len(s.catalog.Skills())),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
		return nil
	})

	return g.Wait()
}
