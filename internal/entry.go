// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/raido/internal/api"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/limits"
	"github.com/starford/raido/internal/mcpserver"
	"github.com/starford/raido/internal/media"
	"github.com/starford/raido/internal/models"
	"github.com/starford/raido/internal/presets"
	"github.com/starford/raido/internal/sse"
	"github.com/starford/raido/internal/store"
	"github.com/starford/raido/internal/study"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// MCP mode owns stdout for the protocol, so logs go to stderr.
	logOut := os.Stdout
	if app.mcpMode {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("media_path", cfg.Media.Path),
		slog.String("presets_path", cfg.Presets.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Initialize persistence.
	db, err := store.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer db.Close()

	user, err := ensureUser(db, cfg.Study.UserEmail)
	if err != nil {
		return err
	}

	// Media storage for card attachments.
	mp, err := media.NewFS(cfg.Media.Path)
	if err != nil {
		return fmt.Errorf("init media: %w", err)
	}

	// Deck-option presets, hot-reloaded from disk.
	var ps *presets.Store
	if cfg.Presets.Path != "" {
		ps = presets.NewStore(cfg.Presets.Path, logger)
		if err := ps.Load(); err != nil {
			logger.Warn("initial preset load failed", slog.String("error", err.Error()))
		}
	}

	cache := limits.NewMemoryCache()
	registry := study.NewRegistry()

	if app.mcpMode {
		svc := api.NewService(db, cache, registry, ps, mp, nil, user)
		logger.Info("Starting MCP server on stdio")
		return mcpserver.New(svc, mp).ServeStdio()
	}

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Build API service and router.
	svc := api.NewService(db, cache, registry, ps, mp, broker, user)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	// Media files are served outside /api so field references like
	// /media/cat.png resolve directly.
	r.Get("/media/{filename}", api.NewMediaHandler(mp).ServeFile)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the presets directory for edits.
	if ps != nil {
		g.Go(func() error {
			err := ps.Watch(gCtx, func() {
				broker.Publish(sse.Event{Type: "presets.updated"})
			})
			if err != nil {
				logger.Warn("presets watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Day rollover at the configured server-local hour.
	g.Go(func() error {
		runRollover(gCtx, svc, cfg.Study.RolloverHour, logger)
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// ensureUser looks up the configured user, creating the row on first start.
func ensureUser(db *store.DB, email string) (*models.User, error) {
	user, err := db.UserByEmail(email)
	if errors.Is(err, apperr.ErrNotFound) {
		user, err = db.CreateUser(email)
	}
	if err != nil {
		return nil, fmt.Errorf("ensure user %q: %w", email, err)
	}
	return user, nil
}

// runRollover unburies cards and resets daily limits once per day at the
// given server-local hour, until ctx is done.
func runRollover(ctx context.Context, svc *api.Service, hour int, logger *slog.Logger) {
	for {
		timer := time.NewTimer(time.Until(nextRollover(time.Now(), hour)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		n, err := svc.Rollover()
		if err != nil {
			logger.Error("day rollover failed", slog.String("error", err.Error()))
			continue
		}
		logger.Info("day rollover complete", slog.Int64("unburied", n))
	}
}

// nextRollover returns the next occurrence of the rollover hour after now.
func nextRollover(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
