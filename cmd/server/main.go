// Package main is the entrypoint for the Inocula API server.
package main

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

	"github.com/kiranshivaraju/inocula/internal/api"
	"github.com/kiranshivaraju/inocula/internal/api/handler"
	mw "github.com/kiranshivaraju/inocula/internal/api/middleware"
	"github.com/kiranshivaraju/inocula/internal/api/response"
	"github.com/kiranshivaraju/inocula/internal/cache"
	"github.com/kiranshivaraju/inocula/internal/config"
	"github.com/kiranshivaraju/inocula/internal/moderation"
	"github.com/kiranshivaraju/inocula/internal/scoring"
	"github.com/kiranshivaraju/inocula/internal/store"
	"github.com/kiranshivaraju/inocula/internal/tasks"
)

const shutdownTimeout = 30 * time.Second

func main() {
	setLogger(slog.LevelInfo)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func setLogger(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}

func run() error {
	// 1. Load config; fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setLogger(cfg.SlogLevel())
	slog.Info("config loaded", "scorer", cfg.Scorer.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open the store; PostgreSQL is migrated first
	st, closeStore, err := store.Open(ctx, cfg.Database, "migrations")
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer closeStore()
	slog.Info("database ready")

	// 3. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 4. Create the scorer, memoized by text fingerprint
	scorer, err := scoring.NewScorer(cfg.Scorer)
	if err != nil {
		return fmt.Errorf("create scorer: %w", err)
	}
	scorer = scoring.Memoize(scorer, redisCache, cfg.Scorer.CacheTTL)
	slog.Info("scorer initialized", "scorer", scorer.Name(), "cache_ttl", cfg.Scorer.CacheTTL)

	// 5. Task registry, janitor and moderation service
	registry := tasks.NewRegistry(st, redisCache, scorer, tasks.Options{
		Timeout:       cfg.Scorer.Timeout,
		MaxTextLength: cfg.Tasks.MaxTextLength,
		Retention:     cfg.Tasks.Retention,
	})
	janitor := tasks.NewJanitor(st, cfg.Tasks.Retention, cfg.Tasks.JanitorInterval)
	go janitor.Run(ctx)

	mod := moderation.NewService(st)

	// 6. Build router with dependencies
	deps := api.Dependencies{
		RateLimit:   mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMinute),
		CORSOrigins: cfg.Server.CORSOrigins,

		HealthHandler:       healthHandler(st, redisCache),
		AnalyzeHandler:      handler.NewAnalyzeHandler(registry),
		StatusHandler:       handler.NewStatusHandler(registry, cfg.Tasks.LongPollMax),
		HistoryHandler:      handler.NewHistoryHandler(mod),
		ListReportsHandler:  handler.NewListReportsHandler(mod),
		ReportDetailHandler: handler.NewReportDetailHandler(mod),
		UpdateStatusHandler: handler.NewUpdateStatusHandler(mod),
		AnalyticsHandler:    handler.NewAnalyticsHandler(mod),
		FileReportHandler:   handler.NewFileReportHandler(mod),
		FeedbackHandler:     handler.NewFeedbackHandler(mod),
	}

	router := api.NewRouter(deps)

	// 7. Start HTTP server. WriteTimeout leaves room for the longest long poll.
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Tasks.LongPollMax + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// In-flight analyses still write their results before the store closes.
	if err := registry.Shutdown(shutdownCtx); err != nil {
		slog.Warn("analyses still running at shutdown", "error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// pinger is the health-check view of the store and cache.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
