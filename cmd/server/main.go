// Package main is the entrypoint for the LogHunter incident control plane.
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

	"github.com/kiranshivaraju/loghunter/internal/api"
	"github.com/kiranshivaraju/loghunter/internal/api/handler"
	mw "github.com/kiranshivaraju/loghunter/internal/api/middleware"
	"github.com/kiranshivaraju/loghunter/internal/auth"
	"github.com/kiranshivaraju/loghunter/internal/cache"
	"github.com/kiranshivaraju/loghunter/internal/config"
	"github.com/kiranshivaraju/loghunter/internal/flags"
	"github.com/kiranshivaraju/loghunter/internal/incidents"
	"github.com/kiranshivaraju/loghunter/internal/notify"
	"github.com/kiranshivaraju/loghunter/internal/realtime"
	"github.com/kiranshivaraju/loghunter/internal/storage"
	"github.com/kiranshivaraju/loghunter/internal/store"
	"github.com/kiranshivaraju/loghunter/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "notify_provider", cfg.Notify.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create notification provider
	notifier, err := notify.NewProvider(cfg.Notify)
	if err != nil {
		return fmt.Errorf("create notify provider: %w", err)
	}

	// 6. Create attachment storage
	uploader, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("create storage uploader: %w", err)
	}

	// 7. Create store and domain services
	pgStore := store.NewPostgresStore(pool)
	incidentSvc := incidents.NewService(pgStore)
	flagSvc := flags.NewService(pgStore, redisCache)
	stream := realtime.NewStream(pgStore, cfg.Realtime.PollInterval)

	// 8. Start background worker
	w := worker.New(pgStore, redisCache, notifier, cfg.Worker.PollInterval, cfg.Worker.BatchSize)
	go w.Run(ctx)
	slog.Info("worker started", "poll_interval", cfg.Worker.PollInterval, "batch_size", cfg.Worker.BatchSize)

	// 9. Build router dependencies
	sessions := auth.NewManager(cfg.Auth, cfg.Server.Env == "production")

	deps := api.Dependencies{
		Auth:      mw.NewAuth(sessions),
		RateLimit: mw.NewRateLimit(cfg.RateLimit.ReadsPerMinute, cfg.RateLimit.WritesPerMinute),

		Health:      handler.NewHealthHandler(pgStore, redisCache),
		Incidents:   handler.NewIncidentHandler(incidentSvc),
		Timeline:    handler.NewTimelineHandler(incidentSvc),
		Attachments: handler.NewAttachmentHandler(incidentSvc, uploader),
		Stream:      handler.NewStreamHandler(incidentSvc, stream),
		Flags:       handler.NewFlagHandler(flagSvc),
		Rules:       handler.NewRuleHandler(flagSvc),
		Audit:       handler.NewAuditHandler(pgStore),
		SavedViews:  handler.NewSavedViewHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr: addr,
		Handler: router,
		// No WriteTimeout: the realtime stream holds its response open for
		// the life of the connection and relies on request cancellation,
		// not a server-side deadline, to end.
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
