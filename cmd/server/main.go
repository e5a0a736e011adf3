package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/supportdesk/intake-engine/internal/agent"
	"github.com/supportdesk/intake-engine/internal/api"
	"github.com/supportdesk/intake-engine/internal/config"
	"github.com/supportdesk/intake-engine/internal/notify"
	"github.com/supportdesk/intake-engine/internal/preset"
	"github.com/supportdesk/intake-engine/internal/store"
	"github.com/supportdesk/intake-engine/internal/tenant"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Storage: Postgres when configured, file store otherwise.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgStore.Close()

		if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to PostgreSQL, migrations applied")
		st = pgStore
	} else {
		fileStore, err := store.OpenFileStore(cfg.DataDir)
		if err != nil {
			logger.Error("failed to open file store", "error", err)
			os.Exit(1)
		}
		logger.Info("using file store", "data_dir", cfg.DataDir)
		st = fileStore
	}

	presets := preset.NewRegistry(cfg.PresetPath, 0)

	tenants := tenant.NewRegistry(cfg.TenantsPath, cfg.TenantCacheMaxAge, cfg.DevAllowAllTenants)
	if cfg.DevAllowAllTenants {
		logger.Warn("DEV_ALLOW_ALL_TENANTS is set: tenant key verification is DISABLED, never run like this in production")
	}

	// Optional Redis: notification queue + rate limiter.
	var notifier agent.Notifier
	var limiter *api.RateLimiter
	var pool *notify.Pool
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to ping redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		notifier = notify.NewQueue(client)

		pool = notify.NewPool(client, tenants, cfg.NotifyWorkers, logger)
		pool.Start(workerCtx)

		limiter = api.NewRateLimiter(client, cfg.RateLimitMax, cfg.RateLimitWindow, logger)
		logger.Info("connected to Redis", "notify_workers", cfg.NotifyWorkers)
	}

	a := agent.New(st, presets, cfg.PresetID, cfg.DedupeWindowSeconds, notifier, logger)

	router := api.NewRouter(a, tenants, limiter)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port, "preset_id", cfg.PresetID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	stopWorkers()
	if pool != nil {
		pool.Wait()
	}
	logger.Info("server stopped")
}
