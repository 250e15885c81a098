package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/user/clone-service/internal/adapter/lru"
	"github.com/user/clone-service/internal/adapter/minio_store"
	"github.com/user/clone-service/internal/adapter/postgres"
	redis_adapter "github.com/user/clone-service/internal/adapter/redis"
	"github.com/user/clone-service/internal/adapter/sqlite"
	"github.com/user/clone-service/internal/app"
	"github.com/user/clone-service/internal/delivery/http/handler"
	"github.com/user/clone-service/internal/delivery/http/router"
	"github.com/user/clone-service/internal/usecase"
	"github.com/user/clone-service/pkg/config"
	"github.com/user/clone-service/pkg/logger"
)

const eventLogMemorySize = 256

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel, cfg.LogFormat)
	slog.Info("Logger initialized", "level", logLevel.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := usecase.PipelineDeps{}

	// --- Persistence ---
	switch {
	case cfg.PostgresURL != "":
		dbpool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		if err := postgres.Migrate(ctx, dbpool); err != nil {
			slog.Error("Failed to migrate database", "error", err)
			os.Exit(1)
		}
		deps.Clones = postgres.NewCloneRepo(dbpool)
		deps.Events = postgres.NewEventLogRepo(dbpool)
		slog.Info("PostgreSQL connection pool established")
	case cfg.SQLitePath != "":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			slog.Error("Unable to open SQLite database", "path", cfg.SQLitePath, "error", err)
			os.Exit(1)
		}
		defer store.Close()
		deps.Clones = store
		deps.Events = store
		slog.Info("SQLite database opened", "path", cfg.SQLitePath)
	default:
		slog.Warn("No database configured, clone records are not persisted")
	}

	// Redis holds the event log when present so every replica can replay a clone.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			slog.Error("Unable to connect to Redis", "error", err)
			os.Exit(1)
		}
		deps.Events = redis_adapter.NewEventLogRepo(rdb, cfg.EventLogTTL)
		deps.InFlight = redis_adapter.NewInFlightRepo(rdb, cfg.InFlightTTL)
		slog.Info("Redis connection established")
	}
	if deps.Events == nil {
		memLog, err := lru.NewEventLog(eventLogMemorySize)
		if err != nil {
			slog.Error("Failed to create in-memory event log", "error", err)
			os.Exit(1)
		}
		deps.Events = memLog
	}

	// --- Artifacts ---
	if cfg.MinioEndpoint != "" {
		store, err := minio_store.NewArtifactStore(minio_store.Config{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			slog.Error("Failed to create artifact store", "error", err)
			os.Exit(1)
		}
		deps.Artifacts = store
		slog.Info("Artifact store configured", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	}

	// --- Pipeline ---
	components, err := app.NewComponents(cfg)
	if err != nil {
		slog.Error("Failed to build pipeline", "error", err)
		os.Exit(1)
	}
	defer components.Close()
	deps.Extractor = components.Extractor
	deps.Generation = components.Generation
	deps.Builder = components.Builder
	deps.Sandboxes = components.Sandboxes

	// --- HTTP Server ---
	pipeline := usecase.NewClonePipeline(deps)
	apiHandler := handler.NewHandler(pipeline, deps.Artifacts, handler.Options{BaseContext: ctx})
	httpRouter := router.New(apiHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      httpRouter,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		slog.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Graceful shutdown failed", "error", err)
		}
	}
}
