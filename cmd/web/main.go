package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"agri-dashboard/internal/config"
	"agri-dashboard/internal/middleware"
	"agri-dashboard/internal/observability"
	"agri-dashboard/internal/server"
	"agri-dashboard/internal/services"
	"agri-dashboard/internal/store"
)

const (
	version        = "1.0.0"
	csvLoadTimeout = 30 * time.Second
)

// openRepository connects the configured data source. The returned close
// func releases it at shutdown.
func openRepository(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (services.Repository, func(context.Context) error, error) {
	switch cfg.Source {
	case config.SourceCSV:
		repo := services.NewMemoryRepository(logger)

		loadCtx, cancel := context.WithTimeout(ctx, csvLoadTimeout)
		defer cancel()

		if err := repo.LoadFromCSV(loadCtx, cfg.CSVFile); err != nil {
			return nil, nil, fmt.Errorf("load csv data: %w", err)
		}
		return repo, func(context.Context) error { return nil }, nil

	default:
		mongoStore, err := store.Connect(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return mongoStore, mongoStore.Close, nil
	}
}

func newHandler(cfg *config.Config, logger *slog.Logger, reports *services.Reports) http.Handler {
	srv := server.NewServer(reports, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
	)

	return middlewareChain(srv)
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env file", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"data_source", cfg.Database.Source,
		"addr", cfg.Address(),
	)

	start := time.Now()
	repo, closeRepo, err := openRepository(context.Background(), cfg.Database, logger)
	if err != nil {
		logger.Error("failed to open data source", "source", cfg.Database.Source, "error", err)
		os.Exit(1)
	}
	logger.Info("data source ready", "source", cfg.Database.Source, "duration", time.Since(start))

	reports := services.NewReports(repo, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, logger, reports),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook("data source", func(ctx context.Context) error {
		logger.Info("closing data source", "source", cfg.Database.Source)
		return closeRepo(ctx)
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
