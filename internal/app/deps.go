package app

import (
	"context"
	"log/slog"

	"github.com/filevault/backend/internal/auth"
	"github.com/filevault/backend/internal/config"
	"github.com/filevault/backend/internal/db"
	"github.com/filevault/backend/internal/files"
	"github.com/filevault/backend/internal/handlers"
	"github.com/filevault/backend/internal/middleware"
	"github.com/filevault/backend/internal/repositories"
	"github.com/filevault/backend/internal/storage"
	"github.com/filevault/backend/internal/thumbs"
)

// buildDependencies wires together concrete implementations used by the
// HTTP handlers and returns the thumbnail pipeline so the caller can
// drain it on shutdown.
func buildDependencies(pool db.Pool, blobs storage.BlobStore, checkStorage func(ctx context.Context) error, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, *thumbs.Pipeline) {
	fileRepo := repositories.NewPostgresFileRepository(pool)
	userRepo := repositories.NewPostgresUserRepository(pool)
	tokenStore := repositories.NewPostgresTokenStore(pool)

	sessions := auth.NewCachingResolver(auth.NewManager(cfg.TokenTTL, tokenStore), cfg.TokenCacheTTL)

	pipeline := thumbs.NewPipeline(fileRepo, blobs, thumbs.PipelineConfig{
		QueueSize: cfg.ThumbQueueSize,
		Workers:   cfg.ThumbWorkers,
	}, logger)

	fileService := files.NewService(fileRepo, blobs, pipeline)

	deps := handlers.Dependencies{
		Users:       userRepo,
		Sessions:    sessions,
		Files:       fileService,
		FileCounts:  fileRepo,
		AuthLimiter: middleware.NewIPRateLimiter(cfg.AuthRateRequests, cfg.AuthRateWindow, cfg.AuthRateRequests, 10*cfg.AuthRateWindow),
		CheckDB: func(ctx context.Context) error {
			return db.Ping(ctx, pool)
		},
		CheckStorage: checkStorage,
	}

	return deps, pipeline
}
