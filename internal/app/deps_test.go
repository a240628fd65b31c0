package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/filevault/backend/internal/config"
	"github.com/filevault/backend/internal/storage"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func TestBuildDependencies(t *testing.T) {
	cfg := config.Config{
		TokenTTL:         time.Hour,
		TokenCacheTTL:    time.Minute,
		ThumbQueueSize:   4,
		ThumbWorkers:     1,
		AuthRateRequests: 10,
		AuthRateWindow:   time.Minute,
	}

	blobs := storage.NewDiskStore(t.TempDir())
	checkStorage := func(context.Context) error { return nil }
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	deps, pipeline := buildDependencies(fakePool{}, blobs, checkStorage, cfg, logger)
	if pipeline == nil {
		t.Fatal("expected thumbnail pipeline to be configured")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pipeline.Shutdown(ctx)
	}()

	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Files == nil {
		t.Fatal("expected file service to be configured")
	}
	if deps.FileCounts == nil {
		t.Fatal("expected file counter to be configured")
	}
	if deps.AuthLimiter == nil {
		t.Fatal("expected auth rate limiter to be configured")
	}
	if deps.CheckDB == nil || deps.CheckStorage == nil {
		t.Fatal("expected health checks to be configured")
	}
}
