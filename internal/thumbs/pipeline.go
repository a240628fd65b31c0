package thumbs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/filevault/backend/internal/logging"
	"github.com/filevault/backend/internal/repositories"
	"github.com/filevault/backend/internal/storage"
)

// Job identifies an image whose derivatives should be generated. Jobs
// are ephemeral: they exist only inside the queue between enqueue and
// processing and leave no record beyond the derivative blobs.
type Job struct {
	FileID  string
	OwnerID string
}

// JobResult describes the outcome of one processed job. Generated
// holds the widths that were actually written; Err is set only when
// the job failed outright (bad job, unknown file, unreadable source).
// Per-width failures are best effort and do not fail the job.
type JobResult struct {
	Job       Job
	Generated []int
	Err       error
}

// PipelineConfig controls the concurrency characteristics of the pipeline.
type PipelineConfig struct {
	QueueSize int
	Workers   int
	// OnComplete, when set, observes every processed job. Called from
	// worker goroutines.
	OnComplete func(JobResult)
}

// Pipeline asynchronously generates resized derivatives for uploaded
// images. Each derivative is written beside the source blob as
// <location>_<width>.
type Pipeline struct {
	repo       repositories.FileRepository
	blobs      storage.BlobStore
	logger     *slog.Logger
	onComplete func(JobResult)

	jobs   chan Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var errPipelineClosed = errors.New("thumbnail pipeline closed")

// NewPipeline constructs the background worker pool and starts its workers.
func NewPipeline(repo repositories.FileRepository, blobs storage.BlobStore, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 16
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Pipeline{
		repo:       repo,
		blobs:      blobs,
		logger:     logger,
		onComplete: cfg.OnComplete,
		jobs:       make(chan Job, cfg.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}

	p.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go p.worker()
	}

	return p
}

// Enqueue schedules derivative generation for the supplied job.
func (p *Pipeline) Enqueue(ctx context.Context, job Job) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return errPipelineClosed
	default:
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return errPipelineClosed
	case p.jobs <- job:
		return nil
	}
}

// Shutdown waits for the worker pool to drain outstanding jobs.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.once.Do(func() {
		p.cancel()
		close(p.jobs)
	})

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := p.handleJob(job)
			if result.Err != nil {
				p.logger.Error("thumbnail job failed", "fileId", job.FileID, "error", result.Err)
			} else {
				p.logger.Info("thumbnail job completed", "fileId", job.FileID, "generated", result.Generated)
			}
			if p.onComplete != nil {
				p.onComplete(result)
			}
		}
	}
}

func (p *Pipeline) handleJob(job Job) JobResult {
	result := JobResult{Job: job}

	if job.FileID == "" {
		result.Err = errors.New("missing fileId")
		return result
	}
	if job.OwnerID == "" {
		result.Err = errors.New("missing userId")
		return result
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ctx, span := logging.StartSpan(logging.WithLogger(ctx, p.logger), "thumbs.process")
	defer span.End()

	node, err := p.repo.FindByIDAndOwner(ctx, job.FileID, job.OwnerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			result.Err = errors.New("file not found")
		} else {
			result.Err = fmt.Errorf("look up file node: %w", err)
		}
		return result
	}

	reader, err := p.blobs.Open(ctx, node.StoragePath)
	if err != nil {
		result.Err = fmt.Errorf("open source blob: %w", err)
		return result
	}
	src, err := io.ReadAll(reader)
	reader.Close()
	if err != nil {
		result.Err = fmt.Errorf("read source blob: %w", err)
		return result
	}

	// Each width is an independent attempt; one failure never aborts
	// the others and nothing is rolled back.
	for _, width := range Widths {
		data, err := Resize(src, width)
		if err != nil {
			p.logger.Error("generate thumbnail", "fileId", job.FileID, "width", width, "error", err)
			continue
		}

		location := fmt.Sprintf("%s_%d", node.StoragePath, width)
		if err := p.blobs.Write(ctx, location, data); err != nil {
			p.logger.Error("write thumbnail", "fileId", job.FileID, "width", width, "error", err)
			continue
		}

		result.Generated = append(result.Generated, width)
	}

	return result
}
