package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span is a logical unit of work, used to tie thumbnail jobs and other
// background work into the same trace vocabulary as HTTP requests.
type Span struct {
	logger *slog.Logger
	start  time.Time
}

// StartSpan derives a child span from the provided context. The
// returned context carries a logger enriched with the trace and span
// identifiers; pass it down so nested work inherits them.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
		ctx = WithTraceID(ctx, traceID)
		logger = logger.With(slog.String("trace_id", traceID))
	}

	spanID := uuid.NewString()
	attrs := []any{
		slog.String("span_id", spanID),
		slog.String("span_name", name),
	}
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	logger = logger.With(attrs...)

	ctx = WithLogger(ctx, logger)
	ctx = WithSpanID(ctx, spanID)

	return ctx, &Span{logger: logger, start: time.Now()}
}

// End finalizes the span and emits a completion log entry.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.logger.Info("span completed", slog.Duration("duration", time.Since(s.start)))
}
