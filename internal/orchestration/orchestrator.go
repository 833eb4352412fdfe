package orchestration

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agbru/concfetch/internal/config"
	"github.com/agbru/concfetch/internal/fetch"
	"github.com/agbru/concfetch/internal/format"
	"github.com/agbru/concfetch/internal/logging"
	"github.com/agbru/concfetch/internal/metrics"
	"github.com/agbru/concfetch/internal/substrate"
)

const tracerName = "github.com/agbru/concfetch/internal/orchestration"

// Pipeline names used in metrics, spans and logs.
const (
	PipelineFetch   = "concurrent_fetch"
	PipelineAnalyze = "fetch_analyze"
)

// Orchestrator runs the pipelines. It holds no per-run state and may run
// both pipelines one after the other on the same runtime.
type Orchestrator struct {
	rt           *substrate.Runtime
	client       *fetch.Client
	logger       logging.Logger
	metrics      *metrics.Registry
	tracer       trace.Tracer
	fetchCount   int
	analyzeCount int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithTracerProvider creates pipeline and chain spans from tp instead of
// the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer(tracerName) }
}

// New returns an Orchestrator scheduling work on rt and fetching through
// client. Metrics are recorded into the runtime's registry.
func New(rt *substrate.Runtime, client *fetch.Client, logger logging.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	o := &Orchestrator{
		rt:           rt,
		client:       client,
		logger:       logger,
		metrics:      rt.Metrics(),
		tracer:       otel.Tracer(tracerName),
		fetchCount:   config.FetchCount,
		analyzeCount: config.AnalyzeCount,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// startRun opens the span for one pipeline run and returns a function that
// closes it and records the outcome.
func (o *Orchestrator) startRun(ctx context.Context, pipeline string) (context.Context, func(error)) {
	runID := uuid.NewString()
	ctx, span := o.tracer.Start(ctx, "pipeline."+pipeline, trace.WithAttributes(
		attribute.String("concfetch.pipeline", pipeline),
		attribute.String("concfetch.run_id", runID),
	))
	o.logger.Debug("pipeline started", logging.String("pipeline", pipeline), logging.String("run_id", runID))
	start := time.Now()

	return ctx, func(err error) {
		elapsed := time.Since(start)
		outcome := metrics.Outcome(err)
		o.metrics.PipelineDuration.WithLabelValues(pipeline).Observe(elapsed.Seconds())
		o.metrics.PipelineRuns.WithLabelValues(pipeline, outcome).Inc()
		o.logger.Debug("pipeline finished",
			logging.String("pipeline", pipeline),
			logging.String("run_id", runID),
			logging.String("outcome", outcome),
			logging.String("duration", format.Duration(elapsed)),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
