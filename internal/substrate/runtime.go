package substrate

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	apperrors "github.com/agbru/concfetch/internal/errors"
	"github.com/agbru/concfetch/internal/logging"
	"github.com/agbru/concfetch/internal/metrics"
)

const (
	minBlockingWorkers = 8
	// DefaultQueueSize bounds the number of blocking routines waiting for a worker.
	DefaultQueueSize = 1024
)

// DefaultBlockingWorkers returns the blocking lane size used when none is
// configured: four workers per CPU, at least eight.
func DefaultBlockingWorkers() int {
	return max(minBlockingWorkers, 4*runtime.NumCPU())
}

// Option configures a Runtime.
type Option func(*settings)

type settings struct {
	blockingWorkers int
	queueSize       int
	metrics         *metrics.Registry
	logger          logging.Logger
}

// WithBlockingWorkers sets the number of blocking lane workers. Values <= 0
// keep the default.
func WithBlockingWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.blockingWorkers = n
		}
	}
}

// WithQueueSize sets the blocking lane queue capacity. Values <= 0 keep the default.
func WithQueueSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithMetrics records substrate metrics into reg.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *settings) { s.metrics = reg }
}

// WithLogger sets the logger used for substrate diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Runtime owns the async and blocking lanes.
type Runtime struct {
	blocking *blockingLane
	metrics  *metrics.Registry
	logger   logging.Logger
	asyncWg  sync.WaitGroup
}

// New starts a Runtime. The blocking lane workers are running when New returns.
func New(opts ...Option) *Runtime {
	s := settings{
		blockingWorkers: DefaultBlockingWorkers(),
		queueSize:       DefaultQueueSize,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewRegistry()
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}

	rt := &Runtime{
		metrics: s.metrics,
		logger:  s.logger,
	}
	rt.blocking = newBlockingLane(s.blockingWorkers, s.queueSize, s.metrics)
	rt.logger.Debug("substrate started",
		logging.Int("async_threads", runtime.GOMAXPROCS(0)),
		logging.Int("blocking_workers", s.blockingWorkers),
		logging.Int("blocking_queue", s.queueSize),
	)
	return rt
}

// BlockingWorkers returns the size of the blocking lane.
func (rt *Runtime) BlockingWorkers() int {
	return rt.blocking.size
}

// Metrics returns the registry the runtime records into.
func (rt *Runtime) Metrics() *metrics.Registry {
	return rt.metrics
}

// Close stops accepting blocking work without waiting for running tasks.
// Later SpawnBlocking calls resolve with a SubstrateError.
func (rt *Runtime) Close() {
	rt.blocking.close()
}

// Shutdown closes the blocking lane and waits until every async task and
// blocking worker has finished, or ctx is done. Spawn must not be called
// concurrently with Shutdown.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.blocking.close()
	done := make(chan struct{})
	go func() {
		rt.asyncWg.Wait()
		rt.blocking.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run executes fn, converting a panic into a SubstrateError, and records
// completion metrics for lane.
func run[T any](rt *Runtime, lane string, fn func() (T, error)) (v T, err error) {
	start := time.Now()
	outcome := metrics.OutcomeSuccess
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = apperrors.SubstrateError{Lane: lane, Cause: &PanicError{Value: r, Stack: debug.Stack()}}
			outcome = metrics.OutcomePanic
			rt.logger.Error("task panicked", err, logging.String("lane", lane))
		} else if err != nil {
			outcome = metrics.OutcomeFailure
		}
		rt.metrics.TaskDuration.WithLabelValues(lane).Observe(time.Since(start).Seconds())
		rt.metrics.TasksCompleted.WithLabelValues(lane, outcome).Inc()
	}()
	return fn()
}
