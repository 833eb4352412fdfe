package substrate

import (
	"errors"
	"runtime"
	"sync"

	apperrors "github.com/agbru/concfetch/internal/errors"
	"github.com/agbru/concfetch/internal/metrics"
)

// ErrLaneClosed is the cause reported when blocking work is submitted after
// the runtime was closed.
var ErrLaneClosed = errors.New("blocking lane has been shut down")

type blockingLane struct {
	size    int
	queue   chan func()
	metrics *metrics.Registry

	mu        sync.RWMutex
	isClosed  bool
	closeOnce sync.Once
	workers   sync.WaitGroup
}

func newBlockingLane(size, queueSize int, m *metrics.Registry) *blockingLane {
	l := &blockingLane{
		size:    size,
		queue:   make(chan func(), queueSize),
		metrics: m,
	}
	for i := 0; i < size; i++ {
		l.workers.Add(1)
		go l.work()
	}
	return l
}

// work runs queued routines on a dedicated OS thread until the queue is
// closed and drained.
func (l *blockingLane) work() {
	defer l.workers.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for job := range l.queue {
		l.metrics.BlockingQueued.Dec()
		l.metrics.BlockingActive.Inc()
		job()
		l.metrics.BlockingActive.Dec()
	}
}

func (l *blockingLane) submit(job func()) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.isClosed {
		return ErrLaneClosed
	}
	l.metrics.BlockingQueued.Inc()
	l.queue <- job
	return nil
}

func (l *blockingLane) close() {
	l.closeOnce.Do(func() {
		l.mu.Lock()
		l.isClosed = true
		close(l.queue)
		l.mu.Unlock()
	})
}

// SpawnBlocking queues fn on the blocking lane and returns a handle that can
// be awaited from async code. If the lane is closed the handle resolves
// immediately with a SubstrateError wrapping ErrLaneClosed.
func SpawnBlocking[T any](rt *Runtime, fn func() T) *Handle[T] {
	h := newHandle[T](metrics.LaneBlocking)
	rt.metrics.TasksSpawned.WithLabelValues(metrics.LaneBlocking).Inc()

	err := rt.blocking.submit(func() {
		v, err := run(rt, metrics.LaneBlocking, func() (T, error) { return fn(), nil })
		h.complete(v, err)
	})
	if err != nil {
		rt.metrics.BlockingRejected.Inc()
		var zero T
		h.complete(zero, apperrors.SubstrateError{Lane: metrics.LaneBlocking, Cause: err})
	}
	return h
}
