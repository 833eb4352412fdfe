package substrate

import (
	"context"

	"github.com/agbru/concfetch/internal/metrics"
)

// Spawn runs fn on the async lane and returns immediately. The task starts
// concurrently with the caller and with any sibling tasks; ctx is handed to
// fn unchanged and is the only way to stop it early.
func Spawn[T any](ctx context.Context, rt *Runtime, fn func(context.Context) (T, error)) *Handle[T] {
	h := newHandle[T](metrics.LaneAsync)
	rt.metrics.TasksSpawned.WithLabelValues(metrics.LaneAsync).Inc()
	rt.asyncWg.Add(1)
	go func() {
		defer rt.asyncWg.Done()
		v, err := run(rt, metrics.LaneAsync, func() (T, error) { return fn(ctx) })
		h.complete(v, err)
	}()
	return h
}
