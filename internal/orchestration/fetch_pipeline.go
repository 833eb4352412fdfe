package orchestration

import (
	"context"

	"github.com/agbru/concfetch/internal/substrate"
)

// RunConcurrentFetch starts one request per label (1 and 2) on the async
// lane before waiting on any of them, then awaits the handles in label
// order. The first failure is returned at once; handles not yet awaited
// are left detached and their outcome is never observed.
func (o *Orchestrator) RunConcurrentFetch(ctx context.Context) (err error) {
	ctx, finish := o.startRun(ctx, PipelineFetch)
	defer func() { finish(err) }()

	handles := make([]*substrate.Handle[struct{}], 0, o.fetchCount)
	for label := 1; label <= o.fetchCount; label++ {
		handles = append(handles, substrate.Spawn(ctx, o.rt, func(ctx context.Context) (struct{}, error) {
			return struct{}{}, o.client.Request(ctx, label)
		}))
	}

	for i, h := range handles {
		if _, err := h.Await(ctx); err != nil {
			o.metrics.DetachedOnAbort.Add(float64(len(handles) - i - 1))
			return err
		}
	}
	return nil
}
