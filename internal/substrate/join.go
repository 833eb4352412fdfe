package substrate

import (
	"context"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/concfetch/internal/errors"
)

// Outcome is the settled result of one handle.
type Outcome[T any] struct {
	Value T
	Err   error
}

// OK reports whether the outcome carries no error.
func (o Outcome[T]) OK() bool { return o.Err == nil }

// JoinAll waits for every handle to finish, whatever the individual
// results, and returns one Outcome per handle in input order. Every handle
// is consumed.
//
// Task failures are reported only through the outcomes. The returned error
// is non-nil when ctx ends before every handle has settled; the outcomes
// are then partial and should not be summarized.
func JoinAll[T any](ctx context.Context, handles []*Handle[T]) ([]Outcome[T], error) {
	outcomes := make([]Outcome[T], len(handles))
	var g errgroup.Group
	for i, h := range handles {
		g.Go(func() error {
			v, err := h.Await(ctx)
			outcomes[i] = Outcome[T]{Value: v, Err: err}
			if ctxErr := ctx.Err(); ctxErr != nil && apperrors.IsContextError(err) {
				return ctxErr
			}
			return nil
		})
	}
	return outcomes, g.Wait()
}
