package substrate

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	apperrors "github.com/agbru/concfetch/internal/errors"
	"github.com/agbru/concfetch/internal/metrics"
)

func newTestRuntime(t *testing.T, opts ...Option) *Runtime {
	t.Helper()
	rt := New(opts...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rt.Shutdown(ctx); err != nil {
			t.Errorf("shutdown: %v", err)
		}
	})
	return rt
}

func TestSpawn_ReturnsValueAndError(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	ctx := context.Background()
	boom := errors.New("boom")

	ok := Spawn(ctx, rt, func(context.Context) (int, error) { return 42, nil })
	bad := Spawn(ctx, rt, func(context.Context) (int, error) { return 0, boom })

	v, err := ok.Await(ctx)
	if err != nil || v != 42 {
		t.Errorf("Await() = (%d, %v), want (42, nil)", v, err)
	}
	if _, err := bad.Await(ctx); !errors.Is(err, boom) {
		t.Errorf("Await() error = %v, want %v", err, boom)
	}
}

func TestHandle_AwaitTwice(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	ctx := context.Background()

	h := Spawn(ctx, rt, func(context.Context) (string, error) { return "once", nil })
	if v, err := h.Await(ctx); err != nil || v != "once" {
		t.Fatalf("first Await() = (%q, %v)", v, err)
	}

	_, err := h.Await(ctx)
	var se apperrors.SubstrateError
	if !errors.As(err, &se) {
		t.Fatalf("second Await() error = %v, want SubstrateError", err)
	}
	if !errors.Is(err, ErrHandleConsumed) {
		t.Errorf("second Await() should wrap ErrHandleConsumed, got %v", err)
	}
	if se.Lane != metrics.LaneAsync {
		t.Errorf("Lane = %q, want %q", se.Lane, metrics.LaneAsync)
	}
}

func TestHandle_AwaitContextDone(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	release := make(chan struct{})
	h := Spawn(context.Background(), rt, func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := h.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Await() error = %v, want context.Canceled", err)
	}
	close(release)
	<-h.Done()
}

func TestSpawn_PanicBecomesSubstrateError(t *testing.T) {
	t.Parallel()
	reg := metrics.NewRegistry()
	rt := newTestRuntime(t, WithMetrics(reg))
	ctx := context.Background()

	h := Spawn(ctx, rt, func(context.Context) (int, error) { panic("kaboom") })
	_, err := h.Await(ctx)

	var se apperrors.SubstrateError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want SubstrateError", err)
	}
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want PanicError cause", err)
	}
	if pe.Value != "kaboom" || len(pe.Stack) == 0 {
		t.Errorf("PanicError = {%v, %d bytes of stack}", pe.Value, len(pe.Stack))
	}
	if got := testutil.ToFloat64(reg.TasksCompleted.WithLabelValues(metrics.LaneAsync, metrics.OutcomePanic)); got != 1 {
		t.Errorf("panic outcomes = %v, want 1", got)
	}
}

func TestSpawnBlocking_RunsAndPanics(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, WithBlockingWorkers(2))
	ctx := context.Background()

	sum := SpawnBlocking(rt, func() int {
		total := 0
		for i := 1; i <= 100; i++ {
			total += i
		}
		return total
	})
	if v, err := sum.Await(ctx); err != nil || v != 5050 {
		t.Errorf("Await() = (%d, %v), want (5050, nil)", v, err)
	}

	bad := SpawnBlocking(rt, func() int { panic("worker down") })
	_, err := bad.Await(ctx)
	var se apperrors.SubstrateError
	if !errors.As(err, &se) || se.Lane != metrics.LaneBlocking {
		t.Errorf("error = %v, want blocking SubstrateError", err)
	}

	// The worker that recovered the panic keeps serving.
	again := SpawnBlocking(rt, func() string { return "still alive" })
	if v, err := again.Await(ctx); err != nil || v != "still alive" {
		t.Errorf("Await() after panic = (%q, %v)", v, err)
	}
}

func TestSpawnBlocking_AfterClose(t *testing.T) {
	t.Parallel()
	reg := metrics.NewRegistry()
	rt := newTestRuntime(t, WithMetrics(reg))
	rt.Close()

	h := SpawnBlocking(rt, func() int { return 1 })
	_, err := h.Await(context.Background())
	if !errors.Is(err, ErrLaneClosed) {
		t.Fatalf("error = %v, want ErrLaneClosed", err)
	}
	var se apperrors.SubstrateError
	if !errors.As(err, &se) {
		t.Errorf("error = %v, want SubstrateError", err)
	}
	if got := testutil.ToFloat64(reg.BlockingRejected); got != 1 {
		t.Errorf("rejected = %v, want 1", got)
	}
}

func TestSpawn_RunsConcurrently(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	ctx := context.Background()
	const delay = 150 * time.Millisecond

	sleep := func(ctx context.Context) (struct{}, error) {
		select {
		case <-time.After(delay):
			return struct{}{}, nil
		case <-ctx.Done():
			return struct{}{}, ctx.Err()
		}
	}

	start := time.Now()
	h1 := Spawn(ctx, rt, sleep)
	h2 := Spawn(ctx, rt, sleep)
	if _, err := h1.Await(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := h2.Await(ctx); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed >= delay*3/2 {
		t.Errorf("two concurrent tasks took %v, want closer to %v than %v", elapsed, delay, 2*delay)
	}
}

func TestBlockingLaneDoesNotStallAsyncLane(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, WithBlockingWorkers(2))
	ctx := context.Background()

	var stop atomic.Bool
	spin := func() int {
		n := 0
		for !stop.Load() {
			n++
		}
		return n
	}
	b1 := SpawnBlocking(rt, spin)
	b2 := SpawnBlocking(rt, spin)

	io := Spawn(ctx, rt, func(context.Context) (bool, error) {
		time.Sleep(10 * time.Millisecond)
		return true, nil
	})
	select {
	case <-io.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("async task did not finish while blocking lane was busy")
	}
	stop.Store(true)
	for _, h := range []*Handle[int]{b1, b2} {
		if _, err := h.Await(ctx); err != nil {
			t.Errorf("blocking task: %v", err)
		}
	}
}

func TestJoinAll_WaitsForEveryHandleInOrder(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	ctx := context.Background()
	fail := errors.New("first fails fast")

	var finished atomic.Int32
	handles := []*Handle[int]{
		Spawn(ctx, rt, func(context.Context) (int, error) {
			finished.Add(1)
			return 0, fail
		}),
		Spawn(ctx, rt, func(context.Context) (int, error) {
			time.Sleep(50 * time.Millisecond)
			finished.Add(1)
			return 2, nil
		}),
		Spawn(ctx, rt, func(context.Context) (int, error) {
			finished.Add(1)
			return 3, nil
		}),
	}

	outcomes, err := JoinAll(ctx, handles)
	if err != nil {
		t.Fatalf("JoinAll error = %v, want nil when only tasks fail", err)
	}
	if got := finished.Load(); got != 3 {
		t.Fatalf("JoinAll returned with %d of 3 tasks finished", got)
	}
	if len(outcomes) != 3 {
		t.Fatalf("len(outcomes) = %d, want 3", len(outcomes))
	}
	if outcomes[0].OK() || !errors.Is(outcomes[0].Err, fail) {
		t.Errorf("outcomes[0] = %+v, want failure", outcomes[0])
	}
	if !outcomes[1].OK() || outcomes[1].Value != 2 {
		t.Errorf("outcomes[1] = %+v, want 2", outcomes[1])
	}
	if !outcomes[2].OK() || outcomes[2].Value != 3 {
		t.Errorf("outcomes[2] = %+v, want 3", outcomes[2])
	}
}

func TestJoinAll_CallerContextEnds(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	release := make(chan struct{})
	defer close(release)

	handles := []*Handle[int]{
		Spawn(context.Background(), rt, func(context.Context) (int, error) { return 1, nil }),
		Spawn(context.Background(), rt, func(context.Context) (int, error) {
			<-release
			return 2, nil
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	outcomes, err := JoinAll(ctx, handles)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("JoinAll error = %v, want context.DeadlineExceeded", err)
	}
	if !outcomes[0].OK() || outcomes[0].Value != 1 {
		t.Errorf("outcomes[0] = %+v, want settled value 1", outcomes[0])
	}
	if !errors.Is(outcomes[1].Err, context.DeadlineExceeded) {
		t.Errorf("outcomes[1] = %+v, want the deadline error", outcomes[1])
	}
}

func TestJoinAll_TaskContextErrorIsAnOutcome(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t)
	ctx := context.Background()

	handles := []*Handle[int]{
		Spawn(ctx, rt, func(context.Context) (int, error) { return 0, context.Canceled }),
	}
	outcomes, err := JoinAll(ctx, handles)
	if err != nil {
		t.Fatalf("JoinAll error = %v, want nil while the caller context is live", err)
	}
	if !errors.Is(outcomes[0].Err, context.Canceled) {
		t.Errorf("outcomes[0] = %+v, want context.Canceled", outcomes[0])
	}
}

func TestSpawn_RecordsMetrics(t *testing.T) {
	t.Parallel()
	reg := metrics.NewRegistry()
	rt := newTestRuntime(t, WithMetrics(reg), WithBlockingWorkers(1))
	ctx := context.Background()

	_, _ = Spawn(ctx, rt, func(context.Context) (int, error) { return 1, nil }).Await(ctx)
	_, _ = Spawn(ctx, rt, func(context.Context) (int, error) { return 0, errors.New("x") }).Await(ctx)
	_, _ = SpawnBlocking(rt, func() int { return 1 }).Await(ctx)

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"async spawned", testutil.ToFloat64(reg.TasksSpawned.WithLabelValues(metrics.LaneAsync)), 2},
		{"blocking spawned", testutil.ToFloat64(reg.TasksSpawned.WithLabelValues(metrics.LaneBlocking)), 1},
		{"async success", testutil.ToFloat64(reg.TasksCompleted.WithLabelValues(metrics.LaneAsync, metrics.OutcomeSuccess)), 1},
		{"async failure", testutil.ToFloat64(reg.TasksCompleted.WithLabelValues(metrics.LaneAsync, metrics.OutcomeFailure)), 1},
		{"blocking success", testutil.ToFloat64(reg.TasksCompleted.WithLabelValues(metrics.LaneBlocking, metrics.OutcomeSuccess)), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestShutdown_WaitsForTasks(t *testing.T) {
	t.Parallel()
	rt := New(WithBlockingWorkers(1))
	var done atomic.Bool
	Spawn(context.Background(), rt, func(context.Context) (int, error) {
		time.Sleep(30 * time.Millisecond)
		done.Store(true)
		return 0, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if !done.Load() {
		t.Error("Shutdown returned before the detached task finished")
	}
}

func TestSpawnBlocking_SmallQueue(t *testing.T) {
	t.Parallel()
	rt := newTestRuntime(t, WithBlockingWorkers(1), WithQueueSize(1))
	ctx := context.Background()

	handles := make([]*Handle[int], 0, 5)
	for i := range 5 {
		handles = append(handles, SpawnBlocking(rt, func() int {
			time.Sleep(5 * time.Millisecond)
			return i
		}))
	}
	outcomes, err := JoinAll(ctx, handles)
	if err != nil {
		t.Fatal(err)
	}
	for i, out := range outcomes {
		if !out.OK() || out.Value != i {
			t.Errorf("outcomes[%d] = %+v, want %d", i, out, i)
		}
	}
}

func TestDefaultBlockingWorkers(t *testing.T) {
	t.Parallel()
	if n := DefaultBlockingWorkers(); n < minBlockingWorkers {
		t.Errorf("DefaultBlockingWorkers() = %d, want >= %d", n, minBlockingWorkers)
	}
	rt := newTestRuntime(t, WithBlockingWorkers(3))
	if rt.BlockingWorkers() != 3 {
		t.Errorf("BlockingWorkers() = %d, want 3", rt.BlockingWorkers())
	}
}
