// Package substrate provides the execution substrate shared by the
// pipelines: an async lane for I/O-bound tasks and a blocking lane for
// CPU-bound routines.
//
// The async lane is the Go scheduler itself. Spawn starts a goroutine that is
// multiplexed over GOMAXPROCS threads; a goroutine waiting on the network is
// parked by the runtime poller and does not hold a thread.
//
// The blocking lane is a fixed pool of worker goroutines, each locked to its
// own OS thread. SpawnBlocking queues a routine on that pool, so long
// computations run on dedicated threads instead of competing with
// network-bound goroutines for scheduler slots.
//
// Both lanes return a *Handle that is awaited exactly once. JoinAll awaits a
// set of handles and reports one Outcome per handle, in order.
package substrate
