// Package metrics provides Prometheus instrumentation for the execution
// substrate and the pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "concfetch"

// Lane label values.
const (
	LaneAsync    = "async"
	LaneBlocking = "blocking"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePanic   = "panic"
)

// Registry holds all metric instances. Each Registry owns its own
// prometheus.Registry so that tests and multiple runtimes never collide.
type Registry struct {
	reg *prometheus.Registry

	// Substrate metrics
	TasksSpawned     *prometheus.CounterVec
	TasksCompleted   *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	BlockingQueued   prometheus.Gauge
	BlockingActive   prometheus.Gauge
	BlockingRejected prometheus.Counter
	DetachedOnAbort  prometheus.Counter

	// Pipeline metrics
	PipelineRuns     *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	FetchRequests    *prometheus.CounterVec
	AnalyzedBytes    prometheus.Counter
}

// NewRegistry creates a registry with Go runtime and process collectors
// plus all application metrics.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Registry{
		reg: reg,

		TasksSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "substrate",
				Name:      "tasks_spawned_total",
				Help:      "Total number of tasks spawned per lane",
			},
			[]string{"lane"},
		),
		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "substrate",
				Name:      "tasks_completed_total",
				Help:      "Total number of finished tasks per lane and outcome",
			},
			[]string{"lane", "outcome"},
		),
		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "substrate",
				Name:      "task_duration_seconds",
				Help:      "Task execution time per lane",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
			},
			[]string{"lane"},
		),
		BlockingQueued: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "substrate",
			Name:      "blocking_queued",
			Help:      "Number of blocking tasks waiting for a worker",
		}),
		BlockingActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "substrate",
			Name:      "blocking_active",
			Help:      "Number of blocking workers currently running a task",
		}),
		BlockingRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "substrate",
			Name:      "blocking_rejected_total",
			Help:      "Blocking submissions rejected because the lane was closed",
		}),
		DetachedOnAbort: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "detached_tasks_total",
			Help:      "Tasks left running unobserved after a pipeline aborted",
		}),

		PipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Pipeline runs per pipeline and outcome",
			},
			[]string{"pipeline", "outcome"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Wall-clock time of a pipeline run",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pipeline"},
		),
		FetchRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "requests_total",
				Help:      "Fetch requests per outcome",
			},
			[]string{"outcome"},
		),
		AnalyzedBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analysis",
			Name:      "bytes_total",
			Help:      "Bytes scanned by the analysis routine",
		}),
	}
}

// Gatherer exposes the underlying registry for scraping or dumping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// WriteTextfile writes the current metric values to path in the Prometheus
// text exposition format.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Gatherer())
}

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}
