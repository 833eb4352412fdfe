// Package config defines the application configuration and its parsing from
// command-line flags and CONCFETCH_ environment variables.
package config

import (
	"flag"
	"io"
	"time"

	apperrors "github.com/agbru/concfetch/internal/errors"
	"github.com/agbru/concfetch/internal/logging"
)

// EnvPrefix is prepended to every environment variable read by the application.
const EnvPrefix = "CONCFETCH_"

// Fixed workload parameters. They are not configurable.
const (
	// FetchCount is the number of concurrent requests issued by the fetch pipeline.
	FetchCount = 2
	// AnalyzeCount is the number of fetch+analyze chains.
	AnalyzeCount = 10
	// DelayMillis is the latency injected by the delay endpoint.
	DelayMillis = 1000
	// DelayHost is the host of the delay-injecting endpoint.
	DelayHost = "deelay.me"
	// TargetHost is the host the delay endpoint forwards to.
	TargetHost = "google.com"
	// ShutdownGrace bounds how long exit waits for detached tasks.
	ShutdownGrace = 250 * time.Millisecond
)

// AppConfig aggregates the application's configuration parameters.
type AppConfig struct {
	// LogLevel is the minimum severity of the diagnostic sink ("off" disables it).
	LogLevel string
	// BlockingWorkers is the size of the blocking lane. Zero selects a default
	// derived from the CPU count.
	BlockingWorkers int
	// BlockingQueue is the number of blocking routines that may wait for a
	// worker before SpawnBlocking blocks its caller. Zero selects a default.
	BlockingQueue int
	// MetricsFile, when set, receives a Prometheus text dump after both pipelines.
	MetricsFile string
	// TraceFile, when set, receives every finished span as JSON.
	TraceFile string
}

// Validate checks the configuration for semantic errors.
func (c AppConfig) Validate() error {
	if c.BlockingWorkers < 0 {
		return apperrors.NewConfigError("blocking workers must be >= 0, got %d", c.BlockingWorkers)
	}
	if c.BlockingQueue < 0 {
		return apperrors.NewConfigError("blocking queue must be >= 0, got %d", c.BlockingQueue)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return apperrors.NewConfigError("invalid log level: %v", err)
	}
	return nil
}

// ParseConfig parses command-line arguments, applies environment overrides
// for flags that were not set explicitly, and validates the result.
func ParseConfig(programName string, args []string, errorWriter io.Writer) (AppConfig, error) {
	fs := flag.NewFlagSet(programName, flag.ContinueOnError)
	fs.SetOutput(errorWriter)

	config := AppConfig{}
	fs.StringVar(&config.LogLevel, "log", logging.LevelOff, "Diagnostic log level (off, error, warn, info, debug, trace).")
	fs.IntVar(&config.BlockingWorkers, "blocking-workers", 0, "Number of worker threads in the blocking lane (0 = auto).")
	fs.IntVar(&config.BlockingQueue, "blocking-queue", 0, "Capacity of the blocking lane queue (0 = default).")
	fs.StringVar(&config.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit.")
	fs.StringVar(&config.TraceFile, "trace-file", "", "Write OpenTelemetry spans to this file as JSON.")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, err
	}

	applyEnvOverrides(&config, fs)

	if err := config.Validate(); err != nil {
		return AppConfig{}, err
	}
	return config, nil
}
