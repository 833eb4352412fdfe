// This file contains environment variable utilities for configuration override.

package config

import (
	"flag"
	"os"
	"strconv"
)

// isFlagSet checks if a flag was explicitly set on the command line.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// envOverride declares a single environment variable override.
// Each entry maps an env key (without the CONCFETCH_ prefix) to the CLI flag
// it corresponds to and a function that applies the env value.
type envOverride struct {
	envKey string
	flag   string
	apply  func(*AppConfig, string)
}

// envOverrides is the declarative table of all environment variable overrides.
var envOverrides = []envOverride{
	{"LOG", "log", func(c *AppConfig, v string) {
		c.LogLevel = v
	}},
	{"BLOCKING_WORKERS", "blocking-workers", func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.BlockingWorkers = parsed
		}
	}},
	{"BLOCKING_QUEUE", "blocking-queue", func(c *AppConfig, v string) {
		if parsed, err := strconv.Atoi(v); err == nil {
			c.BlockingQueue = parsed
		}
	}},
	{"METRICS_FILE", "metrics-file", func(c *AppConfig, v string) {
		c.MetricsFile = v
	}},
	{"TRACE_FILE", "trace-file", func(c *AppConfig, v string) {
		c.TraceFile = v
	}},
}

// applyEnvOverrides applies environment variable values to the configuration
// for any flags that were not explicitly set on the command line.
// This implements the priority: CLI flags > Environment variables > Defaults.
func applyEnvOverrides(config *AppConfig, fs *flag.FlagSet) {
	for _, o := range envOverrides {
		if isFlagSet(fs, o.flag) {
			continue
		}
		if val := os.Getenv(EnvPrefix + o.envKey); val != "" {
			o.apply(config, val)
		}
	}
}
