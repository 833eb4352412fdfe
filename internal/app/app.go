package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agbru/concfetch/internal/analysis"
	"github.com/agbru/concfetch/internal/config"
	apperrors "github.com/agbru/concfetch/internal/errors"
	"github.com/agbru/concfetch/internal/fetch"
	"github.com/agbru/concfetch/internal/logging"
	"github.com/agbru/concfetch/internal/metrics"
	"github.com/agbru/concfetch/internal/orchestration"
	"github.com/agbru/concfetch/internal/substrate"
	"github.com/agbru/concfetch/internal/tracing"
)

// Application represents the concfetch application instance.
type Application struct {
	Config    config.AppConfig
	Fetcher   fetch.Fetcher
	URL       string
	ErrWriter io.Writer
}

// AppOption configures an Application during construction.
type AppOption func(*Application)

// WithFetcher sets the network collaborator used by both pipelines.
func WithFetcher(f fetch.Fetcher) AppOption {
	return func(a *Application) { a.Fetcher = f }
}

// WithURL overrides the target URL.
func WithURL(url string) AppOption {
	return func(a *Application) { a.URL = url }
}

// New creates a new Application instance by parsing command-line arguments.
func New(args []string, errWriter io.Writer, opts ...AppOption) (*Application, error) {
	app := &Application{ErrWriter: errWriter}
	for _, opt := range opts {
		opt(app)
	}
	if app.Fetcher == nil {
		app.Fetcher = fetch.NewHTTPFetcher(nil)
	}
	if app.URL == "" {
		app.URL = fetch.SlowURL(config.DelayHost, config.DelayMillis, config.TargetHost)
	}

	programName := "concfetch"
	var cmdArgs []string
	if len(args) > 0 {
		programName = args[0]
		cmdArgs = args[1:]
	}

	cfg, err := config.ParseConfig(programName, cmdArgs, errWriter)
	if err != nil {
		return nil, err
	}
	app.Config = cfg
	return app, nil
}

// Run executes the fetch pipeline and then the fetch+analyze pipeline,
// writing diagnostics to out. Pipeline failures are logged and do not
// change the exit code.
func (a *Application) Run(ctx context.Context, out io.Writer) int {
	level, err := logging.ParseLevel(a.Config.LogLevel)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	logger := logging.NewDiagnosticLogger(out, level)

	clientOpts, orchOpts, stopTracing, err := a.setupTracing()
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "Error: %v\n", err)
		return apperrors.ExitErrorConfig
	}
	defer stopTracing()

	reg := metrics.NewRegistry()
	rt := substrate.New(
		substrate.WithBlockingWorkers(a.Config.BlockingWorkers),
		substrate.WithQueueSize(a.Config.BlockingQueue),
		substrate.WithMetrics(reg),
		substrate.WithLogger(logger),
	)
	defer shutdown(rt, logger)

	client := fetch.NewClient(a.Fetcher, a.URL, logger, reg, clientOpts...)
	orch := orchestration.New(rt, client, logger, orchOpts...)
	logger.Debug("pipelines configured",
		logging.String("url", client.URL()),
		logging.Int("blocking_workers", rt.BlockingWorkers()),
		logging.String("popcount", popcountBackend()),
	)

	logger.Println("starting simple concurrent program")
	report(ctx, logger, orch.RunConcurrentFetch(ctx))
	logger.Println("finished concurrent program")

	logger.Println("starting cpu intensive concurrent program")
	_, err = orch.RunFetchAndAnalyze(ctx)
	report(ctx, logger, err)
	logger.Println("finished concurrent program")

	if a.Config.MetricsFile != "" {
		if err := reg.WriteTextfile(a.Config.MetricsFile); err != nil {
			fmt.Fprintf(a.ErrWriter, "Error: %v\n", apperrors.WrapError(err, "write metrics to %s", a.Config.MetricsFile))
		}
	}
	return apperrors.ExitSuccess
}

// setupTracing installs a span exporter writing to the configured trace
// file. Without one, spans go to the global provider.
func (a *Application) setupTracing() ([]fetch.ClientOption, []orchestration.Option, func(), error) {
	if a.Config.TraceFile == "" {
		return nil, nil, func() {}, nil
	}
	f, err := os.Create(a.Config.TraceFile)
	if err != nil {
		return nil, nil, nil, apperrors.WrapError(err, "open trace file")
	}
	tp, err := tracing.NewProvider(f, Version)
	if err != nil {
		_ = f.Close()
		return nil, nil, nil, err
	}
	stop := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			fmt.Fprintf(a.ErrWriter, "Error: %v\n", apperrors.WrapError(err, "flush spans"))
		}
		_ = f.Close()
	}
	return []fetch.ClientOption{fetch.WithTracerProvider(tp)},
		[]orchestration.Option{orchestration.WithTracerProvider(tp)},
		stop, nil
}

// shutdown gives tasks detached by an aborted pipeline a short grace
// period, then leaves them behind.
func shutdown(rt *substrate.Runtime, logger logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownGrace)
	defer cancel()
	if err := rt.Shutdown(ctx); err != nil {
		logger.Debug("detached tasks still running at exit", logging.Err(err))
	}
}

func report(ctx context.Context, logger logging.Logger, err error) {
	switch {
	case err == nil:
		logger.Info("Done")
	case ctx.Err() != nil && apperrors.IsContextError(err):
		logger.Error("Interrupted", err)
	default:
		logger.Error("Error", err)
	}
}

func popcountBackend() string {
	if analysis.HardwarePopcount() {
		return "hardware"
	}
	return "software"
}

// IsHelpError checks if the error is a help flag error (--help was used).
func IsHelpError(err error) bool {
	return errors.Is(err, flag.ErrHelp)
}
