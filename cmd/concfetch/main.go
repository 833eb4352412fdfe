package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/agbru/concfetch/internal/app"
	apperrors "github.com/agbru/concfetch/internal/errors"
	"github.com/agbru/concfetch/internal/logging"
)

func main() {
	logging.StartClock()

	if app.HasVersionFlag(os.Args[1:]) {
		app.PrintVersion(os.Stdout)
		return
	}

	application, err := app.New(os.Args, os.Stderr)
	if err != nil {
		if app.IsHelpError(err) {
			os.Exit(apperrors.ExitSuccess)
		}
		// Flag parse errors were already reported by the flag set.
		var cfgErr apperrors.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", cfgErr)
		}
		os.Exit(apperrors.ExitErrorConfig)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := application.Run(ctx, os.Stderr)
	stop()
	os.Exit(exitCode)
}
