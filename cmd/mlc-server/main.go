// Command mlc-server runs the Marvin Light Control DMX stage-lighting server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/PixelboysTM/marvin-light-control/internal/app"
	"github.com/PixelboysTM/marvin-light-control/internal/cli"
	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
)

func main() {
	_ = godotenv.Load()

	opts, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.Type == cli.CommandVersion {
		fmt.Println(config.Version)
		return
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	opts.ApplyOverrides(cfg)

	closeSentry := initSentry(cfg)
	defer closeSentry()
	defer recoverAndReport()

	createApp(cfg).Run()
}

// initSentry starts the Sentry client with the configured DSN. An empty DSN yields a
// disabled client that silently drops every event, so this stays safe with no DSN set.
func initSentry(cfg *config.Config) func() {
	_ = sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN})

	return func() { sentry.Flush(2 * time.Second) }
}

// recoverAndReport catches a panic escaping main, reports it to Sentry, and exits non-zero.
// A clean shutdown never reaches this defer, so the process otherwise exits 0.
func recoverAndReport() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}
}

// createApp builds the fx application graph, with *config.Config supplied here so
// app.Module never has to know how it was loaded.
func createApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.WithLogger(createFxLogger(cfg)),
		fx.Supply(cfg),
		app.Module,
	)
}

// createFxLogger routes fx's own startup diagnostics to the console only in debug mode,
// keeping normal runs quiet.
func createFxLogger(cfg *config.Config) func() fxevent.Logger {
	return func() fxevent.Logger {
		if cfg.Logging.Level == logger.DebugLevel {
			return &fxevent.ConsoleLogger{W: os.Stdout}
		}

		return fxevent.NopLogger
	}
}
