// Package app is the dependency-injection composition root: it wires every package's
// fx.Module into one graph and registers the OS-signal watcher that turns SIGINT/SIGTERM
// into a shutdown request.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/fx"

	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
)

// registerSignalHandler turns SIGINT/SIGTERM into a shutdown request on the phase
// coordinator, and a later Phase-Done into a clean fx.Shutdowner call so the process exits
// with code 0 instead of lingering.
func registerSignalHandler(lifecycle fx.Lifecycle, shutdown *coordination.Shutdown, shutdowner fx.Shutdowner, log logger.Logger) {
	log = log.WithComponent("app")

	ctx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

			go func() {
				select {
				case <-sig:
					log.Info().Msg("shutdown signal received")
					shutdown.Shutdown()
				case <-ctx.Done():
				}
			}()

			go func() {
				if err := shutdown.Wait(ctx, coordination.PhaseDone); err != nil {
					return
				}

				log.Info().Msg("shutdown sequence reached done, stopping application")

				if err := shutdowner.Shutdown(); err != nil {
					log.Error().Err(err).Msg("fx shutdown request failed")
				}
			}()

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
