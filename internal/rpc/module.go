package rpc

import (
	"context"

	"go.uber.org/fx"

	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
)

// Module provides the three service façades and the listener for dependency injection, and
// registers the listener's accept loop with the application lifecycle.
var Module = fx.Module("rpc",
	fx.Provide(
		NewGeneralService,
		NewProjectSelectionService,
		NewProjectService,
		NewListener,
	),
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lifecycle fx.Lifecycle, listener *Listener, log logger.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := listener.Run(ctx); err != nil {
					log.WithComponent("rpc").Error().Err(err).Msg("listener exited")
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
