package endpoints

import (
	"context"

	"go.uber.org/fx"
)

func registerLifecycle(lifecycle fx.Lifecycle, manager *Manager) {
	ctx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go manager.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// Module provides the endpoint manager for dependency injection and registers its main loop
// with the application lifecycle.
var Module = fx.Module("endpoints",
	fx.Provide(NewManager),
	fx.Invoke(registerLifecycle),
)
