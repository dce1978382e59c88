package globalsvc

import (
	"context"

	"go.uber.org/fx"
)

func registerLifecycle(lifecycle fx.Lifecycle, shutdownSvc *ShutdownService, autosaveSvc *AutosaveService) {
	ctx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go shutdownSvc.Run(ctx)
			go autosaveSvc.Run(ctx)

			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

// Module provides the global lifecycle services for dependency injection and registers their
// main loops with the application lifecycle.
var Module = fx.Module("globalsvc",
	fx.Provide(
		NewShutdownService,
		NewAutosaveService,
	),
	fx.Invoke(registerLifecycle),
)
