package universe

import (
	"context"

	"go.uber.org/fx"
)

func registerLifecycle(lifecycle fx.Lifecycle, runtime *Runtime) {
	ctx, cancel := context.WithCancel(context.Background())

	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go runtime.Run(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
