package universe

import "go.uber.org/fx"

// Module provides the universe runtime for dependency injection and registers its
// main loop with the application lifecycle.
var Module = fx.Module("universe",
	fx.Provide(NewRuntime),
	fx.Invoke(registerLifecycle),
)
