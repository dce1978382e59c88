package coordination

import "go.uber.org/fx"

// Module provides the shutdown coordinator and adapt notifier for dependency injection.
var Module = fx.Module("coordination",
	fx.Provide(
		NewShutdown,
		NewAdapt,
	),
)
