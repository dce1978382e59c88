package app

import (
	"go.uber.org/fx"

	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/endpoints"
	"github.com/PixelboysTM/marvin-light-control/internal/globalsvc"
	"github.com/PixelboysTM/marvin-light-control/internal/rpc"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

// Module composes every subsystem's fx.Module into the application graph. *config.Config is
// not provided here: it's supplied by cmd/mlc-server/main.go via fx.Supply once it has been
// loaded from the CLI-selected path, since the config has to exist before the graph is
// built at all.
var Module = fx.Options(
	logger.Module,
	coordination.Module,
	service.Module,
	universe.Module,
	endpoints.Module,
	rpc.Module,
	globalsvc.Module,

	// The universe runtime and endpoint manager depend on *service.Service through narrow
	// interfaces rather than the concrete type; fx only satisfies a parameter by its exact
	// provided type, so the service object is re-exposed under each interface here at the
	// composition root, where both sides are already in scope.
	fx.Provide(
		func(s *service.Service) universe.ProjectView { return s },
		func(s *service.Service) endpoints.MappingView { return s },
	),

	fx.Invoke(registerSignalHandler),
)
