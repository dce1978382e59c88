package service

import "go.uber.org/fx"

// Module wires the service object into the fx application graph. The universe and endpoints
// modules depend on *Service through the narrow ProjectView / MappingView interfaces they
// each declare; rpc and globalsvc take *Service directly.
var Module = fx.Module("service", fx.Provide(NewService))
