// Package apperrors collects the sentinel errors surfaced across the RPC boundary and
// internal loops of the server.
package apperrors

import (
	"errors"
)

var (
	ErrInvalidProject      = errors.New("no valid project is loaded")
	ErrSavingFailed        = errors.New("saving project failed")
	ErrBlueprintListFailed = errors.New("listing fixture blueprints failed")
	ErrProjectList         = errors.New("listing projects failed")
	ErrCreateProject       = errors.New("creating project failed")
	ErrOpenProject         = errors.New("opening project failed")
	ErrDeleteProject       = errors.New("deleting project failed")
	ErrProjectNotFound     = errors.New("project not found")
	ErrUnknownServiceTag   = errors.New("unknown service identifier tag")
	ErrHandshakeFailed     = errors.New("rpc handshake failed")
	ErrSubscriberLagged    = errors.New("universe subscriber lagged behind broadcast")
	ErrShutdownForced      = errors.New("shutdown forced past waiting tasks")
	ErrUniverseOutOfRange  = errors.New("universe id out of range")
	ErrAddressOutOfRange   = errors.New("fixture address out of range")
	ErrUnknownCodec        = errors.New("unknown project codec extension")
	ErrEndpointUnsupported = errors.New("endpoint configuration not supported by this build")
	ErrListenerBindFailed  = errors.New("rpc listener failed to bind")
)

var (
	As  = errors.As
	Is  = errors.Is
	New = errors.New
)
