package config

import "time"

// Application metadata
const (
	AppName = "marvin-light-control"
	Version = "0.1.0"

	ConfigFile = "mlc-server.yaml"
)

// Logging defaults
const (
	LogLevel  = "info"
	LogFormat = "console"

	WarnLogFile    = "server.log"
	VerboseLogFile = "server-verbose.log"
)

// RPC listener defaults
const (
	DefaultPort = 8181
	ListenHost  = "0.0.0.0"
)

// Directory layout under the resolved data directory: "<data-dir>/marvin_light_control/...".
const (
	AppDirName      = "marvin_light_control"
	ProjectsDirName = "projects"
	LibraryDirName  = "library"
	LibraryFileName = "ofl.json"
)

// Project file extensions, in codec-probe order.
const (
	ExtJSON = "json"
	ExtBSON = "mbp"
)

// Universe and fixture addressing bounds.
const (
	UniverseSize   = 512
	MinAddress     = 1
	MaxAddress     = 512
	FirstUniverse  = 1
	BroadcastDepth = 32
)

// Endpoint speed cadences, in milliseconds.
const (
	SpeedSlowMs   = 200
	SpeedMediumMs = 100
	SpeedFastMs   = 30
	SpeedUltraMs  = 5
)

// Timing constants for the lifecycle services.
const (
	ShutdownFlushDelay = 1 * time.Second
)
