package dmx

import (
	"time"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
)

// EndpointKind discriminates EndpointConfig variants.
type EndpointKind int

const (
	EndpointLogger EndpointKind = iota
	EndpointArtNet
	EndpointSacn
	EndpointUsb
)

func (k EndpointKind) String() string {
	switch k {
	case EndpointLogger:
		return "logger"
	case EndpointArtNet:
		return "artnet"
	case EndpointSacn:
		return "sacn"
	case EndpointUsb:
		return "usb"
	default:
		return "unknown"
	}
}

// EndpointSpeed names the output cadence of a driver worker.
type EndpointSpeed struct {
	// Named is one of SpeedSlow/SpeedMedium/SpeedFast/SpeedUltra/SpeedCustom.
	Named string
	// CustomMs is the interval in milliseconds when Named == SpeedCustom.
	CustomMs int
}

const (
	SpeedSlow   = "slow"
	SpeedMedium = "medium"
	SpeedFast   = "fast"
	SpeedUltra  = "ultra"
	SpeedCustom = "custom"
)

// Slow, Medium, Fast, and Ultra are the named transmit cadences.
var (
	Slow   = EndpointSpeed{Named: SpeedSlow}
	Medium = EndpointSpeed{Named: SpeedMedium}
	Fast   = EndpointSpeed{Named: SpeedFast}
	Ultra  = EndpointSpeed{Named: SpeedUltra}
)

// Custom builds a custom-cadence speed at the given millisecond interval.
func Custom(ms int) EndpointSpeed {
	return EndpointSpeed{Named: SpeedCustom, CustomMs: ms}
}

// Duration resolves the cadence to a time.Duration.
func (s EndpointSpeed) Duration() time.Duration {
	switch s.Named {
	case SpeedSlow:
		return time.Duration(config.SpeedSlowMs) * time.Millisecond
	case SpeedMedium:
		return time.Duration(config.SpeedMediumMs) * time.Millisecond
	case SpeedFast:
		return time.Duration(config.SpeedFastMs) * time.Millisecond
	case SpeedUltra:
		return time.Duration(config.SpeedUltraMs) * time.Millisecond
	case SpeedCustom:
		return time.Duration(s.CustomMs) * time.Millisecond
	default:
		return time.Duration(config.SpeedMediumMs) * time.Millisecond
	}
}

// EndpointConfig is one configured output path from a universe to the wire.
type EndpointConfig struct {
	Kind EndpointKind

	// valid when Kind == EndpointSacn
	SacnUniverse uint16
	SacnSpeed    EndpointSpeed

	// valid when Kind == EndpointUsb
	UsbPort  string
	UsbSpeed EndpointSpeed
}

// LoggerEndpoint builds a logging-sink endpoint.
func LoggerEndpoint() EndpointConfig { return EndpointConfig{Kind: EndpointLogger} }

// ArtNetEndpoint builds an Art-Net endpoint.
func ArtNetEndpoint() EndpointConfig { return EndpointConfig{Kind: EndpointArtNet} }

// SacnEndpoint builds a sACN endpoint bound to the given wire universe and cadence.
func SacnEndpoint(universe uint16, speed EndpointSpeed) EndpointConfig {
	return EndpointConfig{Kind: EndpointSacn, SacnUniverse: universe, SacnSpeed: speed}
}

// UsbEndpoint builds a USB/serial endpoint on the given port at the given cadence.
func UsbEndpoint(port string, speed EndpointSpeed) EndpointConfig {
	return EndpointConfig{Kind: EndpointUsb, UsbPort: port, UsbSpeed: speed}
}

// EndpointMapping maps a project universe to the endpoints it fans out to.
type EndpointMapping map[UniverseID][]EndpointConfig
