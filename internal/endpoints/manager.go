package endpoints

import (
	"context"

	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

// MappingView is the minimal view into the active project's endpoint configuration the
// manager needs; the service package's Service satisfies this.
type MappingView interface {
	EndpointMapping() dmx.EndpointMapping
}

// driverCollection holds one worker per protocol.
type driverCollection struct {
	log    *LogDriver
	artnet *ArtNetDriver
	sacn   *SacnDriver
	usb    *UsbDriver
}

func newDriverCollection(log logger.Logger) *driverCollection {
	return &driverCollection{
		log:    NewLogDriver(log),
		artnet: NewArtNetDriver(log),
		sacn:   NewSacnDriver(log),
		usb:    NewUsbDriver(log),
	}
}

func (d *driverCollection) stopAll() {
	for _, drv := range []Driver{d.log, d.artnet, d.sacn, d.usb} {
		drv.StopAll()
	}
}

func (d *driverCollection) applyConfig(universeID dmx.UniverseID, cfg dmx.EndpointConfig, runtime *universe.Runtime) {
	switch cfg.Kind {
	case dmx.EndpointLogger:
		d.log.ApplyConfig(runtime.SubscribeUniverse(universeID))
	case dmx.EndpointArtNet:
		d.artnet.ApplyConfig(runtime.SubscribeUniverse(universeID), uint16(universeID))
	case dmx.EndpointSacn:
		d.sacn.ApplyConfig(runtime.SubscribeUniverse(universeID), cfg.SacnUniverse, cfg.SacnSpeed)
	case dmx.EndpointUsb:
		d.usb.ApplyConfig(runtime.SubscribeUniverse(universeID), cfg.UsbPort, cfg.UsbSpeed)
	}
}

// Manager owns the endpoint manager loop: it installs every configured endpoint as a driver
// subscription, then waits for either Phase-1 shutdown or an ENDPOINTS adapt, re-running the
// whole install cycle on adapt.
type Manager struct {
	shutdown *coordination.Shutdown
	adapt    *coordination.Adapt
	mapping  MappingView
	runtime  *universe.Runtime
	log      logger.Logger
}

// NewManager constructs the endpoint manager.
func NewManager(shutdown *coordination.Shutdown, adapt *coordination.Adapt, mapping MappingView, runtime *universe.Runtime, log logger.Logger) *Manager {
	return &Manager{
		shutdown: shutdown,
		adapt:    adapt,
		mapping:  mapping,
		runtime:  runtime,
		log:      log.WithComponent("endpoints"),
	}
}

// Run installs the current endpoint mapping, then loops re-installing it on every ENDPOINTS
// adapt until Phase-1, at which point every driver is stopped before returning.
func (m *Manager) Run(ctx context.Context) {
	drivers := newDriverCollection(m.log)

	m.reconcile(drivers)

	phase1 := make(chan struct{})
	go func() {
		_ = m.shutdown.Wait(ctx, coordination.PhaseOne)
		close(phase1)
	}()

	adaptCh := make(chan struct{})
	go m.watchAdapt(ctx, adaptCh)

	for {
		select {
		case <-phase1:
			drivers.stopAll()
			m.log.Info().Msg("endpoint manager stopped on phase1")
			return
		case <-adaptCh:
			m.reconcile(drivers)
		}
	}
}

func (m *Manager) watchAdapt(ctx context.Context, notify chan<- struct{}) {
	for {
		if err := m.adapt.Wait(ctx, coordination.ScopeEndpoints); err != nil {
			return
		}

		select {
		case notify <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) reconcile(drivers *driverCollection) {
	drivers.stopAll()

	for universeID, configs := range m.mapping.EndpointMapping() {
		for _, cfg := range configs {
			drivers.applyConfig(universeID, cfg, m.runtime)
		}
	}
}
