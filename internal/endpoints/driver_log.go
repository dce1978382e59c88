package endpoints

import (
	"context"
	"fmt"
	"sync"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

// LogDriver has no cadence and no cache: it logs every update on arrival. The endpoint
// manager uses it for Logger endpoints only; Art-Net and USB endpoints go to ArtNetDriver
// and UsbDriver.
type LogDriver struct {
	mu        sync.Mutex
	lifecycle *lifecycle
	subCh     chan *universe.UniverseUpdateSubscriber
	stop      chan struct{}
	done      chan struct{}
	log       logger.Logger
}

// NewLogDriver constructs an idle log driver.
func NewLogDriver(log logger.Logger) *LogDriver {
	return &LogDriver{lifecycle: newLifecycle(), log: log.WithComponent("endpoint.log")}
}

// StopAll is idempotent and waits for the worker to fully exit before returning.
func (d *LogDriver) StopAll() {
	d.mu.Lock()
	if !d.lifecycle.tryStop() {
		d.mu.Unlock()
		return
	}
	stop, done := d.stop, d.done
	d.mu.Unlock()

	close(stop)
	<-done
	d.lifecycle.markStopped()
}

// ApplyConfig lazily starts the worker on first call, then hands it a new subscriber.
func (d *LogDriver) ApplyConfig(sub *universe.UniverseUpdateSubscriber) {
	d.mu.Lock()
	if d.lifecycle.tryStart() {
		d.subCh = make(chan *universe.UniverseUpdateSubscriber, 10)
		d.stop = make(chan struct{})
		d.done = make(chan struct{})
		go d.run()
	}
	subCh := d.subCh
	d.mu.Unlock()

	subCh <- sub
}

func (d *LogDriver) run() {
	d.lifecycle.markRunning()
	defer close(d.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stop
		cancel()
	}()

	updates := make(chan taggedUpdate, config.BroadcastDepth)

	for {
		select {
		case sub := <-d.subCh:
			go forwardUpdates(ctx, sub, 0, updates)
		case <-ctx.Done():
			return
		case tu := <-updates:
			d.log.Info().Msgf("endpoint log driver received %s", describeUpdate(tu.update))
		}
	}
}

func describeUpdate(u dmx.UniverseUpdate) string {
	switch u.Kind {
	case dmx.UpdateSingle:
		return fmt.Sprintf("single update %s=%d", u.Single.Address, u.Single.Value)
	case dmx.UpdateMany:
		return fmt.Sprintf("many update (%d slots)", len(u.Many))
	case dmx.UpdateEntire:
		return fmt.Sprintf("entire update for universe %d", u.Universe)
	default:
		return "unknown update"
	}
}
