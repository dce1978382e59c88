package endpoints

import (
	"context"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

// UsbDriver writes DMX frames to a serial port at the configured cadence. One worker, and
// therefore one open port, exists per server process; a new binding closes the open port and
// opens the newly configured one.
type UsbDriver struct {
	mu        sync.Mutex
	lifecycle *lifecycle
	bindCh    chan usbBinding
	stop      chan struct{}
	done      chan struct{}
	log       logger.Logger
}

type usbBinding struct {
	sub   *universe.UniverseUpdateSubscriber
	port  string
	speed dmx.EndpointSpeed
}

// NewUsbDriver constructs an idle USB/serial driver.
func NewUsbDriver(log logger.Logger) *UsbDriver {
	return &UsbDriver{lifecycle: newLifecycle(), log: log.WithComponent("endpoint.usb")}
}

// StopAll is idempotent and waits for the worker, including the open serial port, to close.
func (d *UsbDriver) StopAll() {
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

// ApplyConfig lazily starts the worker, then hands it the port/cadence/subscriber to bind.
func (d *UsbDriver) ApplyConfig(sub *universe.UniverseUpdateSubscriber, port string, speed dmx.EndpointSpeed) {
	d.mu.Lock()
	if d.lifecycle.tryStart() {
		d.bindCh = make(chan usbBinding, 10)
		d.stop = make(chan struct{})
		d.done = make(chan struct{})
		go d.run()
	}
	bindCh := d.bindCh
	d.mu.Unlock()

	bindCh <- usbBinding{sub: sub, port: port, speed: speed}
}

func (d *UsbDriver) run() {
	d.lifecycle.markRunning()
	defer close(d.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stop
		cancel()
	}()

	var port serial.Port
	frame := &[512]byte{}
	updates := make(chan taggedUpdate, config.BroadcastDepth)
	var ticker *time.Ticker

	for {
		var tickC <-chan time.Time
		if ticker != nil {
			tickC = ticker.C
		}

		select {
		case b := <-d.bindCh:
			if port != nil {
				_ = port.Close()
				port = nil
			}

			opened, err := serial.Open(b.port, &serial.Mode{BaudRate: 250000})
			if err != nil {
				d.log.Error().Err(err).Str("port", b.port).Msg("failed to open USB DMX port")
				continue
			}
			port = opened

			if ticker != nil {
				ticker.Stop()
			}
			ticker = time.NewTicker(b.speed.Duration())

			go forwardUpdates(ctx, b.sub, 0, updates)

		case <-ctx.Done():
			if ticker != nil {
				ticker.Stop()
			}
			if port != nil {
				_ = port.Close()
			}
			return

		case tu := <-updates:
			applyToFrame(frame, tu.update)

		case <-tickC:
			if port == nil {
				continue
			}
			if _, err := port.Write(frame[:]); err != nil {
				d.log.Warn().Err(err).Msg("USB DMX write failed")
			}
		}
	}
}
