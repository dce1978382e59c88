package endpoints

import (
	"context"
	"sync"
	"time"

	"github.com/Hundemeier/go-sacn/sacn"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

// sacnBinding is one (subscriber, wire universe, cadence) triple handed to the worker.
type sacnBinding struct {
	sub   *universe.UniverseUpdateSubscriber
	wire  uint16
	speed dmx.EndpointSpeed
}

// SacnDriver emits to the network at a constant per-speed-bucket cadence independent of how
// fast the universe runtime publishes updates: the local cache is mutated continuously, the
// wire frame is only sent when that bucket's timer fires.
type SacnDriver struct {
	mu        sync.Mutex
	lifecycle *lifecycle
	bindCh    chan sacnBinding
	stop      chan struct{}
	done      chan struct{}
	log       logger.Logger
}

// NewSacnDriver constructs an idle sACN driver.
func NewSacnDriver(log logger.Logger) *SacnDriver {
	return &SacnDriver{lifecycle: newLifecycle(), log: log.WithComponent("endpoint.sacn")}
}

// StopAll is idempotent and waits for the worker, including the underlying sACN source, to
// fully shut down.
func (d *SacnDriver) StopAll() {
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

// ApplyConfig lazily starts the worker, then registers a new universe binding with it.
func (d *SacnDriver) ApplyConfig(sub *universe.UniverseUpdateSubscriber, wireUniverse uint16, speed dmx.EndpointSpeed) {
	d.mu.Lock()
	if d.lifecycle.tryStart() {
		d.bindCh = make(chan sacnBinding, 10)
		d.stop = make(chan struct{})
		d.done = make(chan struct{})
		go d.run()
	}
	bindCh := d.bindCh
	d.mu.Unlock()

	bindCh <- sacnBinding{sub: sub, wire: wireUniverse, speed: speed}
}

func (d *SacnDriver) run() {
	d.lifecycle.markRunning()
	defer close(d.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stop
		cancel()
	}()

	source, err := sacn.NewTransmitter("", [16]byte{}, "Marvin Light Control")
	if err != nil {
		d.log.Error().Err(err).Msg("failed to start sACN transmitter")
		return
	}

	cache := map[uint16]*[512]byte{}
	send := map[uint16]chan<- [512]byte{}
	buckets := map[string][]uint16{}
	tick := make(chan string)
	var tickers []*time.Ticker

	// Closing an activated channel is how the transmitter deactivates a universe and sends
	// its stream-termination packets.
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
		for _, ch := range send {
			close(ch)
		}
	}()

	startBucket := func(speed dmx.EndpointSpeed) {
		if _, ok := buckets[speed.Named]; ok {
			return
		}
		buckets[speed.Named] = nil

		ticker := time.NewTicker(speed.Duration())
		tickers = append(tickers, ticker)

		go func(key string, t *time.Ticker) {
			for {
				select {
				case <-t.C:
					select {
					case tick <- key:
					case <-ctx.Done():
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}(speed.Named, ticker)
	}

	updates := make(chan taggedUpdate, config.BroadcastDepth)

	for {
		select {
		case b := <-d.bindCh:
			frame := &[512]byte{}
			cache[b.wire] = frame

			ch, err := source.Activate(b.wire)
			if err != nil {
				d.log.Error().Err(err).Uint16("universe", b.wire).Msg("failed to activate sACN universe")
				continue
			}
			send[b.wire] = ch

			startBucket(b.speed)
			buckets[b.speed.Named] = append(buckets[b.speed.Named], b.wire)

			go forwardUpdates(ctx, b.sub, b.wire, updates)

		case <-ctx.Done():
			return

		case tu := <-updates:
			frame, ok := cache[tu.key]
			if !ok {
				continue
			}
			applyToFrame(frame, tu.update)

		case key := <-tick:
			for _, wire := range buckets[key] {
				frame, ok := cache[wire]
				if !ok {
					continue
				}
				ch, ok := send[wire]
				if !ok {
					continue
				}

				select {
				case ch <- *frame:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}
