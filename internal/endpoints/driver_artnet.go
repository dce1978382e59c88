package endpoints

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/bbernstein/lacylights-go/pkg/artnet"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

// ArtNetDriver broadcasts every bound universe at a fixed cadence over UDP, mirroring the
// adaptive-rate transmit loop's steady-state behaviour without the idle/high-rate split:
// one constant cadence per driver, not per-change bursts.
type ArtNetDriver struct {
	mu        sync.Mutex
	lifecycle *lifecycle
	subCh     chan artnetBinding
	stop      chan struct{}
	done      chan struct{}
	log       logger.Logger
}

type artnetBinding struct {
	sub  *universe.UniverseUpdateSubscriber
	wire uint16
}

const artnetCadence = 40 * time.Millisecond

// NewArtNetDriver constructs an idle Art-Net driver broadcasting to the LAN on the
// protocol's default port.
func NewArtNetDriver(log logger.Logger) *ArtNetDriver {
	return &ArtNetDriver{lifecycle: newLifecycle(), log: log.WithComponent("endpoint.artnet")}
}

// StopAll is idempotent and waits for the worker and its socket to close.
func (d *ArtNetDriver) StopAll() {
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

// ApplyConfig lazily starts the worker, then binds a new universe to it. wireUniverse is the
// Art-Net universe number the subscriber's DMX universe is broadcast under.
func (d *ArtNetDriver) ApplyConfig(sub *universe.UniverseUpdateSubscriber, wireUniverse uint16) {
	d.mu.Lock()
	if d.lifecycle.tryStart() {
		d.subCh = make(chan artnetBinding, 10)
		d.stop = make(chan struct{})
		d.done = make(chan struct{})
		go d.run()
	}
	subCh := d.subCh
	d.mu.Unlock()

	subCh <- artnetBinding{sub: sub, wire: wireUniverse}
}

func (d *ArtNetDriver) run() {
	d.lifecycle.markRunning()
	defer close(d.done)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-d.stop
		cancel()
	}()

	addr, err := net.ResolveUDPAddr("udp4", "255.255.255.255:"+strconv.Itoa(artnet.DefaultPort))
	if err != nil {
		d.log.Error().Err(err).Msg("failed to resolve Art-Net broadcast address")
		return
	}

	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		d.log.Error().Err(err).Msg("failed to open Art-Net broadcast socket")
		return
	}
	defer conn.Close()

	cache := map[uint16]*[512]byte{}
	updates := make(chan taggedUpdate, config.BroadcastDepth)
	ticker := time.NewTicker(artnetCadence)
	defer ticker.Stop()

	var sequence byte

	for {
		select {
		case b := <-d.subCh:
			frame := &[512]byte{}
			cache[b.wire] = frame
			go forwardUpdates(ctx, b.sub, b.wire, updates)

		case <-ctx.Done():
			return

		case tu := <-updates:
			frame, ok := cache[tu.key]
			if !ok {
				continue
			}
			applyToFrame(frame, tu.update)

		case <-ticker.C:
			for wire, frame := range cache {
				sequence++
				packet := artnet.BuildDMXPacket(int(wire), frame[:], sequence)
				if _, err := conn.Write(packet); err != nil {
					d.log.Warn().Err(err).Uint16("universe", wire).Msg("Art-Net send failed")
				}
			}
		}
	}
}
