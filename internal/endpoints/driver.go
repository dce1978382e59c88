// Package endpoints drives the configured DMX output paths: one worker per protocol,
// lazily started on first configuration and torn down on stop_all/shutdown.
package endpoints

import (
	"context"

	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
	"github.com/PixelboysTM/marvin-light-control/internal/universe"
)

// Driver is the part of every protocol worker's contract that the manager needs uniformly;
// ApplyConfig is protocol-specific so it is not part of this interface.
type Driver interface {
	StopAll()
}

// taggedUpdate pairs an update with the wire-facing key a driver uses to find its cache
// slot; sACN uses the configured wire universe number, the others the dmx.UniverseID.
type taggedUpdate struct {
	key    uint16
	update dmx.UniverseUpdate
}

// applyToFrame mutates a 512-byte cache in place according to update's kind. The
// subscriber has already filtered the update down to this cache's universe, so only the
// chunk addresses matter here.
func applyToFrame(frame *[512]byte, update dmx.UniverseUpdate) {
	switch update.Kind {
	case dmx.UpdateSingle:
		applyChunkToFrame(frame, update.Single)
	case dmx.UpdateMany:
		for _, c := range update.Many {
			applyChunkToFrame(frame, c)
		}
	case dmx.UpdateEntire:
		for i := 0; i < len(frame); i++ {
			v, ok := update.Entire.Slot(dmx.Address(i + 1))
			if !ok {
				break
			}
			frame[i] = v
		}
	}
}

func applyChunkToFrame(frame *[512]byte, c dmx.UpdateChunk) {
	if a := c.Address.Address; a >= 1 && int(a) <= len(frame) {
		frame[a-1] = c.Value
	}
}

// forwardUpdates pumps every update from sub onto out, tagged with key, until ctx is done
// or the subscription ends: one goroutine per subscriber, one shared destination. The
// subscription is released on exit, so a stopped worker's subscribers don't linger in the
// runtime's fanout.
func forwardUpdates(ctx context.Context, sub *universe.UniverseUpdateSubscriber, key uint16, out chan<- taggedUpdate) {
	defer sub.Close()

	for {
		update, ok := sub.Recv(ctx)
		if !ok {
			return
		}

		select {
		case out <- taggedUpdate{key: key, update: update}:
		case <-ctx.Done():
			return
		}
	}
}
