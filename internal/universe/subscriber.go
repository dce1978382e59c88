package universe

import (
	"context"

	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
)

// UniverseUpdateSubscriber wraps a raw broadcast channel with server-side filtering by
// universe id: updates for other universes are silently dropped, and a Many update is
// collapsed to the subset of its chunks addressing this universe. This keeps the runtime's
// hot path zero-copy and pushes selectivity to the subscriber.
type UniverseUpdateSubscriber struct {
	universe dmx.UniverseID
	ch       <-chan dmx.UniverseUpdate
	cancel   func()
}

// Recv blocks until an update touching this subscriber's universe arrives, the channel
// closes, or ctx is cancelled. The bool result is false once the subscription has ended.
func (s *UniverseUpdateSubscriber) Recv(ctx context.Context) (dmx.UniverseUpdate, bool) {
	for {
		select {
		case <-ctx.Done():
			return dmx.UniverseUpdate{}, false
		case update, ok := <-s.ch:
			if !ok {
				return dmx.UniverseUpdate{}, false
			}

			if filtered, ok := s.filter(update); ok {
				return filtered, true
			}
		}
	}
}

// filter reports whether update concerns this subscriber's universe, collapsing a Many to
// the retained subset of its chunks. The chunk slice is never mutated in place: it is
// shared with every other subscriber of the broadcast.
func (s *UniverseUpdateSubscriber) filter(update dmx.UniverseUpdate) (dmx.UniverseUpdate, bool) {
	switch update.Kind {
	case dmx.UpdateSingle:
		return update, update.Single.Address.Universe == s.universe

	case dmx.UpdateMany:
		var kept []dmx.UpdateChunk
		for _, c := range update.Many {
			if c.Address.Universe == s.universe {
				kept = append(kept, c)
			}
		}

		if len(kept) == 0 {
			return dmx.UniverseUpdate{}, false
		}

		update.Many = kept

		return update, true

	case dmx.UpdateEntire:
		return update, update.Universe == s.universe

	default:
		return dmx.UniverseUpdate{}, false
	}
}

// Close releases the underlying subscription.
func (s *UniverseUpdateSubscriber) Close() {
	s.cancel()
}
