// Package universe implements the authoritative per-universe DMX state: a command queue
// in, a broadcast fanout out, and universe-filtered subscriber wrappers for RPC callers
// and endpoint drivers alike.
package universe

import (
	"context"
	"sync"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/dmx"
)

// ProjectView is the minimal view into the active project the runtime needs to size itself
// at construction and resize itself on an adapt; the service package's Service satisfies this.
type ProjectView interface {
	UniverseCount() int
}

// Runtime owns the authoritative DMX arrays for every configured universe. A *Runtime is
// cheap to share: every method is safe for concurrent use, so handing out the same pointer
// to RPC handlers and driver workers plays the role of a cheaply cloneable controller handle.
type Runtime struct {
	mu        sync.RWMutex
	universes []dmx.Universe

	cmd chan dmx.RuntimeCommand

	subMu     sync.Mutex
	subs      map[int]chan dmx.UniverseUpdate
	nextSubID int

	shutdown *coordination.Shutdown
	adapt    *coordination.Adapt
	project  ProjectView
	log      logger.Logger
}

// NewRuntime creates a runtime with one empty universe per universe the project currently
// configures, and at least one (the default stub project's single universe).
func NewRuntime(shutdown *coordination.Shutdown, adapt *coordination.Adapt, project ProjectView, log logger.Logger) *Runtime {
	n := project.UniverseCount()
	if n < 1 {
		n = 1
	}

	return &Runtime{
		universes: make([]dmx.Universe, n),
		cmd:       make(chan dmx.RuntimeCommand, 64),
		subs:      make(map[int]chan dmx.UniverseUpdate),
		shutdown:  shutdown,
		adapt:     adapt,
		project:   project,
		log:       log.WithComponent("universe"),
	}
}

// Cmd submits a command for fire-and-forget processing by Run.
func (r *Runtime) Cmd(cmd dmx.RuntimeCommand) {
	r.cmd <- cmd
}

// Subscribe returns a new broadcast channel and triggers a ResendUniverses so the new
// subscriber (and every other current subscriber) observes an Entire snapshot of every
// universe without a dedicated snapshot protocol. The returned cancel func must be called
// exactly once to release the subscription.
func (r *Runtime) Subscribe() (<-chan dmx.UniverseUpdate, func()) {
	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	ch := make(chan dmx.UniverseUpdate, config.BroadcastDepth)
	r.subs[id] = ch
	r.subMu.Unlock()

	r.Cmd(dmx.ResendUniversesCommand())

	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()

		if sub, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(sub)
		}
	}

	return ch, cancel
}

// SubscribeUniverse wraps Subscribe with server-side filtering for a single universe.
func (r *Runtime) SubscribeUniverse(id dmx.UniverseID) *UniverseUpdateSubscriber {
	ch, cancel := r.Subscribe()

	return &UniverseUpdateSubscriber{
		universe: id,
		ch:       ch,
		cancel:   cancel,
	}
}

// UniverseCount returns the number of configured universes, 1-indexed to subscribers.
func (r *Runtime) UniverseCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.universes)
}

// Snapshot returns a copy of the current array for universe u, and whether u is in range.
func (r *Runtime) Snapshot(u dmx.UniverseID) (dmx.Universe, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := int(u) - 1
	if idx < 0 || idx >= len(r.universes) {
		return dmx.Universe{}, false
	}

	return r.universes[idx].Copy(), true
}

// Run is the runtime's main loop: select on Phase-1 shutdown, a UNIVERSES adapt, and the
// command queue, until Phase-1 is reached.
func (r *Runtime) Run(ctx context.Context) {
	phase1 := make(chan struct{})
	go func() {
		_ = r.shutdown.Wait(ctx, coordination.PhaseOne)
		close(phase1)
	}()

	adaptCh := make(chan struct{})
	go r.watchAdapt(ctx, adaptCh)

	for {
		select {
		case <-phase1:
			r.log.Info().Msg("universe runtime stopping on phase1")
			return
		case <-adaptCh:
			r.handleUniversesAdapt()
		case cmd := <-r.cmd:
			r.handleCommand(cmd)
		}
	}
}

func (r *Runtime) watchAdapt(ctx context.Context, notify chan<- struct{}) {
	for {
		if err := r.adapt.Wait(ctx, coordination.ScopeUniverses); err != nil {
			return
		}

		select {
		case notify <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runtime) handleCommand(cmd dmx.RuntimeCommand) {
	switch cmd.Kind {
	case dmx.CommandResendUniverses:
		r.resendAll()
	case dmx.CommandResendUniverse:
		r.resendOne(cmd.ResendUniverse)
	case dmx.CommandUpdateData:
		r.applyAndPublish(cmd.Update)
	}
}

func (r *Runtime) resendAll() {
	r.mu.RLock()
	n := len(r.universes)
	snapshots := make([]dmx.Universe, n)
	for i := range r.universes {
		snapshots[i] = r.universes[i].Copy()
	}
	r.mu.RUnlock()

	for i, snap := range snapshots {
		r.publish(dmx.EntireUpdate(dmx.UniverseID(i+1), snap))
	}
}

func (r *Runtime) resendOne(u dmx.UniverseID) {
	snap, ok := r.Snapshot(u)
	if !ok {
		r.log.Error().Msgf("resend requested for out-of-range universe %d", u)
		return
	}

	r.publish(dmx.EntireUpdate(u, snap))
}

// applyAndPublish mutates the owned arrays according to the update shape, then publishes
// the same value unchanged. Chunks addressing a universe that is not configured are
// skipped; the update is still published, and subscribers filter what they care about.
func (r *Runtime) applyAndPublish(update dmx.UniverseUpdate) {
	r.mu.Lock()
	switch update.Kind {
	case dmx.UpdateSingle:
		r.applyChunk(update.Single)
	case dmx.UpdateMany:
		for _, c := range update.Many {
			r.applyChunk(c)
		}
	case dmx.UpdateEntire:
		if idx := int(update.Universe) - 1; idx >= 0 && idx < len(r.universes) {
			r.universes[idx] = update.Entire
		}
	}
	r.mu.Unlock()

	r.publish(update)
}

// applyChunk writes one chunk into its own universe's array; the caller holds mu.
func (r *Runtime) applyChunk(c dmx.UpdateChunk) {
	idx := int(c.Address.Universe) - 1
	if idx < 0 || idx >= len(r.universes) {
		return
	}

	r.universes[idx].SetSlot(c.Address.Address, c.Value)
}

// handleUniversesAdapt resizes the universes slice to the current project's universe
// count, zeroes every slot, and republishes an Entire per universe so downstream driver
// caches re-sync before any subsequent Single/Many belonging to the new configuration.
func (r *Runtime) handleUniversesAdapt() {
	n := r.project.UniverseCount()
	if n < 1 {
		n = 1
	}

	r.mu.Lock()
	r.universes = make([]dmx.Universe, n)
	snapshots := make([]dmx.Universe, n)
	r.mu.Unlock()

	for i := 1; i <= n; i++ {
		r.publish(dmx.EntireUpdate(dmx.UniverseID(i), snapshots[i-1]))
	}

	r.log.Info().Msgf("universes adapted, now tracking %d universe(s)", n)
}

func (r *Runtime) publish(update dmx.UniverseUpdate) {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	for id, ch := range r.subs {
		select {
		case ch <- update:
		default:
			r.log.Warn().Msgf("subscriber %d lagged, dropping update", id)
		}
	}
}
