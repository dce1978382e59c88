// Package coordination implements the two process-wide broadcast primitives every other
// subsystem selects on: the phased shutdown coordinator and the scope-filtered adapt notifier.
package coordination

import (
	"context"
	"sync"

	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
)

// ShutdownPhase is a totally-ordered phase of server termination.
type ShutdownPhase int

const (
	PhaseNone ShutdownPhase = iota
	PhaseOne
	PhaseTwo
	PhaseDone
)

func (p ShutdownPhase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseOne:
		return "phase1"
	case PhaseTwo:
		return "phase2"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// Shutdown holds the current ShutdownPhase and a per-phase count of tasks currently
// blocked in Wait. Advancing past a phase is only permitted once its waiter count drops
// to zero, which is why the count is tied to the lifetime of the Wait call (incremented
// on entry, decremented via defer on return or cancellation) rather than to a separate
// register/unregister API that callers could forget to call.
type Shutdown struct {
	mu      sync.Mutex
	phase   ShutdownPhase
	waiters [4]int
	changed chan struct{}
	log     logger.Logger
}

// NewShutdown creates a shutdown coordinator starting at PhaseNone.
func NewShutdown(log logger.Logger) *Shutdown {
	return &Shutdown{
		changed: make(chan struct{}),
		log:     log.WithComponent("shutdown"),
	}
}

// Current returns the current phase.
func (s *Shutdown) Current() ShutdownPhase {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.phase
}

// Shutdown advances to PhaseOne if the coordinator is still at PhaseNone; otherwise it is
// a no-op, matching the at-most-once semantics of a shutdown request. The check and the
// advance happen under one lock so two racing requests can't push the phase past PhaseOne.
func (s *Shutdown) Shutdown() {
	s.mu.Lock()
	if s.phase != PhaseNone {
		s.mu.Unlock()
		return
	}
	next, ch := s.advanceLocked()
	s.mu.Unlock()

	close(ch)
	s.log.Info().Msgf("shutdown phase advanced to %s", next)
}

// Advance unconditionally moves the phase to the next higher value, clamped at PhaseDone,
// and wakes every Wait call whose target phase is now satisfied.
func (s *Shutdown) Advance() ShutdownPhase {
	s.mu.Lock()
	next, ch := s.advanceLocked()
	s.mu.Unlock()

	close(ch)
	s.log.Info().Msgf("shutdown phase advanced to %s", next)

	return next
}

// advanceLocked bumps the phase and swaps the broadcast channel; the caller must hold mu
// and close the returned channel after releasing it.
func (s *Shutdown) advanceLocked() (ShutdownPhase, chan struct{}) {
	if s.phase < PhaseDone {
		s.phase++
	}
	ch := s.changed
	s.changed = make(chan struct{})

	return s.phase, ch
}

// TryAdvance advances the phase by one step only if no task is currently waiting on the
// current phase, returning whether the advance happened.
func (s *Shutdown) TryAdvance() bool {
	s.mu.Lock()
	if s.phase >= PhaseDone {
		s.mu.Unlock()
		return false
	}

	if s.waiters[s.phase] != 0 {
		s.mu.Unlock()
		return false
	}

	next, ch := s.advanceLocked()
	s.mu.Unlock()

	close(ch)
	s.log.Info().Msgf("shutdown phase advanced to %s", next)

	return true
}

// Wait blocks until the current phase is at least phase, or ctx is cancelled first.
func (s *Shutdown) Wait(ctx context.Context, phase ShutdownPhase) error {
	s.mu.Lock()
	if s.phase >= phase {
		s.mu.Unlock()
		return nil
	}

	s.waiters[phase]++
	ch := s.changed
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.waiters[phase]--
		s.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}

		s.mu.Lock()
		if s.phase >= phase {
			s.mu.Unlock()
			return nil
		}
		ch = s.changed
		s.mu.Unlock()
	}
}
