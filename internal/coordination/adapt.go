package coordination

import (
	"context"
	"strings"
	"sync"

	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
)

// Scopes is a bitflag set over the parts of a project whose rebuild a subsystem cares about.
type Scopes uint8

const (
	ScopeNone      Scopes = 0
	ScopeUniverses Scopes = 1 << 0
	ScopeEndpoints Scopes = 1 << 1
	ScopeSettings  Scopes = 1 << 2
)

// ScopeAll is the union of every scope, used when a change invalidates the whole project view.
const ScopeAll = ScopeUniverses | ScopeEndpoints | ScopeSettings

func (s Scopes) String() string {
	if s == ScopeNone {
		return "none"
	}

	var parts []string
	if s&ScopeUniverses != 0 {
		parts = append(parts, "universes")
	}
	if s&ScopeEndpoints != 0 {
		parts = append(parts, "endpoints")
	}
	if s&ScopeSettings != 0 {
		parts = append(parts, "settings")
	}

	return strings.Join(parts, ",")
}

// Adapt is a broadcast cell of Scopes. Notify publishes a mask; Wait resolves on the next
// publication whose mask intersects the caller's listen set, skipping (and logging) any
// publication that doesn't.
type Adapt struct {
	mu      sync.Mutex
	mask    Scopes
	changed chan struct{}
	log     logger.Logger
}

// NewAdapt creates an adapt notifier.
func NewAdapt(log logger.Logger) *Adapt {
	return &Adapt{
		changed: make(chan struct{}),
		log:     log.WithComponent("adapt"),
	}
}

// Notify publishes scopes to every current and future waiter.
func (a *Adapt) Notify(scopes Scopes) {
	a.mu.Lock()
	a.mask = scopes
	ch := a.changed
	a.changed = make(chan struct{})
	a.mu.Unlock()

	close(ch)
}

// Wait blocks until a publication intersecting listen occurs, or ctx is cancelled.
func (a *Adapt) Wait(ctx context.Context, listen Scopes) error {
	for {
		a.mu.Lock()
		ch := a.changed
		a.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}

		a.mu.Lock()
		mask := a.mask
		a.mu.Unlock()

		if mask&listen != 0 {
			return nil
		}

		a.log.Info().Msgf("adapt publication %s did not intersect listen scopes %s, skipping", mask, listen)
	}
}
