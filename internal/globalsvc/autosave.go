package globalsvc

import (
	"context"
	"time"

	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
)

// AutosaveService saves the active project on the cadence its own settings.autosave
// requests, recomputing the deadline whenever a SETTINGS adapt arrives.
type AutosaveService struct {
	service  *service.Service
	adapt    *coordination.Adapt
	shutdown *coordination.Shutdown
	log      logger.Logger
}

// NewAutosaveService constructs the autosave loop.
func NewAutosaveService(svc *service.Service, adapt *coordination.Adapt, shutdown *coordination.Shutdown, log logger.Logger) *AutosaveService {
	return &AutosaveService{service: svc, adapt: adapt, shutdown: shutdown, log: log.WithComponent("autosave")}
}

// Run selects on a SETTINGS adapt, Phase-1 shutdown, and the current autosave deadline until
// Phase-1 or ctx cancellation.
func (a *AutosaveService) Run(ctx context.Context) {
	phase1 := make(chan struct{})
	go func() {
		_ = a.shutdown.Wait(ctx, coordination.PhaseOne)
		close(phase1)
	}()

	settingsCh := make(chan struct{})
	go a.watchSettings(ctx, settingsCh)

	timer := time.NewTimer(a.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-phase1:
			return

		case <-settingsCh:
			stopTimer(timer)
			timer.Reset(a.nextDelay())

		case <-timer.C:
			a.trigger()
			stopTimer(timer)
			timer.Reset(a.nextDelay())
		}
	}
}

func (a *AutosaveService) watchSettings(ctx context.Context, notify chan<- struct{}) {
	for {
		if err := a.adapt.Wait(ctx, coordination.ScopeSettings); err != nil {
			return
		}

		select {
		case notify <- struct{}{}:
		case <-ctx.Done():
			return
		}
	}
}

// nextDelay derives the time until the next autosave from the active project's settings,
// pending forever (a day, re-evaluated on the next SETTINGS adapt) when no project is valid
// or no autosave interval is configured.
func (a *AutosaveService) nextDelay() time.Duration {
	if !a.service.Valid() {
		return 24 * time.Hour
	}

	settings := a.service.GetSettings()
	if settings.Autosave == nil {
		return 24 * time.Hour
	}

	return *settings.Autosave
}

func (a *AutosaveService) trigger() {
	saved, err := a.service.Save()
	if err != nil {
		a.log.Error().Err(err).Msg("autosave failed")
		return
	}

	if saved {
		a.service.Info().Publish(service.AutosavedInfo())
	}
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}
