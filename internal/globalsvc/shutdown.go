// Package globalsvc holds the two process-wide lifecycle loops that sit above the project
// object itself: the shutdown sequencer that is the only path past Phase-1, and the autosave
// loop that times saves off the active project's settings.
package globalsvc

import (
	"context"
	"time"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
)

// ShutdownService is the only code path that advances the shutdown phase past Phase-1: on
// Phase-1 it publishes Info::Shutdown, saves the active project if save_on_quit is set, gives
// subscribers a moment to observe the Info before the RPC boundary tears down, then drives the
// phase to Done.
type ShutdownService struct {
	service  *service.Service
	shutdown *coordination.Shutdown
	log      logger.Logger
}

// NewShutdownService constructs the shutdown sequencer.
func NewShutdownService(svc *service.Service, shutdown *coordination.Shutdown, log logger.Logger) *ShutdownService {
	return &ShutdownService{service: svc, shutdown: shutdown, log: log.WithComponent("shutdown-service")}
}

// Run blocks until Phase-1 is reached, then carries the phase through to Done.
func (s *ShutdownService) Run(ctx context.Context) {
	if err := s.shutdown.Wait(ctx, coordination.PhaseOne); err != nil {
		return
	}

	s.log.Info().Msg("phase1 reached, beginning shutdown sequence")
	s.service.Info().Publish(service.ShutdownInfo())

	if s.service.Valid() && s.service.GetSettings().SaveOnQuit {
		if _, err := s.service.Save(); err != nil {
			s.log.Error().Err(err).Msg("save on quit failed")
		}
	}

	time.Sleep(config.ShutdownFlushDelay)

	s.shutdown.Advance() // Phase-1 -> Phase-2
	s.shutdown.Advance() // Phase-2 -> Done

	s.log.Info().Msg("shutdown sequence complete")
}
