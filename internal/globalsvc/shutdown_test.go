package globalsvc

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
	"github.com/PixelboysTM/marvin-light-control/internal/config/logger"
	"github.com/PixelboysTM/marvin-light-control/internal/coordination"
	"github.com/PixelboysTM/marvin-light-control/internal/service"
)

func testLogger() logger.Logger {
	return logger.NewLoggerWithOutput(config.DefaultConfig(), io.Discard)
}

func newTestService(t *testing.T) *service.Service {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	return service.NewService(cfg, testLogger())
}

func Test_ShutdownService_AdvancesToDoneOnPhase1(t *testing.T) {
	svc := newTestService(t)
	sd := coordination.NewShutdown(testLogger())

	s := NewShutdownService(svc, sd, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	sd.Shutdown()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown service did not reach done")
	}

	assert.Equal(t, coordination.PhaseDone, sd.Current())
}

func Test_ShutdownService_PublishesShutdownInfo(t *testing.T) {
	svc := newTestService(t)
	sd := coordination.NewShutdown(testLogger())

	s := NewShutdownService(svc, sd, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := svc.Info().Subscribe()
	_, _ = sub.Recv(ctx) // drain idle

	go s.Run(ctx)
	sd.Shutdown()

	info, ok := sub.Recv(ctx)
	require.True(t, ok)
	assert.Equal(t, service.InfoShutdown, info.Kind)
}

func Test_ShutdownService_SavesOnQuitWhenConfigured(t *testing.T) {
	svc := newTestService(t)
	sd := coordination.NewShutdown(testLogger())

	ident, err := svc.Create("Rig", service.ProjectJSON)
	require.NoError(t, err)
	_, err = svc.Open(ident)
	require.NoError(t, err)

	svc.WithProject(func(p *service.Project) { p.Settings.SaveOnQuit = true })

	s := NewShutdownService(svc, sd, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	sd.Shutdown()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("shutdown service did not reach done")
	}

	_, stillThere, err := svc.Store().Open(ident)
	require.NoError(t, err)
	require.True(t, stillThere)
}

func Test_Module(t *testing.T) {
	assert.NotNil(t, Module)
}
