package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
)

func Test_Module(t *testing.T) {
	assert.NotNil(t, Module)
}

func Test_Module_GraphIsValid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	err := fx.ValidateApp(
		fx.Supply(cfg),
		Module,
	)
	require.NoError(t, err)
}
