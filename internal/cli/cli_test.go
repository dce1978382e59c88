package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
)

func Test_Parse_NoArgsDefaultsToServe(t *testing.T) {
	opts, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, CommandServe, opts.Type)
}

func Test_Parse_VersionSubcommand(t *testing.T) {
	opts, err := Parse([]string{"version"})
	require.NoError(t, err)
	assert.Equal(t, CommandVersion, opts.Type)
}

func Test_Parse_Flags(t *testing.T) {
	opts, err := Parse([]string{"--port", "9000", "--data-dir", "/tmp/mlc", "--config", "mlc.yaml"})
	require.NoError(t, err)
	assert.Equal(t, CommandServe, opts.Type)
	assert.Equal(t, 9000, opts.Port)
	assert.Equal(t, "/tmp/mlc", opts.DataDir)
	assert.Equal(t, "mlc.yaml", opts.ConfigPath)
}

func Test_Parse_UnknownSubcommandErrors(t *testing.T) {
	_, err := Parse([]string{"bogus"})
	assert.Error(t, err)
}

func Test_Options_ApplyOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := &Options{Port: 9191, DataDir: "/tmp/override"}

	opts.ApplyOverrides(cfg)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/tmp/override", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/override", config.WarnLogFile), cfg.Logging.WarnLogPath)
	assert.Equal(t, filepath.Join("/tmp/override", config.VerboseLogFile), cfg.Logging.VerboseLogPath)
}
