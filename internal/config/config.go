package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/PixelboysTM/marvin-light-control/internal/apperrors"
)

// Config represents the application configuration. Fields carry both yaml and mapstructure
// tags: the file is YAML, but viper decodes it through mapstructure, which does not read
// yaml tags for multi-word keys like data_dir.
type Config struct {
	Server struct {
		Port int `yaml:"port" mapstructure:"port"`
	} `yaml:"server" mapstructure:"server"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`
	Logging struct {
		Level          string `yaml:"level" mapstructure:"level"`
		Format         string `yaml:"format" mapstructure:"format"`
		WarnLogPath    string `yaml:"warn_log_path" mapstructure:"warn_log_path"`
		VerboseLogPath string `yaml:"verbose_log_path" mapstructure:"verbose_log_path"`
	} `yaml:"logging" mapstructure:"logging"`
	Sentry struct {
		DSN string `yaml:"dsn" mapstructure:"dsn"`
	} `yaml:"sentry" mapstructure:"sentry"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Port = DefaultPort

	cfg.Logging.Level = LogLevel
	cfg.Logging.Format = LogFormat

	cfg.DataDir = defaultDataDir()

	// Log paths are left empty here and derived from the final DataDir in ApplyDefaults,
	// so a data_dir from the config file moves them along with everything else.

	return cfg
}

// defaultDataDir uses a platform config directory for "<data-dir>/marvin_light_control".
func defaultDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		base = "."
	}

	return filepath.Join(base, AppDirName)
}

// Load reads configuration from the given path (if it exists) through viper, fills defaults,
// and validates the result. Command-line flags are not applied here; the caller layers them
// on afterwards with cli.Options.ApplyOverrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MLC")
	v.AutomaticEnv()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: %w", apperrors.New("failed to read config file"), err)
			}
		} else {
			if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
				return nil, fmt.Errorf("%w: %w", apperrors.New("failed to parse config file"), err)
			}

			if err := v.Unmarshal(cfg); err != nil {
				return nil, fmt.Errorf("%w: %w", apperrors.New("failed to parse config file"), err)
			}
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.New("invalid configuration"), err)
	}

	return cfg, nil
}

// ApplyDefaults fills any zero-valued fields left after unmarshalling.
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}

	if c.Logging.Level == "" {
		c.Logging.Level = LogLevel
	}

	if c.Logging.Format == "" {
		c.Logging.Format = LogFormat
	}

	if c.DataDir == "" {
		c.DataDir = defaultDataDir()
	}

	if c.Logging.WarnLogPath == "" {
		c.Logging.WarnLogPath = filepath.Join(c.DataDir, WarnLogFile)
	}

	if c.Logging.VerboseLogPath == "" {
		c.Logging.VerboseLogPath = filepath.Join(c.DataDir, VerboseLogFile)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.New("server port must be between 1 and 65535")
	}

	if c.DataDir == "" {
		return apperrors.New("data directory must not be empty")
	}

	return nil
}

// ProjectsDir returns the directory projects are stored in.
func (c *Config) ProjectsDir() string {
	return filepath.Join(c.DataDir, ProjectsDirName)
}

// LibraryFile returns the path of the cached fixture library.
func (c *Config) LibraryFile() string {
	return filepath.Join(c.DataDir, LibraryDirName, LibraryFileName)
}
