// Package cli builds the command tree the server binary parses its arguments with.
package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/PixelboysTM/marvin-light-control/internal/config"
)

// CommandType discriminates which top-level action was selected.
type CommandType int

const (
	CommandServe CommandType = iota
	CommandVersion
)

// Options is the parsed result of a command-line invocation.
type Options struct {
	Type       CommandType
	ConfigPath string
	Port       int
	DataDir    string
}

// Parse parses args into Options. With no subcommand it selects serve; the --config, --port
// and --data-dir flags are recorded in Options for the caller to apply.
func Parse(args []string) (*Options, error) {
	result := &Options{Type: CommandServe}

	root := buildRootCommand(result)
	root.AddCommand(buildVersionCommand(result))
	root.SetArgs(args)

	if err := root.Execute(); err != nil {
		return nil, err
	}

	return result, nil
}

func buildRootCommand(result *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "mlc-server",
		Short:         "Marvin Light Control server",
		Long:          "mlc-server runs the stage-lighting DMX control server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result.Type = CommandServe
			return nil
		},
	}

	cmd.Flags().StringVar(&result.ConfigPath, "config", "", "path to a "+config.ConfigFile+" configuration file")
	cmd.Flags().IntVar(&result.Port, "port", 0, "override the RPC listener port")
	cmd.Flags().StringVar(&result.DataDir, "data-dir", "", "override the data directory")

	return cmd
}

// ApplyOverrides layers the --port/--data-dir flags on top of a loaded config. Overriding
// the data directory also moves the log files there, so nothing keeps writing into the
// default location.
func (o *Options) ApplyOverrides(cfg *config.Config) {
	if o.Port != 0 {
		cfg.Server.Port = o.Port
	}

	if o.DataDir != "" {
		cfg.DataDir = o.DataDir
		cfg.Logging.WarnLogPath = filepath.Join(o.DataDir, config.WarnLogFile)
		cfg.Logging.VerboseLogPath = filepath.Join(o.DataDir, config.VerboseLogFile)
	}
}

func buildVersionCommand(result *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result.Type = CommandVersion
			return nil
		},
	}
}
