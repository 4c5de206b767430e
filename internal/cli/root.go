// Package cli holds the web-server commands.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/R3E-Network/model_layer/internal/config"
	"github.com/R3E-Network/model_layer/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// ValidFormats defines the allowed log formats.
var ValidFormats = []string{"json", "text"}

// NewRootCommand creates the web-server command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "web-server",
		Short: "Task service with cookie login and JSON-RPC",
		Long: `web-server exposes tasks over a JSON-RPC endpoint backed by Postgres.

Configuration comes from an optional YAML file, an optional .env file and
SERVICE_* environment variables, in that order.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.LogFormat != "" && !isValidFormat(opts.LogFormat) {
				return fmt.Errorf("invalid log format %q: must be one of %v", opts.LogFormat, ValidFormats)
			}
			return nil
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level, overrides config (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format, overrides config (json|text)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewDevInitCommand(opts))
	cmd.AddCommand(NewGenKeyCommand())
	cmd.AddCommand(NewCompletionCommand(cmd))

	return cmd
}

// load reads the configuration and applies the flag overrides.
func (o *RootOptions) load() (config.Config, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.LogFormat = o.LogFormat
	}
	return cfg, nil
}

func (o *RootOptions) logger(cfg config.Config) *logging.Logger {
	return logging.New("web-server", cfg.LogLevel, cfg.LogFormat)
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
