package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigFile string
	LogLevel   string

	Logger zerolog.Logger
}

// NewRootCommand creates the root command for the recsv CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:   "recsv",
		Short: "Parse, check and re-dialect CSV streams",
		Long: `recsv reads CSV text under one dialect and writes it under another.

Dialects are configured with flags, RECSV_* environment variables or a config file
with "in" and "out" sections.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(opts.LogLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", opts.LogLevel, err)
			}
			opts.Logger = newLogger(cmd.ErrOrStderr(), level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file with in/out dialect sections")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewConvertCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}
