// Package cli implements drawctl, the offline organizer tool.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/gravadigital/drawnames-api/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	LogLevel string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for drawctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "drawctl",
		Short: "drawctl - offline Secret Santa draws",
		Long:  "Check and run gift-exchange draws from a YAML roster, without a server.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			logger.InitializeWithWriter(opts.LogLevel, cmd.ErrOrStderr())
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "warn", "log level for diagnostics on stderr")

	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewDrawCommand(opts))

	return cmd
}
