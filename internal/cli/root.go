// Package cli implements the pipelinectl subcommand tree: a cobra root
// command with persistent log-level/format flags and one file per
// subcommand.
package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/loopnest-sched/scheduler/internal/logging"
)

var (
	flagLogLevel  string
	flagLogFormat string

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the pipelinectl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pipelinectl",
		Short: "pipelinectl — inspect and lower Halide-style pipeline schedules",
		Long:  "pipelinectl runs the scheduling core's auto-scheduler and lowering passes over a pipeline description.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.New(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newExplainCmd(),
		newValidateCmd(),
	)

	return root
}
