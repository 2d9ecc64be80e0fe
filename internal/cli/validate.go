package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/driver"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <pipeline.json>",
		Short: "Check a pipeline's schedules for use-site and race violations without printing IR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, outputs, _, err := loadPipeline(args[0])
			if err != nil {
				return err
			}

			d := driver.New(env, config.DefaultDriverConfig(), logger)
			if _, err := d.ScheduleFunctions(cmd.Context(), outputs, driver.NoBounds{}); err != nil {
				return fmt.Errorf("invalid schedule: %w", err)
			}

			fmt.Println("ok")
			return nil
		},
	}
}
