package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/driver"
)

func newRunCmd() *cobra.Command {
	var autoSchedule bool

	cmd := &cobra.Command{
		Use:   "run <pipeline.json>",
		Short: "Lower a pipeline's outputs to IR and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, outputs, domains, err := loadPipeline(args[0])
			if err != nil {
				return err
			}

			sessionID := uuid.New().String()
			log := logger.With("session_id", sessionID)

			d := driver.New(env, config.DefaultDriverConfig(), log)
			ctx := context.Background()

			if autoSchedule {
				if err := d.ScheduleAdvisor(ctx, outputs, domains, config.DefaultAutoSchedulerConfig()); err != nil {
					return fmt.Errorf("auto-schedule: %w", err)
				}
			}

			stmt, err := d.ScheduleFunctions(ctx, outputs, driver.NoBounds{})
			if err != nil {
				return fmt.Errorf("schedule: %w", err)
			}

			fmt.Println(stmt.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoSchedule, "auto-schedule", false, "Run the auto-scheduler before lowering")
	return cmd
}
