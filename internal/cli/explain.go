package cli

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/loopnest-sched/scheduler/internal/realizationorder"
)

func newExplainCmd() *cobra.Command {
	var dumpSchedules bool

	cmd := &cobra.Command{
		Use:   "explain <pipeline.json>",
		Short: "Print a pipeline's realization order, fused groups, and schedules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, outputs, _, err := loadPipeline(args[0])
			if err != nil {
				return err
			}

			order, err := realizationorder.Compute(outputs, env)
			if err != nil {
				return fmt.Errorf("compute realization order: %w", err)
			}

			fmt.Println("realization order:", order.Names)
			for i, g := range order.Groups {
				if len(g) > 1 {
					fmt.Printf("  fused group %d: %v (mutually recursive)\n", i, g)
				}
			}

			if dumpSchedules {
				for _, name := range order.Names {
					fmt.Printf("--- %s ---\n", name)
					spew.Dump(env[name].Schedule)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dumpSchedules, "schedules", false, "Also dump each function's full Schedule struct")
	return cmd
}
