package cli

import (
	"fmt"
	"os"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/pipelinespec"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func loadPipeline(path string) (schedule.Env, []string, map[string]map[string]ir.Range, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open pipeline file: %w", err)
	}
	defer f.Close()

	env, outputs, domains, err := pipelinespec.Decode(f)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("decode pipeline: %w", err)
	}
	return env, outputs, domains, nil
}
