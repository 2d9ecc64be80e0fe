// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command scheduleadvisor runs the auto-scheduler over a pipeline
// description and prints the lowered IR for its outputs.
//
// Usage:
//
//	scheduleadvisor -pipeline blur.json -parallelism 8 -fast-mem 262144
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/driver"
	"github.com/loopnest-sched/scheduler/internal/logging"
	"github.com/loopnest-sched/scheduler/internal/pipelinespec"
)

var (
	pipelinePath   = flag.String("pipeline", "", "Pipeline description JSON file (required)")
	parallelism    = flag.Int("parallelism", 8, "Machine parallelism (number of cores)")
	vectorLength   = flag.Int("vector-length", 8, "Machine vector width in elements")
	inlineFastMem  = flag.Int64("inline-fast-mem", 128, "Inline-level fast memory budget in bytes")
	fastMem        = flag.Int64("fast-mem", 256*1024, "Fast-mem-level cache budget in bytes")
	noAutoInline   = flag.Bool("no-auto-inline", false, "Set AutoInline=false (the partitioner does not read it and always runs its INLINE pass)")
	noAutoPar      = flag.Bool("no-auto-par", false, "Set AutoPar=false (schedule emission does not read it and always picks a parallel dim)")
	noAutoVec      = flag.Bool("no-auto-vec", false, "Disable automatic vectorization")
	logLevel       = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	logFormat      = flag.String("log-format", "text", "Log format (text, json)")
)

func main() {
	flag.Parse()

	if *pipelinePath == "" {
		fmt.Fprintf(os.Stderr, "Error: -pipeline flag is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	log := logging.New(logging.ParseLevel(*logLevel), *logFormat)

	f, err := os.Open(*pipelinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	env, outputs, domains, err := pipelinespec.Decode(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	machine := config.MachineParams{
		Parallelism:        *parallelism,
		VectorLength:       *vectorLength,
		InlineFastMemBytes: *inlineFastMem,
		FastMemBytes:       *fastMem,
		CostBalanceFastMem: config.DefaultMachineParams().CostBalanceFastMem,
		CostBalanceInline:  config.DefaultMachineParams().CostBalanceInline,
	}
	schedCfg := config.AutoSchedulerConfig{
		RootDefault: true,
		AutoInline:  !*noAutoInline,
		AutoPar:     !*noAutoPar,
		AutoVec:     !*noAutoVec,
		Machine:     machine,
	}

	d := driver.New(env, config.DefaultDriverConfig(), log)
	ctx := context.Background()

	if err := d.ScheduleAdvisor(ctx, outputs, domains, schedCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: auto-scheduling failed: %v\n", err)
		os.Exit(1)
	}

	stmt, err := d.ScheduleFunctions(ctx, outputs, driver.NoBounds{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: lowering failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(stmt.String())
}
