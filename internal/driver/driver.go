// Package driver wires the scheduling core's components together into
// two top-level entry points: ScheduleFunctions (lower a pipeline's Env
// into a single IR statement realizing every output) and
// ScheduleAdvisor (run the auto-scheduler over an Env and mutate its
// schedules in place before lowering). Its driver loop iterates the
// realization order in reverse, validates each function, injects the
// realization of every function not scheduled inline, and finishes
// with the cleanup passes. Functions scheduled inline are skipped:
// their definitions are not substituted into their callers, so the
// lowered IR keeps the calls to them.
package driver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/loopnest-sched/scheduler/internal/boundsassert"
	"github.com/loopnest-sched/scheduler/internal/cleanup"
	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/logging"
	"github.com/loopnest-sched/scheduler/internal/loopnest"
	"github.com/loopnest-sched/scheduler/internal/partition"
	"github.com/loopnest-sched/scheduler/internal/production"
	"github.com/loopnest-sched/scheduler/internal/realize"
	"github.com/loopnest-sched/scheduler/internal/realizationorder"
	"github.com/loopnest-sched/scheduler/internal/schedule"
	"github.com/loopnest-sched/scheduler/internal/validate"
)

// Driver runs the scheduling core over a fixed Env and configuration.
type Driver struct {
	Env    schedule.Env
	Config config.DriverConfig
	Log    *slog.Logger
}

// New constructs a Driver, defaulting Log to logging.FromNilable(nil)
// when the caller doesn't care about observing it.
func New(env schedule.Env, cfg config.DriverConfig, log *slog.Logger) *Driver {
	return &Driver{Env: env, Config: cfg, Log: logging.FromNilable(log)}
}

// NoBounds is a realize.BoundsRegion/loopnest.Bounds/boundsassert.InferredBounds
// implementation that supplies no externally-inferred information,
// the default when a caller has not run a separate bounds-inference
// pass.
type NoBounds struct{}

func (NoBounds) Min(string) *ir.Expr      { return nil }
func (NoBounds) Max(string) *ir.Expr      { return nil }
func (NoBounds) Region(string) []ir.Range { return nil }

// ScheduleFunctions lowers every function named in outputs into a
// single IR statement realizing them, walking the realization order in
// reverse (deepest dependency innermost) and splicing each function's
// production in via the realization injector.
func (d *Driver) ScheduleFunctions(ctx context.Context, outputs []string, bounds interface {
	boundsassert.InferredBounds
	realize.BoundsRegion
	loopnest.Bounds
}) (*ir.Stmt, error) {
	if bounds == nil {
		bounds = NoBounds{}
	}
	order, err := realizationorder.Compute(outputs, d.Env)
	if err != nil {
		return nil, fmt.Errorf("driver: %w", err)
	}

	d.Log.InfoContext(ctx, "realization order computed", "order", order.Names, "groups", len(order.Groups))

	for _, name := range outputs {
		f, ok := d.Env[name]
		if !ok {
			return nil, fmt.Errorf("driver: undefined output function %q", name)
		}
		if err := validate.Validate(f, nil); err != nil {
			return nil, fmt.Errorf("driver: schedule validation failed for output %q: %w", name, err)
		}
	}

	root := ir.ForStmt(schedule.OutermostVar, ir.IntConst(0), ir.IntConst(1), ir.Serial, ir.DeviceHost,
		d.buildOutputsBody(outputs))

	stmt := root
	for i := len(order.Names) - 1; i >= 0; i-- {
		name := order.Names[i]
		f, ok := d.Env[name]
		if !ok {
			return nil, fmt.Errorf("driver: undefined function %q in realization order", name)
		}
		if isOutputOf(outputs, name) {
			continue
		}
		if err := validate.Validate(f, stmt); err != nil {
			return nil, fmt.Errorf("driver: schedule validation failed for %q: %w", name, err)
		}
		if f.Schedule.StoreLevel.IsInline() && f.Schedule.ComputeLevel.IsInline() {
			d.Log.DebugContext(ctx, "inlining function (no realize/produce node spliced)", "func", name)
			continue
		}
		pair := production.Build(f, bounds)
		if d.Config.InjectExplicitBoundsAsserts {
			pair.Produce = boundsassert.Wrap(f, bounds, pair.Produce)
		}
		inj := &realize.Injector{Func: f, Pair: pair, Bounds: bounds, InjectAsserts: d.Config.InjectExplicitBoundsAsserts}
		stmt, err = injectRecovered(inj, stmt)
		if err != nil {
			return nil, fmt.Errorf("driver: %w", err)
		}
		d.Log.DebugContext(ctx, "injected realization", "func", name)
	}

	stmt = cleanup.PropagateDevice(stmt)
	stmt = cleanup.StripOutermost(stmt)
	return stmt, nil
}

// buildOutputsBody realizes every output function's own production
// directly (outputs are always compute_root/store_root, so they need
// no injector pass to find their level — they ARE the root).
func (d *Driver) buildOutputsBody(outputs []string) *ir.Stmt {
	var stmts []*ir.Stmt
	for _, name := range outputs {
		f, ok := d.Env[name]
		if !ok {
			continue
		}
		pair := production.Build(f, NoBounds{})
		stmts = append(stmts, pair.Produce)
		if pair.Update != nil {
			stmts = append(stmts, pair.Update)
		}
	}
	return ir.BlockStmt(stmts...)
}

// injectRecovered runs inj.Inject and recovers a *realize.InternalError
// panic, returning it as a normal error so ScheduleFunctions never lets
// one escape the package. Any other panic is a bug outside the
// documented invariant-violation contract and is left to propagate.
func injectRecovered(inj *realize.Injector, stmt *ir.Stmt) (out *ir.Stmt, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ierr, ok := r.(*realize.InternalError); ok {
				err = ierr
				return
			}
			panic(r)
		}
	}()
	return inj.Inject(stmt), nil
}

func isOutputOf(outputs []string, name string) bool {
	for _, o := range outputs {
		if o == name {
			return true
		}
	}
	return false
}

// ScheduleAdvisor runs the auto-scheduler's partitioner over d.Env and
// applies its winning schedule to the Env in place. domains supplies each function's default argument
// range, the oracle the partitioner's cost model needs and which this
// module does not infer on its own (a documented Non-goal).
func (d *Driver) ScheduleAdvisor(ctx context.Context, outputs []string, domains map[string]map[string]ir.Range, cfg config.AutoSchedulerConfig) error {
	order, err := realizationorder.Compute(outputs, d.Env)
	if err != nil {
		return fmt.Errorf("driver: %w", err)
	}
	if cfg.RootDefault {
		for _, f := range d.Env {
			f.Schedule.StoreLevel = schedule.Root()
			f.Schedule.ComputeLevel = schedule.Root()
		}
	}

	p := partition.NewPartitioner(d.Env, order.Names, domains, cfg.Machine)
	groups, opts := p.Run()
	partition.EmitSchedules(groups, opts, d.Env, cfg.Machine, cfg.AutoVec)

	d.Log.InfoContext(ctx, "auto-scheduler finished", "groups", len(groups))
	return nil
}
