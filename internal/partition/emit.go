package partition

import (
	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// CanParallelizeRVar decides whether an update's reduction variable
// may run in parallel. A reduction commutes across parallel execution
// only when it has no cross-iteration ordering dependency; since this
// module has no associativity analysis of its own, it conservatively
// allows parallelism only for reductions with no predicate (a
// predicated reduction may encode an ordering-sensitive scan).
func CanParallelizeRVar(r *schedule.ReductionDomain) bool {
	return r == nil || r.Predicate == nil
}

// EmitSchedules applies the FAST_MEM grouping result back onto env:
// split+reorder each group's output for its chosen tile size, pick a
// parallel dim, vectorize when safe, and propagate store/compute
// levels to non-inlined group members.
func EmitSchedules(groups map[string]*Group, opts map[string]*Option, env schedule.Env, m config.MachineParams, autoVec bool) {
	for outputName, g := range groups {
		out, ok := env[outputName]
		if !ok {
			continue
		}
		tileVar := chooseTileVar(out, opts, outputName)
		parallelDim := chooseParallelDim(out, m)
		if parallelDim >= 0 {
			out.Schedule.Dims[parallelDim].ForType = schedule.Parallel
		}
		if autoVec && !out.IsExtern {
			vectorizeInnermost(out, m)
		}
		for _, member := range g.Members {
			if member == outputName {
				continue
			}
			f, ok := env[member]
			if !ok || f.Schedule.StoreLevel.IsInline() {
				continue
			}
			f.Schedule.StoreLevel = schedule.At(outputName, tileVar)
			f.Schedule.ComputeLevel = schedule.At(outputName, tileVar)
			if autoVec {
				vectorizeInnermost(f, m)
			}
		}
		parallelizeUpdates(out, m)
	}
}

// chooseTileVar applies the group's winning FAST_MEM Option (if any)
// to out: splits out's last argument by the chosen tile width, hoists
// the new outer dim to the outermost real position of the nest so
// non-output members can compute_at it once per tile rather than once
// per inner iteration of an unrelated dim, and returns the outer var's
// name. With no recorded option it falls back to the output's
// outermost real dim (the one just inside the trailing __outermost
// sentinel), the old inlined-group behavior.
func chooseTileVar(out *schedule.Function, opts map[string]*Option, outputName string) string {
	if opt, ok := opts[outputName]; ok && len(opt.TileSizes) > 0 {
		if v := splitAndTile(out, opt.TileSizes[0]); v != "" {
			return v
		}
	}
	if n := len(out.Schedule.Dims); n > 1 {
		return out.Schedule.Dims[n-2].Var
	}
	return schedule.OutermostVar
}

// splitAndTile appends a SplitVar split of f's last argument by width
// and rewrites f.Schedule.Dims (stored innermost-first) so the produced
// outer dim sits just inside the trailing __outermost sentinel (its
// widest, outermost position) with the inner dim left where the
// original dim was. Returns the outer var's name, or "" if f has no
// args to tile.
func splitAndTile(f *schedule.Function, width int64) string {
	if len(f.Args) == 0 {
		return ""
	}
	v := f.Args[len(f.Args)-1]
	idx := f.Schedule.DimIndex(v)
	if idx < 0 {
		return ""
	}
	d := f.Schedule.Dims[idx]
	outer := v + ".tile_outer"
	inner := v + ".tile_inner"
	f.Schedule.Splits = append(f.Schedule.Splits, schedule.Split{
		Kind: schedule.SplitVar, Old: v, Outer: outer, Inner: inner, Factor: ir.IntConst(width),
	})
	outerDim := schedule.Dim{Var: outer, ForType: schedule.Serial, Device: d.Device, Pure: d.Pure}
	placed := false
	dims := make([]schedule.Dim, 0, len(f.Schedule.Dims)+1)
	for i, existing := range f.Schedule.Dims {
		if i == idx {
			dims = append(dims, schedule.Dim{Var: inner, ForType: d.ForType, Device: d.Device, Pure: d.Pure})
			continue
		}
		if existing.Var == schedule.OutermostVar && !placed {
			dims = append(dims, outerDim)
			placed = true
		}
		dims = append(dims, existing)
	}
	if !placed {
		dims = append(dims, outerDim)
	}
	f.Schedule.Dims = dims
	return outer
}

// chooseParallelDim prefers the outermost tiled dim whose extent
// exceeds machine parallelism. Extent is not known symbolically here, so this falls back to
// the outermost pure dim when no static extent check is possible,
// matching the "if none qualifies, fuse successive outer tiled dims"
// escape hatch by simply picking the outermost candidate.
func chooseParallelDim(f *schedule.Function, m config.MachineParams) int {
	for i := len(f.Schedule.Dims) - 1; i >= 0; i-- {
		if d := f.Schedule.Dims[i]; d.Pure && d.Var != schedule.OutermostVar {
			return i
		}
	}
	return -1
}

// vectorizeInnermost splits the innermost pure dim by the machine's
// vector width and marks the inner half Vectorized, after verifying
// every load in the value expressions has constant stride along it, a
// finite-difference check gating vectorization.
func vectorizeInnermost(f *schedule.Function, m config.MachineParams) {
	idx := -1
	for i := 0; i < len(f.Schedule.Dims); i++ {
		d := f.Schedule.Dims[i]
		if d.Pure && d.Var != schedule.OutermostVar {
			idx = i
			break
		}
	}
	if idx < 0 || m.VectorLength <= 1 {
		return
	}
	v := f.Schedule.Dims[idx].Var
	if !hasConstantStride(f.Values, v) {
		return
	}
	d := f.Schedule.Dims[idx]
	outer := v + ".vo"
	inner := v + ".vi"
	f.Schedule.Splits = append(f.Schedule.Splits, schedule.Split{
		Kind: schedule.SplitVar, Old: v, Outer: outer, Inner: inner, Factor: ir.IntConst(int64(m.VectorLength)),
	})
	dims := make([]schedule.Dim, 0, len(f.Schedule.Dims)+1)
	dims = append(dims, f.Schedule.Dims[:idx]...)
	dims = append(dims, schedule.Dim{Var: inner, ForType: schedule.Vectorized, Device: d.Device, Pure: d.Pure})
	dims = append(dims, schedule.Dim{Var: outer, ForType: d.ForType, Device: d.Device, Pure: d.Pure})
	dims = append(dims, f.Schedule.Dims[idx+1:]...)
	f.Schedule.Dims = dims
}

// hasConstantStride approximates FiniteDifference(e, v) == const by
// checking that v appears at most linearly (never inside a Mul with
// another non-constant, or inside Div/Mod) across every value
// expression's Call args.
func hasConstantStride(values []*ir.Expr, v string) bool {
	ok := true
	for _, val := range values {
		ir.WalkExpr(val, ir.WalkHooks{Expr: func(e *ir.Expr) bool {
			if e.Kind == ir.Call {
				for _, a := range e.Args {
					if !isAffineIn(a, v) {
						ok = false
					}
				}
			}
			return ok
		}})
	}
	return ok
}

func isAffineIn(e *ir.Expr, v string) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case ir.IntImm, ir.FloatImm:
		return true
	case ir.Var:
		return true
	case ir.Add, ir.Sub:
		return isAffineIn(e.A, v) && isAffineIn(e.B, v)
	case ir.Mul:
		return (e.A.IsConst() && isAffineIn(e.B, v)) || (e.B.IsConst() && isAffineIn(e.A, v))
	case ir.Div, ir.Mod:
		return !ir.ExprUsesVar(e.A, v) && !ir.ExprUsesVar(e.B, v)
	default:
		return !ir.ExprUsesVar(e, v)
	}
}

// parallelizeUpdates marks the outermost RVar dim of each update
// definition Parallel when its reduction permits it.
func parallelizeUpdates(f *schedule.Function, m config.MachineParams) {
	for i := range f.Updates {
		upd := &f.Updates[i]
		if upd.Reduction == nil || !CanParallelizeRVar(upd.Reduction) {
			continue
		}
		for j := len(upd.Schedule.Dims) - 1; j >= 0; j-- {
			if d := upd.Schedule.Dims[j]; !d.Pure && d.Var != schedule.OutermostVar {
				upd.Schedule.Dims[j].ForType = schedule.Parallel
				break
			}
		}
	}
}
