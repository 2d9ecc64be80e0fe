// Package production composes a function's per-stage loop nests (built
// by internal/loopnest) into the (produce, update) pair the
// realization injector splices into a consumer's IR. This is component
// C of the scheduling core.
package production

import (
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/loopnest"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// Pair is the (produce, update) nest of one function, ready for the
// realization injector to wrap in a ProducerConsumer node.
type Pair struct {
	Produce  *ir.Stmt
	Update   *ir.Stmt
	Memoized bool
}

// Build constructs the Pair for f given externally supplied bounds.
func Build(f *schedule.Function, bounds loopnest.Bounds) Pair {
	if f.IsExtern {
		return buildExtern(f)
	}

	produce := loopnest.Build(loopnest.Input{
		FuncName: f.Name,
		Prefix:   f.StagePrefix(0),
		Site:     identitySite(f.Args),
		Values:   f.Values,
		Sched:    f.Schedule,
		Bounds:   bounds,
	})
	memoized := f.Schedule.Memoized

	var update *ir.Stmt
	for i, upd := range f.Updates {
		prefix := f.StagePrefix(i + 1)
		values := append([]*ir.Expr{}, upd.Values...)
		site := append([]*ir.Expr{}, upd.Args...)
		if upd.Reduction != nil {
			names := reductionVarNames(upd.Reduction)
			for j, v := range values {
				values[j] = ir.Qualify(v, prefix, names)
			}
			for j, a := range site {
				site[j] = ir.Qualify(a, prefix, names)
			}
		}
		stageNest := loopnest.Build(loopnest.Input{
			FuncName: f.Name,
			Prefix:   prefix,
			Site:     site,
			Values:   values,
			Sched:    upd.Schedule,
			IsUpdate: true,
			Bounds:   bounds,
		})
		if upd.Reduction != nil {
			stageNest = wrapReductionBounds(upd.Reduction, prefix, stageNest)
			if pred := upd.Reduction.Predicate; pred != nil {
				// Guard each innermost Provide, where the RVars the
				// predicate reads are bound by their loops.
				guard := &ir.Mutator{Stmt: map[ir.StmtKind]func(*ir.Stmt, *ir.Mutator) *ir.Stmt{
					ir.StmtProvide: func(n *ir.Stmt, _ *ir.Mutator) *ir.Stmt { return ir.IfThenElseStmt(pred, n, nil) },
				}}
				stageNest = guard.MutateStmt(stageNest)
			}
		}
		memoized = memoized || upd.Schedule.Memoized
		update = ir.BlockStmt(update, stageNest)
	}

	return Pair{Produce: produce, Update: update, Memoized: memoized}
}

func identitySite(args []string) []*ir.Expr {
	site := make([]*ir.Expr, len(args))
	for i, a := range args {
		site[i] = ir.VarExpr(a)
	}
	return site
}

func reductionVarNames(r *schedule.ReductionDomain) map[string]bool {
	names := map[string]bool{}
	for _, b := range r.Vars {
		names[b.Var] = true
	}
	return names
}

// wrapReductionBounds binds each RVar's loop_min/loop_max/loop_extent
// from its externally supplied min/max, matching
// ScheduleFunctions.cpp's handling of a definition's reduction domain.
func wrapReductionBounds(r *schedule.ReductionDomain, prefix string, body *ir.Stmt) *ir.Stmt {
	stmt := body
	for i := len(r.Vars) - 1; i >= 0; i-- {
		b := r.Vars[i]
		extent := ir.Simplify(b.Extent)
		stmt = ir.LetStmtNode(prefix+b.Var+".loop_min", b.Min, stmt)
		stmt = ir.LetStmtNode(prefix+b.Var+".loop_extent", extent, stmt)
		stmt = ir.LetStmtNode(prefix+b.Var+".loop_max", ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, b.Min, extent), ir.IntConst(1))), stmt)
	}
	return stmt
}

// buildExtern emits the extern-call production: a LetStmt binding the
// call result and an AssertStmt checking it is zero.
func buildExtern(f *schedule.Function) Pair {
	args := make([]*ir.Expr, 0, len(f.ExternArgs))
	for _, a := range f.ExternArgs {
		if a.Literal != nil {
			args = append(args, a.Literal)
			continue
		}
		args = append(args, ir.CallExpr(a.FuncName+".buffer", ir.CallHalide, ir.Int32Type))
	}
	resultName := f.Name + ".extern_result"
	call := ir.CallExpr(f.ExternName, ir.CallExtern, ir.Int32Type, args...)
	assertCond := ir.BinOp(ir.EQ, ir.VarExpr(resultName), ir.IntConst(0))
	errMsg := ir.CallExpr("error_extern_failed", ir.CallIntrinsic, ir.Int32Type, ir.VarExpr(resultName))
	body := ir.AssertStmtNode(assertCond, errMsg)
	produce := ir.LetStmtNode(resultName, call, body)
	return Pair{Produce: produce}
}
