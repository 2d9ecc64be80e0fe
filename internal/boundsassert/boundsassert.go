// Package boundsassert implements the supplemented
// inject_explicit_bounds pass: for every explicit
// Bound a function declares, emit an AssertStmt comparing the inferred
// min/extent against the user-declared ones before the loop nest
// begins, grounded on ScheduleFunctions.cpp's inject_explicit_bounds.
package boundsassert

import (
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// InferredBounds resolves the bounds-inference result for one of f's
// pure vars, the same external-collaborator role internal/loopnest's
// Bounds interface plays for the loop-nest builder.
type InferredBounds interface {
	Min(varName string) *ir.Expr
	Max(varName string) *ir.Expr
}

// Wrap prepends one AssertStmt per explicit Bound on f's schedule,
// checking that the declared [min, min+extent) covers the inferred
// [min, max] range (declared min <= inferred min and declared max >=
// inferred max), ahead of body.
func Wrap(f *schedule.Function, inferred InferredBounds, body *ir.Stmt) *ir.Stmt {
	stmt := body
	for i := len(f.Schedule.Bounds) - 1; i >= 0; i-- {
		b := f.Schedule.Bounds[i]
		inferredMin := inferred.Min(b.Var)
		inferredMax := inferred.Max(b.Var)
		declaredMax := ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, b.Min, b.Extent), ir.IntConst(1)))

		cond := ir.BinOp(ir.And,
			ir.BinOp(ir.LE, b.Min, inferredMin),
			ir.BinOp(ir.GE, declaredMax, inferredMax))
		msg := ir.CallExpr("error_explicit_bound_too_small", ir.CallIntrinsic, ir.Int32Type,
			ir.CallExpr(f.Name, ir.CallHalide, ir.Int32Type), ir.VarExpr(b.Var))
		stmt = ir.BlockStmt(ir.AssertStmtNode(cond, msg), stmt)
	}
	return stmt
}
