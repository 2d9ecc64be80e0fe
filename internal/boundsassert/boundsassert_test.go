package boundsassert

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

type fixedBounds struct {
	min, max map[string]*ir.Expr
}

func (f fixedBounds) Min(v string) *ir.Expr { return f.min[v] }
func (f fixedBounds) Max(v string) *ir.Expr { return f.max[v] }

func TestWrapEmitsOneAssertPerExplicitBound(t *testing.T) {
	fn := schedule.NewFunction("f", []string{"x", "y"}, []*ir.Expr{ir.VarExpr("x")})
	fn.Schedule.Bounds = []schedule.Bound{
		{Var: "x", Min: ir.IntConst(0), Extent: ir.IntConst(10)},
		{Var: "y", Min: ir.IntConst(0), Extent: ir.IntConst(20)},
	}
	inferred := fixedBounds{
		min: map[string]*ir.Expr{"x": ir.IntConst(0), "y": ir.IntConst(0)},
		max: map[string]*ir.Expr{"x": ir.IntConst(9), "y": ir.IntConst(19)},
	}
	body := ir.EvaluateStmt(ir.IntConst(0))

	wrapped := Wrap(fn, inferred, body)

	count := 0
	ir.Walk(wrapped, ir.WalkHooks{Stmt: func(s *ir.Stmt) bool {
		if s.Kind == ir.StmtAssert {
			count++
		}
		return true
	}})
	if count != 2 {
		t.Fatalf("expected 2 asserts, got %d", count)
	}
}

func TestWrapNoBoundsIsNoop(t *testing.T) {
	fn := schedule.NewFunction("f", []string{"x"}, []*ir.Expr{ir.VarExpr("x")})
	body := ir.EvaluateStmt(ir.IntConst(0))
	if got := Wrap(fn, fixedBounds{}, body); got != body {
		t.Fatal("expected Wrap to return body unchanged when there are no explicit bounds")
	}
}

func TestWrapConditionComparesDeclaredAgainstInferred(t *testing.T) {
	fn := schedule.NewFunction("f", []string{"x"}, []*ir.Expr{ir.VarExpr("x")})
	fn.Schedule.Bounds = []schedule.Bound{
		{Var: "x", Min: ir.IntConst(2), Extent: ir.IntConst(8)},
	}
	inferred := fixedBounds{
		min: map[string]*ir.Expr{"x": ir.IntConst(2)},
		max: map[string]*ir.Expr{"x": ir.IntConst(9)},
	}
	body := ir.EvaluateStmt(ir.IntConst(0))
	wrapped := Wrap(fn, inferred, body)

	if wrapped.Kind != ir.StmtBlock || len(wrapped.Stmts) == 0 {
		t.Fatal("expected wrapped result to be a block containing the assert")
	}
	assert := wrapped.Stmts[0]
	if assert.Kind != ir.StmtAssert {
		t.Fatalf("expected first statement to be an assert, got kind %v", assert.Kind)
	}
	// declared [2, 2+8) = [2, 9] against inferred [2, 9]: the condition
	// must fold to true.
	if cond := ir.Simplify(assert.Cond); cond.Kind != ir.IntImm || cond.IntValue != 1 {
		t.Fatalf("expected declared [2, 9] to cover inferred [2, 9], got condition %v", assert.Cond)
	}
}
