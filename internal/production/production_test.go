package production

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/loopnest"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func TestBuildPureFunctionHasNoUpdate(t *testing.T) {
	f := schedule.NewFunction("f", []string{"x"}, []*ir.Expr{ir.VarExpr("x")})
	bounds := loopnest.MapBounds{"x": {ir.IntConst(0), ir.IntConst(9)}}
	pair := Build(f, bounds)
	if pair.Produce == nil {
		t.Fatal("expected a produce nest")
	}
	if pair.Update != nil {
		t.Fatal("expected no update nest for a pure function")
	}
}

func TestBuildExternEmitsAssert(t *testing.T) {
	f := &schedule.Function{
		Name:       "ext",
		Args:       []string{"x"},
		IsExtern:   true,
		ExternName: "my_extern_fn",
	}
	pair := Build(f, loopnest.MapBounds{})
	found := false
	ir.Walk(pair.Produce, ir.WalkHooks{Stmt: func(s *ir.Stmt) bool {
		if s.Kind == ir.StmtAssert {
			found = true
		}
		return true
	}})
	if !found {
		t.Fatal("expected extern production to include an AssertStmt")
	}
}

func TestBuildWithUpdateProducesBlock(t *testing.T) {
	f := schedule.NewFunction("hist", []string{"x"}, []*ir.Expr{ir.IntConst(0)})
	f.Updates = []schedule.Definition{{
		Args:     []*ir.Expr{ir.VarExpr("r")},
		Values:   []*ir.Expr{ir.BinOp(ir.Add, ir.VarExpr("hist"), ir.IntConst(1))},
		Schedule: schedule.NewSchedule([]string{"r"}),
		Reduction: &schedule.ReductionDomain{
			Vars: []schedule.Bound{{Var: "r", Min: ir.IntConst(0), Extent: ir.IntConst(256)}},
		},
	}}
	bounds := loopnest.MapBounds{"x": {ir.IntConst(0), ir.IntConst(255)}}
	pair := Build(f, bounds)
	if pair.Update == nil {
		t.Fatal("expected a non-nil update nest")
	}
}
