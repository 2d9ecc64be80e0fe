package loopnest

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func TestBuildPointwiseNoSplits(t *testing.T) {
	sched := schedule.NewSchedule([]string{"x", "y"})
	in := Input{
		FuncName: "out",
		Prefix:   "out.s0.",
		Site:     []*ir.Expr{ir.VarExpr("x"), ir.VarExpr("y")},
		Values:   []*ir.Expr{ir.BinOp(ir.Add, ir.VarExpr("x"), ir.VarExpr("y"))},
		Sched:    sched,
		Bounds: MapBounds{
			"x": {ir.IntConst(0), ir.IntConst(99)},
			"y": {ir.IntConst(0), ir.IntConst(99)},
		},
	}
	nest := Build(in)

	forCount := 0
	provideFound := false
	ir.Walk(nest, ir.WalkHooks{Stmt: func(s *ir.Stmt) bool {
		if s.Kind == ir.StmtFor {
			forCount++
		}
		if s.Kind == ir.StmtProvide && s.FuncName == "out" {
			provideFound = true
		}
		return true
	}})
	if forCount != 3 {
		t.Fatalf("expected 3 for loops (x, y, outermost), got %d", forCount)
	}
	if !provideFound {
		t.Fatal("expected a Provide(out, ...) in the built nest")
	}
}

func TestBuildSplitIntroducesLoopBoundLets(t *testing.T) {
	sched := schedule.NewSchedule([]string{"x"})
	sched.Splits = []schedule.Split{
		{Kind: schedule.SplitVar, Old: "x", Outer: "xo", Inner: "xi", Factor: ir.IntConst(8)},
	}
	sched.Dims = []schedule.Dim{
		{Var: "xi", ForType: schedule.Serial, Pure: true},
		{Var: "xo", ForType: schedule.Serial, Pure: true},
		{Var: schedule.OutermostVar, ForType: schedule.Serial, Pure: true},
	}
	in := Input{
		FuncName: "f",
		Prefix:   "f.s0.",
		Site:     []*ir.Expr{ir.VarExpr("x")},
		Values:   []*ir.Expr{ir.VarExpr("x")},
		Sched:    sched,
		Bounds: MapBounds{
			"x": {ir.IntConst(0), ir.IntConst(63)},
		},
	}
	nest := Build(in)

	foundBaseLet := false
	ir.Walk(nest, ir.WalkHooks{Stmt: func(s *ir.Stmt) bool {
		if s.Kind == ir.StmtLetStmt && s.Name == "x.base" {
			foundBaseLet = true
		}
		return true
	}})
	if !foundBaseLet {
		t.Fatal("expected a let binding for the split base variable x.base")
	}
}

func TestExtentDividesFactor(t *testing.T) {
	if !extentDividesFactor(ir.IntConst(32), ir.IntConst(8)) {
		t.Fatal("expected 8 to divide 32 exactly")
	}
	if extentDividesFactor(ir.IntConst(30), ir.IntConst(8)) {
		t.Fatal("expected 8 to not divide 30 exactly")
	}
	if extentDividesFactor(ir.VarExpr("n"), ir.IntConst(8)) {
		t.Fatal("expected a symbolic extent to conservatively answer false")
	}
}
