package validate

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func buildConsumerNest(parallelBetween bool) *ir.Stmt {
	call := ir.CallExpr("f", ir.CallHalide, ir.Int32Type, ir.VarExpr("x"), ir.VarExpr("y"))
	use := ir.ProvideStmt("g", []*ir.Expr{call}, []*ir.Expr{ir.VarExpr("x"), ir.VarExpr("y")})
	x := ir.ForStmt("x", ir.IntConst(0), ir.IntConst(10), schedule.Serial, ir.DeviceHost, use)
	midForType := schedule.Serial
	if parallelBetween {
		midForType = schedule.Parallel
	}
	xo := ir.ForStmt("xo", ir.IntConst(0), ir.IntConst(2), midForType, ir.DeviceHost, x)
	y := ir.ForStmt("y", ir.IntConst(0), ir.IntConst(10), schedule.Parallel, ir.DeviceHost, xo)
	return ir.ProducerConsumerStmt("g", y, nil, nil)
}

func TestValidateInlineAlwaysLegal(t *testing.T) {
	f := schedule.NewFunction("f", []string{"x", "y"}, []*ir.Expr{ir.VarExpr("x")})
	nest := buildConsumerNest(false)
	if err := Validate(f, nest); err != nil {
		t.Fatalf("expected inline schedule to be legal, got %v", err)
	}
}

func TestValidateOutputMustBeRoot(t *testing.T) {
	f := schedule.NewFunction("f", []string{"x"}, []*ir.Expr{ir.VarExpr("x")})
	f.IsOutput = true
	f.Schedule.StoreLevel = schedule.At("g", "x")
	f.Schedule.ComputeLevel = schedule.At("g", "x")
	nest := buildConsumerNest(false)
	if err := Validate(f, nest); err == nil {
		t.Fatal("expected error: output function not scheduled root")
	}
}

func TestValidateRejectsRaceAcrossParallelLoop(t *testing.T) {
	f := schedule.NewFunction("f", []string{"x", "y"}, []*ir.Expr{ir.VarExpr("x")})
	f.Schedule.StoreLevel = schedule.At("g", "xo")
	f.Schedule.ComputeLevel = schedule.At("g", "x")
	nest := buildConsumerNest(true)
	err := Validate(f, nest)
	if err == nil {
		t.Fatal("expected a race-condition error")
	}
	useErr, ok := err.(*UseSiteError)
	if !ok {
		t.Fatalf("expected *UseSiteError, got %T", err)
	}
	if useErr.Reason == "" {
		t.Fatal("expected a non-empty reason")
	}
}

func TestValidateAcceptsNonParallelBetweenStoreAndCompute(t *testing.T) {
	f := schedule.NewFunction("f", []string{"x", "y"}, []*ir.Expr{ir.VarExpr("x")})
	f.Schedule.StoreLevel = schedule.At("g", "xo")
	f.Schedule.ComputeLevel = schedule.At("g", "x")
	nest := buildConsumerNest(false)
	if err := Validate(f, nest); err != nil {
		t.Fatalf("expected legal placement, got %v", err)
	}
}

func TestCommonPrefix(t *testing.T) {
	a := Site{Loops: []LoopFrame{{Func: "g", Var: "y"}, {Func: "g", Var: "xo"}, {Func: "g", Var: "x"}}}
	b := Site{Loops: []LoopFrame{{Func: "g", Var: "y"}, {Func: "g", Var: "xo"}}}
	prefix := CommonPrefix([]Site{a, b})
	if len(prefix) != 2 {
		t.Fatalf("expected common prefix of length 2, got %d", len(prefix))
	}
}
