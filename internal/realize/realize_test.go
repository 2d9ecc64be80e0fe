package realize

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/production"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func buildSurroundingNest(use *ir.Stmt) *ir.Stmt {
	inner := ir.ForStmt("x", ir.IntConst(0), ir.IntConst(10), schedule.Serial, ir.DeviceHost, use)
	return ir.ForStmt("y", ir.IntConst(0), ir.IntConst(10), schedule.Serial, ir.DeviceHost, inner)
}

func TestInjectRootFindsBothLevels(t *testing.T) {
	f := schedule.NewFunction("f", []string{"x", "y"}, []*ir.Expr{ir.VarExpr("x")})
	f.Schedule.StoreLevel = schedule.Root()
	f.Schedule.ComputeLevel = schedule.Root()

	call := ir.CallExpr("f", ir.CallHalide, ir.Int32Type, ir.VarExpr("x"), ir.VarExpr("y"))
	use := ir.ProvideStmt("out", []*ir.Expr{call}, []*ir.Expr{ir.VarExpr("x"), ir.VarExpr("y")})
	nest := buildSurroundingNest(use)
	root := ir.ForStmt("__root", ir.IntConst(0), ir.IntConst(1), schedule.Serial, ir.DeviceHost, nest)

	pair := production.Pair{Produce: ir.EvaluateStmt(ir.IntConst(0))}
	inj := &Injector{Func: f, Pair: pair}

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()

	got := inj.visit(root)
	_ = got
	if !inj.foundComputeLevel {
		t.Fatal("expected compute level to be found at root")
	}
	if !inj.foundStoreLevel {
		t.Fatal("expected store level to be found at root")
	}
}

func TestInjectPanicsWhenLevelNeverFound(t *testing.T) {
	f := schedule.NewFunction("f", []string{"x"}, []*ir.Expr{ir.VarExpr("x")})
	f.Schedule.StoreLevel = schedule.At("out", "xo")
	f.Schedule.ComputeLevel = schedule.At("out", "xo")

	use := ir.ProvideStmt("out", []*ir.Expr{ir.CallExpr("f", ir.CallHalide, ir.Int32Type, ir.VarExpr("x"))}, []*ir.Expr{ir.VarExpr("x")})
	nest := ir.ForStmt("x", ir.IntConst(0), ir.IntConst(10), schedule.Serial, ir.DeviceHost, use)

	pair := production.Pair{Produce: ir.EvaluateStmt(ir.IntConst(0))}
	inj := &Injector{Func: f, Pair: pair}

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic when compute/store level is never matched")
		}
	}()
	inj.Inject(nest)
}
