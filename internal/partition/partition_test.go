package partition

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/dependence"
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func TestBenefitRejectsOversizedIntermediate(t *testing.T) {
	got := Benefit(1000, 100, 5, 256, 10)
	if got != -1 {
		t.Fatalf("Benefit with I > 2F should reject, got %v", got)
	}
}

func TestBenefitFullyResident(t *testing.T) {
	got := Benefit(100, 50, 5, 256, 10)
	want := float64(50*10) - 5
	if got != want {
		t.Fatalf("Benefit(I<=F) = %v, want %v", got, want)
	}
}

func TestTooSmallToMergeInvertedGuard(t *testing.T) {
	m := config.DefaultMachineParams()
	if tooSmallToMerge(m.FastMemBytes+1, m) {
		t.Fatal("expected an output larger than fast memory to NOT be flagged too-small (documented inversion)")
	}
	if !tooSmallToMerge(m.FastMemBytes-1, m) {
		t.Fatal("expected an output smaller than fast memory to be flagged too-small (documented inversion)")
	}
}

func TestPartitionerMergesSingleConsumerChain(t *testing.T) {
	env := schedule.Env{}
	in := schedule.NewFunction("in", []string{"x"}, []*ir.Expr{ir.VarExpr("x")})
	f := schedule.NewFunction("f", []string{"x"}, []*ir.Expr{
		ir.CallExpr("in", ir.CallHalide, ir.Int32Type, ir.VarExpr("x")),
	})
	out := schedule.NewFunction("out", []string{"x"}, []*ir.Expr{
		ir.CallExpr("f", ir.CallHalide, ir.Int32Type, ir.VarExpr("x")),
	})
	out.IsOutput = true
	env["in"], env["f"], env["out"] = in, f, out

	domain := map[string]ir.Range{"x": {Min: ir.IntConst(0), Extent: ir.IntConst(64)}}
	domains := map[string]map[string]ir.Range{"in": domain, "f": domain, "out": domain}

	m := config.DefaultMachineParams()
	p := NewPartitioner(env, []string{"in", "f", "out"}, domains, m)
	groups, _ := p.Run()

	if len(groups) == 0 {
		t.Fatal("expected at least one surviving group")
	}
	if _, ok := groups["out"]; !ok {
		t.Fatal("expected the output function to head a group")
	}
}

func TestRegionSizeUsesOutputType(t *testing.T) {
	env := schedule.Env{}
	f := schedule.NewFunction("f", []string{"x"}, nil)
	f.OutputType = ir.Float64Type
	env["f"] = f
	box := dependence.Box{Dims: []ir.Range{{Min: ir.IntConst(0), Extent: ir.IntConst(10)}}}
	if got := RegionSize("f", box, env); got != 80 {
		t.Fatalf("RegionSize = %d, want 80 (10 elems * 8 bytes)", got)
	}
}
