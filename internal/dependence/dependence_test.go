package dependence

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func TestBoxAreaConstant(t *testing.T) {
	b := Box{Dims: []ir.Range{{Min: ir.IntConst(0), Extent: ir.IntConst(10)}, {Min: ir.IntConst(0), Extent: ir.IntConst(20)}}}
	if got := b.Area(); got != 200 {
		t.Fatalf("Area() = %d, want 200", got)
	}
}

func TestBoxAreaSymbolic(t *testing.T) {
	b := Box{Dims: []ir.Range{{Min: ir.IntConst(0), Extent: ir.VarExpr("n")}}}
	if got := b.Area(); got != -1 {
		t.Fatalf("Area() with symbolic extent = %d, want -1", got)
	}
}

func TestBoxAreaEmpty(t *testing.T) {
	b := Box{Dims: []ir.Range{{Min: ir.IntConst(0), Extent: ir.IntConst(0)}}}
	if got := b.Area(); got != 0 {
		t.Fatalf("Area() with zero extent = %d, want 0", got)
	}
}

func TestRequiredRegionsSimplePointwiseChain(t *testing.T) {
	env := schedule.Env{}
	in := schedule.NewFunction("in", []string{"x", "y"}, []*ir.Expr{ir.VarExpr("x")})
	env["in"] = in

	f := schedule.NewFunction("f", []string{"x", "y"}, []*ir.Expr{
		ir.CallExpr("in", ir.CallHalide, ir.Int32Type, ir.VarExpr("x"), ir.VarExpr("y")),
	})
	env["f"] = f

	out := schedule.NewFunction("out", []string{"x", "y"}, []*ir.Expr{
		ir.BinOp(ir.Add,
			ir.CallExpr("f", ir.CallHalide, ir.Int32Type, ir.VarExpr("x"), ir.VarExpr("y")),
			ir.CallExpr("f", ir.CallHalide, ir.Int32Type, ir.BinOp(ir.Add, ir.VarExpr("x"), ir.IntConst(1)), ir.VarExpr("y"))),
	})
	env["out"] = out

	domain := map[string]ir.Range{
		"x": {Min: ir.IntConst(0), Extent: ir.IntConst(10)},
		"y": {Min: ir.IntConst(0), Extent: ir.IntConst(10)},
	}
	regions := RequiredRegions(out, domain, env)

	fBox, ok := regions["f"]
	if !ok {
		t.Fatal("expected required region for f")
	}
	if got := ir.Simplify(fBox.Dims[0].Extent); got.IntValue != 11 {
		t.Fatalf("expected f's x-extent to be 11 (0..10 union 1..11), got %v", got)
	}

	if _, ok := regions["in"]; !ok {
		t.Fatal("expected transitive required region for in via f")
	}
}

func TestRedundantRegionsAbsentProducerIsZeroOverlap(t *testing.T) {
	env := schedule.Env{}
	f := schedule.NewFunction("f", []string{"x"}, []*ir.Expr{ir.VarExpr("x")})
	env["f"] = f
	out := schedule.NewFunction("out", []string{"x"}, []*ir.Expr{
		ir.CallExpr("f", ir.CallHalide, ir.Int32Type, ir.VarExpr("x")),
	})
	env["out"] = out

	domain := map[string]ir.Range{"x": {Min: ir.IntConst(0), Extent: ir.IntConst(8)}}
	overlap := RedundantRegions(out, domain, 0, env)
	if _, ok := overlap["nonexistent"]; ok {
		t.Fatal("did not expect an overlap entry for a producer never required")
	}
	if _, ok := overlap["f"]; !ok {
		t.Fatal("expected an overlap entry for f")
	}
}
