package cleanup

import (
	"testing"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func TestStripOutermostRemovesLoop(t *testing.T) {
	inner := ir.EvaluateStmt(ir.IntConst(1))
	nested := ir.ForStmt("x", ir.IntConst(0), ir.IntConst(10), schedule.Serial, ir.DeviceHost, inner)
	outer := ir.ForStmt("f.s0."+schedule.OutermostVar, ir.IntConst(0), ir.IntConst(1), schedule.Serial, ir.DeviceHost, nested)

	got := StripOutermost(outer)
	if got.Kind != ir.StmtFor || got.Name != "x" {
		t.Fatalf("expected outermost loop to be stripped, got %+v", got)
	}
}

func TestStripOutermostRewritesReferences(t *testing.T) {
	use := ir.EvaluateStmt(ir.VarExpr("f.s0." + schedule.OutermostVar + ".loop_extent"))
	outer := ir.ForStmt("f.s0."+schedule.OutermostVar, ir.IntConst(0), ir.IntConst(1), schedule.Serial, ir.DeviceHost, use)
	got := StripOutermost(outer)
	if got.Value.Kind != ir.IntImm || got.Value.IntValue != 1 {
		t.Fatalf("expected outermost.loop_extent reference rewritten to 1, got %+v", got.Value)
	}
}

func TestPropagateDeviceInheritsFromParent(t *testing.T) {
	inner := ir.ForStmt("x", ir.IntConst(0), ir.IntConst(10), schedule.Serial, ir.DeviceParent, ir.EvaluateStmt(ir.IntConst(0)))
	outer := ir.ForStmt("y", ir.IntConst(0), ir.IntConst(10), schedule.Serial, ir.DeviceGPU, inner)

	got := PropagateDevice(outer)
	if got.Device != ir.DeviceGPU {
		t.Fatalf("expected outer loop device GPU, got %v", got.Device)
	}
	if got.Body.Device != ir.DeviceGPU {
		t.Fatalf("expected inner Parent-tagged loop to inherit GPU, got %v", got.Body.Device)
	}
}
