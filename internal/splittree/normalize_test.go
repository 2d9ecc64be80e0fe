package splittree

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

func TestNormalizeIdempotent(t *testing.T) {
	splits := []schedule.Split{
		{Kind: schedule.SplitVar, Old: "x", Outer: "xo", Inner: "xi", Factor: ir.IntConst(8)},
		{Kind: schedule.SplitVar, Old: "xo", Outer: "xoo", Inner: "xoi", Factor: ir.IntConst(4)},
	}
	once := Normalize(splits)
	twice := Normalize(once)
	if diff := cmp.Diff(once, twice, cmp.Comparer(exprEqual)); diff != "" {
		t.Fatalf("normalize not idempotent (-once +twice):\n%s", diff)
	}
}

func exprEqual(a, b *ir.Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return ir.Simplify(a).String() == ir.Simplify(b).String()
}

func TestNormalizeCoupledSplitFactor(t *testing.T) {
	splits := []schedule.Split{
		{Kind: schedule.SplitVar, Old: "x", Outer: "xo", Inner: "xi", Factor: ir.IntConst(8)},
		{Kind: schedule.SplitVar, Old: "xo", Outer: "xoo", Inner: "xoi", Factor: ir.IntConst(4)},
	}
	got := Normalize(splits)
	if len(got) != 2 {
		t.Fatalf("expected 2 splits after coupling, got %d", len(got))
	}
	first := got[0]
	if first.Old != "x" || first.Outer != "xoo" {
		t.Fatalf("expected rewritten outer split x->xoo, got %+v", first)
	}
	if ir.Simplify(first.Factor).IntValue != 32 {
		t.Fatalf("expected combined factor 32, got %v", ir.Simplify(first.Factor))
	}
	second := got[1]
	if second.Old != first.Inner {
		t.Fatalf("expected second split to consume the fresh intermediate variable, got %+v", second)
	}
}

func TestNormalizeRenameFoldedIntoConsumer(t *testing.T) {
	splits := []schedule.Split{
		{Kind: schedule.Rename, Old: "x", Outer: "y"},
		{Kind: schedule.SplitVar, Old: "y", Outer: "yo", Inner: "yi", Factor: ir.IntConst(4)},
	}
	got := Normalize(splits)
	if len(got) != 1 {
		t.Fatalf("expected rename to fold away, got %d splits: %+v", len(got), got)
	}
	if got[0].Old != "x" {
		t.Fatalf("expected surviving split to consume x directly, got %+v", got[0])
	}
}

func TestNormalizeRenameOfDerivedVariablePanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic for rename of a derived variable")
		}
	}()
	splits := []schedule.Split{
		{Kind: schedule.SplitVar, Old: "x", Outer: "xo", Inner: "xi", Factor: ir.IntConst(8)},
		{Kind: schedule.Rename, Old: "xo", Outer: "xr"},
	}
	Normalize(splits)
}
