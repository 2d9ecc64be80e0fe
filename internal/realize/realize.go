// Package realize implements the realization injector: it locates the
// store- and compute-level loops of a function inside a surrounding IR
// and splices in the produce/consume nest and an allocation. This is
// component D of the scheduling core.
package realize

import (
	"fmt"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/production"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// BoundsRegion resolves the realized region of a function, one Range
// per dimension, consulted when building a Realize node's bounds list.
type BoundsRegion interface {
	Region(funcName string) []ir.Range
}

// InternalError signals an invariant violation discovered by a pass
// rather than a bad input: the function's own schedule validated, but
// the injector still could not locate one of its levels in the tree.
// Inject panics with this type rather than returning an error because
// the condition is unreachable for any schedule that passed validation
// first; the driver recovers it at its own boundary and returns it as
// a normal error so callers of the package never observe a panic.
type InternalError struct {
	Message string
	Pass    string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("%s: %s", e.Pass, e.Message)
}

// Injector is stateful over a single function: one instance per
// function being injected.
type Injector struct {
	Func              *schedule.Function
	Pair              production.Pair
	Bounds            BoundsRegion
	InjectAsserts     bool
	foundStoreLevel   bool
	foundComputeLevel bool
}

// Inject runs the injector over s and returns the rewritten statement
// tree. It panics with an *InternalError if either level was never
// found; the driver recovers this at its own boundary and turns it
// back into a returned error.
func (inj *Injector) Inject(s *ir.Stmt) *ir.Stmt {
	out := inj.visit(s)
	if !inj.foundStoreLevel || !inj.foundComputeLevel {
		panic(&InternalError{
			Pass: "realize",
			Message: fmt.Sprintf("failed to find store/compute level for %q (store=%v compute=%v)",
				inj.Func.Name, inj.foundStoreLevel, inj.foundComputeLevel),
		})
	}
	return out
}

func (inj *Injector) visit(s *ir.Stmt) *ir.Stmt {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case ir.StmtFor:
		return inj.visitFor(s)
	case ir.StmtProvide:
		return inj.visitProvide(s)
	default:
		m := &ir.Mutator{Stmt: map[ir.StmtKind]func(*ir.Stmt, *ir.Mutator) *ir.Stmt{
			ir.StmtFor: func(n *ir.Stmt, _ *ir.Mutator) *ir.Stmt { return inj.visitFor(n) },
			ir.StmtProvide: func(n *ir.Stmt, _ *ir.Mutator) *ir.Stmt { return inj.visitProvide(n) },
		}}
		return m.MutateStmt(s)
	}
}

// visitFor implements the traversal contract of SPEC_FULL.md §4.D:
// lift any LetStmt wrappers, special-case inline-extern-under-vectorized,
// recurse, then check for a compute-level match (wrap with
// ProducerConsumer) and a store-level match (wrap with Realize).
func (inj *Injector) visitFor(s *ir.Stmt) *ir.Stmt {
	lets, loopBody := liftLets(s.Body)

	sched := inj.Func.StageSchedule(0)
	level := schedule.At(inj.Func.Name, s.Name)

	if inj.Func.IsExtern && sched.ComputeLevel.IsInline() && s.ForType == ir.Vectorized && loopBody.UsesFunc(inj.Func.Name) {
		loopBody = inj.visit(loopBody)
		wrapped := inj.wrapProduce(loopBody)
		wrapped = inj.wrapRealize(wrapped)
		return relowerFor(s, relet(lets, wrapped))
	}

	loopBody = inj.visit(loopBody)

	if sched.ComputeLevel.Match(level) && loopBody.UsesFunc(inj.Func.Name) {
		loopBody = inj.wrapProduce(loopBody)
		inj.foundComputeLevel = true
	}
	if inj.foundComputeLevel && sched.StoreLevel.Match(level) {
		loopBody = inj.wrapRealize(loopBody)
		inj.foundStoreLevel = true
	}

	return relowerFor(s, relet(lets, loopBody))
}

func (inj *Injector) visitProvide(s *ir.Stmt) *ir.Stmt {
	if s.FuncName != inj.Func.Name && s.UsesFunc(inj.Func.Name) && len(inj.Func.Updates) > 0 &&
		inj.Func.StageSchedule(0).ComputeLevel.IsInline() {
		wrapped := inj.wrapProduce(s)
		wrapped = inj.wrapRealize(wrapped)
		inj.foundComputeLevel = true
		inj.foundStoreLevel = true
		return wrapped
	}
	return s
}

func (inj *Injector) wrapProduce(consumer *ir.Stmt) *ir.Stmt {
	return ir.ProducerConsumerStmt(inj.Func.Name, inj.Pair.Produce, inj.Pair.Update, consumer)
}

func (inj *Injector) wrapRealize(body *ir.Stmt) *ir.Stmt {
	var bounds []ir.Range
	if inj.Bounds != nil {
		bounds = inj.Bounds.Region(inj.Func.Name)
	}
	types := []ir.ValueType{inj.Func.OutputType}
	cond := ir.IntConst(1)
	realized := ir.RealizeStmt(inj.Func.Name, types, bounds, cond, body)
	if !inj.InjectAsserts {
		return realized
	}
	return wrapExplicitBoundsAssert(inj.Func, bounds, realized)
}

// wrapExplicitBoundsAssert is a minimal in-package stand-in for the
// internal/boundsassert pass: for every realized dimension with a
// non-nil min it prepends an assertion that <f>.bounds_check >= 0. It
// runs whenever InjectAsserts is set; the driver sets it and also
// calls boundsassert.Wrap on the produce nest, so both apply there.
func wrapExplicitBoundsAssert(f *schedule.Function, bounds []ir.Range, body *ir.Stmt) *ir.Stmt {
	stmt := body
	for i := len(bounds) - 1; i >= 0; i-- {
		b := bounds[i]
		if b.Min == nil {
			continue
		}
		cond := ir.BinOp(ir.GE, ir.VarExpr(f.Name+".bounds_check"), ir.IntConst(0))
		msg := ir.CallExpr("error_bounds", ir.CallIntrinsic, ir.Int32Type, ir.VarExpr(f.Name))
		stmt = ir.BlockStmt(ir.AssertStmtNode(cond, msg), stmt)
	}
	return stmt
}

type letFrame struct {
	name  string
	value *ir.Expr
}

func liftLets(s *ir.Stmt) ([]letFrame, *ir.Stmt) {
	var frames []letFrame
	for s != nil && s.Kind == ir.StmtLetStmt {
		frames = append(frames, letFrame{s.Name, s.Value})
		s = s.Body
	}
	return frames, s
}

func relet(frames []letFrame, body *ir.Stmt) *ir.Stmt {
	stmt := body
	for i := len(frames) - 1; i >= 0; i-- {
		stmt = ir.LetStmtNode(frames[i].name, frames[i].value, stmt)
	}
	return stmt
}

func relowerFor(orig *ir.Stmt, body *ir.Stmt) *ir.Stmt {
	return ir.ForStmt(orig.Name, orig.Min, orig.Extent, orig.ForType, orig.Device, body)
}
