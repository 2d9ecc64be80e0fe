// Package loopnest builds the loop nest for a single stage of a single
// function: substituting splits, wrapping containers, defining loop
// bounds, and branching on specializations.
package loopnest

import (
	"fmt"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
	"github.com/loopnest-sched/scheduler/internal/splittree"
)

// Bounds resolves the externally-supplied min/max of a pure variable.
// It is a parameter rather than a global so the driver can plug in
// whatever bounds-inference pass it has. A nil result means "not
// known"; the builder then uses the symbols prefix+var.min and
// prefix+var.max. This module's own driver (internal/driver) passes
// NoBounds, which answers nil for every variable.
type Bounds interface {
	Min(varName string) *ir.Expr
	Max(varName string) *ir.Expr
}

// MapBounds is a Bounds implementation backed by a plain
// name->interval map; a variable missing from the map gets 0 for both
// its min and its max.
type MapBounds map[string][2]*ir.Expr

func (b MapBounds) Min(v string) *ir.Expr {
	if r, ok := b[v]; ok {
		return r[0]
	}
	return ir.IntConst(0)
}

func (b MapBounds) Max(v string) *ir.Expr {
	if r, ok := b[v]; ok {
		return r[1]
	}
	return ir.IntConst(0)
}

// Input bundles the arguments the builder needs for one stage.
type Input struct {
	FuncName string
	Prefix   string // e.g. "f.s0."
	Site     []*ir.Expr
	Values   []*ir.Expr
	Sched    *schedule.Schedule
	IsUpdate bool
	Bounds   Bounds
}

// container is one "for" or "let" wrapper, kept separate from the
// ir.Stmt tree until the resort pass has run so lets can be bubbled
// past unrelated for-loops before the tree is rebuilt.
type container struct {
	isFor   bool
	forDim  schedule.Dim
	letName string
	letVal  *ir.Expr
}

// Build constructs the loop nest for one stage.
func Build(in Input) *ir.Stmt {
	body := ir.ProvideStmt(in.FuncName, in.Values, in.Site)

	known := knownExtents(in.Sched)
	normSplits := splittree.Normalize(in.Sched.Splits)

	var lets []container
	stmt := body
	for _, sp := range normSplits {
		lets = append(lets, applySplit(sp, in, known, &stmt)...)
	}

	containers := buildContainers(in.Sched.Dims, lets)
	containers = resortLets(containers)

	nest := wrap(containers, in.Prefix, stmt)

	nest = defineSplitBounds(normSplits, in.Prefix, nest)
	nest = defineOutermost(in.Prefix, nest)
	nest = definePureArgBounds(in.Sched.Dims, in.Prefix, in.Bounds, nest)

	nest = applySpecializations(in.Sched.Specializations, in, known, nest)
	return nest
}

func knownExtents(s *schedule.Schedule) map[string]*ir.Expr {
	known := map[string]*ir.Expr{}
	for _, b := range s.Bounds {
		known[b.Var] = b.Extent
	}
	return known
}

// applySplit performs step 3 of the builder for one normalized split,
// substituting the old variable throughout *stmt and returning the let
// containers it introduces for the new base/inner/outer names.
func applySplit(sp schedule.Split, in Input, known map[string]*ir.Expr, stmt **ir.Stmt) []container {
	switch sp.Kind {
	case schedule.Rename:
		outerVar := ir.VarExpr(sp.Outer)
		*stmt = ir.SubstituteStmt(*stmt, sp.Old, outerVar)
		return []container{{letName: sp.Old, letVal: outerVar}}

	case schedule.FuseVars:
		innerExtent := known[sp.Inner]
		if innerExtent == nil {
			innerExtent = ir.IntConst(1)
		}
		factor := ir.Simplify(ir.BinOp(ir.Max, innerExtent, ir.IntConst(1)))
		fusedVar := ir.VarExpr(sp.Old)
		innerVal := ir.Simplify(ir.BinOp(ir.Add, ir.BinOp(ir.Mod, fusedVar, factor), minSym(in.Prefix, sp.Inner)))
		outerVal := ir.Simplify(ir.BinOp(ir.Add, ir.BinOp(ir.Div, fusedVar, factor), minSym(in.Prefix, sp.Outer)))
		*stmt = ir.SubstituteStmt(*stmt, sp.Inner, innerVal)
		*stmt = ir.SubstituteStmt(*stmt, sp.Outer, outerVal)
		if oe, ok := known[sp.Outer]; ok {
			if ie, ok2 := known[sp.Inner]; ok2 {
				known[sp.Old] = ir.Simplify(ir.BinOp(ir.Mul, oe, ie))
			}
		}
		return []container{
			{letName: sp.Inner, letVal: innerVal},
			{letName: sp.Outer, letVal: outerVal},
		}

	default: // SplitVar
		outerVar := ir.VarExpr(sp.Outer)
		innerVar := ir.VarExpr(sp.Inner)
		oldMin := minSym(in.Prefix, sp.Old)
		oldMax := maxSym(in.Prefix, sp.Old)

		base := ir.Simplify(ir.BinOp(ir.Add, ir.BinOp(ir.Mul, outerVar, sp.Factor), oldMin))
		divides := extentDividesFactor(known[sp.Old], sp.Factor)

		switch {
		case divides:
			// Exact tiling: no clamp needed.
		case sp.Exact:
			panic(fmt.Sprintf("loopnest: exact split of %q by non-dividing factor", sp.Old))
		case !in.IsUpdate:
			clampLimit := ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, oldMax, ir.IntConst(1)), sp.Factor))
			base = ir.BinOp(ir.Min, base, clampLimit)
			if innermostSerialDim(in.Sched, sp.Outer) {
				base = ir.Likely(base)
			}
		}
		baseName := sp.Old + ".base"
		oldVal := ir.Simplify(ir.BinOp(ir.Add, ir.VarExpr(baseName), innerVar))
		*stmt = ir.SubstituteStmt(*stmt, sp.Old, oldVal)
		return []container{
			{letName: baseName, letVal: base},
			{letName: sp.Old, letVal: oldVal},
		}
	}
}

func minSym(prefix, v string) *ir.Expr { return ir.VarExpr(prefix + v + ".loop_min") }
func maxSym(prefix, v string) *ir.Expr { return ir.VarExpr(prefix + v + ".loop_max") }

// extentDividesFactor reports whether extent is a known constant that
// factor's known constant value divides exactly; symbolic extents conservatively answer false.
func extentDividesFactor(extent, factor *ir.Expr) bool {
	if extent == nil {
		return false
	}
	e := ir.Simplify(extent)
	f := ir.Simplify(factor)
	if e.Kind != ir.IntImm || f.Kind != ir.IntImm || f.IntValue == 0 {
		return false
	}
	return e.IntValue%f.IntValue == 0
}

func innermostSerialDim(s *schedule.Schedule, v string) bool {
	idx := s.InnermostNonTrivial()
	return idx >= 0 && s.Dims[idx].Var == v && s.Dims[idx].ForType == schedule.Serial
}

// buildContainers turns the Dim list into For containers (outermost
// first; Dims are stored innermost-first, so they are walked from the
// end) and appends the let containers collected while applying
// splits.
func buildContainers(dims []schedule.Dim, lets []container) []container {
	out := make([]container, 0, len(dims)+len(lets))
	for i := len(dims) - 1; i >= 0; i-- {
		out = append(out, container{isFor: true, forDim: dims[i]})
	}
	out = append(out, lets...)
	return out
}

// resortLets bubbles each let container outward past any For container
// whose loop variable the let's value does not depend on, an
// insertion sort over the container list.
func resortLets(containers []container) []container {
	out := append([]container{}, containers...)
	for i := 1; i < len(out); i++ {
		if out[i].isFor {
			continue
		}
		j := i
		for j > 0 && out[j-1].isFor && !ir.ExprUsesVar(out[j].letVal, out[j-1].forDim.Var) {
			out[j-1], out[j] = out[j], out[j-1]
			j--
		}
	}
	return out
}

// wrap rebuilds the ir.Stmt tree from innermost container outward. Each
// For's min/extent reference the prefix+var.loop_min / .loop_extent
// symbols defined below it by defineSplitBounds/definePureArgBounds.
func wrap(containers []container, prefix string, inner *ir.Stmt) *ir.Stmt {
	stmt := inner
	for i := len(containers) - 1; i >= 0; i-- {
		c := containers[i]
		if c.isFor {
			d := c.forDim
			min := ir.VarExpr(prefix + d.Var + ".loop_min")
			extent := ir.VarExpr(prefix + d.Var + ".loop_extent")
			stmt = ir.ForStmt(d.Var, min, extent, d.ForType, d.Device, stmt)
		} else {
			stmt = ir.LetStmtNode(c.letName, c.letVal, stmt)
		}
	}
	return stmt
}

// defineSplitBounds emits the loop_min/loop_max/loop_extent lets for
// every variable introduced by a split, processed in reverse split
// order.
func defineSplitBounds(splits []schedule.Split, prefix string, body *ir.Stmt) *ir.Stmt {
	stmt := body
	for i := len(splits) - 1; i >= 0; i-- {
		sp := splits[i]
		switch sp.Kind {
		case schedule.SplitVar:
			oldMin := minSym(prefix, sp.Old)
			oldMax := maxSym(prefix, sp.Old)
			var innerExtent *ir.Expr
			if sp.Partial {
				innerExtent = ir.Simplify(ir.BinOp(ir.Min, ir.Likely(sp.Factor), ir.BinOp(ir.Add, oldMax, ir.IntConst(1))))
			} else {
				innerExtent = sp.Factor
			}
			outerExtent := ir.Simplify(ir.BinOp(ir.Div,
				ir.BinOp(ir.Add, ir.BinOp(ir.Sub, oldMax, oldMin), sp.Factor), sp.Factor))
			stmt = ir.LetStmtNode(prefix+sp.Inner+".loop_min", ir.IntConst(0), stmt)
			stmt = ir.LetStmtNode(prefix+sp.Inner+".loop_max", ir.Simplify(ir.BinOp(ir.Sub, innerExtent, ir.IntConst(1))), stmt)
			stmt = ir.LetStmtNode(prefix+sp.Inner+".loop_extent", innerExtent, stmt)
			stmt = ir.LetStmtNode(prefix+sp.Outer+".loop_min", ir.IntConst(0), stmt)
			stmt = ir.LetStmtNode(prefix+sp.Outer+".loop_max", ir.Simplify(ir.BinOp(ir.Sub, outerExtent, ir.IntConst(1))), stmt)
			stmt = ir.LetStmtNode(prefix+sp.Outer+".loop_extent", outerExtent, stmt)
		case schedule.FuseVars:
			innerExtent := ir.VarExpr(prefix + sp.Inner + ".loop_extent")
			outerExtent := ir.VarExpr(prefix + sp.Outer + ".loop_extent")
			oldExtent := ir.Simplify(ir.BinOp(ir.Mul, innerExtent, outerExtent))
			stmt = ir.LetStmtNode(prefix+sp.Old+".loop_min", ir.IntConst(0), stmt)
			stmt = ir.LetStmtNode(prefix+sp.Old+".loop_extent", oldExtent, stmt)
			stmt = ir.LetStmtNode(prefix+sp.Old+".loop_max", ir.Simplify(ir.BinOp(ir.Sub, oldExtent, ir.IntConst(1))), stmt)
		case schedule.Rename:
			stmt = ir.LetStmtNode(prefix+sp.Outer+".loop_min", minSym(prefix, sp.Old), stmt)
			stmt = ir.LetStmtNode(prefix+sp.Outer+".loop_max", maxSym(prefix, sp.Old), stmt)
			stmt = ir.LetStmtNode(prefix+sp.Outer+".loop_extent", ir.VarExpr(prefix+sp.Old+".loop_extent"), stmt)
		}
	}
	return stmt
}

// defineOutermost defines the synthetic outermost loop as a
// unit-extent loop.
func defineOutermost(prefix string, body *ir.Stmt) *ir.Stmt {
	stmt := ir.LetStmtNode(prefix+schedule.OutermostVar+".loop_min", ir.IntConst(0), body)
	stmt = ir.LetStmtNode(prefix+schedule.OutermostVar+".loop_max", ir.IntConst(0), stmt)
	stmt = ir.LetStmtNode(prefix+schedule.OutermostVar+".loop_extent", ir.IntConst(1), stmt)
	return stmt
}

// definePureArgBounds links each pure (non-split-derived) dim's loop
// bounds to the externally supplied min/max, falling back to the
// symbols prefix+var.min / prefix+var.max where b answers nil.
func definePureArgBounds(dims []schedule.Dim, prefix string, b Bounds, body *ir.Stmt) *ir.Stmt {
	stmt := body
	for i := len(dims) - 1; i >= 0; i-- {
		d := dims[i]
		if d.Var == schedule.OutermostVar || !d.Pure {
			continue
		}
		min := b.Min(d.Var)
		if min == nil {
			min = ir.VarExpr(prefix + d.Var + ".min")
		}
		max := b.Max(d.Var)
		if max == nil {
			max = ir.VarExpr(prefix + d.Var + ".max")
		}
		extent := ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, max, ir.IntConst(1)), min))
		stmt = ir.LetStmtNode(prefix+d.Var+".loop_min", min, stmt)
		stmt = ir.LetStmtNode(prefix+d.Var+".loop_max", max, stmt)
		stmt = ir.LetStmtNode(prefix+d.Var+".loop_extent", extent, stmt)
	}
	return stmt
}

// applySpecializations wraps body in nested IfThenElse branches,
// processed in reverse declaration order, substituting the condition's
// known value into the then branch and its complement into the else
// branch when the condition is a simple var==const equality or a bare
// boolean variable test.
func applySpecializations(specs []schedule.Specialization, in Input, known map[string]*ir.Expr, body *ir.Stmt) *ir.Stmt {
	stmt := body
	for i := len(specs) - 1; i >= 0; i-- {
		spec := specs[i]
		thenIn := in
		thenIn.Sched = spec.Schedule
		thenNest := Build(thenIn)
		elseNest := stmt

		switch {
		case spec.Condition.Kind == ir.Var:
			varName := spec.Condition.Name
			thenNest = ir.SubstituteStmt(thenNest, varName, boolConst(1))
			elseNest = ir.SubstituteStmt(elseNest, varName, boolConst(0))
		case spec.Condition.Kind == ir.EQ && spec.Condition.A.Kind == ir.Var:
			varName := spec.Condition.A.Name
			val := ir.Simplify(spec.Condition.B)
			thenNest = ir.SubstituteStmt(thenNest, varName, val)
			if val.Kind == ir.IntImm && (val.IntValue == 0 || val.IntValue == 1) {
				elseNest = ir.SubstituteStmt(elseNest, varName, boolConst(1-val.IntValue))
			}
		}
		stmt = ir.IfThenElseStmt(spec.Condition, thenNest, elseNest)
	}
	return stmt
}

func boolConst(v int64) *ir.Expr {
	return &ir.Expr{Kind: ir.IntImm, Type: ir.BoolType, IntValue: v}
}
