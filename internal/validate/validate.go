// Package validate computes the set of legal store/compute placements
// for a function from its use-sites in the current IR, and rejects
// schedules that would introduce a race between a parallel loop and
// the function's storage. This is component E of the scheduling core.
package validate

import (
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// Site is one enclosing-loop stack recorded at a use of a function.
type Site struct {
	Loops []LoopFrame
}

// LoopFrame names one enclosing For loop and whether it iterates in
// parallel.
type LoopFrame struct {
	Func       string
	Var        string
	IsParallel bool
}

// UseSiteError is the UserError variant raised when a requested
// store/compute placement is illegal.
type UseSiteError struct {
	Func            string
	Requested       string
	LegalStoreAt    []string
	LegalComputeAt  []string
	Reason          string
	UseSiteTreeDump string
}

func (e *UseSiteError) Error() string {
	return fmt.Sprintf("invalid schedule for %q (%s): requested %s; legal store_at: %v; legal compute_at: %v",
		e.Func, e.Reason, e.Requested, e.LegalStoreAt, e.LegalComputeAt)
}

// CollectUseSites walks s and records, for every direct use of fn
// (Call or Provide referencing it), the stack of enclosing For loops.
func CollectUseSites(s *ir.Stmt, fn string) []Site {
	var sites []Site
	var stack []LoopFrame

	var visit func(*ir.Stmt, string)
	visit = func(n *ir.Stmt, enclosingFunc string) {
		if n == nil {
			return
		}
		switch n.Kind {
		case ir.StmtFor:
			stack = append(stack, LoopFrame{Func: enclosingFunc, Var: n.Name, IsParallel: n.ForType.IsParallel()})
			visit(n.Body, enclosingFunc)
			stack = stack[:len(stack)-1]
			return
		case ir.StmtProducerConsumer:
			visit(n.Produce, n.FuncName)
			visit(n.Update, n.FuncName)
			visit(n.Consume, enclosingFunc)
			return
		case ir.StmtLetStmt:
			visit(n.Body, enclosingFunc)
			return
		case ir.StmtRealize:
			visit(n.Body, enclosingFunc)
			return
		case ir.StmtBlock:
			for _, c := range n.Stmts {
				visit(c, enclosingFunc)
			}
			return
		case ir.StmtIfThenElse:
			visit(n.Then, enclosingFunc)
			visit(n.Else, enclosingFunc)
			return
		case ir.StmtProvide:
			if n.FuncName == fn {
				return
			}
			used := false
			for _, v := range n.Values {
				if exprCallsFunc(v, fn) {
					used = true
				}
			}
			if used {
				sites = append(sites, Site{Loops: append([]LoopFrame{}, stack...)})
			}
		}
	}
	visit(s, "")
	return sites
}

func exprCallsFunc(e *ir.Expr, name string) bool {
	found := false
	ir.WalkExpr(e, ir.WalkHooks{Expr: func(n *ir.Expr) bool {
		if n.Kind == ir.Call && n.Name == name {
			found = true
		}
		return !found
	}})
	return found
}

// CommonPrefix returns the longest shared prefix of enclosing loops
// across all of a function's use-sites, its legal compute/store sites.
func CommonPrefix(sites []Site) []LoopFrame {
	if len(sites) == 0 {
		return nil
	}
	prefix := sites[0].Loops
	for _, s := range sites[1:] {
		prefix = commonPrefixOf(prefix, s.Loops)
	}
	return prefix
}

func commonPrefixOf(a, b []LoopFrame) []LoopFrame {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

// Validate checks f's requested store/compute levels against its
// use-sites in s.
func Validate(f *schedule.Function, s *ir.Stmt) error {
	sched := f.Schedule
	if sched.StoreLevel.IsInline() && sched.ComputeLevel.IsInline() {
		return nil
	}
	if f.IsOutput {
		if sched.StoreLevel.IsRoot() && sched.ComputeLevel.IsRoot() {
			return nil
		}
		return &UseSiteError{
			Func:      f.Name,
			Requested: describeLevel(sched.ComputeLevel),
			Reason:    "output functions must be scheduled compute_root/store_root",
		}
	}

	sites := CollectUseSites(s, f.Name)
	prefix := CommonPrefix(sites)

	computeIdx := indexOfLevel(prefix, sched.ComputeLevel)
	if sched.ComputeLevel.IsRoot() {
		computeIdx = -1
	} else if computeIdx < 0 {
		return &UseSiteError{
			Func:            f.Name,
			Requested:       describeLevel(sched.ComputeLevel),
			Reason:          "compute_at location is not within the common use-site prefix",
			LegalComputeAt:  renderLevels(prefix),
			UseSiteTreeDump: dumpSites(sites),
		}
	}

	storeIdx := indexOfLevel(prefix, sched.StoreLevel)
	if sched.StoreLevel.IsRoot() {
		storeIdx = -1
	} else if storeIdx < 0 {
		return &UseSiteError{
			Func:            f.Name,
			Requested:       describeLevel(sched.StoreLevel),
			Reason:          "store_at location is not within the common use-site prefix",
			LegalStoreAt:    renderLevels(prefix),
			UseSiteTreeDump: dumpSites(sites),
		}
	}

	if storeIdx > computeIdx {
		return &UseSiteError{
			Func:      f.Name,
			Requested: fmt.Sprintf("store_at %s, compute_at %s", describeLevel(sched.StoreLevel), describeLevel(sched.ComputeLevel)),
			Reason:    "store_at must be at or outside compute_at",
		}
	}

	lo, hi := storeIdx, computeIdx
	if lo < 0 {
		lo = 0
	}
	if hi < 0 {
		hi = len(prefix)
	}
	for i := lo; i < hi && i < len(prefix); i++ {
		if prefix[i].IsParallel {
			return &UseSiteError{
				Func:            f.Name,
				Requested:       fmt.Sprintf("store_at %s, compute_at %s", describeLevel(sched.StoreLevel), describeLevel(sched.ComputeLevel)),
				Reason:          "potential race condition: a parallel loop lies between store_at and compute_at",
				UseSiteTreeDump: dumpSites(sites),
			}
		}
	}
	return nil
}

func indexOfLevel(prefix []LoopFrame, level schedule.LoopLevel) int {
	if level.IsInline() {
		return len(prefix)
	}
	for i, l := range prefix {
		if l.Func == level.Func && l.Var == level.Var {
			return i
		}
	}
	return -1
}

func describeLevel(l schedule.LoopLevel) string {
	switch {
	case l.IsInline():
		return "inline"
	case l.IsRoot():
		return "root"
	default:
		return fmt.Sprintf("%s.%s", l.Func, l.Var)
	}
}

func renderLevels(prefix []LoopFrame) []string {
	out := make([]string, len(prefix))
	for i, l := range prefix {
		out[i] = fmt.Sprintf("%s.%s", l.Func, l.Var)
	}
	return out
}

// dumpSites renders the recorded use-site stacks with spew: a tree of
// how f is used inside which enclosing functions.
func dumpSites(sites []Site) string {
	var b strings.Builder
	for _, s := range sites {
		b.WriteString(spew.Sdump(s.Loops))
	}
	return b.String()
}
