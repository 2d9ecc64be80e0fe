// Package splittree rebalances a stage's split list so that splits
// whose Old variable is another split's produced variable always come
// after their producer, and coalesces coupled rename/split pairs. This
// is component A of the scheduling core.
package splittree

import (
	"fmt"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// nameSource hands out unique names for the intermediate variable a
// coupled SplitVar/SplitVar rewrite must introduce.
type nameSource struct {
	next int
}

func (n *nameSource) fresh(base string) string {
	n.next++
	return fmt.Sprintf("%s$%d", base, n.next)
}

// Normalize rewrites splits into an equivalent list in which every
// split whose Old variable was produced by an earlier split now
// follows its producer, applying the two coupling rewrites of
// SPEC_FULL.md §4.A to a fixpoint. It never mutates the slice passed in.
func Normalize(splits []schedule.Split) []schedule.Split {
	out := make([]schedule.Split, len(splits))
	copy(out, splits)
	names := &nameSource{}

	for {
		i, j, ok := findCoupledPair(out)
		if !ok {
			return out
		}
		switch {
		case out[i].Kind == schedule.Rename:
			// A rename feeding a further split of its result: fold the
			// rename away by rewriting the consumer's Old to the
			// rename's own source variable.
			rewritten := append([]schedule.Split{}, out[:i]...)
			rewritten = append(rewritten, out[i+1:]...)
			for k := range rewritten {
				if rewritten[k].Old == out[i].Outer {
					rewritten[k].Old = out[i].Old
				}
			}
			out = rewritten

		case out[j].Kind == schedule.Rename:
			panic("splittree: rename of a derived variable is a structural error")

		default:
			// Two SplitVars coupled through out[i].Outer == out[j].Old:
			// rewrite into the composite pair and reinsert immediately
			// after position i, dropping the original pair.
			rewrittenPair := coupleSplitVars(out[i], out[j], names)
			rest := make([]schedule.Split, 0, len(out))
			rest = append(rest, out[:i]...)
			for k := i + 1; k < len(out); k++ {
				if k == j {
					continue
				}
				rest = append(rest, out[k])
			}
			head := append([]schedule.Split{}, rest[:i]...)
			head = append(head, rewrittenPair[0], rewrittenPair[1])
			head = append(head, rest[i:]...)
			out = head
		}
	}
}

// findCoupledPair returns the first pair (i, j), i<j, where splits[i]
// produces the variable splits[j] consumes.
func findCoupledPair(splits []schedule.Split) (int, int, bool) {
	for i := range splits {
		produced := producedBy(splits[i])
		if produced == "" {
			continue
		}
		for j := i + 1; j < len(splits); j++ {
			if splits[j].Old == produced {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

func producedBy(s schedule.Split) string {
	switch s.Kind {
	case schedule.Rename:
		return s.Outer
	case schedule.SplitVar:
		return s.Outer
	default:
		return ""
	}
}

// coupleSplitVars rewrites `X -> a*Xo+Xi` followed by `Xo -> b*Xoo+Xoi`
// into the equivalent pair `X -> (a*b)*Xoo+s` and `s -> a*Xoi+Xi`,
// where s is a fresh name.
func coupleSplitVars(outer, inner schedule.Split, names *nameSource) [2]schedule.Split {
	a := outer.Factor
	b := inner.Factor
	combinedFactor := ir.Simplify(ir.BinOp(ir.Mul, a, b))
	s := names.fresh(outer.Old)

	rewrittenOuter := schedule.Split{
		Kind:    schedule.SplitVar,
		Old:     outer.Old,
		Outer:   inner.Outer,
		Inner:   s,
		Factor:  combinedFactor,
		Exact:   outer.Exact || inner.Exact,
		Partial: outer.Partial || inner.Partial,
	}
	rewrittenInner := schedule.Split{
		Kind:    schedule.SplitVar,
		Old:     s,
		Outer:   inner.Inner,
		Inner:   outer.Inner,
		Factor:  a,
		Exact:   outer.Exact || inner.Exact,
		Partial: outer.Partial || inner.Partial,
	}
	return [2]schedule.Split{rewrittenOuter, rewrittenInner}
}
