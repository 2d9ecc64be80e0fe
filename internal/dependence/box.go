// Package dependence computes symbolic dependence footprints: which
// region of each producer a function's stages require over a given
// domain, and how much adjacent tiles along a dimension overlap. This
// is component G of the scheduling core, the
// footprint substrate the partitioner's cost model consumes.
package dependence

import (
	"github.com/samber/lo"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// Box is a per-dimension symbolic interval, one entry per argument
// position of the producer it describes.
type Box struct {
	Dims []ir.Range
}

// Area returns the product of per-dimension extents, -1 if any extent
// is not a known constant, or 0 if any dimension is empty.
func (b Box) Area() int64 {
	area := int64(1)
	for _, d := range b.Dims {
		e := ir.Simplify(d.Extent)
		if e.Kind != ir.IntImm {
			return -1
		}
		if e.IntValue <= 0 {
			return 0
		}
		area *= e.IntValue
	}
	return area
}

// Merge returns the union bounding box of a and b, dimension-wise.
func (b Box) Merge(o Box) Box {
	if len(b.Dims) == 0 {
		return o
	}
	if len(o.Dims) == 0 {
		return b
	}
	out := make([]ir.Range, len(b.Dims))
	for i := range b.Dims {
		min := ir.Simplify(ir.BinOp(ir.Min, b.Dims[i].Min, o.Dims[i].Min))
		aMax := ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, b.Dims[i].Min, b.Dims[i].Extent), ir.IntConst(1)))
		bMax := ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, o.Dims[i].Min, o.Dims[i].Extent), ir.IntConst(1)))
		max := ir.Simplify(ir.BinOp(ir.Max, aMax, bMax))
		extent := ir.Simplify(ir.BinOp(ir.Add, ir.BinOp(ir.Sub, max, min), ir.IntConst(1)))
		out[i] = ir.Range{Min: min, Extent: extent}
	}
	return Box{Dims: out}
}

// Intersect returns the dimension-wise intersection of a and b.
func (b Box) Intersect(o Box) Box {
	if len(b.Dims) != len(o.Dims) {
		return Box{}
	}
	out := make([]ir.Range, len(b.Dims))
	for i := range b.Dims {
		aMax := ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, b.Dims[i].Min, b.Dims[i].Extent), ir.IntConst(1)))
		bMax := ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, o.Dims[i].Min, o.Dims[i].Extent), ir.IntConst(1)))
		min := ir.Simplify(ir.BinOp(ir.Max, b.Dims[i].Min, o.Dims[i].Min))
		max := ir.Simplify(ir.BinOp(ir.Min, aMax, bMax))
		extent := ir.Simplify(ir.BinOp(ir.Add, ir.BinOp(ir.Sub, max, min), ir.IntConst(1)))
		out[i] = ir.Range{Min: min, Extent: extent}
	}
	return Box{Dims: out}
}

// Shift returns b with dimension d's interval moved forward by its own
// extent, the "adjacent tile" used by RedundantRegions.
func (b Box) Shift(d int) Box {
	out := append([]ir.Range{}, b.Dims...)
	shifted := out[d]
	out[d] = ir.Range{Min: ir.Simplify(ir.BinOp(ir.Add, shifted.Min, shifted.Extent)), Extent: shifted.Extent}
	return Box{Dims: out}
}

// Regions maps producer name to the box a consumer requires from it.
type Regions map[string]Box

// exprRange evaluates the interval an expression can take given a
// scope of variable intervals, a conservative interval-arithmetic
// pass over the IR's arithmetic node kinds.
func exprRange(e *ir.Expr, scope map[string]ir.Range) ir.Range {
	if e == nil {
		return ir.Range{Min: ir.IntConst(0), Extent: ir.IntConst(0)}
	}
	switch e.Kind {
	case ir.IntImm, ir.FloatImm:
		return ir.Range{Min: e, Extent: ir.IntConst(1)}
	case ir.Var:
		if r, ok := scope[e.Name]; ok {
			return r
		}
		return ir.Range{Min: e, Extent: ir.IntConst(1)}
	case ir.Add, ir.Sub, ir.Mul, ir.Min, ir.Max:
		a := exprRange(e.A, scope)
		b := exprRange(e.B, scope)
		return combineRange(e.Kind, a, b)
	case ir.Select:
		t := exprRange(e.B, scope)
		f := exprRange(e.C, scope)
		return unionRange(t, f)
	case ir.Cast:
		return exprRange(e.A, scope)
	default:
		return ir.Range{Min: e, Extent: ir.IntConst(1)}
	}
}

func rangeMax(r ir.Range) *ir.Expr {
	return ir.Simplify(ir.BinOp(ir.Sub, ir.BinOp(ir.Add, r.Min, r.Extent), ir.IntConst(1)))
}

func combineRange(kind ir.ExprKind, a, b ir.Range) ir.Range {
	aMax, bMax := rangeMax(a), rangeMax(b)
	switch kind {
	case ir.Add:
		min := ir.Simplify(ir.BinOp(ir.Add, a.Min, b.Min))
		max := ir.Simplify(ir.BinOp(ir.Add, aMax, bMax))
		return spanOf(min, max)
	case ir.Sub:
		min := ir.Simplify(ir.BinOp(ir.Sub, a.Min, bMax))
		max := ir.Simplify(ir.BinOp(ir.Sub, aMax, b.Min))
		return spanOf(min, max)
	case ir.Mul:
		// Conservative corner-product widening; exact only when both
		// operands are non-negative over their whole interval.
		min := ir.Simplify(ir.BinOp(ir.Mul, a.Min, b.Min))
		max := ir.Simplify(ir.BinOp(ir.Mul, aMax, bMax))
		return spanOf(min, max)
	case ir.Min:
		return spanOf(ir.Simplify(ir.BinOp(ir.Min, a.Min, b.Min)), ir.Simplify(ir.BinOp(ir.Min, aMax, bMax)))
	case ir.Max:
		return spanOf(ir.Simplify(ir.BinOp(ir.Max, a.Min, b.Min)), ir.Simplify(ir.BinOp(ir.Max, aMax, bMax)))
	default:
		return spanOf(a.Min, aMax)
	}
}

func unionRange(a, b ir.Range) ir.Range {
	aMax, bMax := rangeMax(a), rangeMax(b)
	min := ir.Simplify(ir.BinOp(ir.Min, a.Min, b.Min))
	max := ir.Simplify(ir.BinOp(ir.Max, aMax, bMax))
	return spanOf(min, max)
}

func spanOf(min, max *ir.Expr) ir.Range {
	extent := ir.Simplify(ir.BinOp(ir.Add, ir.BinOp(ir.Sub, max, min), ir.IntConst(1)))
	return ir.Range{Min: min, Extent: extent}
}

// RequiredRegions computes, for f evaluated over domain (a scope
// binding each of f's args to an interval), the box every producer
// must supply. It is a worklist over the call graph: seed with f, and
// for every Call(Halide, producerName, args) discovered in a stage's
// value expressions, compute that producer's required box under the
// current scope and merge it into the result, then recurse into that
// producer's own definition.
func RequiredRegions(f *schedule.Function, domain map[string]ir.Range, env schedule.Env) Regions {
	regions := Regions{}
	type work struct {
		fn    *schedule.Function
		scope map[string]ir.Range
	}
	queue := []work{{f, domain}}
	visited := map[string]bool{}

	for len(queue) > 0 {
		w := queue[0]
		queue = queue[1:]

		allValues := append([]*ir.Expr{}, w.fn.Values...)
		for _, u := range w.fn.Updates {
			allValues = append(allValues, u.Values...)
			allValues = append(allValues, u.Args...)
		}

		producerCalls := map[string][]*ir.Expr{}
		for _, v := range allValues {
			ir.WalkExpr(v, ir.WalkHooks{Expr: func(e *ir.Expr) bool {
				if e.Kind == ir.Call && e.CallType == ir.CallHalide && e.Name != w.fn.Name {
					producerCalls[e.Name] = append(producerCalls[e.Name], e.Args...)
				}
				return true
			}})
		}

		for name, argExprs := range producerCalls {
			prod, ok := env[name]
			if !ok {
				continue
			}
			box := boxFromArgs(argExprs, len(prod.Args), w.scope)
			if existing, ok := regions[name]; ok {
				regions[name] = existing.Merge(box)
			} else {
				regions[name] = box
			}
			key := name + "#" + boxKey(box)
			if !visited[key] {
				visited[key] = true
				childScope := scopeFromBox(prod.Args, box)
				queue = append(queue, work{prod, childScope})
			}
		}
	}
	return regions
}

func boxFromArgs(argExprs []*ir.Expr, nargs int, scope map[string]ir.Range) Box {
	dims := make([]ir.Range, 0, nargs)
	// argExprs may contain multiple calls' worth of args concatenated;
	// group them back into nargs-sized tuples and merge dimension-wise.
	if nargs == 0 || len(argExprs)%nargs != 0 {
		for _, a := range argExprs {
			dims = append(dims, exprRange(a, scope))
		}
		return Box{Dims: dims}
	}
	merged := make([]ir.Range, nargs)
	set := false
	for i := 0; i+nargs <= len(argExprs); i += nargs {
		for d := 0; d < nargs; d++ {
			r := exprRange(argExprs[i+d], scope)
			if !set {
				merged[d] = r
			} else {
				merged[d] = unionRange(merged[d], r)
			}
		}
		set = true
	}
	return Box{Dims: merged}
}

func scopeFromBox(args []string, box Box) map[string]ir.Range {
	scope := map[string]ir.Range{}
	for i, a := range args {
		if i < len(box.Dims) {
			scope[a] = box.Dims[i]
		}
	}
	return scope
}

func boxKey(b Box) string {
	parts := lo.Map(b.Dims, func(r ir.Range, _ int) string {
		return ir.Simplify(r.Min).String() + ":" + ir.Simplify(r.Extent).String()
	})
	out := ""
	for _, p := range parts {
		out += p + ","
	}
	return out
}
