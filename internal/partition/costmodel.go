// Package partition implements the auto-scheduler's grouping/tiling
// optimizer. Its cost-model shapes follow a DAG/tensor auto-scheduler's
// granularity, fusion, and evaluation passes, re-expressed against
// this project's Function/Schedule/Box types instead of a Tensor/Op
// model.
package partition

import (
	"github.com/samber/lo"

	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/dependence"
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// bytesPerElement returns the storage width of typ in bytes.
func bytesPerElement(typ ir.ValueType) int64 {
	bits := typ.Bits
	if bits <= 0 {
		bits = 32
	}
	return int64((bits + 7) / 8)
}

// RegionSize is region_size(name, box, env): area times per-element
// byte width.
func RegionSize(name string, box dependence.Box, env schedule.Env) int64 {
	area := box.Area()
	if area < 0 {
		return -1
	}
	f, ok := env[name]
	if !ok {
		return area * 4
	}
	return area * bytesPerElement(f.OutputType)
}

// HighWaterMark computes the peak live intermediate byte count across
// a realization order, incrementing by each region's size when it is
// produced and decrementing once its last consumer in the order has
// run.
func HighWaterMark(order []string, sizes map[string]int64, lastConsumerIndex map[string]int) int64 {
	var live, peak int64
	for i, name := range order {
		live += sizes[name]
		if live > peak {
			peak = live
		}
		for other, last := range lastConsumerIndex {
			if last == i {
				live -= sizes[other]
			}
		}
	}
	return peak
}

// opCount approximates the per-output-value operation count of f by
// counting non-leaf expression nodes in its pure value tuple, the
// stand-in for a real cost-per-value-computed model.
func opCount(f *schedule.Function) int64 {
	var count int64
	for _, v := range f.Values {
		ir.WalkExpr(v, ir.WalkHooks{Expr: func(e *ir.Expr) bool {
			switch e.Kind {
			case ir.IntImm, ir.FloatImm, ir.Var:
			default:
				count++
			}
			return true
		}})
	}
	if count == 0 {
		count = 1
	}
	return count
}

// RegionCost is region_cost(name, box) = area * per-value op count.
func RegionCost(name string, box dependence.Box, env schedule.Env) int64 {
	area := box.Area()
	if area < 0 {
		return -1
	}
	f, ok := env[name]
	if !ok {
		return area
	}
	return area * opCount(f)
}

// OverlapCost sums redundant areas times op-cost across the given
// producers' overlap regions, restricted to a subset of dimensions
// when dims is non-empty. Passing a nil
// dims slice considers every dimension of every producer's overlap box.
func OverlapCost(overlaps dependence.Regions, env schedule.Env, dims []int) int64 {
	var total int64
	for name, box := range overlaps {
		b := box
		if len(dims) > 0 {
			b = restrictDims(box, dims)
		}
		cost := RegionCost(name, b, env)
		if cost < 0 {
			return -1
		}
		total += cost
	}
	return total
}

func restrictDims(b dependence.Box, dims []int) dependence.Box {
	keep := map[int]bool{}
	for _, d := range dims {
		keep[d] = true
	}
	out := make([]ir.Range, len(b.Dims))
	for i, d := range b.Dims {
		if keep[i] {
			out[i] = d
		} else {
			out[i] = ir.Range{Min: ir.IntConst(0), Extent: ir.IntConst(1)}
		}
	}
	return dependence.Box{Dims: out}
}

// tooSmallToMerge reproduces a known inverted guard: the reference
// partitioner rejects a merge candidate when the producer's
// materialized output is smaller than fast memory, not larger, which
// reads backwards from the natural "small things are cheap to keep
// resident" intuition. Preserved as-is.
func tooSmallToMerge(prodOutSize int64, m config.MachineParams) bool {
	return prodOutSize < m.FastMemBytes
}

// Benefit implements the benefit formula given the
// merged intermediate size I, total memory traffic M, redundant work
// R, and the fast-memory/cost-balance machine parameters for this
// level.
func Benefit(intermediateSize, traffic, redundant int64, fastMem int64, balance float64) float64 {
	f := float64(fastMem)
	i := float64(intermediateSize)
	m := float64(traffic)
	r := float64(redundant)
	switch {
	case i <= f:
		return m*balance - r
	case i <= 2*f:
		hitRate := (2*f - i) / i
		if hitRate < 0 {
			hitRate = 0
		}
		return hitRate*m*balance - r
	default:
		return -1
	}
}

func totalTraffic(members []string, env schedule.Env, domains map[string]map[string]ir.Range) int64 {
	var total int64
	for _, name := range members {
		f, ok := env[name]
		if !ok {
			continue
		}
		domain, ok := domains[name]
		if !ok {
			continue
		}
		box := dependence.Box{Dims: lo.Map(f.Args, func(a string, _ int) ir.Range { return domain[a] })}
		size := RegionSize(name, box, env)
		if size < 0 {
			return -1
		}
		total += size
	}
	return total
}
