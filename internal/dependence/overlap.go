package dependence

import (
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// RedundantRegions measures, for each producer of f, how much of its
// required region is shared between a tile of f and the adjacent tile
// along dimension d: it intersects the region required by the
// original domain with the region required by the domain shifted one
// tile-extent along d.
//
// Each producer key of the original required-region set is looked up
// in the shifted set; a producer absent from the shifted set is
// treated as contributing zero overlap along this axis (it gets no
// entry) rather than as an error. This is the resolution of the
// original scheduler's `regions_shifted.find(...) == regions.end()`
// comparison noted in SPEC_FULL.md §9.
func RedundantRegions(f *schedule.Function, domain map[string]ir.Range, dimIndex int, env schedule.Env) Regions {
	required := RequiredRegions(f, domain, env)

	shifted := RequiredRegions(f, shiftDomain(f.Args, domain, dimIndex), env)

	overlap := Regions{}
	for name, box := range required {
		shiftedBox, ok := shifted[name]
		if !ok {
			// See doc comment: absent-from-shifted is zero overlap, not
			// a lookup error.
			continue
		}
		overlap[name] = box.Intersect(shiftedBox)
	}
	return overlap
}

func shiftDomain(args []string, domain map[string]ir.Range, dimIndex int) map[string]ir.Range {
	out := make(map[string]ir.Range, len(domain))
	for k, v := range domain {
		out[k] = v
	}
	if dimIndex < 0 || dimIndex >= len(args) {
		return out
	}
	v := args[dimIndex]
	r := out[v]
	out[v] = ir.Range{Min: ir.Simplify(ir.BinOp(ir.Add, r.Min, r.Extent)), Extent: r.Extent}
	return out
}
