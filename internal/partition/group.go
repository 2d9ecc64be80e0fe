package partition

import (
	"github.com/loopnest-sched/scheduler/internal/config"
	"github.com/loopnest-sched/scheduler/internal/dependence"
	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// Level names the two merge passes the grouping loop runs: INLINE
// first, then FAST_MEM.
type Level int

const (
	LevelInline Level = iota
	LevelFastMem
)

// tileWidths are the candidate outer-tile widths enumerated at
// FAST_MEM level.
var tileWidths = []int64{256, 128, 64, 32, 16, 8}

// Group is a set of functions scheduled to realize together.
type Group struct {
	Members []string // realization order, producer-before-consumer
	Output  string   // the group's outward-facing function
}

// Option is one evaluated merge candidate.
type Option struct {
	Producer      string
	Consumer      string
	Level         Level
	TileSizes     []int64
	Benefit       float64
	RedundantWork int64
}

// Partitioner runs the grouping loop over an Env, using
// dependence.RequiredRegions/RedundantRegions as its footprint oracle.
type Partitioner struct {
	Env              schedule.Env
	Machine          config.MachineParams
	RealizationOrder []string
	Domains          map[string]map[string]ir.Range // per-function default arg domain

	groupOf map[string]*Group
	inlines map[string]bool
	options map[string]*Option
	cache   map[string]*Option
}

// NewPartitioner builds a Partitioner with every function starting in
// its own singleton group.
func NewPartitioner(env schedule.Env, order []string, domains map[string]map[string]ir.Range, m config.MachineParams) *Partitioner {
	p := &Partitioner{
		Env:              env,
		Machine:          m,
		RealizationOrder: order,
		Domains:          domains,
		groupOf:          map[string]*Group{},
		inlines:          map[string]bool{},
		options:          map[string]*Option{},
		cache:            map[string]*Option{},
	}
	for _, name := range order {
		g := &Group{Members: []string{name}, Output: name}
		p.groupOf[name] = g
	}
	return p
}

// Run executes the two-level grouping loop and returns the surviving
// groups keyed by their output function, together with the winning
// FAST_MEM tiling Option recorded for each group's output (absent for
// groups that never merged at FAST_MEM level).
func (p *Partitioner) Run() (map[string]*Group, map[string]*Option) {
	p.runLevel(LevelInline)
	p.runLevel(LevelFastMem)
	out := map[string]*Group{}
	seen := map[*Group]bool{}
	for _, g := range p.groupOf {
		if seen[g] {
			continue
		}
		seen[g] = true
		out[g.Output] = g
	}
	return out, p.options
}

func (p *Partitioner) runLevel(level Level) {
	for {
		best, ok := p.bestCandidate(level)
		if !ok || best.Benefit <= 0 {
			return
		}
		p.merge(best)
		p.invalidate(best.Producer, best.Consumer)
	}
}

// singleConsumerPairs finds (producer, consumer) pairs where producer
// has exactly one consumer group among the current groups.
func (p *Partitioner) singleConsumerPairs() [][2]string {
	consumerGroups := map[string]map[*Group]bool{}
	for _, name := range p.RealizationOrder {
		f, ok := p.Env[name]
		if !ok {
			continue
		}
		for _, v := range f.Values {
			ir.WalkExpr(v, ir.WalkHooks{Expr: func(e *ir.Expr) bool {
				if e.Kind == ir.Call && e.CallType == ir.CallHalide {
					if consumerGroups[e.Name] == nil {
						consumerGroups[e.Name] = map[*Group]bool{}
					}
					consumerGroups[e.Name][p.groupOf[name]] = true
				}
				return true
			}})
		}
	}
	var pairs [][2]string
	for prod, groups := range consumerGroups {
		if len(groups) != 1 {
			continue
		}
		if p.groupOf[prod] == nil {
			continue
		}
		for g := range groups {
			if g == p.groupOf[prod] {
				continue
			}
			pairs = append(pairs, [2]string{prod, g.Output})
		}
	}
	return pairs
}

func (p *Partitioner) bestCandidate(level Level) (*Option, bool) {
	var best *Option
	for _, pair := range p.singleConsumerPairs() {
		key := level.key(pair[0], pair[1])
		opt, ok := p.cache[key]
		if !ok {
			opt = p.evaluate(pair[0], pair[1], level)
			p.cache[key] = opt
		}
		if opt == nil {
			continue
		}
		if best == nil || opt.Benefit > best.Benefit {
			best = opt
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

func (l Level) key(prod, cons string) string {
	if l == LevelInline {
		return "inline:" + prod + ">" + cons
	}
	return "fastmem:" + prod + ">" + cons
}

// evaluate scores merging producer into consumer's group at level.
func (p *Partitioner) evaluate(producer, consumer string, level Level) *Option {
	consGroup := p.groupOf[consumer]
	consFn, ok := p.Env[consumer]
	if !ok {
		return nil
	}
	domain := p.Domains[consumer]
	if domain == nil {
		return nil
	}
	scope := make(map[string]ir.Range, len(consFn.Args))
	for k, v := range domain {
		scope[k] = v
	}

	if level == LevelInline {
		box := dependence.Box{}
		for _, a := range consFn.Args {
			box.Dims = append(box.Dims, scope[a])
		}
		required := dependence.RequiredRegions(consFn, scope, p.Env)
		prodBox, ok := required[producer]
		if !ok {
			return nil
		}
		redundant := int64(0)
		for i := range consFn.Args {
			ov := dependence.RedundantRegions(consFn, scope, i, p.Env)
			redundant += OverlapCost(dependence.Regions{producer: ov[producer]}, p.Env, nil)
		}
		size := RegionSize(producer, prodBox, p.Env)
		traffic := totalTraffic(append(append([]string{}, consGroup.Members...), producer), p.Env, p.Domains)
		benefit := Benefit(size, traffic, redundant, p.Machine.InlineFastMemBytes, p.Machine.CostBalanceInline)
		return &Option{Producer: producer, Consumer: consumer, Level: level, TileSizes: []int64{1}, Benefit: benefit, RedundantWork: redundant}
	}

	// FAST_MEM: try successively smaller outer-tile widths (256 down to
	// 8) on the consumer's last argument and keep the best
	// positive-benefit one.
	var best *Option
	for _, width := range tileWidths {
		tiled := tiledScope(scope, consFn.Args, width)
		required := dependence.RequiredRegions(consFn, tiled, p.Env)
		prodBox, ok := required[producer]
		if !ok {
			continue
		}
		size := RegionSize(producer, prodBox, p.Env)
		if size < 0 || tooSmallToMerge(size, p.Machine) {
			continue
		}
		redundant := int64(0)
		for i := range consFn.Args {
			ov := dependence.RedundantRegions(consFn, tiled, i, p.Env)
			redundant += OverlapCost(dependence.Regions{producer: ov[producer]}, p.Env, nil)
		}
		traffic := totalTraffic(append(append([]string{}, consGroup.Members...), producer), p.Env, p.Domains)
		benefit := Benefit(size, traffic, redundant, p.Machine.FastMemBytes, p.Machine.CostBalanceFastMem)
		if !p.enoughTiles(consFn, tiled, domain) {
			continue
		}
		if best == nil || benefit > best.Benefit {
			best = &Option{Producer: producer, Consumer: consumer, Level: level, TileSizes: []int64{width}, Benefit: benefit, RedundantWork: redundant}
		}
	}
	return best
}

func tiledScope(scope map[string]ir.Range, args []string, width int64) map[string]ir.Range {
	out := make(map[string]ir.Range, len(scope))
	for k, v := range scope {
		out[k] = v
	}
	if len(args) == 0 {
		return out
	}
	inner := args[len(args)-1]
	r := out[inner]
	extent := ir.Simplify(r.Extent)
	if extent.Kind == ir.IntImm && extent.IntValue > width {
		out[inner] = ir.Range{Min: r.Min, Extent: ir.IntConst(width)}
	}
	return out
}

func (p *Partitioner) enoughTiles(f *schedule.Function, tiled map[string]ir.Range, full map[string]ir.Range) bool {
	if len(f.Args) == 0 {
		return true
	}
	outer := f.Args[len(f.Args)-1]
	tileExtent := ir.Simplify(tiled[outer].Extent)
	fullExtent := ir.Simplify(full[outer].Extent)
	if tileExtent.Kind != ir.IntImm || fullExtent.Kind != ir.IntImm || tileExtent.IntValue == 0 {
		return true
	}
	tileCount := fullExtent.IntValue / tileExtent.IntValue
	return tileCount >= int64(p.Machine.Parallelism)
}

func (p *Partitioner) merge(opt *Option) {
	prodGroup := p.groupOf[opt.Producer]
	consGroup := p.groupOf[opt.Consumer]
	if prodGroup == consGroup {
		return
	}
	merged := &Group{Output: consGroup.Output, Members: append(append([]string{}, prodGroup.Members...), consGroup.Members...)}
	for _, m := range merged.Members {
		p.groupOf[m] = merged
	}
	if opt.Level == LevelInline {
		p.inlines[opt.Producer] = true
		if f, ok := p.Env[opt.Producer]; ok {
			f.Schedule.StoreLevel = schedule.Inline()
			f.Schedule.ComputeLevel = schedule.Inline()
		}
	} else {
		p.options[merged.Output] = opt
	}
}

func (p *Partitioner) invalidate(a, b string) {
	for k := range p.cache {
		delete(p.cache, k)
	}
}

// Inlined reports whether name was folded inline by the grouping loop.
func (p *Partitioner) Inlined(name string) bool { return p.inlines[name] }
