// Package schedule holds the pipeline data model: Function definitions,
// their per-stage Schedule, and the small value types (Dim, Split,
// LoopLevel, Bound) a Schedule is built from. It generalizes an
// IRFunction/IRParam-style parameter list shape from "one function's
// operations" to "one pipeline stage's loop nest".
package schedule

import "github.com/loopnest-sched/scheduler/internal/ir"

// ForType mirrors ir.ForType at the schedule level so callers building
// a Dim don't need to import the ir package just to name Serial.
type ForType = ir.ForType

const (
	Serial     = ir.Serial
	Parallel   = ir.Parallel
	Vectorized = ir.Vectorized
	Unrolled   = ir.Unrolled
)

// OutermostVar is the synthetic sentinel dim appended to every Dim
// list; it represents "outside all real loops" and is
// stripped by the cleanup pass.
const OutermostVar = "__outermost"

// Dim is one loop dimension of a stage's schedule.
type Dim struct {
	Var     string
	ForType ForType
	Device  ir.DeviceAPI
	Pure    bool
}

// SplitKind tags which variant of Split is populated.
type SplitKind int

const (
	SplitVar SplitKind = iota
	Rename
	FuseVars
)

// Split is one entry of a stage's split-tree. Old is
// the variable it consumes; the produced variable(s) depend on Kind:
//
//	SplitVar: Old -> Outer, Inner (by Factor)
//	Rename:   Old -> Outer
//	FuseVars: Inner, Outer -> Old
type Split struct {
	Kind    SplitKind
	Old     string
	Outer   string
	Inner   string
	Factor  *ir.Expr
	Exact   bool
	Partial bool
}

// Bound is an explicit (var, min, extent) declared via Function.Bound,
// consulted by the loop-nest builder and by
// the supplemented explicit-bounds assertion pass.
type Bound struct {
	Var    string
	Min    *ir.Expr
	Extent *ir.Expr
}

// LoopLevelKind tags which variant of LoopLevel is populated.
type LoopLevelKind int

const (
	LevelInline LoopLevelKind = iota
	LevelRoot
	LevelAt
)

// LoopLevel names where a function is computed or stored: inline (fused
// into every use site), root (its own outermost realization), or a
// specific (function, var) pair naming an enclosing loop of another
// stage. Root's canonical (Func, Var) pair is ("", "__root") so that
// loop-level equality is a single struct comparison.
type LoopLevel struct {
	Kind LoopLevelKind
	Func string
	Var  string
}

func Inline() LoopLevel        { return LoopLevel{Kind: LevelInline} }
func Root() LoopLevel          { return LoopLevel{Kind: LevelRoot, Func: "", Var: "__root"} }
func At(fn, v string) LoopLevel { return LoopLevel{Kind: LevelAt, Func: fn, Var: v} }

// Match reports whether two loop levels name the same place. The root
// level additionally matches any loop named by the synthetic outermost
// var (OutermostVar, emitted both as the driver's own wrapper loop and
// as the trailing sentinel dim of every function's own nest), since
// both represent "no enclosing user loop".
func (l LoopLevel) Match(o LoopLevel) bool {
	if l.Kind == LevelInline && o.Kind == LevelInline {
		return true
	}
	if isRootLike(l) && isRootLike(o) {
		return true
	}
	return l.Kind == o.Kind && l.Func == o.Func && l.Var == o.Var
}

func isRootLike(l LoopLevel) bool {
	if l.Kind == LevelRoot {
		return true
	}
	return l.Kind == LevelAt && (l.Var == OutermostVar || l.Var == "__root")
}

func (l LoopLevel) IsInline() bool { return l.Kind == LevelInline }
func (l LoopLevel) IsRoot() bool   { return l.Kind == LevelRoot }

// Specialization holds one (condition, nested schedule) branch.
type Specialization struct {
	Condition *ir.Expr
	Schedule  *Schedule
}

// ReductionDomain names the RVars of an update definition together
// with an optional predicate restricting which tuples participate.
type ReductionDomain struct {
	Vars      []Bound
	Predicate *ir.Expr
}

// Schedule is the per-stage scheduling directive set.
type Schedule struct {
	Dims            []Dim
	Splits          []Split
	Bounds          []Bound
	Specializations []Specialization
	StoreLevel      LoopLevel
	ComputeLevel    LoopLevel
	Memoized        bool
}

// NewSchedule returns a Schedule with a single pure dim per arg plus
// the synthetic outermost dim, both compute/store levels inline, and
// no splits — the default a fresh Function starts with before the
// user (or the auto-scheduler) touches it.
func NewSchedule(args []string) *Schedule {
	dims := make([]Dim, 0, len(args)+1)
	for _, a := range args {
		dims = append(dims, Dim{Var: a, ForType: Serial, Pure: true})
	}
	dims = append(dims, Dim{Var: OutermostVar, ForType: Serial, Pure: true})
	return &Schedule{
		Dims:         dims,
		StoreLevel:   Inline(),
		ComputeLevel: Inline(),
	}
}

// DimIndex returns the index of the named dim, or -1.
func (s *Schedule) DimIndex(v string) int {
	for i, d := range s.Dims {
		if d.Var == v {
			return i
		}
	}
	return -1
}

// InnermostNonTrivial returns the index of the first dim (Dims are
// stored innermost-first, so index 0 is the innermost loop) that is
// not Vectorized/Unrolled, or -1 if there is none. Used by the split
// base-clamp likely-hint rule.
func (s *Schedule) InnermostNonTrivial() int {
	for i := 0; i < len(s.Dims); i++ {
		if s.Dims[i].ForType != Vectorized && s.Dims[i].ForType != Unrolled {
			return i
		}
	}
	return -1
}

// Definition is one update definition of a Function: its own argument
// tuple, value tuple, optional reduction domain, and Schedule.
type Definition struct {
	Args      []*ir.Expr
	Values    []*ir.Expr
	Reduction *ReductionDomain
	Schedule  *Schedule
}

// ExternArg names one positional argument of an extern binding: either
// a reference to an input Function/Buffer by name, or a literal
// expression.
type ExternArg struct {
	FuncName string
	Literal  *ir.Expr
}

// Function is a named, multi-output array producer.
type Function struct {
	Name       string
	Args       []string
	Values     []*ir.Expr
	Updates    []Definition
	Schedule   *Schedule
	IsOutput   bool
	IsExtern   bool
	ExternName string
	ExternArgs []ExternArg
	OutputType ir.ValueType
}

// NewFunction constructs a pure Function with a fresh default Schedule.
func NewFunction(name string, args []string, values []*ir.Expr) *Function {
	return &Function{
		Name:       name,
		Args:       args,
		Values:     values,
		Schedule:   NewSchedule(args),
		OutputType: ir.Int32Type,
	}
}

// StagePrefix returns the naming prefix for stage k of f. Stage 0 is
// the initial definition; stage i+1 is update i.
func (f *Function) StagePrefix(stage int) string {
	return f.Name + ".s" + itoa(stage) + "."
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// StageSchedule returns the Schedule governing stage index k (0 = pure
// definition, i+1 = update i).
func (f *Function) StageSchedule(stage int) *Schedule {
	if stage == 0 {
		return f.Schedule
	}
	return f.Updates[stage-1].Schedule
}

// NumStages returns 1 + len(Updates).
func (f *Function) NumStages() int { return 1 + len(f.Updates) }

// Env maps function names to their definitions, the sole mutable
// shared state during compilation.
type Env map[string]*Function
