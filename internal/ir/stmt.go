package ir

// StmtKind tags which variant of Stmt is populated.
type StmtKind int

const (
	StmtInvalid StmtKind = iota
	StmtFor
	StmtLetStmt
	StmtProvide
	StmtRealize
	StmtProducerConsumer
	StmtBlock
	StmtIfThenElse
	StmtAssert
	StmtEvaluate
)

func (k StmtKind) String() string {
	switch k {
	case StmtFor:
		return "For"
	case StmtLetStmt:
		return "LetStmt"
	case StmtProvide:
		return "Provide"
	case StmtRealize:
		return "Realize"
	case StmtProducerConsumer:
		return "ProducerConsumer"
	case StmtBlock:
		return "Block"
	case StmtIfThenElse:
		return "IfThenElse"
	case StmtAssert:
		return "AssertStmt"
	case StmtEvaluate:
		return "Evaluate"
	default:
		return "Invalid"
	}
}

// ForType is the kind of iteration a For loop performs at runtime.
type ForType int

const (
	Serial ForType = iota
	Parallel
	Vectorized
	Unrolled
)

func (f ForType) String() string {
	switch f {
	case Parallel:
		return "Parallel"
	case Vectorized:
		return "Vectorized"
	case Unrolled:
		return "Unrolled"
	default:
		return "Serial"
	}
}

func (f ForType) IsParallel() bool { return f == Parallel || f == Vectorized }

// DeviceAPI names the device a For loop (or its body) executes on.
// DeviceParent means "inherit from the enclosing loop", resolved by
// the cleanup pass's device propagation walk.
type DeviceAPI int

const (
	DeviceHost DeviceAPI = iota
	DeviceParent
	DeviceGPU
)

// Range is a symbolic half-open-by-extent interval used in Realize
// bounds and in dependence-analysis boxes.
type Range struct {
	Min    *Expr
	Extent *Expr
}

// Stmt is the statement sum type lowered by the loop-nest builder and
// mutated by the realization injector and cleanup passes.
type Stmt struct {
	Kind StmtKind

	// For, LetStmt: Name is the loop/let variable.
	Name string

	// For
	Min, Extent *Expr
	ForType     ForType
	Device      DeviceAPI

	// LetStmt
	Value *Expr

	// shared body for For, LetStmt
	Body *Stmt

	// Provide
	FuncName string
	Values   []*Expr
	Index    []*Expr

	// Realize
	Types     []ValueType
	Bounds    []Range
	Condition *Expr

	// ProducerConsumer
	Produce *Stmt
	Update  *Stmt
	Consume *Stmt

	// Block
	Stmts []*Stmt

	// IfThenElse
	Then *Stmt
	Else *Stmt

	// AssertStmt
	Cond    *Expr
	Message *Expr
}

func ForStmt(name string, min, extent *Expr, ft ForType, dev DeviceAPI, body *Stmt) *Stmt {
	return &Stmt{Kind: StmtFor, Name: name, Min: min, Extent: extent, ForType: ft, Device: dev, Body: body}
}

func LetStmtNode(name string, value *Expr, body *Stmt) *Stmt {
	return &Stmt{Kind: StmtLetStmt, Name: name, Value: value, Body: body}
}

func ProvideStmt(funcName string, values, index []*Expr) *Stmt {
	return &Stmt{Kind: StmtProvide, FuncName: funcName, Values: values, Index: index}
}

func RealizeStmt(funcName string, types []ValueType, bounds []Range, cond *Expr, body *Stmt) *Stmt {
	return &Stmt{Kind: StmtRealize, FuncName: funcName, Types: types, Bounds: bounds, Condition: cond, Body: body}
}

func ProducerConsumerStmt(funcName string, produce, update, consume *Stmt) *Stmt {
	return &Stmt{Kind: StmtProducerConsumer, FuncName: funcName, Produce: produce, Update: update, Consume: consume}
}

// BlockStmt flattens nil and nested-Block children the way the
// builder's container-resorting step expects a clean linear sequence.
func BlockStmt(stmts ...*Stmt) *Stmt {
	var flat []*Stmt
	for _, s := range stmts {
		if s == nil {
			continue
		}
		if s.Kind == StmtBlock {
			flat = append(flat, s.Stmts...)
			continue
		}
		flat = append(flat, s)
	}
	if len(flat) == 1 {
		return flat[0]
	}
	return &Stmt{Kind: StmtBlock, Stmts: flat}
}

func IfThenElseStmt(cond *Expr, then, els *Stmt) *Stmt {
	return &Stmt{Kind: StmtIfThenElse, Cond: cond, Then: then, Else: els}
}

func AssertStmtNode(cond *Expr, message *Expr) *Stmt {
	return &Stmt{Kind: StmtAssert, Cond: cond, Message: message}
}

func EvaluateStmt(value *Expr) *Stmt { return &Stmt{Kind: StmtEvaluate, Value: value} }

// UsesFunc reports whether name is referenced by a Call or a Provide
// anywhere within s, used by the injector and validator to find
// use-sites without a full visitor allocation.
func (s *Stmt) UsesFunc(name string) bool {
	found := false
	Walk(s, WalkHooks{
		Stmt: func(n *Stmt) bool {
			if n.Kind == StmtProvide && n.FuncName == name {
				found = true
			}
			return !found
		},
		Expr: func(e *Expr) bool {
			if e.Kind == Call && e.Name == name {
				found = true
			}
			return !found
		},
	})
	return found
}
