package ir

// WalkHooks are called on every Stmt/Expr node before descending into
// its children; returning false stops the walk from descending past
// that node (but sibling branches already queued still run).
type WalkHooks struct {
	Stmt func(*Stmt) bool
	Expr func(*Expr) bool
}

// Walk performs a read-only pre-order traversal of a statement tree,
// including every embedded Expr. It exists so passes like UsesFunc and
// the validator's use-site collector don't need their own ad hoc
// recursion.
func Walk(s *Stmt, h WalkHooks) {
	if s == nil {
		return
	}
	if h.Stmt != nil && !h.Stmt(s) {
		return
	}
	walkExprs(s, h)
	switch s.Kind {
	case StmtFor, StmtLetStmt:
		Walk(s.Body, h)
	case StmtRealize:
		Walk(s.Body, h)
	case StmtProducerConsumer:
		Walk(s.Produce, h)
		Walk(s.Update, h)
		Walk(s.Consume, h)
	case StmtBlock:
		for _, c := range s.Stmts {
			Walk(c, h)
		}
	case StmtIfThenElse:
		Walk(s.Then, h)
		Walk(s.Else, h)
	}
}

func walkExprs(s *Stmt, h WalkHooks) {
	if h.Expr == nil {
		return
	}
	switch s.Kind {
	case StmtFor:
		WalkExpr(s.Min, h)
		WalkExpr(s.Extent, h)
	case StmtLetStmt:
		WalkExpr(s.Value, h)
	case StmtProvide:
		for _, v := range s.Values {
			WalkExpr(v, h)
		}
		for _, a := range s.Index {
			WalkExpr(a, h)
		}
	case StmtRealize:
		WalkExpr(s.Condition, h)
		for _, b := range s.Bounds {
			WalkExpr(b.Min, h)
			WalkExpr(b.Extent, h)
		}
	case StmtIfThenElse:
		WalkExpr(s.Cond, h)
	case StmtAssert:
		WalkExpr(s.Cond, h)
		WalkExpr(s.Message, h)
	case StmtEvaluate:
		WalkExpr(s.Value, h)
	}
}

// WalkExpr performs a read-only pre-order traversal of an expression
// tree.
func WalkExpr(e *Expr, h WalkHooks) {
	if e == nil {
		return
	}
	if h.Expr != nil && !h.Expr(e) {
		return
	}
	WalkExpr(e.A, h)
	WalkExpr(e.B, h)
	WalkExpr(e.C, h)
	for _, a := range e.Args {
		WalkExpr(a, h)
	}
	WalkExpr(e.Value, h)
	WalkExpr(e.Body, h)
}

// Mutator rewrites a statement/expression tree. Each map supplies an
// override for one variant; any kind absent from the map falls back to
// DefaultMutateStmt/DefaultMutateExpr, which rebuilds the node with its
// children mutated. This is a per-variant override table used in place
// of a class-hierarchy-of-visitors design.
type Mutator struct {
	Stmt map[StmtKind]func(*Stmt, *Mutator) *Stmt
	Expr map[ExprKind]func(*Expr, *Mutator) *Expr
}

func (m *Mutator) MutateStmt(s *Stmt) *Stmt {
	if s == nil {
		return nil
	}
	if f, ok := m.Stmt[s.Kind]; ok {
		return f(s, m)
	}
	return m.DefaultMutateStmt(s)
}

func (m *Mutator) MutateExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	if f, ok := m.Expr[e.Kind]; ok {
		return f(e, m)
	}
	return m.DefaultMutateExpr(e)
}

// DefaultMutateStmt rebuilds s as a copy with every child mutated via
// m; it returns a new node even when nothing changed underneath.
func (m *Mutator) DefaultMutateStmt(s *Stmt) *Stmt {
	if s == nil {
		return nil
	}
	cp := *s
	switch s.Kind {
	case StmtFor:
		cp.Min = m.MutateExpr(s.Min)
		cp.Extent = m.MutateExpr(s.Extent)
		cp.Body = m.MutateStmt(s.Body)
	case StmtLetStmt:
		cp.Value = m.MutateExpr(s.Value)
		cp.Body = m.MutateStmt(s.Body)
	case StmtProvide:
		cp.Values = mutateExprSlice(s.Values, m)
		cp.Index = mutateExprSlice(s.Index, m)
	case StmtRealize:
		cp.Condition = m.MutateExpr(s.Condition)
		bounds := make([]Range, len(s.Bounds))
		for i, b := range s.Bounds {
			bounds[i] = Range{Min: m.MutateExpr(b.Min), Extent: m.MutateExpr(b.Extent)}
		}
		cp.Bounds = bounds
		cp.Body = m.MutateStmt(s.Body)
	case StmtProducerConsumer:
		cp.Produce = m.MutateStmt(s.Produce)
		cp.Update = m.MutateStmt(s.Update)
		cp.Consume = m.MutateStmt(s.Consume)
	case StmtBlock:
		stmts := make([]*Stmt, len(s.Stmts))
		for i, c := range s.Stmts {
			stmts[i] = m.MutateStmt(c)
		}
		cp.Stmts = stmts
	case StmtIfThenElse:
		cp.Cond = m.MutateExpr(s.Cond)
		cp.Then = m.MutateStmt(s.Then)
		cp.Else = m.MutateStmt(s.Else)
	case StmtAssert:
		cp.Cond = m.MutateExpr(s.Cond)
		cp.Message = m.MutateExpr(s.Message)
	case StmtEvaluate:
		cp.Value = m.MutateExpr(s.Value)
	}
	return &cp
}

// DefaultMutateExpr rebuilds e with every child mutated via m.
func (m *Mutator) DefaultMutateExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	cp := *e
	cp.A = m.MutateExpr(e.A)
	cp.B = m.MutateExpr(e.B)
	cp.C = m.MutateExpr(e.C)
	cp.Args = mutateExprSlice(e.Args, m)
	cp.Value = m.MutateExpr(e.Value)
	cp.Body = m.MutateExpr(e.Body)
	return &cp
}

func mutateExprSlice(in []*Expr, m *Mutator) []*Expr {
	if in == nil {
		return nil
	}
	out := make([]*Expr, len(in))
	for i, e := range in {
		out[i] = m.MutateExpr(e)
	}
	return out
}

// Substitute replaces every Var named name with replacement throughout
// e. It is the Expr-level primitive the loop-nest builder uses after
// every split/rename/fuse rewrite.
func Substitute(e *Expr, name string, replacement *Expr) *Expr {
	m := &Mutator{Expr: map[ExprKind]func(*Expr, *Mutator) *Expr{
		Var: func(v *Expr, m *Mutator) *Expr {
			if v.Name == name {
				return replacement
			}
			return v
		},
	}}
	return m.MutateExpr(e)
}

// SubstituteStmt applies Substitute to every Expr embedded in s.
func SubstituteStmt(s *Stmt, name string, replacement *Expr) *Stmt {
	exprMutator := &Mutator{Expr: map[ExprKind]func(*Expr, *Mutator) *Expr{
		Var: func(v *Expr, m *Mutator) *Expr {
			if v.Name == name {
				return replacement
			}
			return v
		},
	}}
	return exprMutator.MutateStmt(s)
}

// ExprUsesVar reports whether name appears as a free Var anywhere in e.
// Let-bound shadowing is ignored: the loop-nest builder never reuses a
// let name for an unrelated meaning, so a conservative "appears
// anywhere" check is sufficient.
func ExprUsesVar(e *Expr, name string) bool {
	found := false
	WalkExpr(e, WalkHooks{Expr: func(n *Expr) bool {
		if n.Kind == Var && n.Name == name {
			found = true
		}
		return !found
	}})
	return found
}
