package ir

// Simplify folds constants and applies a handful of algebraic identities.
// The loop-nest builder, splittree normalizer, and dependence analysis
// all call it to decide whether an extent divides a factor exactly or
// a box area is a constant, and nothing else in this module provides
// that service.
func Simplify(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case IntImm, FloatImm, Var:
		return e
	case Let:
		value := Simplify(e.Value)
		body := Simplify(Substitute(e.Body, e.Name, value))
		return body
	case Not:
		a := Simplify(e.A)
		if a.Kind == IntImm {
			if a.IntValue == 0 {
				return IntConst(1)
			}
			return IntConst(0)
		}
		return NotExpr(a)
	case Select:
		cond := Simplify(e.A)
		t := Simplify(e.B)
		f := Simplify(e.C)
		if cond.Kind == IntImm {
			if cond.IntValue != 0 {
				return t
			}
			return f
		}
		return SelectExpr(cond, t, f)
	case Call, Cast:
		cp := *e
		cp.A = Simplify(e.A)
		args := make([]*Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = Simplify(a)
		}
		cp.Args = args
		return &cp
	default:
		return simplifyBinary(e)
	}
}

func simplifyBinary(e *Expr) *Expr {
	a := Simplify(e.A)
	b := Simplify(e.B)

	if a.Kind == IntImm && b.Kind == IntImm {
		x, y := a.IntValue, b.IntValue
		switch e.Kind {
		case Add:
			return IntConst(x + y)
		case Sub:
			return IntConst(x - y)
		case Mul:
			return IntConst(x * y)
		case Div:
			if y != 0 {
				return IntConst(floorDiv(x, y))
			}
		case Mod:
			if y != 0 {
				return IntConst(floorMod(x, y))
			}
		case Min:
			if x < y {
				return IntConst(x)
			}
			return IntConst(y)
		case Max:
			if x > y {
				return IntConst(x)
			}
			return IntConst(y)
		case EQ:
			return boolConst(x == y)
		case NE:
			return boolConst(x != y)
		case LT:
			return boolConst(x < y)
		case LE:
			return boolConst(x <= y)
		case GT:
			return boolConst(x > y)
		case GE:
			return boolConst(x >= y)
		case And:
			return boolConst(x != 0 && y != 0)
		case Or:
			return boolConst(x != 0 || y != 0)
		}
	}

	switch e.Kind {
	case Add:
		if isZeroConst(a) {
			return b
		}
		if isZeroConst(b) {
			return a
		}
	case Sub:
		if isZeroConst(b) {
			return a
		}
		if a.Equal(b) {
			return IntConst(0)
		}
	case Mul:
		if isZeroConst(a) || isZeroConst(b) {
			return IntConst(0)
		}
		if isOneConst(a) {
			return b
		}
		if isOneConst(b) {
			return a
		}
	case Div:
		if isOneConst(b) {
			return a
		}
	case Min, Max:
		if a.Equal(b) {
			return a
		}
	}
	return BinOp(e.Kind, a, b)
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}

func boolConst(v bool) *Expr {
	if v {
		return &Expr{Kind: IntImm, Type: BoolType, IntValue: 1}
	}
	return &Expr{Kind: IntImm, Type: BoolType, IntValue: 0}
}

func isZeroConst(e *Expr) bool { return e.Kind == IntImm && e.IntValue == 0 }
func isOneConst(e *Expr) bool  { return e.Kind == IntImm && e.IntValue == 1 }

// IsZero reports whether e simplifies to the constant zero.
func IsZero(e *Expr) bool { return isZeroConst(Simplify(e)) }

// MakeZero returns the additive identity for typ.
func MakeZero(typ ValueType) *Expr {
	if typ.IsFloat {
		return &Expr{Kind: FloatImm, Type: typ}
	}
	return &Expr{Kind: IntImm, Type: typ}
}

// Likely wraps e in a hint intrinsic telling downstream bounds
// partitioning which branch of a clamp is the common case.
func Likely(e *Expr) *Expr {
	return CallExpr("likely", CallIntrinsic, e.Type, e)
}

// Qualify prefixes every free Var name in e that appears in names with
// prefix, used when lifting an update definition's unqualified
// variable references into its stage-prefixed namespace.
func Qualify(e *Expr, prefix string, names map[string]bool) *Expr {
	m := &Mutator{Expr: map[ExprKind]func(*Expr, *Mutator) *Expr{
		Var: func(v *Expr, m *Mutator) *Expr {
			if names[v.Name] {
				cp := *v
				cp.Name = prefix + v.Name
				return &cp
			}
			return v
		},
	}}
	return m.MutateExpr(e)
}
