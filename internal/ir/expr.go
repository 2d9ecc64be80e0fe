// Package ir defines the pure-value and statement intermediate
// representation produced by the loop-nest builder and consumed by the
// realization injector, validator, and cleanup passes.
//
// Both Expr and Stmt are sum types expressed as a single struct per
// kind with a Kind tag selecting which fields are meaningful, the same
// shape a smaller op-tree IR would use for a single Kind enum plus a
// struct-of-variant-fields layout.
package ir

// ExprKind tags which variant of Expr is populated.
type ExprKind int

const (
	Invalid ExprKind = iota
	IntImm
	FloatImm
	Var
	Add
	Sub
	Mul
	Div
	Mod
	Min
	Max
	EQ
	NE
	LT
	LE
	GT
	GE
	And
	Or
	Not
	Select
	Call
	Cast
	Let
)

func (k ExprKind) String() string {
	switch k {
	case IntImm:
		return "IntImm"
	case FloatImm:
		return "FloatImm"
	case Var:
		return "Var"
	case Add:
		return "Add"
	case Sub:
		return "Sub"
	case Mul:
		return "Mul"
	case Div:
		return "Div"
	case Mod:
		return "Mod"
	case Min:
		return "Min"
	case Max:
		return "Max"
	case EQ:
		return "EQ"
	case NE:
		return "NE"
	case LT:
		return "LT"
	case LE:
		return "LE"
	case GT:
		return "GT"
	case GE:
		return "GE"
	case And:
		return "And"
	case Or:
		return "Or"
	case Not:
		return "Not"
	case Select:
		return "Select"
	case Call:
		return "Call"
	case Cast:
		return "Cast"
	case Let:
		return "Let"
	default:
		return "Invalid"
	}
}

// CallType distinguishes the kinds of Call an Expr may represent.
type CallType int

const (
	CallHalide CallType = iota
	CallExtern
	CallIntrinsic
	CallImage
)

// ValueType is the scalar type carried by a realized buffer or an Expr.
type ValueType struct {
	Bits    int
	IsFloat bool
}

var (
	Int32Type   = ValueType{Bits: 32}
	Int64Type   = ValueType{Bits: 64}
	Float32Type = ValueType{Bits: 32, IsFloat: true}
	Float64Type = ValueType{Bits: 64, IsFloat: true}
	BoolType    = ValueType{Bits: 1}
)

// Expr is the pure-value expression sum type. Binary/unary operators use
// A and B (B unused for unary Not and Cast); Select uses A/B/C as
// cond/true/false; Call uses Name, CallType, and Args; Let uses Name,
// Value (bound value), and Body (the expression in scope).
type Expr struct {
	Kind ExprKind
	Type ValueType

	IntValue   int64
	FloatValue float64
	Name       string

	A, B, C *Expr

	CallType CallType
	Args     []*Expr

	Value *Expr
	Body  *Expr
}

func IntConst(v int64) *Expr  { return &Expr{Kind: IntImm, Type: Int32Type, IntValue: v} }
func FloatConst(v float64) *Expr {
	return &Expr{Kind: FloatImm, Type: Float32Type, FloatValue: v}
}
func VarExpr(name string) *Expr { return &Expr{Kind: Var, Type: Int32Type, Name: name} }

func BinOp(kind ExprKind, a, b *Expr) *Expr { return &Expr{Kind: kind, Type: a.Type, A: a, B: b} }

func NotExpr(a *Expr) *Expr { return &Expr{Kind: Not, Type: BoolType, A: a} }

func SelectExpr(cond, t, f *Expr) *Expr { return &Expr{Kind: Select, Type: t.Type, A: cond, B: t, C: f} }

func CallExpr(name string, ct CallType, typ ValueType, args ...*Expr) *Expr {
	return &Expr{Kind: Call, Type: typ, Name: name, CallType: ct, Args: args}
}

func CastExpr(typ ValueType, a *Expr) *Expr { return &Expr{Kind: Cast, Type: typ, A: a} }

func LetExpr(name string, value, body *Expr) *Expr {
	return &Expr{Kind: Let, Type: body.Type, Name: name, Value: value, Body: body}
}

// IsConst reports whether e is a numeric literal.
func (e *Expr) IsConst() bool {
	return e != nil && (e.Kind == IntImm || e.Kind == FloatImm)
}

// String renders e in a small S-expression-like form, used for debug
// output and as a stable dedup key by the dependence-analysis worklist.
func (e *Expr) String() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case IntImm:
		return itoaExpr(e.IntValue)
	case FloatImm:
		return ftoaExpr(e.FloatValue)
	case Var:
		return e.Name
	case Call:
		s := e.Name + "("
		for i, a := range e.Args {
			if i > 0 {
				s += ", "
			}
			s += a.String()
		}
		return s + ")"
	case Select:
		return "select(" + e.A.String() + ", " + e.B.String() + ", " + e.C.String() + ")"
	case Not:
		return "!" + e.A.String()
	case Cast:
		return "cast(" + e.A.String() + ")"
	case Let:
		return "let " + e.Name + " = " + e.Value.String() + " in " + e.Body.String()
	default:
		return "(" + e.A.String() + " " + e.Kind.String() + " " + e.B.String() + ")"
	}
}

func itoaExpr(n int64) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [24]byte
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

func ftoaExpr(f float64) string {
	// Sufficient precision for use as a dedup key; not intended for
	// display to end users.
	neg := f < 0
	if neg {
		f = -f
	}
	whole := int64(f)
	frac := int64((f - float64(whole)) * 1e6)
	s := itoaExpr(whole) + "." + itoaExpr(frac)
	if neg {
		return "-" + s
	}
	return s
}

// Equal performs a structural equality check over Kind, literal value,
// Name and, recursively, the A/B/C operands (Call arguments and Let
// values/bodies are not compared). Simplify uses it to recognize
// identical operands.
func (e *Expr) Equal(o *Expr) bool {
	if e == nil || o == nil {
		return e == o
	}
	if e.Kind != o.Kind {
		return false
	}
	switch e.Kind {
	case IntImm:
		return e.IntValue == o.IntValue
	case FloatImm:
		return e.FloatValue == o.FloatValue
	case Var:
		return e.Name == o.Name
	default:
		return e.A.Equal(o.A) && e.B.Equal(o.B) && e.C.Equal(o.C) && e.Name == o.Name
	}
}
