package ir

import "testing"

func TestSimplifyConstantFolding(t *testing.T) {
	tests := []struct {
		name string
		expr *Expr
		want int64
	}{
		{"add", BinOp(Add, IntConst(2), IntConst(3)), 5},
		{"sub", BinOp(Sub, IntConst(10), IntConst(4)), 6},
		{"mul_by_zero", BinOp(Mul, IntConst(0), VarExpr("x")), 0},
		{"mul_by_one", BinOp(Mul, IntConst(1), IntConst(7)), 7},
		{"floor_div_negative", BinOp(Div, IntConst(-7), IntConst(2)), -4},
		{"floor_mod_negative", BinOp(Mod, IntConst(-7), IntConst(2)), 1},
		{"min", BinOp(Min, IntConst(3), IntConst(5)), 3},
		{"max", BinOp(Max, IntConst(3), IntConst(5)), 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Simplify(tt.expr)
			if got.Kind != IntImm || got.IntValue != tt.want {
				t.Fatalf("Simplify(%v) = %v, want IntImm(%d)", tt.name, got, tt.want)
			}
		})
	}
}

func TestSimplifyAddZeroIdentity(t *testing.T) {
	e := BinOp(Add, VarExpr("x"), IntConst(0))
	got := Simplify(e)
	if got.Kind != Var || got.Name != "x" {
		t.Fatalf("Simplify(x+0) = %+v, want Var(x)", got)
	}
}

func TestSubstitute(t *testing.T) {
	e := BinOp(Add, VarExpr("x"), IntConst(1))
	got := Substitute(e, "x", IntConst(41))
	if Simplify(got).IntValue != 42 {
		t.Fatalf("Substitute+Simplify = %v, want 42", Simplify(got))
	}
}

func TestExprUsesVar(t *testing.T) {
	e := BinOp(Mul, VarExpr("xo"), IntConst(8))
	if !ExprUsesVar(e, "xo") {
		t.Fatal("expected ExprUsesVar(xo) to be true")
	}
	if ExprUsesVar(e, "yo") {
		t.Fatal("expected ExprUsesVar(yo) to be false")
	}
}

func TestUsesFunc(t *testing.T) {
	call := CallExpr("f", CallHalide, Int32Type, VarExpr("x"))
	provide := ProvideStmt("g", []*Expr{call}, []*Expr{VarExpr("x")})
	if !provide.UsesFunc("f") {
		t.Fatal("expected Provide(g, f(x)) to use f")
	}
	if provide.UsesFunc("h") {
		t.Fatal("expected Provide(g, f(x)) to not use h")
	}
}

func TestBlockStmtFlattensNested(t *testing.T) {
	inner := BlockStmt(EvaluateStmt(IntConst(1)), EvaluateStmt(IntConst(2)))
	outer := BlockStmt(inner, EvaluateStmt(IntConst(3)))
	if outer.Kind != StmtBlock || len(outer.Stmts) != 3 {
		t.Fatalf("expected flattened 3-stmt block, got %+v", outer)
	}
}

func TestBlockStmtSingleUnwraps(t *testing.T) {
	only := EvaluateStmt(IntConst(1))
	got := BlockStmt(only)
	if got != only {
		t.Fatalf("expected single-statement Block to unwrap to the statement itself")
	}
}

func TestMutatorDefaultRecursion(t *testing.T) {
	e := BinOp(Add, VarExpr("x"), VarExpr("y"))
	renamed := Substitute(Substitute(e, "x", VarExpr("xo")), "y", VarExpr("yo"))
	if renamed.A.Name != "xo" || renamed.B.Name != "yo" {
		t.Fatalf("default mutation did not recurse into both operands: %+v", renamed)
	}
}
