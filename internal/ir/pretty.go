package ir

import "strings"

// String renders s as an indented pseudo-code listing, the statement
// counterpart to Expr.String — used by `pipelinectl run` and
// cmd/scheduleadvisor to print the lowered statement.
func (s *Stmt) String() string {
	var b strings.Builder
	writeStmt(&b, s, 0)
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString("  ")
	}
}

func writeStmt(b *strings.Builder, s *Stmt, depth int) {
	if s == nil {
		return
	}
	indent(b, depth)
	switch s.Kind {
	case StmtFor:
		b.WriteString("for (" + s.Name + ", " + s.Min.String() + ", " + s.Extent.String() + ") " + s.ForType.String() + " {\n")
		writeStmt(b, s.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	case StmtLetStmt:
		b.WriteString("let " + s.Name + " = " + s.Value.String() + "\n")
		writeStmt(b, s.Body, depth)
	case StmtProvide:
		b.WriteString(s.FuncName + "(")
		for i, idx := range s.Index {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(idx.String())
		}
		b.WriteString(") = {")
		for i, v := range s.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v.String())
		}
		b.WriteString("}\n")
	case StmtRealize:
		b.WriteString("realize " + s.FuncName + " {\n")
		writeStmt(b, s.Body, depth+1)
		indent(b, depth)
		b.WriteString("}\n")
	case StmtProducerConsumer:
		b.WriteString("produce " + s.FuncName + " {\n")
		writeStmt(b, s.Produce, depth+1)
		if s.Update != nil {
			indent(b, depth)
			b.WriteString("update " + s.FuncName + " {\n")
			writeStmt(b, s.Update, depth+1)
			indent(b, depth)
			b.WriteString("}\n")
		}
		indent(b, depth)
		b.WriteString("}\n")
		writeStmt(b, s.Consume, depth)
	case StmtBlock:
		for _, c := range s.Stmts {
			writeStmt(b, c, depth)
		}
	case StmtIfThenElse:
		b.WriteString("if (" + s.Cond.String() + ") {\n")
		writeStmt(b, s.Then, depth+1)
		indent(b, depth)
		if s.Else != nil {
			b.WriteString("} else {\n")
			writeStmt(b, s.Else, depth+1)
			indent(b, depth)
		}
		b.WriteString("}\n")
	case StmtAssert:
		b.WriteString("assert(" + s.Cond.String() + ", " + s.Message.String() + ")\n")
	case StmtEvaluate:
		b.WriteString(s.Value.String() + "\n")
	default:
		b.WriteString("<invalid stmt>\n")
	}
}
