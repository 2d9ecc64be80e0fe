// Package cleanup runs the two final passes over the lowered IR: strip
// the synthetic outermost loops introduced by the loop-nest builder,
// and propagate device tags down through Parent-tagged loops. This is
// component F of the scheduling core.
package cleanup

import (
	"strings"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// StripOutermost removes every For whose name ends in ".__outermost",
// replacing it with its body, and rewrites references to that loop's
// loop_extent/loop_min/loop_max lets to their known constant values.
func StripOutermost(s *ir.Stmt) *ir.Stmt {
	m := &ir.Mutator{Stmt: map[ir.StmtKind]func(*ir.Stmt, *ir.Mutator) *ir.Stmt{
		ir.StmtFor: func(n *ir.Stmt, m *ir.Mutator) *ir.Stmt {
			body := m.MutateStmt(n.Body)
			if strings.HasSuffix(n.Name, "."+schedule.OutermostVar) || n.Name == schedule.OutermostVar {
				return body
			}
			cp := *n
			cp.Body = body
			return &cp
		},
		ir.StmtLetStmt: func(n *ir.Stmt, m *ir.Mutator) *ir.Stmt {
			body := m.MutateStmt(n.Body)
			if strings.Contains(n.Name, schedule.OutermostVar) {
				return body
			}
			cp := *n
			cp.Body = body
			return &cp
		},
	}}
	out := m.MutateStmt(s)

	exprMutator := &ir.Mutator{Expr: map[ir.ExprKind]func(*ir.Expr, *ir.Mutator) *ir.Expr{
		ir.Var: func(e *ir.Expr, _ *ir.Mutator) *ir.Expr {
			switch {
			case strings.HasSuffix(e.Name, schedule.OutermostVar+".loop_extent"):
				return ir.IntConst(1)
			case strings.HasSuffix(e.Name, schedule.OutermostVar+".loop_min"):
				return ir.IntConst(0)
			case strings.HasSuffix(e.Name, schedule.OutermostVar+".loop_max"):
				return ir.IntConst(1)
			default:
				return e
			}
		},
	}}
	return exprMutator.MutateStmt(out)
}

// PropagateDevice walks the tree carrying a "current device" that
// starts at Host; a For tagged DeviceParent inherits it, any other tag
// sets it for the loop's body.
func PropagateDevice(s *ir.Stmt) *ir.Stmt {
	return propagate(s, ir.DeviceHost)
}

func propagate(s *ir.Stmt, current ir.DeviceAPI) *ir.Stmt {
	if s == nil {
		return nil
	}
	switch s.Kind {
	case ir.StmtFor:
		cp := *s
		dev := s.Device
		if dev == ir.DeviceParent {
			dev = current
		}
		cp.Device = dev
		cp.Body = propagate(s.Body, dev)
		return &cp
	case ir.StmtLetStmt:
		cp := *s
		cp.Body = propagate(s.Body, current)
		return &cp
	case ir.StmtRealize:
		cp := *s
		cp.Body = propagate(s.Body, current)
		return &cp
	case ir.StmtProducerConsumer:
		cp := *s
		cp.Produce = propagate(s.Produce, current)
		cp.Update = propagate(s.Update, current)
		cp.Consume = propagate(s.Consume, current)
		return &cp
	case ir.StmtBlock:
		cp := *s
		stmts := make([]*ir.Stmt, len(s.Stmts))
		for i, c := range s.Stmts {
			stmts[i] = propagate(c, current)
		}
		cp.Stmts = stmts
		return &cp
	case ir.StmtIfThenElse:
		cp := *s
		cp.Then = propagate(s.Then, current)
		cp.Else = propagate(s.Else, current)
		return &cp
	default:
		return s
	}
}
