// Package pipelinespec decodes a JSON pipeline description into a
// schedule.Env, the wire codec the two driver commands
// (cmd/scheduleadvisor, cmd/pipelinectl) share so that neither embeds
// its own ad-hoc parsing of function/expression syntax. It has no
// prior-art source to ground on — it exists purely to give the CLI
// entry points something to read — so it is deliberately as small as
// the Value/Call/Var IR it wraps.
package pipelinespec

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// Doc is the top-level pipeline description.
type Doc struct {
	Outputs   []string             `json:"outputs"`
	Functions []FunctionDoc        `json:"functions"`
	Domains   map[string]DomainDoc `json:"domains"`
}

// FunctionDoc describes one pure Function (updates are not
// representable in this minimal format; a pipeline needing reductions
// builds its Env in Go directly and skips this package).
type FunctionDoc struct {
	Name  string   `json:"name"`
	Args  []string `json:"args"`
	Value ExprDoc  `json:"value"`
}

// DomainDoc maps a function's args to their default iteration range,
// the oracle Partitioner.Domains needs.
type DomainDoc map[string]struct {
	Min    int64 `json:"min"`
	Extent int64 `json:"extent"`
}

// ExprDoc is a tagged union over the small expression grammar this
// format supports: var, const, call, and the binary arithmetic ops.
type ExprDoc struct {
	Op    string    `json:"op"`
	Name  string    `json:"name,omitempty"`
	Value int64     `json:"value,omitempty"`
	Func  string    `json:"func,omitempty"`
	Args  []ExprDoc `json:"args,omitempty"`
	A     *ExprDoc  `json:"a,omitempty"`
	B     *ExprDoc  `json:"b,omitempty"`
}

// Decode parses r into an Env, the pipeline's output names, and each
// function's default domain.
func Decode(r io.Reader) (schedule.Env, []string, map[string]map[string]ir.Range, error) {
	var doc Doc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, nil, nil, fmt.Errorf("pipelinespec: decode: %w", err)
	}

	env := schedule.Env{}
	for _, fd := range doc.Functions {
		expr, err := buildExpr(fd.Value)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pipelinespec: function %q: %w", fd.Name, err)
		}
		env[fd.Name] = schedule.NewFunction(fd.Name, fd.Args, []*ir.Expr{expr})
	}
	for _, name := range doc.Outputs {
		f, ok := env[name]
		if !ok {
			return nil, nil, nil, fmt.Errorf("pipelinespec: output %q is not defined", name)
		}
		f.IsOutput = true
	}

	domains := make(map[string]map[string]ir.Range, len(doc.Domains))
	for fn, dd := range doc.Domains {
		r := make(map[string]ir.Range, len(dd))
		for v, bound := range dd {
			r[v] = ir.Range{Min: ir.IntConst(bound.Min), Extent: ir.IntConst(bound.Extent)}
		}
		domains[fn] = r
	}

	return env, doc.Outputs, domains, nil
}

func buildExpr(e ExprDoc) (*ir.Expr, error) {
	switch e.Op {
	case "var":
		return ir.VarExpr(e.Name), nil
	case "const":
		return ir.IntConst(e.Value), nil
	case "call":
		args := make([]*ir.Expr, 0, len(e.Args))
		for _, a := range e.Args {
			ae, err := buildExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return ir.CallExpr(e.Func, ir.CallHalide, ir.Int32Type, args...), nil
	case "add", "sub", "mul", "div", "mod", "min", "max":
		if e.A == nil || e.B == nil {
			return nil, fmt.Errorf("op %q requires a and b", e.Op)
		}
		a, err := buildExpr(*e.A)
		if err != nil {
			return nil, err
		}
		b, err := buildExpr(*e.B)
		if err != nil {
			return nil, err
		}
		return ir.BinOp(binOpKind(e.Op), a, b), nil
	default:
		return nil, fmt.Errorf("unknown expression op %q", e.Op)
	}
}

func binOpKind(op string) ir.ExprKind {
	switch op {
	case "add":
		return ir.Add
	case "sub":
		return ir.Sub
	case "mul":
		return ir.Mul
	case "div":
		return ir.Div
	case "mod":
		return ir.Mod
	case "min":
		return ir.Min
	default:
		return ir.Max
	}
}
