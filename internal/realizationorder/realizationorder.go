// Package realizationorder computes a topological realization order
// over a pipeline's call graph, together with the groups of
// mutually-recursive functions within it. The groups are reported
// (pipelinectl explain prints them); the partitioner receives only the
// flat name order and does not consult them.
package realizationorder

import (
	"fmt"

	"github.com/loopnest-sched/scheduler/internal/ir"
	"github.com/loopnest-sched/scheduler/internal/schedule"
)

// Order is a topological realization order (leaves first) together
// with the fused-group boundaries within it.
type Order struct {
	Names  []string
	Groups [][]string // each entry is a maximal strongly-connected group
}

// Compute runs Tarjan's SCC algorithm over env's call graph rooted at
// outputs and returns groups in the order Tarjan completes them
// (dependencies before dependents, the "leaves first" realization
// contract).
func Compute(outputs []string, env schedule.Env) (Order, error) {
	c := &computer{env: env, index: map[string]int{}, lowlink: map[string]int{}, onStack: map[string]bool{}}
	for _, name := range outputs {
		if _, ok := c.index[name]; !ok {
			if err := c.strongconnect(name); err != nil {
				return Order{}, err
			}
		}
	}
	// Edges run from a caller to its callees, so Tarjan completes a
	// group only after every group it calls: c.groups is already
	// producers-first.
	groups := c.groups
	var names []string
	for _, g := range groups {
		names = append(names, g...)
	}
	return Order{Names: names, Groups: groups}, nil
}

type computer struct {
	env      schedule.Env
	index    map[string]int
	lowlink  map[string]int
	onStack  map[string]bool
	stack    []string
	counter  int
	groups   [][]string
}

func (c *computer) strongconnect(name string) error {
	c.index[name] = c.counter
	c.lowlink[name] = c.counter
	c.counter++
	c.stack = append(c.stack, name)
	c.onStack[name] = true

	f, ok := c.env[name]
	if !ok {
		return fmt.Errorf("realizationorder: undefined function %q", name)
	}
	for _, dep := range directCallees(f) {
		if _, ok := c.env[dep]; !ok {
			continue
		}
		if _, visited := c.index[dep]; !visited {
			if err := c.strongconnect(dep); err != nil {
				return err
			}
			if c.lowlink[dep] < c.lowlink[name] {
				c.lowlink[name] = c.lowlink[dep]
			}
		} else if c.onStack[dep] {
			if c.index[dep] < c.lowlink[name] {
				c.lowlink[name] = c.index[dep]
			}
		}
	}

	if c.lowlink[name] == c.index[name] {
		var group []string
		for {
			n := len(c.stack) - 1
			top := c.stack[n]
			c.stack = c.stack[:n]
			c.onStack[top] = false
			group = append(group, top)
			if top == name {
				break
			}
		}
		c.groups = append(c.groups, group)
	}
	return nil
}

// directCallees returns every Function name referenced by f's pure or
// update value/argument expressions.
func directCallees(f *schedule.Function) []string {
	seen := map[string]bool{}
	var out []string
	record := func(e *ir.Expr) {
		ir.WalkExpr(e, ir.WalkHooks{Expr: func(n *ir.Expr) bool {
			if n.Kind == ir.Call && n.CallType == ir.CallHalide && n.Name != f.Name && !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
			return true
		}})
	}
	for _, v := range f.Values {
		record(v)
	}
	for _, u := range f.Updates {
		for _, v := range u.Values {
			record(v)
		}
		for _, a := range u.Args {
			record(a)
		}
	}
	return out
}
