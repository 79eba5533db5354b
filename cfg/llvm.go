package cfg

import (
	"github.com/graphism/cfgstat/flow"
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
)

// NewGraphFromFunc returns a new control flow graph based on the given
// function. Nodes are named after the basic blocks and follow their layout
// order; the first basic block is the entry node.
func NewGraphFromFunc(f *ir.Func) (*Graph, error) {
	if len(f.Blocks) == 0 {
		return nil, errors.Wrapf(flow.ErrMalformed, "function %q has no basic blocks", f.Name())
	}
	g := NewGraph()
	g.SetDOTID(f.Name())
	nodes := make(map[*ir.Block]*Node)
	for _, block := range f.Blocks {
		n := g.NewNodeWithName(block.Name())
		g.AddNode(n)
		nodes[block] = n
	}
	g.SetEntry(nodes[f.Blocks[0]])
	for _, block := range f.Blocks {
		if block.Term == nil {
			return nil, errors.Wrapf(flow.ErrMalformed, "basic block %q of function %q has no terminator", block.Name(), f.Name())
		}
		for _, succ := range block.Term.Succs() {
			to, ok := nodes[succ]
			if !ok {
				return nil, errors.Wrapf(flow.ErrMalformed, "basic block %q of function %q branches to unknown block %q", block.Name(), f.Name(), succ.Name())
			}
			g.AddEdge(nodes[block], to)
		}
	}
	return g, nil
}
