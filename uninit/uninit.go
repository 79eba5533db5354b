// Package uninit reports local variables of LLVM IR functions that may be read
// before they are written.
//
// A local variable is a stack slot allocated by an alloca instruction whose
// address does not escape; that is, it is only ever used as the address of a
// load or store instruction. A load of the variable may read an uninitialized
// value if no store to the variable precedes it in its basic block, and its
// basic block is reachable from the entry block without passing through a
// basic block that stores to the variable.
package uninit

import (
	"github.com/graphism/cfgstat/cfg"
	"github.com/graphism/cfgstat/flow"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/value"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
)

// A Finding is a load of a local variable which may read an uninitialized
// value.
type Finding struct {
	// Function name.
	Func string
	// Variable name; the name of the alloca instruction.
	Var string
	// Name of the basic block containing the load.
	Block string
	// Path is a path of basic block names from the entry block to Block along
	// which the variable is never stored to.
	Path []string
}

// Check returns the possibly uninitialized loads of local variables in f, at
// most one per variable and basic block.
func Check(f *ir.Func) ([]Finding, error) {
	g, err := cfg.NewGraphFromFunc(f)
	if err != nil {
		return nil, err
	}
	return CheckGraph(f, g)
}

// CheckGraph is like Check, except that it uses g as the control flow graph of
// f. The nodes of g are the basic blocks of f, matched by name.
func CheckGraph(f *ir.Func, g *cfg.Graph) ([]Finding, error) {
	var findings []Finding
	for _, a := range allocas(f) {
		if escapes(f, a) {
			continue
		}
		// Basic blocks storing to the variable.
		stores := make(map[string]bool)
		for _, block := range f.Blocks {
			for _, inst := range block.Insts {
				if st, ok := inst.(*ir.InstStore); ok && st.Dst == value.Value(a) {
					stores[block.Name()] = true
				}
			}
		}
		avoid := func(n graph.Node) bool {
			return stores[n.(*cfg.Node).Name()]
		}
		entry := g.Entry()
		for _, block := range f.Blocks {
			if !loadsFirst(block, a) {
				continue
			}
			b, ok := g.NodeWithName(block.Name())
			if !ok {
				return nil, errors.Wrapf(flow.ErrMalformed, "unable to locate basic block %q of function %q in control flow graph", block.Name(), f.Name())
			}
			var path []graph.Node
			switch {
			case b.ID() == entry.ID():
				path = []graph.Node{b}
			case avoid(entry):
				// Every path passes through the store of the entry block.
				continue
			default:
				path = flow.ReachableAvoiding(g, entry, b, avoid)
			}
			if path == nil {
				continue
			}
			finding := Finding{
				Func:  f.Name(),
				Var:   a.Name(),
				Block: block.Name(),
			}
			for _, n := range path {
				finding.Path = append(finding.Path, n.(*cfg.Node).Name())
			}
			findings = append(findings, finding)
		}
	}
	return findings, nil
}

// allocas returns the alloca instructions of f.
func allocas(f *ir.Func) []*ir.InstAlloca {
	var as []*ir.InstAlloca
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			if a, ok := inst.(*ir.InstAlloca); ok {
				as = append(as, a)
			}
		}
	}
	return as
}

// loadsFirst reports whether block loads from a before any store to a.
func loadsFirst(block *ir.Block, a *ir.InstAlloca) bool {
	for _, inst := range block.Insts {
		switch inst := inst.(type) {
		case *ir.InstStore:
			if inst.Dst == value.Value(a) {
				return false
			}
		case *ir.InstLoad:
			if inst.Src == value.Value(a) {
				return true
			}
		}
	}
	return false
}

// escapes reports whether the address of a is used other than as the address
// operand of a load or store.
func escapes(f *ir.Func, a *ir.InstAlloca) bool {
	v := value.Value(a)
	for _, block := range f.Blocks {
		for _, inst := range block.Insts {
			switch inst := inst.(type) {
			case *ir.InstLoad:
				// The address is the only operand of a load.
				continue
			case *ir.InstStore:
				if inst.Src == v {
					return true
				}
				continue
			}
			if uses(inst, v) {
				return true
			}
		}
		if uses(block.Term, v) {
			return true
		}
	}
	return false
}

// user is an instruction or terminator with operands.
type user interface {
	Operands() []*value.Value
}

// uses reports whether v is an operand of inst.
func uses(inst interface{}, v value.Value) bool {
	u, ok := inst.(user)
	if !ok {
		return false
	}
	for _, op := range u.Operands() {
		if op != nil && *op == v {
			return true
		}
	}
	return false
}
