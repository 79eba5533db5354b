// ref: Cifuentes, Cristina. "Structuring decompiled graphs." Compiler
// Construction. Springer Berlin/Heidelberg, 1996 [1].
//
// [1]: https://pdfs.semanticscholar.org/48bf/d31773af7b67f9d1b003b8b8ac889f08271f.pdf

// Package cfa implements loop detection and structural analysis of control
// flow graphs.
package cfa

import (
	"fmt"

	"github.com/graphism/cfgstat/cfg"
	"github.com/graphism/cfgstat/flow"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// DerivedGraphSeq returns the derived sequence of graphs, G^1 ... G^n, based on
// the intervals of G.
//
// The first order graph, G^1 is G, restricted to the nodes reachable from the
// entry node. The second order graph, G^2, is derived from G^1 by collapsing
// each interval in G^1 into a node. The immediate predecessors of the
// collapsed node are the immediate predecessors of the original header node
// which are not part of the interval. The immediate successors are all the
// immediate, non-interval successors of the original exit nodes. Intervals for
// G^2 are found and the process is repeated until a limit flow graph G^n is
// found. G^n has the property of being a single node or an irreducible graph.
func DerivedGraphSeq(src *cfg.Graph) []*cfg.Graph {
	var Gs []*cfg.Graph
	// The first order graph, G^1, is G.
	G := cfg.NewGraph()
	cfg.Copy(G, src)
	for _, n := range flow.Unreachable(src) {
		G.RemoveNode(n.ID())
	}
	G.SetDOTID("G1")
	Gs = append(Gs, G)
	intNum := 1
	for i := 2; len(G.Blocks()) > 1; i++ {
		Is := flow.Intervals(G)
		if len(Is) == len(G.Blocks()) {
			// Every interval is a single node; G is an irreducible limit flow
			// graph.
			break
		}
		for _, I := range Is {
			// Collapse interval into a single node.
			newName := intervalName(G, &intNum)
			delNodes := make(map[string]bool)
			for _, n := range I.Nodes() {
				nn, ok := n.(dot.Node)
				if !ok {
					panic(fmt.Errorf("invalid node type; expected dot.Node, got %T", n))
				}
				delNodes[nn.DOTID()] = true
			}
			// The second order graph, G^2, is derived from G^1 by collapsing each
			// interval in G^1 into a node.
			G = cfg.Merge(G, delNodes, newName)
		}
		G.SetDOTID(fmt.Sprintf("G%d", i))
		Gs = append(Gs, G)
	}
	return Gs
}

// intervalName returns the first name I<n>, n >= *num, not used by any node of
// G, and advances *num past n.
func intervalName(G *cfg.Graph, num *int) string {
	for {
		name := fmt.Sprintf("I%d", *num)
		*num++
		if _, ok := G.NodeWithName(name); !ok {
			return name
		}
	}
}

// Reducible reports whether g is reducible; that is, whether the derived
// sequence of g ends in a single node. Loops of a reducible graph have a single
// entry each.
func Reducible(g *cfg.Graph) bool {
	Gs := DerivedGraphSeq(g)
	return len(Gs[len(Gs)-1].Blocks()) == 1
}
