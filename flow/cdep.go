package flow

import "gonum.org/v1/gonum/graph"

// ControlDependence is the control dependence relation of a control flow
// graph.
//
// A node j is control dependent on a node i if j does not strictly
// post-dominate i, and j post-dominates a successor of i. Informally, the
// branch taken at i decides whether j executes.
type ControlDependence struct {
	// dependents maps from node ID to the nodes control dependent on it, in
	// layout order.
	dependents map[int64][]graph.Node
	// controllers maps from node ID to the nodes it is control dependent on, in
	// layout order.
	controllers map[int64][]graph.Node
	// pairs lists the (i, j) pairs of the relation in discovery order.
	pairs [][2]graph.Node
}

// ControlDependences returns the control dependence relation of g.
func ControlDependences(g Graph) *ControlDependence {
	return controlDependences(g, PostDominators(g))
}

// controlDependences returns the control dependence relation of g, based on
// the given post-dominator tree.
func controlDependences(g Graph, pdt *DominatorTree) *ControlDependence {
	cd := &ControlDependence{
		dependents:  make(map[int64][]graph.Node),
		controllers: make(map[int64][]graph.Node),
	}
	blocks := g.Blocks()
	for _, i := range blocks {
		succs := g.Succs(i)
		for _, j := range blocks {
			if pdt.StrictlyPostDominates(j, i) {
				continue
			}
			for _, s := range succs {
				if pdt.PostDominates(j, s) {
					cd.dependents[i.ID()] = append(cd.dependents[i.ID()], j)
					cd.controllers[j.ID()] = append(cd.controllers[j.ID()], i)
					cd.pairs = append(cd.pairs, [2]graph.Node{i, j})
					break
				}
			}
		}
	}
	return cd
}

// Dependents returns the nodes control dependent on i.
func (cd *ControlDependence) Dependents(i graph.Node) []graph.Node {
	return cd.dependents[i.ID()]
}

// Controllers returns the nodes j is control dependent on.
func (cd *ControlDependence) Controllers(j graph.Node) []graph.Node {
	return cd.controllers[j.ID()]
}

// Pairs returns the (i, j) pairs of the relation, where j is control dependent
// on i. Pairs are ordered by the layout order of i, then of j.
func (cd *ControlDependence) Pairs() [][2]graph.Node {
	return cd.pairs
}

// Count returns the number of (i, j) pairs of the relation.
func (cd *ControlDependence) Count() int {
	return len(cd.pairs)
}
