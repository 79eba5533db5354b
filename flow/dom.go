package flow

import (
	"math"

	"gonum.org/v1/gonum/graph"
	gflow "gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
)

// DominatorTree is the dominator tree or the post-dominator tree of a control
// flow graph.
//
// Nodes that are not reachable from the root of the tree (the entry node, or
// for post-dominator trees the exit) are not part of the tree; they dominate
// and are dominated by themselves only.
type DominatorTree struct {
	// root of the tree; for post-dominator trees, a virtual exit node which is
	// never reported.
	root graph.Node
	// idom maps from node ID to immediate dominator.
	idom map[int64]graph.Node
	// children maps from node ID to immediately dominated nodes.
	children map[int64][]graph.Node
	// post reports whether the tree is a post-dominator tree.
	post bool
	// blocks of the control flow graph.
	blocks []graph.Node
}

// Dominators returns the dominator tree of g.
func Dominators(g Graph) *DominatorTree {
	return newDominatorTree(g.Entry(), g, g.Blocks(), false)
}

// PostDominators returns the post-dominator tree of g. Every node without
// successors is treated as an exit of g.
func PostDominators(g Graph) *DominatorTree {
	rev := newReverse(g)
	return newDominatorTree(rev.exit, rev, g.Blocks(), true)
}

// newDominatorTree returns the dominator tree of g rooted at root, recording
// the given blocks.
func newDominatorTree(root graph.Node, g graph.Directed, blocks []graph.Node, post bool) *DominatorTree {
	dt := gflow.Dominators(root, g)
	t := &DominatorTree{
		root:     root,
		idom:     make(map[int64]graph.Node),
		children: make(map[int64][]graph.Node),
		post:     post,
		blocks:   blocks,
	}
	for _, n := range blocks {
		d := dt.DominatorOf(n.ID())
		if d == nil {
			continue
		}
		t.idom[n.ID()] = d
		t.children[d.ID()] = append(t.children[d.ID()], n)
	}
	return t
}

// has reports whether n is part of the tree.
func (t *DominatorTree) has(n graph.Node) bool {
	if n.ID() == t.root.ID() {
		return true
	}
	_, ok := t.idom[n.ID()]
	return ok
}

// Dominates reports whether a dominates b. Every node dominates itself.
func (t *DominatorTree) Dominates(a, b graph.Node) bool {
	if a.ID() == b.ID() {
		return true
	}
	if !t.has(b) {
		return false
	}
	for d := t.idom[b.ID()]; d != nil; d = t.idom[d.ID()] {
		if d.ID() == a.ID() {
			return true
		}
	}
	return false
}

// StrictlyDominates reports whether a dominates b and a is not b.
func (t *DominatorTree) StrictlyDominates(a, b graph.Node) bool {
	return a.ID() != b.ID() && t.Dominates(a, b)
}

// PostDominates reports whether a post-dominates b in a post-dominator tree.
// Every node post-dominates itself.
func (t *DominatorTree) PostDominates(a, b graph.Node) bool {
	return t.Dominates(a, b)
}

// StrictlyPostDominates reports whether a post-dominates b and a is not b.
func (t *DominatorTree) StrictlyPostDominates(a, b graph.Node) bool {
	return t.StrictlyDominates(a, b)
}

// Idom returns the immediate dominator of n, or nil if n is the root of the
// tree, is not part of the tree, or is immediately post-dominated by the
// exit.
func (t *DominatorTree) Idom(n graph.Node) graph.Node {
	d, ok := t.idom[n.ID()]
	if !ok || (t.post && d.ID() == t.root.ID()) {
		return nil
	}
	return d
}

// Children returns the nodes immediately dominated by n.
func (t *DominatorTree) Children(n graph.Node) []graph.Node {
	return t.children[n.ID()]
}

// Depth returns the number of nodes strictly dominating n. Nodes outside of
// the tree have depth 0.
func (t *DominatorTree) Depth(n graph.Node) int {
	depth := 0
	for d := t.Idom(n); d != nil; d = t.Idom(d) {
		depth++
	}
	return depth
}

// StrictDominatorCount returns the number of (a, b) node pairs such that a
// strictly dominates b, which is the sum of the depths of every node.
func (t *DominatorTree) StrictDominatorCount() int {
	total := 0
	for _, n := range t.blocks {
		total += t.Depth(n)
	}
	return total
}

// --- [ reverse ] -------------------------------------------------------------

// reverse is the reverse graph of a control flow graph, extended with a
// virtual exit node which has an edge to every node without successors.
type reverse struct {
	// Virtual exit node.
	exit graph.Node
	// nodes of the graph; the exit node last.
	nodes []graph.Node
	// byID maps from node ID to node.
	byID map[int64]graph.Node
	// from and to map from node ID to successors and predecessors in the
	// reverse graph.
	from, to map[int64][]graph.Node
}

// newReverse returns the reverse graph of g.
func newReverse(g Graph) *reverse {
	r := &reverse{
		byID: make(map[int64]graph.Node),
		from: make(map[int64][]graph.Node),
		to:   make(map[int64][]graph.Node),
	}
	for _, n := range g.Blocks() {
		r.nodes = append(r.nodes, n)
		r.byID[n.ID()] = n
	}
	// The exit takes the lowest ID not used by any node.
	exitID := int64(math.MinInt64)
	for r.byID[exitID] != nil {
		exitID++
	}
	r.exit = simple.Node(exitID)
	r.nodes = append(r.nodes, r.exit)
	r.byID[r.exit.ID()] = r.exit
	for _, n := range g.Blocks() {
		succs := g.Succs(n)
		if len(succs) == 0 {
			r.addEdge(r.exit, n)
		}
		for _, succ := range succs {
			r.addEdge(succ, n)
		}
	}
	return r
}

// addEdge adds an edge from u to v, unless already present.
func (r *reverse) addEdge(u, v graph.Node) {
	if r.HasEdgeFromTo(u.ID(), v.ID()) {
		return
	}
	r.from[u.ID()] = append(r.from[u.ID()], v)
	r.to[v.ID()] = append(r.to[v.ID()], u)
}

func (r *reverse) Node(id int64) graph.Node {
	n, ok := r.byID[id]
	if !ok {
		return nil
	}
	return n
}

func (r *reverse) Nodes() graph.Nodes {
	return iterator.NewOrderedNodes(r.nodes)
}

func (r *reverse) From(id int64) graph.Nodes {
	if len(r.from[id]) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(r.from[id])
}

func (r *reverse) To(id int64) graph.Nodes {
	if len(r.to[id]) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(r.to[id])
}

func (r *reverse) HasEdgeBetween(xid, yid int64) bool {
	return r.HasEdgeFromTo(xid, yid) || r.HasEdgeFromTo(yid, xid)
}

func (r *reverse) HasEdgeFromTo(uid, vid int64) bool {
	for _, v := range r.from[uid] {
		if v.ID() == vid {
			return true
		}
	}
	return false
}

func (r *reverse) Edge(uid, vid int64) graph.Edge {
	if !r.HasEdgeFromTo(uid, vid) {
		return nil
	}
	return simple.Edge{F: r.byID[uid], T: r.byID[vid]}
}
