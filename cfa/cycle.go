package cfa

import (
	"math"
	"sort"

	"github.com/graphism/cfgstat/flow"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/mat"
)

// === [ All-pairs shortest paths ] ============================================

// AllPairs holds the shortest path distances between every pair of nodes of a
// control flow graph, along with a next hop table for path reconstruction.
// Every edge has unit weight.
type AllPairs struct {
	// nodes in layout order.
	nodes []graph.Node
	// index maps from node ID to index in nodes.
	index map[int64]int
	// dist holds the distance from node i to node j; +Inf if unreachable.
	dist *mat.Dense
	// next holds the index of the node following i on the path from i to j;
	// -1 if there is no such path.
	next [][]int
}

// NewAllPairs returns the all-pairs shortest paths of g, computed with the
// Floyd–Warshall algorithm.
//
// Ties are broken in favour of the path found first, with intermediate nodes
// considered in layout order.
func NewAllPairs(g flow.Graph) *AllPairs {
	nodes := g.Blocks()
	n := len(nodes)
	p := &AllPairs{
		nodes: nodes,
		index: make(map[int64]int, n),
		next:  make([][]int, n),
	}
	if n == 0 {
		return p
	}
	for i, u := range nodes {
		p.index[u.ID()] = i
	}
	// 1 let dist be a |V| × |V| array of minimum distances initialized to ∞
	p.dist = mat.NewDense(n, n, nil)
	for i := range nodes {
		p.next[i] = make([]int, n)
		for j := range nodes {
			p.dist.Set(i, j, math.Inf(1))
			p.next[i][j] = -1
		}
	}
	// 4 for each edge (u,v)
	// 5    dist[u][v] ← w(u,v)
	for i, u := range nodes {
		for _, v := range g.Succs(u) {
			j := p.index[v.ID()]
			p.dist.Set(i, j, 1)
			p.next[i][j] = j
		}
	}
	// 2 for each vertex v
	// 3    dist[v][v] ← 0
	for i := range nodes {
		p.dist.Set(i, i, 0)
	}
	// 6 for k from 1 to |V|
	// 7    for i from 1 to |V|
	// 8       for j from 1 to |V|
	// 9          if dist[i][j] > dist[i][k] + dist[k][j]
	// 10             dist[i][j] ← dist[i][k] + dist[k][j]
	// 11             next[i][j] ← next[i][k]
	for k := range nodes {
		for i := range nodes {
			dik := p.dist.At(i, k)
			if math.IsInf(dik, 1) {
				continue
			}
			for j := range nodes {
				if d := dik + p.dist.At(k, j); p.dist.At(i, j) > d {
					p.dist.Set(i, j, d)
					p.next[i][j] = p.next[i][k]
				}
			}
		}
	}
	return p
}

// Dist returns the length of the shortest path from u to v, and a boolean
// variable indicating whether v is reachable from u.
func (p *AllPairs) Dist(u, v graph.Node) (int, bool) {
	i, ok := p.index[u.ID()]
	if !ok {
		return 0, false
	}
	j, ok := p.index[v.ID()]
	if !ok {
		return 0, false
	}
	d := p.dist.At(i, j)
	if math.IsInf(d, 1) {
		return 0, false
	}
	return int(d), true
}

// Path returns a shortest path from u to v, or nil if there is none. The path
// of a node to itself is [u] if the node has a self-loop, and nil otherwise.
func (p *AllPairs) Path(u, v graph.Node) []graph.Node {
	i, ok := p.index[u.ID()]
	if !ok {
		return nil
	}
	j, ok := p.index[v.ID()]
	if !ok {
		return nil
	}
	// procedure Path(u, v)
	//     if next[u][v] = null then
	//         return []
	//     path = [u]
	//     while u ≠ v
	//         u ← next[u][v]
	//         path.append(u)
	//     return path
	if p.next[i][j] == -1 {
		return nil
	}
	path := []graph.Node{p.nodes[i]}
	for i != j {
		i = p.next[i][j]
		path = append(path, p.nodes[i])
	}
	return path
}

// === [ Cycles ] ==============================================================

// An Entry is an edge entering a cycle from outside of it.
type Entry struct {
	// Pred is the source of the edge, outside of the cycle; nil for the
	// implicit edge into the entry node of the control flow graph.
	Pred graph.Node
	// Node is the target of the edge, inside of the cycle.
	Node graph.Node
}

// A Cycle is a closed path of a control flow graph.
type Cycle struct {
	// Nodes of the cycle, in the order of the closed path that discovered it.
	Nodes []graph.Node
	// Entries of the cycle not already counted for a previously discovered
	// cycle.
	Entries []Entry
	// key holds the sorted IDs of the nodes.
	key []int64
	// has tracks the IDs of the nodes.
	has map[int64]bool
}

// Has reports whether n is part of the cycle.
func (c *Cycle) Has(n graph.Node) bool {
	return c.has[n.ID()]
}

// CycleSet is the set of distinct cycles of a control flow graph, discovered
// through all-pairs shortest paths.
type CycleSet struct {
	// Cycles in discovery order.
	Cycles []*Cycle
	// Entries contains every distinct loop entry, in discovery order.
	Entries []Entry
	// Paths is the all-pairs shortest path table the cycles were derived
	// from.
	Paths *AllPairs
}

// LoopCount returns the number of loops; each distinct entry into a cycle
// counts as one loop, so a cycle entered at two different nodes counts as two
// loops.
func (cs *CycleSet) LoopCount() int {
	return len(cs.Entries)
}

// CycleLoops returns the cycles of g and their entries, detecting loops
// regardless of how many entry nodes they have.
//
// For every pair of distinct nodes (u, v) reachable from one another, the
// shortest paths u→v and v→u form a cycle. A self-loop forms a cycle of a
// single node. Cycles with the same set of nodes are the same cycle. A node x
// of a cycle is entered from outside by an edge (p, x) where p is reachable
// from the entry node, p is not part of the cycle and x does not dominate p.
func CycleLoops(g flow.Graph) *CycleSet {
	return cycleLoops(g, flow.Dominators(g))
}

// entryKey identifies an entry edge.
type entryKey struct {
	pred    int64
	virtual bool
	node    int64
}

// cycleLoops returns the cycles of g and their entries, based on the given
// dominator tree.
func cycleLoops(g flow.Graph, dom *flow.DominatorTree) *CycleSet {
	ap := NewAllPairs(g)
	cs := &CycleSet{Paths: ap}
	seen := make(map[entryKey]bool)
	reached := flow.Reaches(g)
	blocks := g.Blocks()
	for i, u := range blocks {
		for _, v := range blocks[i:] {
			var walk []graph.Node
			if u.ID() == v.ID() {
				if !g.HasEdgeFromTo(u.ID(), u.ID()) {
					continue
				}
				walk = []graph.Node{u}
			} else {
				uv, vu := ap.Path(u, v), ap.Path(v, u)
				if uv == nil || vu == nil {
					continue
				}
				// Drop the duplicated junction node v and the closing node u.
				walk = append(append(walk, uv...), vu[1:len(vu)-1]...)
			}
			c := newCycle(walk)
			if cs.has(c) {
				continue
			}
			cs.Cycles = append(cs.Cycles, c)
			for _, x := range c.Nodes {
				if x.ID() == g.Entry().ID() {
					key := entryKey{virtual: true, node: x.ID()}
					if !seen[key] {
						seen[key] = true
						c.Entries = append(c.Entries, Entry{Node: x})
					}
				}
				for _, p := range blocks {
					if !reached[p.ID()] || c.Has(p) || dom.Dominates(x, p) {
						continue
					}
					if !g.HasEdgeFromTo(p.ID(), x.ID()) {
						continue
					}
					key := entryKey{pred: p.ID(), node: x.ID()}
					if !seen[key] {
						seen[key] = true
						c.Entries = append(c.Entries, Entry{Pred: p, Node: x})
					}
				}
			}
			cs.Entries = append(cs.Entries, c.Entries...)
		}
	}
	return cs
}

// newCycle returns a new cycle based on the given closed walk.
func newCycle(walk []graph.Node) *Cycle {
	c := &Cycle{has: make(map[int64]bool)}
	for _, n := range walk {
		if c.has[n.ID()] {
			continue
		}
		c.has[n.ID()] = true
		c.Nodes = append(c.Nodes, n)
		c.key = append(c.key, n.ID())
	}
	sort.Slice(c.key, func(i, j int) bool {
		return c.key[i] < c.key[j]
	})
	return c
}

// has reports whether a cycle with the same set of nodes as c has already
// been discovered.
func (cs *CycleSet) has(c *Cycle) bool {
	for _, prev := range cs.Cycles {
		if sameNodes(prev.key, c.key) {
			return true
		}
	}
	return false
}

// sameNodes reports whether the sorted node IDs a and b are equal.
func sameNodes(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
