package flow

import "gonum.org/v1/gonum/graph"

// Reachable returns a path from a to b, or nil if b cannot be reached from a.
// The path of a node to itself is the single node path [a].
//
// The search is an iterative depth-first search; the first path found is
// returned, which is not necessarily the shortest. For a fixed successor order
// the result is deterministic.
func Reachable(g Graph, a, b graph.Node) []graph.Node {
	return ReachableAvoiding(g, a, b, nil)
}

// ReachableAvoiding is like Reachable, except that nodes for which avoid
// reports true are never passed through. The end points are exempt: a is
// expanded and b is found even if avoid reports true for them.
func ReachableAvoiding(g Graph, a, b graph.Node, avoid func(n graph.Node) bool) []graph.Node {
	if a.ID() == b.ID() {
		return []graph.Node{a}
	}
	// 1  procedure DFS-iterative(G, v):
	// 2      let S be a stack
	// 3      S.push(v)
	// 4      while S is not empty
	// 5          v = S.pop()
	// 6          if v is not labeled as discovered:
	// 7              label v as discovered
	// 8              for all edges from v to w in G.adjacentEdges(v) do
	// 9                  S.push(w)
	type item struct {
		n    graph.Node
		path []graph.Node
	}
	stack := []item{{n: a, path: []graph.Node{a}}}
	visited := make(map[int64]bool)
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[top.n.ID()] {
			continue
		}
		visited[top.n.ID()] = true
		if top.n.ID() != a.ID() && avoid != nil && avoid(top.n) {
			continue
		}
		for _, w := range g.Succs(top.n) {
			path := make([]graph.Node, len(top.path), len(top.path)+1)
			copy(path, top.path)
			path = append(path, w)
			if w.ID() == b.ID() {
				return path
			}
			stack = append(stack, item{n: w, path: path})
		}
	}
	return nil
}

// ReachablePairs returns the number of ordered pairs of nodes (a, b) of g such
// that b is reachable from a by a path of at least one edge, and the longest
// path found for any such pair. A node reaches itself only if it lies on a
// cycle.
func ReachablePairs(g Graph) (n int, longest []graph.Node) {
	blocks := g.Blocks()
	for _, a := range blocks {
		for _, b := range blocks {
			var path []graph.Node
			if a.ID() == b.ID() {
				path = cycleThrough(g, a)
			} else {
				path = Reachable(g, a, b)
			}
			if path == nil {
				continue
			}
			n++
			if len(path) > len(longest) {
				longest = path
			}
		}
	}
	return n, longest
}

// cycleThrough returns a path of at least one edge from a back to a, or nil if
// a lies on no cycle.
func cycleThrough(g Graph, a graph.Node) []graph.Node {
	for _, succ := range g.Succs(a) {
		if path := Reachable(g, succ, a); path != nil {
			return append([]graph.Node{a}, path...)
		}
	}
	return nil
}
