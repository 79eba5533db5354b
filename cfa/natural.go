package cfa

import (
	"sort"

	"github.com/graphism/cfgstat/flow"
	"gonum.org/v1/gonum/graph"
)

// A Loop is a natural loop; the nodes of a control flow graph controlled by a
// single header, which dominates every node of the loop.
type Loop struct {
	// Header node of the loop.
	Header graph.Node
	// Latches are the sources of the back edges of the loop, in layout order.
	Latches []graph.Node
	// BackEdges is the number of back edges to the header; parallel edges are
	// counted separately.
	BackEdges int
	// Body contains the nodes of the loop in layout order, the header
	// included.
	Body []graph.Node
	// Exits are the edges leaving the loop, as (source, target) pairs where the
	// source is in the body and the target is not.
	Exits [][2]graph.Node
	// Depth is the nesting depth of the loop; 1 for top-level loops.
	Depth int
	// Parent is the innermost loop enclosing the loop, or nil for top-level
	// loops.
	Parent *Loop
	// Children are the loops immediately nested in the loop.
	Children []*Loop
	// has tracks the IDs of the body nodes.
	has map[int64]bool
}

// Has reports whether n is part of the loop body.
func (l *Loop) Has(n graph.Node) bool {
	return l.has[n.ID()]
}

// Size returns the number of nodes in the loop body.
func (l *Loop) Size() int {
	return len(l.Body)
}

// count returns the number of loops of the loop nest rooted at l.
func (l *Loop) count() int {
	n := 1
	for _, child := range l.Children {
		n += child.count()
	}
	return n
}

// LoopNest is the set of natural loops of a control flow graph.
type LoopNest struct {
	// Loops contains every loop, ordered by the layout order of the headers.
	Loops []*Loop
	// TopLevel contains the loops not nested in any other loop.
	TopLevel []*Loop
	// BackEdges is the total number of back edges.
	BackEdges int
	// Dom is the dominator tree the loops were detected with.
	Dom *flow.DominatorTree
}

// Count returns the total number of loops, nested loops included.
func (ln *LoopNest) Count() int {
	n := 0
	for _, l := range ln.TopLevel {
		n += l.count()
	}
	return n
}

// ExitEdgeCount returns the number of loop exit edges of the top-level loops.
func (ln *LoopNest) ExitEdgeCount() int {
	n := 0
	for _, l := range ln.TopLevel {
		n += len(l.Exits)
	}
	return n
}

// BlockCount returns the number of nodes inside of top-level loops.
func (ln *LoopNest) BlockCount() int {
	n := 0
	for _, l := range ln.TopLevel {
		n += l.Size()
	}
	return n
}

// LoopOf returns the innermost loop containing n, or nil if n is not part of
// any loop.
func (ln *LoopNest) LoopOf(n graph.Node) *Loop {
	var inner *Loop
	for _, l := range ln.Loops {
		if l.Has(n) && (inner == nil || l.Depth > inner.Depth) {
			inner = l
		}
	}
	return inner
}

// NaturalLoops returns the natural loops of g.
//
// A back edge is an edge (n, h) such that h dominates n. Back edges with the
// same header h form a single loop, the body of which is h and every node
// that reaches a back edge source without passing through h. Nodes
// unreachable from the entry node are never part of a loop.
func NaturalLoops(g flow.Graph) *LoopNest {
	dom := flow.Dominators(g)
	return naturalLoops(g, dom)
}

// naturalLoops returns the natural loops of g, based on the given dominator
// tree.
func naturalLoops(g flow.Graph, dom *flow.DominatorTree) *LoopNest {
	ln := &LoopNest{Dom: dom}
	reached := flow.Reaches(g)
	blocks := g.Blocks()
	index := make(map[int64]int)
	for i, n := range blocks {
		index[n.ID()] = i
	}
	// Locate back edges, grouped by header.
	loops := make(map[int64]*Loop)
	for _, n := range blocks {
		if !reached[n.ID()] {
			continue
		}
		for _, h := range g.Succs(n) {
			if !dom.Dominates(h, n) {
				continue
			}
			l, ok := loops[h.ID()]
			if !ok {
				l = &Loop{Header: h, has: map[int64]bool{h.ID(): true}}
				loops[h.ID()] = l
				ln.Loops = append(ln.Loops, l)
			}
			l.BackEdges++
			ln.BackEdges++
			if !containsNode(l.Latches, n) {
				l.Latches = append(l.Latches, n)
			}
		}
	}
	sort.Slice(ln.Loops, func(i, j int) bool {
		return index[ln.Loops[i].Header.ID()] < index[ln.Loops[j].Header.ID()]
	})
	// Collect loop bodies by walking predecessors backwards from the latches.
	for _, l := range ln.Loops {
		var stack []graph.Node
		for _, latch := range l.Latches {
			if !l.has[latch.ID()] {
				l.has[latch.ID()] = true
				stack = append(stack, latch)
			}
		}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, pred := range g.Preds(n) {
				if !reached[pred.ID()] || l.has[pred.ID()] {
					continue
				}
				l.has[pred.ID()] = true
				stack = append(stack, pred)
			}
		}
		for _, n := range blocks {
			if l.has[n.ID()] {
				l.Body = append(l.Body, n)
			}
		}
		for _, n := range l.Body {
			for _, succ := range g.Succs(n) {
				if !l.has[succ.ID()] {
					l.Exits = append(l.Exits, [2]graph.Node{n, succ})
				}
			}
		}
	}
	// Nesting; the parent of a loop is the smallest other loop containing its
	// header.
	for _, l := range ln.Loops {
		for _, m := range ln.Loops {
			if m == l || !m.Has(l.Header) || m.Size() <= l.Size() {
				continue
			}
			if l.Parent == nil || m.Size() < l.Parent.Size() {
				l.Parent = m
			}
		}
	}
	for _, l := range ln.Loops {
		if l.Parent == nil {
			ln.TopLevel = append(ln.TopLevel, l)
		} else {
			l.Parent.Children = append(l.Parent.Children, l)
		}
	}
	for _, l := range ln.TopLevel {
		setDepth(l, 1)
	}
	return ln
}

// setDepth sets the nesting depth of l and its nested loops.
func setDepth(l *Loop, depth int) {
	l.Depth = depth
	for _, child := range l.Children {
		setDepth(child, depth+1)
	}
}

// containsNode reports whether n is present in nodes.
func containsNode(nodes []graph.Node, n graph.Node) bool {
	for _, m := range nodes {
		if m.ID() == n.ID() {
			return true
		}
	}
	return false
}
