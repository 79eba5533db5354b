// ref: Allen, Frances E., and John Cocke. "A program data flow analysis
// procedure." Communications of the ACM 19.3 (1976): 137. [1]
//
// [1] https://pdfs.semanticscholar.org/81b9/49a01506a09fcd7ec4faf28e2fa0ec63f1e0.pdf

package flow

import (
	"gonum.org/v1/gonum/graph"
)

// Intervals returns the intervals contained within the given graph, based on
// the entry node. Nodes unreachable from the entry node belong to no interval.
func Intervals(g Graph) []*Interval {
	var intervals []*Interval
	order := RevPost(g)
	reached := make(map[int64]bool)
	for _, n := range order {
		reached[n.ID()] = true
	}
	// assigned tracks nodes already part of an interval.
	assigned := make(map[int64]bool)
	// 1. Establish a set H for header nodes and initialize it with n_0, the
	// unique entry node for the graph.
	H := newQueue()
	H.push(g.Entry())
	// 2. For h E H, find I(h) as follows:
	for !H.empty() {
		// 5. Select the next unprocessed node in H and repeat steps 2, 3, 4, 5.
		// When there are no more unprocessed nodes in H, the procedure
		// terminates.
		h := H.pop()
		// 2.1. Put h in I(h) as the first element of I(h).
		I := newInterval(h)
		assigned[h.ID()] = true
		for {
			// 2.2. Add to I(h) any node all of whose immediate predecessors are
			// already in I(h).
			n, ok := find2_2(g, order, reached, I, H, assigned)
			if !ok {
				// 2.3. Repeat 2.2 until no more nodes can be added to I(h).
				break
			}
			I.addNode(n)
			assigned[n.ID()] = true
		}
		// 3. Add to H all nodes in G which are not already in H and which are not
		// in I(h) but which have immediate predecessors in I(h). Therefore a node
		// is added to H the first time any (but not all) of its immediate
		// predecessors become members of an interval.
		for {
			n, ok := find3(g, order, I, H, assigned)
			if !ok {
				break
			}
			H.push(n)
		}
		intervals = append(intervals, I)
	}
	return intervals
}

func find2_2(g Graph, order []graph.Node, reached map[int64]bool, I *Interval, H *queue, assigned map[int64]bool) (graph.Node, bool) {
	// 2.2. Add to I(h) any node all of whose immediate predecessors are
	// already in I(h).
loop:
	for _, n := range order {
		if n.ID() == g.Entry().ID() {
			continue
		}
		if assigned[n.ID()] || H.has(n) {
			// skip if already in I(h), in another interval or a header.
			continue
		}
		for _, pred := range g.Preds(n) {
			if !reached[pred.ID()] {
				// unreachable predecessors never execute.
				continue
			}
			if !I.Has(pred) {
				// skip node, as not all immediate predecessors are in I(h).
				continue loop
			}
		}
		return n, true
	}
	return nil, false
}

func find3(g Graph, order []graph.Node, I *Interval, H *queue, assigned map[int64]bool) (graph.Node, bool) {
	// 3. Add to H all nodes in G which are not already in H and which are not in
	// I(h) but which have immediate predecessors in I(h). Therefore a node is
	// added to H the first time any (but not all) of its immediate
	// predecessors become members of an interval.
	for _, n := range order {
		if H.has(n) {
			// skip if already in H.
			continue
		}
		if assigned[n.ID()] {
			// skip if already in I(h) or another interval.
			continue
		}
		for _, pred := range g.Preds(n) {
			if I.Has(pred) {
				return n, true
			}
		}
	}
	return nil, false
}

// --- interval

// An Interval I(h) is the maximal, single-entry subgraph in which h is the only
// entry node and in which all closed paths contain h.
type Interval struct {
	// Head specifies the entry node of the interval.
	Head graph.Node
	// nodes contained within the interval, in the order they were added.
	nodes []graph.Node
	// has tracks the IDs of the nodes contained within the interval.
	has map[int64]bool
}

// newInterval returns a new interval with the given header node.
func newInterval(head graph.Node) *Interval {
	return &Interval{
		Head:  head,
		nodes: []graph.Node{head},
		has: map[int64]bool{
			head.ID(): true,
		},
	}
}

// addNode adds the given node to the interval.
func (I *Interval) addNode(n graph.Node) {
	if !I.has[n.ID()] {
		I.has[n.ID()] = true
		I.nodes = append(I.nodes, n)
	}
}

// Has returns whether the node exists within the interval.
func (I *Interval) Has(n graph.Node) bool {
	return I.has[n.ID()]
}

// Nodes returns all the nodes in the interval, the header first.
func (I *Interval) Nodes() []graph.Node {
	return I.nodes
}

// --- queue

// A queue is a FIFO queue of nodes.
type queue struct {
	// List of nodes in queue.
	l []graph.Node
	// Current position in queue.
	i int
}

// newQueue returns a new FIFO queue.
func newQueue() *queue {
	return &queue{
		l: make([]graph.Node, 0),
	}
}

// push appends the given node to the end of the queue.
func (q *queue) push(n graph.Node) {
	if !q.has(n) {
		q.l = append(q.l, n)
	}
}

// has reports whether the given node is present in the queue.
func (q *queue) has(n graph.Node) bool {
	for _, m := range q.l {
		if n.ID() == m.ID() {
			return true
		}
	}
	return false
}

// pop pops and returns the first node of the queue.
func (q *queue) pop() graph.Node {
	if q.empty() {
		panic("invalid call to pop; empty queue")
	}
	n := q.l[q.i]
	q.i++
	return n
}

// empty reports whether the queue is empty.
func (q *queue) empty() bool {
	return len(q.l[q.i:]) == 0
}
