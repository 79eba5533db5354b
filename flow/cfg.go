// Package flow implements reachability, dominance, control dependence and
// interval analysis of control flow graphs.
package flow

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/traverse"
)

// ErrMalformed is returned for control flow graphs that cannot be analyzed,
// such as graphs without nodes or without an entry node.
var ErrMalformed = errors.New("malformed control flow graph")

// A Graph represents a control flow graph; a directed graph with a unique
// entry node, in which the successors of every node are ordered.
type Graph interface {
	graph.Directed
	// Entry returns the entry node of the control flow graph.
	Entry() graph.Node
	// Blocks returns the nodes of the control flow graph in layout order.
	Blocks() []graph.Node
	// Succs returns the successors of n in successor order. A successor
	// appears once per edge.
	Succs(n graph.Node) []graph.Node
	// Preds returns the predecessors of n. A predecessor appears once per
	// edge.
	Preds(n graph.Node) []graph.Node
}

// A cfg represents a control flow graph on top of a plain directed graph.
// Nodes and successors are ordered by node ID.
type cfg struct {
	graph.Directed
	// Entry node of the control flow graph.
	entry graph.Node
	// Nodes ordered by ID.
	blocks []graph.Node
}

// NewGraph returns a new control flow graph based on the given directed graph
// and entry node. Blocks and successors are ordered by node ID.
//
// It returns an error wrapping ErrMalformed if the graph is empty or if the
// entry node is not part of the graph. Nodes unreachable from the entry node
// are permitted; see Unreachable.
func NewGraph(g graph.Directed, entry graph.Node) (Graph, error) {
	blocks := sortByID(graph.NodesOf(g.Nodes()))
	c := &cfg{
		Directed: g,
		entry:    entry,
		blocks:   blocks,
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Entry returns the entry node of the control flow graph.
func (g *cfg) Entry() graph.Node {
	return g.entry
}

// Blocks returns the nodes of the control flow graph ordered by ID.
func (g *cfg) Blocks() []graph.Node {
	return g.blocks
}

// Succs returns the successors of n ordered by ID.
func (g *cfg) Succs(n graph.Node) []graph.Node {
	return sortByID(graph.NodesOf(g.From(n.ID())))
}

// Preds returns the predecessors of n ordered by ID.
func (g *cfg) Preds(n graph.Node) []graph.Node {
	return sortByID(graph.NodesOf(g.To(n.ID())))
}

// Validate checks that g has at least one node and an entry node which is
// part of the graph.
func Validate(g Graph) error {
	if len(g.Blocks()) == 0 {
		return errors.Wrap(ErrMalformed, "graph has no nodes")
	}
	entry := g.Entry()
	if entry == nil {
		return errors.Wrap(ErrMalformed, "graph has no entry node")
	}
	if g.Node(entry.ID()) == nil {
		return errors.Wrapf(ErrMalformed, "entry node %v not present in graph", entry)
	}
	return nil
}

// Reaches returns the set of node IDs reachable by a path from the entry node
// of g, the entry node included.
func Reaches(g Graph) map[int64]bool {
	reached := make(map[int64]bool)
	df := &traverse.DepthFirst{
		Visit: func(n graph.Node) {
			reached[n.ID()] = true
		},
	}
	df.Walk(g, g.Entry(), nil)
	return reached
}

// Unreachable returns the nodes of g, in layout order, that cannot be reached
// by a path from the entry node.
func Unreachable(g Graph) []graph.Node {
	reached := Reaches(g)
	var nodes []graph.Node
	for _, n := range g.Blocks() {
		if !reached[n.ID()] {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// RevPost returns the nodes reachable from the entry node of g in reverse
// post-order of a depth-first traversal that follows successor order.
func RevPost(g Graph) []graph.Node {
	var post []graph.Node
	visited := make(map[int64]bool)
	var walk func(n graph.Node)
	walk = func(n graph.Node) {
		visited[n.ID()] = true
		for _, succ := range g.Succs(n) {
			if !visited[succ.ID()] {
				walk(succ)
			}
		}
		post = append(post, n)
	}
	walk(g.Entry())
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// sortByID sorts the given nodes in place by ID and returns them.
func sortByID(nodes []graph.Node) []graph.Node {
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID() < nodes[j].ID()
	})
	return nodes
}
