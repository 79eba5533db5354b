// Package cfg provides access to control flow graphs.
package cfg

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/iterator"
)

// === [ Graph ] ===============================================================

// Graph is a control flow graph.
//
// Nodes are kept in the order they were added (the layout order of the basic
// blocks) and the outgoing edges of a node are kept in the order they were
// set, which is the successor order of its terminator. Parallel edges between
// the same pair of nodes are distinct lines.
type Graph struct {
	// Graph ID.
	id string
	// Entry node of the control flow graph.
	entry *Node
	// nodes in layout order.
	nodes []*Node
	// byID maps from node ID to graph node.
	byID map[int64]*Node
	// byName maps from node name to graph node.
	byName map[string]*Node
	// succs maps from node ID to outgoing edges, in successor order.
	succs map[int64][]*Edge
	// preds maps from node ID to incoming edges.
	preds map[int64][]*Edge
	// Next unused node and line IDs.
	nodeID, lineID int64
}

// NewGraph returns a new control flow graph.
func NewGraph() *Graph {
	return &Graph{
		byID:   make(map[int64]*Node),
		byName: make(map[string]*Node),
		succs:  make(map[int64][]*Edge),
		preds:  make(map[int64][]*Edge),
	}
}

// String returns the string representation of the graph in Graphviz DOT format.
func (g *Graph) String() string {
	data, err := dot.MarshalMulti(g, g.DOTID(), "", "\t")
	if err != nil {
		panic(fmt.Errorf("unable to marshal control flow graph in DOT format; %v", err))
	}
	return string(data)
}

// Entry returns the entry node of the control flow graph, or nil if no entry
// node has been set.
func (g *Graph) Entry() graph.Node {
	if g.entry == nil {
		return nil
	}
	return g.entry
}

// SetEntry marks n as the entry node of the control flow graph.
func (g *Graph) SetEntry(n *Node) {
	if g.entry != nil {
		g.entry.entry = false
	}
	n.entry = true
	g.entry = n
}

// NewNodeWithName returns a new node with the given name. The node is not
// added to the graph.
func (g *Graph) NewNodeWithName(name string) *Node {
	if len(name) == 0 {
		panic("empty node name")
	}
	nn := node(g.NewNode())
	nn.name = name
	return nn
}

// NodeWithName returns the node with the given name, and a boolean variable
// indicating success.
func (g *Graph) NodeWithName(name string) (*Node, bool) {
	n, ok := g.byName[name]
	return n, ok
}

// AddEdge adds a new edge from one node to another and returns it. Adding an
// edge between an already connected pair of nodes adds a parallel edge.
func (g *Graph) AddEdge(from, to *Node) *Edge {
	e := g.NewLine(from, to).(*Edge)
	g.SetLine(e)
	return e
}

// Blocks returns the nodes of the graph in layout order.
func (g *Graph) Blocks() []graph.Node {
	nodes := make([]graph.Node, len(g.nodes))
	for i, n := range g.nodes {
		nodes[i] = n
	}
	return nodes
}

// Succs returns the successors of n in successor order. A successor appears
// once per edge.
func (g *Graph) Succs(n graph.Node) []graph.Node {
	var succs []graph.Node
	for _, e := range g.succs[n.ID()] {
		succs = append(succs, e.T)
	}
	return succs
}

// Preds returns the predecessors of n. A predecessor appears once per edge.
func (g *Graph) Preds(n graph.Node) []graph.Node {
	var preds []graph.Node
	for _, e := range g.preds[n.ID()] {
		preds = append(preds, e.F)
	}
	return preds
}

// Edges returns every edge of the graph, ordered by source node layout and
// successor order.
func (g *Graph) Edges() []*Edge {
	var edges []*Edge
	for _, n := range g.nodes {
		edges = append(edges, g.succs[n.id]...)
	}
	return edges
}

// NumEdges returns the number of edges in the graph, parallel edges included.
func (g *Graph) NumEdges() int {
	total := 0
	for _, es := range g.succs {
		total += len(es)
	}
	return total
}

// initNodes initializes the mapping between node names and graph nodes, and
// locates the entry node.
func (g *Graph) initNodes() error {
	for _, nn := range g.nodes {
		if len(nn.name) == 0 {
			return fmt.Errorf("invalid node; missing node name in %#v", nn)
		}
		if prev, ok := g.byName[nn.name]; ok && nn != prev {
			return fmt.Errorf("node name %q already present in graph; prev node %#v, new node %#v", nn.name, prev, nn)
		}
		g.byName[nn.name] = nn
		if nn.entry {
			if g.entry != nil && g.entry != nn {
				return fmt.Errorf("entry node already set in graph; prev entry node %q, new entry node %q", g.entry.name, nn.name)
			}
			g.entry = nn
		}
	}
	return nil
}

// --- [ dot.Graph ] -----------------------------------------------------------

// DOTID returns the DOT ID of the graph.
func (g *Graph) DOTID() string {
	return g.id
}

// --- [ dot.DOTIDSetter ] -----------------------------------------------------

// SetDOTID sets the DOT ID of the graph.
func (g *Graph) SetDOTID(id string) {
	g.id = id
}

// --- [ graph.Graph ] ---------------------------------------------------------

// Node returns the node with the given ID if it exists in the graph, and nil
// otherwise.
func (g *Graph) Node(id int64) graph.Node {
	n, ok := g.byID[id]
	if !ok {
		return nil
	}
	return n
}

// Nodes returns all the nodes in the graph, in layout order.
func (g *Graph) Nodes() graph.Nodes {
	if len(g.nodes) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(g.Blocks())
}

// From returns all nodes that can be reached directly from the node with the
// given ID, in successor order and without duplicates.
func (g *Graph) From(id int64) graph.Nodes {
	var nodes []graph.Node
	seen := make(map[int64]bool)
	for _, e := range g.succs[id] {
		if !seen[e.T.id] {
			seen[e.T.id] = true
			nodes = append(nodes, e.T)
		}
	}
	if len(nodes) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(nodes)
}

// HasEdgeBetween returns whether an edge exists between nodes x and y without
// considering direction.
func (g *Graph) HasEdgeBetween(xid, yid int64) bool {
	return g.HasEdgeFromTo(xid, yid) || g.HasEdgeFromTo(yid, xid)
}

// Edge returns the first edge from u to v if such an edge exists and nil
// otherwise.
func (g *Graph) Edge(uid, vid int64) graph.Edge {
	for _, e := range g.succs[uid] {
		if e.T.id == vid {
			return e
		}
	}
	return nil
}

// --- [ graph.Directed ] ------------------------------------------------------

// HasEdgeFromTo returns whether an edge exists in the graph from u to v.
func (g *Graph) HasEdgeFromTo(uid, vid int64) bool {
	return g.Edge(uid, vid) != nil
}

// To returns all nodes that can reach directly to the node with the given ID,
// without duplicates.
func (g *Graph) To(id int64) graph.Nodes {
	var nodes []graph.Node
	seen := make(map[int64]bool)
	for _, e := range g.preds[id] {
		if !seen[e.F.id] {
			seen[e.F.id] = true
			nodes = append(nodes, e.F)
		}
	}
	if len(nodes) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedNodes(nodes)
}

// --- [ graph.Multigraph ] ----------------------------------------------------

// Lines returns the lines from u to v, in the order they were added.
func (g *Graph) Lines(uid, vid int64) graph.Lines {
	var lines []graph.Line
	for _, e := range g.succs[uid] {
		if e.T.id == vid {
			lines = append(lines, e)
		}
	}
	if len(lines) == 0 {
		return graph.Empty
	}
	return iterator.NewOrderedLines(lines)
}

// --- [ graph.NodeAdder ] -----------------------------------------------------

// NewNode returns a new node with a unique arbitrary ID.
func (g *Graph) NewNode() graph.Node {
	for {
		id := g.nodeID
		g.nodeID++
		if _, ok := g.byID[id]; !ok {
			return &Node{id: id, Attrs: make(Attrs)}
		}
	}
}

// AddNode adds a node to the graph.
//
// If the added node ID matches an existing node ID, AddNode will panic.
func (g *Graph) AddNode(n graph.Node) {
	nn := node(n)
	if _, ok := g.byID[nn.id]; ok {
		panic(fmt.Errorf("node ID %d already present in graph", nn.id))
	}
	if nn.id >= g.nodeID {
		g.nodeID = nn.id + 1
	}
	g.byID[nn.id] = nn
	g.nodes = append(g.nodes, nn)
	if nn.entry {
		if g.entry != nil && nn != g.entry {
			panic(fmt.Errorf("entry node already set in graph; prev entry node %#v, new entry node %#v", g.entry, nn))
		}
		g.entry = nn
	}
	if len(nn.name) > 0 {
		if prev, ok := g.byName[nn.name]; ok && nn != prev {
			panic(fmt.Errorf("node name %q already present in graph; prev node %#v, new node %#v", nn.name, prev, nn))
		}
		g.byName[nn.name] = nn
	}
}

// --- [ graph.NodeRemover ] ---------------------------------------------------

// RemoveNode removes the node with the given ID from the graph, as well as any
// edges attached to it. If the node is not in the graph it is a no-op.
func (g *Graph) RemoveNode(id int64) {
	nn, ok := g.byID[id]
	if !ok {
		return
	}
	for _, e := range g.succs[id] {
		g.preds[e.T.id] = removeEdges(g.preds[e.T.id], id, true)
	}
	for _, e := range g.preds[id] {
		g.succs[e.F.id] = removeEdges(g.succs[e.F.id], id, false)
	}
	delete(g.succs, id)
	delete(g.preds, id)
	delete(g.byID, id)
	delete(g.byName, nn.name)
	for i, n := range g.nodes {
		if n == nn {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	if g.entry == nn {
		g.entry = nil
	}
}

// removeEdges returns es without the edges whose source (or target, when
// bySource is false) has the given ID.
func removeEdges(es []*Edge, id int64, bySource bool) []*Edge {
	var kept []*Edge
	for _, e := range es {
		end := e.T.id
		if bySource {
			end = e.F.id
		}
		if end != id {
			kept = append(kept, e)
		}
	}
	return kept
}

// --- [ graph.LineAdder ] -----------------------------------------------------

// NewLine returns a new edge from the source to the destination node.
func (g *Graph) NewLine(from, to graph.Node) graph.Line {
	id := g.lineID
	g.lineID++
	return &Edge{
		F:     node(from),
		T:     node(to),
		id:    id,
		Attrs: make(Attrs),
	}
}

// SetLine adds an edge from one node to another.
//
// The nodes will be added if they do not exist.
func (g *Graph) SetLine(l graph.Line) {
	e, ok := l.(*Edge)
	if !ok {
		panic(fmt.Errorf("invalid edge type; expected *cfg.Edge, got %T", l))
	}
	if _, ok := g.byID[e.F.id]; !ok {
		g.AddNode(e.F)
	}
	if _, ok := g.byID[e.T.id]; !ok {
		g.AddNode(e.T)
	}
	if e.id >= g.lineID {
		g.lineID = e.id + 1
	}
	g.succs[e.F.id] = append(g.succs[e.F.id], e)
	g.preds[e.T.id] = append(g.preds[e.T.id], e)
}

// === [ Node ] ================================================================

// Node is a node in a control flow graph.
type Node struct {
	// Node ID.
	id int64
	// Node name (e.g. basic block label).
	name string
	// entry specifies whether the node is the entry node of the control flow
	// graph.
	entry bool
	// DOT attributes.
	Attrs
}

// ID returns the ID of the node.
func (n *Node) ID() int64 {
	return n.id
}

// Name returns the name of the node.
func (n *Node) Name() string {
	return n.name
}

// String returns the name of the node.
func (n *Node) String() string {
	return n.name
}

// --- [ dot.Node ] ------------------------------------------------------------

// DOTID returns the DOT ID of the node.
func (n *Node) DOTID() string {
	return n.name
}

// --- [ dot.DOTIDSetter ] -----------------------------------------------------

// SetDOTID sets the DOT ID of the node.
func (n *Node) SetDOTID(id string) {
	n.name = id
}

// --- [ encoding.Attributer ] -------------------------------------------------

// Attributes returns the DOT attributes of the node.
func (n *Node) Attributes() []encoding.Attribute {
	attrs := n.Attrs.Attributes()
	if n.entry {
		attrs = append(attrs, encoding.Attribute{Key: "label", Value: "entry"})
		sort.SliceStable(attrs, func(i, j int) bool {
			return attrs[i].Key < attrs[j].Key
		})
	}
	return attrs
}

// --- [ encoding.AttributeSetter ] -------------------------------------------

// SetAttribute sets the DOT attribute of the node.
func (n *Node) SetAttribute(attr encoding.Attribute) error {
	if attr.Key == "label" && unquote(attr.Value) == "entry" {
		n.entry = true
		return nil
	}
	n.Attrs[attr.Key] = attr.Value
	return nil
}

// === [ Edge ] ================================================================

// Edge is an edge in a control flow graph.
type Edge struct {
	// Source and destination nodes.
	F, T *Node
	// Line ID, distinguishing parallel edges.
	id int64
	// DOT attributes.
	Attrs
}

// From returns the source node of the edge.
func (e *Edge) From() graph.Node {
	return e.F
}

// To returns the destination node of the edge.
func (e *Edge) To() graph.Node {
	return e.T
}

// ID returns the line ID of the edge.
func (e *Edge) ID() int64 {
	return e.id
}

// ReversedEdge returns a copy of the edge with source and destination swapped.
func (e *Edge) ReversedEdge() graph.Edge {
	return &Edge{F: e.T, T: e.F, id: e.id, Attrs: e.Attrs}
}

// ReversedLine returns a copy of the edge with source and destination swapped.
func (e *Edge) ReversedLine() graph.Line {
	return &Edge{F: e.T, T: e.F, id: e.id, Attrs: e.Attrs}
}

// --- [ encoding.Attributer ] -------------------------------------------------

// Attributes returns the DOT attributes of the edge.
func (e *Edge) Attributes() []encoding.Attribute {
	return e.Attrs.Attributes()
}

// --- [ encoding.AttributeSetter ] -------------------------------------------

// SetAttribute sets the DOT attribute of the edge.
func (e *Edge) SetAttribute(attr encoding.Attribute) error {
	e.Attrs[attr.Key] = attr.Value
	return nil
}

// ### [ Helper functions ] ####################################################

// Attrs specifies a set of DOT attributes as key-value pairs.
type Attrs map[string]string

// --- [ encoding.Attributer ] -------------------------------------------------

// Attributes returns the DOT attributes of a node or edge.
func (a Attrs) Attributes() []encoding.Attribute {
	var keys []string
	for key := range a {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var attrs []encoding.Attribute
	for _, key := range keys {
		attr := encoding.Attribute{
			Key:   key,
			Value: a[key],
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// node asserts that the given node is a control flow graph node.
func node(n graph.Node) *Node {
	if n, ok := n.(*Node); ok {
		return n
	}
	panic(fmt.Errorf("invalid node type; expected *cfg.Node, got %T", n))
}

// unquote strips the quotes of a quoted DOT ID.
func unquote(s string) string {
	if t, err := strconv.Unquote(s); err == nil {
		return t
	}
	return s
}
