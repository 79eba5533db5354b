package cfg

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
)

// Copy copies the nodes and edges of src into dst, preserving node IDs,
// layout order and successor order.
func Copy(dst, src *Graph) {
	dst.id = src.id
	for _, n := range src.nodes {
		nn := &Node{
			id:    n.id,
			name:  n.name,
			entry: n.entry,
			Attrs: make(Attrs),
		}
		for k, v := range n.Attrs {
			nn.Attrs[k] = v
		}
		dst.AddNode(nn)
	}
	for _, e := range src.Edges() {
		ee := &Edge{
			F:     dst.byID[e.F.id],
			T:     dst.byID[e.T.id],
			id:    e.id,
			Attrs: make(Attrs),
		}
		for k, v := range e.Attrs {
			ee.Attrs[k] = v
		}
		dst.SetLine(ee)
	}
}

// Merge returns a new control flow graph where the specified nodes have been
// collapsed into a single node with the given node name, and the predecessors
// and successors of the specified nodes.
//
// The collapsed node becomes the entry node if any of the specified nodes was
// the entry node.
func Merge(src *Graph, delNodes map[string]bool, newName string) *Graph {
	dst := NewGraph()
	Copy(dst, src)
	var preds, succs []graph.Node
	seenPred := make(map[string]bool)
	seenSucc := make(map[string]bool)
	newNode := dst.NewNodeWithName(newName)
	isEntry := false
	// Visit nodes in layout order, to keep the edge order of the merged graph
	// deterministic.
	for _, n := range src.nodes {
		if !delNodes[n.name] {
			continue
		}
		delNode := dst.nodeWithName(n.name)
		if delNode.entry {
			isEntry = true
		}
		// Record predecessors not part of nodes.
		for _, pred := range dst.Preds(delNode) {
			p := node(pred)
			if !delNodes[p.name] && !seenPred[p.name] {
				seenPred[p.name] = true
				preds = append(preds, p)
			}
		}
		// Record successors not part of nodes.
		for _, succ := range dst.Succs(delNode) {
			s := node(succ)
			if !delNodes[s.name] && !seenSucc[s.name] {
				seenSucc[s.name] = true
				succs = append(succs, s)
			}
		}
		dst.RemoveNode(delNode.id)
	}
	dst.AddNode(newNode)
	if isEntry {
		dst.SetEntry(newNode)
	}
	// Add edges from predecessors to new node.
	for _, pred := range preds {
		dst.AddEdge(node(pred), newNode)
	}
	// Add edges from new node to successors.
	for _, succ := range succs {
		dst.AddEdge(newNode, node(succ))
	}
	return dst
}

// nodeWithName returns the node with the given name.
//
// If no matching node was located, nodeWithName panics.
func (g *Graph) nodeWithName(name string) *Node {
	n, ok := g.byName[name]
	if !ok {
		panic(fmt.Errorf("unable to locate node with name %q", name))
	}
	return n
}
