package cfg

import (
	"testing"

	"github.com/graphism/cfgstat/flow"
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph"
)

func TestParseFile(t *testing.T) {
	golden := []struct {
		path   string
		id     string
		entry  string
		blocks []string
		edges  []string
	}{
		{
			path:   "testdata/while.dot",
			id:     "while",
			entry:  "A",
			blocks: []string{"A", "B", "C", "D"},
			edges:  []string{"A->B", "B->C", "B->D", "C->B"},
		},
		{
			// Graphs without DOT ID are named after the file.
			path:   "testdata/noname.dot",
			id:     "noname",
			entry:  "entry",
			blocks: []string{"entry", "exit"},
			edges:  []string{"entry->exit"},
		},
		{
			path:   "testdata/switch.dot",
			id:     "switch",
			entry:  "A",
			blocks: []string{"A", "B", "C", "D"},
			edges:  []string{"A->B", "A->C", "A->C", "B->D", "C->D"},
		},
	}
	for _, gold := range golden {
		g, err := ParseFile(gold.path)
		if err != nil {
			t.Errorf("%q; unable to parse file; %v", gold.path, err)
			continue
		}
		if got := g.DOTID(); got != gold.id {
			t.Errorf("%q; graph ID mismatch; expected %q, got %q", gold.path, gold.id, got)
		}
		if got := g.Entry().(*Node).Name(); got != gold.entry {
			t.Errorf("%q; entry node mismatch; expected %q, got %q", gold.path, gold.entry, got)
		}
		assert.Equal(t, gold.blocks, names(g.Blocks()), gold.path)
		assert.Equal(t, gold.edges, edgeNames(g), gold.path)
		assert.Equal(t, len(gold.edges), g.NumEdges(), gold.path)
	}
}

func TestParseErrors(t *testing.T) {
	golden := []struct {
		name string
		in   string
	}{
		{name: "missing entry", in: "digraph { A -> B }"},
		{name: "two entries", in: "digraph { A [label=entry]; B [label=entry]; A -> B }"},
		{name: "syntax", in: "digraph { A -> }"},
	}
	for _, gold := range golden {
		if _, err := ParseString(gold.in); err == nil {
			t.Errorf("%s; expected error, got nil", gold.name)
		}
	}
}

func TestParallelEdges(t *testing.T) {
	g, err := ParseFile("testdata/switch.dot")
	require.NoError(t, err)
	a := mustNode(t, g, "A")
	c := mustNode(t, g, "C")
	// Successors are listed once per edge, in edge order.
	assert.Equal(t, []string{"B", "C", "C"}, names(g.Succs(a)))
	assert.Equal(t, []string{"A", "A"}, names(g.Preds(c)))
	// The gonum view has no duplicates.
	assert.Equal(t, []string{"B", "C"}, names(graph.NodesOf(g.From(a.ID()))))
	assert.Equal(t, []string{"A"}, names(graph.NodesOf(g.To(c.ID()))))
	lines := graph.LinesOf(g.Lines(a.ID(), c.ID()))
	require.Len(t, lines, 2)
	assert.NotEqual(t, lines[0].ID(), lines[1].ID())
	assert.Equal(t, "0", lines[0].(*Edge).Attrs["label"])
	assert.Equal(t, "1", lines[1].(*Edge).Attrs["label"])
	assert.True(t, g.HasEdgeFromTo(a.ID(), c.ID()))
	assert.False(t, g.HasEdgeFromTo(c.ID(), a.ID()))
	assert.True(t, g.HasEdgeBetween(c.ID(), a.ID()))
}

func TestRoundTrip(t *testing.T) {
	golden := []struct {
		path string
	}{
		{path: "testdata/while.dot"},
		{path: "testdata/switch.dot"},
		{path: "testdata/nested.dot"},
	}
	for _, gold := range golden {
		want, err := ParseFile(gold.path)
		if err != nil {
			t.Errorf("%q; unable to parse file; %v", gold.path, err)
			continue
		}
		got, err := ParseString(want.String())
		if err != nil {
			t.Errorf("%q; unable to parse output; %v", gold.path, err)
			continue
		}
		assert.Equal(t, want.DOTID(), got.DOTID(), gold.path)
		assert.Equal(t, names(want.Blocks()), names(got.Blocks()), gold.path)
		assert.Equal(t, edgeNames(want), edgeNames(got), gold.path)
		assert.Equal(t, want.Entry().(*Node).Name(), got.Entry().(*Node).Name(), gold.path)
	}
}

func TestCopy(t *testing.T) {
	src, err := ParseFile("testdata/switch.dot")
	require.NoError(t, err)
	dst := NewGraph()
	Copy(dst, src)
	assert.Equal(t, src.DOTID(), dst.DOTID())
	assert.Equal(t, names(src.Blocks()), names(dst.Blocks()))
	assert.Equal(t, edgeNames(src), edgeNames(dst))
	assert.Equal(t, src.Entry().ID(), dst.Entry().ID())
	// The copy is independent of the source.
	dst.RemoveNode(mustNode(t, dst, "D").ID())
	assert.Len(t, src.Blocks(), 4)
	assert.Len(t, dst.Blocks(), 3)
	assert.Equal(t, 5, src.NumEdges())
	assert.Equal(t, 3, dst.NumEdges())
}

func TestMerge(t *testing.T) {
	golden := []struct {
		path   string
		nodes  map[string]bool
		id     string
		entry  string
		blocks []string
		edges  []string
	}{
		{
			path:   "testdata/while.dot",
			nodes:  map[string]bool{"B": true, "C": true},
			id:     "I1",
			entry:  "A",
			blocks: []string{"A", "D", "I1"},
			edges:  []string{"A->I1", "I1->D"},
		},
		{
			path:   "testdata/while.dot",
			nodes:  map[string]bool{"A": true},
			id:     "I1",
			entry:  "I1",
			blocks: []string{"B", "C", "D", "I1"},
			edges:  []string{"B->C", "B->D", "C->B", "I1->B"},
		},
		{
			path:   "testdata/nested.dot",
			nodes:  map[string]bool{"C": true, "D": true},
			id:     "I2",
			entry:  "A",
			blocks: []string{"A", "B", "E", "F", "I2"},
			edges:  []string{"A->B", "B->F", "B->I2", "E->B", "I2->E"},
		},
	}
	for _, gold := range golden {
		in, err := ParseFile(gold.path)
		if err != nil {
			t.Errorf("%q; unable to parse file; %v", gold.path, err)
			continue
		}
		out := Merge(in, gold.nodes, gold.id)
		if got := out.Entry().(*Node).Name(); got != gold.entry {
			t.Errorf("%q; entry node mismatch; expected %q, got %q", gold.path, gold.entry, got)
		}
		assert.Equal(t, gold.blocks, names(out.Blocks()), gold.path)
		assert.Equal(t, gold.edges, edgeNames(out), gold.path)
		// The input is left untouched.
		for name := range gold.nodes {
			_, ok := in.NodeWithName(name)
			assert.True(t, ok, gold.path)
		}
		_, ok := in.NodeWithName(gold.id)
		assert.False(t, ok, gold.path)
	}
}

func TestNewGraphFromFunc(t *testing.T) {
	const src = `
define i32 @f(i32 %n) {
entry:
	br label %cond
cond:
	%c = icmp slt i32 %n, 10
	br i1 %c, label %body, label %exit
body:
	br label %cond
exit:
	ret i32 %n
}

define void @g(i32 %x) {
entry:
	switch i32 %x, label %a [
		i32 0, label %b
		i32 1, label %b
	]
a:
	ret void
b:
	ret void
}
`
	m, err := asm.ParseString("test.ll", src)
	require.NoError(t, err)
	require.Len(t, m.Funcs, 2)

	f, err := NewGraphFromFunc(m.Funcs[0])
	require.NoError(t, err)
	assert.Equal(t, "f", f.DOTID())
	assert.Equal(t, "entry", f.Entry().(*Node).Name())
	assert.Equal(t, []string{"entry", "cond", "body", "exit"}, names(f.Blocks()))
	assert.Equal(t, []string{"entry->cond", "cond->body", "cond->exit", "body->cond"}, edgeNames(f))

	g, err := NewGraphFromFunc(m.Funcs[1])
	require.NoError(t, err)
	assert.Equal(t, 3, g.NumEdges())
	assert.Equal(t, []string{"a", "b", "b"}, names(g.Succs(g.Entry())))
}

func TestNewGraphFromFuncMalformed(t *testing.T) {
	decl := ir.NewFunc("decl", types.Void)
	_, err := NewGraphFromFunc(decl)
	assert.ErrorIs(t, err, flow.ErrMalformed)

	noTerm := ir.NewFunc("noterm", types.Void)
	noTerm.NewBlock("entry")
	_, err = NewGraphFromFunc(noTerm)
	assert.ErrorIs(t, err, flow.ErrMalformed)
}

func TestRemoveNode(t *testing.T) {
	g, err := ParseFile("testdata/while.dot")
	require.NoError(t, err)
	b := mustNode(t, g, "B")
	g.RemoveNode(b.ID())
	assert.Equal(t, []string{"A", "C", "D"}, names(g.Blocks()))
	assert.Empty(t, edgeNames(g))
	assert.Nil(t, g.Node(b.ID()))
	_, ok := g.NodeWithName("B")
	assert.False(t, ok)
	// Removing a missing node is a no-op.
	g.RemoveNode(b.ID())
	assert.Len(t, g.Blocks(), 3)
	// Removing the entry node leaves the graph without entry.
	g.RemoveNode(g.Entry().ID())
	assert.Nil(t, g.Entry())
}

// mustNode returns the node with the given name.
func mustNode(t *testing.T, g *Graph, name string) *Node {
	t.Helper()
	n, ok := g.NodeWithName(name)
	require.True(t, ok, "unable to locate node %q", name)
	return n
}

// names returns the names of the given nodes.
func names(nodes []graph.Node) []string {
	var ns []string
	for _, n := range nodes {
		ns = append(ns, n.(*Node).Name())
	}
	return ns
}

// edgeNames returns the edges of g as "from->to" strings.
func edgeNames(g *Graph) []string {
	var es []string
	for _, e := range g.Edges() {
		es = append(es, e.F.Name()+"->"+e.T.Name())
	}
	return es
}
