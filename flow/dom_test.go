package flow_test

import (
	"math"
	"testing"

	"github.com/graphism/cfgstat/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/graph/simple"
)

func TestDominators(t *testing.T) {
	golden := []struct {
		path string
		// idom maps from node name to immediate dominator name; "" for none.
		idom  map[string]string
		count int
	}{
		{
			path:  "testdata/while.dot",
			idom:  map[string]string{"A": "", "B": "A", "C": "B", "D": "B"},
			count: 5,
		},
		{
			path:  "testdata/diamond.dot",
			idom:  map[string]string{"A": "", "B": "A", "C": "A", "D": "A"},
			count: 3,
		},
		{
			path:  "testdata/goto.dot",
			idom:  map[string]string{"A": "", "B": "A", "C": "A", "D": "C"},
			count: 4,
		},
		{
			path:  "testdata/unreachable.dot",
			idom:  map[string]string{"A": "", "B": "A", "C": ""},
			count: 1,
		},
	}
	for _, gold := range golden {
		g := mustParse(t, gold.path)
		dom := flow.Dominators(g)
		for block, want := range gold.idom {
			got := ""
			if d := dom.Idom(mustNode(t, g, block)); d != nil {
				got = name(d)
			}
			if got != want {
				t.Errorf("%q; immediate dominator of %q mismatch; expected %q, got %q", gold.path, block, want, got)
			}
		}
		if got := dom.StrictDominatorCount(); got != gold.count {
			t.Errorf("%q; strict dominator count mismatch; expected %d, got %d", gold.path, gold.count, got)
		}
	}
}

func TestDominatesProperties(t *testing.T) {
	for _, path := range []string{"testdata/while.dot", "testdata/diamond.dot", "testdata/goto.dot", "testdata/lifo.dot", "testdata/unreachable.dot"} {
		g := mustParse(t, path)
		dom := flow.Dominators(g)
		reached := flow.Reaches(g)
		for _, a := range g.Blocks() {
			// Every node dominates itself, never strictly.
			assert.True(t, dom.Dominates(a, a), path)
			assert.False(t, dom.StrictlyDominates(a, a), path)
			// The entry node dominates every reachable node.
			assert.Equal(t, reached[a.ID()], dom.Dominates(g.Entry(), a), "%q; entry dominates %v", path, a)
			for _, b := range g.Blocks() {
				if a.ID() != b.ID() && dom.Dominates(a, b) {
					assert.False(t, dom.Dominates(b, a), "%q; %v and %v dominate each other", path, a, b)
				}
			}
		}
	}
}

func TestDominatorTree(t *testing.T) {
	g := mustParse(t, "testdata/while.dot")
	dom := flow.Dominators(g)
	a, b, c, d := mustNode(t, g, "A"), mustNode(t, g, "B"), mustNode(t, g, "C"), mustNode(t, g, "D")
	assert.Equal(t, []string{"B"}, names(dom.Children(a)))
	assert.Equal(t, []string{"C", "D"}, names(dom.Children(b)))
	assert.Empty(t, dom.Children(c))
	assert.Equal(t, 0, dom.Depth(a))
	assert.Equal(t, 2, dom.Depth(d))
	assert.True(t, dom.StrictlyDominates(a, d))
	assert.False(t, dom.Dominates(c, d))
}

func TestPostDominators(t *testing.T) {
	golden := []struct {
		path string
		// ipdom maps from node name to immediate post-dominator name; "" for
		// none.
		ipdom map[string]string
	}{
		{
			path:  "testdata/while.dot",
			ipdom: map[string]string{"A": "B", "B": "D", "C": "B", "D": ""},
		},
		{
			path:  "testdata/diamond.dot",
			ipdom: map[string]string{"A": "D", "B": "D", "C": "D", "D": ""},
		},
		{
			path:  "testdata/ifthen.dot",
			ipdom: map[string]string{"A": "C", "B": "C", "C": ""},
		},
		{
			// B and C never reach the exit.
			path:  "testdata/infinite.dot",
			ipdom: map[string]string{"A": "D", "B": "", "C": "", "D": ""},
		},
	}
	for _, gold := range golden {
		g := mustParse(t, gold.path)
		pdt := flow.PostDominators(g)
		for block, want := range gold.ipdom {
			got := ""
			if d := pdt.Idom(mustNode(t, g, block)); d != nil {
				got = name(d)
			}
			if got != want {
				t.Errorf("%q; immediate post-dominator of %q mismatch; expected %q, got %q", gold.path, block, want, got)
			}
		}
	}
}

func TestPostDominatorsExtremeIDs(t *testing.T) {
	// Node IDs span the whole int64 range; the virtual exit must not collide
	// with any of them.
	g := simple.NewDirectedGraph()
	lo, mid, hi := simple.Node(math.MinInt64), simple.Node(0), simple.Node(math.MaxInt64)
	g.SetEdge(simple.Edge{F: lo, T: mid})
	g.SetEdge(simple.Edge{F: mid, T: hi})
	c, err := flow.NewGraph(g, lo)
	require.NoError(t, err)
	pdt := flow.PostDominators(c)
	require.NotNil(t, pdt.Idom(lo))
	assert.Equal(t, mid.ID(), pdt.Idom(lo).ID())
	require.NotNil(t, pdt.Idom(mid))
	assert.Equal(t, hi.ID(), pdt.Idom(mid).ID())
	assert.Nil(t, pdt.Idom(hi))
	assert.True(t, pdt.PostDominates(hi, lo))
	assert.Zero(t, flow.ControlDependences(c).Count())
}

func TestPostDominates(t *testing.T) {
	g := mustParse(t, "testdata/while.dot")
	pdt := flow.PostDominators(g)
	a, b, c, d := mustNode(t, g, "A"), mustNode(t, g, "B"), mustNode(t, g, "C"), mustNode(t, g, "D")
	assert.True(t, pdt.PostDominates(d, a))
	assert.True(t, pdt.PostDominates(b, c))
	assert.False(t, pdt.PostDominates(c, b))
	assert.True(t, pdt.PostDominates(d, d))
	assert.False(t, pdt.StrictlyPostDominates(d, d))
	assert.True(t, pdt.StrictlyPostDominates(b, a))

	g = mustParse(t, "testdata/infinite.dot")
	pdt = flow.PostDominators(g)
	b, c = mustNode(t, g, "B"), mustNode(t, g, "C")
	assert.True(t, pdt.PostDominates(b, b))
	assert.False(t, pdt.PostDominates(b, c))
	assert.False(t, pdt.PostDominates(c, b))
}

func TestControlDependences(t *testing.T) {
	golden := []struct {
		path  string
		pairs [][2]string
	}{
		{
			path:  "testdata/while.dot",
			pairs: [][2]string{{"B", "B"}, {"B", "C"}},
		},
		{
			path:  "testdata/ifthen.dot",
			pairs: [][2]string{{"A", "B"}},
		},
		{
			path:  "testdata/diamond.dot",
			pairs: [][2]string{{"A", "B"}, {"A", "C"}},
		},
		{
			path:  "testdata/infinite.dot",
			pairs: [][2]string{{"A", "B"}, {"B", "C"}, {"C", "B"}},
		},
	}
	for _, gold := range golden {
		g := mustParse(t, gold.path)
		cd := flow.ControlDependences(g)
		var got [][2]string
		for _, pair := range cd.Pairs() {
			got = append(got, [2]string{name(pair[0]), name(pair[1])})
		}
		assert.Equal(t, gold.pairs, got, gold.path)
		assert.Equal(t, len(gold.pairs), cd.Count(), gold.path)
	}
}

func TestControlDependenceLookup(t *testing.T) {
	g := mustParse(t, "testdata/while.dot")
	cd := flow.ControlDependences(g)
	a, b, c := mustNode(t, g, "A"), mustNode(t, g, "B"), mustNode(t, g, "C")
	assert.Equal(t, []string{"B", "C"}, names(cd.Dependents(b)))
	assert.Equal(t, []string{"B"}, names(cd.Controllers(c)))
	assert.Empty(t, cd.Dependents(a))
	assert.Empty(t, cd.Controllers(a))
}

func TestIntervals(t *testing.T) {
	golden := []struct {
		path string
		want [][]string
	}{
		{
			path: "testdata/while.dot",
			want: [][]string{{"A"}, {"B", "D", "C"}},
		},
		{
			path: "testdata/goto.dot",
			want: [][]string{{"A"}, {"B"}, {"C", "D"}},
		},
		{
			path: "testdata/diamond.dot",
			want: [][]string{{"A", "C", "B", "D"}},
		},
		{
			// Unreachable nodes belong to no interval.
			path: "testdata/unreachable.dot",
			want: [][]string{{"A", "B"}},
		},
	}
	for _, gold := range golden {
		g := mustParse(t, gold.path)
		var got [][]string
		for _, I := range flow.Intervals(g) {
			assert.Equal(t, I.Head.ID(), I.Nodes()[0].ID(), gold.path)
			got = append(got, names(I.Nodes()))
		}
		assert.Equal(t, gold.want, got, gold.path)
	}
}
