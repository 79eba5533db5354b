package cfg

import (
	"io"
	"io/ioutil"
	"path/filepath"

	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// Parse parses the given Graphviz DOT file into a control flow graph, reading
// from r.
func Parse(r io.Reader) (*Graph, error) {
	buf, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ParseBytes(buf)
}

// ParseFile parses the given Graphviz DOT file into a control flow graph,
// reading from path.
//
// Graphs without a DOT ID are named after the base name of path.
func ParseFile(path string) (*Graph, error) {
	buf, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	g, err := ParseBytes(buf)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to parse %q", path)
	}
	if len(g.DOTID()) == 0 {
		g.SetDOTID(pathutil.TrimExt(filepath.Base(path)))
	}
	return g, nil
}

// ParseBytes parses the given Graphviz DOT file into a control flow graph,
// reading from b.
//
// The entry node is the node with the DOT attribute label="entry".
func ParseBytes(b []byte) (*Graph, error) {
	g := NewGraph()
	if err := dot.UnmarshalMulti(b, g); err != nil {
		return nil, errors.WithStack(err)
	}
	// Initialize mapping between node names and graph nodes.
	if err := g.initNodes(); err != nil {
		return nil, errors.WithStack(err)
	}
	if g.entry == nil {
		return nil, errors.New(`unable to locate entry node; missing DOT node with label attribute "entry"`)
	}
	return g, nil
}

// ParseString parses the given Graphviz DOT file into a control flow graph,
// reading from s.
func ParseString(s string) (*Graph, error) {
	return ParseBytes([]byte(s))
}
