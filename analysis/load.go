package analysis

import (
	"path/filepath"
	"strings"

	"github.com/graphism/cfgstat/cfg"
	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/pkg/errors"
)

// A Procedure is a function to analyze.
type Procedure struct {
	// Function name.
	Name string
	// Control flow graph of the function; nil if it could not be built.
	Graph *cfg.Graph
	// LLVM IR function the control flow graph was built from; nil for graphs
	// read from DOT files.
	Func *ir.Func
	// Err records why the control flow graph could not be built.
	Err error
}

// LoadFile loads the procedures of the given file. LLVM IR files (*.ll)
// contain one procedure per function definition; Graphviz DOT files (*.dot,
// *.gv) contain a single procedure.
func LoadFile(path string) ([]*Procedure, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".ll":
		m, err := asm.ParseFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return LoadModule(m), nil
	case ".dot", ".gv":
		g, err := cfg.ParseFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return []*Procedure{{Name: g.DOTID(), Graph: g}}, nil
	default:
		return nil, errors.Errorf("unable to load %q; unknown file extension %q", path, ext)
	}
}

// LoadModule returns the procedures of the function definitions of m, in
// module order. Function declarations are skipped. A function whose control
// flow graph cannot be built is returned with Err set.
func LoadModule(m *ir.Module) []*Procedure {
	var procs []*Procedure
	for _, f := range m.Funcs {
		if len(f.Blocks) == 0 {
			// skip function declarations.
			continue
		}
		p := &Procedure{Name: f.Name(), Func: f}
		p.Graph, p.Err = cfg.NewGraphFromFunc(f)
		procs = append(procs, p)
	}
	return procs
}
