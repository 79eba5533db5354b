// Package analysis runs the control flow graph analyses over every function of
// a program and records their metrics.
package analysis

import (
	"context"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/graphism/cfgstat/cfa"
	"github.com/graphism/cfgstat/flow"
	"github.com/graphism/cfgstat/metrics"
	"github.com/graphism/cfgstat/uninit"
	"github.com/mewkiz/pkg/term"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/graph"
)

var (
	// dbg represents a logger with the "analysis:" prefix, which logs debug
	// messages; discarded unless enabled with SetDebugOutput.
	dbg = log.New(io.Discard, term.MagentaBold("analysis:")+" ", 0)
	// warn represents a logger with the "analysis:" prefix, which logs warning
	// messages to standard error.
	warn = log.New(os.Stderr, term.RedBold("analysis:")+" ", 0)
)

// SetDebugOutput sets the output destination of debug messages.
func SetDebugOutput(w io.Writer) {
	dbg.SetOutput(w)
}

// Metric names.
const (
	BasicBlockCount     = "BasicBlockCount"
	CFGEdgeCount        = "CFGEdgeCount"
	BackEdgeCount       = "BackEdgeCount"
	LoopBasicBlockCount = "LoopBasicBlockCount"
	DominatorsCount     = "DominatorsCount"
	AllLoopsCount       = "AllLoopsCount"
	TopLoopCount        = "TopLoopCount"
	LoopExitCFGCount    = "LoopExitCFGCount"
	WarshLoopCount      = "WarshLoopCount"
	ControlDependence   = "ControlDependence"
	NodesReachable      = "NodesReachable"
	IrreducibleCount    = "IrreducibleCount"
	UninitializedVars   = "UninitializedVars"
)

// Metrics lists the metric names in recording order.
var Metrics = []string{
	BasicBlockCount,
	CFGEdgeCount,
	BackEdgeCount,
	LoopBasicBlockCount,
	DominatorsCount,
	AllLoopsCount,
	TopLoopCount,
	LoopExitCFGCount,
	WarshLoopCount,
	ControlDependence,
	NodesReachable,
	IrreducibleCount,
	UninitializedVars,
}

// Result holds the analysis results of a procedure.
type Result struct {
	// Function name.
	Name string
	// Number of basic blocks.
	Blocks int
	// Number of edges, parallel edges included.
	Edges int
	// Dominator and post-dominator trees.
	Dom, PostDom *flow.DominatorTree
	// Natural loops.
	Loops *cfa.LoopNest
	// Cycles and their entries.
	Cycles *cfa.CycleSet
	// Control dependence relation.
	CDep *flow.ControlDependence
	// Number of ordered pairs of blocks (a, b) such that b is reachable from a
	// by a path of at least one edge.
	ReachablePairs int
	// Longest path found by the reachability search.
	LongestPath []graph.Node
	// Reducible reports whether the derived graph sequence ends in a single
	// node.
	Reducible bool
	// Possibly uninitialized loads; only computed for LLVM IR functions.
	Uninit []uninit.Finding
	// hasIR reports whether the procedure was built from LLVM IR.
	hasIR bool
}

// Analyze runs every analysis over the control flow graph of p.
//
// It returns an error wrapping flow.ErrMalformed if the control flow graph is
// missing or malformed.
func Analyze(p *Procedure) (*Result, error) {
	if p.Err != nil {
		return nil, errors.WithStack(p.Err)
	}
	g := p.Graph
	if g == nil {
		return nil, errors.Wrapf(flow.ErrMalformed, "procedure %q has no control flow graph", p.Name)
	}
	if err := flow.Validate(g); err != nil {
		return nil, errors.Wrapf(err, "procedure %q", p.Name)
	}
	if unreachable := flow.Unreachable(g); len(unreachable) > 0 {
		dbg.Printf("procedure %q: %d blocks unreachable from entry", p.Name, len(unreachable))
	}
	start := time.Now()
	r := &Result{
		Name:   p.Name,
		Blocks: len(g.Blocks()),
		Edges:  g.NumEdges(),
		hasIR:  p.Func != nil,
	}
	r.Dom = flow.Dominators(g)
	r.PostDom = flow.PostDominators(g)
	r.Loops = cfa.NaturalLoops(g)
	domDone := time.Now()
	r.Cycles = cfa.CycleLoops(g)
	dbg.Printf("procedure %q: natural loops in %v, cycle loops in %v", p.Name, domDone.Sub(start), time.Since(domDone))
	r.CDep = flow.ControlDependences(g)
	r.ReachablePairs, r.LongestPath = flow.ReachablePairs(g)
	r.Reducible = cfa.Reducible(g)
	if p.Func != nil {
		findings, err := uninit.CheckGraph(p.Func, g)
		if err != nil {
			return nil, errors.Wrapf(err, "procedure %q", p.Name)
		}
		r.Uninit = findings
	}
	return r, nil
}

// Values returns the metric values of the result, keyed by metric name.
func (r *Result) Values() map[string]int {
	irreducible := 0
	if !r.Reducible {
		irreducible = 1
	}
	values := map[string]int{
		BasicBlockCount:     r.Blocks,
		CFGEdgeCount:        r.Edges,
		BackEdgeCount:       r.Loops.BackEdges,
		LoopBasicBlockCount: r.Loops.BlockCount(),
		DominatorsCount:     r.Dom.StrictDominatorCount(),
		AllLoopsCount:       r.Loops.Count(),
		TopLoopCount:        len(r.Loops.TopLevel),
		LoopExitCFGCount:    r.Loops.ExitEdgeCount(),
		WarshLoopCount:      r.Cycles.LoopCount(),
		ControlDependence:   r.CDep.Count(),
		NodesReachable:      r.ReachablePairs,
		IrreducibleCount:    irreducible,
	}
	if r.hasIR {
		values[UninitializedVars] = len(r.Uninit)
	}
	return values
}

// Record records the metric values of the result in set, in the order of
// Metrics.
func (r *Result) Record(set *metrics.Set) {
	values := r.Values()
	for _, name := range Metrics {
		if v, ok := values[name]; ok {
			set.Record(name, r.Name, v)
		}
	}
}

// ProcError is the error of a procedure which could not be analyzed.
type ProcError struct {
	// Function name.
	Name string
	// Underlying error.
	Err error
}

// Error returns the error message of the procedure error.
func (e *ProcError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ProcError) Unwrap() error {
	return e.Err
}

// Options controls a whole-program run.
type Options struct {
	// Number of procedures analyzed concurrently; GOMAXPROCS if zero or
	// negative.
	Workers int
	// Logger of skipped procedures; defaults to standard error.
	Log *log.Logger
}

// Run analyzes every procedure and records the metrics of the successfully
// analyzed ones in set, in procedure order.
//
// A procedure that fails to be analyzed is reported as a ProcError and does
// not stop the run. The context is checked before each procedure; if it is
// done, Run returns its error and records nothing.
func Run(ctx context.Context, procs []*Procedure, set *metrics.Set, opts Options) ([]*Result, []*ProcError, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	logger := opts.Log
	if logger == nil {
		logger = warn
	}
	results := make([]*Result, len(procs))
	errs := make([]error, len(procs))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, p := range procs {
		i, p := i, p
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			results[i], errs[i] = Analyze(p)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, err
	}
	// Merge results in procedure order, so that samples are recorded in
	// visitation order regardless of scheduling.
	var done []*Result
	var procErrs []*ProcError
	for i, p := range procs {
		if errs[i] != nil {
			logger.Printf("skipping procedure %q; %v", p.Name, errs[i])
			procErrs = append(procErrs, &ProcError{Name: p.Name, Err: errs[i]})
			continue
		}
		results[i].Record(set)
		done = append(done, results[i])
	}
	return done, procErrs, nil
}
