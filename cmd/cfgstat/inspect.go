package main

import (
	"fmt"
	"strings"

	"github.com/graphism/cfgstat/flow"
	"github.com/graphism/cfgstat/uninit"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/graph"
)

// reachCmd prints a path between two basic blocks.
var reachCmd = &cobra.Command{
	Use:   "reach [flags] FILE FROM TO",
	Short: "Print a path from one basic block to another",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reach(args[0], args[1], args[2])
	},
}

// loopsCmd prints the loops of functions.
var loopsCmd = &cobra.Command{
	Use:   "loops [flags] FILE...",
	Short: "Print natural loops and cycles of functions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return loops(args)
	},
}

// cdepCmd prints the control dependences of functions.
var cdepCmd = &cobra.Command{
	Use:   "cdep [flags] FILE...",
	Short: "Print control dependences of functions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cdep(args)
	},
}

// uninitCmd prints possibly uninitialized loads of local variables.
var uninitCmd = &cobra.Command{
	Use:   "uninit [flags] FILE...",
	Short: "Print local variables of LLVM IR functions possibly read before written",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return uninitVars(args)
	},
}

// dotCmd prints control flow graphs in DOT format.
var dotCmd = &cobra.Command{
	Use:   "dot [flags] FILE...",
	Short: "Print control flow graphs in Graphviz DOT format",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return dot(args)
	},
}

// reach prints a path from the basic block named from to the basic block named
// to.
func reach(path, from, to string) error {
	procs, err := loadProcs([]string{path})
	if err != nil {
		return err
	}
	if len(procs) > 1 {
		return errors.Errorf("%d functions in %q; select one with -func", len(procs), path)
	}
	p := procs[0]
	if p.Err != nil {
		return errors.WithStack(p.Err)
	}
	a, ok := p.Graph.NodeWithName(from)
	if !ok {
		return errors.Errorf("unable to locate basic block %q in function %q", from, p.Name)
	}
	b, ok := p.Graph.NodeWithName(to)
	if !ok {
		return errors.Errorf("unable to locate basic block %q in function %q", to, p.Name)
	}
	nodes := flow.Reachable(p.Graph, a, b)
	if nodes == nil {
		fmt.Printf("%s: %q is unreachable from %q\n", p.Name, to, from)
		return nil
	}
	fmt.Printf("%s: %s\n", p.Name, pathString(nodes))
	return nil
}

// loops prints the natural loops and cycles of the functions of the given
// files.
func loops(paths []string) error {
	results, err := analyzedProcs(paths)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("=== [ %s ] ===\n\n", r.Name)
		fmt.Printf("natural loops: %d (top-level %d, back edges %d)\n", r.Loops.Count(), len(r.Loops.TopLevel), r.Loops.BackEdges)
		for _, l := range r.Loops.Loops {
			indent := strings.Repeat("   ", l.Depth-1)
			fmt.Printf("   %sheader %v: body %s, exits %d\n", indent, l.Header, nodesString(l.Body), len(l.Exits))
		}
		fmt.Printf("cycle loops: %d\n", r.Cycles.LoopCount())
		for _, c := range r.Cycles.Cycles {
			fmt.Printf("   cycle %s\n", nodesString(c.Nodes))
			for _, e := range c.Entries {
				if e.Pred == nil {
					fmt.Printf("      entry %v (function entry)\n", e.Node)
					continue
				}
				fmt.Printf("      entry %v -> %v\n", e.Pred, e.Node)
			}
		}
		if !r.Reducible {
			fmt.Println("irreducible")
		}
		fmt.Println()
	}
	return nil
}

// cdep prints the control dependences of the functions of the given files.
func cdep(paths []string) error {
	results, err := analyzedProcs(paths)
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("=== [ %s ] ===\n\n", r.Name)
		for _, pair := range r.CDep.Pairs() {
			fmt.Printf("   %v -> %v\n", pair[0], pair[1])
		}
		fmt.Printf("control dependences: %d\n\n", r.CDep.Count())
	}
	return nil
}

// uninitVars prints the possibly uninitialized loads of local variables of the
// LLVM IR functions of the given files.
func uninitVars(paths []string) error {
	procs, err := loadProcs(paths)
	if err != nil {
		return err
	}
	for _, p := range procs {
		if p.Func == nil {
			warn.Printf("skipping function %q; not LLVM IR", p.Name)
			continue
		}
		if p.Err != nil {
			warn.Printf("skipping function %q; %v", p.Name, p.Err)
			continue
		}
		findings, err := uninit.CheckGraph(p.Func, p.Graph)
		if err != nil {
			warn.Printf("skipping function %q; %v", p.Name, err)
			continue
		}
		for _, f := range findings {
			fmt.Printf("%s: %%%s may be uninitialized in %%%s (path %s)\n", f.Func, f.Var, f.Block, strings.Join(f.Path, " -> "))
		}
	}
	return nil
}

// dot prints the control flow graphs of the functions of the given files in
// DOT format.
func dot(paths []string) error {
	procs, err := loadProcs(paths)
	if err != nil {
		return err
	}
	for _, p := range procs {
		if p.Err != nil {
			warn.Printf("skipping function %q; %v", p.Name, p.Err)
			continue
		}
		fmt.Println(p.Graph)
	}
	return nil
}

// pathString returns the string representation of the given path.
func pathString(nodes []graph.Node) string {
	var names []string
	for _, n := range nodes {
		names = append(names, fmt.Sprint(n))
	}
	return strings.Join(names, " -> ")
}

// nodesString returns the string representation of the given node set.
func nodesString(nodes []graph.Node) string {
	var names []string
	for _, n := range nodes {
		names = append(names, fmt.Sprint(n))
	}
	return "{" + strings.Join(names, ", ") + "}"
}
