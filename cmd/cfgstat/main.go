// The cfgstat tool analyzes the structure of control flow graphs, and
// summarizes the structural metrics of whole programs.
//
// Control flow graphs are read from LLVM IR files (*.ll), one per function
// definition, or from Graphviz DOT files (*.dot, *.gv) where the entry node is
// marked with label="entry".
//
// Usage:
//
//	cfgstat stats [OPTION]... FILE...
//	cfgstat reach [OPTION]... FILE FROM TO
//	cfgstat loops [OPTION]... FILE...
//	cfgstat cdep [OPTION]... FILE...
//	cfgstat uninit [OPTION]... FILE...
//	cfgstat dot [OPTION]... FILE...
package main

import (
	"io"
	"log"
	"os"

	"github.com/graphism/cfgstat/analysis"
	"github.com/mewkiz/pkg/term"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	// dbg represents a logger with the "cfgstat:" prefix, which logs debug
	// messages to standard error.
	dbg = log.New(os.Stderr, term.MagentaBold("cfgstat:")+" ", 0)
	// warn represents a logger with the "cfgstat:" prefix, which logs warning
	// messages to standard error.
	warn = log.New(os.Stderr, term.RedBold("cfgstat:")+" ", 0)
)

// Global flags.
var (
	// Enable debug output.
	verbose bool
	// Restrict output to the function with the given name.
	funcName string
)

// rootCmd is the base command of cfgstat.
var rootCmd = &cobra.Command{
	Use:           "cfgstat",
	Short:         "cfgstat - control flow graph structure analysis",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !verbose {
			dbg.SetOutput(io.Discard)
			return
		}
		analysis.SetDebugOutput(os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug output")
	rootCmd.PersistentFlags().StringVarP(&funcName, "func", "f", "", "only analyze the function with the given name")
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reachCmd)
	rootCmd.AddCommand(loopsCmd)
	rootCmd.AddCommand(cdepCmd)
	rootCmd.AddCommand(uninitCmd)
	rootCmd.AddCommand(dotCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

// loadProcs loads the procedures of the given files, restricted to the
// function selected with -func. Procedures whose control flow graph could not
// be built are kept; analysis.Run reports them.
func loadProcs(paths []string) ([]*analysis.Procedure, error) {
	var procs []*analysis.Procedure
	for _, path := range paths {
		dbg.Printf("loading %q", path)
		ps, err := analysis.LoadFile(path)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		for _, p := range ps {
			if len(funcName) > 0 && p.Name != funcName {
				continue
			}
			procs = append(procs, p)
		}
	}
	if len(procs) == 0 {
		if len(funcName) > 0 {
			return nil, errors.Errorf("unable to locate function %q", funcName)
		}
		return nil, errors.New("no functions to analyze")
	}
	return procs, nil
}

// analyzedProcs loads and analyzes the procedures of the given files, warning
// about procedures that cannot be analyzed.
func analyzedProcs(paths []string) ([]*analysis.Result, error) {
	procs, err := loadProcs(paths)
	if err != nil {
		return nil, err
	}
	var results []*analysis.Result
	for _, p := range procs {
		r, err := analysis.Analyze(p)
		if err != nil {
			warn.Printf("skipping function %q; %v", p.Name, err)
			continue
		}
		results = append(results, r)
	}
	return results, nil
}
