// The dump_intervals tool prints the intervals of control flow graphs, and the
// derived graph sequence they give rise to.
//
// Usage:
//
//	dump_intervals [OPTION]... FILE...
//
// Flags:
//
//	-seq
//	      print the derived graph sequence in DOT format
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/graphism/cfgstat/analysis"
	"github.com/graphism/cfgstat/cfa"
	"github.com/graphism/cfgstat/flow"
	"github.com/pkg/errors"
)

func main() {
	var seq bool
	flag.BoolVar(&seq, "seq", false, "print the derived graph sequence in DOT format")
	flag.Parse()
	for _, path := range flag.Args() {
		if err := dumpIntervals(path, seq); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

// dumpIntervals prints the intervals of every control flow graph of the given
// DOT or LLVM IR file.
func dumpIntervals(path string, seq bool) error {
	fmt.Printf("\n=== [ %s ] ===\n\n", path)
	procs, err := analysis.LoadFile(path)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, p := range procs {
		if p.Err != nil {
			return errors.WithStack(p.Err)
		}
		fmt.Printf("--- [ %s ] ---\n\n", p.Name)
		is := flow.Intervals(p.Graph)
		for _, i := range is {
			fmt.Println("head:", i.Head)
			for _, n := range i.Nodes() {
				fmt.Println("   n:", n)
			}
		}
		Gs := cfa.DerivedGraphSeq(p.Graph)
		fmt.Printf("\nderived sequence: %d graphs, reducible: %v\n\n", len(Gs), len(Gs[len(Gs)-1].Blocks()) == 1)
		if seq {
			for _, G := range Gs {
				fmt.Println(G)
			}
		}
	}
	return nil
}
