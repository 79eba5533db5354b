package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/graphism/cfgstat/analysis"
	"github.com/graphism/cfgstat/config"
	"github.com/graphism/cfgstat/metrics"
	"github.com/graphism/cfgstat/report"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// Flags of the stats command.
var (
	// Path to TOML configuration file.
	configPath string
	// Output directory.
	outputDir string
	// Report formats.
	formats []string
	// List every sample in reports.
	samples bool
	// Number of concurrent workers.
	workers int
)

// statsCmd summarizes the metrics of every function of the given files.
var statsCmd = &cobra.Command{
	Use:   "stats [flags] FILE...",
	Short: "Summarize control flow graph metrics over whole programs",
	Long: `Analyze every function of the given files and write one report per metric,
holding the minimum, maximum, average and sum of the metric over all functions.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return stats(c, args)
	},
}

func init() {
	statsCmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML configuration file")
	statsCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory of reports")
	statsCmd.Flags().StringSliceVar(&formats, "format", nil, "report formats (json, yaml, prom)")
	statsCmd.Flags().BoolVar(&samples, "samples", false, "list the value of every function in reports")
	statsCmd.Flags().IntVarP(&workers, "workers", "j", 0, "number of functions analyzed concurrently")
}

// loadConfig returns the configuration of the stats command; flags set on the
// command line take precedence over the configuration file.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var c *config.Config
	var err error
	if len(configPath) > 0 {
		c, err = config.Load(configPath)
	} else {
		c, err = config.Default()
	}
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("output") {
		c.Output.Dir = outputDir
	}
	if flags.Changed("format") {
		c.Output.Formats = formats
	}
	if flags.Changed("samples") {
		c.Output.IncludeSamples = samples
	}
	if flags.Changed("workers") {
		c.Analysis.Workers = workers
	}
	if err := c.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}
	return c, nil
}

// stats analyzes the functions of the given files and writes the reports of
// their metrics.
func stats(c *config.Config, paths []string) error {
	procs, err := loadProcs(paths)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	set := metrics.NewSet()
	opts := analysis.Options{
		Workers: c.Analysis.Workers,
		Log:     warn,
	}
	results, procErrs, err := analysis.Run(ctx, procs, set, opts)
	if err != nil {
		return errors.WithStack(err)
	}
	dbg.Printf("analyzed %d functions, skipped %d", len(results), len(procErrs))
	if len(results) == 0 {
		return errors.New("unable to analyze any function")
	}
	for _, name := range set.Names() {
		s, err := set.Aggregator(name).Summary()
		if err != nil {
			return errors.WithStack(err)
		}
		fmt.Printf("%-20s min %d (%s), max %d (%s), avg %.2f, sum %d\n", s.Name, s.Min.Value, s.Min.Func, s.Max.Value, s.Max.Func, s.Average, s.Sum)
	}
	if err := report.Write(c, set); err != nil {
		return errors.WithStack(err)
	}
	dbg.Printf("reports written to %q", c.Output.Dir)
	return nil
}
