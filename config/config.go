// Package config provides the configuration of cfgstat, read from TOML files
// on top of an embedded default configuration.
package config

import (
	_ "embed"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Report formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatProm = "prom"
)

//go:embed default.toml
var defaultData []byte

// Config is the configuration of cfgstat.
type Config struct {
	Output   OutputConfig       `toml:"output"`
	Analysis AnalysisConfig     `toml:"analysis"`
	Report   Toggles            `toml:"report"`
	Metrics  map[string]Toggles `toml:"metrics"`
}

// OutputConfig specifies where and how reports are written.
type OutputConfig struct {
	// Output directory.
	Dir string `toml:"dir"`
	// Report formats.
	Formats []string `toml:"formats"`
	// List every sample in the reports.
	IncludeSamples bool `toml:"include_samples"`
}

// AnalysisConfig controls the whole-program analysis.
type AnalysisConfig struct {
	// Number of functions analyzed concurrently; 0 uses every CPU.
	Workers int `toml:"workers"`
}

// Toggles selects the summary fields reported for a metric, in addition to
// the maximum.
type Toggles struct {
	Minimum   bool `toml:"minimum"`
	Average   bool `toml:"average"`
	Summation bool `toml:"summation"`
}

// Default returns the default configuration.
func Default() (*Config, error) {
	c := &Config{}
	if _, err := toml.Decode(string(defaultData), c); err != nil {
		return nil, errors.Wrap(err, "unable to parse embedded default configuration")
	}
	return c, nil
}

// Load returns the default configuration overlaid with the TOML file at path.
// Keys missing from the file keep their default value; this includes the
// fields of [metrics.<name>] tables, which fall back to the default table of
// the metric, or to [report] for metrics without one.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}
	defaults := make(map[string]Toggles, len(c.Metrics))
	for name, t := range c.Metrics {
		defaults[name] = t
	}
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to load config %q", path)
	}
	// Tables of the file replace the default tables as a whole; restore the
	// fields the file left out.
	for name, t := range c.Metrics {
		def, ok := defaults[name]
		if !ok {
			def = c.Report
		}
		if !md.IsDefined("metrics", name, "minimum") {
			t.Minimum = def.Minimum
		}
		if !md.IsDefined("metrics", name, "average") {
			t.Average = def.Average
		}
		if !md.IsDefined("metrics", name, "summation") {
			t.Summation = def.Summation
		}
		c.Metrics[name] = t
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %q", path)
	}
	return c, nil
}

// Validate checks the report formats and worker count of the configuration.
func (c *Config) Validate() error {
	for _, format := range c.Output.Formats {
		switch format {
		case FormatJSON, FormatYAML, FormatProm:
		default:
			return errors.Errorf("unknown report format %q", format)
		}
	}
	if c.Analysis.Workers < 0 {
		return errors.Errorf("invalid number of workers %d", c.Analysis.Workers)
	}
	return nil
}

// MetricToggles returns the summary fields reported for the named metric.
func (c *Config) MetricToggles(name string) Toggles {
	if t, ok := c.Metrics[name]; ok {
		return t
	}
	return c.Report
}
