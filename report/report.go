// Package report writes metric summaries to disk, one document per metric.
//
// A document holds the maximum of the metric and, depending on the toggles of
// the metric, its minimum, average and sum:
//
//	{
//	    "Average": 4.0,
//	    "Maximum": {
//	        "BasicBlockCount": 6,
//	        "functionName": "g"
//	    },
//	    "Minimum": {
//	        "BasicBlockCount": 2,
//	        "functionName": "f"
//	    }
//	}
//
// With samples included, the "Test" key lists the value of every function in
// recording order.
package report

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/graphism/cfgstat/config"
	"github.com/graphism/cfgstat/metrics"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Document keys.
const (
	keyMinimum   = "Minimum"
	keyMaximum   = "Maximum"
	keyAverage   = "Average"
	keySummation = "Summation"
	keyTest      = "Test"
	keyFuncName  = "functionName"
)

// Document returns the report document of the metric recorded by a.
//
// It returns an error wrapping metrics.ErrEmpty if a has no samples.
func Document(a *metrics.Aggregator, t config.Toggles, withSamples bool) (map[string]interface{}, error) {
	s, err := a.Summary()
	if err != nil {
		return nil, err
	}
	doc := map[string]interface{}{
		keyMaximum: entry(s.Name, s.Max.Func, s.Max.Value),
	}
	if t.Minimum {
		doc[keyMinimum] = entry(s.Name, s.Min.Func, s.Min.Value)
	}
	if t.Average {
		doc[keyAverage] = s.Average
	}
	if t.Summation {
		doc[keySummation] = s.Sum
	}
	if withSamples {
		var test []map[string]interface{}
		for _, sample := range a.Samples() {
			test = append(test, entry(s.Name, sample.Func, sample.Value))
		}
		doc[keyTest] = test
	}
	return doc, nil
}

// entry returns the document entry of a metric value of a function.
func entry(metric, funcName string, value int) map[string]interface{} {
	return map[string]interface{}{
		keyFuncName: funcName,
		metric:      value,
	}
}

// Write writes the reports of every metric of set to the output directory of
// c, in each configured format. The output directory is created if missing.
func Write(c *config.Config, set *metrics.Set) error {
	dir := c.Output.Dir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WithStack(err)
	}
	for _, format := range c.Output.Formats {
		var err error
		switch format {
		case config.FormatJSON:
			err = WriteJSON(dir, set, c)
		case config.FormatYAML:
			err = WriteYAML(dir, set, c)
		case config.FormatProm:
			err = WriteTextfile(filepath.Join(dir, "cfgstat.prom"), set)
		default:
			err = errors.Errorf("unknown report format %q", format)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes one JSON document per metric of set to dir, named after the
// metric.
func WriteJSON(dir string, set *metrics.Set, c *config.Config) error {
	return writeDocs(dir, ".json", set, c, func(doc map[string]interface{}) ([]byte, error) {
		buf, err := json.MarshalIndent(doc, "", "    ")
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return append(buf, '\n'), nil
	})
}

// WriteYAML writes one YAML document per metric of set to dir, named after the
// metric.
func WriteYAML(dir string, set *metrics.Set, c *config.Config) error {
	return writeDocs(dir, ".yaml", set, c, func(doc map[string]interface{}) ([]byte, error) {
		buf := &bytes.Buffer{}
		enc := yaml.NewEncoder(buf)
		enc.SetIndent(4)
		if err := enc.Encode(doc); err != nil {
			return nil, errors.WithStack(err)
		}
		if err := enc.Close(); err != nil {
			return nil, errors.WithStack(err)
		}
		return buf.Bytes(), nil
	})
}

// writeDocs writes the document of every metric of set to dir, encoded by
// marshal.
func writeDocs(dir, ext string, set *metrics.Set, c *config.Config, marshal func(doc map[string]interface{}) ([]byte, error)) error {
	for _, name := range set.Names() {
		doc, err := Document(set.Aggregator(name), c.MetricToggles(name), c.Output.IncludeSamples)
		if err != nil {
			return errors.Wrapf(err, "unable to create report of metric %q", name)
		}
		buf, err := marshal(doc)
		if err != nil {
			return errors.Wrapf(err, "unable to encode report of metric %q", name)
		}
		path := filepath.Join(dir, name+ext)
		if err := ioutil.WriteFile(path, buf, 0o644); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
