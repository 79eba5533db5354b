package report

import (
	"github.com/graphism/cfgstat/metrics"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes every sample and summary of set to path as Prometheus
// gauges, in the text format of the node exporter textfile collector.
func WriteTextfile(path string, set *metrics.Set) error {
	reg := prometheus.NewRegistry()
	values := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cfgstat",
		Name:      "function_value",
		Help:      "Value of a control flow graph metric for one function.",
	}, []string{"metric", "function"})
	summaries := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cfgstat",
		Name:      "summary",
		Help:      "Summary of a control flow graph metric over every function.",
	}, []string{"metric", "stat"})
	reg.MustRegister(values, summaries)
	for _, name := range set.Names() {
		a := set.Aggregator(name)
		s, err := a.Summary()
		if err != nil {
			return errors.Wrapf(err, "unable to summarize metric %q", name)
		}
		for _, sample := range a.Samples() {
			values.WithLabelValues(name, sample.Func).Set(float64(sample.Value))
		}
		summaries.WithLabelValues(name, "min").Set(float64(s.Min.Value))
		summaries.WithLabelValues(name, "max").Set(float64(s.Max.Value))
		summaries.WithLabelValues(name, "average").Set(s.Average)
		summaries.WithLabelValues(name, "sum").Set(float64(s.Sum))
		summaries.WithLabelValues(name, "count").Set(float64(s.Count))
	}
	if err := prometheus.WriteToTextfile(path, reg); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
