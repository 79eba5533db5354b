// Package metrics aggregates per-function measurements of a whole program into
// summaries.
package metrics

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrEmpty is returned when summarizing a metric without samples.
var ErrEmpty = errors.New("no samples recorded")

// A Sample is the value of a metric for one function.
type Sample struct {
	// Function name.
	Func string
	// Metric value.
	Value int
}

// An Extreme is the minimum or maximum value of a metric, and the function it
// was recorded for.
type Extreme struct {
	// Function name.
	Func string
	// Metric value.
	Value int
}

// A Summary summarizes the samples of a metric.
type Summary struct {
	// Metric name.
	Name string
	// Minimum and maximum values. When several functions share the minimum or
	// maximum value, the last one recorded is reported.
	Min, Max Extreme
	// Arithmetic mean of all values.
	Average float64
	// Sum of all values.
	Sum int
	// Number of samples.
	Count int
}

// An Aggregator collects the samples of a metric, in the order they are
// recorded. It is safe for concurrent use.
type Aggregator struct {
	// Metric name.
	name string
	mu   sync.Mutex
	// Samples in recording order.
	samples []Sample
}

// NewAggregator returns a new aggregator for the metric with the given name.
func NewAggregator(name string) *Aggregator {
	return &Aggregator{name: name}
}

// Name returns the metric name of the aggregator.
func (a *Aggregator) Name() string {
	return a.name
}

// Record records the value of the metric for the given function.
func (a *Aggregator) Record(funcName string, value int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = append(a.samples, Sample{Func: funcName, Value: value})
}

// Samples returns a copy of the recorded samples, in recording order.
func (a *Aggregator) Samples() []Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	samples := make([]Sample, len(a.samples))
	copy(samples, a.samples)
	return samples
}

// Summary returns the summary of the recorded samples, or ErrEmpty if no
// sample has been recorded.
func (a *Aggregator) Summary() (Summary, error) {
	samples := a.Samples()
	if len(samples) == 0 {
		return Summary{}, errors.Wrapf(ErrEmpty, "unable to summarize metric %q", a.name)
	}
	s := Summary{
		Name:  a.name,
		Min:   Extreme(samples[0]),
		Max:   Extreme(samples[0]),
		Count: len(samples),
	}
	for _, sample := range samples {
		s.Sum += sample.Value
		if sample.Value < s.Min.Value {
			s.Min.Value = sample.Value
		}
		if sample.Value > s.Max.Value {
			s.Max.Value = sample.Value
		}
	}
	// Last function with the extreme value wins.
	for _, sample := range samples {
		if sample.Value == s.Min.Value {
			s.Min.Func = sample.Func
		}
		if sample.Value == s.Max.Value {
			s.Max.Func = sample.Func
		}
	}
	s.Average = float64(s.Sum) / float64(s.Count)
	return s, nil
}

// A Set holds one aggregator per metric. It is safe for concurrent use.
type Set struct {
	mu sync.Mutex
	// Metric names in order of first use.
	names []string
	// aggs maps from metric name to aggregator.
	aggs map[string]*Aggregator
}

// NewSet returns a new, empty set of metrics.
func NewSet() *Set {
	return &Set{aggs: make(map[string]*Aggregator)}
}

// Aggregator returns the aggregator of the named metric, creating it on first
// use.
func (s *Set) Aggregator(name string) *Aggregator {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.aggs[name]
	if !ok {
		a = NewAggregator(name)
		s.aggs[name] = a
		s.names = append(s.names, name)
	}
	return a
}

// Record records the value of the named metric for the given function.
func (s *Set) Record(metric, funcName string, value int) {
	s.Aggregator(metric).Record(funcName, value)
}

// Names returns the metric names of the set, in order of first use.
func (s *Set) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}
