package metrics

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummary(t *testing.T) {
	golden := []struct {
		samples []Sample
		want    Summary
	}{
		{
			samples: []Sample{{"f", 2}, {"g", 4}, {"h", 6}},
			want: Summary{
				Name:    "BasicBlockCount",
				Min:     Extreme{Func: "f", Value: 2},
				Max:     Extreme{Func: "h", Value: 6},
				Average: 4,
				Sum:     12,
				Count:   3,
			},
		},
		{
			// Ties report the last function recorded.
			samples: []Sample{{"f", 3}, {"g", 5}, {"h", 5}, {"i", 3}},
			want: Summary{
				Name:    "BasicBlockCount",
				Min:     Extreme{Func: "i", Value: 3},
				Max:     Extreme{Func: "h", Value: 5},
				Average: 4,
				Sum:     16,
				Count:   4,
			},
		},
		{
			samples: []Sample{{"main", 0}},
			want: Summary{
				Name:  "BasicBlockCount",
				Min:   Extreme{Func: "main"},
				Max:   Extreme{Func: "main"},
				Count: 1,
			},
		},
	}
	for i, gold := range golden {
		a := NewAggregator("BasicBlockCount")
		for _, s := range gold.samples {
			a.Record(s.Func, s.Value)
		}
		got, err := a.Summary()
		require.NoError(t, err, i)
		assert.Equal(t, gold.want, got, i)
		assert.Equal(t, gold.samples, a.Samples(), i)
	}
}

func TestSummaryEmpty(t *testing.T) {
	a := NewAggregator("AllLoopsCount")
	_, err := a.Summary()
	require.ErrorIs(t, err, ErrEmpty)
	assert.Contains(t, err.Error(), "AllLoopsCount")
}

func TestSamplesCopy(t *testing.T) {
	a := NewAggregator("CFGEdgeCount")
	a.Record("f", 1)
	samples := a.Samples()
	samples[0].Value = 42
	assert.Equal(t, []Sample{{"f", 1}}, a.Samples())
}

func TestConcurrentRecord(t *testing.T) {
	set := NewSet()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			set.Record("NodesReachable", fmt.Sprintf("f%d", i), i)
		}(i)
	}
	wg.Wait()
	s, err := set.Aggregator("NodesReachable").Summary()
	require.NoError(t, err)
	assert.Equal(t, 50, s.Count)
	assert.Equal(t, 49*50/2, s.Sum)
	assert.Equal(t, Extreme{Func: "f0", Value: 0}, s.Min)
	assert.Equal(t, Extreme{Func: "f49", Value: 49}, s.Max)
}

func TestSetNames(t *testing.T) {
	set := NewSet()
	set.Record("BasicBlockCount", "f", 4)
	set.Record("CFGEdgeCount", "f", 4)
	set.Record("BasicBlockCount", "g", 2)
	assert.Equal(t, []string{"BasicBlockCount", "CFGEdgeCount"}, set.Names())
	assert.Same(t, set.Aggregator("BasicBlockCount"), set.Aggregator("BasicBlockCount"))
	assert.Equal(t, "CFGEdgeCount", set.Aggregator("CFGEdgeCount").Name())
	assert.Len(t, set.Aggregator("BasicBlockCount").Samples(), 2)
}
