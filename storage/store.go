package storage

import (
	"errors"
	"sort"
	"time"

	"sysmon/collector"
)

// DefaultLimit is the QueryLast size used when the caller passes none.
const DefaultLimit = 5

// ErrNoSince is returned by QuerySince when called without a lower bound.
var ErrNoSince = errors.New("query since: a since timestamp is required")

// Sample is re-exported here so callers do not need to import the collector
// package just to call Store.Insert().
type Sample = collector.Sample

// Series is a query result as four parallel sequences. The slices are never
// nil; an empty result has four empty slices.
type Series struct {
	Timestamps   []time.Time
	CPU          []float64
	RAM          []float64
	TopProcesses []string // JSON blobs, as stored
}

// NewSeries returns an empty series with room for n samples.
func NewSeries(n int) *Series {
	return &Series{
		Timestamps:   make([]time.Time, 0, n),
		CPU:          make([]float64, 0, n),
		RAM:          make([]float64, 0, n),
		TopProcesses: make([]string, 0, n),
	}
}

// Append adds one sample to the end of the series.
func (s *Series) Append(ts time.Time, cpu, ram float64, procs string) {
	s.Timestamps = append(s.Timestamps, ts)
	s.CPU = append(s.CPU, cpu)
	s.RAM = append(s.RAM, ram)
	s.TopProcesses = append(s.TopProcesses, procs)
}

// Len returns the number of samples in the series.
func (s *Series) Len() int {
	return len(s.Timestamps)
}

// Sample rebuilds the i-th entry, decoding its process list.
func (s *Series) Sample(i int) (Sample, error) {
	procs, err := collector.DecodeProcesses(s.TopProcesses[i])
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Timestamp:    s.Timestamps[i],
		CPU:          s.CPU[i],
		RAM:          s.RAM[i],
		TopProcesses: procs,
	}, nil
}

// Chronological returns the indexes of s ordered by timestamp, oldest first.
// Equal timestamps keep their series order.
func (s *Series) Chronological() []int {
	idx := make([]int, s.Len())
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return s.Timestamps[idx[a]].Before(s.Timestamps[idx[b]])
	})
	return idx
}
