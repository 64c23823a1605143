// Package stats holds the run statistics: an aggregator producing
// outlier-resistant summaries of the periodic throughput samples, and a
// windowed rate estimator fed by the workers.
package stats

import (
	"fmt"
	"sort"
)

// trimFraction is the share of samples discarded at each extreme by
// RobustAverage.
const trimFraction = 0.05

// reliableSampleCount is the minimum series length below which the
// trimmed mean is considered statistically shaky.
const reliableSampleCount = 100

// Aggregator accumulates scalar samples in arrival order and computes
// plain and robust statistics over them. It is not safe for concurrent
// use; the monitor loop is its only writer and reader.
type Aggregator struct {
	samples []float64
}

// AddSample appends one sample. Arrival order is retained for the
// run's lifetime.
func (a *Aggregator) AddSample(v float64) {
	a.samples = append(a.samples, v)
}

// Count returns the number of retained samples.
func (a *Aggregator) Count() int {
	return len(a.samples)
}

// Average returns the arithmetic mean of all samples.
func (a *Aggregator) Average() (float64, error) {
	if len(a.samples) == 0 {
		return 0, fmt.Errorf("no samples")
	}
	return mean(a.samples), nil
}

// RobustAverage sorts the samples and averages the rank range
// [trim*n, (1-trim)*n), discarding the lowest and highest 5%. The
// reliable flag is false when fewer than 100 samples exist; the returned
// value is still a best-effort result. An empty trimmed range falls back
// to the plain mean.
func (a *Aggregator) RobustAverage() (v float64, reliable bool, err error) {
	n := len(a.samples)
	if n == 0 {
		return 0, false, fmt.Errorf("no samples")
	}

	sorted := make([]float64, n)
	copy(sorted, a.samples)
	sort.Float64s(sorted)

	lo := int(trimFraction * float64(n))
	hi := int((1 - trimFraction) * float64(n))
	if lo >= hi {
		return mean(sorted), n >= reliableSampleCount, nil
	}
	return mean(sorted[lo:hi]), n >= reliableSampleCount, nil
}

// Min returns the smallest sample.
func (a *Aggregator) Min() (float64, error) {
	if len(a.samples) == 0 {
		return 0, fmt.Errorf("no samples")
	}
	return minOf(a.samples), nil
}

// RobustMin returns the smallest sample excluding the first two by
// chronological position, which are treated as startup-skewed. It
// requires at least three samples.
func (a *Aggregator) RobustMin() (float64, error) {
	if len(a.samples) < 3 {
		return 0, fmt.Errorf("need at least 3 samples, have %d", len(a.samples))
	}
	return minOf(a.samples[2:]), nil
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}
