package stats

import (
	"sync"
	"time"
)

// maxWindow bounds how much history the estimator retains. Rate queries
// for longer windows are clamped to it.
const maxWindow = 30 * time.Second

type rateSample struct {
	at    time.Time
	bytes int64
}

// RateEstimator tracks a rolling bytes-per-second rate from completed
// operation sizes. The worker goroutine feeds it through AddSample while
// the monitor polls Rate, so all access is mutex-guarded.
type RateEstimator struct {
	mu      sync.Mutex
	samples []rateSample
	total   int64

	now func() time.Time // overridable in tests
}

func NewRateEstimator() *RateEstimator {
	return &RateEstimator{now: time.Now}
}

// AddSample records one completed operation of n bytes.
func (e *RateEstimator) AddSample(n int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	e.samples = append(e.samples, rateSample{at: now, bytes: n})
	e.total += n
	e.prune(now)
}

// Rate returns the damped bytes-per-second estimate over the trailing
// window. Windows must be positive; longer than the retention horizon is
// clamped.
func (e *RateEstimator) Rate(windowSeconds float64) float64 {
	if windowSeconds <= 0 {
		return 0
	}
	window := time.Duration(windowSeconds * float64(time.Second))
	if window > maxWindow {
		window = maxWindow
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	cutoff := e.now().Add(-window)
	var sum int64
	for i := len(e.samples) - 1; i >= 0; i-- {
		if e.samples[i].at.Before(cutoff) {
			break
		}
		sum += e.samples[i].bytes
	}
	return float64(sum) / window.Seconds()
}

// TotalBytes returns the sum of all byte counts ever recorded.
func (e *RateEstimator) TotalBytes() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.total
}

// prune drops samples that have aged out of the retention horizon.
// Caller holds e.mu.
func (e *RateEstimator) prune(now time.Time) {
	cutoff := now.Add(-maxWindow)
	drop := 0
	for drop < len(e.samples) && e.samples[drop].at.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		e.samples = append(e.samples[:0], e.samples[drop:]...)
	}
}
