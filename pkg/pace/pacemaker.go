// Package pace provides a query-able clock that ticks a fixed number of
// times per second. Callers poll IsDue() in a loop and act whenever it
// returns true.
package pace

import (
	"sync"
	"time"
)

// Pacemaker rations beats at a target rate. A rate of 0 disables it
// (IsDue never fires), a negative rate makes every call fire.
//
// With accumulate=false (drop policy), beats missed during a stall expire:
// after the stall the cadence resumes at the nominal rate. With
// accumulate=true, missed beats are banked and returned back-to-back on
// subsequent calls until caught up.
type Pacemaker struct {
	mu sync.Mutex

	paused     bool
	targetFPS  float64
	interval   time.Duration
	lastBeat   time.Time
	accumulate bool

	now func() time.Time // overridable in tests
}

// New returns a running Pacemaker at targetFPS beats per second.
func New(targetFPS float64, accumulate bool) *Pacemaker {
	p := &Pacemaker{
		accumulate: accumulate,
		now:        time.Now,
	}
	p.lastBeat = p.now()
	p.SetTargetFPS(targetFPS)
	return p
}

// IsDue reports whether the next beat is due, and if so consumes it.
// It tries to return true exactly targetFPS times per second.
func (p *Pacemaker) IsDue() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.paused {
		return false
	}
	if p.targetFPS == 0 {
		return false
	}
	if p.targetFPS < 0 {
		return true
	}

	elapsed := p.now().Sub(p.lastBeat)
	if elapsed < p.interval {
		return false
	}

	if p.accumulate {
		p.lastBeat = p.lastBeat.Add(p.interval)
	} else {
		// Advance by the whole multiple of the interval that has passed,
		// discarding any beats that expired during the stall.
		p.lastBeat = p.lastBeat.Add(p.interval * (elapsed / p.interval))
	}
	return true
}

// Pause suspends beat generation. IsDue returns false until Resume.
func (p *Pacemaker) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
}

// Resume re-enables beat generation at the configured rate.
func (p *Pacemaker) Resume() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = false
}

// Reset re-anchors the last-beat timestamp to now.
func (p *Pacemaker) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastBeat = p.now()
}

// SetTargetFPS reconfigures the cadence immediately.
func (p *Pacemaker) SetTargetFPS(targetFPS float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.targetFPS = targetFPS
	if targetFPS > 0 {
		p.interval = time.Duration(float64(time.Second) / targetFPS)
	}
}
