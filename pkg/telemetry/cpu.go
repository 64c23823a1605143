// Package telemetry supplies the system-level readings the monitor
// consumes: process CPU utilization and physical disk read rates. The
// monitor only sees their numeric outputs.
package telemetry

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// OverflowSentinel is returned by CPUReader.Usage when the clock counters
// overflowed or moved backwards. It means "discard this sample", not a
// real zero.
const OverflowSentinel = -1.0

// CPUReader reports the process's CPU usage ratio between consecutive
// Usage calls, based on times(2) tick deltas. A ratio of 1.0 means one
// core fully busy; multi-core usage exceeds 1.0.
type CPUReader struct {
	lastClock uintptr
	lastSys   int64
	lastUser  int64
	numCPUs   int
}

// NewCPUReader anchors the tick counters to now.
func NewCPUReader() (*CPUReader, error) {
	var tms unix.Tms
	clock, err := unix.Times(&tms)
	if err != nil {
		return nil, errors.Wrap(err, "times")
	}
	return &CPUReader{
		lastClock: clock,
		lastSys:   int64(tms.Stime),
		lastUser:  int64(tms.Utime),
		numCPUs:   runtime.NumCPU(),
	}, nil
}

// Usage returns the CPU usage ratio accumulated since the previous call,
// or OverflowSentinel when a counter overflowed.
func (r *CPUReader) Usage() float64 {
	var tms unix.Tms
	clock, err := unix.Times(&tms)
	if err != nil {
		return OverflowSentinel
	}

	usage := OverflowSentinel
	sys, user := int64(tms.Stime), int64(tms.Utime)
	if clock > r.lastClock && sys >= r.lastSys && user >= r.lastUser {
		busy := float64(sys-r.lastSys) + float64(user-r.lastUser)
		usage = busy / float64(clock-r.lastClock)
	}

	r.lastClock = clock
	r.lastSys = sys
	r.lastUser = user
	return usage
}

// NumCPUs returns the number of logical processors.
func (r *CPUReader) NumCPUs() int {
	return r.numCPUs
}
