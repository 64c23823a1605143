// Package span measures elapsed wall time between an explicit begin and
// end. The caller decides when and whether to log the result.
package span

import (
	"time"
)

// Span is an open timing interval.
type Span struct {
	start time.Time
	mark  time.Time
}

// Begin opens a span anchored at now.
func Begin() *Span {
	now := time.Now()
	return &Span{start: now, mark: now}
}

// Elapsed returns the time since Begin (or the last Reset).
func (s *Span) Elapsed() time.Duration {
	return time.Since(s.start)
}

// Mark returns the time since the previous Mark (or Begin) and advances
// the mark.
func (s *Span) Mark() time.Duration {
	now := time.Now()
	d := now.Sub(s.mark)
	s.mark = now
	return d
}

// Reset re-anchors the span at now.
func (s *Span) Reset() {
	now := time.Now()
	s.start = now
	s.mark = now
}

// End closes the span and returns its total duration.
func (s *Span) End() time.Duration {
	return time.Since(s.start)
}
