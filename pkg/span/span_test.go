package span

import (
	"testing"
	"time"
)

func TestSpanMeasuresElapsed(t *testing.T) {
	s := Begin()
	time.Sleep(20 * time.Millisecond)
	if got := s.Elapsed(); got < 20*time.Millisecond {
		t.Errorf("Elapsed = %v, want >= 20ms", got)
	}
	if got := s.End(); got < 20*time.Millisecond {
		t.Errorf("End = %v, want >= 20ms", got)
	}
}

func TestMarkAdvances(t *testing.T) {
	s := Begin()
	time.Sleep(10 * time.Millisecond)
	first := s.Mark()
	second := s.Mark()
	if first < 10*time.Millisecond {
		t.Errorf("first Mark = %v, want >= 10ms", first)
	}
	if second > first {
		t.Errorf("second Mark (%v) should be shorter than first (%v)", second, first)
	}
}

func TestResetReanchors(t *testing.T) {
	s := Begin()
	time.Sleep(10 * time.Millisecond)
	s.Reset()
	if got := s.Elapsed(); got > 5*time.Millisecond {
		t.Errorf("Elapsed after Reset = %v, want ~0", got)
	}
}
