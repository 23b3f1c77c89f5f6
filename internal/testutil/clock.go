package testutil

import (
	"sync"
	"time"
)

// ManualStopwatch is a stopwatch whose time only moves when Advance is
// called. It satisfies engine.Stopwatch.
//
// Reset zeroes the elapsed time, so a scripted presenter that advances the
// stopwatch by a response time after the trial's Reset makes Elapsed report
// exactly that response time.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualStopwatch struct {
	mu      sync.Mutex
	elapsed time.Duration
	resets  int
}

// NewManualStopwatch creates a stopwatch at zero.
func NewManualStopwatch() *ManualStopwatch {
	return &ManualStopwatch{}
}

// Reset restarts the stopwatch at zero.
func (s *ManualStopwatch) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed = 0
	s.resets++
}

// Elapsed returns the time advanced since the last Reset.
func (s *ManualStopwatch) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsed
}

// Advance moves the stopwatch forward by d.
func (s *ManualStopwatch) Advance(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elapsed += d
}

// Resets returns how many times Reset was called.
func (s *ManualStopwatch) Resets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resets
}
