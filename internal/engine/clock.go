package engine

import "time"

// WallStopwatch measures response time against the monotonic clock.
//
// Reset is called by the running trial exactly once, right after its
// stimuli become visible, so Elapsed reports time since stimulus onset.
type WallStopwatch struct {
	now   func() time.Time
	start time.Time
}

// NewWallStopwatch creates a stopwatch started now.
func NewWallStopwatch() *WallStopwatch {
	s := &WallStopwatch{now: time.Now}
	s.start = s.now()
	return s
}

// Reset restarts the stopwatch at zero.
func (s *WallStopwatch) Reset() {
	s.start = s.now()
}

// Elapsed returns the time since the last Reset.
func (s *WallStopwatch) Elapsed() time.Duration {
	return s.now().Sub(s.start)
}
