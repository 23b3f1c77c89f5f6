package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// steppedNow returns a clock function that advances by step on every call.
func steppedNow(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestWallStopwatch_ElapsedSinceReset(t *testing.T) {
	sw := &WallStopwatch{now: steppedNow(time.Unix(0, 0), 100*time.Millisecond)}

	sw.Reset() // t=0
	assert.Equal(t, 100*time.Millisecond, sw.Elapsed())
	assert.Equal(t, 200*time.Millisecond, sw.Elapsed())

	sw.Reset() // t=300ms
	assert.Equal(t, 100*time.Millisecond, sw.Elapsed())
}

func TestWallStopwatch_RealClock(t *testing.T) {
	sw := NewWallStopwatch()
	sw.Reset()
	time.Sleep(5 * time.Millisecond)

	elapsed := sw.Elapsed()
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
	assert.Less(t, elapsed, 5*time.Second)
}
