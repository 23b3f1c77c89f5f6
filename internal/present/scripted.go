// Package present provides presentation collaborators for the engine.
//
// Scripted replays a fixed list of responses and records every frame it is
// asked to draw; it backs the scenario harness and the engine tests. The
// interactive terminal presenter lives in the terminal sub-package.
package present

import (
	"context"
	"slices"
	"time"

	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/ir"
)

// InstructionKey is the key Scripted reports for "press any key" waits.
const InstructionKey = "space"

// Response is one scripted trial response: the keys pressed together and
// the time from stimulus onset until they arrived.
type Response struct {
	Keys []string      `yaml:"keys" json:"keys"`
	RT   time.Duration `yaml:"rt" json:"rt"`
}

// Advancer moves a manual stopwatch forward.
// Implemented by testutil.ManualStopwatch.
type Advancer interface {
	Advance(d time.Duration)
}

// Scripted is a deterministic engine.Presenter.
//
// Each trial wait (a non-nil allowed list) consumes the next scripted
// response, advances the stopwatch by its RT and returns its keys, keeping
// only keys the trial listens for. Once the script is exhausted every trial
// wait reports no keys. Waits that accept any key answer InstructionKey
// without consuming the script.
//
// Scripted is not safe for concurrent use.
type Scripted struct {
	clock     Advancer
	responses []Response
	next      int

	frames [][]ir.Stimulus
	pauses []time.Duration
}

var _ engine.Presenter = (*Scripted)(nil)

// NewScripted creates a presenter replaying responses. clock may be nil
// when response times do not matter.
func NewScripted(clock Advancer, responses ...Response) *Scripted {
	return &Scripted{clock: clock, responses: responses}
}

// Present records the frame.
func (s *Scripted) Present(ctx context.Context, stimuli []ir.Stimulus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.frames = append(s.frames, slices.Clone(stimuli))
	return nil
}

// AwaitKeys returns the next scripted response.
func (s *Scripted) AwaitKeys(ctx context.Context, allowed []string) (engine.KeyResponse, error) {
	if err := ctx.Err(); err != nil {
		return engine.KeyResponse{}, err
	}
	if allowed == nil {
		return engine.KeyResponse{Keys: []string{InstructionKey}}, nil
	}
	if s.next >= len(s.responses) {
		return engine.KeyResponse{Keys: []string{}}, nil
	}

	r := s.responses[s.next]
	s.next++
	if s.clock != nil {
		s.clock.Advance(r.RT)
	}

	keys := make([]string, 0, len(r.Keys))
	for _, k := range r.Keys {
		if slices.Contains(allowed, k) {
			keys = append(keys, k)
		}
	}
	return engine.KeyResponse{Keys: keys}, nil
}

// Pause records the pause without sleeping.
func (s *Scripted) Pause(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.pauses = append(s.pauses, d)
	return nil
}

// Frames returns every frame presented, in order.
func (s *Scripted) Frames() [][]ir.Stimulus {
	return s.frames
}

// Pauses returns every pause requested, in order.
func (s *Scripted) Pauses() []time.Duration {
	return s.pauses
}

// Consumed returns how many scripted responses were used.
func (s *Scripted) Consumed() int {
	return s.next
}
