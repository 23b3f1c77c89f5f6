// Package terminal presents experiments in a terminal with bubbletea.
//
// Presenter drives one long-running tea.Program for the whole session and
// implements engine.Presenter on top of it. Form collects participant
// metadata before the session starts.
package terminal

import (
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// DefaultChordWindow is how long a trial keeps listening after the first
// key, so keys pressed together are reported together. One 60 Hz frame.
const DefaultChordWindow = 16 * time.Millisecond

// Option configures a Presenter or Form.
type Option func(*options)

type options struct {
	input     io.Reader
	inputSet  bool
	output    io.Writer
	altScreen bool
	chord     time.Duration
}

func newOptions(opts []Option) options {
	o := options{chord: DefaultChordWindow}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithInput reads keys from r instead of stdin. A nil reader disables input.
func WithInput(r io.Reader) Option {
	return func(o *options) {
		o.input = r
		o.inputSet = true
	}
}

// WithOutput renders to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithAltScreen runs full-screen in the terminal's alternate buffer.
func WithAltScreen() Option {
	return func(o *options) {
		o.altScreen = true
	}
}

// WithChordWindow sets how long to collect simultaneous keys.
// Zero reports the first key alone.
func WithChordWindow(d time.Duration) Option {
	return func(o *options) {
		o.chord = d
	}
}

func (o options) program(ctx context.Context) []tea.ProgramOption {
	popts := []tea.ProgramOption{tea.WithContext(ctx)}
	if o.inputSet {
		popts = append(popts, tea.WithInput(o.input))
	}
	if o.output != nil {
		popts = append(popts, tea.WithOutput(o.output))
	}
	if o.altScreen {
		popts = append(popts, tea.WithAltScreen())
	}
	return popts
}
