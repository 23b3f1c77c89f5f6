package terminal

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/ir"
)

// ErrAborted is returned once the operator has pressed ctrl+c.
var ErrAborted = errors.New("session aborted by operator")

// ErrClosed is returned by calls made after Close.
var ErrClosed = errors.New("presenter closed")

// Presenter draws stimuli in the terminal and reads key presses.
//
// One tea.Program runs for the whole session in its own goroutine. Each
// engine call is turned into a message and the caller waits for the model
// to acknowledge it.
type Presenter struct {
	prog *tea.Program
	done chan struct{}

	// Written before done is closed.
	final model
	err   error
}

var _ engine.Presenter = (*Presenter)(nil)

// Start launches the terminal program. Cancelling ctx tears it down.
func Start(ctx context.Context, opts ...Option) *Presenter {
	o := newOptions(opts)
	p := &Presenter{done: make(chan struct{})}
	p.prog = tea.NewProgram(newModel(o.chord), o.program(ctx)...)
	go func() {
		defer close(p.done)
		final, err := p.prog.Run()
		if m, ok := final.(model); ok {
			p.final = m
		}
		p.err = err
	}()
	return p
}

// Present replaces the frame and returns once the model has taken it.
func (p *Presenter) Present(ctx context.Context, stimuli []ir.Stimulus) error {
	ack := make(chan struct{})
	if err := p.send(ctx, frameMsg{stimuli: stimuli, ack: ack}); err != nil {
		return err
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return p.stopped()
	}
}

// AwaitKeys waits for a response. With a nil allowed list the first key of
// any kind answers; otherwise keys outside the list are ignored and keys
// pressed within the chord window of the first are reported together.
// Keys pressed while the current frame was already showing count as if
// they arrived during the wait. Lag reports how long ago the first key
// was read.
func (p *Presenter) AwaitKeys(ctx context.Context, allowed []string) (engine.KeyResponse, error) {
	reply := make(chan awaitResult, 1)
	if err := p.send(ctx, awaitMsg{allowed: allowed, reply: reply}); err != nil {
		return engine.KeyResponse{}, err
	}
	select {
	case r := <-reply:
		return engine.KeyResponse{Keys: r.keys, Lag: r.lag}, r.err
	case <-ctx.Done():
		return engine.KeyResponse{}, ctx.Err()
	case <-p.done:
		return engine.KeyResponse{}, p.stopped()
	}
}

// Pause clears the screen and waits for d.
func (p *Presenter) Pause(ctx context.Context, d time.Duration) error {
	if err := p.Present(ctx, nil); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return p.stopped()
	}
}

// Close stops the program and restores the terminal.
func (p *Presenter) Close() error {
	p.prog.Quit()
	<-p.done
	if p.err != nil && !errors.Is(p.err, tea.ErrProgramKilled) {
		return p.err
	}
	return nil
}

func (p *Presenter) send(ctx context.Context, msg tea.Msg) error {
	select {
	case <-p.done:
		return p.stopped()
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	p.prog.Send(msg)
	return nil
}

func (p *Presenter) stopped() error {
	if p.final.aborted {
		return ErrAborted
	}
	if p.err != nil {
		return p.err
	}
	return ErrClosed
}

type frameMsg struct {
	stimuli []ir.Stimulus
	ack     chan struct{}
}

type awaitMsg struct {
	allowed []string
	reply   chan<- awaitResult
}

type awaitResult struct {
	keys []string
	lag  time.Duration
	err  error
}

// chordDoneMsg closes the chord window opened by await generation gen.
type chordDoneMsg struct {
	gen int
}

// keyPress is one key as read, stamped with when the model saw it.
type keyPress struct {
	key string
	at  time.Time
}

type pendingAwait struct {
	acceptAny bool
	allowed   map[string]bool
	keys      []string
	first     time.Time
	timing    bool
	reply     chan<- awaitResult
}

// add records kp if it belongs to the response. Keys arriving after the
// chord window of the first are not part of it.
func (pa *pendingAwait) add(kp keyPress, chord time.Duration) {
	if pa.acceptAny {
		if len(pa.keys) == 0 {
			pa.keys, pa.first = []string{kp.key}, kp.at
		}
		return
	}
	if !pa.allowed[kp.key] || slices.Contains(pa.keys, kp.key) {
		return
	}
	if len(pa.keys) == 0 {
		pa.first = kp.at
	} else if kp.at.Sub(pa.first) > chord {
		return
	}
	pa.keys = append(pa.keys, kp.key)
}

type model struct {
	frame  []ir.Stimulus
	width  int
	height int

	// Keys read while frame is showing and nothing is awaited yet.
	early []keyPress

	chord   time.Duration
	now     func() time.Time
	pending *pendingAwait
	gen     int
	aborted bool
}

func newModel(chord time.Duration) model {
	return model{chord: chord, now: time.Now}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case frameMsg:
		m.frame = msg.stimuli
		m.early = nil
		close(msg.ack)
		return m, nil

	case awaitMsg:
		m.gen++
		pa := &pendingAwait{acceptAny: msg.allowed == nil, reply: msg.reply}
		if !pa.acceptAny {
			pa.allowed = make(map[string]bool, len(msg.allowed))
			for _, k := range msg.allowed {
				pa.allowed[k] = true
			}
		}
		for _, kp := range m.early {
			pa.add(kp, m.chord)
		}
		m.early = nil
		m.pending = pa
		return m.settle()

	case chordDoneMsg:
		if m.pending != nil && msg.gen == m.gen {
			m = m.finish(nil)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.aborted = true
		m = m.finish(ErrAborted)
		return m, tea.Quit
	}

	kp := keyPress{key: keyName(msg), at: m.now()}
	if m.pending == nil {
		if len(m.frame) > 0 {
			m.early = append(m.early, kp)
		}
		return m, nil
	}
	m.pending.add(kp, m.chord)
	return m.settle()
}

// settle answers the pending await once its chord window has closed, or
// starts the timer that closes it.
func (m model) settle() (model, tea.Cmd) {
	pa := m.pending
	if pa == nil || len(pa.keys) == 0 {
		return m, nil
	}
	if pa.acceptAny {
		return m.finish(nil), nil
	}
	wait := m.chord - m.now().Sub(pa.first)
	if wait <= 0 {
		return m.finish(nil), nil
	}
	if pa.timing {
		return m, nil
	}
	pa.timing = true
	gen := m.gen
	return m, tea.Tick(wait, func(time.Time) tea.Msg {
		return chordDoneMsg{gen: gen}
	})
}

// finish answers the pending await, if any.
func (m model) finish(err error) model {
	pa := m.pending
	if pa == nil {
		return m
	}
	r := awaitResult{keys: pa.keys, err: err}
	if r.keys == nil {
		r.keys = []string{}
	}
	if len(pa.keys) > 0 {
		r.lag = m.now().Sub(pa.first)
	}
	pa.reply <- r
	m.pending = nil
	return m
}

func (m model) View() string {
	return Render(m.frame, m.width, m.height)
}

// keyName normalises a key press. Single characters are lower-cased so
// shift does not change the response.
func keyName(msg tea.KeyMsg) string {
	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && !msg.Alt {
		return strings.ToLower(string(msg.Runes))
	}
	return msg.String()
}
