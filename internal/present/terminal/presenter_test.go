package terminal

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/ir"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(model)
	require.True(t, ok)
	return nm, cmd
}

// fakeClock is a manual time source for the model.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestModel(chord time.Duration) (model, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	m := newModel(chord)
	m.now = clock.Now
	return m, clock
}

func trialFrame(t *testing.T, m model) model {
	t.Helper()
	ack := make(chan struct{})
	stimuli := engine.NewFlankerTrial(ir.DirectionLeft, ir.Congruent).Stimuli()
	m, _ = step(t, m, frameMsg{stimuli: stimuli, ack: ack})
	return m
}

func await(t *testing.T, m model, allowed []string) (model, chan awaitResult) {
	t.Helper()
	reply := make(chan awaitResult, 1)
	m, _ = step(t, m, awaitMsg{allowed: allowed, reply: reply})
	return m, reply
}

func noReply(t *testing.T, reply chan awaitResult) {
	t.Helper()
	select {
	case r := <-reply:
		t.Fatalf("unexpected reply %+v", r)
	default:
	}
}

func TestModel_FrameAcknowledged(t *testing.T) {
	ack := make(chan struct{})
	stimuli := engine.NewFlankerTrial(ir.DirectionLeft, ir.Congruent).Stimuli()

	m, _ := step(t, newModel(0), frameMsg{stimuli: stimuli, ack: ack})

	select {
	case <-ack:
	default:
		t.Fatal("frame not acknowledged")
	}
	assert.Contains(t, m.View(), glyphLeft)
}

func TestModel_SingleKeyWithoutChordWindow(t *testing.T) {
	m, _ := newTestModel(0)
	m, reply := await(t, m, engine.FlankerKeySet)

	m, cmd := step(t, m, runes("j"))
	assert.Nil(t, cmd)
	assert.Nil(t, m.pending)

	r := <-reply
	require.NoError(t, r.err)
	assert.Equal(t, []string{"j"}, r.keys)
	assert.Zero(t, r.lag)
}

func TestModel_DisallowedKeyIgnored(t *testing.T) {
	m, reply := await(t, newModel(0), engine.StroopKeySet)

	m, _ = step(t, m, runes("x"))
	noReply(t, reply)
	require.NotNil(t, m.pending)

	step(t, m, runes("g"))
	r := <-reply
	assert.Equal(t, []string{"g"}, r.keys)
}

func TestModel_ShiftedKeyNormalised(t *testing.T) {
	m, reply := await(t, newModel(0), engine.FlankerKeySet)
	step(t, m, runes("F"))
	assert.Equal(t, []string{"f"}, (<-reply).keys)
}

func TestModel_ChordCollectsSimultaneousKeys(t *testing.T) {
	m, clock := newTestModel(DefaultChordWindow)
	m, reply := await(t, m, engine.FlankerKeySet)

	m, cmd := step(t, m, runes("f"))
	require.NotNil(t, cmd, "first key should open the chord window")
	noReply(t, reply)

	clock.Advance(5 * time.Millisecond)
	m, cmd = step(t, m, runes("j"))
	assert.Nil(t, cmd)
	m, _ = step(t, m, runes("f"))
	noReply(t, reply)

	clock.Advance(DefaultChordWindow)
	m, _ = step(t, m, runes("b"))
	m, _ = step(t, m, chordDoneMsg{gen: m.gen})
	assert.Nil(t, m.pending)

	r := <-reply
	require.NoError(t, r.err)
	assert.Equal(t, []string{"f", "j"}, r.keys)
}

func TestModel_LagCoversChordWindow(t *testing.T) {
	chord := 300 * time.Millisecond
	m, clock := newTestModel(chord)
	m, reply := await(t, m, engine.FlankerKeySet)

	clock.Advance(5 * time.Millisecond)
	m, cmd := step(t, m, runes("j"))
	require.NotNil(t, cmd)

	clock.Advance(chord)
	step(t, m, chordDoneMsg{gen: m.gen})

	r := <-reply
	require.NoError(t, r.err)
	assert.Equal(t, []string{"j"}, r.keys)
	assert.Equal(t, chord, r.lag, "the response is dated at the first key")
}

func TestModel_StaleChordIgnored(t *testing.T) {
	m, _ := newTestModel(DefaultChordWindow)
	m, reply := await(t, m, engine.FlankerKeySet)
	m, _ = step(t, m, runes("f"))

	m, _ = step(t, m, chordDoneMsg{gen: m.gen - 1})
	noReply(t, reply)
	require.NotNil(t, m.pending)

	step(t, m, chordDoneMsg{gen: m.gen})
	assert.Equal(t, []string{"f"}, (<-reply).keys)
}

func TestModel_AnyKeyForInstruction(t *testing.T) {
	m, reply := await(t, newModel(DefaultChordWindow), nil)

	_, cmd := step(t, m, runes("q"))
	assert.Nil(t, cmd)

	r := <-reply
	require.NoError(t, r.err)
	assert.Equal(t, []string{"q"}, r.keys)
}

func TestModel_KeysWithoutFrameDropped(t *testing.T) {
	m, _ := step(t, newModel(0), runes("f"))

	m, reply := await(t, m, engine.FlankerKeySet)
	noReply(t, reply)

	step(t, m, runes("j"))
	assert.Equal(t, []string{"j"}, (<-reply).keys)
}

func TestModel_KeysDuringFrameKeptForAwait(t *testing.T) {
	m, clock := newTestModel(DefaultChordWindow)
	m = trialFrame(t, m)

	m, _ = step(t, m, runes("x"))
	m, _ = step(t, m, runes("f"))
	clock.Advance(40 * time.Millisecond)

	m, reply := await(t, m, engine.FlankerKeySet)
	assert.Nil(t, m.pending, "window already closed when the await landed")

	r := <-reply
	require.NoError(t, r.err)
	assert.Equal(t, []string{"f"}, r.keys)
	assert.Equal(t, 40*time.Millisecond, r.lag)
}

func TestModel_NewFrameDiscardsEarlyKeys(t *testing.T) {
	m, _ := newTestModel(0)
	m = trialFrame(t, m)
	m, _ = step(t, m, runes("f"))

	ack := make(chan struct{})
	m, _ = step(t, m, frameMsg{ack: ack})
	assert.Empty(t, m.early)

	m, reply := await(t, m, engine.FlankerKeySet)
	noReply(t, reply)
	require.NotNil(t, m.pending)
}

func TestModel_CtrlCAborts(t *testing.T) {
	t.Run("while awaiting", func(t *testing.T) {
		m, reply := await(t, newModel(0), engine.FlankerKeySet)

		m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.NotNil(t, cmd)
		assert.True(t, m.aborted)

		r := <-reply
		assert.ErrorIs(t, r.err, ErrAborted)
		assert.Empty(t, r.keys)
	})

	t.Run("between trials", func(t *testing.T) {
		m, cmd := step(t, newModel(0), tea.KeyMsg{Type: tea.KeyCtrlC})
		assert.NotNil(t, cmd)
		assert.True(t, m.aborted)
	})
}

func TestModel_WindowSize(t *testing.T) {
	m, _ := step(t, newModel(0), tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 40, m.height)
}

func TestPresenter_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p := Start(ctx, WithInput(nil), WithOutput(io.Discard), WithChordWindow(0))

	require.NoError(t, p.Pause(ctx, time.Millisecond))
	stimuli := engine.NewFlankerTrial(ir.DirectionRight, ir.Incongruent).Stimuli()
	require.NoError(t, p.Present(ctx, stimuli))

	// Pressed before the await lands; the frame is already showing.
	p.prog.Send(runes("j"))

	resp, err := p.AwaitKeys(ctx, engine.FlankerKeySet)
	require.NoError(t, err)
	assert.Equal(t, []string{"j"}, resp.Keys)

	require.NoError(t, p.Close())
	assert.ErrorIs(t, p.Present(ctx, nil), ErrClosed)
}

// onsetStopwatch reports each Reset so a test can time its key press.
type onsetStopwatch struct {
	*engine.WallStopwatch
	onset chan struct{}
}

func (s *onsetStopwatch) Reset() {
	s.WallStopwatch.Reset()
	select {
	case s.onset <- struct{}{}:
	default:
	}
}

func TestPresenter_ResponseTimeTakenAtFirstKey(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	chord := 300 * time.Millisecond
	p := Start(ctx, WithInput(nil), WithOutput(io.Discard), WithChordWindow(chord))
	defer p.Close()

	sw := &onsetStopwatch{WallStopwatch: engine.NewWallStopwatch(), onset: make(chan struct{}, 1)}
	s := engine.NewSession(p, sw, 0, engine.DiscardLogger())
	trial := engine.NewFlankerTrial(ir.DirectionRight, ir.Congruent)

	done := make(chan error, 1)
	go func() { done <- trial.PresentAndCapture(ctx, s) }()

	select {
	case <-sw.onset:
	case <-ctx.Done():
		t.Fatal("stimulus never shown")
	}
	keyDelay := 20 * time.Millisecond
	time.Sleep(keyDelay)
	p.prog.Send(runes("j"))

	require.NoError(t, <-done)
	res := trial.Result()
	assert.Equal(t, "j", res.ResponseKey)
	assert.GreaterOrEqual(t, res.ResponseTime, keyDelay)
	assert.Less(t, res.ResponseTime, chord, "chord window must not be added to the response time")
}
