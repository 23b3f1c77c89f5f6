package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cogtask/internal/ir"
)

// Presenter is the presentation/input collaborator consumed by trials.
//
// Implementations draw stimuli and deliver key presses. They are called
// from a single goroutine; no method is invoked concurrently.
type Presenter interface {
	// Present makes stimuli visible, replacing the previous frame.
	// An empty slice clears the screen. Present returns once the frame is
	// on screen.
	Present(ctx context.Context, stimuli []ir.Stimulus) error

	// AwaitKeys blocks until a response arrives and returns every key
	// pressed together (zero, one or more). A nil allowed list accepts any
	// key. A non-nil error means the session must stop; "no keys" is
	// reported as an empty Keys slice with a nil error.
	AwaitKeys(ctx context.Context, allowed []string) (KeyResponse, error)

	// Pause clears the screen and waits for d.
	Pause(ctx context.Context, d time.Duration) error
}

// KeyResponse is one answered await.
type KeyResponse struct {
	// Keys pressed together, in arrival order.
	Keys []string
	// Lag is how long before AwaitKeys returned the first key arrived.
	// Presenters that wait out a chord window report it so the response
	// time is taken at the first key rather than at the return.
	Lag time.Duration
}

// Stopwatch measures response time from stimulus onset.
type Stopwatch interface {
	Reset()
	Elapsed() time.Duration
}

// ParticipantForm is the "show form" collaborator that collects
// participant metadata before a run. Implementations return
// ErrParticipantEntryCancelled when the operator aborts.
type ParticipantForm interface {
	Collect(ctx context.Context) (ir.Participant, error)
}

// Session is the explicit handle threaded from the scheduler down to each
// trial. It is owned by the top-level run driver.
type Session struct {
	Presenter Presenter
	Stopwatch Stopwatch
	Settle    time.Duration
	Logger    *slog.Logger
}

// NewSession creates a session handle. A nil logger falls back to
// slog.Default().
func NewSession(p Presenter, sw Stopwatch, settle time.Duration, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		Presenter: p,
		Stopwatch: sw,
		Settle:    settle,
		Logger:    logger,
	}
}

// DiscardLogger returns a logger that drops everything.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (s *Session) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

// NormalizeParticipant trims and NFC-normalizes the participant id and
// validates the participant type.
func NormalizeParticipant(p ir.Participant) (ir.Participant, error) {
	id := norm.NFC.String(strings.TrimSpace(p.ID))
	if id == "" {
		return ir.Participant{}, fmt.Errorf("participant id is required")
	}
	pt, err := ir.ParseParticipantType(string(p.Type))
	if err != nil {
		return ir.Participant{}, err
	}
	return ir.Participant{ID: id, Type: pt}, nil
}

// CollectParticipant shows the form and normalizes its result.
// Cancellation is returned as ErrParticipantEntryCancelled.
func CollectParticipant(ctx context.Context, form ParticipantForm) (ir.Participant, error) {
	p, err := form.Collect(ctx)
	if err != nil {
		if IsEntryCancelled(err) {
			return ir.Participant{}, err
		}
		return ir.Participant{}, fmt.Errorf("collect participant: %w", err)
	}
	return NormalizeParticipant(p)
}
