package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/cogtask/internal/ir"
)

// Stimulus geometry, in normalised screen units.
const (
	ArrowAsset       = "flanker_arrow.png"
	ArrowSize        = 0.2
	StroopTextHeight = 0.5
)

// FlankerPositions are the horizontal offsets of the five arrows.
// Index flankerCenter is the target.
var FlankerPositions = [5]float64{-0.5, -0.25, 0, 0.25, 0.5}

const flankerCenter = 2

// FlankerKeySet and StroopKeySet are the keys each task listens for.
var (
	FlankerKeySet = []string{ir.KeyLeft, ir.KeyRight}
	StroopKeySet  = []string{ir.KeyBlue, ir.KeyRed, ir.KeyYellow, ir.KeyGreen}
)

// Trial is one stimulus -> response -> score cycle.
//
// Trial is a closed variant over ir.TaskType: the task field selects the
// stimulus construction, key set and correctness rule. Build trials with
// NewFlankerTrial, NewStroopTrial or TrialFromSpec.
type Trial struct {
	task ir.TaskType
	spec ir.TrialSpec

	// flanker
	direction  ir.Direction
	congruency ir.Congruency

	// stroop
	word  string
	color ir.Color

	keys         []string
	responseKey  string
	responseTime time.Duration
	label        ir.Label
	captured     bool
}

// NewFlankerTrial creates a flanker trial.
func NewFlankerTrial(direction ir.Direction, congruency ir.Congruency) *Trial {
	return &Trial{task: ir.TaskFlanker, direction: direction, congruency: congruency}
}

// NewStroopTrial creates a Stroop trial showing word in the given ink.
func NewStroopTrial(word string, color ir.Color) *Trial {
	return &Trial{task: ir.TaskStroop, word: word, color: color}
}

// TrialFromSpec builds the concrete trial for one specification row.
// Arity and cell values are checked; failures are malformed specification
// errors carrying the row's source and line.
func TrialFromSpec(task ir.TaskType, spec ir.TrialSpec) (*Trial, error) {
	if want := task.Arity(); want > 0 && len(spec.Fields) != want {
		return nil, NewArityError(spec.Source, spec.Line, want, len(spec.Fields))
	}

	var t *Trial
	switch task {
	case ir.TaskFlanker:
		dir, err := ir.ParseDirection(spec.Fields[0])
		if err != nil {
			return nil, NewMalformedSpecError(spec.Source, spec.Line, err.Error())
		}
		cong, err := ir.ParseCongruency(spec.Fields[1])
		if err != nil {
			return nil, NewMalformedSpecError(spec.Source, spec.Line, err.Error())
		}
		t = NewFlankerTrial(dir, cong)
	case ir.TaskStroop:
		word, err := ir.ParseColor(spec.Fields[0])
		if err != nil {
			return nil, NewMalformedSpecError(spec.Source, spec.Line, "word: "+err.Error())
		}
		color, err := ir.ParseColor(spec.Fields[1])
		if err != nil {
			return nil, NewMalformedSpecError(spec.Source, spec.Line, err.Error())
		}
		t = NewStroopTrial(string(word), color)
	default:
		return nil, NewUnrecognizedTaskError(spec.Source)
	}
	t.spec = spec
	return t, nil
}

// Task returns the trial's variant tag.
func (t *Trial) Task() ir.TaskType {
	return t.task
}

// Spec returns the row the trial was built from (zero for hand-built trials).
func (t *Trial) Spec() ir.TrialSpec {
	return t.spec
}

// Stimuli builds the visual elements of the trial.
//
// Flanker: five arrows. Congruent trials point every arrow in the target
// direction; incongruent trials point the four flankers the other way.
// Left is the base glyph rotated by 180 degrees.
//
// Stroop: one word drawn in the ink colour.
func (t *Trial) Stimuli() []ir.Stimulus {
	switch t.task {
	case ir.TaskFlanker:
		flankerDir := t.direction
		if t.congruency == ir.Incongruent {
			flankerDir = t.direction.Opposite()
		}
		stimuli := make([]ir.Stimulus, len(FlankerPositions))
		for i, x := range FlankerPositions {
			dir := flankerDir
			if i == flankerCenter {
				dir = t.direction
			}
			stimuli[i] = ir.Stimulus{
				Kind:        ir.StimulusImage,
				Asset:       ArrowAsset,
				X:           x,
				Size:        ArrowSize,
				Orientation: dir.Orientation(),
			}
		}
		return stimuli
	case ir.TaskStroop:
		return []ir.Stimulus{{
			Kind:  ir.StimulusText,
			Text:  t.word,
			Color: t.color,
			Size:  StroopTextHeight,
		}}
	default:
		return nil
	}
}

// AllowedKeys returns the keys the trial listens for.
func (t *Trial) AllowedKeys() []string {
	switch t.task {
	case ir.TaskFlanker:
		return FlankerKeySet
	case ir.TaskStroop:
		return StroopKeySet
	default:
		return nil
	}
}

// CorrectKey returns the key that scores as correct.
// Stroop maps the ink colour, never the printed word.
func (t *Trial) CorrectKey() string {
	switch t.task {
	case ir.TaskFlanker:
		return ir.FlankerKeys[t.direction]
	case ir.TaskStroop:
		return ir.StroopKeys[t.color]
	default:
		return ""
	}
}

// PresentAndCapture shows the stimuli, restarts the stopwatch once they are
// visible, and blocks until the presenter reports a response. The first key
// and the elapsed time at that key are stored on the trial.
func (t *Trial) PresentAndCapture(ctx context.Context, s *Session) error {
	if err := s.Presenter.Present(ctx, t.Stimuli()); err != nil {
		return fmt.Errorf("present %s trial: %w", t.task, err)
	}
	s.Stopwatch.Reset()

	resp, err := s.Presenter.AwaitKeys(ctx, t.AllowedKeys())
	if err != nil {
		return fmt.Errorf("await %s response: %w", t.task, err)
	}
	t.responseTime = max(s.Stopwatch.Elapsed()-resp.Lag, 0)

	t.keys = append([]string(nil), resp.Keys...)
	t.responseKey = ""
	if len(resp.Keys) > 0 {
		t.responseKey = resp.Keys[0]
	}
	t.captured = true
	return nil
}

// Validate scores the captured response and stores the label.
func (t *Trial) Validate() ir.Label {
	t.label = ScoreResponse(t.keys, t.CorrectKey())
	return t.label
}

// Run executes PresentAndCapture followed by Validate.
func (t *Trial) Run(ctx context.Context, s *Session) error {
	if err := t.PresentAndCapture(ctx, s); err != nil {
		return err
	}
	label := t.Validate()
	s.logger().Debug("trial scored",
		"task", t.task,
		"keys", t.keys,
		"label", label,
		"rt", t.responseTime)
	return nil
}

// Captured reports whether a response was recorded.
func (t *Trial) Captured() bool {
	return t.captured
}

// Result builds the trial's result record. Task fields of the other task
// carry ir.Sentinel.
func (t *Trial) Result() ir.TrialResult {
	label := t.label
	if label == "" {
		label = ScoreResponse(t.keys, t.CorrectKey())
	}
	res := ir.TrialResult{
		Task:             t.task,
		ResponseKey:      t.responseKey,
		Keys:             append([]string(nil), t.keys...),
		Valid:            len(t.keys) == 1,
		Correct:          label == ir.LabelCorrect,
		Label:            label,
		CorrectKey:       t.CorrectKey(),
		ResponseTime:     t.responseTime,
		FlankerType:      ir.Sentinel,
		FlankerDirection: ir.Sentinel,
		StroopWord:       ir.Sentinel,
		StroopColor:      ir.Sentinel,
	}
	switch t.task {
	case ir.TaskFlanker:
		res.FlankerType = string(t.congruency)
		res.FlankerDirection = string(t.direction)
	case ir.TaskStroop:
		res.StroopWord = t.word
		res.StroopColor = string(t.color)
	}
	return res
}

// ScoreResponse labels a set of observed keys.
//
// Exactly one key is compared with correctKey. Zero keys, or two and more,
// are invalid regardless of which keys they were; a press that includes the
// correct key alongside another is still invalid.
func ScoreResponse(keys []string, correctKey string) ir.Label {
	if len(keys) != 1 {
		return ir.LabelInvalid
	}
	if keys[0] == correctKey {
		return ir.LabelCorrect
	}
	return ir.LabelIncorrect
}
