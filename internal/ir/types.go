package ir

import (
	"fmt"
	"strings"
	"time"
)

// Sentinel fills task fields that do not apply to a row's block type.
const Sentinel = "-"

// TaskType tags a block (and its trials) with the task it runs.
type TaskType string

const (
	TaskFlanker TaskType = "flanker"
	TaskStroop  TaskType = "stroop"

	// TaskUnknown is the zero value for sources whose task cannot be determined.
	TaskUnknown TaskType = ""
)

// Arity returns the number of columns a specification row must carry.
// Returns 0 for TaskUnknown.
func (t TaskType) Arity() int {
	switch t {
	case TaskFlanker, TaskStroop:
		return 2
	default:
		return 0
	}
}

// Direction is the flanker target direction.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Opposite returns the other direction.
func (d Direction) Opposite() Direction {
	if d == DirectionLeft {
		return DirectionRight
	}
	return DirectionLeft
}

// Orientation is the rotation, in degrees, applied to the base arrow glyph.
// The base glyph points right.
func (d Direction) Orientation() int {
	if d == DirectionLeft {
		return 180
	}
	return 0
}

// ParseDirection validates a raw specification cell.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.TrimSpace(s)) {
	case DirectionLeft:
		return DirectionLeft, nil
	case DirectionRight:
		return DirectionRight, nil
	}
	return "", fmt.Errorf("invalid direction %q: must be left or right", s)
}

// Congruency says whether flankers agree with the target.
type Congruency string

const (
	Congruent   Congruency = "congruent"
	Incongruent Congruency = "incongruent"
)

// ParseCongruency validates a raw specification cell.
func ParseCongruency(s string) (Congruency, error) {
	switch Congruency(strings.TrimSpace(s)) {
	case Congruent:
		return Congruent, nil
	case Incongruent:
		return Incongruent, nil
	}
	return "", fmt.Errorf("invalid congruency %q: must be congruent or incongruent", s)
}

// Color is a Stroop ink colour (and the vocabulary of Stroop words).
type Color string

const (
	ColorBlue   Color = "blue"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
)

// Response keys.
const (
	KeyLeft   = "f"
	KeyRight  = "j"
	KeyBlue   = "b"
	KeyRed    = "r"
	KeyYellow = "y"
	KeyGreen  = "g"
)

// StroopKeys maps ink colour to its response key.
var StroopKeys = map[Color]string{
	ColorBlue:   KeyBlue,
	ColorRed:    KeyRed,
	ColorYellow: KeyYellow,
	ColorGreen:  KeyGreen,
}

// FlankerKeys maps target direction to its response key.
var FlankerKeys = map[Direction]string{
	DirectionLeft:  KeyLeft,
	DirectionRight: KeyRight,
}

// ParseColor validates a raw specification cell.
func ParseColor(s string) (Color, error) {
	c := Color(strings.TrimSpace(s))
	if _, ok := StroopKeys[c]; !ok {
		return "", fmt.Errorf("invalid color %q: must be one of blue, red, yellow, green", s)
	}
	return c, nil
}

// Label is the scoring outcome of one trial.
type Label string

const (
	LabelCorrect   Label = "correct"
	LabelIncorrect Label = "incorrect"
	LabelInvalid   Label = "invalid"
)

// ParticipantType distinguishes real sessions from pilot runs.
type ParticipantType string

const (
	ParticipantMain  ParticipantType = "main"
	ParticipantPilot ParticipantType = "pilot"
)

// ParticipantTypes lists the allowed participant types in form order.
var ParticipantTypes = []ParticipantType{ParticipantMain, ParticipantPilot}

// ParseParticipantType validates a participant type.
func ParseParticipantType(s string) (ParticipantType, error) {
	for _, pt := range ParticipantTypes {
		if string(pt) == strings.TrimSpace(s) {
			return pt, nil
		}
	}
	return "", fmt.Errorf("invalid participant type %q: must be main or pilot", s)
}

// Participant is the metadata shared by every block of a run.
type Participant struct {
	ID   string          `json:"participant_id" yaml:"id"`
	Type ParticipantType `json:"participant_type" yaml:"type"`
}

// TrialSpec is one data row of a specification source.
type TrialSpec struct {
	Source string   `json:"source"`
	Line   int      `json:"line"` // 1-based line in the source, header included
	Fields []string `json:"fields"`
}

// StimulusKind distinguishes image glyphs from text glyphs.
type StimulusKind string

const (
	StimulusImage StimulusKind = "image"
	StimulusText  StimulusKind = "text"
)

// Stimulus is one visual element handed to the presenter.
// Coordinates are normalised: the screen spans -1..1 on both axes.
type Stimulus struct {
	Kind        StimulusKind `json:"kind"`
	Asset       string       `json:"asset,omitempty"`
	Text        string       `json:"text,omitempty"`
	Color       Color        `json:"color,omitempty"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	Size        float64      `json:"size"`
	Orientation int          `json:"orientation"`
}

// TrialResult is the scored outcome of one executed trial.
type TrialResult struct {
	Task TaskType `json:"task"`

	// ResponseKey is the first observed key, empty when none arrived.
	ResponseKey string   `json:"response_key"`
	Keys        []string `json:"keys"`

	Valid        bool          `json:"is_valid"`
	Correct      bool          `json:"is_correct"`
	Label        Label         `json:"label"`
	CorrectKey   string        `json:"correct_key"`
	ResponseTime time.Duration `json:"response_time"`

	FlankerType      string `json:"flanker_type"`
	FlankerDirection string `json:"flanker_direction"`
	StroopWord       string `json:"stroop_word"`
	StroopColor      string `json:"stroop_color"`
}

// ExportRow is one line of the response log.
type ExportRow struct {
	Index            int             `json:"index"`
	BlockType        TaskType        `json:"block_type"`
	BlockSource      string          `json:"block_csv"`
	CorrectKey       string          `json:"correct"`
	Label            Label           `json:"is_correct"`
	Response         string          `json:"response"`
	FlankerType      string          `json:"flanker_type"`
	FlankerDirection string          `json:"flanker_correct_direction"`
	StroopText       string          `json:"stroop_text"`
	StroopColor      string          `json:"stroop_color"`
	ResponseTime     time.Duration   `json:"response_time"`
	ParticipantID    string          `json:"participant_id"`
	ParticipantType  ParticipantType `json:"participant_type"`
}

// TaskConfig configures the blocks of one task.
type TaskConfig struct {
	Files       []string `json:"files"`
	Instruction string   `json:"instruction"`
}

// ExperimentConfig is the compiled experiment definition.
type ExperimentConfig struct {
	Title       string        `json:"title"`
	StroopFirst bool          `json:"stroop_first"`
	Settle      time.Duration `json:"settle"`
	Seed        int64         `json:"seed"` // 0 picks a random seed per run
	Shuffle     bool          `json:"shuffle"`
	Output      string        `json:"output"`
	Flanker     TaskConfig    `json:"flanker"`
	Stroop      TaskConfig    `json:"stroop"`
}

// Default experiment values.
const (
	DefaultTitle              = "Stroop / Flanker study"
	DefaultSettle             = 500 * time.Millisecond
	DefaultOutput             = "output.csv"
	DefaultFlankerInstruction = "This is flanker test. Please press key 'f' for left and 'j' for right direction."
	DefaultStroopInstruction  = "This is stroop test. Please press 'g', 'y', 'r', 'b' key for corresponding color."
)

// DefaultExperimentConfig returns the configuration used when a definition
// leaves a field unset.
func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		Title:       DefaultTitle,
		StroopFirst: true,
		Settle:      DefaultSettle,
		Shuffle:     true,
		Output:      DefaultOutput,
		Flanker:     TaskConfig{Instruction: DefaultFlankerInstruction},
		Stroop:      TaskConfig{Instruction: DefaultStroopInstruction},
	}
}

// SessionStatus tracks a stored session's lifecycle.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionAborted   SessionStatus = "aborted"
)

// SessionRecord is the stored header of one experiment run.
type SessionRecord struct {
	ID          string        `json:"id"`
	Participant Participant   `json:"participant"`
	ConfigHash  string        `json:"config_hash"`
	Seed        int64         `json:"seed"`
	StroopFirst bool          `json:"stroop_first"`
	Status      SessionStatus `json:"status"`
	CreatedAt   string        `json:"created_at"` // RFC 3339, informational only
}
