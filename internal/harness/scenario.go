package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/present"
	"github.com/roach88/cogtask/internal/specsource"
)

// Scenario defines one scripted experiment run.
// The run is executed with inline or on-disk specification sources, scripted
// responses and a manual stopwatch, then checked with assertions and an
// optional golden CSV.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Participant is copied into every exported row.
	Participant ir.Participant `yaml:"participant"`

	// StroopFirst selects which task list supplies the first block.
	StroopFirst bool `yaml:"stroop_first"`

	// Shuffle permutes trials within each block using Seed.
	Shuffle bool `yaml:"shuffle"`

	// Seed for the shuffle. Zero runs with seed 1 so scenarios stay
	// reproducible.
	Seed int64 `yaml:"seed,omitempty"`

	// Settle is the pause after every trial and instruction.
	Settle time.Duration `yaml:"settle,omitempty"`

	// Sources declares every specification referenced by Flanker and Stroop.
	Sources []SourceDef `yaml:"sources"`

	// Flanker and Stroop list source ids in block order.
	Flanker []string `yaml:"flanker,omitempty"`
	Stroop  []string `yaml:"stroop,omitempty"`

	// Instructions shown before each block of a task. Empty skips the screen.
	FlankerInstruction string `yaml:"flanker_instruction,omitempty"`
	StroopInstruction  string `yaml:"stroop_instruction,omitempty"`

	// Responses are consumed one per trial in execution order.
	Responses []present.Response `yaml:"responses"`

	// LoadErrors is the number of block loading errors the run expects.
	LoadErrors int `yaml:"load_errors,omitempty"`

	// Assertions validate the exported rows.
	Assertions []Assertion `yaml:"assertions"`

	// baseDir resolves SourceDef.Path.
	baseDir string
}

// SourceDef is a specification source: inline rows or a file path relative
// to the scenario file.
type SourceDef struct {
	ID     string     `yaml:"id"`
	Header []string   `yaml:"header,omitempty"`
	Rows   [][]string `yaml:"rows,omitempty"`
	Path   string     `yaml:"path,omitempty"`
}

// Assertion validates the exported rows.
type Assertion struct {
	// Type specifies the assertion type:
	// - "row_count": exactly Count rows were exported
	// - "label_count": exactly Count rows carry Label
	// - "block_order": blocks appear in the order given by Blocks
	// - "row": row Index has the column values in Expect
	Type string `yaml:"type"`

	Count  int               `yaml:"count,omitempty"`
	Label  ir.Label          `yaml:"label,omitempty"`
	Blocks []string          `yaml:"blocks,omitempty"`
	Index  int               `yaml:"index,omitempty"`
	Expect map[string]string `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertRowCount   = "row_count"
	AssertLabelCount = "label_count"
	AssertBlockOrder = "block_order"
	AssertRow        = "row"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly. Source paths are
// resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	scenario.baseDir = filepath.Dir(path)

	for _, src := range scenario.Sources {
		if src.Path == "" {
			continue
		}
		if _, err := os.Stat(scenario.resolve(src.Path)); err != nil {
			return nil, fmt.Errorf("invalid scenario: source %s: %w", src.ID, err)
		}
	}
	return scenario, nil
}

// ParseScenario decodes and validates a scenario document. Relative source
// paths resolve against the working directory.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func (s *Scenario) resolve(p string) string {
	if filepath.IsAbs(p) || s.baseDir == "" {
		return p
	}
	return filepath.Join(s.baseDir, p)
}

// source builds the specification source for def.
func (s *Scenario) source(def SourceDef) specsource.Source {
	if def.Path == "" {
		return specsource.Inline{ID: def.ID, Header: def.Header, Rows: def.Rows}
	}
	full := s.resolve(def.Path)
	return specsource.File{FS: os.DirFS(filepath.Dir(full)), Path: filepath.Base(full)}
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Participant.ID == "" {
		return fmt.Errorf("participant.id is required")
	}
	if s.Participant.Type == "" {
		s.Participant.Type = ir.ParticipantPilot
	}
	if _, err := ir.ParseParticipantType(string(s.Participant.Type)); err != nil {
		return fmt.Errorf("participant.type: %w", err)
	}
	if s.Settle < 0 {
		return fmt.Errorf("settle must be non-negative")
	}
	if len(s.Flanker)+len(s.Stroop) == 0 {
		return fmt.Errorf("at least one flanker or stroop source is required")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	ids := make(map[string]bool, len(s.Sources))
	for i, src := range s.Sources {
		if src.ID == "" {
			return fmt.Errorf("sources[%d]: id is required", i)
		}
		if ids[src.ID] {
			return fmt.Errorf("sources[%d]: duplicate id %q", i, src.ID)
		}
		if src.Path != "" && src.Rows != nil {
			return fmt.Errorf("sources[%d]: rows and path are mutually exclusive", i)
		}
		if src.Path != "" && filepath.Base(src.Path) != src.ID {
			return fmt.Errorf("sources[%d]: id %q must match file name %q", i, src.ID, filepath.Base(src.Path))
		}
		ids[src.ID] = true
	}
	for _, list := range [][]string{s.Flanker, s.Stroop} {
		for _, id := range list {
			if !ids[id] {
				return fmt.Errorf("source %q is not declared in sources", id)
			}
		}
	}

	for i, r := range s.Responses {
		if r.RT < 0 {
			return fmt.Errorf("responses[%d]: rt must be non-negative", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertRowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertLabelCount:
		if a.Label == "" {
			return fmt.Errorf("assertions[%d]: label is required for label_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for label_count", index)
		}
	case AssertBlockOrder:
		if len(a.Blocks) == 0 {
			return fmt.Errorf("assertions[%d]: blocks list is required for block_order", index)
		}
	case AssertRow:
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
