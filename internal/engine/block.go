package engine

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/specsource"
)

// InstructionTextHeight is the text height of instruction screens.
const InstructionTextHeight = 0.1

// Block is an ordered collection of trials built from one specification
// source.
//
// Lifecycle: NewBlock -> LoadSpecifications -> Materialize -> (Shuffle) ->
// Run -> ExportRows. A block runs at most once.
type Block struct {
	Source      string
	Type        ir.TaskType
	Instruction string
	Participant ir.Participant

	specs  []ir.TrialSpec
	trials []*Trial
	ran    bool
}

// NewBlock creates an empty block for the named source.
func NewBlock(source string, task ir.TaskType, participant ir.Participant, instruction string) *Block {
	return &Block{
		Source:      source,
		Type:        task,
		Instruction: instruction,
		Participant: participant,
	}
}

// LoadSpecifications reads the source's data rows, skipping the header.
//
// Every row is checked against the task's arity and value vocabulary; the
// first bad row fails the whole load with a malformed specification error
// and leaves the block without specifications. A block of unknown task type
// loads nothing and returns an unrecognized task type error.
func (b *Block) LoadSpecifications(src specsource.Source) error {
	b.specs = nil
	if b.Type.Arity() == 0 {
		return NewUnrecognizedTaskError(b.Source)
	}

	rc, err := src.Open()
	if err != nil {
		return fmt.Errorf("load %s: %w", b.Source, err)
	}
	defer rc.Close()

	rows, err := specsource.ReadRows(rc)
	if err != nil {
		return NewMalformedSpecError(b.Source, 0, err.Error())
	}

	specs := make([]ir.TrialSpec, 0, len(rows))
	for _, row := range rows {
		spec := ir.TrialSpec{Source: b.Source, Line: row.Line, Fields: row.Fields}
		if _, err := TrialFromSpec(b.Type, spec); err != nil {
			return err
		}
		specs = append(specs, spec)
	}
	b.specs = specs
	return nil
}

// SetSpecifications replaces the block's rows without reading a source.
// Rows are validated the same way LoadSpecifications validates them.
func (b *Block) SetSpecifications(specs []ir.TrialSpec) error {
	for _, spec := range specs {
		if _, err := TrialFromSpec(b.Type, spec); err != nil {
			return err
		}
	}
	b.specs = append([]ir.TrialSpec(nil), specs...)
	return nil
}

// Specifications returns the loaded rows in source order.
func (b *Block) Specifications() []ir.TrialSpec {
	return b.specs
}

// Materialize builds one trial per specification row, preserving row order.
// Any previous trials are replaced.
func (b *Block) Materialize() error {
	trials := make([]*Trial, 0, len(b.specs))
	for _, spec := range b.specs {
		t, err := TrialFromSpec(b.Type, spec)
		if err != nil {
			return err
		}
		trials = append(trials, t)
	}
	b.trials = trials
	return nil
}

// Shuffle permutes the materialized trials in place.
// Without a call to Shuffle the row order is kept.
func (b *Block) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(b.trials), func(i, j int) {
		b.trials[i], b.trials[j] = b.trials[j], b.trials[i]
	})
}

// Trials returns the block's trials in execution order.
func (b *Block) Trials() []*Trial {
	return b.trials
}

// Len returns the number of materialized trials.
func (b *Block) Len() int {
	return len(b.trials)
}

// HasRun reports whether Run has been called.
func (b *Block) HasRun() bool {
	return b.ran
}

// Run executes the block.
//
// If an instruction is set it is shown until any key is pressed, followed by
// the settle pause. Each trial then runs to completion and is followed by
// the settle pause. A second call fails with BLOCK_ALREADY_RUN.
func (b *Block) Run(ctx context.Context, s *Session) error {
	if b.ran {
		return &ExperimentError{
			Code:    ErrCodeBlockAlreadyRun,
			Message: "block has already run",
			Source:  b.Source,
		}
	}
	b.ran = true

	log := s.logger().With("block", b.Source, "type", b.Type)
	log.Info("block starting", "trials", len(b.trials))

	if b.Instruction != "" {
		instruction := []ir.Stimulus{{
			Kind: ir.StimulusText,
			Text: b.Instruction,
			Size: InstructionTextHeight,
		}}
		if err := s.Presenter.Present(ctx, instruction); err != nil {
			return fmt.Errorf("present instruction: %w", err)
		}
		if _, err := s.Presenter.AwaitKeys(ctx, nil); err != nil {
			return fmt.Errorf("await instruction: %w", err)
		}
		if err := s.Presenter.Pause(ctx, s.Settle); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
	}

	for i, t := range b.trials {
		if err := t.Run(ctx, s); err != nil {
			return fmt.Errorf("trial %d of %s: %w", i, b.Source, err)
		}
		if err := s.Presenter.Pause(ctx, s.Settle); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
	}

	log.Info("block finished")
	return nil
}

// ExportRows returns one row per executed trial in execution order. Trials
// that never captured a response (the block did not run, or stopped early)
// are not exported. Index is the position within the block; the run assigns
// the global index.
func (b *Block) ExportRows() []ir.ExportRow {
	rows := make([]ir.ExportRow, 0, len(b.trials))
	for _, t := range b.trials {
		if !t.Captured() {
			continue
		}
		res := t.Result()
		rows = append(rows, ir.ExportRow{
			Index:            len(rows),
			BlockType:        b.Type,
			BlockSource:      b.Source,
			CorrectKey:       res.CorrectKey,
			Label:            res.Label,
			Response:         res.ResponseKey,
			FlankerType:      res.FlankerType,
			FlankerDirection: res.FlankerDirection,
			StroopText:       res.StroopWord,
			StroopColor:      res.StroopColor,
			ResponseTime:     res.ResponseTime,
			ParticipantID:    b.Participant.ID,
			ParticipantType:  b.Participant.Type,
		})
	}
	return rows
}
