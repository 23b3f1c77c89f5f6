package harness

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/export"
	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/present"
	"github.com/roach88/cogtask/internal/specsource"
	"github.com/roach88/cogtask/internal/store"
	"github.com/roach88/cogtask/internal/testutil"
)

// scenarioSeed replaces a zero seed so shuffled scenarios stay reproducible.
const scenarioSeed = 1

// Harness is the scenario execution engine.
// It runs the real scheduler and runner against a scripted presenter, a
// manual stopwatch and a fresh in-memory store.
type Harness struct {
	store     *store.Store
	presenter *present.Scripted
	stopwatch *testutil.ManualStopwatch
	sessions  engine.SessionIDGenerator
	logger    *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory database
//  2. Build, shuffle and interleave blocks from the scenario sources
//  3. Run every block with the scripted responses, storing rows per block
//  4. Read the rows back and render the CSV
//  5. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	sw := testutil.NewManualStopwatch()
	h := &Harness{
		store:     st,
		presenter: present.NewScripted(sw, scenario.Responses...),
		stopwatch: sw,
		sessions:  testutil.NewSequentialSessionGenerator("scenario"),
		logger:    engine.DiscardLogger(),
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cfg := scenario.config()

	seed := scenario.Seed
	if seed == 0 {
		seed = scenarioSeed
	}
	sched := engine.NewScheduler(engine.WithSeed(seed), engine.WithLogger(h.logger))

	flanker, err := scenario.sources(scenario.Flanker)
	if err != nil {
		return nil, err
	}
	stroop, err := scenario.sources(scenario.Stroop)
	if err != nil {
		return nil, err
	}
	run, loadErrs := sched.Plan(cfg, scenario.Participant, flanker, stroop)

	sessionID := h.sessions.Generate()
	configHash, err := ir.ConfigHash(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash config: %w", err)
	}
	if err := h.store.WriteSession(ctx, ir.SessionRecord{
		ID:          sessionID,
		Participant: scenario.Participant,
		ConfigHash:  configHash,
		Seed:        run.Seed,
		StroopFirst: cfg.StroopFirst,
	}); err != nil {
		return nil, fmt.Errorf("failed to write session: %w", err)
	}

	session := engine.NewSession(h.presenter, h.stopwatch, cfg.Settle, h.logger)
	runner := engine.NewRunner(session, engine.WithSink(h.store))
	if _, err := runner.Execute(ctx, sessionID, run); err != nil {
		return nil, fmt.Errorf("failed to execute run: %w", err)
	}
	if err := h.store.MarkSession(ctx, sessionID, ir.SessionCompleted); err != nil {
		return nil, fmt.Errorf("failed to complete session: %w", err)
	}

	rows, err := h.store.ReadRows(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		return nil, fmt.Errorf("failed to render CSV: %w", err)
	}

	result := NewResult()
	result.SessionID = sessionID
	result.Seed = run.Seed
	result.Rows = rows
	result.CSV = buf.Bytes()
	for _, e := range loadErrs {
		result.LoadErrors = append(result.LoadErrors, e.Error())
	}
	if len(loadErrs) != scenario.LoadErrors {
		result.AddError(fmt.Sprintf("expected %d load errors, got %d: %v",
			scenario.LoadErrors, len(loadErrs), result.LoadErrors))
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// config builds the experiment configuration the scenario describes.
func (s *Scenario) config() ir.ExperimentConfig {
	cfg := ir.DefaultExperimentConfig()
	cfg.Title = s.Name
	cfg.StroopFirst = s.StroopFirst
	cfg.Shuffle = s.Shuffle
	cfg.Seed = s.Seed
	cfg.Settle = s.Settle
	cfg.Flanker = ir.TaskConfig{Files: s.Flanker, Instruction: s.FlankerInstruction}
	cfg.Stroop = ir.TaskConfig{Files: s.Stroop, Instruction: s.StroopInstruction}
	return cfg
}

func (s *Scenario) sources(ids []string) ([]specsource.Source, error) {
	defs := make(map[string]SourceDef, len(s.Sources))
	for _, def := range s.Sources {
		defs[def.ID] = def
	}
	out := make([]specsource.Source, 0, len(ids))
	for _, id := range ids {
		def, ok := defs[id]
		if !ok {
			return nil, fmt.Errorf("source %q is not declared", id)
		}
		out = append(out, s.source(def))
	}
	return out, nil
}
