package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/cogtask/internal/compiler"
	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/export"
	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/present/terminal"
	"github.com/roach88/cogtask/internal/store"
	"github.com/roach88/cogtask/internal/telemetry"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database        string
	Output          string
	ParticipantID   string
	ParticipantType string
	Seed            int64

	// Presenter overrides the terminal presenter (for testing).
	Presenter engine.Presenter

	// Form overrides the participant form (for testing). Ignored when
	// ParticipantID is set.
	Form engine.ParticipantForm

	// Stopwatch overrides the wall-clock stopwatch (for testing).
	Stopwatch engine.Stopwatch

	// SessionIDs allows overriding the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	SessionIDs engine.SessionIDGenerator

	// Recorder overrides the telemetry recorder (for testing). If nil the
	// recorder is configured from the environment.
	Recorder telemetry.Recorder
}

// RunSummary is the outcome of a completed run.
type RunSummary struct {
	SessionID   string         `json:"session_id"`
	Participant ir.Participant `json:"participant"`
	Seed        int64          `json:"seed"`
	Blocks      int            `json:"blocks"`
	Rows        int            `json:"rows"`
	Correct     int            `json:"correct"`
	Incorrect   int            `json:"incorrect"`
	Invalid     int            `json:"invalid"`
	Output      string         `json:"output"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand builds the command around opts, keeping any collaborator
// overrides already set on it.
func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <experiment-dir>",
		Short: "Run an experiment session",
		Long: `Run one experiment session in the terminal.

The experiment definition and its specification files are loaded from the
directory. Participant metadata comes from --participant-id and
--participant-type, or from an interactive form when no id is given.
Blocks are shuffled and interleaved, every trial is presented and scored,
and the response log is written to the configured output file. The file is
written only once the whole session has completed.

Press Ctrl-C during the session to abort; no output file is written.

Example:
  cogtask run ./experiment
  cogtask run ./experiment --participant-id p01 --participant-type pilot
  cogtask run ./experiment --db ./sessions.db -o p01.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database for session storage")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "response log path (overrides the experiment's output)")
	cmd.Flags().StringVar(&opts.ParticipantID, "participant-id", "", "participant id (skips the form)")
	cmd.Flags().StringVar(&opts.ParticipantType, "participant-type", string(ir.ParticipantMain), "participant type (main|pilot)")
	cmd.Flags().Int64Var(&opts.Seed, "seed", 0, "shuffle seed (overrides the experiment's seed)")

	return cmd
}

func runExperiment(opts *RunOptions, dir string, cmd *cobra.Command) error {
	logger := setupLogging(opts.Verbose)
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	slog.Info("loading experiment", "dir", dir)
	loaded, err := LoadExperiment(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	cfg := loaded.Config
	for _, v := range compiler.Validate(cfg) {
		if v.Warning {
			slog.Warn("experiment warning", "field", v.Field, "code", v.Code, "message", v.Message)
			continue
		}
		return outputCommandError(formatter, v.Code, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, aborting session", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	participant, err := collectParticipant(ctx, opts, cfg.Title)
	if err != nil {
		if engine.IsEntryCancelled(err) {
			slog.Info("participant entry cancelled, nothing written")
			return formatter.Exit(ErrCodeCancelled, NewCancelledError(err))
		}
		return WrapExitError(ExitCommandError, "invalid participant", err)
	}

	seed := cfg.Seed
	if opts.Seed != 0 {
		seed = opts.Seed
	}
	sched := engine.NewScheduler(engine.WithSeed(seed), engine.WithLogger(logger))
	run, loadErrs := sched.Plan(cfg, participant,
		loaded.Sources(cfg.Flanker.Files),
		loaded.Sources(cfg.Stroop.Files))
	if run.TrialCount() == 0 {
		return WrapExitError(ExitCommandError, "no trials to run", errors.Join(loadErrs...))
	}
	slog.Info("session planned",
		"blocks", len(run.Blocks),
		"trials", run.TrialCount(),
		"skipped", len(loadErrs),
		"seed", run.Seed)

	sessions := opts.SessionIDs
	if sessions == nil {
		sessions = engine.UUIDv7Generator{}
	}
	sessionID := sessions.Generate()

	var runnerOpts []engine.RunnerOption

	var st *store.Store
	if opts.Database != "" {
		st, err = openSessionStore(ctx, opts.Database, sessionID, cfg, run)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		runnerOpts = append(runnerOpts, engine.WithSink(st))
	}

	recorder := opts.Recorder
	if recorder == nil {
		telemetryCfg, err := telemetry.LoadConfig()
		if err != nil {
			slog.Warn("telemetry configuration ignored", "error", err)
		}
		recorder = telemetry.Open(ctx, telemetryCfg, logger)
	}
	defer func() {
		if closeErr := recorder.Close(context.Background()); closeErr != nil {
			slog.Error("error flushing telemetry", "error", closeErr)
		}
	}()
	runnerOpts = append(runnerOpts, engine.WithRecorder(recorder))

	presenter := opts.Presenter
	if presenter == nil {
		term := terminal.Start(ctx, terminal.WithAltScreen())
		defer func() {
			if closeErr := term.Close(); closeErr != nil {
				slog.Error("error closing terminal", "error", closeErr)
			}
		}()
		presenter = term
	}

	stopwatch := opts.Stopwatch
	if stopwatch == nil {
		stopwatch = engine.NewWallStopwatch()
	}

	session := engine.NewSession(presenter, stopwatch, cfg.Settle, logger)
	runner := engine.NewRunner(session, runnerOpts...)

	rows, err := runner.Execute(ctx, sessionID, run)
	if err != nil {
		if st != nil {
			if markErr := st.MarkSession(context.Background(), sessionID, ir.SessionAborted); markErr != nil {
				slog.Error("error marking session aborted", "error", markErr)
			}
		}
		slog.Info("session aborted, nothing written", "session", sessionID, "rows", len(rows))
		return formatter.Exit(ErrCodeAborted, NewAbortError(sessionID, err))
	}

	output := opts.Output
	if output == "" {
		output = cfg.Output
	}
	if err := export.WriteFile(output, rows); err != nil {
		return WrapExitError(ExitCommandError, "failed to write response log", err)
	}
	if st != nil {
		if err := st.MarkSession(ctx, sessionID, ir.SessionCompleted); err != nil {
			return WrapExitError(ExitCommandError, "failed to complete session", err)
		}
	}

	summary := summarize(sessionID, run, rows, output)
	slog.Info("session complete", "session", sessionID, "rows", summary.Rows, "output", output)

	if formatter.Format == "json" {
		return formatter.SessionSuccess(sessionID, summary)
	}
	fmt.Fprintf(formatter.Writer, "Session %s complete\n", summary.SessionID)
	fmt.Fprintf(formatter.Writer, "  participant: %s (%s)\n", summary.Participant.ID, summary.Participant.Type)
	fmt.Fprintf(formatter.Writer, "  blocks: %d, trials: %d\n", summary.Blocks, summary.Rows)
	fmt.Fprintf(formatter.Writer, "  correct: %d, incorrect: %d, invalid: %d\n", summary.Correct, summary.Incorrect, summary.Invalid)
	fmt.Fprintf(formatter.Writer, "  seed: %d\n", summary.Seed)
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", summary.Output)
	return nil
}

// collectParticipant takes the participant from flags, or shows the form
// when no id was given.
func collectParticipant(ctx context.Context, opts *RunOptions, title string) (ir.Participant, error) {
	if opts.ParticipantID != "" {
		return engine.NormalizeParticipant(ir.Participant{
			ID:   opts.ParticipantID,
			Type: ir.ParticipantType(opts.ParticipantType),
		})
	}
	form := opts.Form
	if form == nil {
		form = terminal.NewForm(title)
	}
	return engine.CollectParticipant(ctx, form)
}

// openSessionStore opens the database and records the session header.
func openSessionStore(ctx context.Context, path, sessionID string, cfg ir.ExperimentConfig, run *engine.Run) (*store.Store, error) {
	slog.Info("opening database", "path", path)
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	hash, err := ir.ConfigHash(cfg)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to hash config", err)
	}
	if err := st.WriteSession(ctx, ir.SessionRecord{
		ID:          sessionID,
		Participant: run.Participant,
		ConfigHash:  hash,
		Seed:        run.Seed,
		StroopFirst: cfg.StroopFirst,
		Status:      ir.SessionRunning,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to record session", err)
	}
	return st, nil
}

func summarize(sessionID string, run *engine.Run, rows []ir.ExportRow, output string) RunSummary {
	s := RunSummary{
		SessionID:   sessionID,
		Participant: run.Participant,
		Seed:        run.Seed,
		Blocks:      len(run.Blocks),
		Rows:        len(rows),
		Output:      output,
	}
	for _, row := range rows {
		switch row.Label {
		case ir.LabelCorrect:
			s.Correct++
		case ir.LabelIncorrect:
			s.Incorrect++
		case ir.LabelInvalid:
			s.Invalid++
		}
	}
	return s
}
