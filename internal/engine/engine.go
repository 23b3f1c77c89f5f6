package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/cogtask/internal/ir"
)

// ResultSink receives the export rows of each completed block.
// Implemented by store.Store.
type ResultSink interface {
	WriteRows(ctx context.Context, sessionID string, rows []ir.ExportRow) error
}

// Recorder observes scored trials and finished blocks.
// Implemented by telemetry.Exporter and telemetry.NoOp.
type Recorder interface {
	RecordTrial(ctx context.Context, row ir.ExportRow)
	RecordBlock(ctx context.Context, task ir.TaskType, trials int)
}

// Runner drives a Run on one session.
//
// Blocks execute strictly in run order and one at a time. After each block
// its rows, carrying their global index, go to the sink and the recorder.
// A failing block stops the run; rows of blocks that completed before it
// have already been delivered.
type Runner struct {
	session  *Session
	sink     ResultSink
	recorder Recorder
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSink delivers completed block rows to sink.
func WithSink(sink ResultSink) RunnerOption {
	return func(r *Runner) {
		r.sink = sink
	}
}

// WithRecorder reports trial and block metrics to rec.
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) {
		r.recorder = rec
	}
}

// NewRunner creates a runner bound to session.
func NewRunner(session *Session, opts ...RunnerOption) *Runner {
	r := &Runner{
		session: session,
		logger:  session.logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs every block of run and returns the export rows in order.
//
// On error the rows of the blocks that finished are returned with it.
func (r *Runner) Execute(ctx context.Context, sessionID string, run *Run) ([]ir.ExportRow, error) {
	log := r.logger.With("session", sessionID)
	log.Info("run starting",
		"blocks", len(run.Blocks),
		"trials", run.TrialCount(),
		"participant", run.Participant.ID,
		"seed", run.Seed)

	var rows []ir.ExportRow
	for i, b := range run.Blocks {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		if err := b.Run(ctx, r.session); err != nil {
			log.Error("block failed", "index", i, "source", b.Source, "error", err)
			return rows, err
		}

		blockRows := b.ExportRows()
		for j := range blockRows {
			blockRows[j].Index = len(rows) + j
		}
		if r.sink != nil {
			if err := r.sink.WriteRows(ctx, sessionID, blockRows); err != nil {
				return rows, fmt.Errorf("store rows of %s: %w", b.Source, err)
			}
		}
		if r.recorder != nil {
			for _, row := range blockRows {
				r.recorder.RecordTrial(ctx, row)
			}
			r.recorder.RecordBlock(ctx, b.Type, len(blockRows))
		}
		rows = append(rows, blockRows...)
	}

	log.Info("run finished", "rows", len(rows))
	return rows, nil
}
