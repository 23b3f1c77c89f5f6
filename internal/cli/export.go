package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cogtask/internal/export"
	"github.com/roach88/cogtask/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Database string
	Output   string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <session-id>",
		Short: "Re-export a stored session as a response log",
		Long: `Write the response log of a session recorded with --db.

Rows are read back from the database in trial order and written in the same
CSV layout the run command produces. Without --output the log goes to
standard output. Rows of an aborted session are exported as far as they
were stored.

Example:
  cogtask export --db ./sessions.db 0190d3c2-8f7e-7a11-b1e4-3c5d2a9f0e11 -o p01.csv`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default: stdout)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runExport(opts *ExportOptions, sessionID string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	rec, err := st.ReadSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("session not found: %s", sessionID))
		}
		return outputCommandError(formatter, ErrCodeStore, err.Error())
	}

	rows, err := st.ReadRows(ctx, sessionID)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err.Error())
	}
	formatter.VerboseLog("Session %s (%s): %d row(s)", rec.ID, rec.Status, len(rows))

	if opts.Output == "" {
		if err := export.WriteCSV(formatter.Writer, rows); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
		}
		return nil
	}

	if err := export.WriteFile(opts.Output, rows); err != nil {
		return outputCommandError(formatter, ErrCodeWriteFailed, err.Error())
	}

	if formatter.Format == "json" {
		return formatter.SessionSuccess(rec.ID, map[string]any{
			"status": rec.Status,
			"rows":   len(rows),
			"output": opts.Output,
		})
	}
	fmt.Fprintf(formatter.Writer, "Wrote %d row(s) of session %s to %s\n", len(rows), rec.ID, opts.Output)
	return nil
}
