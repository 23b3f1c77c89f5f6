package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/store"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database    string
	Participant string
}

// SessionSummary is one listed session.
type SessionSummary struct {
	ir.SessionRecord
	Rows int `json:"rows"`
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions",
		Long: `List the sessions recorded in a database, ordered by session id.

Example:
  cogtask sessions --db ./sessions.db
  cogtask sessions --db ./sessions.db --participant p01`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Participant, "participant", "", "only list sessions of this participant")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
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

	records, err := st.ListSessions(ctx, opts.Participant)
	if err != nil {
		return outputCommandError(formatter, ErrCodeStore, err.Error())
	}

	summaries := make([]SessionSummary, 0, len(records))
	for _, rec := range records {
		n, err := st.CountRows(ctx, rec.ID)
		if err != nil {
			return outputCommandError(formatter, ErrCodeStore, err.Error())
		}
		summaries = append(summaries, SessionSummary{SessionRecord: rec, Rows: n})
	}

	if formatter.Format == "json" {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No sessions found.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tPARTICIPANT\tTYPE\tSTATUS\tROWS\tSEED\tCREATED")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			s.ID, s.Participant.ID, s.Participant.Type, s.Status, s.Rows, s.Seed, s.CreatedAt)
	}
	return tw.Flush()
}
