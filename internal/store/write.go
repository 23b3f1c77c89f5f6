package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/cogtask/internal/ir"
)

// WriteSession inserts a session header.
// Uses ON CONFLICT(id) DO NOTHING: writing the same session twice is a no-op.
func (s *Store) WriteSession(ctx context.Context, rec ir.SessionRecord) error {
	status := rec.Status
	if status == "" {
		status = ir.SessionRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions
		(id, participant_id, participant_type, config_hash, seed, stroop_first, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID,
		rec.Participant.ID,
		string(rec.Participant.Type),
		rec.ConfigHash,
		rec.Seed,
		rec.StroopFirst,
		string(status),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// MarkSession updates a session's status.
// Returns an error if the session does not exist.
func (s *Store) MarkSession(ctx context.Context, sessionID string, status ir.SessionStatus) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET status = ? WHERE id = ?
	`, string(status), sessionID)
	if err != nil {
		return fmt.Errorf("mark session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark session: session %q not found", sessionID)
	}
	return nil
}

// insertRowSQL binds rowColumns in order.
var insertRowSQL = "INSERT INTO trial_results (" + strings.Join(rowColumns, ", ") +
	") VALUES (?" + strings.Repeat(", ?", len(rowColumns)-1) + ") ON CONFLICT DO NOTHING"

// WriteRows stores the export rows of one block in a single transaction.
//
// Each row is keyed by ir.RowID. ON CONFLICT DO NOTHING makes re-delivery
// of identical rows a no-op; a different row at an already stored index is
// also ignored, so the first write for an index wins.
//
// WriteRows implements engine.ResultSink.
func (s *Store) WriteRows(ctx context.Context, sessionID string, rows []ir.ExportRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write rows: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertRowSQL)
	if err != nil {
		return fmt.Errorf("write rows: prepare: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		id, err := ir.RowID(sessionID, row)
		if err != nil {
			return fmt.Errorf("write rows: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			id,
			sessionID,
			row.Index,
			string(row.BlockType),
			row.BlockSource,
			row.CorrectKey,
			string(row.Label),
			row.Response,
			row.FlankerType,
			row.FlankerDirection,
			row.StroopText,
			row.StroopColor,
			int64(row.ResponseTime),
			row.ParticipantID,
			string(row.ParticipantType),
		)
		if err != nil {
			return fmt.Errorf("write rows: index %d: %w", row.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write rows: commit: %w", err)
	}
	return nil
}
