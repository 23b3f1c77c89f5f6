package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/cogtask/internal/ir"
)

// ErrSessionNotFound is returned by ReadSession for an unknown id.
var ErrSessionNotFound = errors.New("session not found")

// ReadRows returns a session's rows ORDER BY idx ASC.
// Returns an empty slice (not nil) if the session has no rows.
func (s *Store) ReadRows(ctx context.Context, sessionID string) ([]ir.ExportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, block_type, block_csv, correct, is_correct, response,
		       flanker_type, flanker_correct_direction, stroop_text, stroop_color,
		       response_time_ns, participant_id, participant_type
		FROM trial_results
		WHERE session_id = ?
		ORDER BY idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query trial results: %w", err)
	}
	defer rows.Close()

	out := []ir.ExportRow{}
	for rows.Next() {
		var (
			row      ir.ExportRow
			rtNanos  int64
			task     string
			label    string
			partType string
		)
		if err := rows.Scan(
			&row.Index,
			&task,
			&row.BlockSource,
			&row.CorrectKey,
			&label,
			&row.Response,
			&row.FlankerType,
			&row.FlankerDirection,
			&row.StroopText,
			&row.StroopColor,
			&rtNanos,
			&row.ParticipantID,
			&partType,
		); err != nil {
			return nil, fmt.Errorf("scan trial result: %w", err)
		}
		row.BlockType = ir.TaskType(task)
		row.Label = ir.Label(label)
		row.ParticipantType = ir.ParticipantType(partType)
		row.ResponseTime = time.Duration(rtNanos)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trial results: %w", err)
	}
	return out, nil
}

// ReadSession returns one session header.
func (s *Store) ReadSession(ctx context.Context, sessionID string) (ir.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, participant_id, participant_type, config_hash, seed, stroop_first, status, created_at
		FROM sessions
		WHERE id = ?
	`, sessionID)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.SessionRecord{}, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return ir.SessionRecord{}, err
	}
	return rec, nil
}

// ListSessions returns every session ORDER BY id ASC.
// A non-empty participantID restricts the list to that participant.
func (s *Store) ListSessions(ctx context.Context, participantID string) ([]ir.SessionRecord, error) {
	query := `
		SELECT id, participant_id, participant_type, config_hash, seed, stroop_first, status, created_at
		FROM sessions`
	var args []any
	if participantID != "" {
		query += ` WHERE participant_id = ?`
		args = append(args, participantID)
	}
	query += ` ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	out := []ir.SessionRecord{}
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

// CountRows returns the number of stored rows of a session.
func (s *Store) CountRows(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM trial_results WHERE session_id = ?
	`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count trial results: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(sc scanner) (ir.SessionRecord, error) {
	var (
		rec      ir.SessionRecord
		partType string
		status   string
	)
	err := sc.Scan(
		&rec.ID,
		&rec.Participant.ID,
		&partType,
		&rec.ConfigHash,
		&rec.Seed,
		&rec.StroopFirst,
		&status,
		&rec.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.SessionRecord{}, err
	}
	if err != nil {
		return ir.SessionRecord{}, fmt.Errorf("scan session: %w", err)
	}
	rec.Participant.Type = ir.ParticipantType(partType)
	rec.Status = ir.SessionStatus(status)
	return rec, nil
}
