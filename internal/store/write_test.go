package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cogtask/internal/ir"
)

func TestWriteSession_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestSession("session-1", "P01")

	require.NoError(t, s.WriteSession(ctx, rec))
	require.NoError(t, s.WriteSession(ctx, rec))

	sessions, err := s.ListSessions(ctx, "")
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestWriteSession_DefaultsToRunning(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	rec := createTestSession("session-1", "P01")
	rec.Status = ""

	require.NoError(t, s.WriteSession(ctx, rec))

	got, err := s.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, ir.SessionRunning, got.Status)
}

func TestWriteSession_RejectsUnknownParticipantType(t *testing.T) {
	s := createTestStore(t)
	rec := createTestSession("session-1", "P01")
	rec.Participant.Type = "control"

	assert.Error(t, s.WriteSession(context.Background(), rec))
}

func TestMarkSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, createTestSession("session-1", "P01")))

	require.NoError(t, s.MarkSession(ctx, "session-1", ir.SessionCompleted))
	got, err := s.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, ir.SessionCompleted, got.Status)

	err = s.MarkSession(ctx, "missing", ir.SessionAborted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestWriteRows_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, createTestSession("session-1", "P01")))

	rows := []ir.ExportRow{
		createTestRow(0, 450*time.Millisecond),
		createTestRow(1, 1203400*time.Microsecond),
	}
	rows[1].BlockType = ir.TaskStroop
	rows[1].Label = ir.LabelInvalid
	rows[1].Response = ""

	require.NoError(t, s.WriteRows(ctx, "session-1", rows))

	got, err := s.ReadRows(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriteRows_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, createTestSession("session-1", "P01")))

	rows := []ir.ExportRow{createTestRow(0, time.Second), createTestRow(1, time.Second)}
	require.NoError(t, s.WriteRows(ctx, "session-1", rows))
	require.NoError(t, s.WriteRows(ctx, "session-1", rows))

	n, err := s.CountRows(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestWriteRows_FirstWriteForIndexWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, createTestSession("session-1", "P01")))

	require.NoError(t, s.WriteRows(ctx, "session-1", []ir.ExportRow{createTestRow(0, time.Second)}))
	require.NoError(t, s.WriteRows(ctx, "session-1", []ir.ExportRow{createTestRow(0, 2*time.Second)}))

	got, err := s.ReadRows(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Second, got[0].ResponseTime)
}

func TestWriteRows_RequiresSession(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteRows(context.Background(), "missing", []ir.ExportRow{createTestRow(0, 0)})
	assert.Error(t, err, "foreign key should reject rows of an unknown session")

	n, err := s.CountRows(context.Background(), "missing")
	require.NoError(t, err)
	assert.Zero(t, n, "failed transaction stores nothing")
}
