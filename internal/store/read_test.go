package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cogtask/internal/ir"
)

func TestReadRows_OrderedByIndex(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, createTestSession("session-1", "P01")))

	// Blocks delivered out of order still read back by index.
	require.NoError(t, s.WriteRows(ctx, "session-1", []ir.ExportRow{createTestRow(2, 0), createTestRow(3, 0)}))
	require.NoError(t, s.WriteRows(ctx, "session-1", []ir.ExportRow{createTestRow(0, 0), createTestRow(1, 0)}))

	got, err := s.ReadRows(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, row := range got {
		assert.Equal(t, i, row.Index)
	}
}

func TestReadRows_EmptySession(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadRows(context.Background(), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestReadRows_SeparatesSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.WriteSession(ctx, createTestSession("session-1", "P01")))
	require.NoError(t, s.WriteSession(ctx, createTestSession("session-2", "P02")))

	require.NoError(t, s.WriteRows(ctx, "session-1", []ir.ExportRow{createTestRow(0, time.Second)}))
	require.NoError(t, s.WriteRows(ctx, "session-2", []ir.ExportRow{createTestRow(0, 2*time.Second)}))

	got, err := s.ReadRows(ctx, "session-2")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2*time.Second, got[0].ResponseTime)
}

func TestReadSession(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := createTestSession("session-1", "P01")
	require.NoError(t, s.WriteSession(ctx, want))

	got, err := s.ReadSession(ctx, "session-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.ReadSession(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestListSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, rec := range []ir.SessionRecord{
		createTestSession("session-b", "P02"),
		createTestSession("session-a", "P01"),
		createTestSession("session-c", "P01"),
	} {
		require.NoError(t, s.WriteSession(ctx, rec))
	}

	all, err := s.ListSessions(ctx, "")
	require.NoError(t, err)
	var ids []string
	for _, rec := range all {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"session-a", "session-b", "session-c"}, ids)

	p01, err := s.ListSessions(ctx, "P01")
	require.NoError(t, err)
	assert.Len(t, p01, 2)

	none, err := s.ListSessions(ctx, "P99")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}
