package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/cogtask/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestSession creates a running session header.
func createTestSession(id, participantID string) ir.SessionRecord {
	return ir.SessionRecord{
		ID:          id,
		Participant: ir.Participant{ID: participantID, Type: ir.ParticipantMain},
		ConfigHash:  "test-hash",
		Seed:        42,
		StroopFirst: true,
		Status:      ir.SessionRunning,
		CreatedAt:   "2024-01-01T00:00:00Z",
	}
}

// createTestRow creates a flanker export row at the given index.
func createTestRow(idx int, rt time.Duration) ir.ExportRow {
	return ir.ExportRow{
		Index:            idx,
		BlockType:        ir.TaskFlanker,
		BlockSource:      "ft_b1.csv",
		CorrectKey:       "f",
		Label:            ir.LabelCorrect,
		Response:         "f",
		FlankerType:      "congruent",
		FlankerDirection: "left",
		StroopText:       ir.Sentinel,
		StroopColor:      ir.Sentinel,
		ResponseTime:     rt,
		ParticipantID:    "P01",
		ParticipantType:  ir.ParticipantMain,
	}
}
