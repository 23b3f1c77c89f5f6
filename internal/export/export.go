// Package export writes the response log as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/roach88/cogtask/internal/ir"
)

// Header is the fixed column order of the response log.
var Header = []string{
	"index",
	"block_type",
	"block_csv",
	"correct",
	"is_correct",
	"response",
	"flanker_type",
	"flanker_correct_direction",
	"stroop_text",
	"stroop_color",
	"response_time",
	"participant_id",
	"participant_type",
}

// FormatSeconds renders a response time as seconds with the shortest
// decimal representation that round-trips (0.45, 1.2034, 0).
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// Record converts a row to its CSV fields, in Header order.
func Record(row ir.ExportRow) []string {
	return []string{
		strconv.Itoa(row.Index),
		string(row.BlockType),
		row.BlockSource,
		row.CorrectKey,
		string(row.Label),
		row.Response,
		row.FlankerType,
		row.FlankerDirection,
		row.StroopText,
		row.StroopColor,
		FormatSeconds(row.ResponseTime),
		row.ParticipantID,
		string(row.ParticipantType),
	}
}

// WriteCSV writes the header and one record per row, in the order given.
// Rows are neither reordered nor deduplicated.
func WriteCSV(w io.Writer, rows []ir.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(Record(row)); err != nil {
			return fmt.Errorf("write row %d: %w", row.Index, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the log to path atomically: the content goes to a
// temporary file in the same directory which is renamed over path only
// after a successful write. A failed write leaves no file behind.
func WriteFile(path string, rows []ir.ExportRow) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := WriteCSV(tmp, rows); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename to %s: %w", path, err)
	}
	return nil
}
