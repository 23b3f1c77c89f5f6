// Package specsource reads tabular trial specifications.
//
// A specification is a CSV file with one header row followed by data rows.
// The task a file belongs to is derived from its name: files starting with
// "ft" hold flanker rows, files starting with "st" hold Stroop rows.
package specsource

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/roach88/cogtask/internal/ir"
)

// File-name prefixes that select the task type.
const (
	FlankerPrefix = "ft"
	StroopPrefix  = "st"
)

// Source is a named, re-openable specification.
type Source interface {
	// Name identifies the source in logs and in the block_csv export column.
	Name() string
	// Open returns a reader over the CSV content, header row included.
	Open() (io.ReadCloser, error)
}

// Classify derives the task type from a source name.
// Returns ir.TaskUnknown when no prefix matches.
func Classify(name string) ir.TaskType {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	switch {
	case strings.HasPrefix(base, FlankerPrefix):
		return ir.TaskFlanker
	case strings.HasPrefix(base, StroopPrefix):
		return ir.TaskStroop
	default:
		return ir.TaskUnknown
	}
}

// Row is one data row with its 1-based line number (the header is line 1).
type Row struct {
	Line   int
	Fields []string
}

// ReadRows parses CSV content and returns every row after the header.
// Empty input and header-only input both yield zero rows.
// Rows may have differing column counts; arity is checked by the caller.
func ReadRows(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []Row
	header := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if header {
			header = false
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, Row{Line: line, Fields: record})
	}
	return rows, nil
}

// File is a specification stored in a filesystem.
type File struct {
	FS   fs.FS
	Path string
}

// Name returns the file's base name.
func (f File) Name() string {
	return path.Base(f.Path)
}

// Open opens the file.
func (f File) Open() (io.ReadCloser, error) {
	file, err := f.FS.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open specification %s: %w", f.Path, err)
	}
	return file, nil
}

// Inline is an in-memory specification, used by scenarios and tests.
type Inline struct {
	ID     string
	Header []string
	Rows   [][]string
}

// Name returns the inline source id.
func (s Inline) Name() string {
	return s.ID
}

// Open renders the rows as CSV.
func (s Inline) Open() (io.ReadCloser, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := s.Header
	if header == nil {
		header = DefaultHeader(Classify(s.ID))
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("render inline specification %s: %w", s.ID, err)
	}
	if err := w.WriteAll(s.Rows); err != nil {
		return nil, fmt.Errorf("render inline specification %s: %w", s.ID, err)
	}
	return io.NopCloser(&buf), nil
}

// DefaultHeader returns the conventional header row for a task.
func DefaultHeader(t ir.TaskType) []string {
	switch t {
	case ir.TaskFlanker:
		return []string{"correct", "trial_type"}
	case ir.TaskStroop:
		return []string{"word", "color"}
	default:
		return []string{"column"}
	}
}
