package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/cogtask/internal/export"
	"github.com/roach88/cogtask/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the exported rows to help debug the failure.
type AssertionError struct {
	Type     string         // Assertion type for categorization
	Expected string         // Human-readable expected outcome
	Actual   string         // Human-readable actual outcome
	Rows     []ir.ExportRow // Exported rows for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nRows:\n")
	for _, row := range e.Rows {
		fmt.Fprintf(&buf, "  [%d] %s\n", row.Index, strings.Join(export.Record(row), ","))
	}

	return buf.String()
}

// assertRowCount checks the number of exported rows.
func assertRowCount(rows []ir.ExportRow, assertion Assertion) error {
	if len(rows) != assertion.Count {
		return &AssertionError{
			Type:     AssertRowCount,
			Expected: fmt.Sprintf("%d rows", assertion.Count),
			Actual:   fmt.Sprintf("%d rows", len(rows)),
			Rows:     rows,
		}
	}
	return nil
}

// assertLabelCount checks how many rows carry a label.
func assertLabelCount(rows []ir.ExportRow, assertion Assertion) error {
	count := 0
	for _, row := range rows {
		if row.Label == assertion.Label {
			count++
		}
	}
	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertLabelCount,
			Expected: fmt.Sprintf("%d rows labelled %s", assertion.Count, assertion.Label),
			Actual:   fmt.Sprintf("%d rows", count),
			Rows:     rows,
		}
	}
	return nil
}

// assertBlockOrder checks the sequence of blocks in the log. Consecutive rows
// from the same block collapse to one entry, so the check sees blocks, not
// trials. Blocks without exported rows do not appear.
func assertBlockOrder(rows []ir.ExportRow, assertion Assertion) error {
	var order []string
	for _, row := range rows {
		if len(order) == 0 || order[len(order)-1] != row.BlockSource {
			order = append(order, row.BlockSource)
		}
	}

	if len(order) != len(assertion.Blocks) {
		return blockOrderError(rows, assertion.Blocks, order)
	}
	for i := range order {
		if order[i] != assertion.Blocks[i] {
			return blockOrderError(rows, assertion.Blocks, order)
		}
	}
	return nil
}

func blockOrderError(rows []ir.ExportRow, want, got []string) error {
	return &AssertionError{
		Type:     AssertBlockOrder,
		Expected: fmt.Sprintf("blocks in order: %v", want),
		Actual:   fmt.Sprintf("blocks in order: %v", got),
		Rows:     rows,
	}
}

// assertRow checks column values of one row (subset match). Columns are
// named as in the CSV header and compared as rendered CSV fields.
func assertRow(rows []ir.ExportRow, assertion Assertion) error {
	if assertion.Index >= len(rows) {
		return &AssertionError{
			Type:     AssertRow,
			Expected: fmt.Sprintf("row %d", assertion.Index),
			Actual:   fmt.Sprintf("only %d rows", len(rows)),
			Rows:     rows,
		}
	}

	record := export.Record(rows[assertion.Index])
	columns := make(map[string]string, len(export.Header))
	for i, name := range export.Header {
		columns[name] = record[i]
	}

	keys := make([]string, 0, len(assertion.Expect))
	for k := range assertion.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, col := range keys {
		want := assertion.Expect[col]
		got, ok := columns[col]
		if !ok {
			return fmt.Errorf("row assertion: unknown column %q", col)
		}
		if got != want {
			return &AssertionError{
				Type:     AssertRow,
				Expected: fmt.Sprintf("row %d %s=%q", assertion.Index, col, want),
				Actual:   fmt.Sprintf("%s=%q", col, got),
				Rows:     rows,
			}
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertRowCount:
			err = assertRowCount(result.Rows, assertion)
		case AssertLabelCount:
			err = assertLabelCount(result.Rows, assertion)
		case AssertBlockOrder:
			err = assertBlockOrder(result.Rows, assertion)
		case AssertRow:
			err = assertRow(result.Rows, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
