package compiler

import (
	"fmt"
	"path"

	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/specsource"
)

// Validation error codes (E100-E199)
const (
	ErrNoSpecFiles      = "E101" // neither task lists a specification file
	ErrDuplicateFile    = "E102" // a file is listed more than once
	ErrMisfiledSource   = "E103" // file name selects the other task
	ErrNegativeSettle   = "E104" // settle interval below zero
	ErrEmptyOutput      = "E105" // output path is empty
	ErrUnclassifiedFile = "E106" // file name selects no task (warning)
)

// ValidationError represents an experiment validation problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Warning bool   `json:"warning,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled experiment and returns every problem found
// (it does not fail fast). Entries with Warning set do not prevent a run:
// a file whose name selects no task still runs as an empty block.
func Validate(cfg ir.ExperimentConfig) []ValidationError {
	var errs []ValidationError

	if len(cfg.Flanker.Files) == 0 && len(cfg.Stroop.Files) == 0 {
		errs = append(errs, ValidationError{
			Field:   "experiment",
			Message: "at least one flanker or stroop file is required",
			Code:    ErrNoSpecFiles,
		})
	}
	if cfg.Settle < 0 {
		errs = append(errs, ValidationError{
			Field:   "settle",
			Message: fmt.Sprintf("must not be negative, got %s", cfg.Settle),
			Code:    ErrNegativeSettle,
		})
	}
	if cfg.Output == "" {
		errs = append(errs, ValidationError{
			Field:   "output",
			Message: "output path is required",
			Code:    ErrEmptyOutput,
		})
	}

	seen := make(map[string]string)
	check := func(field string, want ir.TaskType, files []string) {
		for i, f := range files {
			fieldName := fmt.Sprintf("%s.files[%d]", field, i)
			if prev, ok := seen[f]; ok {
				errs = append(errs, ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("%q is already listed as %s", f, prev),
					Code:    ErrDuplicateFile,
				})
				continue
			}
			seen[f] = fieldName

			switch got := specsource.Classify(f); got {
			case want:
			case ir.TaskUnknown:
				errs = append(errs, ValidationError{
					Field: fieldName,
					Message: fmt.Sprintf("%q does not start with %q or %q; it will run as an empty block",
						path.Base(f), specsource.FlankerPrefix, specsource.StroopPrefix),
					Code:    ErrUnclassifiedFile,
					Warning: true,
				})
			default:
				errs = append(errs, ValidationError{
					Field:   fieldName,
					Message: fmt.Sprintf("%q names a %s source but is listed under %s", path.Base(f), got, field),
					Code:    ErrMisfiledSource,
				})
			}
		}
	}
	check("flanker", ir.TaskFlanker, cfg.Flanker.Files)
	check("stroop", ir.TaskStroop, cfg.Stroop.Files)

	return errs
}

// HasErrors reports whether any entry is an error rather than a warning.
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if !e.Warning {
			return true
		}
	}
	return false
}
