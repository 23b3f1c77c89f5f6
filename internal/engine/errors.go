package engine

import (
	"errors"
	"fmt"
)

// ExperimentError represents a configuration or lifecycle error detected
// while building or running an experiment.
//
// Loading errors are block-local: the scheduler reports them and carries on
// with the remaining blocks. Only ErrCodeEntryCancelled stops a session.
type ExperimentError struct {
	// Code identifies the error category.
	Code ExperimentErrorCode

	// Message is a human-readable description.
	Message string

	// Source identifies the specification source, if any.
	Source string

	// Line is the 1-based source line of the offending row (0 if none).
	Line int

	// Details contains additional context.
	Details map[string]string
}

// ExperimentErrorCode categorizes experiment errors.
type ExperimentErrorCode string

const (
	// ErrCodeMalformedSpec indicates a specification row has the wrong arity
	// or an unknown value.
	ErrCodeMalformedSpec ExperimentErrorCode = "MALFORMED_SPECIFICATION"

	// ErrCodeUnrecognizedTask indicates the task type of a source could not
	// be determined.
	ErrCodeUnrecognizedTask ExperimentErrorCode = "UNRECOGNIZED_TASK_TYPE"

	// ErrCodeEntryCancelled indicates the operator aborted participant entry.
	ErrCodeEntryCancelled ExperimentErrorCode = "PARTICIPANT_ENTRY_CANCELLED"

	// ErrCodeBlockAlreadyRun indicates a block was run twice.
	ErrCodeBlockAlreadyRun ExperimentErrorCode = "BLOCK_ALREADY_RUN"
)

// ErrParticipantEntryCancelled is returned when participant entry is aborted.
var ErrParticipantEntryCancelled = &ExperimentError{
	Code:    ErrCodeEntryCancelled,
	Message: "participant entry cancelled",
}

// Error implements the error interface.
func (e *ExperimentError) Error() string {
	if e.Source != "" && e.Line > 0 {
		return fmt.Sprintf("%s: %s (source=%s, line=%d)", e.Code, e.Message, e.Source, e.Line)
	}
	if e.Source != "" {
		return fmt.Sprintf("%s: %s (source=%s)", e.Code, e.Message, e.Source)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any ExperimentError with the same code, so
// errors.Is(err, ErrParticipantEntryCancelled) works on wrapped copies.
func (e *ExperimentError) Is(target error) bool {
	var other *ExperimentError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

func hasCode(err error, code ExperimentErrorCode) bool {
	var ee *ExperimentError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsMalformedSpec reports whether err is a malformed specification error.
func IsMalformedSpec(err error) bool {
	return hasCode(err, ErrCodeMalformedSpec)
}

// IsUnrecognizedTaskType reports whether err is an unrecognized task type error.
func IsUnrecognizedTaskType(err error) bool {
	return hasCode(err, ErrCodeUnrecognizedTask)
}

// IsEntryCancelled reports whether err is a cancelled participant entry.
func IsEntryCancelled(err error) bool {
	return hasCode(err, ErrCodeEntryCancelled)
}

// NewMalformedSpecError creates an ExperimentError for a bad specification row.
func NewMalformedSpecError(source string, line int, message string) *ExperimentError {
	return &ExperimentError{
		Code:    ErrCodeMalformedSpec,
		Message: message,
		Source:  source,
		Line:    line,
	}
}

// NewArityError creates a malformed specification error for a row whose
// column count does not match the task.
func NewArityError(source string, line, want, got int) *ExperimentError {
	return &ExperimentError{
		Code:    ErrCodeMalformedSpec,
		Message: fmt.Sprintf("row has %d columns, expected %d", got, want),
		Source:  source,
		Line:    line,
		Details: map[string]string{
			"want": fmt.Sprintf("%d", want),
			"got":  fmt.Sprintf("%d", got),
		},
	}
}

// NewUnrecognizedTaskError creates an ExperimentError for a source whose
// task type cannot be determined.
func NewUnrecognizedTaskError(source string) *ExperimentError {
	return &ExperimentError{
		Code:    ErrCodeUnrecognizedTask,
		Message: "cannot determine task type from source name",
		Source:  source,
	}
}
