package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Exit codes shared by every command.
//
// A run that started and then stopped (operator abort, presenter failure)
// is a failure: the session exists and is marked aborted. Anything that
// stops a run before a session exists, including a cancelled participant
// form, is a command error.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // aborted session, failing scenarios, invalid specifications
	ExitCommandError = 2 // bad input, cancelled participant entry, I/O and database errors
)

// ExitError carries the process exit code for a command's error.
type ExitError struct {
	Code    int
	Message string
	Err     error
	// Session is the id of the session the error belongs to, if one was
	// created.
	Session string
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// NewAbortError reports a session that stopped before its last trial.
// Nothing was exported; the stored session keeps its finished blocks.
func NewAbortError(session string, err error) *ExitError {
	return &ExitError{
		Code:    ExitFailure,
		Message: fmt.Sprintf("session %s aborted", session),
		Err:     err,
		Session: session,
	}
}

// NewCancelledError reports a participant form closed without submitting.
// No session was created.
func NewCancelledError(err error) *ExitError {
	return WrapExitError(ExitCommandError, "participant entry cancelled", err)
}

// NewScenarioFailure reports failing harness scenarios.
func NewScenarioFailure(failed int) *ExitError {
	return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
}

// GetExitCode extracts the exit code from an error.
// Errors without one exit with ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope every command emits with --format json.
type CLIResponse struct {
	Status  string    `json:"status"` // "ok" or "error"
	Data    any       `json:"data,omitempty"`
	Error   *CLIError `json:"error,omitempty"`
	Session string    `json:"session,omitempty"`
}

// CLIError is the error member of CLIResponse. Code is one of the
// ErrCode constants.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes a successful result.
func (f *OutputFormatter) Success(data any) error {
	return f.SessionSuccess("", data)
}

// SessionSuccess writes a successful result that belongs to a session.
// Text output prints data alone; the session id is part of the JSON
// envelope only.
func (f *OutputFormatter) SessionSuccess(session string, data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data, Session: session})
	}
	_, err := fmt.Fprintln(f.Writer, data)
	return err
}

// Error writes an error result.
func (f *OutputFormatter) Error(code, message string, details any) error {
	return f.SessionError("", code, message, details)
}

// SessionError writes an error result that belongs to a session.
func (f *OutputFormatter) SessionError(session, code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status:  "error",
			Error:   &CLIError{Code: code, Message: message, Details: details},
			Session: session,
		})
	}
	if session != "" {
		fmt.Fprintf(f.Writer, "Error [%s] session %s: %s\n", code, session, message)
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	}
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Exit writes err through the formatter and returns it unchanged, so a
// command can end with `return formatter.Exit(code, err)`.
func (f *OutputFormatter) Exit(code string, err *ExitError) error {
	_ = f.SessionError(err.Session, code, err.Error(), nil)
	return err
}

// VerboseLog writes a diagnostic line when verbose output is on. It goes
// to ErrWriter so JSON on Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	return json.NewEncoder(f.Writer).Encode(resp)
}
