// Package compiler turns CUE experiment definitions into ir.ExperimentConfig.
package compiler

import (
	"fmt"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cogtask/internal/ir"
)

var experimentFields = map[string]bool{
	"title":        true,
	"stroop_first": true,
	"settle":       true,
	"seed":         true,
	"shuffle":      true,
	"output":       true,
	"flanker":      true,
	"stroop":       true,
}

var taskFields = map[string]bool{
	"files":       true,
	"instruction": true,
}

// CompileExperiment parses a CUE value into an ExperimentConfig.
// Fields left unset take their values from ir.DefaultExperimentConfig.
//
// The CUE value should be the experiment struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`experiment: { stroop: files: ["st_b1.csv"] }`)
//	cfg, err := CompileExperiment(v.LookupPath(cue.ParsePath("experiment")))
//
// settle accepts a duration string ("500ms") or a number of seconds (0.5).
// An instruction set to "" disables the instruction screen.
func CompileExperiment(v cue.Value) (ir.ExperimentConfig, error) {
	cfg := ir.DefaultExperimentConfig()
	if !v.Exists() {
		return cfg, &CompileError{Field: "experiment", Message: "experiment is required"}
	}
	if err := v.Err(); err != nil {
		return cfg, formatCUEError(err)
	}
	if err := checkFields(v, "", experimentFields); err != nil {
		return cfg, err
	}

	var err error
	if cfg.Title, err = optionalString(v, "title", cfg.Title); err != nil {
		return cfg, err
	}
	if cfg.StroopFirst, err = optionalBool(v, "stroop_first", cfg.StroopFirst); err != nil {
		return cfg, err
	}
	if cfg.Shuffle, err = optionalBool(v, "shuffle", cfg.Shuffle); err != nil {
		return cfg, err
	}
	if cfg.Output, err = optionalString(v, "output", cfg.Output); err != nil {
		return cfg, err
	}
	if cfg.Settle, err = parseSettle(v, cfg.Settle); err != nil {
		return cfg, err
	}

	if seedVal := v.LookupPath(cue.ParsePath("seed")); seedVal.Exists() {
		seed, err := seedVal.Int64()
		if err != nil {
			return cfg, fieldError("seed", "must be an integer", seedVal.Pos())
		}
		cfg.Seed = seed
	}

	if cfg.Flanker, err = parseTask(v, "flanker", cfg.Flanker); err != nil {
		return cfg, err
	}
	if cfg.Stroop, err = parseTask(v, "stroop", cfg.Stroop); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func parseSettle(v cue.Value, def time.Duration) (time.Duration, error) {
	sv := v.LookupPath(cue.ParsePath("settle"))
	if !sv.Exists() {
		return def, nil
	}
	switch sv.IncompleteKind() {
	case cue.StringKind:
		s, err := sv.String()
		if err != nil {
			return 0, formatCUEError(err)
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, fieldError("settle", fmt.Sprintf("invalid duration %q", s), sv.Pos())
		}
		return d, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		secs, err := sv.Float64()
		if err != nil {
			return 0, formatCUEError(err)
		}
		return time.Duration(secs * float64(time.Second)), nil
	default:
		return 0, fieldError("settle", "must be a duration string or a number of seconds", sv.Pos())
	}
}

func parseTask(v cue.Value, name string, def ir.TaskConfig) (ir.TaskConfig, error) {
	tv := v.LookupPath(cue.ParsePath(name))
	if !tv.Exists() {
		return def, nil
	}
	if err := checkFields(tv, name+".", taskFields); err != nil {
		return def, err
	}

	cfg := def
	instruction, err := optionalString(tv, "instruction", def.Instruction)
	if err != nil {
		return def, prefixField(err, name)
	}
	cfg.Instruction = instruction

	fv := tv.LookupPath(cue.ParsePath("files"))
	if !fv.Exists() {
		return cfg, nil
	}
	iter, err := fv.List()
	if err != nil {
		return def, fieldError(name+".files", "must be a list of file names", fv.Pos())
	}
	cfg.Files = nil
	for iter.Next() {
		f, err := iter.Value().String()
		if err != nil {
			return def, fieldError(name+".files", "file names must be strings", iter.Value().Pos())
		}
		cfg.Files = append(cfg.Files, f)
	}
	return cfg, nil
}

// checkFields rejects struct fields the experiment schema does not define.
func checkFields(v cue.Value, prefix string, known map[string]bool) error {
	iter, err := v.Fields()
	if err != nil {
		return fieldError(prefix+"struct", "must be a struct", v.Pos())
	}
	for iter.Next() {
		label := iter.Selector().String()
		if !known[label] {
			return fieldError(prefix+label, "unknown field", iter.Value().Pos())
		}
	}
	return nil
}

func optionalString(v cue.Value, field, def string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	s, err := fv.String()
	if err != nil {
		return def, fieldError(field, "must be a string", fv.Pos())
	}
	return s, nil
}

func optionalBool(v cue.Value, field string, def bool) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return def, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return def, fieldError(field, "must be a bool", fv.Pos())
	}
	return b, nil
}

// CompileError is a definition error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func fieldError(field, message string, pos token.Pos) *CompileError {
	return &CompileError{Field: field, Message: message, Pos: pos}
}

func prefixField(err error, prefix string) error {
	if ce, ok := err.(*CompileError); ok {
		return &CompileError{Field: prefix + "." + ce.Field, Message: ce.Message, Pos: ce.Pos}
	}
	return err
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
