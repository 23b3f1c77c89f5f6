package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cogtask/internal/compiler"
	"github.com/roach88/cogtask/internal/engine"
	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/specsource"
)

// BlockSummary describes one specification file as it would load.
type BlockSummary struct {
	Source string      `json:"source"`
	Type   ir.TaskType `json:"type"`
	Trials int         `json:"trials"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Blocks []BlockSummary             `json:"blocks,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <experiment-dir>",
		Short: "Validate the experiment and its specification files",
		Long: `Validate the CUE experiment definition and every specification file it lists.

Each file is loaded exactly as a run would load it: rows with the wrong
number of columns or unknown values are reported with their line. Files
whose name selects no task are reported as warnings; they run as empty
blocks.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadExperiment(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	result := ValidateExperiment(loaded)
	for _, b := range result.Blocks {
		formatter.VerboseLog("Loaded %s: %s, %d trial(s)", b.Source, b.Type, b.Trials)
	}

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateExperiment checks the compiled configuration and loads every
// listed specification file. Loading problems are collected, not fatal.
func ValidateExperiment(loaded *LoadResult) ValidationResult {
	errs := compiler.Validate(loaded.Config)
	var blocks []BlockSummary

	check := func(task string, files []string) {
		for i, src := range loaded.Sources(files) {
			field := fmt.Sprintf("%s.files[%d]", task, i)
			b := engine.NewBlock(src.Name(), specsource.Classify(src.Name()), ir.Participant{}, "")

			err := b.LoadSpecifications(src)
			switch {
			case err == nil:
				blocks = append(blocks, BlockSummary{Source: b.Source, Type: b.Type, Trials: len(b.Specifications())})
			case engine.IsUnrecognizedTaskType(err):
				// Already a compiler warning.
				blocks = append(blocks, BlockSummary{Source: b.Source, Type: b.Type})
			case engine.IsMalformedSpec(err):
				errs = append(errs, compiler.ValidationError{
					Field:   field,
					Message: err.Error(),
					Code:    ErrCodeMalformedSpec,
				})
			default:
				errs = append(errs, compiler.ValidationError{
					Field:   field,
					Message: err.Error(),
					Code:    ErrCodeNotFound,
				})
			}
		}
	}
	check("flanker", loaded.Config.Flanker.Files)
	check("stroop", loaded.Config.Stroop.Files)

	return ValidationResult{
		Valid:  !compiler.HasErrors(errs),
		Errors: errs,
		Blocks: blocks,
	}
}

// outputValidateSuccess outputs successful validation results, including
// any warnings.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	trials := 0
	for _, b := range result.Blocks {
		trials += b.Trials
	}
	fmt.Fprintf(formatter.Writer, "\u2713 Experiment valid: %d block(s), %d trial(s)\n", len(result.Blocks), trials)
	for _, e := range result.Errors {
		fmt.Fprintf(formatter.Writer, "  warning %s: %s: %s\n", e.Code, e.Field, e.Message)
	}
	return nil
}

// outputValidationErrors outputs every validation problem.
func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	var first compiler.ValidationError
	count := 0
	for _, e := range result.Errors {
		if e.Warning {
			continue
		}
		if count == 0 {
			first = e
		}
		count++
	}

	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    first.Code,
				Message: first.Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
	}

	fmt.Fprintln(formatter.Writer, "\u2717 Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range result.Errors {
		kind := "error"
		if e.Warning {
			kind = "warning"
		}
		fmt.Fprintf(formatter.Writer, "  %s %s: %s: %s\n", kind, e.Code, e.Field, e.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", count))
}
