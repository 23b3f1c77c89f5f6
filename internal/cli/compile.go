package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cogtask/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult is the compiled experiment and its content hash.
type CompilationResult struct {
	Config        ir.ExperimentConfig `json:"config"`
	ConfigHash    string              `json:"config_hash"`
	SchemaVersion string              `json:"schema_version"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <experiment-dir>",
		Short: "Compile the CUE experiment definition",
		Long: `Compile the CUE experiment definition to its resolved configuration.

Defaults are filled in and the configuration hash stored with every session
is printed. With --output the configuration is written as JSON.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	loaded, err := LoadExperiment(dir)
	if err != nil {
		return outputLoadError(formatter, err)
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	hash, err := ir.ConfigHash(loaded.Config)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, fmt.Sprintf("hashing config: %v", err))
	}
	result := &CompilationResult{Config: loaded.Config, ConfigHash: hash, SchemaVersion: ir.SchemaVersion}

	if opts.Output != "" {
		if err := writeConfigToFile(result, opts.Output); err != nil {
			return outputCommandError(formatter, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	cfg := result.Config
	w := formatter.Writer
	fmt.Fprintf(w, "\u2713 Compiled %q\n\n", cfg.Title)
	fmt.Fprintf(w, "  stroop first: %t\n", cfg.StroopFirst)
	fmt.Fprintf(w, "  shuffle:      %t\n", cfg.Shuffle)
	fmt.Fprintf(w, "  seed:         %d\n", cfg.Seed)
	fmt.Fprintf(w, "  settle:       %s\n", cfg.Settle)
	fmt.Fprintf(w, "  output:       %s\n", cfg.Output)
	fmt.Fprintf(w, "  flanker:      %d file(s)\n", len(cfg.Flanker.Files))
	fmt.Fprintf(w, "  stroop:       %d file(s)\n", len(cfg.Stroop.Files))
	fmt.Fprintf(w, "  config hash:  %s\n", result.ConfigHash)
	fmt.Fprintf(w, "  log schema:   v%s\n", result.SchemaVersion)
	if opts.Output != "" {
		fmt.Fprintf(w, "\nWrote configuration to %s\n", opts.Output)
	}
	return nil
}

// outputLoadError reports a LoadExperiment failure as a command error.
func outputLoadError(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.Pos.IsValid() {
			formatter.VerboseLog("%s:%d:%d", loadErr.Pos.Filename(), loadErr.Pos.Line(), loadErr.Pos.Column())
		}
		return outputCommandError(formatter, loadErr.Code, loadErr.Message)
	}
	return outputCommandError(formatter, ErrCodeGeneric, err.Error())
}

// outputCommandError prints one error and returns exit code 2.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func writeConfigToFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
