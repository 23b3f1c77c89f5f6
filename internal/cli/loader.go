package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cogtask/internal/compiler"
	"github.com/roach88/cogtask/internal/ir"
	"github.com/roach88/cogtask/internal/specsource"
)

// LoadResult contains a compiled experiment and where it came from.
type LoadResult struct {
	Config    ir.ExperimentConfig
	Dir       string    // Experiment directory; specification paths resolve against it
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred while loading an experiment.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadExperiment loads the CUE package in dir and compiles its experiment
// field. Errors are *LoadError.
func LoadExperiment(dir string) (*LoadResult, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("experiment directory not found: %s", dir)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing experiment directory: %v", err)}
	}
	if !info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(cueFiles) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	cfg, err := compiler.CompileExperiment(value.LookupPath(cue.ParsePath("experiment")))
	if err != nil {
		return nil, convertCompileError(err)
	}

	return &LoadResult{
		Config:    cfg,
		Dir:       dir,
		CUEValue:  value,
		FileCount: len(cueFiles),
	}, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Sources resolves specification file names against the experiment
// directory. Absolute names are used as they are.
func (r *LoadResult) Sources(files []string) []specsource.Source {
	out := make([]specsource.Source, 0, len(files))
	for _, f := range files {
		full := f
		if !filepath.IsAbs(f) {
			full = filepath.Join(r.Dir, f)
		}
		out = append(out, specsource.File{
			FS:   os.DirFS(filepath.Dir(full)),
			Path: filepath.Base(full),
		})
	}
	return out
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: fmt.Sprintf("%s: %s", compileErr.Field, compileErr.Message),
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{
		Code:    ErrCodeGeneric,
		Message: err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Database error
	ErrCodeAborted     = "E009" // Session stopped before its last trial
	ErrCodeCancelled   = "E010" // Participant entry cancelled

	// Experiment definition errors
	ErrCodeMissingExperiment = "E110" // No experiment field
	ErrCodeInvalidTask       = "E111" // Invalid flanker/stroop block
	ErrCodeInvalidSettle     = "E112" // Invalid settle interval
	ErrCodeInvalidField      = "E113" // Unknown field or wrong type

	// Specification errors
	ErrCodeMalformedSpec    = "E201" // Specification row rejected
	ErrCodeUnrecognizedTask = "E202" // Task type not derivable from name
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "experiment":
		return ErrCodeMissingExperiment
	case field == "settle":
		return ErrCodeInvalidSettle
	case isTaskField(field, "flanker"), isTaskField(field, "stroop"):
		return ErrCodeInvalidTask
	case field != "":
		return ErrCodeInvalidField
	default:
		return ErrCodeGeneric
	}
}

func isTaskField(field, task string) bool {
	return field == task || strings.HasPrefix(field, task+".")
}
