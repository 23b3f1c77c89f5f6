package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileExperimentDir(t *testing.T) {
	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), experimentDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Compiled \"Stroop / Flanker pilot\"")
	assert.Contains(t, stdout, "shuffle:      true")
	assert.Contains(t, stdout, "settle:       500ms")
	assert.Contains(t, stdout, "flanker:      2 file(s)")
	assert.Contains(t, stdout, "stroop:       2 file(s)")
	assert.Contains(t, stdout, "config hash:")
}

func TestCompileExperimentDirJSON(t *testing.T) {
	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), experimentDir)
	require.NoError(t, err)

	var resp struct {
		Status string            `json:"status"`
		Data   CompilationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Stroop / Flanker pilot", resp.Data.Config.Title)
	assert.Equal(t, []string{"ft_b1.csv", "ft_b2.csv"}, resp.Data.Config.Flanker.Files)
	assert.NotEmpty(t, resp.Data.ConfigHash)
}

func TestCompileOutputToFile(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "compiled.json")

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), experimentDir, "--output", outputFile)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote configuration to")

	data, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	var result CompilationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 500*time.Millisecond, result.Config.Settle)
	assert.Len(t, result.Config.Stroop.Files, 2)
	assert.NotEmpty(t, result.ConfigHash)
}

func TestCompileDefaults(t *testing.T) {
	dir := writeExperiment(t, `
package experiment

experiment: stroop: files: ["st_b1.csv"]
`, nil)

	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, stdout, "output:       output.csv")
	assert.Contains(t, stdout, "stroop first: true")
	assert.Contains(t, stdout, "flanker:      0 file(s)")
}

func TestCompileHashIsStable(t *testing.T) {
	first, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), experimentDir)
	require.NoError(t, err)
	second, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), experimentDir)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompileNonExistentDirectory(t *testing.T) {
	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, stdout, "not found")
}

func TestCompileEmptyDirectory(t *testing.T) {
	stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, stdout, "no CUE files found")
}

func TestCompileDefinitionErrors(t *testing.T) {
	tests := []struct {
		name string
		cue  string
		code string
	}{
		{
			name: "missing experiment",
			cue:  "package experiment\n\nother: 1\n",
			code: ErrCodeMissingExperiment,
		},
		{
			name: "bad settle",
			cue:  "package experiment\n\nexperiment: settle: true\n",
			code: ErrCodeInvalidSettle,
		},
		{
			name: "files not a list",
			cue:  "package experiment\n\nexperiment: flanker: files: \"ft_b1.csv\"\n",
			code: ErrCodeInvalidTask,
		},
		{
			name: "unknown field",
			cue:  "package experiment\n\nexperiment: colour: \"red\"\n",
			code: ErrCodeInvalidField,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeExperiment(t, tt.cue, nil)

			stdout, _, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), dir)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
			assert.Equal(t, "error", resp.Status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestCompileVerboseOutput(t *testing.T) {
	_, stderr, err := execute(NewCompileCommand(&RootOptions{Format: "text", Verbose: true}), experimentDir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Found 1 CUE file(s)")
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("package x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ft_b1.csv"), []byte(""), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.cue"), []byte("package x"), 0644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := []struct {
		field    string
		expected string
	}{
		{"experiment", ErrCodeMissingExperiment},
		{"settle", ErrCodeInvalidSettle},
		{"flanker", ErrCodeInvalidTask},
		{"flanker.files", ErrCodeInvalidTask},
		{"stroop.instruction", ErrCodeInvalidTask},
		{"stroopy", ErrCodeInvalidField},
		{"seed", ErrCodeInvalidField},
		{"", ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapFieldToErrorCode(tt.field))
		})
	}
}
