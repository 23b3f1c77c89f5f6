package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// experimentDir is the checked-in example experiment.
var experimentDir = filepath.Join("..", "..", "testdata", "experiment")

// writeExperiment creates a temporary experiment directory holding
// experiment.cue and the given specification files.
func writeExperiment(t *testing.T, cue string, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "experiment.cue"), []byte(cue), 0644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	return dir
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

const minimalExperiment = `
package experiment

experiment: {
	settle:       0
	stroop_first: false
	shuffle:      false
	flanker: files: ["ft_b1.csv"]
	stroop: files: ["st_b1.csv"]
}
`

var minimalFiles = map[string]string{
	"ft_b1.csv": "direction,congruency\nleft,congruent\nright,incongruent\n",
	"st_b1.csv": "word,color\nred,blue\n",
}
