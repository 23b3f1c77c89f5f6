package compiler

import (
	"testing"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cogtask/internal/ir"
)

func compileString(t *testing.T, src string) (ir.ExperimentConfig, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileExperiment(v.LookupPath(cue.ParsePath("experiment")))
}

func TestCompileExperimentFull(t *testing.T) {
	cfg, err := compileString(t, `
		experiment: {
			title:        "Pilot study"
			stroop_first: false
			settle:       "250ms"
			seed:         1234
			shuffle:      false
			output:       "pilot.csv"
			flanker: {
				files:       ["ft_b1.csv", "ft_b2.csv"]
				instruction: "Arrows"
			}
			stroop: {
				files:       ["st_b1.csv"]
				instruction: ""
			}
		}
	`)
	require.NoError(t, err)

	assert.Equal(t, ir.ExperimentConfig{
		Title:       "Pilot study",
		StroopFirst: false,
		Settle:      250 * time.Millisecond,
		Seed:        1234,
		Shuffle:     false,
		Output:      "pilot.csv",
		Flanker:     ir.TaskConfig{Files: []string{"ft_b1.csv", "ft_b2.csv"}, Instruction: "Arrows"},
		Stroop:      ir.TaskConfig{Files: []string{"st_b1.csv"}, Instruction: ""},
	}, cfg)
}

func TestCompileExperimentDefaults(t *testing.T) {
	cfg, err := compileString(t, `
		experiment: {
			stroop: files: ["st_b1.csv"]
		}
	`)
	require.NoError(t, err)

	assert.Equal(t, ir.DefaultTitle, cfg.Title)
	assert.True(t, cfg.StroopFirst)
	assert.True(t, cfg.Shuffle)
	assert.Equal(t, ir.DefaultSettle, cfg.Settle)
	assert.Equal(t, ir.DefaultOutput, cfg.Output)
	assert.Zero(t, cfg.Seed)
	assert.Equal(t, ir.DefaultFlankerInstruction, cfg.Flanker.Instruction)
	assert.Equal(t, ir.DefaultStroopInstruction, cfg.Stroop.Instruction)
	assert.Empty(t, cfg.Flanker.Files)
	assert.Equal(t, []string{"st_b1.csv"}, cfg.Stroop.Files)
}

func TestCompileExperimentSettleSeconds(t *testing.T) {
	cfg, err := compileString(t, `experiment: settle: 0.5`)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.Settle)

	cfg, err = compileString(t, `experiment: settle: 1`)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Settle)
}

func TestCompileExperimentErrors(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		field string
	}{
		{"bad settle string", `experiment: settle: "soon"`, "settle"},
		{"settle wrong kind", `experiment: settle: true`, "settle"},
		{"title not string", `experiment: title: 3`, "title"},
		{"shuffle not bool", `experiment: shuffle: "yes"`, "shuffle"},
		{"seed not int", `experiment: seed: "x"`, "seed"},
		{"unknown field", `experiment: colour: "red"`, "colour"},
		{"unknown task field", `experiment: stroop: keys: ["b"]`, "stroop.keys"},
		{"files not list", `experiment: flanker: files: "ft_b1.csv"`, "flanker.files"},
		{"file not string", `experiment: flanker: files: [1]`, "flanker.files"},
		{"instruction not string", `experiment: stroop: instruction: 1`, "stroop.instruction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileString(t, tt.src)
			require.Error(t, err)
			var ce *CompileError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestCompileExperimentMissing(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`other: 1`)
	require.NoError(t, v.Err())

	_, err := CompileExperiment(v.LookupPath(cue.ParsePath("experiment")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "experiment is required")
}

func TestCompileErrorFormat(t *testing.T) {
	err := &CompileError{Field: "settle", Message: "invalid duration"}
	assert.Equal(t, "settle: invalid duration", err.Error())
}
