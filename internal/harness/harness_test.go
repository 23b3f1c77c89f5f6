package harness

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Scenarios(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			s, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ResponseTimesFromScript(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/stroop_first_basic.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Rows, 4)

	want := []time.Duration{450 * time.Millisecond, 1200 * time.Millisecond, 300 * time.Millisecond, 2 * time.Second}
	for i, row := range result.Rows {
		assert.Equal(t, i, row.Index)
		assert.Equal(t, want[i], row.ResponseTime, "row %d", i)
	}
	assert.Equal(t, "scenario-1", result.SessionID)
	assert.Equal(t, int64(scenarioSeed), result.Seed)
}

func TestRun_AssertionFailureReported(t *testing.T) {
	doc := strings.Replace(baseScenario, "count: 1", "count: 5", 1)
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Assertion failed: row_count")
}

func TestRun_LoadErrorMismatch(t *testing.T) {
	doc := strings.Replace(baseScenario, "[[left, congruent]]", "[[sideways, congruent]]", 1)
	doc = strings.Replace(doc, "count: 1", "count: 0", 1)
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.LoadErrors, 1)
	assert.Contains(t, result.LoadErrors[0], "MALFORMED_SPECIFICATION")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected 0 load errors, got 1")
}

const shuffledScenario = `name: shuffled
description: shuffled flanker block
participant: {id: p9}
shuffle: true
seed: 42
sources:
  - id: ft_b1.csv
    rows:
      - [left, congruent]
      - [left, incongruent]
      - [right, congruent]
      - [right, incongruent]
      - [left, congruent]
      - [right, incongruent]
flanker: [ft_b1.csv]
assertions:
  - {type: row_count, count: 6}
  - {type: label_count, label: invalid, count: 6}
`

func TestRun_ShuffleIsSeeded(t *testing.T) {
	s, err := ParseScenario([]byte(shuffledScenario))
	require.NoError(t, err)

	first, err := Run(s)
	require.NoError(t, err)
	second, err := Run(s)
	require.NoError(t, err)

	require.True(t, first.Pass, "errors: %v", first.Errors)
	assert.Equal(t, int64(42), first.Seed)
	assert.Equal(t, string(first.CSV), string(second.CSV))

	var got []string
	for _, row := range first.Rows {
		got = append(got, row.FlankerDirection+"/"+row.FlankerType)
	}
	sort.Strings(got)
	assert.Equal(t, []string{
		"left/congruent", "left/congruent", "left/incongruent",
		"right/congruent", "right/incongruent", "right/incongruent",
	}, got)
}
