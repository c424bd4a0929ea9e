package harness

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomtrack/internal/tracker"
)

func h2Scenario(steps []Step, assertions ...Assertion) *Scenario {
	return &Scenario{
		Name:        "h2",
		Description: "H2 dimer",
		Structure: map[string]any{
			"symbols":   []any{"H", "H"},
			"positions": []any{[]any{0, 0, 0}, []any{0, 0, 0.74}},
			"cell":      []any{10, 10, 10},
			"pbc":       true,
		},
		Steps:      steps,
		Assertions: assertions,
	}
}

func run(t *testing.T, scenario *Scenario) *Result {
	t.Helper()
	result, err := Run(context.Background(), scenario)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func TestRun_InPlaceStep(t *testing.T) {
	result := run(t, h2Scenario(
		[]Step{{Op: "translate", Args: []any{[]any{1, 0, 0}}}},
		Assertion{Expr: `trackers.main.positions[0][0] == 1.0`},
		Assertion{Expr: `nodes == 4 && links == 3 && processes == 1`},
	))

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 1)
	ev := result.Trace[0]
	assert.Equal(t, "in-place", ev.Kind)
	assert.Equal(t, "main", ev.Result)
	assert.Equal(t, "finished", ev.State)
	assert.Equal(t, map[string]string{"node": "data.core.structure", "arg_00": "data.core.list"}, ev.Inputs)
}

func TestRun_OutOfPlaceDefaultName(t *testing.T) {
	result := run(t, h2Scenario(
		[]Step{
			{Op: "index_access", Args: []any{map[string]any{"start": 1}}},
			{Op: "translate", On: "step_0", Args: []any{[]any{0, 0, 1}}},
		},
		Assertion{Expr: `trackers.step_0.natoms == 1`},
		Assertion{Expr: `trackers.main.natoms == 2`},
		Assertion{Expr: `abs(trackers.step_0.positions[0][2] - 1.74) < 1e-12`},
	))

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "step_0", result.Trace[0].Result)
	assert.Equal(t, "data.core.str", result.Trace[0].Inputs["arg_00"], "slices fall back to text")
	assert.Equal(t, "step_0", result.Trace[1].On)
}

func TestRun_Untracked(t *testing.T) {
	scenario := h2Scenario(
		[]Step{
			{Op: "translate", Args: []any{[]any{1, 0, 0}}},
			{Op: "repeat", Args: []any{2}, As: "big"},
			{Op: "wrap", On: "big"},
		},
		Assertion{Expr: `trackers.big.natoms == 16`},
		Assertion{Expr: `!trackers.main.tracking && trackers.big.tracking`},
		// Only the wrap on the out-of-place result is recorded.
		Assertion{Expr: `nodes == 3 && links == 2 && processes == 1`},
	)
	scenario.Untracked = true
	result := run(t, scenario)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "untracked", result.Trace[0].State)
	assert.Equal(t, "untracked", result.Trace[1].State)
	assert.Nil(t, result.Trace[0].Inputs)
	assert.Equal(t, "finished", result.Trace[2].State)
}

func TestRun_UnexpectedErrorStopsFlow(t *testing.T) {
	result := run(t, h2Scenario(
		[]Step{
			{Op: "pop", Args: []any{5}},
			{Op: "wrap"},
		},
		Assertion{Expr: `len(trace) == 1`},
	))

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
	assert.Equal(t, "excepted", result.Trace[0].State)
}

func TestRun_ExpectedErrorMismatch(t *testing.T) {
	result := run(t, h2Scenario(
		[]Step{
			{Op: "pop", Args: []any{5}, ExpectError: "singular"},
			{Op: "wrap", ExpectError: "anything"},
		},
		Assertion{Expr: `len(trace) == 2`},
	))

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], `does not contain "singular"`)
	assert.Contains(t, result.Errors[1], `expected an error containing "anything"`)
}

func TestRun_OutOfPlaceFailureNotRecorded(t *testing.T) {
	result := run(t, h2Scenario(
		[]Step{
			{Op: "translate", Args: []any{[]any{1, 0, 0}}},
			{Op: "repeat", Args: []any{-1}, ExpectError: "negative repeat"},
		},
		Assertion{Expr: `processes == 1`},
	))

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "untracked", result.Trace[1].State)
}

func TestRun_UnknownTracker(t *testing.T) {
	result := run(t, h2Scenario(
		[]Step{{Op: "wrap", On: "ghost"}},
		Assertion{Expr: `true`},
	))
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], `unknown tracker "ghost"`)
}

func TestRun_StructureFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "h2.yaml"), []byte(h2YAML), 0644))
	scenarioPath := filepath.Join(dir, "s.yaml")
	content := `
name: from_file
description: "Structure from a document"
structure_file: h2.yaml
steps:
  - op: set_distance
    args: [0, 1, 1.0]
    kwargs: {fix: 0}
assertions:
  - expr: abs(distance("main", 0, 1) - 1.0) < 1e-9
  - expr: trackers.main.positions[0][2] == 0.0
`
	require.NoError(t, os.WriteFile(scenarioPath, []byte(content), 0644))

	scenario, err := LoadScenario(scenarioPath)
	require.NoError(t, err)
	result := run(t, scenario)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, map[string]string{
		"node":   "data.core.structure",
		"arg_00": "data.core.int",
		"arg_01": "data.core.int",
		"arg_02": "data.core.float",
		"fix":    "data.core.int",
	}, result.Trace[0].Inputs)
}

func TestRun_BadStructure(t *testing.T) {
	scenario := h2Scenario([]Step{{Op: "wrap"}}, Assertion{Expr: "true"})
	scenario.Structure["positions"] = []any{[]any{0, 0}}
	_, err := Run(context.Background(), scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load structure")
}

func TestRun_Deterministic(t *testing.T) {
	scenario := h2Scenario(
		[]Step{
			{Op: "rattle", Kwargs: map[string]any{"stdev": 0.1, "seed": 3}},
			{Op: "repeat", Args: []any{[]any{1, 1, 2}}},
		},
		Assertion{Expr: `true`},
	)
	a := run(t, scenario)
	b := run(t, scenario)
	assert.Equal(t, a.Trace, b.Trace)
	assert.Equal(t, a.State["trackers"], b.State["trackers"])
}

func TestConvertArg(t *testing.T) {
	assert.Equal(t, []any{1, "x"}, convertArg([]any{1, "x"}))
	assert.Equal(t, sliceOf(0, 2, 1), convertArg(map[string]any{"start": 0, "stop": 2, "step": 1}))
	assert.Equal(t, []any{sliceOf(1, 3, 0)}, convertArg([]any{map[string]any{"start": 1, "stop": 3}}))
	// Other mappings pass through.
	assert.Equal(t, map[string]any{"start": 0, "label": "x"}, convertArg(map[string]any{"start": 0, "label": "x"}))
	assert.Equal(t, map[string]any{"start": 0.5}, convertArg(map[string]any{"start": 0.5}))
}

func TestConvertKwargs_Sorted(t *testing.T) {
	kw := ConvertKwargs(map[string]any{"seed": 1, "stdev": 0.1})
	require.Len(t, kw, 2)
	assert.Equal(t, "seed", kw[0].Name)
	assert.Equal(t, "stdev", kw[1].Name)
}

func TestResult_AddError(t *testing.T) {
	r := NewResult()
	assert.True(t, r.Pass)
	r.AddError("boom")
	assert.False(t, r.Pass)
	assert.Equal(t, []string{"boom"}, r.Errors)
}

func sliceOf(start, stop, step int) tracker.Slice {
	return tracker.Slice{Start: start, Stop: stop, Step: step}
}
