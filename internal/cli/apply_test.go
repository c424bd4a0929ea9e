package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomtrack/internal/store"
	"github.com/roach88/atomtrack/internal/structure"
)

func countNodes(t *testing.T, db string) int {
	t.Helper()
	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()
	n, err := st.CountNodes(context.Background())
	require.NoError(t, err)
	return n
}

func TestApplyFromStructureFile(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)

	resp, err := executeJSON(t, "apply", "--db", db, "--structure", water,
		"--op", "translate", "--args", "[[0, 0, 1]]")
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	got := dataMap(t, resp)
	assert.Equal(t, "translate", got["op"])
	assert.Equal(t, "in-place", got["kind"])
	assert.Equal(t, true, got["stored"])
	assert.Equal(t, "OH2", got["formula"])
	assert.Equal(t, float64(3), got["natoms"])
	assert.NotEmpty(t, got["input"])
	assert.NotEmpty(t, got["node"])
	assert.NotEqual(t, got["input"], got["node"])

	// input structure, arg_00 list, process, result
	assert.Equal(t, 4, countNodes(t, db))
}

func TestApplyChainAndTrace(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)

	resp, err := executeJSON(t, "apply", "--db", db, "--structure", water,
		"--op", "translate", "--args", "[[0, 0, 1]]")
	require.NoError(t, err)
	first := dataMap(t, resp)["node"].(string)

	resp, err = executeJSON(t, "apply", "--db", db, "--node", first,
		"--op", "repeat", "--args", "[[2, 1, 1]]")
	require.NoError(t, err)
	second := dataMap(t, resp)
	assert.Equal(t, "out-of-place", second["kind"])
	assert.Equal(t, first, second["input"])
	assert.Equal(t, "O2H4", second["formula"])
	supercell := second["node"].(string)

	resp, err = executeJSON(t, "trace", "--db", db, "--node", supercell)
	require.NoError(t, err)
	tr := dataMap(t, resp)
	assert.Equal(t, supercell, tr["node"])

	steps := tr["steps"].([]any)
	require.Len(t, steps, 2)
	translate := steps[0].(map[string]any)
	repeat := steps[1].(map[string]any)
	assert.Equal(t, "translate", translate["function"])
	assert.Equal(t, "finished", translate["state"])
	assert.Equal(t, first, translate["output"])
	assert.Equal(t, "repeat", repeat["function"])
	assert.Equal(t, supercell, repeat["output"])

	inputs := repeat["inputs"].(map[string]any)
	assert.Equal(t, first, inputs["node"])
	assert.Contains(t, inputs, "arg_00")

	stats := tr["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["processes"])
	assert.Equal(t, float64(0), stats["excepted"])

	out, err := execute(t, "trace", "--db", db, "--node", supercell)
	require.NoError(t, err)
	assert.Contains(t, out, "translate (finished)")
	assert.Contains(t, out, "repeat (finished)")
	assert.Contains(t, out, "<- node: "+first)
	assert.Contains(t, out, "-> "+supercell)
}

func TestApplyKwargsAndSlice(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)

	resp, err := executeJSON(t, "apply", "--db", db, "--structure", water,
		"--op", "rattle", "--kwargs", `{"stdev": 0.01, "seed": 7}`)
	require.NoError(t, err)
	node := dataMap(t, resp)["node"].(string)

	resp, err = executeJSON(t, "apply", "--db", db, "--node", node,
		"--op", "index_access", "--args", `[{"start": 1}]`)
	require.NoError(t, err)
	got := dataMap(t, resp)
	assert.Equal(t, "H2", got["formula"])
	assert.Equal(t, float64(2), got["natoms"])
}

func TestApplyUntracked(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)

	resp, err := executeJSON(t, "apply", "--db", db, "--structure", water,
		"--op", "center", "--no-track")
	require.NoError(t, err)

	got := dataMap(t, resp)
	assert.Equal(t, false, got["stored"])
	assert.NotContains(t, got, "node")
	assert.NotContains(t, got, "input")
	assert.Equal(t, 0, countNodes(t, db))
}

func TestApplyOutputDocument(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)
	outPath := filepath.Join(dir, "moved.json")

	out, err := execute(t, "apply", "--db", db, "--structure", water,
		"--op", "translate", "--args", "[[1, 0, 0]]", "-o", outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "translate (in-place)")
	assert.Contains(t, out, "Formula: OH2 (3 atoms)")
	assert.Contains(t, out, "Output:  "+outPath)

	loader, err := structure.NewLoader()
	require.NoError(t, err)
	doc, err := loader.LoadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"O", "H", "H"}, doc.Symbols)
	assert.InDelta(t, 1.0, doc.Positions[0][0], 1e-12)
}

func TestApplyOperationFailure(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)

	resp, err := executeJSON(t, "apply", "--db", db, "--structure", water,
		"--op", "pop", "--args", "[9]")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeOperation, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "atom index out of range")

	// The excepted call is still recorded: input, arg_00 and the process.
	assert.Equal(t, 3, countNodes(t, db))
}

func TestApplyCommandErrors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)
	bad := writeFile(t, dir, "bad.yaml", "symbols: []\npositions: []\n")

	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{
			name:     "unknown op",
			args:     []string{"--structure", water, "--op", "explode"},
			wantCode: ExitCommandError,
			wantMsg:  `unknown operation "explode"`,
		},
		{
			name:     "bad args json",
			args:     []string{"--structure", water, "--op", "translate", "--args", "[1,"},
			wantCode: ExitCommandError,
			wantMsg:  "invalid --args",
		},
		{
			name:     "reserved kwarg",
			args:     []string{"--structure", water, "--op", "rattle", "--kwargs", `{"node": 1}`},
			wantCode: ExitCommandError,
			wantMsg:  `kwarg "node" is reserved`,
		},
		{
			name:     "missing node",
			args:     []string{"--node", "does-not-exist", "--op", "center"},
			wantCode: ExitCommandError,
			wantMsg:  "node does-not-exist not found",
		},
		{
			name:     "missing structure file",
			args:     []string{"--structure", filepath.Join(dir, "nope.yaml"), "--op", "center"},
			wantCode: ExitCommandError,
			wantMsg:  "structure file not found",
		},
		{
			name:     "invalid structure",
			args:     []string{"--structure", bad, "--op", "center"},
			wantCode: ExitFailure,
			wantMsg:  "invalid structure document",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"apply", "--db", db}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestApplyStartFlagsExclusive(t *testing.T) {
	dir := t.TempDir()
	water := writeFile(t, dir, "water.yaml", waterYAML)

	_, err := execute(t, "apply", "--db", filepath.Join(dir, "prov.db"), "--op", "center")
	require.Error(t, err)

	_, err = execute(t, "apply", "--db", filepath.Join(dir, "prov.db"),
		"--structure", water, "--node", "x", "--op", "center")
	require.Error(t, err)
}

func TestShowCommand(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)

	resp, err := executeJSON(t, "apply", "--db", db, "--structure", water,
		"--op", "set_chemical_symbols", "--args", `[["N", "H", "H"]]`)
	require.NoError(t, err)
	node := dataMap(t, resp)["node"].(string)

	resp, err = executeJSON(t, "show", "--db", db, "--node", node)
	require.NoError(t, err)
	got := dataMap(t, resp)
	record := got["record"].(map[string]any)
	assert.Equal(t, "data.core.structure", record["node_type"])
	assert.Equal(t, node, record["uuid"])
	doc := got["structure"].(map[string]any)
	assert.Equal(t, []any{"N", "H", "H"}, doc["symbols"])

	out, err := execute(t, "show", "--db", db, "--node", node)
	require.NoError(t, err)
	assert.Contains(t, out, "data.core.structure "+node)
	assert.Contains(t, out, "symbols:")
}

func TestShowProcessNode(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "prov.db")
	water := writeFile(t, dir, "water.yaml", waterYAML)

	resp, err := executeJSON(t, "apply", "--db", db, "--structure", water,
		"--op", "translate", "--args", "[[0, 0, 1]]")
	require.NoError(t, err)
	node := dataMap(t, resp)["node"].(string)

	resp, err = executeJSON(t, "trace", "--db", db, "--node", node)
	require.NoError(t, err)
	steps := dataMap(t, resp)["steps"].([]any)
	require.Len(t, steps, 1)
	process := steps[0].(map[string]any)["process"].(string)

	out, err := execute(t, "show", "--db", db, "--node", process)
	require.NoError(t, err)
	assert.Contains(t, out, "process.calcfunction "+process)
	assert.Contains(t, out, "Label: translate")
	assert.Contains(t, out, "State: finished")
	assert.NotContains(t, out, "symbols:")
}

func TestShowAndTraceMissingNode(t *testing.T) {
	db := filepath.Join(t.TempDir(), "prov.db")

	for _, name := range []string{"show", "trace"} {
		t.Run(name, func(t *testing.T) {
			_, err := execute(t, name, "--db", db, "--node", "missing")
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), "node missing not found")
		})
	}
}
