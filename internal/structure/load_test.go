package structure

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomtrack/internal/atoms"
)

const waterYAML = `label: water
symbols: [O, H, H]
positions:
  - [0, 0, 0]
  - [0.7572, 0.5865, 0]
  - [-0.7572, 0.5865, 0]
cell: [8, 8, 8]
pbc: true
`

const waterJSON = `{
  "symbols": ["O", "H", "H"],
  "positions": [[0, 0, 0], [0.7572, 0.5865, 0], [-0.7572, 0.5865, 0]],
  "cell": [[8, 0, 0], [0, 8, 0], [0, 0, 8]],
  "pbc": [true, true, true]
}`

const waterCUE = `
label:     "water"
symbols:   ["O", "H", "H"]
positions: [[0, 0, 0], [0.7572, 0.5865, 0], [-0.7572, 0.5865, 0]]
cell:      [8, 8, 8, 90, 90, 90]
pbc:       true
`

func newLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	require.NoError(t, err)
	return l
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Formats(t *testing.T) {
	tests := []struct {
		name string
		file string
		src  string
	}{
		{"yaml", "water.yaml", waterYAML},
		{"json", "water.json", waterJSON},
		{"cue", "water.cue", waterCUE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := newLoader(t).LoadFile(writeFile(t, tt.file, tt.src))
			require.NoError(t, err)
			assert.Equal(t, []string{"O", "H", "H"}, doc.Symbols)
			assert.Equal(t, []bool{true, true, true}, doc.PBC)

			a, err := doc.Atoms()
			require.NoError(t, err)
			assert.Equal(t, "OH2", a.Formula())
			assert.Equal(t, atoms.Vec3{0.7572, 0.5865, 0}, a.Positions()[1])
			assert.InDelta(t, 8, a.Cell()[2][2], 1e-12)
			assert.Equal(t, [3]bool{true, true, true}, a.PBC())
		})
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing symbols", `positions: [[0, 0, 0]]`},
		{"empty symbols", "symbols: []\npositions: []"},
		{"short position", "symbols: [H]\npositions: [[0, 0]]"},
		{"unknown field", "symbols: [H]\npositions: [[0, 0, 0]]\ncharge: 1"},
		{"negative mass", "symbols: [H]\npositions: [[0, 0, 0]]\nmasses: [-1]"},
		{"two pbc flags", "symbols: [H]\npositions: [[0, 0, 0]]\npbc: [true, false]"},
		{"string position", "symbols: [H]\npositions: [[a, 0, 0]]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader(t).Load("doc.yaml", []byte(tt.src))
			var invalid *InvalidError
			require.ErrorAs(t, err, &invalid)
			assert.NotEmpty(t, invalid.Problems)
			assert.Equal(t, "doc.yaml", invalid.File)
		})
	}
}

func TestLoad_LengthMismatch(t *testing.T) {
	_, err := newLoader(t).Load("doc.json", []byte(`{"symbols": ["H", "H"], "positions": [[0, 0, 0]]}`))
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Contains(t, invalid.Error(), "eqlen_symbols")
}

func TestLoad_CUEPositions(t *testing.T) {
	_, err := newLoader(t).Load("bad.cue", []byte("symbols: [\"H\"]\npositions: [[0, 0, \"z\"]]\n"))
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "bad.cue", invalid.Problems[0].File)
}

func TestLoad_Errors(t *testing.T) {
	l := newLoader(t)

	_, err := l.Load("water.xyz", []byte(waterYAML))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.Load("doc.json", []byte(`{"symbols": [`))
	assert.Error(t, err)

	_, err = l.Load("doc.yaml", nil)
	var invalid *InvalidError
	assert.ErrorAs(t, err, &invalid)

	_, err = l.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDocument_UnknownElement(t *testing.T) {
	doc, err := newLoader(t).Load("doc.yaml", []byte("symbols: [Xx]\npositions: [[0, 0, 0]]"))
	require.NoError(t, err)
	_, err = doc.Atoms()
	assert.ErrorIs(t, err, atoms.ErrUnknownElement)
}

func TestFromAtoms_RoundTrip(t *testing.T) {
	l := newLoader(t)
	doc, err := l.Load("water.yaml", []byte(waterYAML))
	require.NoError(t, err)
	a, err := doc.Atoms()
	require.NoError(t, err)
	require.NoError(t, a.SetMasses([]float64{16, 2, 2}))

	for _, ext := range []string{".yaml", ".json"} {
		t.Run(ext, func(t *testing.T) {
			out, err := Marshal(FromAtoms(a), ext)
			require.NoError(t, err)

			back, err := l.Load("out"+ext, out)
			require.NoError(t, err)
			b, err := back.Atoms()
			require.NoError(t, err)
			assert.True(t, a.Equal(b))
			assert.Equal(t, []float64{16, 2, 2}, b.Masses())
		})
	}

	_, err = Marshal(FromAtoms(a), ".cue")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
