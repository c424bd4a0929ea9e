package data

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomtrack/internal/atoms"
	"github.com/roach88/atomtrack/internal/ir"
)

func h2(t *testing.T) *atoms.Atoms {
	t.Helper()
	a, err := atoms.New([]string{"H", "H"}, []atoms.Vec3{{0, 0, 0}, {0, 0, 0.74}},
		atoms.WithCell(atoms.CellFromLengths(5, 5, 5)), atoms.WithPBC([3]bool{true, false, true}))
	require.NoError(t, err)
	return a
}

func TestNewNode_AssignsUUIDv7(t *testing.T) {
	n := NewInt(1)
	id, err := uuid.Parse(n.UUID())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	assert.False(t, n.IsStored())
	assert.Zero(t, n.PK())
	assert.NotEqual(t, n.UUID(), NewInt(1).UUID(), "every node gets its own UUID")
}

func TestScalars(t *testing.T) {
	assert.Equal(t, 1.5, NewFloat(1.5).Value())
	assert.Equal(t, int64(-3), NewInt(-3).Value())
	assert.Equal(t, "hi", NewStr("hi").Value())

	assert.Equal(t, ir.NodeFloat, NewFloat(0).Type())
	assert.Equal(t, ir.IRObject{"value": ir.IRString("hi")}, NewStr("hi").Attributes())
}

func TestDict(t *testing.T) {
	src := ir.IRObject{"b": ir.IRInt(2), "a": ir.IRInt(1)}
	d := NewDict(src)
	src["c"] = ir.IRInt(3)

	assert.Equal(t, []string{"a", "b"}, d.Keys(), "dict copies its input")
	v, ok := d.Get("a")
	require.True(t, ok)
	assert.Equal(t, ir.IRInt(1), v)
	assert.Equal(t, map[string]any{"a": int64(1), "b": int64(2)}, d.Value())
}

func TestList(t *testing.T) {
	l := NewList(ir.IRArray{ir.IRInt(1), ir.IRString("x")})
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, []any{int64(1), "x"}, l.Value())

	assert.Equal(t, 0, NewList(nil).Len())
	assert.Equal(t, ir.IRObject{"list": ir.IRArray{}}, NewList(nil).Attributes())
}

func TestNDArray(t *testing.T) {
	arr, err := NewNDArray([]int{2, 2}, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, 4, arr.Size())

	_, err = NewNDArray([]int{2, 3}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrShape)
	_, err = NewNDArray([]int{-1}, nil)
	assert.ErrorIs(t, err, ErrShape)
}

func TestArray_RoundTrip(t *testing.T) {
	arr, err := NewNDArray([]int{2, 2}, []float64{1, 2, 3, 4.5})
	require.NoError(t, err)

	node := NewArray(DefaultArrayName, arr)
	assert.Equal(t, []string{"array"}, node.Names())

	got, err := node.Get(DefaultArrayName)
	require.NoError(t, err)
	assert.Equal(t, arr, got)

	_, err = node.Get("missing")
	assert.ErrorIs(t, err, ErrInvalidAttributes)
}

func TestStructure_RoundTrip(t *testing.T) {
	a := h2(t)
	s := NewStructure(a)

	back, err := s.Atoms()
	require.NoError(t, err)
	assert.True(t, a.Equal(back))
	assert.Equal(t, a.PBC(), back.PBC())
	assert.False(t, back.HasExplicitMasses())
	assert.Equal(t, "H2", s.Formula())
}

func TestStructure_AtomsIsSnapshot(t *testing.T) {
	s := NewStructure(h2(t))

	first, err := s.Atoms()
	require.NoError(t, err)
	first.Translate(atoms.Vec3{1, 0, 0})

	second, err := s.Atoms()
	require.NoError(t, err)
	assert.Equal(t, atoms.Vec3{0, 0, 0}, second.Positions()[0])
}

func TestStructure_DetachedFromSource(t *testing.T) {
	a := h2(t)
	s := NewStructure(a)
	a.Translate(atoms.Vec3{1, 0, 0})

	back, err := s.Atoms()
	require.NoError(t, err)
	assert.Equal(t, atoms.Vec3{0, 0, 0}, back.Positions()[0])
}

func TestStructure_KindsFollowMasses(t *testing.T) {
	a := h2(t)
	require.NoError(t, a.SetMasses([]float64{1.008, 2.014}))
	s := NewStructure(a)

	kinds := s.Attributes()["kinds"].(ir.IRArray)
	require.Len(t, kinds, 2)
	assert.Equal(t, ir.IRString("H"), kinds[0].(ir.IRObject)["name"])
	assert.Equal(t, ir.IRString("H1"), kinds[1].(ir.IRObject)["name"])

	back, err := s.Atoms()
	require.NoError(t, err)
	assert.True(t, back.HasExplicitMasses())
	assert.Equal(t, []float64{1.008, 2.014}, back.Masses())
}

func TestStructure_SharedKind(t *testing.T) {
	s := NewStructure(h2(t))
	kinds := s.Attributes()["kinds"].(ir.IRArray)
	sites := s.Attributes()["sites"].(ir.IRArray)
	assert.Len(t, kinds, 1)
	assert.Len(t, sites, 2)
	assert.Equal(t, ir.IRString("H"), sites[1].(ir.IRObject)["kind_name"])
}

func TestStructure_InvalidAttributes(t *testing.T) {
	rec := ir.NodeRecord{UUID: "u", Type: ir.NodeStructure, PK: 1, Attributes: ir.IRObject{"cell": ir.IRArray{}}}
	d, err := FromRecord(rec)
	require.NoError(t, err)

	_, err = d.(*Structure).Atoms()
	assert.ErrorIs(t, err, ErrInvalidAttributes)
	assert.Equal(t, "", d.(*Structure).Formula())
}

func TestRecord(t *testing.T) {
	f := NewFloat(1.5)
	rec, err := f.Record()
	require.NoError(t, err)

	assert.Equal(t, f.UUID(), rec.UUID)
	assert.Equal(t, ir.NodeFloat, rec.Type)
	assert.Equal(t, ir.MustNodeHash(ir.NodeFloat, ir.IRObject{"value": ir.IRFloat(1.5)}), rec.Hash)
	assert.Zero(t, rec.PK)
}

func TestRecord_RejectsNonFinite(t *testing.T) {
	_, err := NewFloat(math.Inf(1)).Record()
	assert.ErrorIs(t, err, ErrInvalidAttributes)
}

func TestFromRecord(t *testing.T) {
	for _, d := range []Data{
		NewDict(ir.IRObject{"a": ir.IRInt(1)}),
		NewList(ir.IRArray{ir.IRInt(1)}),
		NewFloat(2),
		NewInt(3),
		NewStr("s"),
		NewArray("array", Vector(1, 2)),
		NewStructure(h2(t)),
		NewCalcFunction("translate"),
	} {
		rec, err := d.Record()
		require.NoError(t, err)
		rec.PK, rec.Seq = 9, 4

		got, err := FromRecord(rec)
		require.NoError(t, err)
		assert.IsType(t, d, got)
		assert.Equal(t, d.Base().UUID(), got.Base().UUID())
		assert.Equal(t, d.Base().Attributes(), got.Base().Attributes())
		assert.True(t, got.Base().IsStored())
		assert.Equal(t, int64(4), got.Base().Seq())
	}

	_, err := FromRecord(ir.NodeRecord{Type: "data.core.bool"})
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestCalcFunction(t *testing.T) {
	c := NewCalcFunction("rotate")
	assert.Equal(t, "rotate", c.Label())
	assert.Equal(t, "rotate", c.FunctionName())
	assert.Equal(t, ir.ProcessState(""), c.State())

	require.NoError(t, c.SetExcepted(errors.New("boom")))
	rec, err := c.Record()
	require.NoError(t, err)
	assert.Equal(t, ir.ProcessExcepted, rec.ProcessState)
	assert.Equal(t, "boom", rec.ExceptionText)

	require.NoError(t, c.SetFinished())
	assert.Equal(t, ir.ProcessFinished, c.State())
	assert.Empty(t, c.Exception())

	c.MarkStored(1, 1)
	assert.ErrorIs(t, c.SetFinished(), ErrImmutable)
	assert.ErrorIs(t, c.SetLabel("x"), ErrImmutable)
}
