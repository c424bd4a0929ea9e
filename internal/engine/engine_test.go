package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/ir"
	"github.com/roach88/atomtrack/internal/store"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir + "/test.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// double returns 2*x for the Float input "x".
func double(_ context.Context, inputs map[string]data.Data) (data.Data, error) {
	x := inputs["x"].(*data.Float)
	return data.NewFloat(2 * x.Value()), nil
}

func TestEngine_New(t *testing.T) {
	s := setupTestStore(t)

	e := New(s)
	assert.NotNil(t, e.Clock())
	assert.Equal(t, int64(0), e.Clock().Current())

	c := NewClockAt(41)
	e = New(s, WithClock(c))
	assert.Same(t, c, e.Clock())
}

func TestEngine_Store(t *testing.T) {
	s := setupTestStore(t)
	e := New(s)
	ctx := context.Background()

	f := data.NewFloat(1.5)
	require.NoError(t, e.Store(ctx, f))
	assert.True(t, f.IsStored())
	assert.Equal(t, int64(1), f.Seq())

	// Storing again is a no-op and does not tick the clock
	require.NoError(t, e.Store(ctx, f))
	assert.Equal(t, int64(1), e.Clock().Current())

	rec, err := s.ReadNode(ctx, f.UUID())
	require.NoError(t, err)
	assert.Equal(t, ir.NodeFloat, rec.Type)
	assert.Equal(t, ir.IRFloat(1.5), rec.Attributes["value"])
}

func TestEngine_Store_Rejects(t *testing.T) {
	e := New(setupTestStore(t))
	ctx := context.Background()

	err := e.Store(ctx, nil)
	assert.True(t, HasCode(err, ErrCodeInvalidInput))

	err = e.Store(ctx, data.NewCalcFunction("f"))
	assert.True(t, HasCode(err, ErrCodeInvalidInput))

	err = e.Store(ctx, data.NewFloat(math.NaN()))
	assert.True(t, HasCode(err, ErrCodeInvalidInput))
	assert.ErrorIs(t, err, data.ErrInvalidAttributes)
}

func TestEngine_Load(t *testing.T) {
	e := New(setupTestStore(t))
	ctx := context.Background()

	d := data.NewDict(ir.IRObject{"k": ir.IRInt(3)})
	require.NoError(t, e.Store(ctx, d))

	loaded, err := e.Load(ctx, d.UUID())
	require.NoError(t, err)
	dict, ok := loaded.(*data.Dict)
	require.True(t, ok, "loaded %T, want *data.Dict", loaded)
	assert.Equal(t, d.UUID(), dict.UUID())
	assert.Equal(t, d.PK(), dict.PK())
	assert.Equal(t, map[string]any{"k": int64(3)}, dict.Value())

	_, err = e.Load(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestResume_ContinuesClock(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := New(s)
	require.NoError(t, first.Store(ctx, data.NewInt(1)))
	require.NoError(t, first.Store(ctx, data.NewInt(2)))

	second, err := Resume(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Clock().Current())

	n := data.NewInt(3)
	require.NoError(t, second.Store(ctx, n))
	assert.Equal(t, int64(3), n.Seq())
}

func TestCalcFunction_RecordsProvenance(t *testing.T) {
	s := setupTestStore(t)
	e := New(s)
	ctx := context.Background()

	x := data.NewFloat(1.25)
	out, err := e.CalcFunction("double", double).Call(ctx, map[string]data.Data{"x": x})
	require.NoError(t, err)

	assert.Equal(t, 2.5, out.(*data.Float).Value())
	assert.True(t, x.IsStored(), "input should be stored")
	assert.True(t, out.Base().IsStored(), "output should be stored")

	// seq: input, process, output
	assert.Equal(t, int64(1), x.Seq())
	assert.Equal(t, int64(3), out.Base().Seq())

	incoming, err := s.ReadIncoming(ctx, out.Base().UUID())
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	proc := incoming[0]
	assert.Equal(t, ir.LinkCreate, proc.Link.Type)
	assert.Equal(t, ir.ResultLabel, proc.Link.Label)
	assert.Equal(t, ir.NodeCalcFunction, proc.Node.Type)
	assert.Equal(t, "double", proc.Node.Label)
	assert.Equal(t, ir.ProcessFinished, proc.Node.ProcessState)
	assert.Equal(t, int64(2), proc.Node.Seq)

	inputs, err := s.ReadIncoming(ctx, proc.Node.UUID)
	require.NoError(t, err)
	require.Len(t, inputs, 1)
	assert.Equal(t, x.UUID(), inputs[0].Node.UUID)
	assert.Equal(t, ir.LinkInputCalc, inputs[0].Link.Type)
	assert.Equal(t, "x", inputs[0].Link.Label)
}

func TestCalcFunction_SharedInputStoredOnce(t *testing.T) {
	s := setupTestStore(t)
	e := New(s)
	ctx := context.Background()

	add := func(_ context.Context, in map[string]data.Data) (data.Data, error) {
		return data.NewFloat(in["a"].(*data.Float).Value() + in["b"].(*data.Float).Value()), nil
	}

	x := data.NewFloat(2)
	_, err := e.CalcFunction("add", add).Call(ctx, map[string]data.Data{"a": x, "b": x})
	require.NoError(t, err)

	nodes, err := s.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, nodes, "input, process, output")

	links, err := s.CountLinks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, links, "two input_calc links with distinct labels plus create")
}

func TestCalcFunction_StoredInputIsReused(t *testing.T) {
	s := setupTestStore(t)
	e := New(s)
	ctx := context.Background()

	x := data.NewFloat(1)
	require.NoError(t, e.Store(ctx, x))
	pk := x.PK()

	_, err := e.CalcFunction("double", double).Call(ctx, map[string]data.Data{"x": x})
	require.NoError(t, err)
	assert.Equal(t, pk, x.PK())

	nodes, err := s.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, nodes)
}

var errBoom = errors.New("boom")

func TestCalcFunction_ExceptedProcess(t *testing.T) {
	s := setupTestStore(t)
	e := New(s)
	ctx := context.Background()

	fail := func(context.Context, map[string]data.Data) (data.Data, error) {
		return nil, errBoom
	}

	x := data.NewFloat(1)
	out, err := e.CalcFunction("explode", fail).Call(ctx, map[string]data.Data{"x": x})
	assert.Nil(t, out)
	assert.Same(t, errBoom, err, "function error must be returned unchanged")

	outgoing, err := s.ReadOutgoing(ctx, x.UUID())
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	proc := outgoing[0].Node
	assert.Equal(t, ir.ProcessExcepted, proc.ProcessState)
	assert.Equal(t, "boom", proc.ExceptionText)

	created, err := s.ReadOutgoing(ctx, proc.UUID)
	require.NoError(t, err)
	assert.Empty(t, created, "excepted process creates nothing")
}

func TestCalcFunction_InvalidInputs(t *testing.T) {
	e := New(setupTestStore(t))
	ctx := context.Background()
	cf := e.CalcFunction("double", double)

	tests := map[string]map[string]data.Data{
		"nil node":     {"x": nil},
		"empty label":  {"": data.NewFloat(1)},
		"process node": {"x": data.NewCalcFunction("other")},
	}
	for name, inputs := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := cf.Call(ctx, inputs)
			assert.True(t, HasCode(err, ErrCodeInvalidInput), "got %v", err)
		})
	}
}

func TestCalcFunction_InvalidOutputs(t *testing.T) {
	s := setupTestStore(t)
	e := New(s)
	ctx := context.Background()

	stored := data.NewInt(1)
	require.NoError(t, e.Store(ctx, stored))

	tests := map[string]Func{
		"nil": func(context.Context, map[string]data.Data) (data.Data, error) { return nil, nil },
		"stored": func(context.Context, map[string]data.Data) (data.Data, error) {
			return stored, nil
		},
		"process": func(context.Context, map[string]data.Data) (data.Data, error) {
			return data.NewCalcFunction("inner"), nil
		},
	}
	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := e.CalcFunction(name, fn).Call(ctx, nil)
			assert.True(t, HasCode(err, ErrCodeInvalidOutput), "got %v", err)
		})
	}

	nodes, err := s.CountNodes(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, nodes, "rejected outputs leave no trace")
}

func TestCalcFunction_Metrics(t *testing.T) {
	m := NewMetrics("atomtrack")
	e := New(setupTestStore(t), WithMetrics(m))
	ctx := context.Background()

	_, err := e.CalcFunction("double", double).Call(ctx, map[string]data.Data{"x": data.NewFloat(1)})
	require.NoError(t, err)
	_, err = e.CalcFunction("double", func(context.Context, map[string]data.Data) (data.Data, error) {
		return nil, errBoom
	}).Call(ctx, map[string]data.Data{"x": data.NewFloat(1)})
	require.ErrorIs(t, err, errBoom)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("double", "finished")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.calls.WithLabelValues("double", "excepted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.nodesStored.WithLabelValues(string(ir.NodeFloat))))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.nodesStored.WithLabelValues(string(ir.NodeCalcFunction))))
	assert.NotNil(t, m.Registry())
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.recordCall("f", "finished", 0)
		m.recordStored("x")
		m.recordStoreError()
	})
	assert.Nil(t, m.Registry())
}
