package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/ir"
	"github.com/roach88/atomtrack/internal/store"
)

// Engine writes data nodes and calcfunction provenance to a store.
//
// Calls are synchronous: CalcFunction.Call returns once the provenance is
// committed. The engine holds no per-call state, so a single Engine may be
// shared by any number of trackers.
type Engine struct {
	store   *store.Store
	clock   *Clock
	metrics *Metrics
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithClock sets the logical clock. Tests use a clock at a known position to
// get predictable seq values.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithMetrics enables Prometheus metrics.
func WithMetrics(m *Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// New creates an Engine writing to s with a clock starting at 0.
// Use Resume for a store that may already hold nodes.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store: s,
		clock: NewClock(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Resume creates an Engine whose clock continues after the highest seq in s,
// so new nodes always sort after existing ones. A WithClock option wins.
func Resume(ctx context.Context, s *store.Store, opts ...EngineOption) (*Engine, error) {
	seq, err := s.MaxSeq(ctx)
	if err != nil {
		return nil, newStoreError("read max seq", "", "", err)
	}
	return New(s, append([]EngineOption{WithClock(NewClockAt(seq))}, opts...)...), nil
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Store persists an unstored data node. Storing an already stored node is a
// no-op, which makes the call idempotent.
func (e *Engine) Store(ctx context.Context, d data.Data) error {
	if d == nil {
		return &RuntimeError{Code: ErrCodeInvalidInput, Message: "cannot store a nil node"}
	}
	n := d.Base()
	if n.IsStored() {
		return nil
	}
	if n.Type().IsProcess() {
		return &RuntimeError{
			Code:     ErrCodeInvalidInput,
			Message:  "process nodes are stored by CalcFunction.Call",
			NodeUUID: n.UUID(),
		}
	}

	rec, err := d.Record()
	if err != nil {
		return &RuntimeError{Code: ErrCodeInvalidInput, Message: "encode node", NodeUUID: n.UUID(), Err: err}
	}
	rec.Seq = e.clock.Next()

	pk, inserted, err := e.store.WriteNode(ctx, rec)
	if err != nil {
		e.metrics.recordStoreError()
		return newStoreError("write node", "", rec.UUID, err)
	}
	if !inserted {
		// Another handle already wrote this UUID; adopt its identity.
		existing, err := e.store.ReadNode(ctx, rec.UUID)
		if err != nil {
			return newStoreError("read existing node", "", rec.UUID, err)
		}
		rec.Seq = existing.Seq
	}
	n.MarkStored(pk, rec.Seq)
	e.metrics.recordStored(string(rec.Type))

	slog.Debug("node stored",
		"uuid", rec.UUID,
		"type", rec.Type,
		"seq", rec.Seq,
	)
	return nil
}

// Load reads a stored node and rebuilds its typed container.
// A missing UUID yields a RuntimeError with ErrCodeNodeNotFound.
func (e *Engine) Load(ctx context.Context, uuid string) (data.Data, error) {
	rec, err := e.store.ReadNode(ctx, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &RuntimeError{Code: ErrCodeNodeNotFound, Message: "no such node", NodeUUID: uuid, Err: err}
	}
	if err != nil {
		return nil, newStoreError("read node", "", uuid, err)
	}
	d, err := data.FromRecord(rec)
	if err != nil {
		return nil, fmt.Errorf("load node %s: %w", uuid, err)
	}
	return d, nil
}

// Func is the body of a calcfunction. inputs holds every input by its link
// label. The returned node must be new and unstored.
type Func func(ctx context.Context, inputs map[string]data.Data) (data.Data, error)

// CalcFunction is a function whose calls are recorded in the provenance graph.
type CalcFunction struct {
	engine *Engine
	name   string
	fn     Func
}

// CalcFunction wraps fn under the given name. The name becomes the label of
// every process node the wrapper records.
func (e *Engine) CalcFunction(name string, fn Func) *CalcFunction {
	return &CalcFunction{engine: e, name: name, fn: fn}
}

// Name returns the function name.
func (c *CalcFunction) Name() string {
	return c.name
}

// Call runs the function and records the calculation.
//
// On success the unstored inputs, the process node, the output and all links
// are written in one transaction and the stored output is returned.
//
// If the function fails, the inputs and an excepted process node are written
// and the function's error is returned unchanged, so errors.Is and errors.As
// keep working for the caller. A store failure on that path is logged.
func (c *CalcFunction) Call(ctx context.Context, inputs map[string]data.Data) (data.Data, error) {
	e := c.engine
	start := time.Now()

	keys, err := c.checkInputs(inputs)
	if err != nil {
		return nil, err
	}

	slog.Debug("calcfunction starting",
		"function", c.name,
		"inputs", len(inputs),
	)

	proc := data.NewCalcFunction(c.name)
	out, fnErr := c.fn(ctx, inputs)

	if fnErr != nil {
		_ = proc.SetExcepted(fnErr)
		if err := c.record(ctx, proc, keys, inputs, nil); err != nil {
			slog.Error("failed to record excepted calcfunction",
				"function", c.name,
				"process", proc.UUID(),
				"error", err,
			)
		}
		e.metrics.recordCall(c.name, string(ir.ProcessExcepted), time.Since(start))
		slog.Info("calcfunction excepted",
			"function", c.name,
			"process", proc.UUID(),
			"error", fnErr,
		)
		return nil, fnErr
	}

	if out == nil {
		return nil, &RuntimeError{Code: ErrCodeInvalidOutput, Message: "function returned no node", Function: c.name}
	}
	if out.Base().IsStored() {
		return nil, &RuntimeError{
			Code:     ErrCodeInvalidOutput,
			Message:  "function returned an already stored node",
			Function: c.name,
			NodeUUID: out.Base().UUID(),
		}
	}
	if out.Base().Type().IsProcess() {
		return nil, &RuntimeError{Code: ErrCodeInvalidOutput, Message: "function returned a process node", Function: c.name}
	}

	_ = proc.SetFinished()
	if err := c.record(ctx, proc, keys, inputs, out); err != nil {
		return nil, err
	}
	e.metrics.recordCall(c.name, string(ir.ProcessFinished), time.Since(start))

	slog.Info("calcfunction finished",
		"function", c.name,
		"process", proc.UUID(),
		"output", out.Base().UUID(),
		"seq", out.Base().Seq(),
	)
	return out, nil
}

// checkInputs validates the inputs and returns their labels in sorted order.
func (c *CalcFunction) checkInputs(inputs map[string]data.Data) ([]string, error) {
	keys := make([]string, 0, len(inputs))
	for k, d := range inputs {
		if k == "" {
			return nil, newInputError(c.name, k, "empty link label")
		}
		if d == nil {
			return nil, newInputError(c.name, k, "nil node")
		}
		if d.Base().Type().IsProcess() {
			return nil, newInputError(c.name, k, "process nodes cannot be inputs")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// record writes one calculation. out is nil for an excepted process.
// Seq values are assigned inputs first (in label order), then the process,
// then the output.
func (c *CalcFunction) record(ctx context.Context, proc *data.CalcFunction, keys []string, inputs map[string]data.Data, out data.Data) error {
	e := c.engine

	var (
		calc    store.Calculation
		pending []data.Data
		seen    = make(map[string]bool)
	)
	add := func(d data.Data) error {
		n := d.Base()
		if n.IsStored() || seen[n.UUID()] {
			return nil
		}
		seen[n.UUID()] = true
		rec, err := d.Record()
		if err != nil {
			return &RuntimeError{Code: ErrCodeInvalidInput, Message: "encode node", Function: c.name, NodeUUID: n.UUID(), Err: err}
		}
		rec.Seq = e.clock.Next()
		calc.Nodes = append(calc.Nodes, rec)
		pending = append(pending, d)
		return nil
	}

	for _, k := range keys {
		if err := add(inputs[k]); err != nil {
			return err
		}
	}
	if err := add(proc); err != nil {
		return err
	}
	if out != nil {
		if err := add(out); err != nil {
			return err
		}
	}

	for _, k := range keys {
		calc.Links = append(calc.Links, ir.Link{
			InputUUID:  inputs[k].Base().UUID(),
			OutputUUID: proc.UUID(),
			Type:       ir.LinkInputCalc,
			Label:      k,
		})
	}
	if out != nil {
		calc.Links = append(calc.Links, ir.Link{
			InputUUID:  proc.UUID(),
			OutputUUID: out.Base().UUID(),
			Type:       ir.LinkCreate,
			Label:      ir.ResultLabel,
		})
	}

	pks, err := e.store.WriteCalculation(ctx, calc)
	if err != nil {
		e.metrics.recordStoreError()
		return newStoreError("write calculation", c.name, proc.UUID(), err)
	}

	for i, d := range pending {
		d.Base().MarkStored(pks[calc.Nodes[i].UUID], calc.Nodes[i].Seq)
		e.metrics.recordStored(string(calc.Nodes[i].Type))
	}
	return nil
}
