package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/atomtrack/internal/atoms"
	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/engine"
	"github.com/roach88/atomtrack/internal/serialize"
)

// NodeInput is the link label of the receiver's structure node.
const NodeInput = "node"

var (
	// ErrUnknownOperation is returned by Apply for a name not in the table.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrReservedInput is returned when a keyword argument collides with
	// another input label.
	ErrReservedInput = errors.New("reserved input name")
)

// Tracker is a structure whose edits are recorded in the provenance graph.
//
// atoms and node always describe the same structure once an operation has
// returned. A Tracker is not safe for concurrent use.
type Tracker struct {
	engine     *engine.Engine
	serializer *serialize.Serializer

	atoms *atoms.Atoms
	node  *data.Structure
	track bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTracking enables or disables provenance recording. The default is on.
func WithTracking(track bool) Option {
	return func(t *Tracker) {
		t.track = track
	}
}

// WithAtoms supplies the in-memory structure for FromNode, skipping the
// conversion from the node. It is ignored by New.
func WithAtoms(a *atoms.Atoms) Option {
	return func(t *Tracker) {
		if t.atoms == nil {
			t.atoms = a
		}
	}
}

// WithSerializer sets the serializer used for operation arguments.
func WithSerializer(s *serialize.Serializer) Option {
	return func(t *Tracker) {
		t.serializer = s
	}
}

// New wraps a and takes ownership of it: later operations mutate a in place.
// A fresh unstored structure node is synthesized.
func New(eng *engine.Engine, a *atoms.Atoms, opts ...Option) (*Tracker, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil structure", atoms.ErrInvalidArgument)
	}
	t, err := newTracker(eng, opts)
	if err != nil {
		return nil, err
	}
	t.atoms = a
	t.node = data.NewStructure(a)
	return t, nil
}

// FromNode wraps an existing structure node. The in-memory structure is
// decoded from the node unless WithAtoms supplies it.
func FromNode(eng *engine.Engine, node *data.Structure, opts ...Option) (*Tracker, error) {
	if node == nil {
		return nil, fmt.Errorf("%w: nil structure node", atoms.ErrInvalidArgument)
	}
	t, err := newTracker(eng, opts)
	if err != nil {
		return nil, err
	}
	t.node = node
	if t.atoms == nil {
		if t.atoms, err = node.Atoms(); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func newTracker(eng *engine.Engine, opts []Option) (*Tracker, error) {
	if eng == nil {
		return nil, errors.New("tracker: nil engine")
	}
	t := &Tracker{engine: eng, track: true}
	for _, opt := range opts {
		opt(t)
	}
	if t.serializer == nil {
		t.serializer = serialize.New(nil)
	}
	return t, nil
}

// Atoms returns the current structure. In-place operations swap in an
// edited copy, so the pointer changes with every successful edit. Callers
// that modify it break the link between the structure and Node.
func (t *Tracker) Atoms() *atoms.Atoms { return t.atoms }

// Node returns the structure node for the current state.
func (t *Tracker) Node() *data.Structure { return t.node }

// Tracking reports whether operations are recorded.
func (t *Tracker) Tracking() bool { return t.track }

// Apply runs the named operation. In-place operations return t itself;
// out-of-place operations return a new Tracker.
//
// Errors from the structure library are returned unchanged.
func (t *Tracker) Apply(ctx context.Context, name string, args []any, kwargs ...Kwarg) (*Tracker, error) {
	op, ok := operations[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	call := Call{Args: args, Kwargs: kwargs}
	if op.kind == OutOfPlace {
		return t.applyOutOfPlace(ctx, name, op, call)
	}
	return t.applyInPlace(ctx, name, op, call)
}

// inputs serializes the arguments of call and adds the current node.
func (t *Tracker) inputs(call Call) (map[string]data.Data, error) {
	inputs := make(map[string]data.Data, len(call.Args)+len(call.Kwargs)+1)
	inputs[NodeInput] = t.node
	for i, v := range call.Args {
		inputs[fmt.Sprintf("arg_%02d", i)] = t.serializer.ToData(v)
	}
	for _, kw := range call.Kwargs {
		if _, taken := inputs[kw.Name]; taken {
			return nil, fmt.Errorf("%w: %q", ErrReservedInput, kw.Name)
		}
		inputs[kw.Name] = t.serializer.ToData(kw.Value)
	}
	return inputs, nil
}

// run executes core through the engine when tracking, or directly.
func (t *Tracker) run(ctx context.Context, name string, inputs map[string]data.Data, core engine.Func) (*data.Structure, error) {
	var out data.Data
	var err error
	if t.track {
		out, err = t.engine.CalcFunction(name, core).Call(ctx, inputs)
	} else {
		out, err = core(ctx, inputs)
	}
	if err != nil {
		return nil, err
	}
	return out.(*data.Structure), nil
}

// applyInPlace edits the structure inside the recorded call and, once the
// call has succeeded, replaces both the structure and the node.
func (t *Tracker) applyInPlace(ctx context.Context, name string, op operation, call Call) (*Tracker, error) {
	inputs, err := t.inputs(call)
	if err != nil {
		return nil, err
	}

	// The edit runs on a copy so a failed call leaves atoms and node in step.
	work := t.atoms.Copy()
	core := func(context.Context, map[string]data.Data) (data.Data, error) {
		b, err := bind(name, op, call)
		if err != nil {
			return nil, err
		}
		if err := op.mutate(work, b); err != nil {
			return nil, err
		}
		return data.NewStructure(work), nil
	}

	node, err := t.run(ctx, name, inputs, core)
	if err != nil {
		return nil, err
	}
	t.atoms, t.node = work, node

	slog.Debug("in-place operation applied",
		"op", name,
		"node", node.UUID(),
		"tracked", t.track,
	)
	return t, nil
}

// applyOutOfPlace derives a new structure from a fresh snapshot of the node,
// then records the derivation. The receiver is not modified.
func (t *Tracker) applyOutOfPlace(ctx context.Context, name string, op operation, call Call) (*Tracker, error) {
	snapshot, err := t.node.Atoms()
	if err != nil {
		return nil, err
	}
	inputs, err := t.inputs(call)
	if err != nil {
		return nil, err
	}

	b, err := bind(name, op, call)
	if err != nil {
		return nil, err
	}
	result, err := op.derive(snapshot, b)
	if err != nil {
		return nil, err
	}

	core := func(context.Context, map[string]data.Data) (data.Data, error) {
		return data.NewStructure(result), nil
	}
	node, err := t.run(ctx, name, inputs, core)
	if err != nil {
		return nil, err
	}

	slog.Debug("out-of-place operation applied",
		"op", name,
		"from", t.node.UUID(),
		"node", node.UUID(),
		"tracked", t.track,
	)
	return &Tracker{
		engine:     t.engine,
		serializer: t.serializer,
		atoms:      result,
		node:       node,
		track:      true,
	}, nil
}
