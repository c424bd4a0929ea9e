package tracker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/roach88/atomtrack/internal/atoms"
	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/engine"
	"github.com/roach88/atomtrack/internal/ir"
	"github.com/roach88/atomtrack/internal/serialize"
	"github.com/roach88/atomtrack/internal/store"
)

// ReplayStep is one recorded calcfunction run again.
type ReplayStep struct {
	Seq      int64  `json:"seq"`
	Process  string `json:"process"`
	Function string `json:"function"`
	Output   string `json:"output"`
	Recorded string `json:"recorded_hash"`
	Replayed string `json:"replayed_hash,omitempty"`
	Match    bool   `json:"match"`
	Error    string `json:"error,omitempty"`
}

// ReplayResult compares the recorded history of a node with a fresh run.
type ReplayResult struct {
	Node          string       `json:"node"`
	Steps         []ReplayStep `json:"steps"`
	Deterministic bool         `json:"deterministic"`
}

// Replay re-applies every finished calcfunction upstream of uuid, oldest
// first, and compares each result's hash with the recorded output node.
// Structure inputs produced by an earlier replayed step use the replayed
// structure, so a divergence propagates down the chain.
//
// Nothing is written: the operations run untracked. Arguments are decoded
// from their stored nodes, so values that were stored as text fallbacks
// (slices, for example) cannot be replayed and show up as step errors.
func Replay(ctx context.Context, st *store.Store, uuid string) (*ReplayResult, error) {
	tr, err := st.ReadTrace(ctx, uuid)
	if err != nil {
		return nil, err
	}

	records := make(map[string]ir.NodeRecord, len(tr.Ancestors)+1)
	records[tr.Node.UUID] = tr.Node
	for _, rec := range tr.Ancestors {
		records[rec.UUID] = rec
	}

	inputs := make(map[string]map[string]string)
	outputs := make(map[string]string)
	for _, l := range tr.Links {
		switch l.Type {
		case ir.LinkInputCalc:
			if inputs[l.OutputUUID] == nil {
				inputs[l.OutputUUID] = make(map[string]string)
			}
			inputs[l.OutputUUID][l.Label] = l.InputUUID
		case ir.LinkCreate:
			outputs[l.InputUUID] = l.OutputUUID
		}
	}

	var procs []ir.NodeRecord
	for _, rec := range records {
		if rec.Type.IsProcess() && rec.ProcessState == ir.ProcessFinished {
			procs = append(procs, rec)
		}
	}
	sort.Slice(procs, func(i, j int) bool { return procs[i].Seq < procs[j].Seq })

	r := &replayer{
		engine:   engine.New(st),
		records:  records,
		replayed: make(map[string]*atoms.Atoms),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	result := &ReplayResult{Node: uuid, Steps: []ReplayStep{}, Deterministic: true}
	for _, p := range procs {
		step := ReplayStep{
			Seq:      p.Seq,
			Process:  p.UUID,
			Function: p.Label,
			Output:   outputs[p.UUID],
			Recorded: records[outputs[p.UUID]].Hash,
		}
		a, err := r.call(ctx, p.Label, inputs[p.UUID])
		if err == nil {
			step.Replayed, err = data.NewStructure(a).Hash()
		}
		if err != nil {
			step.Error = err.Error()
		} else {
			step.Match = step.Replayed == step.Recorded
			r.replayed[step.Output] = a
		}
		if !step.Match {
			result.Deterministic = false
		}

		slog.Debug("calcfunction replayed",
			"function", step.Function,
			"process", step.Process,
			"match", step.Match,
		)
		result.Steps = append(result.Steps, step)
	}
	return result, nil
}

type replayer struct {
	engine   *engine.Engine
	records  map[string]ir.NodeRecord
	replayed map[string]*atoms.Atoms
	logger   *slog.Logger
}

// call rebuilds and runs one recorded operation.
func (r *replayer) call(ctx context.Context, name string, inputs map[string]string) (*atoms.Atoms, error) {
	if _, ok := operations[name]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	start, err := r.structure(inputs[NodeInput])
	if err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(inputs))
	for label := range inputs {
		if label != NodeInput {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	var call Call
	for _, label := range labels {
		d, err := r.decode(inputs[label])
		if err != nil {
			return nil, err
		}
		v, err := nativeValue(d)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", label, err)
		}
		if strings.HasPrefix(label, "arg_") {
			call.Args = append(call.Args, v)
		} else {
			call.Kwargs = append(call.Kwargs, KW(label, v))
		}
	}

	t, err := New(r.engine, start, WithTracking(false), WithSerializer(serialize.New(r.logger)))
	if err != nil {
		return nil, err
	}
	out, err := t.Apply(ctx, name, call.Args, call.Kwargs...)
	if err != nil {
		return nil, err
	}
	return out.Atoms(), nil
}

// structure returns a private copy of the input structure, preferring the
// replayed version when the node was produced earlier in the chain.
func (r *replayer) structure(uuid string) (*atoms.Atoms, error) {
	if uuid == "" {
		return nil, fmt.Errorf("process has no %q input", NodeInput)
	}
	if a, ok := r.replayed[uuid]; ok {
		return a.Copy(), nil
	}
	d, err := r.decode(uuid)
	if err != nil {
		return nil, err
	}
	s, ok := d.(*data.Structure)
	if !ok {
		return nil, fmt.Errorf("input %q is a %s, not a structure", NodeInput, d.Base().Type())
	}
	return s.Atoms()
}

func (r *replayer) decode(uuid string) (data.Data, error) {
	rec, ok := r.records[uuid]
	if !ok {
		return nil, fmt.Errorf("node %s is not part of the trace", uuid)
	}
	return data.FromRecord(rec)
}

// nativeValue turns a stored argument back into an operation argument.
func nativeValue(d data.Data) (any, error) {
	switch v := d.(type) {
	case *data.Float:
		return v.Value(), nil
	case *data.Int:
		return v.Value(), nil
	case *data.Str:
		return v.Value(), nil
	case *data.List:
		return v.Value(), nil
	case *data.Dict:
		return v.Value(), nil
	case *data.Structure:
		return v.Atoms()
	case *data.Array:
		names := v.Names()
		if len(names) != 1 {
			return nil, fmt.Errorf("array node holds %d arrays", len(names))
		}
		arr, err := v.Get(names[0])
		if err != nil {
			return nil, err
		}
		return nestedArray(arr.Shape, arr.Data), nil
	}
	return nil, fmt.Errorf("cannot replay a %s input", d.Base().Type())
}

// nestedArray rebuilds row-major data as nested lists.
func nestedArray(shape []int, values []float64) any {
	if len(shape) == 0 {
		if len(values) == 0 {
			return nil
		}
		return values[0]
	}
	out := make([]any, shape[0])
	if shape[0] == 0 {
		return out
	}
	stride := len(values) / shape[0]
	for i := range out {
		out[i] = nestedArray(shape[1:], values[i*stride:(i+1)*stride])
	}
	return out
}
