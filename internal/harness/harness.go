package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/atomtrack/internal/atoms"
	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/engine"
	"github.com/roach88/atomtrack/internal/ir"
	"github.com/roach88/atomtrack/internal/serialize"
	"github.com/roach88/atomtrack/internal/store"
	"github.com/roach88/atomtrack/internal/structure"
	"github.com/roach88/atomtrack/internal/tracker"
)

// Harness is the test execution engine.
// It applies scenario steps to named trackers over a private store.
type Harness struct {
	store    *store.Store
	engine   *engine.Engine
	loader   *structure.Loader
	logger   *slog.Logger
	trackers map[string]*tracker.Tracker
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with the
// engine clock starting at 0 so seq values are reproducible.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Load the structure into the "main" tracker
// 3. Apply steps in order, checking expected errors
// 4. Evaluate assertions against the final state
//
// The returned error is reserved for scenarios that cannot start; step and
// assertion failures are reported in the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	loader, err := structure.NewLoader()
	if err != nil {
		return nil, err
	}

	h := &Harness{
		store:    st,
		engine:   engine.New(st),
		loader:   loader,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress serializer warnings
		trackers: make(map[string]*tracker.Tracker),
	}

	initial, err := h.loadStructure(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load structure: %w", err)
	}
	t, err := tracker.New(h.engine, initial,
		tracker.WithTracking(!scenario.Untracked),
		tracker.WithSerializer(serialize.New(h.logger)),
	)
	if err != nil {
		return nil, err
	}
	h.trackers[MainTracker] = t

	result := NewResult()
	for i, step := range scenario.Steps {
		if !h.executeStep(ctx, i, step, result) {
			break
		}
	}

	env, err := h.environment(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("failed to read final state: %w", err)
	}
	result.State = env

	for _, errMsg := range EvaluateAssertions(scenario.Assertions, env) {
		result.AddError(errMsg)
	}
	return result, nil
}

func (h *Harness) loadStructure(scenario *Scenario) (*atoms.Atoms, error) {
	var doc structure.Document
	var err error
	if scenario.StructureFile != "" {
		doc, err = h.loader.LoadFile(scenario.StructureFile)
	} else {
		var src []byte
		if src, err = yaml.Marshal(scenario.Structure); err != nil {
			return nil, err
		}
		doc, err = h.loader.Load("structure.yaml", src)
	}
	if err != nil {
		return nil, err
	}
	return doc.Atoms()
}

// executeStep applies one step and reports whether the flow continues.
// An unexpected error stops the flow since later steps depend on it.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) bool {
	on := step.On
	if on == "" {
		on = MainTracker
	}
	t, ok := h.trackers[on]
	if !ok {
		result.AddError(fmt.Sprintf("steps[%d]: unknown tracker %q", i, on))
		return false
	}
	kind, _ := tracker.Lookup(step.Op)

	seqBefore, err := h.store.MaxSeq(ctx)
	if err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
		return false
	}
	before := t.Node()

	out, err := t.Apply(ctx, step.Op, ConvertArgs(step.Args), ConvertKwargs(step.Kwargs)...)
	ev := TraceEvent{Step: i, Op: step.Op, Kind: kind.String(), On: on}

	if err != nil {
		ev.Error = err.Error()
		ev.Formula = t.Atoms().Formula()
		ev.NAtoms = t.Atoms().Len()
		ev.State, ev.Inputs = h.failedCall(ctx, before, seqBefore)
		result.AddTrace(ev)

		h.logger.Debug("step failed", "step", i, "op", step.Op, "error", err)
		switch {
		case step.ExpectError == "":
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", i, step.Op, err))
			return false
		case !strings.Contains(err.Error(), step.ExpectError):
			result.AddError(fmt.Sprintf("steps[%d] %s: error %q does not contain %q", i, step.Op, err, step.ExpectError))
		}
		return true
	}

	if step.ExpectError != "" {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected an error containing %q", i, step.Op, step.ExpectError))
	}

	name := on
	if kind == tracker.OutOfPlace {
		name = step.As
		if name == "" {
			name = fmt.Sprintf("step_%d", i)
		}
		h.trackers[name] = out
	}
	ev.Result = name
	ev.Formula = out.Atoms().Formula()
	ev.NAtoms = out.Atoms().Len()
	if ev.State, ev.Inputs, err = h.creator(ctx, out.Node()); err != nil {
		result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
	}
	result.AddTrace(ev)

	h.logger.Debug("step applied", "step", i, "op", step.Op, "result", name)
	return true
}

// creator reads the process that created node from the store.
func (h *Harness) creator(ctx context.Context, node *data.Structure) (string, map[string]string, error) {
	if !node.IsStored() {
		return "untracked", nil, nil
	}
	incoming, err := h.store.ReadIncoming(ctx, node.UUID())
	if err != nil {
		return "", nil, err
	}
	for _, n := range incoming {
		if n.Link.Type == ir.LinkCreate {
			inputs, err := h.inputs(ctx, n.Node.UUID)
			return string(n.Node.ProcessState), inputs, err
		}
	}
	return "untracked", nil, nil
}

// failedCall finds a process recorded for a failed call: one fed by before
// and newer than seqBefore.
func (h *Harness) failedCall(ctx context.Context, before *data.Structure, seqBefore int64) (string, map[string]string) {
	if !before.IsStored() {
		return "untracked", nil
	}
	outgoing, err := h.store.ReadOutgoing(ctx, before.UUID())
	if err != nil {
		return "untracked", nil
	}
	for _, n := range outgoing {
		if n.Node.Type == ir.NodeCalcFunction && n.Node.Seq > seqBefore {
			inputs, _ := h.inputs(ctx, n.Node.UUID)
			return string(n.Node.ProcessState), inputs
		}
	}
	return "untracked", nil
}

func (h *Harness) inputs(ctx context.Context, process string) (map[string]string, error) {
	incoming, err := h.store.ReadIncoming(ctx, process)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(incoming))
	for _, n := range incoming {
		out[n.Link.Label] = string(n.Node.Type)
	}
	return out, nil
}

// environment builds the variables assertions are evaluated against.
func (h *Harness) environment(ctx context.Context, result *Result) (map[string]any, error) {
	nodes, err := h.store.CountNodes(ctx)
	if err != nil {
		return nil, err
	}
	links, err := h.store.CountLinks(ctx)
	if err != nil {
		return nil, err
	}
	all, err := h.store.ReadAllNodes(ctx)
	if err != nil {
		return nil, err
	}
	processes := 0
	for _, n := range all {
		if n.Type == ir.NodeCalcFunction {
			processes++
		}
	}

	trackers := make(map[string]any, len(h.trackers))
	for name, t := range h.trackers {
		trackers[name] = summarize(t)
	}
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		trace[i] = eventMap(ev)
	}

	return map[string]any{
		"trackers":  trackers,
		"trace":     trace,
		"nodes":     nodes,
		"links":     links,
		"processes": processes,
	}, nil
}

func summarize(t *tracker.Tracker) map[string]any {
	a := t.Atoms()
	positions := make([]any, a.Len())
	for i, p := range a.Positions() {
		positions[i] = []any{p[0], p[1], p[2]}
	}
	cell := make([]any, 3)
	for i, row := range a.Cell() {
		cell[i] = []any{row[0], row[1], row[2]}
	}
	pbc := a.PBC()
	symbols := make([]any, a.Len())
	for i, s := range a.Symbols() {
		symbols[i] = s
	}
	return map[string]any{
		"formula":   a.Formula(),
		"natoms":    a.Len(),
		"symbols":   symbols,
		"positions": positions,
		"cell":      cell,
		"pbc":       []any{pbc[0], pbc[1], pbc[2]},
		"tracking":  t.Tracking(),
		"stored":    t.Node().IsStored(),
	}
}

// eventMap renders ev with plain values, omitting empty optional fields.
func eventMap(ev TraceEvent) map[string]any {
	m := map[string]any{
		"step":   ev.Step,
		"op":     ev.Op,
		"kind":   ev.Kind,
		"on":     ev.On,
		"state":  ev.State,
		"natoms": ev.NAtoms,
	}
	if ev.Result != "" {
		m["result"] = ev.Result
	}
	if ev.Formula != "" {
		m["formula"] = ev.Formula
	}
	if ev.Error != "" {
		m["error"] = ev.Error
	}
	if ev.Inputs != nil {
		inputs := make(map[string]any, len(ev.Inputs))
		for k, v := range ev.Inputs {
			inputs[k] = v
		}
		m["inputs"] = inputs
	}
	return m
}

// ConvertArgs turns YAML values into operation arguments. A mapping with
// only start, stop and step keys becomes a tracker.Slice.
func ConvertArgs(args []any) []any {
	out := make([]any, len(args))
	for i, v := range args {
		out[i] = convertArg(v)
	}
	return out
}

// ConvertKwargs turns a YAML mapping into keyword arguments sorted by name.
func ConvertKwargs(kwargs map[string]any) []tracker.Kwarg {
	names := make([]string, 0, len(kwargs))
	for name := range kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]tracker.Kwarg, len(names))
	for i, name := range names {
		out[i] = tracker.KW(name, convertArg(kwargs[name]))
	}
	return out
}

func convertArg(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = convertArg(item)
		}
		return out
	case map[string]any:
		if s, ok := toSlice(val); ok {
			return s
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = convertArg(item)
		}
		return out
	}
	return v
}

func toSlice(m map[string]any) (tracker.Slice, bool) {
	if len(m) == 0 {
		return tracker.Slice{}, false
	}
	s := tracker.Slice{Stop: math.MaxInt}
	for k, v := range m {
		n, ok := v.(int)
		if !ok {
			return tracker.Slice{}, false
		}
		switch k {
		case "start":
			s.Start = n
		case "stop":
			s.Stop = n
		case "step":
			s.Step = n
		default:
			return tracker.Slice{}, false
		}
	}
	return s, true
}
