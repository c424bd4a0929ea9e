package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/atomtrack/internal/atoms"
	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/engine"
	"github.com/roach88/atomtrack/internal/harness"
	"github.com/roach88/atomtrack/internal/serialize"
	"github.com/roach88/atomtrack/internal/store"
	"github.com/roach88/atomtrack/internal/structure"
	"github.com/roach88/atomtrack/internal/tracker"
)

// ApplyOptions holds flags for the apply command.
type ApplyOptions struct {
	*RootOptions
	Database  string
	Structure string // structure document to start from
	Node      string // stored structure node to start from
	Op        string
	Args      string // JSON array
	Kwargs    string // JSON object
	NoTrack   bool
	Output    string // optional structure document for the result
}

// ApplyResult describes one applied operation.
type ApplyResult struct {
	Op      string `json:"op"`
	Kind    string `json:"kind"`
	Input   string `json:"input,omitempty"`
	Node    string `json:"node,omitempty"`
	Stored  bool   `json:"stored"`
	Formula string `json:"formula"`
	NAtoms  int    `json:"natoms"`
	Output  string `json:"output,omitempty"`
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply one operation to a structure",
		Long: `Apply a structure operation and record it in the provenance database.

The starting structure is either a structure document (YAML, JSON or CUE)
or a structure node already stored in the database. Positional arguments
are a JSON array and keyword arguments a JSON object; an object with only
start, stop and step keys is an atom slice.

Examples:
  atomtrack apply --db ./prov.db --structure water.yaml --op translate --args '[[0,0,1]]'
  atomtrack apply --db ./prov.db --node 0190... --op repeat --args '[[2,1,1]]'
  atomtrack apply --db ./prov.db --node 0190... --op rattle --kwargs '{"stdev":0.01}'
  atomtrack apply --db ./prov.db --structure water.yaml --op center --no-track`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Structure, "structure", "", "structure document to start from")
	cmd.Flags().StringVar(&opts.Node, "node", "", "UUID of a stored structure to start from")
	cmd.MarkFlagsMutuallyExclusive("structure", "node")
	cmd.MarkFlagsOneRequired("structure", "node")
	cmd.Flags().StringVar(&opts.Op, "op", "", "operation name, see 'atomtrack ops' (required)")
	_ = cmd.MarkFlagRequired("op")
	cmd.Flags().StringVar(&opts.Args, "args", "", "positional arguments as a JSON array")
	cmd.Flags().StringVar(&opts.Kwargs, "kwargs", "", "keyword arguments as a JSON object")
	cmd.Flags().BoolVar(&opts.NoTrack, "no-track", false, "apply without recording provenance")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the resulting structure document")

	return cmd
}

func runApply(ctx context.Context, opts *ApplyOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if _, ok := tracker.Lookup(opts.Op); !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown operation %q", opts.Op))
	}
	args, err := parseArgs(opts.Args)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --args", err)
	}
	kwargs, err := parseKwargs(opts.Kwargs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --kwargs", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	metrics := engine.NewMetrics("atomtrack")
	eng, err := engine.Resume(ctx, st, engine.WithMetrics(metrics))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open engine", err)
	}

	t, err := startTracker(ctx, eng, opts)
	if err != nil {
		return err
	}
	input := t.Node()

	out, err := t.Apply(ctx, opts.Op, args, kwargs...)
	logMetrics(metrics)
	if err != nil {
		if ferr := formatter.Error(ErrCodeOperation, err.Error(), nil); ferr != nil {
			return ferr
		}
		return WrapExitError(ExitFailure, fmt.Sprintf("%s failed", opts.Op), err)
	}

	kind, _ := tracker.Lookup(opts.Op)
	result := ApplyResult{
		Op:      opts.Op,
		Kind:    kind.String(),
		Stored:  out.Node().IsStored(),
		Formula: out.Node().Formula(),
		NAtoms:  out.Atoms().Len(),
	}
	if input.IsStored() {
		result.Input = input.UUID()
	}
	if result.Stored {
		result.Node = out.Node().UUID()
	}

	if opts.Output != "" {
		if err := writeDocument(opts.Output, structure.FromAtoms(out.Atoms())); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		result.Output = opts.Output
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputApplyText(cmd, result)
}

// startTracker builds the tracker for the starting structure.
func startTracker(ctx context.Context, eng *engine.Engine, opts *ApplyOptions) (*tracker.Tracker, error) {
	trackerOpts := []tracker.Option{
		tracker.WithTracking(!opts.NoTrack),
		tracker.WithSerializer(serialize.New(slog.Default())),
	}

	if opts.Node != "" {
		d, err := eng.Load(ctx, opts.Node)
		if engine.IsNotFound(err) {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("node %s not found", opts.Node), err)
		}
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load node", err)
		}
		node, ok := d.(*data.Structure)
		if !ok {
			return nil, NewExitError(ExitCommandError,
				fmt.Sprintf("node %s is a %s, not a structure", opts.Node, d.Base().Type()))
		}
		t, err := tracker.FromNode(eng, node, trackerOpts...)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to read structure node", err)
		}
		return t, nil
	}

	a, err := loadStructureFile(opts.Structure)
	if err != nil {
		return nil, err
	}
	t, err := tracker.New(eng, a, trackerOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create tracker", err)
	}
	return t, nil
}

func loadStructureFile(path string) (*atoms.Atoms, error) {
	loader, err := structure.NewLoader()
	if err != nil {
		return nil, err
	}
	doc, err := loader.LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("structure file not found: %s", path))
	}
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid structure document", err)
	}
	a, err := doc.Atoms()
	if err != nil {
		return nil, WrapExitError(ExitFailure, "invalid structure document", err)
	}
	return a, nil
}

func writeDocument(path string, doc structure.Document) error {
	out, err := structure.Marshal(doc, filepath.Ext(path))
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}

// parseArgs decodes a JSON array of operation arguments. JSON is read with
// the YAML decoder so integral numbers stay ints.
func parseArgs(src string) ([]any, error) {
	if src == "" {
		return nil, nil
	}
	var raw []any
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		return nil, err
	}
	return harness.ConvertArgs(raw), nil
}

func parseKwargs(src string) ([]tracker.Kwarg, error) {
	if src == "" {
		return nil, nil
	}
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(src), &raw); err != nil {
		return nil, err
	}
	for name := range raw {
		if name == tracker.NodeInput {
			return nil, fmt.Errorf("kwarg %q is reserved", name)
		}
	}
	return harness.ConvertKwargs(raw), nil
}

// logMetrics reports the engine counters at debug level.
func logMetrics(m *engine.Metrics) {
	families, err := m.Registry().Gather()
	if err != nil {
		slog.Debug("gather metrics", "error", err)
		return
	}
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			attrs := []any{"metric", mf.GetName()}
			for _, lp := range metric.GetLabel() {
				attrs = append(attrs, lp.GetName(), lp.GetValue())
			}
			switch {
			case metric.GetCounter() != nil:
				attrs = append(attrs, "value", metric.GetCounter().GetValue())
			case metric.GetHistogram() != nil:
				attrs = append(attrs, "count", metric.GetHistogram().GetSampleCount())
			}
			slog.Debug("engine metric", attrs...)
		}
	}
}

func outputApplyText(cmd *cobra.Command, r ApplyResult) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (%s)\n", r.Op, r.Kind)
	if r.Input != "" {
		fmt.Fprintf(w, "  Input:   %s\n", r.Input)
	}
	if r.Stored {
		fmt.Fprintf(w, "  Node:    %s\n", r.Node)
	} else {
		fmt.Fprintln(w, "  Node:    (not stored)")
	}
	fmt.Fprintf(w, "  Formula: %s (%d atoms)\n", r.Formula, r.NAtoms)
	if r.Output != "" {
		fmt.Fprintf(w, "  Output:  %s\n", r.Output)
	}
	return nil
}
