package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/roach88/atomtrack/internal/ir"
	"github.com/roach88/atomtrack/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database    string
	Node        string
	Descendants bool
}

// TraceStep is one calcfunction in the history of a node.
type TraceStep struct {
	Seq       int64             `json:"seq"`
	Process   string            `json:"process"`
	Function  string            `json:"function"`
	State     string            `json:"state"`
	Exception string            `json:"exception,omitempty"`
	Inputs    map[string]string `json:"inputs"`           // link label -> input UUID
	Output    string            `json:"output,omitempty"` // created node UUID
}

// TraceNode is one node downstream of the traced node.
type TraceNode struct {
	Seq   int64  `json:"seq"`
	UUID  string `json:"uuid"`
	Type  string `json:"type"`
	Label string `json:"label,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Node        string      `json:"node"`
	Steps       []TraceStep `json:"steps"`
	Links       []ir.Link   `json:"links"`
	Descendants []TraceNode `json:"descendants,omitempty"`
	Stats       TraceStats  `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Ancestors   int `json:"ancestors"`
	Processes   int `json:"processes"`
	Excepted    int `json:"excepted"`
	Descendants int `json:"descendants,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Query provenance for a node",
		Long: `Query the provenance graph that ends at a node.

Shows every calcfunction upstream of the node in seq order, with the
inputs it consumed and the node it created. With --descendants the
nodes derived from it are listed as well.

Examples:
  atomtrack trace --db ./prov.db --node 0190...
  atomtrack trace --db ./prov.db --node 0190... --descendants
  atomtrack trace --db ./prov.db --node 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Node, "node", "", "node UUID to trace (required)")
	_ = cmd.MarkFlagRequired("node")
	cmd.Flags().BoolVar(&opts.Descendants, "descendants", false, "also list nodes derived from the node")

	return cmd
}

func runTrace(ctx context.Context, opts *TraceOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if _, err := readNode(ctx, st, opts.Node); err != nil {
		return err
	}
	tr, err := st.ReadTrace(ctx, opts.Node)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read provenance", err)
	}

	result := buildTrace(tr)
	if opts.Descendants {
		down, err := st.Descendants(ctx, opts.Node)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read descendants", err)
		}
		addDescendants(&result, down)
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputTraceText(cmd, result, opts.Verbose)
}

// buildTrace groups the trace links by process.
func buildTrace(tr store.Trace) TraceResult {
	result := TraceResult{
		Node:  tr.Node.UUID,
		Steps: []TraceStep{},
		Links: tr.Links,
		Stats: TraceStats{Ancestors: len(tr.Ancestors)},
	}

	nodes := append([]ir.NodeRecord{tr.Node}, tr.Ancestors...)
	steps := make(map[string]*TraceStep)
	for _, n := range nodes {
		if !n.Type.IsProcess() {
			continue
		}
		steps[n.UUID] = &TraceStep{
			Seq:       n.Seq,
			Process:   n.UUID,
			Function:  n.Label,
			State:     string(n.ProcessState),
			Exception: n.ExceptionText,
			Inputs:    make(map[string]string),
		}
		if n.ProcessState == ir.ProcessExcepted {
			result.Stats.Excepted++
		}
	}

	for _, l := range tr.Links {
		switch l.Type {
		case ir.LinkInputCalc:
			if s, ok := steps[l.OutputUUID]; ok {
				s.Inputs[l.Label] = l.InputUUID
			}
		case ir.LinkCreate:
			if s, ok := steps[l.InputUUID]; ok {
				s.Output = l.OutputUUID
			}
		}
	}

	for _, s := range steps {
		result.Steps = append(result.Steps, *s)
	}
	sort.Slice(result.Steps, func(i, j int) bool {
		return result.Steps[i].Seq < result.Steps[j].Seq
	})
	result.Stats.Processes = len(result.Steps)
	return result
}

func addDescendants(result *TraceResult, nodes []ir.NodeRecord) {
	result.Descendants = make([]TraceNode, len(nodes))
	for i, n := range nodes {
		result.Descendants[i] = TraceNode{Seq: n.Seq, UUID: n.UUID, Type: string(n.Type), Label: n.Label}
	}
	result.Stats.Descendants = len(nodes)
}

func outputTraceText(cmd *cobra.Command, result TraceResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Provenance of %s\n", result.Node)
	fmt.Fprintln(w)

	if len(result.Steps) == 0 {
		fmt.Fprintln(w, "No calcfunctions upstream (node was stored directly).")
		outputDescendantsText(w, result)
		return nil
	}

	for _, s := range result.Steps {
		fmt.Fprintf(w, "[%d] %s (%s)\n", s.Seq, s.Function, s.State)
		if verbose {
			fmt.Fprintf(w, "     process: %s\n", s.Process)
		}
		labels := make([]string, 0, len(s.Inputs))
		for label := range s.Inputs {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			fmt.Fprintf(w, "     <- %s: %s\n", label, s.Inputs[label])
		}
		if s.Output != "" {
			fmt.Fprintf(w, "     -> %s\n", s.Output)
		}
		if s.Exception != "" {
			fmt.Fprintf(w, "     error: %s\n", s.Exception)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Stats: %d ancestors, %d processes, %d excepted\n",
		result.Stats.Ancestors, result.Stats.Processes, result.Stats.Excepted)
	outputDescendantsText(w, result)
	return nil
}

func outputDescendantsText(w io.Writer, result TraceResult) {
	if result.Descendants == nil {
		return
	}
	fmt.Fprintln(w)
	if len(result.Descendants) == 0 {
		fmt.Fprintln(w, "No nodes derived from it.")
		return
	}
	fmt.Fprintf(w, "Derived nodes (%d):\n", len(result.Descendants))
	for _, n := range result.Descendants {
		if n.Label != "" {
			fmt.Fprintf(w, "[%d] %s %s %s\n", n.Seq, n.Type, n.Label, n.UUID)
		} else {
			fmt.Fprintf(w, "[%d] %s %s\n", n.Seq, n.Type, n.UUID)
		}
	}
}
