package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/ir"
	"github.com/roach88/atomtrack/internal/store"
	"github.com/roach88/atomtrack/internal/structure"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Node     string
}

// ShowResult is a stored node as printed by show.
type ShowResult struct {
	Record    ir.NodeRecord       `json:"record"`
	Structure *structure.Document `json:"structure,omitempty"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a stored node",
		Long: `Print one node of the provenance database.

Structure nodes are also decoded into a structure document.

Examples:
  atomtrack show --db ./prov.db --node 0190...
  atomtrack show --db ./prov.db --node 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Node, "node", "", "node UUID (required)")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func runShow(ctx context.Context, opts *ShowOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	rec, err := readNode(ctx, st, opts.Node)
	if err != nil {
		return err
	}
	result := ShowResult{Record: rec}

	if rec.Type == ir.NodeStructure {
		d, err := data.FromRecord(rec)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to decode node", err)
		}
		a, err := d.(*data.Structure).Atoms()
		if err != nil {
			return WrapExitError(ExitFailure, "failed to decode structure", err)
		}
		doc := structure.FromAtoms(a)
		result.Structure = &doc
	}

	formatter := newFormatter(opts.RootOptions, cmd)
	if formatter.JSON() {
		return formatter.Success(result)
	}
	return outputShowText(cmd, result)
}

// readNode maps a missing UUID to a command error.
func readNode(ctx context.Context, st *store.Store, uuid string) (ir.NodeRecord, error) {
	rec, err := st.ReadNode(ctx, uuid)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.NodeRecord{}, NewExitError(ExitCommandError, fmt.Sprintf("node %s not found", uuid))
	}
	if err != nil {
		return ir.NodeRecord{}, WrapExitError(ExitCommandError, "failed to read node", err)
	}
	return rec, nil
}

func outputShowText(cmd *cobra.Command, r ShowResult) error {
	w := cmd.OutOrStdout()
	rec := r.Record

	fmt.Fprintf(w, "%s %s\n", rec.Type, rec.UUID)
	if rec.Label != "" {
		fmt.Fprintf(w, "  Label: %s\n", rec.Label)
	}
	fmt.Fprintf(w, "  Seq:   %d\n", rec.Seq)
	fmt.Fprintf(w, "  Hash:  %s\n", rec.Hash)
	if rec.ProcessState != "" {
		fmt.Fprintf(w, "  State: %s\n", rec.ProcessState)
	}
	if rec.ExceptionText != "" {
		fmt.Fprintf(w, "  Error: %s\n", rec.ExceptionText)
	}

	if r.Structure == nil {
		attrs, err := rec.Attributes.MarshalJSON()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "  Attributes: %s\n", attrs)
		return nil
	}

	out, err := yaml.Marshal(r.Structure)
	if err != nil {
		return err
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, string(out))
	return nil
}
