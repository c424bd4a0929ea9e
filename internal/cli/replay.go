package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/atomtrack/internal/store"
	"github.com/roach88/atomtrack/internal/tracker"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Node     string
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run a node's history and verify it reproduces",
		Long: `Replay every recorded operation upstream of a node and verify that
each one reproduces the stored result.

The operations are run again, untracked, from the stored inputs. Each
result is hashed and compared with the hash of the recorded output node.
Nothing is written to the database.

Exit codes:
  0 - Every step reproduced its recorded output
  1 - One or more steps diverged or could not be replayed
  2 - Command error (database or node not found, etc.)

Examples:
  atomtrack replay --db ./prov.db --node 0190...
  atomtrack replay --db ./prov.db --node 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Node, "node", "", "node UUID to replay (required)")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if _, err := readNode(ctx, st, opts.Node); err != nil {
		return err
	}
	result, err := tracker.Replay(ctx, st, opts.Node)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to replay", err)
	}

	if opts.Format == "json" {
		formatter := newFormatter(opts.RootOptions, cmd)
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, result, opts.Verbose)
	}

	if !result.Deterministic {
		return NewExitError(ExitFailure, "replay diverged from the recorded history")
	}
	return nil
}

func outputReplayText(cmd *cobra.Command, result *tracker.ReplayResult, verbose bool) {
	w := cmd.OutOrStdout()

	if len(result.Steps) == 0 {
		fmt.Fprintf(w, "No recorded operations upstream of %s.\n", result.Node)
		return
	}

	matched := 0
	for _, s := range result.Steps {
		switch {
		case s.Error != "":
			fmt.Fprintf(w, "✗ [%d] %s: %s\n", s.Seq, s.Function, s.Error)
		case s.Match:
			matched++
			fmt.Fprintf(w, "✓ [%d] %s\n", s.Seq, s.Function)
		default:
			fmt.Fprintf(w, "✗ [%d] %s: hash differs\n", s.Seq, s.Function)
		}
		if verbose {
			fmt.Fprintf(w, "    recorded: %s\n", s.Recorded)
			if s.Replayed != "" {
				fmt.Fprintf(w, "    replayed: %s\n", s.Replayed)
			}
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Replay Summary: %d of %d steps reproduced\n", matched, len(result.Steps))
	if result.Deterministic {
		fmt.Fprintln(w, "✓ History is reproducible")
	}
}
