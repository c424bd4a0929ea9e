package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/atomtrack/internal/tracker"
)

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List tracked operations",
		Long: `List every operation apply and test scenarios accept, with its kind
and parameter names. In-place operations edit the structure they are
applied to; out-of-place operations return a new structure.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			ops := tracker.Operations()
			if formatter.JSON() {
				return formatter.Success(ops)
			}

			w := cmd.OutOrStdout()
			width := 0
			for _, op := range ops {
				width = max(width, len(op.Name))
			}
			for _, op := range ops {
				fmt.Fprintf(w, "%-*s  %-12s  %s\n", width, op.Name, op.Kind, strings.Join(op.Params, ", "))
			}
			return nil
		},
	}
}
