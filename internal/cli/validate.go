package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/atomtrack/internal/structure"
)

// DocumentResult holds the validation result of one structure document.
type DocumentResult struct {
	File     string              `json:"file"`
	Valid    bool                `json:"valid"`
	Formula  string              `json:"formula,omitempty"`
	Problems []structure.Problem `json:"problems,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool             `json:"valid"`
	Documents []DocumentResult `json:"documents"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate structure documents",
		Long: `Validate YAML, JSON or CUE structure documents against the
#Structure schema without touching a database.

Exit codes:
  0 - All documents valid
  1 - One or more documents invalid
  2 - Command error (file not found, unsupported format)

Examples:
  atomtrack validate water.yaml
  atomtrack validate structures/*.cue --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	loader, err := structure.NewLoader()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to compile schema", err)
	}

	result := ValidationResult{Valid: true, Documents: make([]DocumentResult, 0, len(files))}
	for _, file := range files {
		formatter.VerboseLog("validating %s", file)
		doc, err := validateDocument(loader, file)
		if err != nil {
			return err
		}
		if !doc.Valid {
			result.Valid = false
		}
		result.Documents = append(result.Documents, doc)
	}

	if formatter.JSON() {
		if result.Valid {
			return formatter.Success(result)
		}
		if err := formatter.Error(ErrCodeInvalid, "structure validation failed", result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "structure validation failed")
	}
	return outputValidateText(cmd, result)
}

// validateDocument loads one file. Problems with the document itself are
// reported in the result; a missing file or unknown format is an error.
func validateDocument(loader *structure.Loader, file string) (DocumentResult, error) {
	res := DocumentResult{File: file}

	doc, err := loader.LoadFile(file)
	if errors.Is(err, os.ErrNotExist) {
		return res, NewExitError(ExitCommandError, fmt.Sprintf("file not found: %s", file))
	}
	if errors.Is(err, structure.ErrUnsupportedFormat) {
		return res, WrapExitError(ExitCommandError, file, err)
	}

	var invalid *structure.InvalidError
	if errors.As(err, &invalid) {
		res.Problems = invalid.Problems
		return res, nil
	}
	if err != nil {
		res.Problems = []structure.Problem{{File: file, Message: err.Error()}}
		return res, nil
	}

	a, err := doc.Atoms()
	if err != nil {
		res.Problems = []structure.Problem{{File: file, Message: err.Error()}}
		return res, nil
	}
	res.Valid = true
	res.Formula = a.Formula()
	return res, nil
}

func outputValidateText(cmd *cobra.Command, result ValidationResult) error {
	w := cmd.OutOrStdout()

	invalid := 0
	for _, doc := range result.Documents {
		if doc.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", doc.File, doc.Formula)
			continue
		}
		invalid++
		fmt.Fprintf(w, "✗ %s\n", doc.File)
		for _, p := range doc.Problems {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}

	if invalid > 0 {
		fmt.Fprintf(w, "\n%d of %d documents invalid\n", invalid, len(result.Documents))
		return NewExitError(ExitFailure, fmt.Sprintf("%d document(s) invalid", invalid))
	}
	fmt.Fprintln(w, "✓ All documents valid")
	return nil
}
