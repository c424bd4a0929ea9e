package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/roach88/atomtrack/internal/tracker"
)

// MainTracker is the name of the tracker built from the scenario structure.
const MainTracker = "main"

// Scenario defines a tracked editing session and what must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name" validate:"required"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" validate:"required"`

	// StructureFile is a structure document, relative to the scenario file.
	StructureFile string `yaml:"structure_file,omitempty" validate:"required_without=Structure,excluded_with=Structure"`

	// Structure is an inline structure document.
	Structure map[string]any `yaml:"structure,omitempty" validate:"required_without=StructureFile"`

	// Untracked starts the main tracker with provenance recording off.
	Untracked bool `yaml:"untracked,omitempty"`

	// Steps are applied in order.
	Steps []Step `yaml:"steps" validate:"required,min=1,dive"`

	// Assertions are expr expressions evaluated after the last step.
	Assertions []Assertion `yaml:"assertions" validate:"required,min=1,dive"`
}

// Step applies one operation to a named tracker.
type Step struct {
	// Op is the operation name, e.g. "translate".
	Op string `yaml:"op" validate:"required,operation"`

	// On names the tracker to apply to. Defaults to "main".
	On string `yaml:"on,omitempty"`

	// As names the tracker returned by an out-of-place operation.
	// Defaults to "step_<index>".
	As string `yaml:"as,omitempty"`

	Args   []any          `yaml:"args,omitempty"`
	Kwargs map[string]any `yaml:"kwargs,omitempty"`

	// ExpectError, when set, must be a substring of the step's error.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Assertion is a boolean expr expression over the scenario state.
type Assertion struct {
	Name string `yaml:"name,omitempty"`
	Expr string `yaml:"expr" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("operation", func(fl validator.FieldLevel) bool {
		_, ok := tracker.Lookup(fl.Field().String())
		return ok
	})
	return v
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
// A relative StructureFile is resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if scenario.StructureFile != "" && !filepath.IsAbs(scenario.StructureFile) {
		scenario.StructureFile = filepath.Join(filepath.Dir(path), scenario.StructureFile)
	}
	return scenario, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = describe(fe)
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	for i, step := range s.Steps {
		if _, reserved := step.Kwargs[tracker.NodeInput]; reserved {
			return fmt.Errorf("steps[%d]: kwarg %q is reserved", i, tracker.NodeInput)
		}
	}
	return nil
}

// describe turns a validation failure into a scenario-level message.
func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Scenario.")
	switch fe.Tag() {
	case "required", "required_without":
		return field + " is required"
	case "min":
		return field + " must not be empty"
	case "excluded_with":
		return field + " and an inline structure are mutually exclusive"
	case "operation":
		return fmt.Sprintf("%s: unknown operation %q", field, fe.Value())
	}
	return fmt.Sprintf("%s failed %q", field, fe.Tag())
}
