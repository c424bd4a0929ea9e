package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/roach88/atomtrack/internal/atoms"
)

// AssertionError is returned when an assertion fails.
// It includes the expression and, for errors, the evaluation failure.
type AssertionError struct {
	Name   string // Assertion name, or its index when unnamed
	Expr   string // Expression source
	Reason string // "evaluated to false" or the compile/run error
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Name)
	fmt.Fprintf(&buf, "  Expr: %s\n", e.Expr)
	fmt.Fprintf(&buf, "  Reason: %s", e.Reason)
	return buf.String()
}

// EvaluateAssertions evaluates each assertion against env and returns one
// message per failure.
//
// Expressions are expr-lang programs that must return a bool. Besides the
// variables in env they may call:
//
//	distance(tracker, i, j)    distance between atoms i and j
//	angle(tracker, i, j, k)    angle i-j-k in degrees
func EvaluateAssertions(assertions []Assertion, env map[string]any) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(i, a, env); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(index int, a Assertion, env map[string]any) error {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("assertions[%d]", index)
	}
	fail := func(reason string) error {
		return &AssertionError{Name: name, Expr: a.Expr, Reason: reason}
	}

	options := append([]expr.Option{expr.Env(env), expr.AsBool()}, geometryFunctions(env)...)
	program, err := expr.Compile(a.Expr, options...)
	if err != nil {
		return fail(err.Error())
	}
	out, err := expr.Run(program, env)
	if err != nil {
		return fail(err.Error())
	}
	if ok, _ := out.(bool); !ok {
		return fail("evaluated to false")
	}
	return nil
}

// geometryFunctions measures the final structures of the named trackers.
func geometryFunctions(env map[string]any) []expr.Option {
	lookup := func(name any) ([]any, error) {
		trackers, _ := env["trackers"].(map[string]any)
		t, ok := trackers[fmt.Sprint(name)].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("unknown tracker %v", name)
		}
		positions, _ := t["positions"].([]any)
		return positions, nil
	}
	point := func(positions []any, i any) (atoms.Vec3, error) {
		n, ok := i.(int)
		if !ok {
			return atoms.Vec3{}, fmt.Errorf("atom index must be an int, got %T", i)
		}
		if n < 0 {
			n += len(positions)
		}
		if n < 0 || n >= len(positions) {
			return atoms.Vec3{}, fmt.Errorf("atom index %v out of range for %d atoms", i, len(positions))
		}
		p := positions[n].([]any)
		return atoms.Vec3{p[0].(float64), p[1].(float64), p[2].(float64)}, nil
	}

	return []expr.Option{
		expr.Function("distance", func(params ...any) (any, error) {
			positions, err := lookup(params[0])
			if err != nil {
				return nil, err
			}
			a, err := point(positions, params[1])
			if err != nil {
				return nil, err
			}
			b, err := point(positions, params[2])
			if err != nil {
				return nil, err
			}
			return b.Sub(a).Norm(), nil
		}, new(func(string, int, int) float64)),
		expr.Function("angle", func(params ...any) (any, error) {
			positions, err := lookup(params[0])
			if err != nil {
				return nil, err
			}
			var p [3]atoms.Vec3
			for k := range p {
				if p[k], err = point(positions, params[k+1]); err != nil {
					return nil, err
				}
			}
			return angleDeg(p[0].Sub(p[1]), p[2].Sub(p[1])), nil
		}, new(func(string, int, int, int) float64)),
	}
}

func angleDeg(a, b atoms.Vec3) float64 {
	c := a.Dot(b) / (a.Norm() * b.Norm())
	return math.Acos(math.Max(-1, math.Min(1, c))) * 180 / math.Pi
}
