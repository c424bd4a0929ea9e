package tracker

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/go-viper/mapstructure/v2"

	"github.com/roach88/atomtrack/internal/atoms"
)

// Kwarg is a named argument.
type Kwarg struct {
	Name  string
	Value any
}

// KW is shorthand for a Kwarg.
func KW(name string, value any) Kwarg {
	return Kwarg{Name: name, Value: value}
}

// Slice selects atoms [Start, Stop) with the given Step, like a Python
// slice. A zero Step means 1; negative bounds count from the end.
type Slice struct {
	Start, Stop, Step int
}

// Call holds the arguments of one operation.
type Call struct {
	Args   []any
	Kwargs []Kwarg
}

// args is a Call keyed by an operation's parameter names. Nil values are
// dropped, so a nil argument is the same as an absent one.
type args struct {
	op     string
	values map[string]any
}

// bind matches positional arguments to params in order and keyword
// arguments by name. Unknown keywords are left for decode to reject.
func bind(name string, op operation, c Call) (args, error) {
	if len(c.Args) > len(op.params) {
		return args{}, fmt.Errorf("%w: %s takes at most %d positional arguments, got %d",
			atoms.ErrInvalidArgument, name, len(op.params), len(c.Args))
	}
	b := args{op: name, values: make(map[string]any, len(op.params))}
	seen := make(map[string]bool, len(c.Args)+len(c.Kwargs))
	for i, v := range c.Args {
		seen[op.params[i]] = true
		if v != nil {
			b.values[op.params[i]] = v
		}
	}
	for _, kw := range c.Kwargs {
		if seen[kw.Name] {
			return args{}, fmt.Errorf("%w: %s got multiple values for argument %q", atoms.ErrInvalidArgument, name, kw.Name)
		}
		seen[kw.Name] = true
		if kw.Value != nil {
			b.values[kw.Name] = kw.Value
		}
	}
	for _, r := range op.required {
		if _, ok := b.values[r]; !ok {
			return args{}, fmt.Errorf("%w: %s: missing required argument %q", atoms.ErrInvalidArgument, name, r)
		}
	}
	return b, nil
}

// decode fills out, a pointer to the operation's parameter struct, from the
// bound values. Fields keep their preset value when an argument is absent.
func (b args) decode(out any) error {
	if err := decodeValue(b.values, out); err != nil {
		return b.invalid(err)
	}
	return nil
}

func (b args) invalid(err error) error {
	return fmt.Errorf("%w: %s: %w", atoms.ErrInvalidArgument, b.op, err)
}

// decodeValue runs one mapstructure pass with the argument hooks.
func decodeValue(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "arg",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		MatchName:        func(key, field string) bool { return key == field },
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			scalarHook,
			vec3Hook,
			directionHook,
			centeringHook,
			cellHook,
			broadcastHook,
			displacementHook,
			indexerHook,
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(input); err != nil {
		// Nested decodes run at the root, where the field name is empty.
		var de *mapstructure.DecodeError
		if errors.As(err, &de) && de.Name() == "" {
			return de.Unwrap()
		}
		return err
	}
	return nil
}

var (
	vec3Type         = reflect.TypeFor[atoms.Vec3]()
	mat3Type         = reflect.TypeFor[atoms.Mat3]()
	centeringType    = reflect.TypeFor[atoms.Centering]()
	directionType    = reflect.TypeFor[direction]()
	flagsType        = reflect.TypeFor[flags]()
	tripleType       = reflect.TypeFor[triple]()
	displacementType = reflect.TypeFor[displacement]()
	indexerType      = reflect.TypeFor[indexer]()
)

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isList(k reflect.Kind) bool {
	return k == reflect.Slice || k == reflect.Array
}

// elemKind returns the kind of the i-th element of a list, looking through
// interface values.
func elemKind(data any, i int) reflect.Kind {
	v := reflect.ValueOf(data).Index(i)
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	return v.Kind()
}

// scalarHook narrows weak typing to what recorded arguments need: integral
// numbers for ints, 0 and 1 for flags, and no text for either.
func scalarHook(from, to reflect.Type, data any) (any, error) {
	switch to.Kind() {
	case reflect.Int:
		switch {
		case from.Kind() == reflect.Float32 || from.Kind() == reflect.Float64:
			f := reflect.ValueOf(data).Float()
			if f != math.Trunc(f) || math.Abs(f) >= math.MaxInt64 {
				return nil, fmt.Errorf("want an integer, got %v", data)
			}
		case from.Kind() >= reflect.Uint && from.Kind() <= reflect.Uint64:
			if reflect.ValueOf(data).Uint() > math.MaxInt {
				return nil, fmt.Errorf("integer %v out of range", data)
			}
		case !isNumber(from.Kind()) && from.Kind() != reflect.Bool:
			return nil, fmt.Errorf("want an integer, got %T", data)
		}
	case reflect.Float64:
		if !isNumber(from.Kind()) {
			return nil, fmt.Errorf("want a number, got %T", data)
		}
	case reflect.Bool:
		switch {
		case from.Kind() == reflect.Bool:
		case isNumber(from.Kind()):
			if f := reflect.ValueOf(data).Convert(reflect.TypeFor[float64]()).Float(); f != 0 && f != 1 {
				return nil, fmt.Errorf("want a boolean, got %v", data)
			}
		default:
			return nil, fmt.Errorf("want a boolean, got %T", data)
		}
	case reflect.String:
		if from.Kind() != reflect.String {
			return nil, fmt.Errorf("want a string, got %T", data)
		}
	}
	return data, nil
}

// vec3Hook requires exactly three components.
func vec3Hook(from, to reflect.Type, data any) (any, error) {
	if to != vec3Type {
		return data, nil
	}
	if !isList(from.Kind()) || reflect.ValueOf(data).Len() != 3 {
		return nil, fmt.Errorf("want 3 numbers, got %v", data)
	}
	return data, nil
}

// direction is a vector that may also be written "x", "-y", ...
type direction atoms.Vec3

func directionHook(from, to reflect.Type, data any) (any, error) {
	if to != directionType || from == directionType {
		return data, nil
	}
	if s, ok := data.(string); ok {
		v, err := atoms.ParseAxis(s)
		return direction(v), err
	}
	var v atoms.Vec3
	if err := decodeValue(data, &v); err != nil {
		return nil, err
	}
	return direction(v), nil
}

// centeringHook accepts "COM", "COP", "COU" or a point.
func centeringHook(from, to reflect.Type, data any) (any, error) {
	if to != centeringType || from == centeringType {
		return data, nil
	}
	if s, ok := data.(string); ok {
		return atoms.ParseCentering(s)
	}
	var p atoms.Vec3
	if err := decodeValue(data, &p); err != nil {
		return nil, err
	}
	return atoms.At(p), nil
}

// cellHook accepts a 3×3 matrix as rows, or 3 lengths, 6 cell parameters or
// 9 matrix entries as a flat list.
func cellHook(from, to reflect.Type, data any) (any, error) {
	if to != mat3Type || from == mat3Type {
		return data, nil
	}
	if !isList(from.Kind()) {
		return nil, fmt.Errorf("want a cell, got %T", data)
	}
	if reflect.ValueOf(data).Len() == 3 && isList(elemKind(data, 0)) {
		return data, nil
	}
	var values []float64
	if err := decodeValue(data, &values); err != nil {
		return nil, err
	}
	return atoms.ParseCell(values)
}

// flags is one periodicity flag for all directions or three flags.
type flags [3]bool

// triple is one repetition count for all directions or three counts.
type triple [3]int

func broadcastHook(from, to reflect.Type, data any) (any, error) {
	if (to != flagsType && to != tripleType) || from == to {
		return data, nil
	}
	switch {
	case isNumber(from.Kind()) || from.Kind() == reflect.Bool:
		return []any{data, data, data}, nil
	case isList(from.Kind()):
		if n := reflect.ValueOf(data).Len(); n != 3 {
			return nil, fmt.Errorf("want 1 or 3 values, got %d", n)
		}
		return data, nil
	}
	return nil, fmt.Errorf("want 1 or 3 values, got %T", data)
}

// displacement is a single vector for all atoms or one vector per atom.
type displacement struct {
	all  *atoms.Vec3
	each []atoms.Vec3
}

func displacementHook(from, to reflect.Type, data any) (any, error) {
	if to != displacementType || from == displacementType {
		return data, nil
	}
	var v atoms.Vec3
	if err := decodeValue(data, &v); err == nil {
		return displacement{all: &v}, nil
	}
	var each []atoms.Vec3
	if err := decodeValue(data, &each); err != nil {
		return nil, fmt.Errorf("want a vector or one vector per atom, got %v", data)
	}
	return displacement{each: each}, nil
}

// indexer is the argument of delete_item and index_access: an index, a list
// of indices, a boolean mask or a Slice.
type indexer struct {
	single  bool
	indices []int
	mask    []bool
	slice   *Slice
}

func indexerHook(from, to reflect.Type, data any) (any, error) {
	if to != indexerType || from == indexerType {
		return data, nil
	}
	switch s := data.(type) {
	case Slice:
		return indexer{slice: &s}, nil
	case *Slice:
		return indexer{slice: s}, nil
	}
	switch {
	case isNumber(from.Kind()):
		var i int
		if err := decodeValue(data, &i); err != nil {
			return nil, err
		}
		return indexer{single: true, indices: []int{i}}, nil
	case isList(from.Kind()):
		if reflect.ValueOf(data).Len() > 0 && elemKind(data, 0) == reflect.Bool {
			var mask []bool
			if err := decodeValue(data, &mask); err != nil {
				return nil, err
			}
			return indexer{mask: mask}, nil
		}
		indices := []int{}
		if err := decodeValue(data, &indices); err != nil {
			return nil, err
		}
		return indexer{indices: indices}, nil
	}
	return nil, fmt.Errorf("want an index, list, mask or slice, got %T", data)
}

// resolve returns the selected indices for a structure of n atoms.
func (x indexer) resolve(n int) ([]int, error) {
	switch {
	case x.slice != nil:
		step := x.slice.Step
		if step == 0 {
			step = 1
		}
		if step < 0 {
			return nil, fmt.Errorf("%w: slice step must be positive, got %d", atoms.ErrInvalidArgument, step)
		}
		clamp := func(v int) int {
			if v < 0 {
				v += n
			}
			return max(0, min(n, v))
		}
		out := []int{}
		for i := clamp(x.slice.Start); i < clamp(x.slice.Stop); i += step {
			out = append(out, i)
		}
		return out, nil
	case x.mask != nil:
		if len(x.mask) != n {
			return nil, fmt.Errorf("%w: mask has %d entries for %d atoms", atoms.ErrLengthMismatch, len(x.mask), n)
		}
		out := []int{}
		for i, m := range x.mask {
			if m {
				out = append(out, i)
			}
		}
		return out, nil
	}
	return x.indices, nil
}

// selection is the optional mask and indices arguments of the geometry
// setters.
type selection struct {
	Mask    []bool `arg:"mask"`
	Indices []int  `arg:"indices"`
}

func (s selection) value() atoms.Selection {
	return atoms.Selection{Mask: s.Mask, Indices: s.Indices}
}
