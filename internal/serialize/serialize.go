// Package serialize converts arbitrary Go values into persisted data nodes.
//
// Dispatch is first match wins, in this order: mapping, sequence, structure,
// float, integer (bool included), text, numeric array. Anything else is
// logged and stored as its text representation, so ToData never fails.
// Round trips are not guaranteed.
package serialize

import (
	"fmt"
	"log/slog"
	"math"
	"reflect"

	"github.com/roach88/atomtrack/internal/atoms"
	"github.com/roach88/atomtrack/internal/data"
	"github.com/roach88/atomtrack/internal/ir"
)

var (
	atomsType   = reflect.TypeFor[atoms.Atoms]()
	ndarrayType = reflect.TypeFor[data.NDArray]()
)

// Serializer turns values into unstored data nodes.
type Serializer struct {
	logger *slog.Logger
}

// New returns a Serializer that reports fallbacks on logger.
// A nil logger means slog.Default().
func New(logger *slog.Logger) *Serializer {
	return &Serializer{logger: logger}
}

// ToData serializes v with a Serializer on the default logger.
func ToData(v any) data.Data {
	return New(nil).ToData(v)
}

// ToData returns the persisted representation of v.
func (s *Serializer) ToData(v any) data.Data {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return s.fallback(v)
	}

	switch {
	case rv.Kind() == reflect.Map:
		return data.NewDict(s.object(rv))

	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		return data.NewList(s.array(rv))

	case rv.Type() == atomsType:
		a := rv.Interface().(atoms.Atoms)
		return data.NewStructure(&a)

	case isFloat(rv.Kind()):
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return s.fallback(v)
		}
		return data.NewFloat(f)

	case isInt(rv.Kind()):
		n, ok := intValue(rv)
		if !ok {
			return s.fallback(v)
		}
		return data.NewInt(n)

	case rv.Kind() == reflect.String:
		return data.NewStr(rv.String())

	case rv.Type() == ndarrayType:
		return data.NewArray(data.DefaultArrayName, rv.Interface().(data.NDArray))
	}

	return s.fallback(v)
}

func (s *Serializer) fallback(v any) data.Data {
	logger := s.logger
	if logger == nil {
		logger = slog.Default()
	}
	text := fmt.Sprint(v)
	logger.Warn(fmt.Sprintf("cannot serialize %s, falling back to text representation", text),
		"type", fmt.Sprintf("%T", v),
	)
	return data.NewStr(text)
}

// object converts a map into attributes. Keys are rendered with fmt.
func (s *Serializer) object(rv reflect.Value) ir.IRObject {
	obj := make(ir.IRObject, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		obj[fmt.Sprint(iter.Key().Interface())] = s.value(iter.Value())
	}
	return obj
}

func (s *Serializer) array(rv reflect.Value) ir.IRArray {
	arr := make(ir.IRArray, rv.Len())
	for i := range arr {
		arr[i] = s.value(rv.Index(i))
	}
	return arr
}

// value converts a nested value. Anything without an attribute
// representation becomes its text form.
func (s *Serializer) value(rv reflect.Value) ir.IRValue {
	if rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	rv = indirect(rv)
	if !rv.IsValid() {
		return ir.IRString(fmt.Sprint(nil))
	}

	switch {
	case rv.Kind() == reflect.Map:
		return s.object(rv)
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		return s.array(rv)
	case isFloat(rv.Kind()):
		f := rv.Float()
		if !math.IsNaN(f) && !math.IsInf(f, 0) {
			return ir.IRFloat(f)
		}
	case isInt(rv.Kind()):
		if n, ok := intValue(rv); ok {
			return ir.IRInt(n)
		}
	case rv.Kind() == reflect.String:
		return ir.IRString(rv.String())
	}

	if rv.Type() == atomsType {
		a := rv.Interface().(atoms.Atoms)
		return ir.IRString(a.String())
	}
	return ir.IRString(fmt.Sprint(rv.Interface()))
}

// indirect follows non-nil pointers. A nil pointer yields the zero Value.
func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isInt(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// intValue returns the integer value of an integer or bool kind.
// Unsigned values above math.MaxInt64 do not fit and report false.
func intValue(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return 1, true
		}
		return 0, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	}
	u := rv.Uint()
	if u > math.MaxInt64 {
		return 0, false
	}
	return int64(u), true
}
