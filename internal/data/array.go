package data

import (
	"fmt"
	"slices"

	"github.com/roach88/atomtrack/internal/ir"
)

// DefaultArrayName is the name under which a single serialized array is stored.
const DefaultArrayName = "array"

// NDArray is a dense row-major float64 array.
type NDArray struct {
	Shape []int
	Data  []float64
}

// NewNDArray validates that data fills shape exactly.
func NewNDArray(shape []int, data []float64) (NDArray, error) {
	size := 1
	for _, d := range shape {
		if d < 0 {
			return NDArray{}, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
		size *= d
	}
	if size != len(data) {
		return NDArray{}, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, size, len(data))
	}
	return NDArray{Shape: slices.Clone(shape), Data: slices.Clone(data)}, nil
}

// Vector returns a one-dimensional array.
func Vector(values ...float64) NDArray {
	return NDArray{Shape: []int{len(values)}, Data: slices.Clone(values)}
}

// Size returns the number of elements.
func (a NDArray) Size() int { return len(a.Data) }

func (a NDArray) String() string {
	return fmt.Sprintf("array(shape=%v, data=%v)", a.Shape, a.Data)
}

func (a NDArray) toIR() ir.IRObject {
	shape := make(ir.IRArray, len(a.Shape))
	for i, d := range a.Shape {
		shape[i] = ir.IRInt(d)
	}
	return ir.IRObject{
		"shape":  shape,
		"values": ir.FloatArray(a.Data),
	}
}

func ndarrayFromIR(v ir.IRValue) (NDArray, error) {
	obj, ok := v.(ir.IRObject)
	if !ok {
		return NDArray{}, fmt.Errorf("%w: array entry is %T", ErrInvalidAttributes, v)
	}
	rawShape, _ := obj["shape"].(ir.IRArray)
	rawValues, _ := obj["values"].(ir.IRArray)
	shape := make([]int, len(rawShape))
	for i, d := range rawShape {
		n, ok := d.(ir.IRInt)
		if !ok {
			return NDArray{}, fmt.Errorf("%w: shape[%d] is %T", ErrInvalidAttributes, i, d)
		}
		shape[i] = int(n)
	}
	values, err := floats(rawValues)
	if err != nil {
		return NDArray{}, err
	}
	return NewNDArray(shape, values)
}

// Array is a node holding named numeric arrays under the attribute "arrays".
type Array struct{ Node }

// NewArray returns an unstored Array with a single array stored under name.
func NewArray(name string, arr NDArray) *Array {
	return &Array{Node: newNode(ir.NodeArray, ir.IRObject{
		"arrays": ir.IRObject{name: arr.toIR()},
	})}
}

// Names returns the stored array names in canonical order.
func (a *Array) Names() []string {
	arrays, _ := a.attrs["arrays"].(ir.IRObject)
	return arrays.SortedKeys()
}

// Get decodes the array stored under name.
func (a *Array) Get(name string) (NDArray, error) {
	arrays, _ := a.attrs["arrays"].(ir.IRObject)
	v, ok := arrays[name]
	if !ok {
		return NDArray{}, fmt.Errorf("%w: no array named %q", ErrInvalidAttributes, name)
	}
	return ndarrayFromIR(v)
}

// floats decodes an IRArray of numbers. Ints are accepted and widened.
func floats(arr ir.IRArray) ([]float64, error) {
	out := make([]float64, len(arr))
	for i, v := range arr {
		switch n := v.(type) {
		case ir.IRFloat:
			out[i] = float64(n)
		case ir.IRInt:
			out[i] = float64(n)
		default:
			return nil, fmt.Errorf("%w: element %d is %T, want a number", ErrInvalidAttributes, i, v)
		}
	}
	return out, nil
}
