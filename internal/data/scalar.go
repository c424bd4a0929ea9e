package data

import (
	"github.com/roach88/atomtrack/internal/ir"
)

// Float is a floating-point scalar node.
type Float struct{ Node }

// NewFloat returns an unstored Float.
func NewFloat(v float64) *Float {
	return &Float{Node: newNode(ir.NodeFloat, ir.IRObject{"value": ir.IRFloat(v)})}
}

// Value returns the stored number. An integral value stored by an older
// writer as an int is widened.
func (f *Float) Value() float64 {
	switch v := f.attrs["value"].(type) {
	case ir.IRFloat:
		return float64(v)
	case ir.IRInt:
		return float64(v)
	}
	return 0
}

// Int is an integer scalar node.
type Int struct{ Node }

// NewInt returns an unstored Int.
func NewInt(v int64) *Int {
	return &Int{Node: newNode(ir.NodeInt, ir.IRObject{"value": ir.IRInt(v)})}
}

// Value returns the stored integer.
func (i *Int) Value() int64 {
	v, _ := i.attrs["value"].(ir.IRInt)
	return int64(v)
}

// Str is a text scalar node.
type Str struct{ Node }

// NewStr returns an unstored Str.
func NewStr(v string) *Str {
	return &Str{Node: newNode(ir.NodeStr, ir.IRObject{"value": ir.IRString(v)})}
}

// Value returns the stored text.
func (s *Str) Value() string {
	v, _ := s.attrs["value"].(ir.IRString)
	return string(v)
}
