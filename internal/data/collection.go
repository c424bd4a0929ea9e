package data

import (
	"maps"

	"github.com/roach88/atomtrack/internal/ir"
)

// Dict is a mapping node. Its keys are the node's attributes.
type Dict struct{ Node }

// NewDict returns an unstored Dict holding a copy of values.
func NewDict(values ir.IRObject) *Dict {
	return &Dict{Node: newNode(ir.NodeDict, maps.Clone(values))}
}

// Get returns the value stored under key.
func (d *Dict) Get(key string) (ir.IRValue, bool) {
	v, ok := d.attrs[key]
	return v, ok
}

// Keys returns the keys in canonical order.
func (d *Dict) Keys() []string {
	return d.attrs.SortedKeys()
}

// Value returns the mapping as plain Go values.
func (d *Dict) Value() map[string]any {
	return ir.Native(d.attrs).(map[string]any)
}

// List is a sequence node stored under the attribute "list".
type List struct{ Node }

// NewList returns an unstored List.
func NewList(values ir.IRArray) *List {
	if values == nil {
		values = ir.IRArray{}
	}
	return &List{Node: newNode(ir.NodeList, ir.IRObject{"list": values})}
}

// Items returns the stored elements.
func (l *List) Items() ir.IRArray {
	v, _ := l.attrs["list"].(ir.IRArray)
	return v
}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.Items())
}

// Value returns the elements as plain Go values.
func (l *List) Value() []any {
	return ir.Native(l.Items()).([]any)
}
