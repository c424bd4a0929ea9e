package data

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/atomtrack/internal/ir"
)

// Data is implemented by every container in this package.
type Data interface {
	Base() *Node
	Record() (ir.NodeRecord, error)
}

// Node is the part shared by every container.
type Node struct {
	uuid     string
	nodeType ir.NodeType
	label    string
	attrs    ir.IRObject

	pk  int64
	seq int64
}

func newNode(t ir.NodeType, attrs ir.IRObject) Node {
	if attrs == nil {
		attrs = ir.IRObject{}
	}
	return Node{
		uuid:     uuid.Must(uuid.NewV7()).String(),
		nodeType: t,
		attrs:    attrs,
	}
}

// Base returns the node itself; it makes every container satisfy Data.
func (n *Node) Base() *Node { return n }

// UUID returns the node's identifier.
func (n *Node) UUID() string { return n.uuid }

// Type returns the node type.
func (n *Node) Type() ir.NodeType { return n.nodeType }

// Label returns the node label.
func (n *Node) Label() string { return n.label }

// SetLabel sets the label of an unstored node.
func (n *Node) SetLabel(label string) error {
	if n.IsStored() {
		return fmt.Errorf("%w: cannot relabel node %s", ErrImmutable, n.uuid)
	}
	n.label = label
	return nil
}

// Attributes returns the attribute object. Callers must not modify it.
func (n *Node) Attributes() ir.IRObject { return n.attrs }

// PK returns the store primary key, or 0 while unstored.
func (n *Node) PK() int64 { return n.pk }

// Seq returns the logical clock value assigned at store time.
func (n *Node) Seq() int64 { return n.seq }

// IsStored reports whether the node has been written to the store.
func (n *Node) IsStored() bool { return n.pk != 0 }

// MarkStored records the store identity. The engine calls this once after a
// successful write.
func (n *Node) MarkStored(pk, seq int64) {
	n.pk = pk
	n.seq = seq
}

// Hash returns the content hash of type and attributes.
func (n *Node) Hash() (string, error) {
	return ir.NodeHash(n.nodeType, n.attrs)
}

// Record converts the node to its store representation.
func (n *Node) Record() (ir.NodeRecord, error) {
	if !ir.IsFinite(n.attrs) {
		return ir.NodeRecord{}, fmt.Errorf("%w: node %s has a non-finite float attribute", ErrInvalidAttributes, n.uuid)
	}
	hash, err := n.Hash()
	if err != nil {
		return ir.NodeRecord{}, err
	}
	return ir.NodeRecord{
		PK:         n.pk,
		UUID:       n.uuid,
		Type:       n.nodeType,
		Label:      n.label,
		Attributes: n.attrs,
		Hash:       hash,
		Seq:        n.seq,
	}, nil
}

func nodeFromRecord(rec ir.NodeRecord) Node {
	attrs := rec.Attributes
	if attrs == nil {
		attrs = ir.IRObject{}
	}
	return Node{
		uuid:     rec.UUID,
		nodeType: rec.Type,
		label:    rec.Label,
		attrs:    attrs,
		pk:       rec.PK,
		seq:      rec.Seq,
	}
}

// FromRecord rebuilds the typed container for a stored record.
func FromRecord(rec ir.NodeRecord) (Data, error) {
	n := nodeFromRecord(rec)
	switch rec.Type {
	case ir.NodeDict:
		return &Dict{Node: n}, nil
	case ir.NodeList:
		return &List{Node: n}, nil
	case ir.NodeFloat:
		return &Float{Node: n}, nil
	case ir.NodeInt:
		return &Int{Node: n}, nil
	case ir.NodeStr:
		return &Str{Node: n}, nil
	case ir.NodeArray:
		return &Array{Node: n}, nil
	case ir.NodeStructure:
		return &Structure{Node: n}, nil
	case ir.NodeCalcFunction:
		return &CalcFunction{
			Node:      n,
			state:     rec.ProcessState,
			exception: rec.ExceptionText,
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, rec.Type)
}
