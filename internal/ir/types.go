package ir

// NodeType names the kind of a provenance node.
type NodeType string

// Data node types, one per persisted container.
const (
	NodeDict      NodeType = "data.core.dict"
	NodeList      NodeType = "data.core.list"
	NodeFloat     NodeType = "data.core.float"
	NodeInt       NodeType = "data.core.int"
	NodeStr       NodeType = "data.core.str"
	NodeArray     NodeType = "data.core.array"
	NodeStructure NodeType = "data.core.structure"
)

// NodeCalcFunction is the process node type written for a tracked call.
const NodeCalcFunction NodeType = "process.calcfunction"

// ValidNodeTypes lists every node type the store accepts.
var ValidNodeTypes = map[NodeType]bool{
	NodeDict:         true,
	NodeList:         true,
	NodeFloat:        true,
	NodeInt:          true,
	NodeStr:          true,
	NodeArray:        true,
	NodeStructure:    true,
	NodeCalcFunction: true,
}

// IsProcess reports whether t is a process node type.
func (t NodeType) IsProcess() bool {
	return t == NodeCalcFunction
}

// ProcessState is the terminal state of a process node.
type ProcessState string

const (
	ProcessFinished ProcessState = "finished"
	ProcessExcepted ProcessState = "excepted"
)

// NodeRecord is a stored provenance node.
type NodeRecord struct {
	PK            int64        `json:"pk"`         // Auto-increment (store FK)
	UUID          string       `json:"uuid"`       // UUIDv7, assigned at construction
	Type          NodeType     `json:"node_type"`
	Label         string       `json:"label"`      // Process name for process nodes
	Attributes    IRObject     `json:"attributes"` // Constrained to IRValue types
	Hash          string       `json:"hash"`       // NodeHash of type and attributes
	ProcessState  ProcessState `json:"process_state,omitempty"`
	ExceptionText string       `json:"exception,omitempty"`
	Seq           int64        `json:"seq"` // Logical clock
}
