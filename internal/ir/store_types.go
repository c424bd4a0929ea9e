package ir

// LinkType names the role of a provenance link.
type LinkType string

const (
	// LinkInputCalc connects a data node to the process that consumed it.
	LinkInputCalc LinkType = "input_calc"
	// LinkCreate connects a process to the data node it produced.
	LinkCreate LinkType = "create"
)

// ResultLabel is the label of the create link from a calcfunction to its output.
const ResultLabel = "result"

// Link is a directed provenance edge (store-layer).
// Links refer to nodes by UUID; the store resolves them to row ids.
type Link struct {
	ID         int64    `json:"id"` // Auto-increment (store FK)
	InputUUID  string   `json:"input_uuid"`
	OutputUUID string   `json:"output_uuid"`
	Type       LinkType `json:"link_type"`
	Label      string   `json:"label"`
}
