package harness

// TraceEvent records one applied step. It carries no UUIDs or hashes, so a
// trace is stable across runs.
type TraceEvent struct {
	Step int    `json:"step"`
	Op   string `json:"op"`
	Kind string `json:"kind"`
	On   string `json:"on"`
	// Result names the tracker holding the step's structure.
	Result string `json:"result,omitempty"`

	// State is the recorded process state: "finished", "excepted", or
	// "untracked" when nothing was recorded.
	State string `json:"state"`
	// Inputs maps each process input label to its node type.
	Inputs map[string]string `json:"inputs,omitempty"`

	Formula string `json:"formula,omitempty"`
	NAtoms  int    `json:"natoms"`
	Error   string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step behaved as expected and every
	// assertion held.
	Pass bool `json:"pass"`

	// Trace contains one event per executed step.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the environment the assertions were evaluated against.
	State map[string]any `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]any),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
