package ir

// Version constants recorded on process nodes.
const (
	// IRVersion is the attribute schema version.
	IRVersion = "1"

	// EngineVersion is the atomtrack engine version.
	EngineVersion = "0.1.0"
)
