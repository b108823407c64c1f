package ir

// Version constants for the journal schema and engine.
const (
	// IRVersion is the record schema version written to the journal.
	IRVersion = "1"

	// EngineVersion is the pantry engine version.
	EngineVersion = "0.1.0"
)
