package ir

// Version constants for the record schema and the engine.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the ashc engine version.
	EngineVersion = "0.1.0"
)
