package ir

// Version constants for the export schema and the runner.
const (
	// SchemaVersion is the export/storage row schema version.
	SchemaVersion = "1"

	// EngineVersion is the cogtask engine version.
	EngineVersion = "0.1.0"
)
