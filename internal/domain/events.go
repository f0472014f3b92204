package domain

// Origin distinguishes where a mutation came from. Conflict detection
// depends on knowing whether a version was produced locally or read back
// from an externally edited file.
type Origin string

const (
	OriginLocal    Origin = "local"    // Application logic
	OriginExternal Origin = "external" // External change monitor
)

// EventType enumerates store change notifications.
type EventType string

const (
	EventCreated           EventType = "created"
	EventUpdated           EventType = "updated"
	EventDeleted           EventType = "deleted"
	EventConflict          EventType = "conflictDetected"
	EventExternallyDeleted EventType = "externallyDeleted"
	EventWriteFailed       EventType = "writeFailed"
)

// Conflict describes a divergence between an unflushed local edit and an
// externally modified file. Neither side is authoritative; resolution is
// the subscriber's responsibility.
type Conflict struct {
	Local    *Task  // In-memory version with unflushed edits
	External *Task  // Version decoded from the changed file
	Path     string // File that diverged
}

// Event is a store change notification. A batch mutation produces exactly
// one event covering every affected ID.
type Event struct {
	Err      error     // writeFailed only
	Conflict *Conflict // conflictDetected only
	Type     EventType
	Origin   Origin
	IDs      []string // Affected entity IDs
}
