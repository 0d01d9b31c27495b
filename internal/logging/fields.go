package logging

// Standardized structured logging keys. Handlers and log consumers key off
// these names, so new call sites should reuse them instead of inventing
// variants.
const (
	// FieldComponent is the key for component names; the console handler
	// lifts it into the message prefix.
	FieldComponent = "component"
	// FieldSessionID is the key for capture session identifiers.
	FieldSessionID = "session_id"
	// FieldDevice is the key for the camera device path or index.
	FieldDevice = "device"
	// FieldFrame is the key for the frame counter within a session.
	FieldFrame = "frame"
	// FieldCell is the key for a grid cell index (0..8).
	FieldCell = "cell"
	// FieldState is the key for the engine state name.
	FieldState = "state"
	// FieldEventType is the key for machine-filterable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the key for operator guidance on an error.
	FieldErrorHint = "error_hint"
	// FieldAlert flags warnings or anomalies that should stand out.
	FieldAlert = "alert"
)
