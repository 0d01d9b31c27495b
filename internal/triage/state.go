package triage

// State identifies the engine's position in the acquisition cycle.
type State string

const (
	StateStopped       State = "STOPPED"
	StateAwaitingFrame State = "AWAITING_FRAME"
	StateValidating    State = "VALIDATING"
	StateConverting    State = "CONVERTING"
	StateScanning      State = "SCANNING"
	StatePersisting    State = "PERSISTING"
	StateReleasing     State = "RELEASING"
)
