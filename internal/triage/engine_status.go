package triage

import "time"

// StatusSummary is a point-in-time snapshot of a session for operators.
type StatusSummary struct {
	Running           bool
	State             State
	SessionID         string
	Device            string
	StartedAt         time.Time
	FramesProcessed   int64
	IncompleteFrames  int64
	TransientFailures int64
	MatchedFrames     int64
	CellsMatched      int64
	ImagesWritten     int64
	ImageFailures     int64
	LastDetection     time.Time
	LastError         string
}

// Status returns the engine's current state and counters.
func (e *Engine) Status() StatusSummary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	summary := StatusSummary{
		Running:           e.running,
		State:             e.state,
		SessionID:         e.sessionID,
		Device:            e.deviceLabel,
		StartedAt:         e.startedAt,
		FramesProcessed:   e.frameCounter,
		IncompleteFrames:  e.incomplete,
		TransientFailures: e.transient,
		MatchedFrames:     e.matchedFrames,
		CellsMatched:      e.cellsMatched,
		LastDetection:     e.lastDetection,
	}
	if e.persister != nil {
		summary.ImagesWritten = e.persister.Written()
		summary.ImageFailures = e.persister.Failed()
	}
	if e.lastError != nil {
		summary.LastError = e.lastError.Error()
	}
	return summary
}
