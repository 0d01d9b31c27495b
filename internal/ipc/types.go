package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/session status information.
type StatusResponse struct {
	Running           bool      `json:"running"`
	PID               int       `json:"pid"`
	State             string    `json:"state"`
	SessionID         string    `json:"session_id"`
	Device            string    `json:"device"`
	StartedAt         time.Time `json:"started_at"`
	FramesProcessed   int64     `json:"frames_processed"`
	IncompleteFrames  int64     `json:"incomplete_frames"`
	TransientFailures int64     `json:"transient_failures"`
	MatchedFrames     int64     `json:"matched_frames"`
	CellsMatched      int64     `json:"cells_matched"`
	ImagesWritten     int64     `json:"images_written"`
	ImageFailures     int64     `json:"image_failures"`
	LastDetection     time.Time `json:"last_detection"`
	LastError         string    `json:"last_error"`
	IndexPath         string    `json:"index_path"`
	LockPath          string    `json:"lock_path"`
}

// StopRequest stops the daemon session.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// DetectionsRequest fetches the newest indexed detections.
type DetectionsRequest struct {
	Limit int `json:"limit"`
}

// DetectionRecord is the wire form of one indexed detection.
type DetectionRecord struct {
	ID            int64     `json:"id"`
	SessionUUID   string    `json:"session_uuid"`
	Device        string    `json:"device"`
	FrameCounter  int64     `json:"frame_counter"`
	FrameName     string    `json:"frame_name"`
	CellIndex     int       `json:"cell_index"`
	MatchedPixels int64     `json:"matched_pixels"`
	FilePath      string    `json:"file_path"`
	CreatedAt     time.Time `json:"created_at"`
}

// DetectionsResponse contains detection rows plus lifetime totals.
type DetectionsResponse struct {
	Items    []DetectionRecord `json:"items"`
	Sessions int64             `json:"sessions"`
	Total    int64             `json:"total"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
