package server

// HealthResponse is the body of /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	LogPath   string `json:"logPath"`
	LogExists bool   `json:"logExists"`
	LogSize   int64  `json:"logSize"`
	Error     string `json:"error,omitempty"`
}

// EntryRequest is the body accepted by POST /entries.
type EntryRequest struct {
	// Level defaults to Information.
	Level string `json:"level"`
	// Category defaults to the level's tag.
	Category string `json:"category"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}

// EntryResponse acknowledges an entry. Recorded is false when the level
// filter discarded it.
type EntryResponse struct {
	Accepted bool `json:"accepted"`
	Recorded bool `json:"recorded"`
}

// ErrorResponse represents the standardized JSON response for an API error.
type ErrorResponse struct {
	// Error is the short error code or status text.
	Error string `json:"error"`
	// Message is a descriptive error message.
	Message string `json:"message,omitempty"`
}
