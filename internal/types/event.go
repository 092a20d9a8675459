package types

// Envelope is one event pushed by the agent server. Properties stays loosely
// typed at the boundary; the ingestor decodes the fields each event kind
// actually carries.
type Envelope struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
}

// StatusEvent is a backend status/error notification. Next, when set, is the
// epoch-millisecond timestamp of the announced retry.
type StatusEvent struct {
	SessionID string   `json:"sessionID,omitempty"`
	Type      string   `json:"type"`
	Attempt   *int     `json:"attempt,omitempty"`
	Message   string   `json:"message,omitempty"`
	Next      *float64 `json:"next,omitempty"`
}
