package types

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TokenUsage mirrors the token accounting the server reports per assistant
// message.
type TokenUsage struct {
	Input     int `json:"input"`
	Output    int `json:"output"`
	Reasoning int `json:"reasoning,omitempty"`
}

// MessageTime carries created/completed timestamps in epoch milliseconds.
type MessageTime struct {
	Created   float64  `json:"created,omitempty"`
	Completed *float64 `json:"completed,omitempty"`
}

// Message is one entry in a session conversation. Content accumulates
// streamed text deltas; Parts carries the typed sub-units keyed by id.
type Message struct {
	ID         string       `json:"id"`
	Role       string       `json:"role"`
	Content    string       `json:"content"`
	Parts      []Part       `json:"parts,omitempty"`
	ModelID    string       `json:"modelID,omitempty"`
	ProviderID string       `json:"providerID,omitempty"`
	Cost       *float64     `json:"cost,omitempty"`
	Tokens     *TokenUsage  `json:"tokens,omitempty"`
	Time       *MessageTime `json:"time,omitempty"`
}
