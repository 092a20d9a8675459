package types

// Tab is one open conversation in the client. SessionID is the join key to
// backend events; for tabs whose backend session creation failed it holds a
// locally allocated fallback id instead.
type Tab struct {
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Label     string `json:"label"`
	Icon      string `json:"icon,omitempty"`
}
