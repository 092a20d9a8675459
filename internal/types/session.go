package types

import "time"

// Session is the server-side view of a conversation. Timestamps are epoch
// milliseconds as reported on the wire.
type Session struct {
	ID        string  `json:"id"`
	Title     string  `json:"title,omitempty"`
	Directory string  `json:"directory,omitempty"`
	CreatedAt float64 `json:"created_at,omitempty"`
	UpdatedAt float64 `json:"updated_at,omitempty"`
}

// SessionRecord is a session the client has opened, persisted for the
// recents listing.
type SessionRecord struct {
	Session      *Session  `json:"session"`
	LastOpenedAt time.Time `json:"last_opened_at"`
}
