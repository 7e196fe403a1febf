package model

// SessionState is the lifecycle state of a session.
type SessionState string

const (
	SessionPending SessionState = "Pending"
	SessionActive  SessionState = "Active"
)

// Session is a row of the sessions table.
type Session struct {
	ID          string       `json:"id,omitempty"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	State       SessionState `json:"state"`
	CreatedAt   *Timestamp   `json:"created_at,omitempty"`
}

// IsActive reports whether the session has been activated.
func (s *Session) IsActive() bool {
	return s.State == SessionActive
}
