package model

// Participant is a row of the sessions_users join table.
// Session and User are only populated when the query embeds them.
type Participant struct {
	SessionID  string     `json:"session_id"`
	UserID     string     `json:"user_id"`
	Joined     bool       `json:"joined"`
	TotalSpent float64    `json:"total_spent"`
	LastUpdate *Timestamp `json:"last_update,omitempty"`

	Session *Session `json:"sessions,omitempty"`
	User    *User    `json:"users,omitempty"`
}

// NewParticipant is an invitation passed to session creation.
type NewParticipant struct {
	WalletAddress string `json:"walletAddress"`
	Joined        bool   `json:"joined"`
}
