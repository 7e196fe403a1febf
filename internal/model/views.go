package model

// SessionSummary is a session as listed for one wallet.
type SessionSummary struct {
	Session
	IsJoined bool `json:"is_joined"`
}

// ParticipantView is a participant flattened with its user identity.
type ParticipantView struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	WalletAddress string  `json:"walletAddress"`
	Joined        bool    `json:"joined"`
	TotalSpent    float64 `json:"total_spent"`
}

// ExpenseView is an expense with its date rendered as canonical text.
type ExpenseView struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
}

// SessionDetails aggregates a session with its participants and expenses.
type SessionDetails struct {
	Session       *Session          `json:"session"`
	Participants  []ParticipantView `json:"participants"`
	Expenses      []ExpenseView     `json:"expenses"`
	TotalExpenses float64           `json:"total_expenses"`
}
