package model

import "github.com/shopspring/decimal"

// Expense is a row of the expenses table. Read-only for this service.
type Expense struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"session_id,omitempty"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Date        *Timestamp      `json:"date,omitempty"`
}
