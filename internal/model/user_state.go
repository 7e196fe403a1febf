package model

import "time"

// Actions a bot user can be prompted for.
const (
	AwaitingNothing = ""
	AwaitingWallet  = "wallet"
)

// UserState is what the bot remembers about a Telegram user between messages.
type UserState struct {
	UserID         int64     `json:"user_id"`
	WalletAddress  string    `json:"walletAddress,omitempty"`
	AwaitingAction string    `json:"awaiting_action,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
