package model

// User is a row of the users table, looked up by wallet address.
type User struct {
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	WalletAddress string `json:"walletAddress"`
}
