package model

// WalletBalance represents response for GET /phantom/balance
type WalletBalance struct {
	Address  string `json:"address"`
	SOL      string `json:"sol"`
	Lamports uint64 `json:"lamports"`
}
