package model

import "encoding/json"

// ChallengeResponse represents response for GET /auth/wallet/challenge
type ChallengeResponse struct {
	Message string `json:"message"`
	Nonce   string `json:"nonce"`
}

// WalletLoginRequest represents request for POST /auth/wallet
type WalletLoginRequest struct {
	Provider  string `json:"provider"`
	Address   string `json:"address"`
	Name      string `json:"name"`
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
}

// WalletLoginResponse represents response for POST /auth/wallet
type WalletLoginResponse struct {
	Token            string   `json:"token"`
	AuthID           string   `json:"authId"`
	Wallets          []Wallet `json:"wallets"`
	CustodialWallets []Wallet `json:"custodialWallets"`
}

// GatchaConfirmRequest represents request for POST /gatcha/{packId}/confirm
type GatchaConfirmRequest struct {
	MintAddress string `json:"mintAddress"`
	SignedTx    string `json:"signedTx"`
}

// SellConfirmRequest represents request for POST /auth/nft/{mint}/confirm
type SellConfirmRequest struct {
	SignedTx string `json:"signedTx"`
	Price    string `json:"price"`
	Symbol   string `json:"symbol"`
}

// BuyConfirmRequest represents request for POST /auth/nft/{mint}/confirm-buy
type BuyConfirmRequest struct {
	SignedTx string `json:"signedTx"`
}

// WithdrawConfirmRequest represents request for POST /withdraw/confirm
type WithdrawConfirmRequest struct {
	WithdrawID string `json:"withdrawId"`
	SignedTx   string `json:"signedTx"`
}

// ConfirmResponse is the body of a successful confirm call, kept verbatim for the UI
type ConfirmResponse = json.RawMessage
