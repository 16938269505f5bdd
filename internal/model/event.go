package model

import "encoding/json"

// EventType names what a finished flow reports to the UI
type EventType string

const (
	EventSignRequested     EventType = "sign-requested"
	EventLoginSucceeded    EventType = "login-succeeded"
	EventLoginFailed       EventType = "login-failed"
	EventMintResult        EventType = "mint-result"
	EventSaleConfirmed     EventType = "sale-confirmed"
	EventPurchaseConfirmed EventType = "purchase-confirmed"
	EventWithdrawConfirmed EventType = "withdraw-confirmed"
	EventSubmitFailed      EventType = "submit-failed"
	EventWalletError       EventType = "wallet-error"
)

// Event is emitted once per terminal callback outcome the UI has to show
type Event struct {
	Type    EventType       `json:"type"`
	Flow    FlowKind        `json:"flow,omitempty"`
	FlowID  string          `json:"flowId,omitempty"`
	Address string          `json:"address,omitempty"`
	Reason  string          `json:"reason,omitempty"`
	Message string          `json:"message,omitempty"`
	Wallets []Wallet        `json:"wallets,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}
