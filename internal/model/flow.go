package model

import (
	"fmt"
	"time"
)

// FlowKind identifies which wallet round trip is in flight
type FlowKind string

const (
	FlowConnect     FlowKind = "connect"
	FlowSignMessage FlowKind = "sign-message"
	FlowGatcha      FlowKind = "sign-and-submit-gatcha"
	FlowSell        FlowKind = "sign-and-submit-sell"
	FlowBuy         FlowKind = "sign-and-submit-buy"
	FlowWithdraw    FlowKind = "sign-and-submit-withdraw"
)

// IsSubmit reports whether the flow ends with a signed transaction sent to a confirm endpoint.
func (k FlowKind) IsSubmit() bool {
	switch k {
	case FlowGatcha, FlowSell, FlowBuy, FlowWithdraw:
		return true
	}
	return false
}

// PendingFlowContext is persisted before navigating to the wallet and read back by the callback.
// It is stored as one JSON record so it is never half written.
type PendingFlowContext struct {
	FlowID    string    `json:"flowId"`
	Kind      FlowKind  `json:"flowKind"`
	CreatedAt time.Time `json:"createdAt"`

	PackID      string `json:"packId,omitempty"`
	MintAddress string `json:"mintAddress,omitempty"`
	Price       string `json:"price,omitempty"`
	Symbol      string `json:"symbol,omitempty"`
	WithdrawID  string `json:"withdrawId,omitempty"`
}

// Validate checks that the correlation fields the flow's confirm call needs are present.
func (p *PendingFlowContext) Validate() error {
	switch p.Kind {
	case FlowConnect, FlowSignMessage:
		return nil
	case FlowGatcha:
		if p.PackID == "" || p.MintAddress == "" {
			return fmt.Errorf("gatcha flow requires packId and mintAddress")
		}
	case FlowSell:
		if p.MintAddress == "" || p.Price == "" || p.Symbol == "" {
			return fmt.Errorf("sell flow requires mintAddress, price and symbol")
		}
	case FlowBuy:
		if p.MintAddress == "" {
			return fmt.Errorf("buy flow requires mintAddress")
		}
	case FlowWithdraw:
		if p.WithdrawID == "" {
			return fmt.Errorf("withdraw flow requires withdrawId")
		}
	default:
		return fmt.Errorf("unknown flow kind %q", p.Kind)
	}
	return nil
}

// Expired reports whether the context is older than ttl at now.
func (p *PendingFlowContext) Expired(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return now.Sub(p.CreatedAt) > ttl
}
