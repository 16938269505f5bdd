package client

import (
	"context"
	"fmt"

	"github.com/AlexZinkM/walletlink/internal/common"
	"github.com/AlexZinkM/walletlink/internal/model"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient is a client for working with Solana RPC
type SolanaClient struct {
	rpcClient *rpc.Client
	rpcURL    string
}

// NewSolanaClient creates a new Solana client for rpcURL.
func NewSolanaClient(rpcURL string) *SolanaClient {
	return &SolanaClient{
		rpcClient: rpc.New(rpcURL),
		rpcURL:    rpcURL,
	}
}

// GetBalance gets the SOL balance of a connected wallet address
func (c *SolanaClient) GetBalance(ctx context.Context, address string) (*model.WalletBalance, error) {
	owner, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, fmt.Errorf("invalid Solana address: %w", err)
	}

	balance, err := c.rpcClient.GetBalance(ctx, owner, rpc.CommitmentConfirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to get SOL balance: %w", err)
	}

	return &model.WalletBalance{
		Address:  owner.String(),
		SOL:      common.FormatSOL(common.LamportsToSOL(balance.Value)),
		Lamports: balance.Value,
	}, nil
}
