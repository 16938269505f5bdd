package phantom

import (
	"context"
	"fmt"

	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// connectExtension runs connect, challenge, sign and login through the desktop provider.
func (l *Link) connectExtension(ctx context.Context) error {
	if l.provider == nil {
		return ErrProviderUnavailable
	}

	address, err := l.provider.Connect(ctx)
	if err != nil {
		return fmt.Errorf("extension connect failed: %w", err)
	}
	if err := deeplink.ValidateAddress(address); err != nil {
		return err
	}
	if err := l.store.Set(storage.KeyWalletAddress, address); err != nil {
		return fmt.Errorf("failed to store wallet address: %w", err)
	}
	l.log.Info("extension connected", zap.String("address", address))

	challenge, err := l.challenge(ctx, address)
	if err != nil {
		return err
	}
	signature, err := l.provider.SignMessage(ctx, []byte(challenge.Message), deeplink.DisplayUTF8)
	if err != nil {
		_ = l.store.Delete(storage.KeyChallengeNonce)
		return fmt.Errorf("extension sign message failed: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.login(ctx, nil, address, signature)
	return err
}

// submitExtension signs through the desktop provider and confirms right away.
func (l *Link) submitExtension(ctx context.Context, p model.PendingFlowContext, transaction string) error {
	if l.provider == nil {
		return ErrProviderUnavailable
	}

	p.FlowID = uuid.NewString()
	p.CreatedAt = l.now().UTC()

	signed, err := l.provider.SignTransaction(ctx, transaction)
	if err != nil {
		return fmt.Errorf("extension sign transaction failed: %w", err)
	}

	out := model.SubmitPayload{Transaction: signed, Flow: p}
	if tx, err := deeplink.DecodeTransaction(signed); err == nil {
		out.Signature = deeplink.FeePayerSignature(tx)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, err = l.submit(ctx, out, nil)
	return err
}
