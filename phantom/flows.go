package phantom

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/walletlink/internal/common"
	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Connect starts the handshake. On desktop it runs the whole login through the extension.
func (l *Link) Connect(ctx context.Context) error {
	if l.desktop() {
		return l.connectExtension(ctx)
	}
	flow, target, err := l.connectLink()
	if err != nil {
		return err
	}
	return l.navigate(ctx, flow, target)
}

// ConnectURL starts a connect flow and returns the link instead of opening it,
// for handing the handshake to another device.
func (l *Link) ConnectURL() (string, error) {
	_, target, err := l.connectLink()
	return target, err
}

func (l *Link) connectLink() (*model.PendingFlowContext, string, error) {
	flow, err := l.beginFlow(model.PendingFlowContext{Kind: model.FlowConnect})
	if err != nil {
		return nil, "", err
	}
	link, err := l.builder.Connect(flow.FlowID)
	if err != nil {
		l.clearFlow()
		return nil, "", fmt.Errorf("failed to build connect link: %w", err)
	}
	return flow, l.wrap(link), nil
}

// RequestSignIn asks the connected wallet to sign a fresh backend challenge.
func (l *Link) RequestSignIn(ctx context.Context) error {
	if l.desktop() {
		return l.connectExtension(ctx)
	}
	remote, err := l.keys.Remote()
	if err != nil {
		return err
	}
	return l.requestSignature(ctx, remote)
}

// requestSignature fetches the challenge for the connected address and sends the sign request.
func (l *Link) requestSignature(ctx context.Context, remote *session.Remote) error {
	challenge, err := l.challenge(ctx, remote.Address)
	if err != nil {
		return err
	}

	flow, err := l.beginFlow(model.PendingFlowContext{Kind: model.FlowSignMessage})
	if err != nil {
		return err
	}
	link, err := l.builder.SignMessage(flow.FlowID, remote, []byte(challenge.Message), deeplink.DisplayUTF8)
	if err != nil {
		l.clearFlow()
		return fmt.Errorf("failed to build sign request: %w", err)
	}
	if err := l.navigate(ctx, flow, l.wrap(link)); err != nil {
		return err
	}

	l.emit(model.Event{Type: model.EventSignRequested, Flow: flow.Kind, FlowID: flow.FlowID, Address: remote.Address})
	return nil
}

func (l *Link) challenge(ctx context.Context, address string) (*model.ChallengeResponse, error) {
	challenge, err := l.backend.GetWalletChallenge(ctx, address)
	if err != nil {
		return nil, err
	}
	// kept apart from cipher nonces; survives a relaunch until the login call returns
	if err := l.store.Set(storage.KeyChallengeNonce, challenge.Nonce); err != nil {
		return nil, fmt.Errorf("failed to store challenge nonce: %w", err)
	}
	return challenge, nil
}

// StartGatcha asks the wallet to sign a pack mint transaction.
func (l *Link) StartGatcha(ctx context.Context, packID, mintAddress, transaction string) error {
	return l.startSubmit(ctx, model.PendingFlowContext{
		Kind:        model.FlowGatcha,
		PackID:      packID,
		MintAddress: mintAddress,
	}, transaction)
}

// StartSell asks the wallet to sign a listing at price.
func (l *Link) StartSell(ctx context.Context, mintAddress, price, symbol, transaction string) error {
	amount, err := common.ParseSOLAmount(price)
	if err != nil {
		return fmt.Errorf("invalid price: %w", err)
	}
	return l.startSubmit(ctx, model.PendingFlowContext{
		Kind:        model.FlowSell,
		MintAddress: mintAddress,
		Price:       common.FormatSOL(amount),
		Symbol:      symbol,
	}, transaction)
}

// StartBuy asks the wallet to sign a purchase.
func (l *Link) StartBuy(ctx context.Context, mintAddress, transaction string) error {
	return l.startSubmit(ctx, model.PendingFlowContext{
		Kind:        model.FlowBuy,
		MintAddress: mintAddress,
	}, transaction)
}

// StartWithdraw asks the wallet to sign a withdrawal.
func (l *Link) StartWithdraw(ctx context.Context, withdrawID, transaction string) error {
	return l.startSubmit(ctx, model.PendingFlowContext{
		Kind:       model.FlowWithdraw,
		WithdrawID: withdrawID,
	}, transaction)
}

func (l *Link) startSubmit(ctx context.Context, p model.PendingFlowContext, transaction string) error {
	if transaction == "" {
		return errors.New("transaction cannot be empty")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	if l.desktop() {
		return l.submitExtension(ctx, p, transaction)
	}

	remote, err := l.keys.Remote()
	if err != nil {
		return err
	}
	flow, err := l.beginFlow(p)
	if err != nil {
		return err
	}
	link, err := l.builder.SignTransaction(flow.FlowID, remote, transaction)
	if err != nil {
		l.clearFlow()
		return fmt.Errorf("failed to build sign transaction link: %w", err)
	}
	return l.navigate(ctx, flow, l.wrap(link))
}

// beginFlow persists the flow context as one record before control leaves the process.
func (l *Link) beginFlow(p model.PendingFlowContext) (*model.PendingFlowContext, error) {
	if p.FlowID == "" {
		p.FlowID = uuid.NewString()
	}
	p.CreatedAt = l.now().UTC()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := storage.SetJSON(l.store, storage.KeyPendingFlow, p); err != nil {
		return nil, fmt.Errorf("failed to persist pending flow: %w", err)
	}
	l.log.Debug("pending flow stored", zap.String("flow", string(p.Kind)), zap.String("flowId", p.FlowID))
	return &p, nil
}

// pendingFlow returns the stored flow context, or nil.
func (l *Link) pendingFlow() (*model.PendingFlowContext, error) {
	var p model.PendingFlowContext
	err := storage.GetJSON(l.store, storage.KeyPendingFlow, &p)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PendingFlow returns the flow waiting for a wallet callback, or nil.
func (l *Link) PendingFlow() (*model.PendingFlowContext, error) {
	return l.pendingFlow()
}

func (l *Link) clearFlow() {
	if err := l.store.Delete(storage.KeyPendingFlow); err != nil {
		l.log.Warn("failed to clear pending flow", zap.Error(err))
	}
}

func (l *Link) wrap(link string) string {
	if l.settings.Platform == config.PlatformWebMobile {
		return l.builder.Relay(link)
	}
	return link
}

func (l *Link) navigate(ctx context.Context, flow *model.PendingFlowContext, target string) error {
	if l.navigator == nil {
		l.clearFlow()
		return ErrWalletUnreachable
	}
	if err := l.navigator.Navigate(ctx, target); err != nil {
		l.clearFlow()
		return fmt.Errorf("%w: %v", ErrWalletUnreachable, err)
	}
	l.log.Info("opened wallet", zap.String("flow", string(flow.Kind)), zap.String("flowId", flow.FlowID))
	return nil
}

// Reset logs out: it forgets the keypair, the wallet session, any pending flow and the token.
// With disconnect set the wallet is told to end its session first.
func (l *Link) Reset(ctx context.Context, disconnect bool) error {
	var navErr error
	if disconnect && !l.desktop() {
		if remote, err := l.keys.Remote(); err == nil {
			navErr = l.sendDisconnect(ctx, remote)
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.keys.Reset(); err != nil {
		return err
	}
	if err := l.store.Delete(
		storage.KeyPendingFlow,
		storage.KeyChallengeNonce,
		storage.KeyAuthToken,
		storage.KeyWallets,
		storage.KeyPendingURL,
		storage.KeyBridgeURL,
		storage.KeyLastCallbackURL,
	); err != nil {
		return fmt.Errorf("failed to reset wallet link: %w", err)
	}
	l.log.Info("wallet link reset")

	if navErr != nil {
		return fmt.Errorf("disconnect request not delivered: %w", navErr)
	}
	return nil
}

func (l *Link) sendDisconnect(ctx context.Context, remote *session.Remote) error {
	if l.navigator == nil {
		return ErrWalletUnreachable
	}
	link, err := l.builder.Disconnect("", remote)
	if err != nil {
		return err
	}
	return l.navigator.Navigate(ctx, l.wrap(link))
}
