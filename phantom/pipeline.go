package phantom

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexZinkM/walletlink/internal/client"
	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"go.uber.org/zap"
)

// ErrUnknownPayload is returned for a decrypted callback that matches no flow.
var ErrUnknownPayload = errors.New("unrecognized wallet payload")

// Outcome is the terminal state a callback reached.
type Outcome string

const (
	OutcomeRejected      Outcome = "rejected"
	OutcomeWalletError   Outcome = "wallet-error"
	OutcomeDecryptFailed Outcome = "decrypt-failed"
	OutcomeParseFailed   Outcome = "parse-failed"
	OutcomeUnknown       Outcome = "unknown"
	OutcomeConnectFailed Outcome = "connect-failed"
	OutcomeSignRequested Outcome = "sign-requested"
	OutcomeLoggedIn      Outcome = "logged-in"
	OutcomeLoginFailed   Outcome = "login-failed"
	OutcomeSubmitted     Outcome = "submitted"
	OutcomeSubmitFailed  Outcome = "submit-failed"
)

// Handle runs one callback URL through the pipeline:
// marker check, duplicate guard, wallet error, decrypt, classify and dispatch.
// The pending URL marker is cleared whatever the outcome.
func (l *Link) Handle(ctx context.Context, raw string) (Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	defer l.clearPendingURL()

	cb, err := deeplink.ParseCallback(raw, l.builder.RedirectLink())
	if err != nil {
		l.log.Debug("ignoring url", zap.Error(err))
		return OutcomeRejected, err
	}

	// must run before any decryption
	last, err := l.store.Get(storage.KeyLastCallbackURL)
	if err != nil && !storage.IsNotFound(err) {
		return OutcomeRejected, fmt.Errorf("failed to read last callback: %w", err)
	}
	if raw == last && !cb.HasSignatureParam() {
		l.log.Info("duplicate wallet callback rejected", zap.String("flowId", cb.FlowID))
		return OutcomeRejected, ErrDuplicateCallback
	}
	if err := l.store.Set(storage.KeyLastCallbackURL, raw); err != nil {
		return OutcomeRejected, fmt.Errorf("failed to record callback: %w", err)
	}

	pending := l.matchFlow(cb.FlowID)

	if werr := cb.WalletError(); werr != nil {
		kind, id := flowFields(pending)
		l.log.Warn("wallet reported an error",
			zap.String("flow", string(kind)),
			zap.String("code", werr.Code),
			zap.String("message", werr.Message),
		)
		l.finish(pending)
		l.emit(model.Event{Type: model.EventWalletError, Flow: kind, FlowID: id, Reason: werr.Code, Message: werr.Message})
		return OutcomeWalletError, werr
	}

	plaintext, remoteKey, err := cb.Decrypt(l.keys)
	if err != nil {
		l.log.Warn("failed to decrypt wallet callback", zap.Error(err))
		l.finish(pending)
		return OutcomeDecryptFailed, err
	}
	defer clear(plaintext)

	payload, err := deeplink.DecodePayload(plaintext, pending)
	if err != nil {
		l.log.Warn("failed to parse wallet payload", zap.Error(err))
		l.finish(pending)
		return OutcomeParseFailed, err
	}
	l.log.Info("wallet callback classified", zap.String("payload", model.PayloadKind(payload)))

	switch p := payload.(type) {
	case model.ConnectPayload:
		return l.onConnect(ctx, p, remoteKey, pending)
	case model.SignMessagePayload:
		return l.onSignature(ctx, p, pending)
	case model.SubmitPayload:
		return l.submit(ctx, p, pending)
	case model.UnknownPayload:
		l.log.Warn("unrecognized wallet payload", zap.Strings("fields", p.Fields))
	}
	return OutcomeUnknown, ErrUnknownPayload
}

// matchFlow returns the pending flow if this callback may use it.
// An expired context is dropped; one started by a different flow is left for its own callback.
func (l *Link) matchFlow(flowID string) *model.PendingFlowContext {
	p, err := l.pendingFlow()
	if err != nil {
		l.log.Warn("unreadable pending flow, discarding", zap.Error(err))
		l.clearFlow()
		return nil
	}
	if p == nil {
		return nil
	}
	if p.Expired(l.now(), l.settings.PendingFlowTTL) {
		l.log.Info("pending flow expired", zap.String("flow", string(p.Kind)), zap.String("flowId", p.FlowID))
		l.clearFlow()
		return nil
	}
	if flowID != "" && p.FlowID != "" && flowID != p.FlowID {
		l.log.Info("callback belongs to another flow",
			zap.String("flowId", flowID),
			zap.String("pendingFlowId", p.FlowID),
		)
		return nil
	}
	return p
}

// finish drops the pending flow when the callback settled it.
func (l *Link) finish(p *model.PendingFlowContext) {
	if p != nil {
		l.clearFlow()
	}
}

func (l *Link) clearPendingURL() {
	if err := l.store.Delete(storage.KeyPendingURL); err != nil {
		l.log.Warn("failed to clear pending url", zap.Error(err))
	}
}

func (l *Link) onConnect(ctx context.Context, p model.ConnectPayload, remoteKey [crypto.KeySize]byte, pending *model.PendingFlowContext) (Outcome, error) {
	fail := func(err error) (Outcome, error) {
		l.finish(pending)
		l.emit(model.Event{Type: model.EventLoginFailed, Flow: model.FlowConnect, Reason: string(ReasonGeneric), Message: err.Error()})
		return OutcomeConnectFailed, err
	}

	if err := deeplink.ValidateAddress(p.PublicKey); err != nil {
		return fail(err)
	}
	remote := session.Remote{PublicKey: remoteKey, Session: p.Session, Address: p.PublicKey}
	if err := l.keys.SetRemote(remote); err != nil {
		return fail(err)
	}
	l.log.Info("wallet connected", zap.String("address", remote.Address))

	if err := l.requestSignature(ctx, &remote); err != nil {
		return fail(err)
	}
	return OutcomeSignRequested, nil
}

func (l *Link) onSignature(ctx context.Context, p model.SignMessagePayload, pending *model.PendingFlowContext) (Outcome, error) {
	address, err := l.Address()
	if err != nil {
		l.finish(pending)
		l.emit(model.Event{Type: model.EventLoginFailed, Flow: model.FlowSignMessage, Reason: string(ReasonGeneric), Message: err.Error()})
		return OutcomeLoginFailed, err
	}
	return l.login(ctx, pending, address, p.Signature)
}

// login finishes the challenge with the backend and stores the token and wallets.
func (l *Link) login(ctx context.Context, pending *model.PendingFlowContext, address, signature string) (Outcome, error) {
	_, flowID := flowFields(pending)
	defer l.finish(pending)

	nonce, err := l.store.Get(storage.KeyChallengeNonce)
	if err != nil && !storage.IsNotFound(err) {
		return OutcomeLoginFailed, fmt.Errorf("failed to read challenge nonce: %w", err)
	}
	token, err := l.Token()
	if err != nil {
		return OutcomeLoginFailed, err
	}

	resp, err := l.backend.WalletLogin(ctx, token, model.WalletLoginRequest{
		Provider:  walletProvider,
		Address:   address,
		Name:      walletName,
		Signature: signature,
		Nonce:     nonce,
	})
	if delErr := l.store.Delete(storage.KeyChallengeNonce); delErr != nil {
		l.log.Warn("failed to clear challenge nonce", zap.Error(delErr))
	}
	if err != nil {
		reason := ClassifyLoginFailure(err)
		l.log.Warn("wallet login failed", zap.String("reason", string(reason)), zap.Error(err))
		l.emit(model.Event{
			Type:    model.EventLoginFailed,
			Flow:    model.FlowSignMessage,
			FlowID:  flowID,
			Address: address,
			Reason:  string(reason),
			Message: errorMessage(err),
		})
		return OutcomeLoginFailed, err
	}

	if resp.Token != "" {
		if err := l.store.Set(storage.KeyAuthToken, resp.Token); err != nil {
			return OutcomeLoginFailed, fmt.Errorf("failed to store token: %w", err)
		}
	}
	wallets := model.MergeWallets(resp.Wallets, resp.CustodialWallets)
	if err := storage.SetJSON(l.store, storage.KeyWallets, wallets); err != nil {
		return OutcomeLoginFailed, err
	}

	l.log.Info("wallet login succeeded", zap.String("address", address), zap.Int("wallets", len(wallets)))
	l.emit(model.Event{
		Type:    model.EventLoginSucceeded,
		Flow:    model.FlowSignMessage,
		FlowID:  flowID,
		Address: address,
		Wallets: wallets,
	})
	return OutcomeLoggedIn, nil
}

// submit forwards the signed transaction to the confirm endpoint of its flow.
// settled is the persisted context the callback matched, nil when nothing was persisted.
func (l *Link) submit(ctx context.Context, p model.SubmitPayload, settled *model.PendingFlowContext) (Outcome, error) {
	defer l.finish(settled)

	token, err := l.Token()
	if err != nil {
		return OutcomeSubmitFailed, err
	}

	flow := p.Flow
	var (
		res model.ConfirmResponse
		ev  model.EventType
	)
	switch flow.Kind {
	case model.FlowGatcha:
		ev = model.EventMintResult
		res, err = l.backend.ConfirmGatcha(ctx, token, flow.PackID, model.GatchaConfirmRequest{
			MintAddress: flow.MintAddress,
			SignedTx:    p.Transaction,
		})
	case model.FlowSell:
		ev = model.EventSaleConfirmed
		res, err = l.backend.ConfirmSell(ctx, token, flow.MintAddress, model.SellConfirmRequest{
			SignedTx: p.Transaction,
			Price:    flow.Price,
			Symbol:   flow.Symbol,
		})
	case model.FlowBuy:
		ev = model.EventPurchaseConfirmed
		res, err = l.backend.ConfirmBuy(ctx, token, flow.MintAddress, model.BuyConfirmRequest{
			SignedTx: p.Transaction,
		})
	case model.FlowWithdraw:
		ev = model.EventWithdrawConfirmed
		res, err = l.backend.ConfirmWithdraw(ctx, token, model.WithdrawConfirmRequest{
			WithdrawID: flow.WithdrawID,
			SignedTx:   p.Transaction,
		})
	default:
		return OutcomeSubmitFailed, fmt.Errorf("flow %q does not submit a transaction", flow.Kind)
	}

	if err != nil {
		l.log.Warn("confirm failed", zap.String("flow", string(flow.Kind)), zap.Error(err))
		l.emit(model.Event{Type: model.EventSubmitFailed, Flow: flow.Kind, FlowID: flow.FlowID, Message: errorMessage(err)})
		return OutcomeSubmitFailed, err
	}

	l.log.Info("transaction confirmed",
		zap.String("flow", string(flow.Kind)),
		zap.String("flowId", flow.FlowID),
		zap.String("signature", p.Signature),
	)
	l.emit(model.Event{Type: ev, Flow: flow.Kind, FlowID: flow.FlowID, Result: res})
	return OutcomeSubmitted, nil
}

func flowFields(p *model.PendingFlowContext) (model.FlowKind, string) {
	if p == nil {
		return "", ""
	}
	return p.Kind, p.FlowID
}

// errorMessage is the text shown to the user for err.
func errorMessage(err error) string {
	if be, ok := client.IsBackendError(err); ok {
		return be.Message
	}
	return err.Error()
}
