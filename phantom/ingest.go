package phantom

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"go.uber.org/zap"
)

// Open queues a URL delivered by the OS "opened via URL" event.
func (l *Link) Open(raw string) error {
	select {
	case l.queue <- raw:
		return nil
	default:
		return ErrQueueFull
	}
}

// StashPendingURL leaves a callback for Resume when it arrives while the process is in the background.
func (l *Link) StashPendingURL(raw string) error {
	if !deeplink.HasPrefix(raw, l.builder.RedirectLink()) {
		return deeplink.ErrNotCallback
	}
	if err := l.store.Set(storage.KeyPendingURL, raw); err != nil {
		return fmt.Errorf("failed to stash pending url: %w", err)
	}
	return nil
}

// Resume queues the stashed callback, if any. The marker is cleared once the callback is handled.
func (l *Link) Resume() (bool, error) {
	raw, err := l.store.Get(storage.KeyPendingURL)
	if storage.IsNotFound(err) || (err == nil && raw == "") {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read pending url: %w", err)
	}
	return true, l.Open(raw)
}

// PollBridge takes a callback captured by the bridge page and queues it.
func (l *Link) PollBridge() (bool, error) {
	raw, err := l.store.Get(storage.KeyBridgeURL)
	if storage.IsNotFound(err) || (err == nil && raw == "") {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read bridge callback: %w", err)
	}
	if err := l.store.Delete(storage.KeyBridgeURL); err != nil {
		return false, fmt.Errorf("failed to take bridge callback: %w", err)
	}
	return true, l.Open(raw)
}

// Run feeds queued URLs through Handle until ctx is done.
// It checks the resume marker once at start and polls the bridge every BridgePollInterval.
func (l *Link) Run(ctx context.Context) error {
	if _, err := l.Resume(); err != nil {
		l.log.Warn("resume check failed", zap.Error(err))
	}

	var tick <-chan time.Time
	if l.settings.BridgePollInterval > 0 {
		ticker := time.NewTicker(l.settings.BridgePollInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw := <-l.queue:
			outcome, err := l.Handle(ctx, raw)
			l.logOutcome(outcome, err)
		case <-tick:
			if _, err := l.PollBridge(); err != nil {
				l.log.Warn("bridge poll failed", zap.Error(err))
			}
		}
	}
}

func (l *Link) logOutcome(outcome Outcome, err error) {
	switch {
	case err == nil:
		l.log.Info("wallet callback handled", zap.String("outcome", string(outcome)))
	case errors.Is(err, deeplink.ErrNotCallback), errors.Is(err, ErrDuplicateCallback):
		l.log.Debug("wallet callback skipped", zap.String("outcome", string(outcome)), zap.Error(err))
	default:
		l.log.Warn("wallet callback failed", zap.String("outcome", string(outcome)), zap.Error(err))
	}
}
