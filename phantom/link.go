// Package phantom runs the wallet link handshake: it starts flows by sending the user to the
// wallet, takes the wallet's redirects back from every delivery path and settles them with the backend.
package phantom

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/AlexZinkM/walletlink/internal/config"
	"github.com/AlexZinkM/walletlink/internal/deeplink"
	"github.com/AlexZinkM/walletlink/internal/model"
	"github.com/AlexZinkM/walletlink/internal/session"
	"github.com/AlexZinkM/walletlink/internal/storage"

	"go.uber.org/zap"
)

var (
	// ErrWalletUnreachable is returned when the deep link could not be opened.
	ErrWalletUnreachable = errors.New("wallet app unreachable")
	// ErrProviderUnavailable is returned on desktop when no browser extension provider is present.
	ErrProviderUnavailable = errors.New("wallet extension provider unavailable")
	// ErrDuplicateCallback is returned for a redirect that was already processed.
	ErrDuplicateCallback = errors.New("duplicate wallet callback")
	// ErrQueueFull is returned when the ingestion queue cannot take another URL.
	ErrQueueFull = errors.New("callback queue is full")
)

const (
	queueSize      = 16
	walletProvider = "phantom"
	walletName     = "Phantom"
)

// Backend is the part of the marketplace REST API the handshake needs.
type Backend interface {
	GetWalletChallenge(ctx context.Context, address string) (*model.ChallengeResponse, error)
	WalletLogin(ctx context.Context, token string, req model.WalletLoginRequest) (*model.WalletLoginResponse, error)
	ConfirmGatcha(ctx context.Context, token, packID string, req model.GatchaConfirmRequest) (model.ConfirmResponse, error)
	ConfirmSell(ctx context.Context, token, mint string, req model.SellConfirmRequest) (model.ConfirmResponse, error)
	ConfirmBuy(ctx context.Context, token, mint string, req model.BuyConfirmRequest) (model.ConfirmResponse, error)
	ConfirmWithdraw(ctx context.Context, token string, req model.WithdrawConfirmRequest) (model.ConfirmResponse, error)
}

// Navigator opens a URL outside the process: the OS deep link handler or a browser.
// It may be called while a callback is being handled and must not call back into the Link.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

func (f NavigatorFunc) Navigate(ctx context.Context, url string) error { return f(ctx, url) }

// ExtensionProvider is the injected browser extension used on desktop instead of deep links.
type ExtensionProvider interface {
	Connect(ctx context.Context) (address string, err error)
	SignMessage(ctx context.Context, message []byte, display string) (signature string, err error)
	SignTransaction(ctx context.Context, transaction string) (signed string, err error)
}

// BalanceReader looks up the connected wallet's balance.
type BalanceReader interface {
	GetBalance(ctx context.Context, address string) (*model.WalletBalance, error)
}

// Settings is the subset of configuration the link reads.
type Settings struct {
	Platform           string
	PendingFlowTTL     time.Duration
	BridgePollInterval time.Duration
}

// SettingsFromConfig picks the link settings out of the application config.
func SettingsFromConfig(c *config.Config) Settings {
	return Settings{
		Platform:           c.Platform,
		PendingFlowTTL:     c.PendingFlowTTL,
		BridgePollInterval: c.BridgePollInterval,
	}
}

// Link is the wallet link session. Build one per install with New.
type Link struct {
	settings Settings
	keys     *session.Manager
	builder  *deeplink.Builder
	store    storage.Store
	backend  Backend

	log       *zap.Logger
	onEvent   func(model.Event)
	navigator Navigator
	provider  ExtensionProvider
	balances  BalanceReader
	now       func() time.Time

	// mu serializes callback handling so the duplicate check and the marker update are one step
	mu    sync.Mutex
	queue chan string
}

// Option configures a Link.
type Option func(*Link)

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(l *Link) {
		if log != nil {
			l.log = log
		}
	}
}

// WithEvents registers the UI event callback.
func WithEvents(fn func(model.Event)) Option {
	return func(l *Link) { l.onEvent = fn }
}

// WithNavigator sets how deep links are opened.
func WithNavigator(n Navigator) Option {
	return func(l *Link) { l.navigator = n }
}

// WithExtension sets the desktop extension provider.
func WithExtension(p ExtensionProvider) Option {
	return func(l *Link) { l.provider = p }
}

// WithBalances sets the balance lookup.
func WithBalances(b BalanceReader) Option {
	return func(l *Link) { l.balances = b }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Link) { l.now = now }
}

// New creates a Link.
func New(settings Settings, keys *session.Manager, builder *deeplink.Builder, store storage.Store, backend Backend, opts ...Option) *Link {
	l := &Link{
		settings: settings,
		keys:     keys,
		builder:  builder,
		store:    store,
		backend:  backend,
		log:      zap.NewNop(),
		onEvent:  func(model.Event) {},
		now:      time.Now,
		queue:    make(chan string, queueSize),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.settings.Platform == "" {
		l.settings.Platform = config.PlatformNative
	}
	return l
}

func (l *Link) emit(ev model.Event) {
	l.log.Info("wallet link event",
		zap.String("type", string(ev.Type)),
		zap.String("flow", string(ev.Flow)),
		zap.String("flowId", ev.FlowID),
	)
	l.onEvent(ev)
}

func (l *Link) desktop() bool {
	return l.settings.Platform == config.PlatformDesktop
}

// Token returns the stored auth token, empty when logged out.
func (l *Link) Token() (string, error) {
	token, err := l.store.Get(storage.KeyAuthToken)
	if storage.IsNotFound(err) {
		return "", nil
	}
	return token, err
}

// Wallets returns the merged wallet list from the last login.
func (l *Link) Wallets() ([]model.Wallet, error) {
	var wallets []model.Wallet
	err := storage.GetJSON(l.store, storage.KeyWallets, &wallets)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	return wallets, err
}

// Address returns the connected wallet address.
func (l *Link) Address() (string, error) {
	addr, err := l.store.Get(storage.KeyWalletAddress)
	if storage.IsNotFound(err) || (err == nil && addr == "") {
		return "", session.ErrNotConnected
	}
	return addr, err
}

// Balance returns the SOL balance of the connected wallet.
func (l *Link) Balance(ctx context.Context) (*model.WalletBalance, error) {
	if l.balances == nil {
		return nil, errors.New("balance lookup is not configured")
	}
	addr, err := l.Address()
	if err != nil {
		return nil, err
	}
	return l.balances.GetBalance(ctx, addr)
}
