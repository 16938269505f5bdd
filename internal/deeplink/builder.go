package deeplink

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/AlexZinkM/walletlink/internal/session"

	"github.com/mr-tron/base58"
)

// Method is a wallet deep link method
type Method string

const (
	MethodConnect         Method = "connect"
	MethodDisconnect      Method = "disconnect"
	MethodSignMessage     Method = "signMessage"
	MethodSignTransaction Method = "signTransaction"
)

// FlowIDParam is added to the redirect link and echoed back by the wallet.
const FlowIDParam = "flow_id"

// Message display encodings accepted by signMessage
const (
	DisplayUTF8 = "utf8"
	DisplayHex  = "hex"
)

// Options configures a Builder.
type Options struct {
	BaseURL      string // e.g. https://phantom.app/ul/v1
	AppURL       string // shown by the wallet and used for its metadata lookup
	RedirectLink string // where the wallet sends the user back
	Cluster      string // mainnet-beta, testnet or devnet
	RelayURL     string // same-origin relay page; empty means navigate directly
}

// Builder constructs outbound deep links to the wallet.
type Builder struct {
	opts Options
	keys *session.Manager
}

// NewBuilder creates a Builder that encrypts with keys.
func NewBuilder(opts Options, keys *session.Manager) *Builder {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &Builder{opts: opts, keys: keys}
}

type signMessageBody struct {
	Session string `json:"session"`
	Message string `json:"message"`
	Display string `json:"display"`
}

type signTransactionBody struct {
	Session     string `json:"session"`
	Transaction string `json:"transaction"`
}

type disconnectBody struct {
	Session string `json:"session"`
}

// Connect builds the initial handshake link. It carries no encrypted payload.
func (b *Builder) Connect(flowID string) (string, error) {
	return b.Build(MethodConnect, flowID, nil, nil)
}

// SignMessage asks the wallet to sign message bytes within the connected session.
func (b *Builder) SignMessage(flowID string, remote *session.Remote, message []byte, display string) (string, error) {
	if remote == nil {
		return "", session.ErrNotConnected
	}
	if display == "" {
		display = DisplayUTF8
	}
	return b.Build(MethodSignMessage, flowID, remote, signMessageBody{
		Session: remote.Session,
		Message: base58.Encode(message),
		Display: display,
	})
}

// SignTransaction asks the wallet to sign a base58 serialized transaction and hand it back.
func (b *Builder) SignTransaction(flowID string, remote *session.Remote, transaction string) (string, error) {
	if remote == nil {
		return "", session.ErrNotConnected
	}
	if transaction == "" {
		return "", fmt.Errorf("transaction cannot be empty")
	}
	return b.Build(MethodSignTransaction, flowID, remote, signTransactionBody{
		Session:     remote.Session,
		Transaction: transaction,
	})
}

// Disconnect ends the wallet session.
func (b *Builder) Disconnect(flowID string, remote *session.Remote) (string, error) {
	if remote == nil {
		return "", session.ErrNotConnected
	}
	return b.Build(MethodDisconnect, flowID, remote, disconnectBody{Session: remote.Session})
}

// Build composes a deep link for method. body is encrypted for remote; connect passes neither.
func (b *Builder) Build(method Method, flowID string, remote *session.Remote, body any) (string, error) {
	pub, err := b.keys.PublicKey()
	if err != nil {
		return "", fmt.Errorf("failed to ensure dapp keypair: %w", err)
	}

	redirect, err := b.redirectFor(flowID)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("dapp_encryption_public_key", pub)
	q.Set("redirect_link", redirect)

	if method == MethodConnect {
		nonce, err := b.keys.FreshNonce()
		if err != nil {
			return "", err
		}
		q.Set("app_url", b.opts.AppURL)
		q.Set("cluster", b.opts.Cluster)
		q.Set("nonce", base58.Encode(nonce[:]))
	} else {
		if remote == nil {
			return "", session.ErrNotConnected
		}
		plaintext, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("failed to marshal %s request: %w", method, err)
		}
		nonce, payload, err := b.keys.Encrypt(remote.PublicKey, plaintext)
		clear(plaintext)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt %s request: %w", method, err)
		}
		q.Set("nonce", nonce)
		q.Set("payload", payload)
	}

	return b.opts.BaseURL + "/" + string(method) + "?" + q.Encode(), nil
}

// Relay wraps target in the same-origin relay page when one is configured.
func (b *Builder) Relay(target string) string {
	if b.opts.RelayURL == "" {
		return target
	}
	sep := "?"
	if strings.Contains(b.opts.RelayURL, "?") {
		sep = "&"
	}
	return b.opts.RelayURL + sep + "target=" + url.QueryEscape(target)
}

// RedirectLink returns the configured callback prefix.
func (b *Builder) RedirectLink() string {
	return b.opts.RedirectLink
}

// BaseURL returns the wallet deep link base.
func (b *Builder) BaseURL() string {
	return b.opts.BaseURL
}

func (b *Builder) redirectFor(flowID string) (string, error) {
	if flowID == "" {
		return b.opts.RedirectLink, nil
	}
	u, err := url.Parse(b.opts.RedirectLink)
	if err != nil {
		return "", fmt.Errorf("invalid redirect link: %w", err)
	}
	q := u.Query()
	q.Set(FlowIDParam, flowID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
