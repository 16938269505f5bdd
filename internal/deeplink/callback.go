package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/AlexZinkM/walletlink/internal/crypto"
	"github.com/AlexZinkM/walletlink/internal/session"

	"github.com/mr-tron/base58"
)

var (
	// ErrNotCallback is returned for a URL that is not addressed to our redirect link.
	ErrNotCallback = errors.New("url is not a wallet callback")
	// ErrMissingParams is returned when data or nonce is absent.
	ErrMissingParams = errors.New("callback is missing data or nonce")
)

// WalletError is a rejection reported by the wallet through errorCode and errorMessage.
type WalletError struct {
	Code    string
	Message string
}

func (e *WalletError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("wallet error %s", e.Code)
	}
	return fmt.Sprintf("wallet error %s: %s", e.Code, e.Message)
}

// Callback holds the query parameters of a wallet redirect.
type Callback struct {
	Raw          string
	Data         string
	Nonce        string
	RemoteKey    string // phantom_encryption_public_key, present on connect only
	ErrorCode    string
	ErrorMessage string
	FlowID       string

	query url.Values
}

// ParseCallback parses raw if it starts with the redirect prefix.
// Parameters may sit in the query or, for web redirects, in the fragment.
func ParseCallback(raw, prefix string) (*Callback, error) {
	if !HasPrefix(raw, prefix) {
		return nil, ErrNotCallback
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotCallback, err)
	}

	q := u.Query()
	if u.Fragment != "" {
		if frag, err := url.ParseQuery(u.Fragment); err == nil {
			for k, v := range frag {
				if _, ok := q[k]; !ok {
					q[k] = v
				}
			}
		}
	}

	return &Callback{
		Raw:          raw,
		Data:         q.Get("data"),
		Nonce:        q.Get("nonce"),
		RemoteKey:    q.Get("phantom_encryption_public_key"),
		ErrorCode:    q.Get("errorCode"),
		ErrorMessage: q.Get("errorMessage"),
		FlowID:       q.Get(FlowIDParam),
		query:        q,
	}, nil
}

// HasPrefix reports whether raw is addressed to the redirect link prefix.
func HasPrefix(raw, prefix string) bool {
	if prefix == "" || !strings.HasPrefix(raw, prefix) {
		return false
	}
	rest := raw[len(prefix):]
	if rest == "" || strings.HasSuffix(prefix, "/") {
		return true
	}
	switch rest[0] {
	case '/', '?', '#':
		return true
	}
	return false
}

// WalletError returns the wallet-reported error, or nil.
func (c *Callback) WalletError() *WalletError {
	if c.ErrorCode == "" && c.ErrorMessage == "" {
		return nil
	}
	return &WalletError{Code: c.ErrorCode, Message: c.ErrorMessage}
}

// HasSignatureParam reports a plaintext signature query parameter.
// Such callbacks are allowed through the duplicate guard.
func (c *Callback) HasSignatureParam() bool {
	return c.query.Get("signature") != ""
}

// Decrypt opens the data parameter. When the wallet omitted its public key the cached one is used.
// It returns the key that opened the payload.
func (c *Callback) Decrypt(keys *session.Manager) ([]byte, [crypto.KeySize]byte, error) {
	var remote [crypto.KeySize]byte
	if c.Data == "" || c.Nonce == "" {
		return nil, remote, ErrMissingParams
	}

	var err error
	if c.RemoteKey != "" {
		remote, err = crypto.DecodeKey(c.RemoteKey)
		if err != nil {
			return nil, remote, fmt.Errorf("invalid phantom_encryption_public_key: %w", err)
		}
	} else {
		remote, err = keys.RemoteKey()
		if err != nil {
			return nil, remote, err
		}
	}

	nonce, err := crypto.DecodeNonce(c.Nonce)
	if err != nil {
		return nil, remote, err
	}
	ciphertext, err := base58.Decode(c.Data)
	if err != nil {
		return nil, remote, fmt.Errorf("failed to decode data: %w", err)
	}

	plaintext, err := keys.Decrypt(remote, nonce, ciphertext)
	if err != nil {
		return nil, remote, err
	}
	return plaintext, remote, nil
}
