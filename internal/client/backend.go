package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/AlexZinkM/walletlink/internal/model"

	"github.com/pkg/errors"
)

const (
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 4 << 10
)

// BackendError is a non-2xx answer from the backend
type BackendError struct {
	Status  int
	Message string // taken from the {"error": ...} body when present
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

// IsBackendError returns the BackendError in err's chain, if any
func IsBackendError(err error) (*BackendError, bool) {
	var be *BackendError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// BackendClient calls the marketplace REST backend
type BackendClient struct {
	baseURL string
	client  *http.Client
}

// NewBackendClient creates a new backend client. httpClient may be nil.
func NewBackendClient(baseURL string, httpClient *http.Client) *BackendClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpClient,
	}
}

// GetWalletChallenge fetches the message to sign for address
func (c *BackendClient) GetWalletChallenge(ctx context.Context, address string) (*model.ChallengeResponse, error) {
	path := "/auth/wallet/challenge?address=" + url.QueryEscape(address)

	var out model.ChallengeResponse
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, errors.Wrap(err, "failed to get wallet challenge")
	}
	if out.Message == "" {
		return nil, errors.New("wallet challenge has no message")
	}
	return &out, nil
}

// WalletLogin finishes the challenge. A non-empty token links the wallet to that account.
func (c *BackendClient) WalletLogin(ctx context.Context, token string, req model.WalletLoginRequest) (*model.WalletLoginResponse, error) {
	var out model.WalletLoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/wallet", token, req, &out); err != nil {
		return nil, errors.Wrap(err, "wallet login failed")
	}
	return &out, nil
}

// ConfirmGatcha confirms a signed pack mint
func (c *BackendClient) ConfirmGatcha(ctx context.Context, token, packID string, req model.GatchaConfirmRequest) (model.ConfirmResponse, error) {
	return c.confirm(ctx, token, "/gatcha/"+url.PathEscape(packID)+"/confirm", req)
}

// ConfirmSell confirms a signed listing
func (c *BackendClient) ConfirmSell(ctx context.Context, token, mint string, req model.SellConfirmRequest) (model.ConfirmResponse, error) {
	return c.confirm(ctx, token, "/auth/nft/"+url.PathEscape(mint)+"/confirm", req)
}

// ConfirmBuy confirms a signed purchase
func (c *BackendClient) ConfirmBuy(ctx context.Context, token, mint string, req model.BuyConfirmRequest) (model.ConfirmResponse, error) {
	return c.confirm(ctx, token, "/auth/nft/"+url.PathEscape(mint)+"/confirm-buy", req)
}

// ConfirmWithdraw confirms a signed withdrawal
func (c *BackendClient) ConfirmWithdraw(ctx context.Context, token string, req model.WithdrawConfirmRequest) (model.ConfirmResponse, error) {
	return c.confirm(ctx, token, "/withdraw/confirm", req)
}

func (c *BackendClient) confirm(ctx context.Context, token, path string, body any) (model.ConfirmResponse, error) {
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, token, body, &out); err != nil {
		return nil, errors.Wrapf(err, "confirm %s failed", path)
	}
	return out, nil
}

func (c *BackendClient) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readBackendError(resp)
	}

	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return errors.Wrap(err, "failed to read response")
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

func readBackendError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var body model.ErrorResponse
	msg := ""
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		msg = body.Error
	} else if s := strings.TrimSpace(string(data)); s != "" && !strings.HasPrefix(s, "{") {
		msg = s
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &BackendError{Status: resp.StatusCode, Message: msg}
}
