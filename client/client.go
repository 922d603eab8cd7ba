// Package client is an embeddable Go SDK for the storefront HTTP API.
// It drives the same cart and checkout flows a web frontend runs,
// keeping the session-scoped ids (cart, checkout, order) in an explicit
// SessionStore instead of ambient browser storage.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ingenieria-del-software-2/kiosko-fiuba/pkg/httpclient"
)

// ErrOperationInFlight is returned when a mutation is attempted while
// another one is still running for the same session. The caller should
// wait for the first operation to finish rather than retry immediately.
var ErrOperationInFlight = errors.New("another operation is in flight for this session")

// Doer executes HTTP requests. Both httpclient.Client and
// httpclient.CircuitBreakerClient satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds the SDK settings.
type Config struct {
	// BaseURL is the storefront's base URL, e.g. "https://shop.example.com".
	BaseURL string

	// UserID, when set, is sent as the X-User-ID header on every request.
	// Anonymous sessions leave it empty.
	UserID string

	// HTTPClient overrides the transport. Defaults to a retrying client
	// behind a circuit breaker.
	HTTPClient Doer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Client is the low-level API client. The flow types (CartSession,
// CheckoutFlow) are built on top of it.
type Client struct {
	baseURL string
	userID  string
	http    Doer
	logger  *slog.Logger
}

// New creates a Client. Only BaseURL is required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: BaseURL is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	doer := cfg.HTTPClient
	if doer == nil {
		doer = httpclient.NewCircuitBreakerClient(
			httpclient.New(httpclient.DefaultConfig()),
			httpclient.DefaultCircuitBreakerConfig("storefront"),
			logger,
		)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		userID:  cfg.UserID,
		http:    doer,
		logger:  logger,
	}, nil
}

// envelope mirrors the server's response wrapper.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// do executes one API call. A non-nil body is sent as JSON; a non-nil
// out receives the decoded data half of the response envelope. Error
// responses are translated into AppErrors carrying the server's code.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		return httpclient.ParseResponseError(resp, "storefront")
	}

	defer func() { _ = resp.Body.Close() }()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Data == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}
