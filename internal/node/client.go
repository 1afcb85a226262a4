// Package node is a rate limited REST client for an algod node.
package node

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const tokenHeader = "X-Algo-API-Token"

var (
	// ErrNotFound is returned when algod answers 404.
	ErrNotFound = errors.New("resource not found")
	// ErrAccountNotFound is returned when the address has no ledger record.
	ErrAccountNotFound = errors.New("account does not exist")
)

// Config holds configuration for the algod client.
type Config struct {
	// BaseURL is the algod endpoint, e.g. https://testnet-api.algonode.cloud.
	BaseURL string

	// Token is sent as X-Algo-API-Token when non-empty.
	Token string

	// RateLimit is the number of requests per second allowed.
	RateLimit int

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RetryAttempts is the number of retries for idempotent requests.
	RetryAttempts int

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration
}

// DefaultConfig returns the public testnet configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:       "https://testnet-api.algonode.cloud",
		RateLimit:     10,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    500 * time.Millisecond,
	}
}

// Observer receives one call per completed HTTP exchange.
type Observer interface {
	ObserveNodeRequest(endpoint string, status int, elapsed time.Duration)
}

// Client talks to algod's v2 REST API.
type Client struct {
	cfg         Config
	httpClient  *http.Client
	rateLimiter *rate.Limiter
	observer    Observer
}

// NewClient creates an algod client. observer may be nil.
func NewClient(cfg Config, observer Observer) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = def.RetryDelay
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		rateLimiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
		observer:    observer,
	}
}

type call struct {
	endpoint    string
	method      string
	path        string
	body        []byte
	contentType string
	retry       bool
}

// do performs an HTTP request with rate limiting, retrying idempotent calls on
// transport errors, 429 and 5xx.
func (c *Client) do(ctx context.Context, cl call) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			if !cl.retry {
				break
			}
			if err := sleep(ctx, c.cfg.RetryDelay*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		var reqBody io.Reader
		if cl.body != nil {
			reqBody = bytes.NewReader(cl.body)
		}
		req, err := http.NewRequestWithContext(ctx, cl.method, c.cfg.BaseURL+cl.path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if cl.contentType != "" {
			req.Header.Set("Content-Type", cl.contentType)
		}
		if c.cfg.Token != "" {
			req.Header.Set(tokenHeader, c.cfg.Token)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			c.observe(cl.endpoint, 0, start)
			lastErr = fmt.Errorf("http request: %w", err)
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		c.observe(cl.endpoint, resp.StatusCode, start)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return respBody, nil
		}

		apiErr := &APIError{StatusCode: resp.StatusCode, Message: decodeMessage(respBody)}
		switch {
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %w", ErrNotFound, apiErr)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = apiErr
			continue
		default:
			return nil, apiErr
		}
	}

	if !cl.retry || c.cfg.RetryAttempts == 0 {
		return nil, lastErr
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", c.cfg.RetryAttempts+1, lastErr)
}

func (c *Client) observe(endpoint string, status int, start time.Time) {
	if c.observer != nil {
		c.observer.ObserveNodeRequest(endpoint, status, time.Since(start))
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	body, err := c.do(ctx, call{endpoint: endpoint, method: http.MethodGet, path: path, retry: true})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// Params fetches the current suggested transaction parameters.
func (c *Client) Params(ctx context.Context) (Params, error) {
	var p Params
	if err := c.getJSON(ctx, "params", "/v2/transactions/params", &p); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Account fetches the ledger record for address.
func (c *Client) Account(ctx context.Context, address string) (Account, error) {
	var a Account
	err := c.getJSON(ctx, "account", "/v2/accounts/"+url.PathEscape(address), &a)
	if err != nil {
		if errors.Is(err, ErrNotFound) || strings.Contains(err.Error(), "account does not exist") {
			return Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
		}
		return Account{}, err
	}
	return a, nil
}

// Asset fetches asset metadata by id.
func (c *Client) Asset(ctx context.Context, id uint64) (Asset, error) {
	var a Asset
	if err := c.getJSON(ctx, "asset", "/v2/assets/"+strconv.FormatUint(id, 10), &a); err != nil {
		return Asset{}, err
	}
	return a, nil
}

// SendRawTransaction submits signed transaction bytes and returns the id of
// the first transaction. Broadcasts are never retried.
func (c *Client) SendRawTransaction(ctx context.Context, raw []byte) (string, error) {
	body, err := c.do(ctx, call{
		endpoint:    "send",
		method:      http.MethodPost,
		path:        "/v2/transactions",
		body:        raw,
		contentType: "application/x-binary",
	})
	if err != nil {
		return "", err
	}
	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decode send response: %w", err)
	}
	return resp.TxID, nil
}

// Status returns the node's current status.
func (c *Client) Status(ctx context.Context) (Status, error) {
	var s Status
	if err := c.getJSON(ctx, "status", "/v2/status", &s); err != nil {
		return Status{}, err
	}
	return s, nil
}

// StatusAfterBlock blocks until the node has seen a round after round.
func (c *Client) StatusAfterBlock(ctx context.Context, round uint64) (Status, error) {
	var s Status
	path := "/v2/status/wait-for-block-after/" + strconv.FormatUint(round, 10)
	if err := c.getJSON(ctx, "wait_block", path, &s); err != nil {
		return Status{}, err
	}
	return s, nil
}

// PendingTransaction returns pool and confirmation info for txID.
func (c *Client) PendingTransaction(ctx context.Context, txID string) (PendingTransaction, error) {
	var p PendingTransaction
	path := "/v2/transactions/pending/" + url.PathEscape(txID) + "?format=json"
	if err := c.getJSON(ctx, "pending", path, &p); err != nil {
		return PendingTransaction{}, err
	}
	return p, nil
}

func decodeMessage(body []byte) string {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
