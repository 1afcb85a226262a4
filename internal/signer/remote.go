package signer

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RemoteConfig configures the wallet bridge client.
type RemoteConfig struct {
	BaseURL       string
	APIKey        string
	PrivateKeyPEM []byte
	PollInterval  time.Duration
	// Timeout bounds session calls. Signing waits on the wallet holder with no
	// deadline of its own.
	Timeout time.Duration
}

// RemoteError is a non-success answer from the wallet bridge.
type RemoteError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *RemoteError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("signer bridge error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("signer bridge error (%d): %s", e.StatusCode, e.Message)
}

type sessionResponse struct {
	Accounts []string `json:"accounts"`
}

type signItem struct {
	Txn     []byte   `json:"txn"`
	Signers []string `json:"signers"`
}

type signRequest struct {
	Txns []signItem `json:"txns"`
}

type signResponse struct {
	Signed [][]byte `json:"signed"`
}

const signPath = "/v1/sign"

var _ Signer = (*Remote)(nil)

// Remote talks to a wallet bridge over HTTP. Each request carries an RS256 JWT
// binding the uri and a hash of the body.
type Remote struct {
	baseURL      string
	apiKey       string
	privateKey   *rsa.PrivateKey
	httpClient   *http.Client
	signClient   *http.Client
	pollInterval time.Duration
	logger       *slog.Logger

	mu          sync.Mutex
	accounts    []string
	stopWatch   context.CancelFunc
	disconnects chan struct{}
}

// NewRemote parses the PEM key and builds a bridge client.
func NewRemote(cfg RemoteConfig, logger *slog.Logger) (*Remote, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("signer url is required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(cfg.PrivateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("parse signer private key: %w", err)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		privateKey:   key,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		signClient:   &http.Client{},
		pollInterval: cfg.PollInterval,
		logger:       logger,
		disconnects:  make(chan struct{}, 1),
	}, nil
}

func (r *Remote) Connect(ctx context.Context) ([]string, error) {
	var resp sessionResponse
	if err := r.call(ctx, http.MethodPost, "/v1/session/connect", nil, &resp); err != nil {
		return nil, err
	}
	r.bind(resp.Accounts)
	return resp.Accounts, nil
}

func (r *Remote) Reconnect(ctx context.Context) ([]string, error) {
	var resp sessionResponse
	err := r.call(ctx, http.MethodPost, "/v1/session/reconnect", nil, &resp)
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.bind(resp.Accounts)
	return resp.Accounts, nil
}

func (r *Remote) Disconnect(ctx context.Context) error {
	r.unbind()
	err := r.call(ctx, http.MethodPost, "/v1/session/disconnect", nil, nil)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	return err
}

func (r *Remote) Accounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.accounts...)
}

func (r *Remote) Disconnects() <-chan struct{} { return r.disconnects }

func (r *Remote) SignTransactions(ctx context.Context, reqs []Request) ([][]byte, error) {
	body := signRequest{Txns: make([]signItem, len(reqs))}
	for i, req := range reqs {
		body.Txns[i] = signItem{Txn: msgpack.Encode(req.Txn), Signers: req.Signers}
	}
	var resp signResponse
	if err := r.call(ctx, http.MethodPost, signPath, body, &resp); err != nil {
		return nil, err
	}
	return resp.Signed, nil
}

func (r *Remote) bind(accounts []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = append([]string(nil), accounts...)
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
	if len(accounts) == 0 {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.stopWatch = cancel
	go r.watch(ctx)
}

func (r *Remote) unbind() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts = nil
	if r.stopWatch != nil {
		r.stopWatch()
		r.stopWatch = nil
	}
}

// watch polls the bridge and signals a disconnect once the pairing is gone.
func (r *Remote) watch(ctx context.Context) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var resp sessionResponse
		err := r.call(ctx, http.MethodGet, "/v1/session", nil, &resp)
		if ctx.Err() != nil {
			return
		}
		if err != nil && !errors.Is(err, ErrNoSession) {
			r.logger.Warn("signer session poll failed", "error", err)
			continue
		}
		if err == nil && len(resp.Accounts) > 0 {
			r.mu.Lock()
			r.accounts = append([]string(nil), resp.Accounts...)
			r.mu.Unlock()
			continue
		}

		r.mu.Lock()
		if ctx.Err() != nil {
			r.mu.Unlock()
			return
		}
		r.accounts = nil
		r.stopWatch()
		r.stopWatch = nil
		r.mu.Unlock()
		r.logger.Info("signer ended the session")
		notify(r.disconnects)
		return
	}
}

func (r *Remote) call(ctx context.Context, method, path string, in, out any) error {
	var reqBody []byte
	if in != nil {
		var err error
		reqBody, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
	}

	token, err := r.signJWT(path, reqBody)
	if err != nil {
		return fmt.Errorf("sign JWT: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-API-KEY", r.apiKey)

	client := r.httpClient
	if path == signPath {
		client = r.signClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("signer request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read signer response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode signer response: %w", err)
		}
		return nil
	}

	remoteErr := &RemoteError{StatusCode: resp.StatusCode}
	if err := json.Unmarshal(respBody, remoteErr); err != nil || remoteErr.Message == "" {
		remoteErr.Message = strings.TrimSpace(string(respBody))
	}
	switch resp.StatusCode {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrRejected, remoteErr)
	case http.StatusUnauthorized, http.StatusNotFound, http.StatusGone:
		return fmt.Errorf("%w: %w", ErrNoSession, remoteErr)
	default:
		return remoteErr
	}
}

func (r *Remote) signJWT(uri string, body []byte) (string, error) {
	now := time.Now().Unix()
	sum := sha256.Sum256(body)

	claims := jwt.MapClaims{
		"uri":      uri,
		"nonce":    uuid.New().String(),
		"iat":      now,
		"exp":      now + 30,
		"sub":      r.apiKey,
		"bodyHash": hex.EncodeToString(sum[:]),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(r.privateKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
