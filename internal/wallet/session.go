// Package wallet holds the connected-wallet session shared by every payment flow.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/congo-pay/algopay/internal/amount"
	"github.com/congo-pay/algopay/internal/node"
	"github.com/congo-pay/algopay/internal/signer"
)

var (
	// ErrNoAccountsFound is returned when the wallet pairs without exposing an account.
	ErrNoAccountsFound = errors.New("no accounts found in wallet")
	// ErrNotConnected is returned by Require when no account is bound.
	ErrNotConnected = errors.New("wallet not connected")
)

// AccountReader fetches ledger records.
type AccountReader interface {
	Account(ctx context.Context, address string) (node.Account, error)
}

// Session binds at most one account of the external wallet. It is safe for
// concurrent use; the wallet's live account list wins over cached state.
type Session struct {
	signer signer.Signer
	node   AccountReader
	logger *slog.Logger

	mu          sync.RWMutex
	account     string
	connectedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSession creates a session and starts listening for wallet-side disconnects.
// Call Close to stop the listener.
func NewSession(s signer.Signer, n AccountReader, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	sess := &Session{
		signer: s,
		node:   n,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go sess.listen()
	return sess
}

// Close stops the disconnect listener. It does not end the wallet pairing.
func (s *Session) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

func (s *Session) listen() {
	defer close(s.done)
	events := s.signer.Disconnects()
	for {
		select {
		case <-s.stop:
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if prev := s.clear(); prev != "" {
				s.logger.Info("wallet disconnected by signer", "account", prev)
			}
		}
	}
}

// Connect pairs with the wallet and binds its first account.
func (s *Session) Connect(ctx context.Context) (Connection, error) {
	accounts, err := s.signer.Connect(ctx)
	if err != nil {
		return Connection{}, fmt.Errorf("connect wallet: %w", err)
	}
	if len(accounts) == 0 {
		return Connection{}, ErrNoAccountsFound
	}
	return s.bind(ctx, accounts), nil
}

// Reconnect restores a previous pairing without user interaction. The bool
// is false when there was nothing to restore.
func (s *Session) Reconnect(ctx context.Context) (Connection, bool, error) {
	accounts, err := s.signer.Reconnect(ctx)
	if err != nil {
		return Connection{}, false, fmt.Errorf("reconnect wallet: %w", err)
	}
	if len(accounts) == 0 {
		return Connection{}, false, nil
	}
	return s.bind(ctx, accounts), true, nil
}

// Disconnect clears the session and ends the wallet pairing. Calling it
// without a session is a no-op on local state.
func (s *Session) Disconnect(ctx context.Context) error {
	prev := s.clear()
	if err := s.signer.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect wallet: %w", err)
	}
	if prev != "" {
		s.logger.Info("wallet disconnected", "account", prev)
	}
	return nil
}

// IsConnected reports whether an account is bound.
func (s *Session) IsConnected() bool {
	_, ok := s.CurrentAccount()
	return ok
}

// CurrentAccount returns the bound account after reconciling with the wallet.
func (s *Session) CurrentAccount() (string, bool) {
	live := s.signer.Accounts()

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(live) == 0 {
		s.account = ""
		return "", false
	}
	for _, a := range live {
		if a == s.account {
			return a, true
		}
	}
	s.account = live[0]
	if s.connectedAt.IsZero() {
		s.connectedAt = time.Now().UTC()
	}
	return s.account, true
}

// State is a snapshot of the session.
type State struct {
	Connected   bool      `json:"connected"`
	Account     string    `json:"account,omitempty"`
	ConnectedAt time.Time `json:"connected_at,omitempty"`
}

// State reconciles with the wallet and returns a snapshot.
func (s *Session) State() State {
	acct, ok := s.CurrentAccount()
	if !ok {
		return State{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{Connected: true, Account: acct, ConnectedAt: s.connectedAt}
}

// Require returns the bound account or ErrNotConnected.
func (s *Session) Require() (string, error) {
	acct, ok := s.CurrentAccount()
	if !ok {
		return "", ErrNotConnected
	}
	return acct, nil
}

func (s *Session) bind(ctx context.Context, accounts []string) Connection {
	now := time.Now().UTC()
	s.mu.Lock()
	s.account = accounts[0]
	s.connectedAt = now
	s.mu.Unlock()

	conn := Connection{
		Account:     accounts[0],
		Accounts:    append([]string(nil), accounts...),
		ConnectedAt: now,
	}
	acct, err := s.node.Account(ctx, conn.Account)
	switch {
	case err == nil:
		balance := amount.FromBaseUnits(acct.Amount, amount.NativeDecimals)
		conn.Balance = &balance
	case errors.Is(err, node.ErrAccountNotFound):
		var zero float64
		conn.Balance = &zero
	default:
		s.logger.Warn("fetch balance on connect", "account", conn.Account, "error", err)
	}
	s.logger.Info("wallet connected", "account", conn.Account)
	return conn
}

func (s *Session) clear() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.account
	s.account = ""
	s.connectedAt = time.Time{}
	return prev
}
