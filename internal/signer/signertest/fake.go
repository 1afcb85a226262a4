// Package signertest provides a scriptable Signer for tests.
package signertest

import (
	"context"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/congo-pay/algopay/internal/signer"
)

var _ signer.Signer = (*Fake)(nil)

// Fake returns unsigned SignedTxn envelopes so tests can decode what was sent.
type Fake struct {
	mu          sync.Mutex
	accounts    []string
	live        []string
	paired      bool
	connectErr  error
	signErr     error
	dropSig     bool
	requests    [][]signer.Request
	calls       map[string]int
	disconnects chan struct{}
}

// New returns a fake wallet holding accounts.
func New(accounts ...string) *Fake {
	return &Fake{
		accounts:    accounts,
		calls:       make(map[string]int),
		disconnects: make(chan struct{}, 1),
	}
}

// FailConnect makes Connect return err.
func (f *Fake) FailConnect(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
}

// RejectSigning makes SignTransactions return err.
func (f *Fake) RejectSigning(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signErr = err
}

// ShortChange makes SignTransactions return one signature fewer than requested.
func (f *Fake) ShortChange() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropSig = true
}

// Kick ends the live session from the wallet side.
func (f *Fake) Kick() {
	f.mu.Lock()
	f.live = nil
	f.mu.Unlock()
	select {
	case f.disconnects <- struct{}{}:
	default:
	}
}

// DropSilently ends the live session without emitting a disconnect event.
func (f *Fake) DropSilently() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = nil
}

// Calls returns how many times the named method ran.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// Requests returns every batch passed to SignTransactions.
func (f *Fake) Requests() [][]signer.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]signer.Request(nil), f.requests...)
}

func (f *Fake) Connect(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Connect"]++
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	f.paired = len(f.accounts) > 0
	f.live = append([]string(nil), f.accounts...)
	return append([]string(nil), f.accounts...), nil
}

func (f *Fake) Reconnect(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Reconnect"]++
	if !f.paired {
		return nil, nil
	}
	f.live = append([]string(nil), f.accounts...)
	return append([]string(nil), f.accounts...), nil
}

func (f *Fake) Disconnect(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Disconnect"]++
	f.paired = false
	f.live = nil
	return nil
}

func (f *Fake) Accounts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.live...)
}

func (f *Fake) Disconnects() <-chan struct{} { return f.disconnects }

func (f *Fake) SignTransactions(_ context.Context, reqs []signer.Request) ([][]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SignTransactions"]++
	f.requests = append(f.requests, append([]signer.Request(nil), reqs...))
	if f.signErr != nil {
		return nil, f.signErr
	}
	out := make([][]byte, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, msgpack.Encode(types.SignedTxn{Txn: r.Txn}))
	}
	if f.dropSig && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}
