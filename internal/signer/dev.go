package signer

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/mnemonic"
)

var _ Signer = (*Dev)(nil)

// Dev is a local signer for development and tests. It holds keys in memory
// and approves every request that names one of its accounts.
type Dev struct {
	mu          sync.Mutex
	accounts    []crypto.Account
	paired      bool
	connected   bool
	disconnects chan struct{}
}

// NewDev builds a dev signer from 25-word mnemonics. With none it generates
// a single throwaway account.
func NewDev(mnemonics ...string) (*Dev, error) {
	d := &Dev{disconnects: make(chan struct{}, 1)}
	for _, m := range mnemonics {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		sk, err := mnemonic.ToPrivateKey(m)
		if err != nil {
			return nil, fmt.Errorf("decode dev mnemonic: %w", err)
		}
		acct, err := crypto.AccountFromPrivateKey(sk)
		if err != nil {
			return nil, fmt.Errorf("derive dev account: %w", err)
		}
		d.accounts = append(d.accounts, acct)
	}
	if len(d.accounts) == 0 {
		d.accounts = append(d.accounts, crypto.GenerateAccount())
	}
	return d, nil
}

func (d *Dev) Connect(_ context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paired = true
	d.connected = true
	return d.addresses(), nil
}

func (d *Dev) Reconnect(_ context.Context) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.paired {
		return nil, nil
	}
	d.connected = true
	return d.addresses(), nil
}

func (d *Dev) Disconnect(_ context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paired = false
	d.connected = false
	return nil
}

func (d *Dev) Accounts() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil
	}
	return d.addresses()
}

func (d *Dev) Disconnects() <-chan struct{} { return d.disconnects }

// Kick drops the live session as if the wallet closed it. The pairing stays
// restorable through Reconnect.
func (d *Dev) Kick() {
	d.mu.Lock()
	d.connected = false
	d.mu.Unlock()
	notify(d.disconnects)
}

func (d *Dev) SignTransactions(_ context.Context, reqs []Request) ([][]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected {
		return nil, ErrNoSession
	}

	out := make([][]byte, 0, len(reqs))
	for i, req := range reqs {
		sender := req.Txn.Sender.String()
		acct, ok := d.account(sender)
		if !ok {
			return nil, fmt.Errorf("%w: txn %d sender %s is not held by this wallet", ErrRejected, i, sender)
		}
		for _, s := range req.Signers {
			if s != sender {
				return nil, fmt.Errorf("%w: txn %d asks for foreign signer %s", ErrRejected, i, s)
			}
		}
		_, stx, err := crypto.SignTransaction(acct.PrivateKey, req.Txn)
		if err != nil {
			return nil, fmt.Errorf("sign txn %d: %w", i, err)
		}
		out = append(out, stx)
	}
	return out, nil
}

func (d *Dev) addresses() []string {
	out := make([]string, len(d.accounts))
	for i, a := range d.accounts {
		out[i] = a.Address.String()
	}
	return out
}

func (d *Dev) account(address string) (crypto.Account, bool) {
	for _, a := range d.accounts {
		if a.Address.String() == address {
			return a, true
		}
	}
	return crypto.Account{}, false
}
