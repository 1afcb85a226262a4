// Package signer abstracts the external wallet that holds keys and approves
// transactions. The service never sees private keys in remote mode.
package signer

import (
	"context"
	"errors"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

var (
	// ErrRejected is returned when the wallet declines a request.
	ErrRejected = errors.New("signer rejected the request")
	// ErrNoSession is returned when the wallet has no live pairing.
	ErrNoSession = errors.New("signer session is not established")
)

// Request is one transaction to sign together with the addresses expected to sign it.
type Request struct {
	Txn     types.Transaction
	Signers []string
}

// Signer is a session with an external wallet.
type Signer interface {
	// Connect pairs with the wallet and returns its accounts.
	Connect(ctx context.Context) ([]string, error)
	// Reconnect silently restores a previous pairing. It returns no accounts
	// when there is nothing to restore.
	Reconnect(ctx context.Context) ([]string, error)
	// Disconnect tears down the pairing.
	Disconnect(ctx context.Context) error
	// Accounts returns the accounts of the live pairing.
	Accounts() []string
	// SignTransactions signs the ordered set and returns the encoded signed
	// transactions in the same order.
	SignTransactions(ctx context.Context, reqs []Request) ([][]byte, error)
	// Disconnects fires when the wallet ends the session on its own.
	Disconnects() <-chan struct{}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
