// Package nodetest provides an in-memory algod double that counts calls.
package nodetest

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/congo-pay/algopay/internal/node"
)

// Fake implements the node reader and writer interfaces used across the service.
// The zero value is not usable; construct with New.
type Fake struct {
	mu sync.Mutex

	accounts   map[string]node.Account
	assets     map[uint64]node.Asset
	accountErr map[string]error
	assetErr   map[uint64]error

	params    node.Params
	paramsErr error

	round uint64

	sendErr error
	sent    [][]byte
	txID    string

	// confirmAfter is the number of pending polls answered before the
	// transaction reports a confirmed round. Negative means never.
	confirmAfter int
	poolError    string
	pendingPolls map[string]int

	calls map[string]int
}

// New returns a fake on testnet params at round 1000 that confirms on the first poll.
func New() *Fake {
	hash := sha256.Sum256([]byte("testnet-v1.0"))
	return &Fake{
		accounts:   make(map[string]node.Account),
		assets:     make(map[uint64]node.Asset),
		accountErr: make(map[string]error),
		assetErr:   make(map[uint64]error),
		params: node.Params{
			ConsensusVersion: "future",
			Fee:              0,
			GenesisHash:      hash[:],
			GenesisID:        "testnet-v1.0",
			LastRound:        1000,
			MinFee:           1000,
		},
		round:        1000,
		pendingPolls: make(map[string]int),
		calls:        make(map[string]int),
	}
}

// Fund registers an account record with a native balance and asset holdings.
func (f *Fake) Fund(address string, microAlgos uint64, holdings ...node.AssetHolding) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[address] = node.Account{Address: address, Amount: microAlgos, Assets: holdings}
}

// AddAsset registers asset metadata.
func (f *Fake) AddAsset(id uint64, name, unit string, decimals uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assets[id] = node.Asset{Index: id, Params: node.AssetParams{Name: name, UnitName: unit, Decimals: decimals}}
}

// FailAccount makes lookups of address return err.
func (f *Fake) FailAccount(address string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accountErr[address] = err
}

// FailAsset makes lookups of id return err.
func (f *Fake) FailAsset(id uint64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assetErr[id] = err
}

// FailParams makes Params return err.
func (f *Fake) FailParams(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paramsErr = err
}

// FailSend makes SendRawTransaction return err.
func (f *Fake) FailSend(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

// SetTxID fixes the id returned by SendRawTransaction.
func (f *Fake) SetTxID(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txID = id
}

// ConfirmAfter sets how many pending polls return unconfirmed first. Negative never confirms.
func (f *Fake) ConfirmAfter(polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmAfter = polls
}

// RejectFromPool makes pending lookups report a pool error.
func (f *Fake) RejectFromPool(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poolError = reason
}

// Calls returns how many times the named method ran.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

// Sent returns copies of every raw payload broadcast so far.
func (f *Fake) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	for i, b := range f.sent {
		out[i] = append([]byte(nil), b...)
	}
	return out
}

func (f *Fake) Account(_ context.Context, address string) (node.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Account"]++
	if err := f.accountErr[address]; err != nil {
		return node.Account{}, err
	}
	acct, ok := f.accounts[address]
	if !ok {
		return node.Account{}, fmt.Errorf("%w: %s", node.ErrAccountNotFound, address)
	}
	acct.Assets = append([]node.AssetHolding(nil), acct.Assets...)
	return acct, nil
}

func (f *Fake) Asset(_ context.Context, id uint64) (node.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Asset"]++
	if err := f.assetErr[id]; err != nil {
		return node.Asset{}, err
	}
	a, ok := f.assets[id]
	if !ok {
		return node.Asset{}, fmt.Errorf("%w: asset %d", node.ErrNotFound, id)
	}
	return a, nil
}

func (f *Fake) Params(_ context.Context) (node.Params, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Params"]++
	if f.paramsErr != nil {
		return node.Params{}, f.paramsErr
	}
	p := f.params
	p.LastRound = f.round
	return p, nil
}

func (f *Fake) SendRawTransaction(_ context.Context, raw []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["SendRawTransaction"]++
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, append([]byte(nil), raw...))
	if f.txID != "" {
		return f.txID, nil
	}
	return fmt.Sprintf("FAKETX%d", len(f.sent)), nil
}

func (f *Fake) Status(_ context.Context) (node.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Status"]++
	return node.Status{LastRound: f.round}, nil
}

func (f *Fake) StatusAfterBlock(ctx context.Context, round uint64) (node.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["StatusAfterBlock"]++
	if err := ctx.Err(); err != nil {
		return node.Status{}, err
	}
	if f.round <= round {
		f.round = round + 1
	}
	return node.Status{LastRound: f.round}, nil
}

func (f *Fake) PendingTransaction(_ context.Context, txID string) (node.PendingTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["PendingTransaction"]++
	if f.poolError != "" {
		return node.PendingTransaction{PoolError: f.poolError}, nil
	}
	polls := f.pendingPolls[txID]
	f.pendingPolls[txID] = polls + 1
	if f.confirmAfter >= 0 && polls >= f.confirmAfter {
		return node.PendingTransaction{ConfirmedRound: f.round}, nil
	}
	return node.PendingTransaction{}, nil
}
