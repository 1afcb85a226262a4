// Package submit hands transactions to the wallet for signing, broadcasts the
// signed bytes and tracks them to confirmation.
package submit

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/congo-pay/algopay/internal/node"
	"github.com/congo-pay/algopay/internal/signer"
	"github.com/congo-pay/algopay/internal/txbuild"
)

var (
	// ErrSignerRejected is returned when the wallet declines or its session is gone.
	ErrSignerRejected = errors.New("signer rejected the transactions")
	// ErrBroadcastRejected matches every *BroadcastRejectedError.
	ErrBroadcastRejected = errors.New("node rejected the transactions")
	// ErrNothingToSubmit is returned for an empty set.
	ErrNothingToSubmit = errors.New("no transactions to submit")
	// ErrDuplicateTransaction is returned when two entries hash to the same id.
	// The ledger refuses such a group, so it is never sent to the wallet.
	ErrDuplicateTransaction = errors.New("duplicate transaction in set")
)

// BroadcastRejectedError carries the node's reason.
type BroadcastRejectedError struct {
	Reason string
	Err    error
}

func (e *BroadcastRejectedError) Error() string {
	return "node rejected the transactions: " + e.Reason
}

func (e *BroadcastRejectedError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrBroadcastRejected) hold.
func (e *BroadcastRejectedError) Is(target error) bool { return target == ErrBroadcastRejected }

// RawSender submits signed transaction bytes.
type RawSender interface {
	SendRawTransaction(ctx context.Context, raw []byte) (string, error)
}

// Submission identifies what reached the node.
type Submission struct {
	TxID    string
	TxIDs   []string
	GroupID string
	Count   int
}

// Broadcaster signs through the wallet and broadcasts in one node call.
type Broadcaster struct {
	signer signer.Signer
	node   RawSender
	logger *slog.Logger
}

// NewBroadcaster wires a broadcaster.
func NewBroadcaster(s signer.Signer, n RawSender, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{signer: s, node: n, logger: logger}
}

// Submit asks the wallet to sign txns with sender as the only signer of every
// entry, then broadcasts the concatenated signed bytes.
func (b *Broadcaster) Submit(ctx context.Context, txns []types.Transaction, sender string) (Submission, error) {
	if len(txns) == 0 {
		return Submission{}, ErrNothingToSubmit
	}

	reqs := make([]signer.Request, len(txns))
	ids := make([]string, len(txns))
	seen := make(map[string]int, len(txns))
	for i, txn := range txns {
		reqs[i] = signer.Request{Txn: txn, Signers: []string{sender}}
		ids[i] = crypto.GetTxID(txn)
		if j, dup := seen[ids[i]]; dup {
			return Submission{}, fmt.Errorf("%w: entries %d and %d are both %s", ErrDuplicateTransaction, j, i, ids[i])
		}
		seen[ids[i]] = i
	}

	signed, err := b.signer.SignTransactions(ctx, reqs)
	if err != nil {
		return Submission{}, fmt.Errorf("%w: %w", ErrSignerRejected, err)
	}
	if len(signed) != len(txns) {
		return Submission{}, fmt.Errorf("%w: expected %d signed transactions, got %d", ErrSignerRejected, len(txns), len(signed))
	}

	txID, err := b.node.SendRawTransaction(ctx, bytes.Join(signed, nil))
	if err != nil {
		return Submission{}, &BroadcastRejectedError{Reason: reason(err), Err: err}
	}
	if txID == "" {
		txID = ids[0]
	}

	sub := Submission{TxID: txID, TxIDs: ids, Count: len(txns)}
	if gid := txbuild.GroupID(txns); gid != (types.Digest{}) {
		sub.GroupID = base64.StdEncoding.EncodeToString(gid[:])
	}
	b.logger.Info("transactions broadcast", "tx_id", sub.TxID, "count", sub.Count, "group_id", sub.GroupID, "sender", sender)
	return sub, nil
}

func reason(err error) string {
	var apiErr *node.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
