package submit

import (
	"context"
	"errors"
	"fmt"

	"github.com/congo-pay/algopay/internal/node"
)

// DefaultMaxRounds is the confirmation budget used by the payment flows.
const DefaultMaxRounds = 4

// ErrConfirmationTimeout means the transaction was not seen in a block within
// the round budget. It may still be committed later.
var ErrConfirmationTimeout = errors.New("transaction not confirmed within the round budget")

// StatusReader reads round progress and pending transaction state.
type StatusReader interface {
	Status(ctx context.Context) (node.Status, error)
	StatusAfterBlock(ctx context.Context, round uint64) (node.Status, error)
	PendingTransaction(ctx context.Context, txID string) (node.PendingTransaction, error)
}

// Confirmation is a committed transaction.
type Confirmation struct {
	TxID           string
	ConfirmedRound uint64
}

// Waiter polls the node once per round until a transaction commits.
type Waiter struct {
	node StatusReader
}

// NewWaiter builds a waiter.
func NewWaiter(n StatusReader) *Waiter {
	return &Waiter{node: n}
}

// AwaitConfirmation waits up to maxRounds rounds after the current one.
func (w *Waiter) AwaitConfirmation(ctx context.Context, txID string, maxRounds uint64) (Confirmation, error) {
	if maxRounds == 0 {
		maxRounds = DefaultMaxRounds
	}
	status, err := w.node.Status(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("read node status: %w", err)
	}

	start := status.LastRound + 1
	for current := start; current < start+maxRounds; current++ {
		pending, err := w.node.PendingTransaction(ctx, txID)
		switch {
		case err == nil:
			if pending.ConfirmedRound > 0 {
				return Confirmation{TxID: txID, ConfirmedRound: pending.ConfirmedRound}, nil
			}
			if pending.PoolError != "" {
				return Confirmation{}, &BroadcastRejectedError{Reason: pending.PoolError}
			}
		case errors.Is(err, node.ErrNotFound):
			// Not yet visible to this node.
		default:
			return Confirmation{}, fmt.Errorf("read pending transaction %s: %w", txID, err)
		}

		if _, err := w.node.StatusAfterBlock(ctx, current); err != nil {
			return Confirmation{}, fmt.Errorf("wait for round %d: %w", current, err)
		}
	}
	return Confirmation{}, fmt.Errorf("%w: %s after %d rounds", ErrConfirmationTimeout, txID, maxRounds)
}
