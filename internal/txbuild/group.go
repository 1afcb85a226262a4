package txbuild

import (
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// MaxGroupSize is the ledger's limit on transactions per atomic group.
const MaxGroupSize = 16

var (
	// ErrEmptyGroup is returned for an empty transaction list.
	ErrEmptyGroup = errors.New("no transactions to group")
	// ErrGroupTooLarge is returned above MaxGroupSize transactions.
	ErrGroupTooLarge = fmt.Errorf("atomic group exceeds %d transactions", MaxGroupSize)
)

// Group stamps one group id over txns so the ledger commits them together.
// A single transaction is returned without a group id. The input is not
// modified and order is preserved.
func Group(txns []types.Transaction) ([]types.Transaction, error) {
	switch {
	case len(txns) == 0:
		return nil, ErrEmptyGroup
	case len(txns) > MaxGroupSize:
		return nil, fmt.Errorf("%w: got %d", ErrGroupTooLarge, len(txns))
	}

	out := make([]types.Transaction, len(txns))
	copy(out, txns)
	if len(out) == 1 {
		return out, nil
	}

	for i := range out {
		out[i].Group = types.Digest{}
	}
	gid, err := crypto.ComputeGroupID(out)
	if err != nil {
		return nil, fmt.Errorf("compute group id: %w", err)
	}
	for i := range out {
		out[i].Group = gid
	}
	return out, nil
}

// GroupID returns the group id stamped on txns, or the zero digest.
func GroupID(txns []types.Transaction) types.Digest {
	if len(txns) == 0 {
		return types.Digest{}
	}
	return txns[0].Group
}
