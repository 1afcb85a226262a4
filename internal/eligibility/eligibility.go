// Package eligibility decides whether a recipient can receive a non-native asset.
package eligibility

import (
	"context"
	"errors"
	"fmt"

	"github.com/congo-pay/algopay/internal/address"
	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/node"
)

var (
	// ErrNotOptedIn matches every *NotOptedInError.
	ErrNotOptedIn = errors.New("recipient is not opted in to the asset")
	// ErrRecipientUnfunded is returned when the recipient has no ledger presence.
	ErrRecipientUnfunded = errors.New("recipient account is not funded")
)

// NotOptedInError names the asset and what the recipient must do.
type NotOptedInError struct {
	Address string
	AssetID uint64
	Symbol  string
}

func (e *NotOptedInError) Error() string {
	return fmt.Sprintf("recipient %s is not opted in to %s (asset %d); the recipient must opt in to this asset before receiving it",
		address.Short(e.Address), e.Symbol, e.AssetID)
}

// Is makes errors.Is(err, ErrNotOptedIn) hold.
func (e *NotOptedInError) Is(target error) bool { return target == ErrNotOptedIn }

// AccountReader fetches ledger records.
type AccountReader interface {
	Account(ctx context.Context, address string) (node.Account, error)
}

// Checker probes recipient accounts.
type Checker struct {
	node AccountReader
}

// NewChecker builds a checker backed by a node.
func NewChecker(n AccountReader) *Checker {
	return &Checker{node: n}
}

// IsOptedIn reports whether address holds assetID.
func (c *Checker) IsOptedIn(ctx context.Context, addr string, assetID uint64) (bool, error) {
	acct, err := c.node.Account(ctx, addr)
	if err != nil {
		return false, err
	}
	return acct.Holds(assetID), nil
}

// Probe returns nil when addr can receive a, a *NotOptedInError when the
// account exists without the holding, ErrRecipientUnfunded when it has no
// ledger presence, or the node error unchanged.
func (c *Checker) Probe(ctx context.Context, addr string, a asset.Asset) error {
	if a.IsNative() {
		return nil
	}
	acct, err := c.node.Account(ctx, addr)
	if err != nil {
		if errors.Is(err, node.ErrAccountNotFound) {
			return fmt.Errorf("%w: %s", ErrRecipientUnfunded, address.Short(addr))
		}
		return err
	}
	if acct.Holds(a.ID) {
		return nil
	}
	// algod answers an empty record for never-funded addresses.
	if acct.Amount == 0 && len(acct.Assets) == 0 {
		return fmt.Errorf("%w: %s", ErrRecipientUnfunded, address.Short(addr))
	}
	return &NotOptedInError{Address: addr, AssetID: a.ID, Symbol: a.Symbol}
}
