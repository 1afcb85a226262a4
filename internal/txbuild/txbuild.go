// Package txbuild turns validated transfer intents into unsigned ledger
// transactions and groups them for atomic submission.
package txbuild

import (
	"errors"
	"fmt"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/congo-pay/algopay/internal/address"
	"github.com/congo-pay/algopay/internal/amount"
	"github.com/congo-pay/algopay/internal/asset"
	"github.com/congo-pay/algopay/internal/node"
)

// validityWindow is how many rounds past the current one a transaction stays valid.
const validityWindow = 1000

// ErrInvalidIntent is returned when a defensive re-check fails.
var ErrInvalidIntent = errors.New("invalid transfer intent")

// Intent is a single transfer from the connected account.
type Intent struct {
	Sender    string
	Recipient string
	Amount    float64
	Asset     asset.Asset
	Note      []byte
}

// SuggestedParams converts node parameters into SDK parameters valid from the
// node's last round.
func SuggestedParams(p node.Params) types.SuggestedParams {
	return types.SuggestedParams{
		Fee:              types.MicroAlgos(p.Fee),
		GenesisID:        p.GenesisID,
		GenesisHash:      p.GenesisHash,
		FirstRoundValid:  types.Round(p.LastRound),
		LastRoundValid:   types.Round(p.LastRound + validityWindow),
		ConsensusVersion: p.ConsensusVersion,
		MinFee:           p.MinFee,
	}
}

// Build constructs a payment for the native asset or an asset transfer otherwise.
func Build(in Intent, params types.SuggestedParams) (types.Transaction, error) {
	if !address.IsValid(in.Sender) {
		return types.Transaction{}, fmt.Errorf("%w: sender: %w", ErrInvalidIntent, address.ErrInvalid)
	}
	if !address.IsValid(in.Recipient) {
		return types.Transaction{}, fmt.Errorf("%w: recipient: %w", ErrInvalidIntent, address.ErrInvalid)
	}
	units, err := amount.ToBaseUnits(in.Amount, in.Asset.Decimals)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("%w: amount: %w", ErrInvalidIntent, err)
	}

	sender, _ := address.Normalize(in.Sender)
	recipient, _ := address.Normalize(in.Recipient)

	var txn types.Transaction
	if in.Asset.IsNative() {
		txn, err = transaction.MakePaymentTxn(sender, recipient, units, in.Note, "", params)
	} else {
		txn, err = transaction.MakeAssetTransferTxn(sender, recipient, units, in.Note, params, "", in.Asset.ID)
	}
	if err != nil {
		return types.Transaction{}, fmt.Errorf("build %s transfer: %w", in.Asset.Symbol, err)
	}
	return txn, nil
}

// BuildOptIn constructs the zero-amount self transfer that opts account in to a.
func BuildOptIn(account string, a asset.Asset, params types.SuggestedParams) (types.Transaction, error) {
	if a.IsNative() {
		return types.Transaction{}, fmt.Errorf("%w: the native asset needs no opt-in", ErrInvalidIntent)
	}
	acct, err := address.Normalize(account)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("%w: account: %w", ErrInvalidIntent, err)
	}
	txn, err := transaction.MakeAssetAcceptanceTxn(acct, nil, params, a.ID)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("build opt-in: %w", err)
	}
	return txn, nil
}

// Units returns the amount moved by txn in the asset's smallest unit.
func Units(txn types.Transaction) uint64 {
	if txn.Type == types.AssetTransferTx {
		return txn.AssetAmount
	}
	return uint64(txn.Amount)
}
