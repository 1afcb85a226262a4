package node

import "fmt"

// Params are the network transaction parameters returned by algod.
type Params struct {
	ConsensusVersion string `json:"consensus-version"`
	Fee              uint64 `json:"fee"`
	GenesisHash      []byte `json:"genesis-hash"`
	GenesisID        string `json:"genesis-id"`
	LastRound        uint64 `json:"last-round"`
	MinFee           uint64 `json:"min-fee"`
}

// AssetHolding is one asset balance held by an account.
type AssetHolding struct {
	AssetID  uint64 `json:"asset-id"`
	Amount   uint64 `json:"amount"`
	IsFrozen bool   `json:"is-frozen"`
}

// Account is the ledger record of an address.
type Account struct {
	Address    string         `json:"address"`
	Amount     uint64         `json:"amount"`
	MinBalance uint64         `json:"min-balance"`
	Round      uint64         `json:"round"`
	Assets     []AssetHolding `json:"assets"`
}

// Holds reports whether the account has a holding for assetID.
func (a Account) Holds(assetID uint64) bool {
	for _, h := range a.Assets {
		if h.AssetID == assetID {
			return true
		}
	}
	return false
}

// AssetParams is the metadata of an asset.
type AssetParams struct {
	Creator  string `json:"creator"`
	Decimals uint32 `json:"decimals"`
	Name     string `json:"name"`
	Total    uint64 `json:"total"`
	UnitName string `json:"unit-name"`
}

// Asset is an asset definition.
type Asset struct {
	Index  uint64      `json:"index"`
	Params AssetParams `json:"params"`
}

// Status is the node's view of ledger progress.
type Status struct {
	LastRound uint64 `json:"last-round"`
}

// PendingTransaction is the pool/confirmation state of a submitted transaction.
type PendingTransaction struct {
	ConfirmedRound uint64 `json:"confirmed-round"`
	PoolError      string `json:"pool-error"`
}

type sendResponse struct {
	TxID string `json:"txId"`
}

type errorResponse struct {
	Message string `json:"message"`
}

// APIError is returned when algod answers with a non-success status.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("algod error (%d): %s", e.StatusCode, e.Message)
}
