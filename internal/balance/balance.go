// Package balance reads an account's native and asset balances with metadata.
package balance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/algopay/internal/amount"
	"github.com/congo-pay/algopay/internal/node"
)

// Mode selects how lookup failures surface.
type Mode int

const (
	// Strict returns lookup errors to the caller.
	Strict Mode = iota
	// BestEffort logs lookup errors and returns an empty balance.
	BestEffort
)

// Reader fetches accounts and asset metadata.
type Reader interface {
	Account(ctx context.Context, address string) (node.Account, error)
	Asset(ctx context.Context, id uint64) (node.Asset, error)
}

// Holding is one non-zero asset balance.
type Holding struct {
	AssetID  uint64  `json:"asset_id"`
	Name     string  `json:"name"`
	Symbol   string  `json:"symbol"`
	Decimals uint32  `json:"decimals"`
	Amount   float64 `json:"amount"`
}

// Balance is the native amount in whole units plus asset holdings.
type Balance struct {
	Address string    `json:"address"`
	Native  float64   `json:"native"`
	Assets  []Holding `json:"assets"`
}

// Info is asset metadata.
type Info struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint32 `json:"decimals"`
	Total    uint64 `json:"total"`
	Creator  string `json:"creator"`
}

// Aggregator combines account and asset lookups.
type Aggregator struct {
	node   Reader
	mode   Mode
	logger *slog.Logger
}

// NewAggregator builds an aggregator in the given mode.
func NewAggregator(n Reader, mode Mode, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{node: n, mode: mode, logger: logger}
}

// Balance returns the balances of address. In BestEffort mode it never fails:
// a failed account lookup yields zero balances and a holding whose metadata
// cannot be read is left out.
func (a *Aggregator) Balance(ctx context.Context, address string) (Balance, error) {
	b, err := a.load(ctx, address)
	if err == nil {
		return b, nil
	}
	if a.mode == Strict {
		return Balance{}, err
	}
	a.logger.Warn("balance lookup failed", "account", address, "error", err)
	return Balance{Address: address, Assets: []Holding{}}, nil
}

func (a *Aggregator) load(ctx context.Context, address string) (Balance, error) {
	acct, err := a.node.Account(ctx, address)
	if err != nil {
		return Balance{}, fmt.Errorf("fetch account %s: %w", address, err)
	}

	out := Balance{
		Address: address,
		Native:  amount.FromBaseUnits(acct.Amount, amount.NativeDecimals),
		Assets:  []Holding{},
	}
	for _, h := range acct.Assets {
		if h.AssetID == 0 || h.Amount == 0 {
			continue
		}
		info, err := a.AssetInfo(ctx, h.AssetID)
		if err != nil {
			if a.mode == Strict {
				return Balance{}, err
			}
			a.logger.Warn("skipping holding without metadata", "account", address, "asset_id", h.AssetID, "error", err)
			continue
		}
		out.Assets = append(out.Assets, Holding{
			AssetID:  h.AssetID,
			Name:     info.Name,
			Symbol:   info.Symbol,
			Decimals: info.Decimals,
			Amount:   amount.FromBaseUnits(h.Amount, info.Decimals),
		})
	}
	return out, nil
}

// AssetInfo returns metadata for id with placeholder names filled in.
func (a *Aggregator) AssetInfo(ctx context.Context, id uint64) (Info, error) {
	asset, err := a.node.Asset(ctx, id)
	if err != nil {
		return Info{}, fmt.Errorf("fetch asset %d: %w", id, err)
	}
	info := Info{
		ID:       id,
		Name:     asset.Params.Name,
		Symbol:   asset.Params.UnitName,
		Decimals: asset.Params.Decimals,
		Total:    asset.Params.Total,
		Creator:  asset.Params.Creator,
	}
	if info.Name == "" {
		info.Name = fmt.Sprintf("Asset %d", id)
	}
	if info.Symbol == "" {
		info.Symbol = "UNKNOWN"
	}
	return info, nil
}
