// Package asset describes the transferable assets the service knows about.
package asset

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrUnknownAsset is returned when a selector matches no registered asset.
var ErrUnknownAsset = errors.New("unknown asset")

// Asset identifies a transferable unit. ID 0 is the native currency.
type Asset struct {
	ID       uint64 `json:"id" yaml:"id"`
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Decimals uint32 `json:"decimals" yaml:"decimals"`
}

// IsNative reports whether a is the ledger's native currency.
func (a Asset) IsNative() bool { return a.ID == 0 }

func (a Asset) String() string {
	if a.IsNative() {
		return a.Symbol
	}
	return fmt.Sprintf("%s (%d)", a.Symbol, a.ID)
}

var (
	// Native is ALGO, 10^6 microAlgos per unit.
	Native = Asset{ID: 0, Symbol: "ALGO", Name: "Algorand", Decimals: 6}
	// USDC is the testnet USDC asset.
	USDC = Asset{ID: 10458941, Symbol: "USDC", Name: "USDC", Decimals: 6}
)

// Registry resolves selectors (symbol or numeric id) to assets.
type Registry struct {
	bySymbol   map[string]Asset
	byID       map[uint64]Asset
	candidates map[string][]uint64
}

// NewRegistry builds a registry from assets. The native asset is always present.
func NewRegistry(assets ...Asset) (*Registry, error) {
	r := &Registry{
		bySymbol:   map[string]Asset{Native.Symbol: Native},
		byID:       map[uint64]Asset{0: Native},
		candidates: make(map[string][]uint64),
	}
	for _, a := range assets {
		if err := r.add(a); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// DefaultRegistry knows ALGO and testnet USDC.
func DefaultRegistry() *Registry {
	r, _ := NewRegistry(USDC)
	r.candidates[USDC.Symbol] = []uint64{10458941, 10458942, 37074699, 31566704, 312769}
	return r
}

func (r *Registry) add(a Asset) error {
	a.Symbol = strings.ToUpper(strings.TrimSpace(a.Symbol))
	if a.Symbol == "" {
		return fmt.Errorf("asset %d: symbol is required", a.ID)
	}
	if a.ID == 0 {
		return fmt.Errorf("asset %s: id 0 is reserved for %s", a.Symbol, Native.Symbol)
	}
	if _, exists := r.bySymbol[a.Symbol]; exists {
		return fmt.Errorf("duplicate asset symbol %s", a.Symbol)
	}
	if _, exists := r.byID[a.ID]; exists {
		return fmt.Errorf("duplicate asset id %d", a.ID)
	}
	if a.Name == "" {
		a.Name = a.Symbol
	}
	r.bySymbol[a.Symbol] = a
	r.byID[a.ID] = a
	return nil
}

// Resolve maps "", a symbol (case-insensitive) or a decimal id to an asset.
func (r *Registry) Resolve(selector string) (Asset, error) {
	s := strings.TrimSpace(selector)
	if s == "" {
		return Native, nil
	}
	if a, ok := r.bySymbol[strings.ToUpper(s)]; ok {
		return a, nil
	}
	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		if a, ok := r.byID[id]; ok {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %q", ErrUnknownAsset, selector)
}

// ByID returns the registered asset with id.
func (r *Registry) ByID(id uint64) (Asset, bool) {
	a, ok := r.byID[id]
	return a, ok
}

// All returns registered assets ordered by id.
func (r *Registry) All() []Asset {
	out := make([]Asset, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Candidates returns the discovery candidate ids configured for symbol.
func (r *Registry) Candidates(symbol string) []uint64 {
	return append([]uint64(nil), r.candidates[strings.ToUpper(symbol)]...)
}
