package asset

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/congo-pay/algopay/internal/node"
)

// ErrNotDiscovered is returned when no candidate id carries the symbol.
var ErrNotDiscovered = errors.New("asset not found among candidates")

// MetadataReader fetches asset definitions from a node.
type MetadataReader interface {
	Asset(ctx context.Context, id uint64) (node.Asset, error)
}

// Discover probes candidate ids in order and returns the first whose name
// contains symbol or whose unit name equals it. Lookup failures skip the id.
func Discover(ctx context.Context, reader MetadataReader, candidates []uint64, symbol string) (Asset, error) {
	want := strings.ToUpper(strings.TrimSpace(symbol))
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return Asset{}, err
		}
		info, err := reader.Asset(ctx, id)
		if err != nil {
			continue
		}
		name := strings.ToUpper(info.Params.Name)
		unit := strings.ToUpper(info.Params.UnitName)
		if strings.Contains(name, want) || unit == want {
			return Asset{
				ID:       id,
				Symbol:   want,
				Name:     info.Params.Name,
				Decimals: info.Params.Decimals,
			}, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: %s", ErrNotDiscovered, want)
}
