// Package amount validates human-unit amounts and converts them to and from
// the ledger's smallest denomination.
package amount

import (
	"errors"
	"math"
	"math/big"

	"github.com/shopspring/decimal"
)

// NativeDecimals is the number of decimal places of the native currency
// (10^6 smallest units per whole unit).
const NativeDecimals = 6

// maxDecimals bounds the scale so 10^decimals stays representable in uint64.
const maxDecimals = 19

var (
	// ErrNotPositive is returned for zero or negative amounts.
	ErrNotPositive = errors.New("amount must be positive")
	// ErrNotFinite is returned for NaN or infinite amounts.
	ErrNotFinite = errors.New("amount must be finite")
	// ErrTooSmall is returned when an amount rounds down to zero smallest units.
	ErrTooSmall = errors.New("amount is below the smallest unit of the asset")
	// ErrTooLarge is returned when the scaled amount does not fit in 64 bits.
	ErrTooLarge = errors.New("amount exceeds the representable range")
	// ErrDecimals is returned for an unsupported number of decimal places.
	ErrDecimals = errors.New("unsupported asset decimals")
)

var maxUnits = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)

// Validate checks that v is a positive, finite number.
func Validate(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNotFinite
	}
	if v <= 0 {
		return ErrNotPositive
	}
	return nil
}

// ToBaseUnits scales v by 10^decimals and floors the result.
func ToBaseUnits(v float64, decimals uint32) (uint64, error) {
	if err := Validate(v); err != nil {
		return 0, err
	}
	if decimals > maxDecimals {
		return 0, ErrDecimals
	}
	scaled := decimal.NewFromFloat(v).Shift(int32(decimals)).Floor()
	if scaled.GreaterThan(maxUnits) {
		return 0, ErrTooLarge
	}
	if !scaled.IsPositive() {
		return 0, ErrTooSmall
	}
	return scaled.BigInt().Uint64(), nil
}

// FromBaseUnits converts a raw ledger amount into human units.
func FromBaseUnits(raw uint64, decimals uint32) float64 {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(raw), -int32(decimals))
	f, _ := d.Float64()
	return f
}
