// Package address validates Algorand account addresses.
package address

import (
	"errors"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Length is the fixed length of an encoded account address.
const Length = 58

// ErrInvalid is returned when a string is not a well-formed, checksummed address.
var ErrInvalid = errors.New("invalid address format")

// IsValid reports whether raw is a 58 character address whose checksum decodes.
func IsValid(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if len(trimmed) != Length {
		return false
	}
	if _, err := types.DecodeAddress(trimmed); err != nil {
		return false
	}
	return true
}

// Normalize trims raw and returns it when it is a valid address.
func Normalize(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !IsValid(trimmed) {
		return "", ErrInvalid
	}
	return trimmed, nil
}

// Short renders an address as its first six and last four characters.
func Short(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
