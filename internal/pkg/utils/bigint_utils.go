package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ToSmallestUnit converts a human-unit amount into the chain's integer smallest unit.
// Digits beyond the chain precision are truncated, never rounded up.
// Example: amount=1.5, decimals=18 => 1500000000000000000
func ToSmallestUnit(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromSmallestUnit converts an integer smallest-unit amount into human units.
func FromSmallestUnit(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// ParseSmallestUnit parses a base-10 smallest-unit integer string and converts it to human units.
func ParseSmallestUnit(raw string, decimals int32) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("empty smallest-unit amount")
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return decimal.Zero, fmt.Errorf("invalid smallest-unit amount %q", raw)
	}
	return FromSmallestUnit(v, decimals), nil
}

// FormatBigInt converts a smallest-unit value to a human-readable string with trailing zeros trimmed.
// Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatBigInt(amount *big.Int, decimals int32) string {
	return FromSmallestUnit(amount, decimals).String()
}
