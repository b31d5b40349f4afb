package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseAmount converts a display amount ("1.25" DOT) into base units
// (planck). More fractional digits than decimals is an error.
func ToBaseAmount(amount string, decimals int32) (*big.Int, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	scaled := d.Shift(decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("amount %q has more than %d decimals", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// FromBaseAmount renders base units with exactly decimals fractional digits.
func FromBaseAmount(amount *big.Int, decimals int32) string {
	if amount == nil {
		amount = new(big.Int)
	}
	return decimal.NewFromBigInt(amount, -decimals).StringFixed(decimals)
}
