package service

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputePlatformFee returns round_half_up(amount * percent / 100) in minor
// units. The result is always within [0, amount] for a valid percent.
func ComputePlatformFee(amount int64, percent decimal.Decimal) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("%w: amount must be > 0", ErrInvalidRequest)
	}
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return 0, fmt.Errorf("%w: platform fee percent must be within [0,100]", ErrInvalidRequest)
	}

	return decimal.NewFromInt(amount).Mul(percent).Shift(-2).Round(0).IntPart(), nil
}
