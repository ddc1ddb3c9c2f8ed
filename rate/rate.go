// Package rate normalizes decimal precision between a paid unit and the
// receivable token unit and applies a scaled integer exchange rate. All
// math floors; a conversion never grants more than the exact fraction.
package rate

import (
	"fmt"

	"github.com/xraph/raise/types"
)

// Convert turns a paid amount into a receivable amount:
//
//	received = floor(paid * 10^recvDecimals * rate / (10^payDecimals * scale))
//
// Multiplication happens before division through 512-bit intermediates, so
// precision is never lost to an early floor and the only failure modes are
// a zero rate, a zero scale, or a quotient too large for 256 bits.
func Convert(paid types.Amount, payDecimals, recvDecimals uint8, rate types.Amount, scale uint64) (types.Amount, error) {
	if rate.IsZero() {
		return types.ZeroAmount, fmt.Errorf("rate: zero rate")
	}
	if scale == 0 {
		return types.ZeroAmount, fmt.Errorf("rate: zero scale")
	}

	num, err := paid.Mul(types.Pow10(recvDecimals))
	if err != nil {
		return types.ZeroAmount, fmt.Errorf("rate: convert: %w", err)
	}
	den, err := types.Pow10(payDecimals).Mul(types.NewAmount(scale))
	if err != nil {
		return types.ZeroAmount, fmt.Errorf("rate: convert: %w", err)
	}
	out, err := num.MulDiv(rate, den)
	if err != nil {
		return types.ZeroAmount, fmt.Errorf("rate: convert: %w", err)
	}
	return out, nil
}

// Invert computes the paid amount needed to receive the given amount, the
// exact inverse of Convert:
//
//	paid = floor(received * 10^payDecimals * scale / (10^recvDecimals * rate))
//
// Used to price an overflow refund in payment units.
func Invert(received types.Amount, payDecimals, recvDecimals uint8, rate types.Amount, scale uint64) (types.Amount, error) {
	if rate.IsZero() {
		return types.ZeroAmount, fmt.Errorf("rate: zero rate")
	}
	if scale == 0 {
		return types.ZeroAmount, fmt.Errorf("rate: zero scale")
	}

	num, err := received.Mul(types.Pow10(payDecimals))
	if err != nil {
		return types.ZeroAmount, fmt.Errorf("rate: invert: %w", err)
	}
	den, err := types.Pow10(recvDecimals).Mul(rate)
	if err != nil {
		return types.ZeroAmount, fmt.Errorf("rate: invert: %w", err)
	}
	out, err := num.MulDiv(types.NewAmount(scale), den)
	if err != nil {
		return types.ZeroAmount, fmt.Errorf("rate: invert: %w", err)
	}
	return out, nil
}
