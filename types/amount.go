// Package types provides common types used across Raise.
package types

import (
	"database/sql/driver"
	"fmt"

	"github.com/holiman/uint256"
)

// Amount is an unsigned token quantity in the token's smallest unit.
// All arithmetic is integer-only and overflow-checked — no floating point.
//
// Amounts are 256-bit, matching the widest integer width used by the
// payment media Raise interoperates with. Ledger arithmetic (Add, Sub)
// panics on wraparound because a wrapped counter is a corrupted ledger;
// conversion arithmetic (Mul, MulDiv) returns an error so callers can
// reject oversized inputs cleanly.
type Amount struct {
	v uint256.Int
}

// ZeroAmount is the zero quantity.
var ZeroAmount Amount

// NewAmount creates an Amount from a uint64.
func NewAmount(u uint64) Amount {
	var a Amount
	a.v.SetUint64(u)
	return a
}

// ParseAmount parses a base-10 string into an Amount.
func ParseAmount(s string) (Amount, error) {
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	return a, nil
}

// MustAmount is like ParseAmount but panics on error. Use for hardcoded values.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Pow10 returns 10^exp. It panics if the result does not fit in 256 bits
// (exp > 77), which is a programming error: no token uses that many decimals.
func Pow10(exp uint8) Amount {
	if exp > 77 {
		panic(fmt.Sprintf("amount: 10^%d does not fit in 256 bits", exp))
	}
	var a Amount
	a.v.Exp(uint256.NewInt(10), uint256.NewInt(uint64(exp)))
	return a
}

// Arithmetic operations

// Add adds two Amounts. Panics on overflow.
func (a Amount) Add(other Amount) Amount {
	var r Amount
	if _, overflow := r.v.AddOverflow(&a.v, &other.v); overflow {
		panic(fmt.Sprintf("amount: overflow in addition: %s + %s", a, other))
	}
	return r
}

// Sub subtracts another Amount. Panics on underflow.
func (a Amount) Sub(other Amount) Amount {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &other.v); underflow {
		panic(fmt.Sprintf("amount: underflow in subtraction: %s - %s", a, other))
	}
	return r
}

// Mul multiplies two Amounts. Returns an error if the product does not fit
// in 256 bits.
func (a Amount) Mul(other Amount) (Amount, error) {
	var r Amount
	if _, overflow := r.v.MulOverflow(&a.v, &other.v); overflow {
		return Amount{}, fmt.Errorf("amount: overflow in multiplication: %s * %s", a, other)
	}
	return r, nil
}

// MulDiv computes floor(a * num / den) with a full 512-bit intermediate
// product, so the multiplication itself can never overflow. Returns an
// error if den is zero or the final quotient does not fit in 256 bits.
func (a Amount) MulDiv(num, den Amount) (Amount, error) {
	if den.IsZero() {
		return Amount{}, fmt.Errorf("amount: division by zero: %s * %s / 0", a, num)
	}
	var r Amount
	if _, overflow := r.v.MulDivOverflow(&a.v, &num.v, &den.v); overflow {
		return Amount{}, fmt.Errorf("amount: overflow in muldiv: %s * %s / %s", a, num, den)
	}
	return r, nil
}

// ScaleBy computes floor(a * num / den) for small scalar fractions such as
// release percentages. Panics on a zero denominator or an oversized result;
// both are programming errors for the bounded fractions Raise uses.
func (a Amount) ScaleBy(num, den uint64) Amount {
	r, err := a.MulDiv(NewAmount(num), NewAmount(den))
	if err != nil {
		panic(err.Error())
	}
	return r
}

// Comparison methods

// IsZero returns true if the Amount is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp returns -1, 0 or 1 when a is smaller, equal or larger than other.
func (a Amount) Cmp(other Amount) int { return a.v.Cmp(&other.v) }

// Equal returns true if both Amounts are equal.
func (a Amount) Equal(other Amount) bool { return a.v.Eq(&other.v) }

// LessThan returns true if a < other.
func (a Amount) LessThan(other Amount) bool { return a.v.Lt(&other.v) }

// GreaterThan returns true if a > other.
func (a Amount) GreaterThan(other Amount) bool { return a.v.Gt(&other.v) }

// Min returns the smaller of two Amounts.
func (a Amount) Min(other Amount) Amount {
	if a.v.Lt(&other.v) {
		return a
	}
	return other
}

// Formatting and encoding

// Uint64 returns the low 64 bits of the Amount. Intended for display and
// test assertions on small quantities; use String for exact values.
func (a Amount) Uint64() uint64 { return a.v.Uint64() }

// String returns the Amount as a base-10 string.
func (a Amount) String() string { return a.v.Dec() }

// MarshalJSON implements json.Marshaler. Amounts serialize as base-10
// strings to survive JSON number precision limits.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.v.Dec() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer; Amounts persist as base-10 strings.
func (a Amount) Value() (driver.Value, error) {
	return a.v.Dec(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("amount: scan negative value %d", v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("amount: cannot scan %T", src)
	}
}

// SumAmounts calculates the sum of multiple Amounts. Panics on overflow.
func SumAmounts(values ...Amount) Amount {
	var result Amount
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
