package raise

import "github.com/xraph/raise/types"

// Re-export common types for convenience so users don't have to import
// the types package.

// Amount is re-exported from types package.
type Amount = types.Amount

// Entity is re-exported from types package.
type Entity = types.Entity

// Re-export Amount constructors and helpers
var (
	NewAmount   = types.NewAmount
	ParseAmount = types.ParseAmount
	MustAmount  = types.MustAmount
	Pow10       = types.Pow10
	SumAmounts  = types.SumAmounts
	ZeroAmount  = types.ZeroAmount
)

// Re-export Entity constructor
var NewEntity = types.NewEntity
