// Package custody tracks the reserve token balance backing all committed
// entitlement. Three counters describe its lifecycle: tokens deposited by
// the operator, tokens locked against issued entitlement, and tokens
// released to claimants.
package custody

import "github.com/xraph/raise/types"

// Reserve is the custody ledger for the receivable token.
//
// Invariants: Locked <= Deposited and Released <= Locked at all times.
// Free capacity backs new entitlement; Owed is what the custody account
// must still physically hold.
type Reserve struct {
	types.Entity

	// Deposited is the cumulative total placed into custody.
	Deposited types.Amount `json:"deposited" bun:"deposited"`

	// Locked is the cumulative total committed to issued entitlement.
	Locked types.Amount `json:"locked" bun:"locked"`

	// Released is the cumulative total transferred out to claimants.
	Released types.Amount `json:"released" bun:"released"`
}

// NewReserve returns an empty reserve.
func NewReserve() *Reserve {
	return &Reserve{Entity: types.NewEntity()}
}

// Free returns the uncommitted capacity available to back new entitlement
// or to be withdrawn by the operator.
func (r *Reserve) Free() types.Amount {
	return r.Deposited.Sub(r.Locked)
}

// Owed returns the amount still owed to present and future claimants, the
// floor the custody balance may never dip below.
func (r *Reserve) Owed() types.Amount {
	return r.Deposited.Sub(r.Released)
}

// Clone returns a copy of the reserve.
func (r *Reserve) Clone() *Reserve {
	if r == nil {
		return nil
	}
	dup := *r
	return &dup
}
