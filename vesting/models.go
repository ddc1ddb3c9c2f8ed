package vesting

import (
	"github.com/xraph/raise/id"
	"github.com/xraph/raise/types"
)

// Account is the permanent vesting ledger record for one beneficiary.
//
// Invariants: Claimed <= Entitlement at all times; LastChunk never
// decreases. Accounts are created lazily on first grant and never deleted.
type Account struct {
	types.Entity
	ID id.AccountID `json:"id"`

	// Beneficiary is the opaque holder identifier the payment medium
	// releases to.
	Beneficiary string `json:"beneficiary"`

	// Entitlement is the cumulative granted amount across all grants.
	Entitlement types.Amount `json:"entitlement"`

	// Claimed is the cumulative released amount, including catch-up
	// releases applied at grant time.
	Claimed types.Amount `json:"claimed"`

	// InitialShare accumulates each grant's immediately releasable portion.
	InitialShare types.Amount `json:"initial_share"`

	// LastChunk is the highest chunk number a claim settlement has covered.
	LastChunk uint64 `json:"last_chunk"`
}

// NewAccount creates an empty vesting account for a beneficiary.
func NewAccount(beneficiary string) *Account {
	return &Account{
		Entity:      types.NewEntity(),
		ID:          id.NewAccountID(),
		Beneficiary: beneficiary,
	}
}

// PendingAt computes the claimable amount at the given chunk number:
// the vested portion (accumulated initial share plus completed chunks)
// minus what was already claimed, never exceeding the unreleased remainder.
func (a *Account) PendingAt(s Schedule, chunk uint64) types.Amount {
	if chunk == 0 || a.Entitlement.IsZero() {
		return types.ZeroAmount
	}

	vested := a.InitialShare.Add(s.ChunkShare(chunk-1, a.Entitlement))
	if !vested.GreaterThan(a.Claimed) {
		return types.ZeroAmount
	}

	pending := vested.Sub(a.Claimed)
	return pending.Min(a.Entitlement.Sub(a.Claimed))
}

// Clone returns a deep copy of the account.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
