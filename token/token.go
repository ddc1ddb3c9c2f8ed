// Package token defines the payment-medium interface Raise uses to move
// value in and out of custody.
//
// A Token adapter fronts whatever actually holds balances — an ERC-20-style
// contract binding, an internal accounts service, or the in-memory
// implementation under token/memory. The engine treats any transfer error
// as total failure of the surrounding operation.
package token

import (
	"context"

	"github.com/xraph/raise/types"
)

// Token is a custody-capable payment medium. TransferIn pulls value from a
// holder into the medium's custody account; TransferOut pushes value from
// custody to a holder. Both must be atomic per call: they either move the
// full amount or return an error having moved nothing.
type Token interface {
	// TransferIn pulls amount from the holder into custody.
	TransferIn(ctx context.Context, from string, amount types.Amount) error

	// TransferOut pushes amount from custody to the holder.
	TransferOut(ctx context.Context, to string, amount types.Amount) error

	// BalanceOf reports the holder's balance.
	BalanceOf(ctx context.Context, holder string) (types.Amount, error)

	// CustodyBalance reports the on-hand balance of the custody account.
	CustodyBalance(ctx context.Context) (types.Amount, error)

	// Decimals reports the medium's decimal precision.
	Decimals(ctx context.Context) (uint8, error)
}
