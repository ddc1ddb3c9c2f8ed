// Package memory provides an in-memory Token for tests and embedded use.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/raise/types"
)

// Token is an in-process payment medium backed by a balance map. Custody is
// a dedicated internal account that TransferIn credits and TransferOut
// debits.
type Token struct {
	mu       sync.RWMutex
	decimals uint8
	balances map[string]types.Amount
	custody  types.Amount
}

// New creates a memory Token with the given decimal precision.
func New(decimals uint8) *Token {
	return &Token{
		decimals: decimals,
		balances: make(map[string]types.Amount),
	}
}

// Mint credits a holder out of thin air. Test setup helper.
func (t *Token) Mint(holder string, amount types.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.balances[holder] = t.balances[holder].Add(amount)
}

// Drain removes amount from custody without crediting anyone. Used by tests
// to simulate custody shortfalls.
func (t *Token) Drain(amount types.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.custody.LessThan(amount) {
		return fmt.Errorf("token/memory: drain %s exceeds custody %s", amount, t.custody)
	}
	t.custody = t.custody.Sub(amount)
	return nil
}

// CustodyBalance implements token.Token.
func (t *Token) CustodyBalance(context.Context) (types.Amount, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.custody, nil
}

// TransferIn implements token.Token.
func (t *Token) TransferIn(_ context.Context, from string, amount types.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bal := t.balances[from]
	if bal.LessThan(amount) {
		return fmt.Errorf("token/memory: transfer in %s from %q: balance %s insufficient", amount, from, bal)
	}
	t.balances[from] = bal.Sub(amount)
	t.custody = t.custody.Add(amount)
	return nil
}

// TransferOut implements token.Token.
func (t *Token) TransferOut(_ context.Context, to string, amount types.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.custody.LessThan(amount) {
		return fmt.Errorf("token/memory: transfer out %s to %q: custody %s insufficient", amount, to, t.custody)
	}
	t.custody = t.custody.Sub(amount)
	t.balances[to] = t.balances[to].Add(amount)
	return nil
}

// BalanceOf implements token.Token.
func (t *Token) BalanceOf(_ context.Context, holder string) (types.Amount, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[holder], nil
}

// Decimals implements token.Token.
func (t *Token) Decimals(context.Context) (uint8, error) {
	return t.decimals, nil
}
