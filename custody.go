package raise

import (
	"context"
	"fmt"

	"github.com/xraph/raise/access"
	"github.com/xraph/raise/plugin"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/types"
)

// Deposit pulls reserve tokens from the actor into custody, growing the
// pool future entitlement grants are locked against.
func (c *Campaign) Deposit(ctx context.Context, actor string, amount types.Amount) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.authorize(ctx, actor, access.CapabilityCustody); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrInvalidAmount
	}

	c.mu.Lock()
	if err := c.requireInitialized(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.reserveToken == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: no reserve token configured", ErrUnknownToken)
	}

	if err := c.reserveToken.TransferIn(ctx, actor, amount); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: pull %s from %s: %v", ErrTransferFailed, amount, actor, err)
	}

	reserve := c.reserve.Clone()
	reserve.Deposited = reserve.Deposited.Add(amount)
	reserve.Touch()

	if err := c.persist(ctx, &store.Changeset{Reserve: reserve}); err != nil {
		c.returnFunds(ctx, c.reserveToken, actor, amount)
		c.mu.Unlock()
		return err
	}

	c.reserve = reserve
	c.mu.Unlock()

	c.logger.Debug("reserve deposit",
		"actor", actor,
		"amount", amount,
		"deposited", reserve.Deposited,
	)

	c.plugins.EmitDeposit(ctx, plugin.ReserveEvent{
		Actor:     actor,
		Amount:    amount,
		Deposited: reserve.Deposited,
		Locked:    reserve.Locked,
		Released:  reserve.Released,
		Token:     c.reserveAddr,
		At:        c.clock.Now(),
	})

	return nil
}

// Withdraw pushes uncommitted reserve out of custody. Only the portion
// no entitlement has been locked against is withdrawable.
func (c *Campaign) Withdraw(ctx context.Context, actor, to string, amount types.Amount) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.authorize(ctx, actor, access.CapabilityCustody); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrInvalidAmount
	}

	c.mu.Lock()
	if err := c.requireInitialized(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.reserveToken == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: no reserve token configured", ErrUnknownToken)
	}
	if amount.GreaterThan(c.reserve.Free()) {
		c.mu.Unlock()
		return ErrInsufficientReserve
	}

	reserve := c.reserve.Clone()
	reserve.Deposited = reserve.Deposited.Sub(amount)
	reserve.Touch()

	if err := c.persist(ctx, &store.Changeset{Reserve: reserve}); err != nil {
		c.mu.Unlock()
		return err
	}

	if err := c.reserveToken.TransferOut(ctx, to, amount); err != nil {
		if aerr := c.store.Apply(ctx, &store.Changeset{Reserve: c.reserve}); aerr != nil {
			c.logger.Warn("compensating write failed, stored state diverges until restart",
				"actor", actor,
				"error", aerr,
			)
		}
		c.mu.Unlock()
		return fmt.Errorf("%w: withdraw %s to %s: %v", ErrTransferFailed, amount, to, err)
	}

	c.reserve = reserve
	c.mu.Unlock()

	c.logger.Debug("reserve withdrawal",
		"actor", actor,
		"to", to,
		"amount", amount,
		"deposited", reserve.Deposited,
	)

	c.plugins.EmitWithdraw(ctx, plugin.ReserveEvent{
		Actor:     actor,
		To:        to,
		Amount:    amount,
		Deposited: reserve.Deposited,
		Locked:    reserve.Locked,
		Released:  reserve.Released,
		Token:     c.reserveAddr,
		At:        c.clock.Now(),
	})

	return nil
}

// ExtractForeign sweeps tokens out of the custody account. Any token
// other than the reserve token sweeps freely; for the reserve token the
// sweepable balance excludes funds still owed to beneficiaries, so
// committed-but-unclaimed entitlement can never be raided. Extraction
// moves no ledger state.
func (c *Campaign) ExtractForeign(ctx context.Context, actor, tokenAddr, to string, amount types.Amount) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.authorize(ctx, actor, access.CapabilityCustody); err != nil {
		return err
	}
	if amount.IsZero() {
		return ErrInvalidAmount
	}

	medium, ok := c.tokens[tokenAddr]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownToken, tokenAddr)
	}

	c.mu.RLock()
	if err := c.requireInitialized(); err != nil {
		c.mu.RUnlock()
		return err
	}
	if tokenAddr == c.reserveAddr {
		onHand, err := medium.CustodyBalance(ctx)
		if err != nil {
			c.mu.RUnlock()
			return fmt.Errorf("raise: custody balance: %w", err)
		}
		owed := c.reserve.Owed()
		if owed.Add(amount).GreaterThan(onHand) {
			c.mu.RUnlock()
			return ErrExtractLimit
		}
	}
	reserve := c.reserve
	c.mu.RUnlock()

	if err := medium.TransferOut(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: extract %s to %s: %v", ErrTransferFailed, amount, to, err)
	}

	c.logger.Debug("foreign extraction",
		"actor", actor,
		"token", tokenAddr,
		"to", to,
		"amount", amount,
	)

	c.plugins.EmitExtract(ctx, plugin.ReserveEvent{
		Actor:     actor,
		To:        to,
		Amount:    amount,
		Deposited: reserve.Deposited,
		Locked:    reserve.Locked,
		Released:  reserve.Released,
		Token:     tokenAddr,
		At:        c.clock.Now(),
	})

	return nil
}
