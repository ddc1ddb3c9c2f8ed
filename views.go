package raise

import (
	"context"
	"fmt"

	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/contribution"
	"github.com/xraph/raise/custody"
	"github.com/xraph/raise/vesting"
)

// Views return deep copies. Mutating a returned value never touches
// engine state.

// Initialized reports whether the campaign configuration has been written.
func (c *Campaign) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg != nil
}

// Config returns the campaign configuration.
func (c *Campaign) Config() (*campaign.Config, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	return c.cfg.Clone(), nil
}

// Aggregate returns the campaign-wide counters.
func (c *Campaign) Aggregate() (*contribution.Aggregate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	return c.agg.Clone(), nil
}

// Contributor returns one user's cumulative position.
func (c *Campaign) Contributor(user string) (*contribution.Contributor, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	contrib := c.contributors[user]
	if contrib == nil {
		return nil, fmt.Errorf("%w: contributor %s", ErrNotFound, user)
	}
	return contrib.Clone(), nil
}

// Account returns one beneficiary's vesting account.
func (c *Campaign) Account(beneficiary string) (*vesting.Account, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	acc := c.accounts[beneficiary]
	if acc == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoAccount, beneficiary)
	}
	return acc.Clone(), nil
}

// Reserve returns the custody totals.
func (c *Campaign) Reserve() (*custody.Reserve, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireInitialized(); err != nil {
		return nil, err
	}
	return c.reserve.Clone(), nil
}

// GoalReached reports whether issued entitlement has reached the goal.
func (c *Campaign) GoalReached() (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.requireInitialized(); err != nil {
		return false, err
	}
	return !c.agg.Issued.LessThan(c.cfg.Goal), nil
}

// Entries lists committed ledger entries, newest first.
func (c *Campaign) Entries(ctx context.Context, opts contribution.ListOpts) ([]*contribution.Entry, error) {
	return c.store.ListEntries(ctx, opts)
}
