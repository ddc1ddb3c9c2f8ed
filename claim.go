package raise

import (
	"context"
	"fmt"

	"github.com/xraph/raise/id"
	"github.com/xraph/raise/plugin"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/types"
	"github.com/xraph/raise/vesting"
)

// PendingClaim reports the amount the beneficiary could claim right now.
// It is a read-only view and never changes state.
func (c *Campaign) PendingClaim(ctx context.Context, beneficiary string) (types.Amount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := c.requireInitialized(); err != nil {
		return types.ZeroAmount, err
	}
	acc := c.accounts[beneficiary]
	if acc == nil {
		return types.ZeroAmount, fmt.Errorf("%w: %s", ErrNoAccount, beneficiary)
	}

	chunk := c.cfg.Vesting.ChunkAt(c.clock.Now())
	return acc.PendingAt(c.cfg.Vesting, chunk), nil
}

// Claim releases the beneficiary's vested, unclaimed entitlement through
// the reserve token and advances the account to the current chunk. It
// rejects with ErrNothingToClaim when the schedule has not unlocked
// anything new since the last settlement.
func (c *Campaign) Claim(ctx context.Context, beneficiary string) (types.Amount, error) {
	if err := c.begin(); err != nil {
		return types.ZeroAmount, err
	}
	defer c.end()

	c.mu.Lock()
	if err := c.requireInitialized(); err != nil {
		c.mu.Unlock()
		return types.ZeroAmount, err
	}
	if c.reserveToken == nil {
		c.mu.Unlock()
		return types.ZeroAmount, fmt.Errorf("%w: no reserve token configured", ErrUnknownToken)
	}

	acc := c.accounts[beneficiary]
	if acc == nil {
		c.mu.Unlock()
		return types.ZeroAmount, fmt.Errorf("%w: %s", ErrNoAccount, beneficiary)
	}

	now := c.clock.Now()
	chunk := c.cfg.Vesting.ChunkAt(now)

	next, pending, err := settleAccount(acc, c.cfg.Vesting, chunk)
	if err != nil {
		c.mu.Unlock()
		return types.ZeroAmount, err
	}

	reserve := c.reserve.Clone()
	reserve.Released = reserve.Released.Add(pending)
	reserve.Touch()

	cs := &store.Changeset{
		Accounts: map[string]*vesting.Account{beneficiary: next},
		Reserve:  reserve,
	}
	if err := c.persist(ctx, cs); err != nil {
		c.revertClaim(ctx, beneficiary, acc)
		c.mu.Unlock()
		return types.ZeroAmount, err
	}

	if err := c.reserveToken.TransferOut(ctx, beneficiary, pending); err != nil {
		c.revertClaim(ctx, beneficiary, acc)
		c.mu.Unlock()
		return types.ZeroAmount, fmt.Errorf("%w: release %s to %s: %v", ErrTransferFailed, pending, beneficiary, err)
	}

	c.accounts[beneficiary] = next
	c.reserve = reserve
	c.mu.Unlock()

	claimID := id.NewClaimID()
	c.logger.Debug("claim released",
		"claim", claimID,
		"beneficiary", beneficiary,
		"released", pending,
		"chunk", chunk,
	)

	c.plugins.EmitClaim(ctx, plugin.ClaimEvent{
		Claim:       claimID,
		Beneficiary: beneficiary,
		Released:    pending,
		Chunk:       chunk,
		At:          now,
	})

	return pending, nil
}

// ClaimBatch settles claims for several beneficiaries in one operation.
// Every member is validated against the batch's working view before any
// state is written or released, so a single invalid member rejects the
// whole batch. Releases are then pushed in order; if the medium fails
// partway through, the members already paid stay settled and the rest
// are rolled back.
func (c *Campaign) ClaimBatch(ctx context.Context, beneficiaries []string) (map[string]types.Amount, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if len(beneficiaries) == 0 {
		return nil, ErrEmptyClaimBatch
	}

	c.mu.Lock()
	if err := c.requireInitialized(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.reserveToken == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no reserve token configured", ErrUnknownToken)
	}

	now := c.clock.Now()
	chunk := c.cfg.Vesting.ChunkAt(now)

	// Validation pass over a working view. A beneficiary listed twice
	// sees its own settlement and rejects the batch as nothing-to-claim.
	settled := make(map[string]*vesting.Account, len(beneficiaries))
	releases := make(map[string]types.Amount, len(beneficiaries))
	reserve := c.reserve.Clone()
	for _, b := range beneficiaries {
		acc := settled[b]
		if acc == nil {
			acc = c.accounts[b]
		}
		if acc == nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: %s", ErrNoAccount, b)
		}
		next, pending, err := settleAccount(acc, c.cfg.Vesting, chunk)
		if err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("%w (%s)", err, b)
		}
		settled[b] = next
		releases[b] = pending
		reserve.Released = reserve.Released.Add(pending)
	}
	reserve.Touch()

	cs := &store.Changeset{
		Accounts: settled,
		Reserve:  reserve,
	}
	if err := c.persist(ctx, cs); err != nil {
		// Nothing was released yet, so the rollback covers every member.
		c.rollbackBatchTail(ctx, beneficiaries, nil, settled)
		c.mu.Unlock()
		return nil, err
	}

	paid := make(map[string]types.Amount, len(beneficiaries))
	for i, b := range beneficiaries {
		if err := c.reserveToken.TransferOut(ctx, b, releases[b]); err != nil {
			c.rollbackBatchTail(ctx, beneficiaries[i:], paid, settled)
			c.mu.Unlock()
			return paid, fmt.Errorf("%w: release %s to %s: %v", ErrTransferFailed, releases[b], b, err)
		}
		paid[b] = releases[b]
	}

	for b, next := range settled {
		c.accounts[b] = next
	}
	c.reserve = reserve
	c.mu.Unlock()

	c.logger.Debug("claim batch released",
		"beneficiaries", len(beneficiaries),
		"chunk", chunk,
	)
	for b, amount := range paid {
		c.plugins.EmitClaim(ctx, plugin.ClaimEvent{
			Claim:       id.NewClaimID(),
			Beneficiary: b,
			Released:    amount,
			Chunk:       chunk,
			At:          now,
		})
	}

	return paid, nil
}

// revertClaim rewrites a single settlement's pre-images after a failed
// persist or release. Callers must hold c.mu; in-memory state still
// holds the pre-images.
func (c *Campaign) revertClaim(ctx context.Context, beneficiary string, acc *vesting.Account) {
	pre := &store.Changeset{
		Accounts: map[string]*vesting.Account{beneficiary: acc},
		Reserve:  c.reserve,
	}
	if err := c.store.Apply(ctx, pre); err != nil {
		c.logger.Warn("compensating write failed, stored state diverges until restart",
			"beneficiary", beneficiary,
			"error", err,
		)
	}
}

// rollbackBatchTail undoes the persisted settlements of the batch members
// whose release never went out. Members already paid keep their settled
// accounts; the reserve is rewritten to cover only their releases.
// Callers must hold c.mu; in-memory state still holds the pre-images.
func (c *Campaign) rollbackBatchTail(ctx context.Context, unpaid []string, paid map[string]types.Amount, settled map[string]*vesting.Account) {
	reserve := c.reserve.Clone()
	for _, amount := range paid {
		reserve.Released = reserve.Released.Add(amount)
	}
	reserve.Touch()

	pre := &store.Changeset{
		Accounts: make(map[string]*vesting.Account, len(unpaid)),
		Reserve:  reserve,
	}
	for _, b := range unpaid {
		if _, done := paid[b]; done {
			continue
		}
		if acc := c.accounts[b]; acc != nil {
			pre.Accounts[b] = acc
		}
	}

	// Commit the paid members in memory first so ledger and medium agree
	// even if the compensating write fails.
	for b := range paid {
		c.accounts[b] = settled[b]
	}
	c.reserve = reserve

	if err := c.store.Apply(ctx, pre); err != nil {
		c.logger.Warn("compensating write failed, stored state diverges until restart",
			"unpaid", len(pre.Accounts),
			"error", err,
		)
	}
}

// settleAccount applies one claim settlement to a clone of the account:
// everything vested through the given chunk and not yet claimed is
// released and the settlement chunk recorded.
func settleAccount(acc *vesting.Account, s vesting.Schedule, chunk uint64) (*vesting.Account, types.Amount, error) {
	if acc.Entitlement.IsZero() || chunk <= acc.LastChunk {
		return nil, types.ZeroAmount, ErrNothingToClaim
	}
	pending := acc.PendingAt(s, chunk)
	if pending.IsZero() {
		return nil, types.ZeroAmount, ErrNothingToClaim
	}

	next := acc.Clone()
	next.Claimed = next.Claimed.Add(pending)
	next.LastChunk = chunk
	next.Touch()
	return next, pending, nil
}
