package raise

import (
	"context"
	"fmt"

	"github.com/xraph/raise/access"
	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/contribution"
	"github.com/xraph/raise/custody"
	"github.com/xraph/raise/id"
	"github.com/xraph/raise/plugin"
	"github.com/xraph/raise/rate"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/token"
	"github.com/xraph/raise/types"
	"github.com/xraph/raise/vesting"
)

// ContributeNative purchases entitlement with the campaign's native
// currency channel. The payment is pulled through the medium registered
// with WithNativeToken; the committed ledger entry is returned, carrying
// the accepted payment, any overflow refund, and the granted entitlement.
func (c *Campaign) ContributeNative(ctx context.Context, user string, paid types.Amount) (*contribution.Entry, error) {
	return c.contribute(ctx, user, paid, func(cfg *campaign.Config) (*campaign.Channel, error) {
		for _, ch := range cfg.Channels {
			if ch.Kind == campaign.KindNative {
				return ch, nil
			}
		}
		return nil, fmt.Errorf("%w: no native channel", ErrUnknownChannel)
	})
}

// ContributeToken purchases entitlement through the channel that accepts
// the given payment token.
func (c *Campaign) ContributeToken(ctx context.Context, user, tokenAddr string, paid types.Amount) (*contribution.Entry, error) {
	return c.contribute(ctx, user, paid, func(cfg *campaign.Config) (*campaign.Channel, error) {
		for _, ch := range cfg.Channels {
			if ch.Kind == campaign.KindToken && ch.Token == tokenAddr {
				return ch, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownChannel, tokenAddr)
	})
}

// contribute runs the shared purchase path: admission, rate conversion,
// cap admission with partial fill, per-user cap, vesting lock with
// catch-up, one persisted changeset, then the outbound transfers.
func (c *Campaign) contribute(ctx context.Context, user string, paid types.Amount, pick func(*campaign.Config) (*campaign.Channel, error)) (*contribution.Entry, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	c.mu.Lock()
	if err := c.requireInitialized(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	ch, err := pick(c.cfg)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	now := c.clock.Now()
	if err := c.admit(ctx, ch, user, now); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if paid.IsZero() {
		c.mu.Unlock()
		return nil, ErrInvalidAmount
	}
	if paid.LessThan(ch.MinPaid) {
		c.mu.Unlock()
		return nil, ErrBelowMinimum
	}
	if !ch.MaxPaid.IsZero() && paid.GreaterThan(ch.MaxPaid) {
		c.mu.Unlock()
		return nil, ErrAboveMaximum
	}

	remaining := c.agg.Remaining(c.cfg.Goal)
	if remaining.IsZero() {
		c.mu.Unlock()
		return nil, ErrGoalReached
	}

	receive, err := rate.Convert(paid, ch.PayDecimals, c.cfg.ReceiveDecimals, ch.Rate, ch.RateScale)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if receive.IsZero() {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: payment converts to zero entitlement", ErrInvalidAmount)
	}

	// Cap admission. An overflowing purchase shrinks to exactly the
	// remaining goal. The refund is the inverse conversion of the excess
	// entitlement, floored, so the refund never exceeds what the excess
	// actually cost; any rounding dust stays on the consumed side.
	accepted := receive
	acceptedPaid := paid
	refund := types.ZeroAmount
	if receive.GreaterThan(remaining) {
		accepted = remaining
		refund, err = rate.Invert(receive.Sub(remaining), ch.PayDecimals, c.cfg.ReceiveDecimals, ch.Rate, ch.RateScale)
		if err != nil {
			c.mu.Unlock()
			return nil, err
		}
		acceptedPaid = paid.Sub(refund)
	}

	if err := c.admitEntitlement(user, accepted); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	medium, err := c.channelToken(ch)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	entry := &contribution.Entry{
		Entity:      types.NewEntity(),
		ID:          id.NewEntryID(),
		Kind:        contribution.KindPurchase,
		User:        user,
		Channel:     ch.ID,
		Paid:        acceptedPaid,
		Refunded:    refund,
		Entitlement: accepted,
		At:          now,
	}

	eff, err := c.lockEntitlement(user, accepted)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	key := ch.ID.String()
	contrib := c.contributors[user].Clone()
	if contrib == nil {
		contrib = contribution.NewContributor(user)
	}
	contrib.PaidByChannel[key] = contrib.PaidByChannel[key].Add(acceptedPaid)
	contrib.Entitlement = contrib.Entitlement.Add(accepted)
	contrib.Touch()

	agg := c.agg.Clone()
	agg.Issued = agg.Issued.Add(accepted)
	agg.RaisedByChannel[key] = agg.RaisedByChannel[key].Add(acceptedPaid)
	agg.IssuedByChannel[key] = agg.IssuedByChannel[key].Add(accepted)
	switch ch.Kind {
	case campaign.KindNative:
		agg.RaisedNative = agg.RaisedNative.Add(acceptedPaid)
	case campaign.KindToken:
		agg.RaisedByToken[ch.Token] = agg.RaisedByToken[ch.Token].Add(acceptedPaid)
	}
	agg.Touch()

	// Pull the full payment in before any bookkeeping is persisted. A
	// failed pull leaves no residual mutation.
	if err := medium.TransferIn(ctx, user, paid); err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: pull %s from %s: %v", ErrTransferFailed, paid, user, err)
	}

	cs := &store.Changeset{
		Aggregate:    agg,
		Contributors: map[string]*contribution.Contributor{user: contrib},
		Accounts:     map[string]*vesting.Account{user: eff.account},
		Reserve:      eff.reserve,
		Entries:      []*contribution.Entry{entry},
	}
	if err := c.persist(ctx, cs); err != nil {
		// Apply is not atomic on every backend; rewrite the pre-images so
		// a restart never loads a half-applied changeset.
		c.compensate(ctx, user, entry.ID)
		c.returnFunds(ctx, medium, user, paid)
		c.mu.Unlock()
		return nil, err
	}

	// Outbound transfers. On failure the persisted changeset is undone
	// with a compensating write and the held payment goes back.
	held := paid
	if !refund.IsZero() {
		if err := medium.TransferOut(ctx, user, refund); err != nil {
			c.compensate(ctx, user, entry.ID)
			c.returnFunds(ctx, medium, user, held)
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: refund %s to %s: %v", ErrTransferFailed, refund, user, err)
		}
		held = acceptedPaid
	}
	if !eff.catchUp.IsZero() {
		if err := c.reserveToken.TransferOut(ctx, user, eff.catchUp); err != nil {
			c.compensate(ctx, user, entry.ID)
			c.returnFunds(ctx, medium, user, held)
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: catch-up %s to %s: %v", ErrTransferFailed, eff.catchUp, user, err)
		}
	}

	goalEv := goalReachedEvent(c.agg, agg, c.cfg, now)
	c.contributors[user] = contrib
	c.accounts[user] = eff.account
	c.agg = agg
	c.reserve = eff.reserve
	c.mu.Unlock()

	c.logger.Debug("purchase committed",
		"entry", entry.ID,
		"user", user,
		"channel", ch.Name,
		"paid", acceptedPaid,
		"refunded", refund,
		"entitlement", accepted,
		"catch_up", eff.catchUp,
	)

	c.plugins.EmitPurchase(ctx, plugin.PurchaseEvent{
		Entry:       entry.ID,
		User:        user,
		Channel:     ch.ID,
		Paid:        acceptedPaid,
		Refunded:    refund,
		Entitlement: accepted,
		At:          now,
	})
	if !refund.IsZero() {
		c.plugins.EmitRefund(ctx, plugin.RefundEvent{
			Entry:    entry.ID,
			User:     user,
			Channel:  ch.ID,
			Refunded: refund,
			At:       now,
		})
	}
	if goalEv != nil {
		c.plugins.EmitGoalReached(ctx, *goalEv)
	}

	return entry, nil
}

// GrantViaDistributor issues entitlement directly through the distributor
// channel, against an opaque external reconciliation reference. There is
// no payment conversion, and a grant that would push issued entitlement
// past the goal is rejected outright rather than partially filled.
func (c *Campaign) GrantViaDistributor(ctx context.Context, actor, receiver string, amount types.Amount, ref string) (*contribution.Entry, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}
	defer c.end()

	if err := c.authorize(ctx, actor, access.CapabilityDistribute); err != nil {
		return nil, err
	}

	c.mu.Lock()
	if err := c.requireInitialized(); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	var ch *campaign.Channel
	for _, cand := range c.cfg.Channels {
		if cand.Kind == campaign.KindDistributor {
			ch = cand
			break
		}
	}
	if ch == nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: no distributor channel", ErrUnknownChannel)
	}

	now := c.clock.Now()
	if err := c.admit(ctx, ch, receiver, now); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if amount.IsZero() {
		c.mu.Unlock()
		return nil, ErrInvalidAmount
	}
	if c.agg.Issued.Add(amount).GreaterThan(c.cfg.Goal) {
		c.mu.Unlock()
		return nil, ErrGoalExceeded
	}
	if err := c.admitEntitlement(receiver, amount); err != nil {
		c.mu.Unlock()
		return nil, err
	}

	entry := &contribution.Entry{
		Entity:      types.NewEntity(),
		ID:          id.NewEntryID(),
		Kind:        contribution.KindGrant,
		User:        receiver,
		Channel:     ch.ID,
		Entitlement: amount,
		Ref:         ref,
		At:          now,
	}

	eff, err := c.lockEntitlement(receiver, amount)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	key := ch.ID.String()
	contrib := c.contributors[receiver].Clone()
	if contrib == nil {
		contrib = contribution.NewContributor(receiver)
	}
	contrib.Entitlement = contrib.Entitlement.Add(amount)
	contrib.Touch()

	agg := c.agg.Clone()
	agg.Issued = agg.Issued.Add(amount)
	agg.IssuedByChannel[key] = agg.IssuedByChannel[key].Add(amount)
	agg.Touch()

	cs := &store.Changeset{
		Aggregate:    agg,
		Contributors: map[string]*contribution.Contributor{receiver: contrib},
		Accounts:     map[string]*vesting.Account{receiver: eff.account},
		Reserve:      eff.reserve,
		Entries:      []*contribution.Entry{entry},
	}
	if err := c.persist(ctx, cs); err != nil {
		c.compensate(ctx, receiver, entry.ID)
		c.mu.Unlock()
		return nil, err
	}

	if !eff.catchUp.IsZero() {
		if err := c.reserveToken.TransferOut(ctx, receiver, eff.catchUp); err != nil {
			c.compensate(ctx, receiver, entry.ID)
			c.mu.Unlock()
			return nil, fmt.Errorf("%w: catch-up %s to %s: %v", ErrTransferFailed, eff.catchUp, receiver, err)
		}
	}

	goalEv := goalReachedEvent(c.agg, agg, c.cfg, now)
	c.contributors[receiver] = contrib
	c.accounts[receiver] = eff.account
	c.agg = agg
	c.reserve = eff.reserve
	c.mu.Unlock()

	c.logger.Debug("grant committed",
		"entry", entry.ID,
		"receiver", receiver,
		"entitlement", amount,
		"ref", ref,
		"catch_up", eff.catchUp,
	)

	c.plugins.EmitGrant(ctx, plugin.GrantEvent{
		Entry:       entry.ID,
		Receiver:    receiver,
		Channel:     ch.ID,
		Entitlement: amount,
		Ref:         ref,
		At:          now,
	})
	if goalEv != nil {
		c.plugins.EmitGoalReached(ctx, *goalEv)
	}

	return entry, nil
}

// lockEffects is the vesting-side outcome of granting entitlement: the
// updated account and reserve clones, and the catch-up amount released
// immediately when the beneficiary has already claimed past chunks.
type lockEffects struct {
	account *vesting.Account
	reserve *custody.Reserve
	catchUp types.Amount
}

// admitEntitlement checks the per-user cap against the post-refund
// entitlement increase. Callers must hold c.mu.
func (c *Campaign) admitEntitlement(user string, granted types.Amount) error {
	if c.cfg.UserCap.IsZero() {
		return nil
	}
	current := types.ZeroAmount
	if contrib := c.contributors[user]; contrib != nil {
		current = contrib.Entitlement
	}
	if current.Add(granted).GreaterThan(c.cfg.UserCap) {
		return ErrUserCapExceeded
	}
	return nil
}

// lockEntitlement computes the vesting lock for a grant on clones of the
// beneficiary's account and the reserve: checks reserve backing, applies
// the grant, and accounts any catch-up release. Callers must hold c.mu;
// nothing is persisted here.
func (c *Campaign) lockEntitlement(user string, granted types.Amount) (*lockEffects, error) {
	if granted.GreaterThan(c.reserve.Free()) {
		return nil, ErrInsufficientReserve
	}

	var account *vesting.Account
	if prev := c.accounts[user]; prev != nil {
		account = prev.Clone()
	} else {
		account = vesting.NewAccount(user)
	}

	catchUp := types.ZeroAmount
	if account.LastChunk >= 1 {
		catchUp = c.cfg.Vesting.CatchUp(account.LastChunk, granted)
	}
	if !catchUp.IsZero() && c.reserveToken == nil {
		return nil, fmt.Errorf("%w: no reserve token configured", ErrUnknownToken)
	}

	account.Entitlement = account.Entitlement.Add(granted)
	account.InitialShare = account.InitialShare.Add(c.cfg.Vesting.InitialShare(granted))
	account.Claimed = account.Claimed.Add(catchUp)
	account.Touch()

	reserve := c.reserve.Clone()
	reserve.Locked = reserve.Locked.Add(granted)
	reserve.Released = reserve.Released.Add(catchUp)
	reserve.Touch()

	return &lockEffects{account: account, reserve: reserve, catchUp: catchUp}, nil
}

// compensate undoes a persisted but uncommitted operation by writing the
// retained pre-images back and dropping the appended entries. In-memory
// state was never swapped, so c.agg and friends still hold the pre-images.
// Callers must hold c.mu.
func (c *Campaign) compensate(ctx context.Context, user string, entries ...id.EntryID) {
	pre := &store.Changeset{
		Aggregate:   c.agg,
		Reserve:     c.reserve,
		DropEntries: entries,
	}
	if user != "" {
		preContrib := c.contributors[user]
		if preContrib == nil {
			preContrib = contribution.NewContributor(user)
		}
		preAccount := c.accounts[user]
		if preAccount == nil {
			preAccount = vesting.NewAccount(user)
		}
		pre.Contributors = map[string]*contribution.Contributor{user: preContrib}
		pre.Accounts = map[string]*vesting.Account{user: preAccount}
	}
	if err := c.store.Apply(ctx, pre); err != nil {
		c.logger.Warn("compensating write failed, stored state diverges until restart",
			"user", user,
			"error", err,
		)
	}
}

// returnFunds pushes a pulled payment back to its payer after a failed
// operation. A failed return is logged; the medium keeps custody of the
// funds and reconciliation is manual.
func (c *Campaign) returnFunds(ctx context.Context, medium token.Token, user string, amount types.Amount) {
	if amount.IsZero() {
		return
	}
	if err := medium.TransferOut(ctx, user, amount); err != nil {
		c.logger.Warn("failed to return pulled payment",
			"user", user,
			"amount", amount,
			"error", err,
		)
	}
}
