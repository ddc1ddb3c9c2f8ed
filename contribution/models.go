// Package contribution holds the running accounting of a campaign: the
// per-user paid and entitlement balances, the process-wide aggregate
// counters, and the append-only entry log. Records are created lazily on
// first use and are never deleted.
package contribution

import (
	"time"

	"github.com/xraph/raise/id"
	"github.com/xraph/raise/types"
)

// EntryKind distinguishes the ways entitlement is issued.
type EntryKind string

const (
	// KindPurchase is a payment converted into entitlement.
	KindPurchase EntryKind = "purchase"

	// KindGrant is entitlement issued directly by a distributor.
	KindGrant EntryKind = "grant"
)

// Contributor is the cumulative position of one user across all channels.
type Contributor struct {
	types.Entity

	User string `json:"user" bun:"user,pk"`

	// PaidByChannel accumulates the paid amount per channel, in payment
	// units, net of overflow refunds.
	PaidByChannel map[string]types.Amount `json:"paid_by_channel" bun:"paid_by_channel,type:jsonb"`

	// Entitlement is the total receivable entitlement granted to the
	// user, across all channels. The per-user cap is enforced on it.
	Entitlement types.Amount `json:"entitlement" bun:"entitlement"`
}

// NewContributor returns an empty position for the given user.
func NewContributor(user string) *Contributor {
	return &Contributor{
		Entity:        types.NewEntity(),
		User:          user,
		PaidByChannel: make(map[string]types.Amount),
	}
}

// Paid returns the cumulative amount the user paid through a channel.
func (c *Contributor) Paid(channel id.ChannelID) types.Amount {
	return c.PaidByChannel[channel.String()]
}

// Clone returns a deep copy of the contributor.
func (c *Contributor) Clone() *Contributor {
	if c == nil {
		return nil
	}
	dup := *c
	dup.PaidByChannel = make(map[string]types.Amount, len(c.PaidByChannel))
	for cid, amt := range c.PaidByChannel {
		dup.PaidByChannel[cid] = amt
	}
	return &dup
}

// Aggregate is the campaign-wide counter set. The goal cap is enforced on
// Issued; the per-channel maps reconcile it.
type Aggregate struct {
	types.Entity

	// Issued is the total entitlement granted so far, after refund
	// adjustment. Never exceeds the campaign goal.
	Issued types.Amount `json:"issued" bun:"issued"`

	// RaisedNative is the total native value accepted.
	RaisedNative types.Amount `json:"raised_native" bun:"raised_native"`

	// RaisedByToken is the total paid amount accepted per external token
	// address.
	RaisedByToken map[string]types.Amount `json:"raised_by_token" bun:"raised_by_token,type:jsonb"`

	// RaisedByChannel and IssuedByChannel break the totals down per
	// channel. sum(IssuedByChannel) always equals Issued.
	RaisedByChannel map[string]types.Amount `json:"raised_by_channel" bun:"raised_by_channel,type:jsonb"`
	IssuedByChannel map[string]types.Amount `json:"issued_by_channel" bun:"issued_by_channel,type:jsonb"`
}

// NewAggregate returns a zeroed counter set.
func NewAggregate() *Aggregate {
	return &Aggregate{
		Entity:          types.NewEntity(),
		RaisedByToken:   make(map[string]types.Amount),
		RaisedByChannel: make(map[string]types.Amount),
		IssuedByChannel: make(map[string]types.Amount),
	}
}

// Remaining returns how much entitlement may still be issued before the
// given goal is reached.
func (a *Aggregate) Remaining(goal types.Amount) types.Amount {
	if a.Issued.GreaterThan(goal) {
		return types.ZeroAmount
	}
	return goal.Sub(a.Issued)
}

// Clone returns a deep copy of the aggregate.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	dup := *a
	dup.RaisedByToken = make(map[string]types.Amount, len(a.RaisedByToken))
	for tok, amt := range a.RaisedByToken {
		dup.RaisedByToken[tok] = amt
	}
	dup.RaisedByChannel = make(map[string]types.Amount, len(a.RaisedByChannel))
	for cid, amt := range a.RaisedByChannel {
		dup.RaisedByChannel[cid] = amt
	}
	dup.IssuedByChannel = make(map[string]types.Amount, len(a.IssuedByChannel))
	for cid, amt := range a.IssuedByChannel {
		dup.IssuedByChannel[cid] = amt
	}
	return &dup
}

// Entry is one committed ledger operation. Entries are append-only; the
// log is the campaign's permanent audit trail.
type Entry struct {
	types.Entity

	ID      id.EntryID   `json:"id" bun:"id,pk"`
	Kind    EntryKind    `json:"kind" bun:"kind"`
	User    string       `json:"user" bun:"user"`
	Channel id.ChannelID `json:"channel" bun:"channel"`

	// Paid is the accepted payment in payment units, net of refund.
	// Zero for distributor grants.
	Paid types.Amount `json:"paid" bun:"paid"`

	// Refunded is the overflow refund returned to the payer, in payment
	// units.
	Refunded types.Amount `json:"refunded" bun:"refunded"`

	// Entitlement is the receivable amount granted by the operation.
	Entitlement types.Amount `json:"entitlement" bun:"entitlement"`

	// Ref is the external reconciliation reference of a distributor
	// grant.
	Ref string `json:"ref,omitempty" bun:"ref"`

	At time.Time `json:"at" bun:"at"`
}

// Clone returns a copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	dup := *e
	return &dup
}

// ListOpts narrows an entry listing.
type ListOpts struct {
	User    string
	Channel id.ChannelID
	Kind    EntryKind
	Limit   int
	Offset  int
}
