// Package plugin provides an extensible plugin system for Raise.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/raise/id"
	"github.com/xraph/raise/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Event payloads
// ──────────────────────────────────────────────────

// PurchaseEvent describes a committed payment-channel contribution.
type PurchaseEvent struct {
	Entry       id.EntryID
	User        string
	Channel     id.ChannelID
	Paid        types.Amount
	Refunded    types.Amount
	Entitlement types.Amount
	At          time.Time
}

// GrantEvent describes a committed distributor grant.
type GrantEvent struct {
	Entry       id.EntryID
	Receiver    string
	Channel     id.ChannelID
	Entitlement types.Amount
	Ref         string
	At          time.Time
}

// RefundEvent describes the overflow portion of a partial-fill purchase
// returned to the payer.
type RefundEvent struct {
	Entry    id.EntryID
	User     string
	Channel  id.ChannelID
	Refunded types.Amount
	At       time.Time
}

// ClaimEvent describes tokens released to a beneficiary.
type ClaimEvent struct {
	Claim       id.ClaimID
	Beneficiary string
	Released    types.Amount
	Chunk       uint64
	At          time.Time
}

// ReserveEvent describes a custody movement: a deposit, an operator
// withdrawal, or a foreign-token extraction. To carries the recipient
// of an outbound movement and is empty for deposits.
type ReserveEvent struct {
	Actor     string
	To        string
	Amount    types.Amount
	Deposited types.Amount
	Locked    types.Amount
	Released  types.Amount
	Token     string
	At        time.Time
}

// ConfigChangeEvent describes a privileged configuration update.
type ConfigChangeEvent struct {
	Actor string
	Field string
	At    time.Time
}

// GoalReachedEvent fires once, when issued entitlement first reaches the
// funding goal.
type GoalReachedEvent struct {
	Goal   types.Amount
	Issued types.Amount
	At     time.Time
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, c interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Contribution hooks
// ──────────────────────────────────────────────────

// OnPurchase is called after a contribution commits.
type OnPurchase interface {
	Plugin
	OnPurchase(ctx context.Context, ev PurchaseEvent) error
}

// OnGrant is called after a distributor grant commits.
type OnGrant interface {
	Plugin
	OnGrant(ctx context.Context, ev GrantEvent) error
}

// OnRefund is called after a partial-fill purchase returns its overflow.
// It fires alongside OnPurchase for the same entry.
type OnRefund interface {
	Plugin
	OnRefund(ctx context.Context, ev RefundEvent) error
}

// OnGoalReached is called when the funding goal is first reached.
type OnGoalReached interface {
	Plugin
	OnGoalReached(ctx context.Context, ev GoalReachedEvent) error
}

// ──────────────────────────────────────────────────
// Claim hooks
// ──────────────────────────────────────────────────

// OnClaim is called after a vested claim is released.
type OnClaim interface {
	Plugin
	OnClaim(ctx context.Context, ev ClaimEvent) error
}

// ──────────────────────────────────────────────────
// Custody hooks
// ──────────────────────────────────────────────────

// OnDeposit is called after a reserve deposit commits.
type OnDeposit interface {
	Plugin
	OnDeposit(ctx context.Context, ev ReserveEvent) error
}

// OnWithdraw is called after an operator withdrawal commits.
type OnWithdraw interface {
	Plugin
	OnWithdraw(ctx context.Context, ev ReserveEvent) error
}

// OnExtract is called after a foreign-token extraction commits.
type OnExtract interface {
	Plugin
	OnExtract(ctx context.Context, ev ReserveEvent) error
}

// ──────────────────────────────────────────────────
// Configuration hooks
// ──────────────────────────────────────────────────

// OnConfigChanged is called after a privileged configuration update.
type OnConfigChanged interface {
	Plugin
	OnConfigChanged(ctx context.Context, ev ConfigChangeEvent) error
}
