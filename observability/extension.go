// Package observability provides a metrics extension for Campaign that records
// lifecycle event counts and amount distributions via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/raise/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin          = (*MetricsExtension)(nil)
	_ plugin.OnInit          = (*MetricsExtension)(nil)
	_ plugin.OnPurchase      = (*MetricsExtension)(nil)
	_ plugin.OnRefund        = (*MetricsExtension)(nil)
	_ plugin.OnGrant         = (*MetricsExtension)(nil)
	_ plugin.OnGoalReached   = (*MetricsExtension)(nil)
	_ plugin.OnClaim         = (*MetricsExtension)(nil)
	_ plugin.OnDeposit       = (*MetricsExtension)(nil)
	_ plugin.OnWithdraw      = (*MetricsExtension)(nil)
	_ plugin.OnExtract       = (*MetricsExtension)(nil)
	_ plugin.OnConfigChanged = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records campaign-wide lifecycle metrics.
// Register it as a Campaign plugin to automatically track sale,
// vesting, and custody activity.
type MetricsExtension struct {
	factory MetricFactory

	// Sale metrics
	Purchases         Counter
	PurchaseRefunds   Counter
	Grants            Counter
	GoalReached       Counter
	PurchasePaid      Histogram
	PurchaseRefunded  Histogram
	GrantEntitlement  Histogram
	EntitlementIssued Histogram

	// Vesting metrics
	Claims        Counter
	ClaimReleased Histogram

	// Custody metrics
	Deposits    Counter
	Withdrawals Counter
	Extractions Counter
	DepositSize Histogram

	// Config metrics
	ConfigChanges Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Sale metrics
		Purchases:         factory.Counter("raise.purchase.completed"),
		PurchaseRefunds:   factory.Counter("raise.purchase.refunded"),
		Grants:            factory.Counter("raise.grant.issued"),
		GoalReached:       factory.Counter("raise.goal.reached"),
		PurchasePaid:      factory.Histogram("raise.purchase.paid_amount"),
		PurchaseRefunded:  factory.Histogram("raise.purchase.refunded_amount"),
		GrantEntitlement:  factory.Histogram("raise.grant.entitlement_amount"),
		EntitlementIssued: factory.Histogram("raise.entitlement.issued_amount"),

		// Vesting metrics
		Claims:        factory.Counter("raise.claim.released"),
		ClaimReleased: factory.Histogram("raise.claim.released_amount"),

		// Custody metrics
		Deposits:    factory.Counter("raise.reserve.deposited"),
		Withdrawals: factory.Counter("raise.reserve.withdrawn"),
		Extractions: factory.Counter("raise.reserve.extracted"),
		DepositSize: factory.Histogram("raise.reserve.deposit_amount"),

		// Config metrics
		ConfigChanges: factory.Counter("raise.config.changed"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Sale lifecycle hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (m *MetricsExtension) OnPurchase(_ context.Context, ev plugin.PurchaseEvent) error {
	m.Purchases.Inc()
	m.PurchasePaid.Observe(float64(ev.Paid.Uint64()))
	m.EntitlementIssued.Observe(float64(ev.Entitlement.Uint64()))
	return nil
}

// OnRefund implements plugin.OnRefund.
func (m *MetricsExtension) OnRefund(_ context.Context, ev plugin.RefundEvent) error {
	m.PurchaseRefunds.Inc()
	m.PurchaseRefunded.Observe(float64(ev.Refunded.Uint64()))
	return nil
}

// OnGrant implements plugin.OnGrant.
func (m *MetricsExtension) OnGrant(_ context.Context, ev plugin.GrantEvent) error {
	m.Grants.Inc()
	m.GrantEntitlement.Observe(float64(ev.Entitlement.Uint64()))
	m.EntitlementIssued.Observe(float64(ev.Entitlement.Uint64()))
	return nil
}

// OnGoalReached implements plugin.OnGoalReached.
func (m *MetricsExtension) OnGoalReached(_ context.Context, _ plugin.GoalReachedEvent) error {
	m.GoalReached.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Vesting lifecycle hooks
// ──────────────────────────────────────────────────

// OnClaim implements plugin.OnClaim.
func (m *MetricsExtension) OnClaim(_ context.Context, ev plugin.ClaimEvent) error {
	m.Claims.Inc()
	m.ClaimReleased.Observe(float64(ev.Released.Uint64()))
	return nil
}

// ──────────────────────────────────────────────────
// Custody lifecycle hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (m *MetricsExtension) OnDeposit(_ context.Context, ev plugin.ReserveEvent) error {
	m.Deposits.Inc()
	m.DepositSize.Observe(float64(ev.Amount.Uint64()))
	return nil
}

// OnWithdraw implements plugin.OnWithdraw.
func (m *MetricsExtension) OnWithdraw(_ context.Context, _ plugin.ReserveEvent) error {
	m.Withdrawals.Inc()
	return nil
}

// OnExtract implements plugin.OnExtract.
func (m *MetricsExtension) OnExtract(_ context.Context, _ plugin.ReserveEvent) error {
	m.Extractions.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Config hooks
// ──────────────────────────────────────────────────

// OnConfigChanged implements plugin.OnConfigChanged.
func (m *MetricsExtension) OnConfigChanged(_ context.Context, _ plugin.ConfigChangeEvent) error {
	m.ConfigChanges.Inc()
	return nil
}
