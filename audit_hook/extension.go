// Package audithook bridges Raise lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on
// any particular audit system. Callers inject a RecorderFunc adapter that
// bridges to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/raise/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin          = (*Extension)(nil)
	_ plugin.OnPurchase      = (*Extension)(nil)
	_ plugin.OnGrant         = (*Extension)(nil)
	_ plugin.OnRefund        = (*Extension)(nil)
	_ plugin.OnGoalReached   = (*Extension)(nil)
	_ plugin.OnClaim         = (*Extension)(nil)
	_ plugin.OnDeposit       = (*Extension)(nil)
	_ plugin.OnWithdraw      = (*Extension)(nil)
	_ plugin.OnExtract       = (*Extension)(nil)
	_ plugin.OnConfigChanged = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement. It is
// defined locally so that wiring any concrete audit system stays a
// caller-side concern.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Raise lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Contribution hooks
// ──────────────────────────────────────────────────

// OnPurchase implements plugin.OnPurchase.
func (e *Extension) OnPurchase(ctx context.Context, ev plugin.PurchaseEvent) error {
	return e.record(ctx, ActionPurchaseCompleted, SeverityInfo, OutcomeSuccess,
		ResourceContribution, ev.Entry.String(), CategorySale, nil,
		"user", ev.User,
		"channel", ev.Channel.String(),
		"paid", ev.Paid.String(),
		"refunded", ev.Refunded.String(),
		"entitlement", ev.Entitlement.String(),
	)
}

// OnRefund implements plugin.OnRefund.
func (e *Extension) OnRefund(ctx context.Context, ev plugin.RefundEvent) error {
	return e.record(ctx, ActionPurchaseRefunded, SeverityInfo, OutcomePartial,
		ResourceContribution, ev.Entry.String(), CategorySale, nil,
		"user", ev.User,
		"channel", ev.Channel.String(),
		"refunded", ev.Refunded.String(),
	)
}

// OnGrant implements plugin.OnGrant.
func (e *Extension) OnGrant(ctx context.Context, ev plugin.GrantEvent) error {
	return e.record(ctx, ActionGrantIssued, SeverityInfo, OutcomeSuccess,
		ResourceGrant, ev.Entry.String(), CategorySale, nil,
		"receiver", ev.Receiver,
		"entitlement", ev.Entitlement.String(),
		"ref", ev.Ref,
	)
}

// OnGoalReached implements plugin.OnGoalReached.
func (e *Extension) OnGoalReached(ctx context.Context, ev plugin.GoalReachedEvent) error {
	return e.record(ctx, ActionGoalReached, SeverityInfo, OutcomeSuccess,
		ResourceCampaign, "", CategorySale, nil,
		"goal", ev.Goal.String(),
		"issued", ev.Issued.String(),
	)
}

// ──────────────────────────────────────────────────
// Claim hooks
// ──────────────────────────────────────────────────

// OnClaim implements plugin.OnClaim.
func (e *Extension) OnClaim(ctx context.Context, ev plugin.ClaimEvent) error {
	return e.record(ctx, ActionClaimReleased, SeverityInfo, OutcomeSuccess,
		ResourceClaim, ev.Claim.String(), CategoryVesting, nil,
		"beneficiary", ev.Beneficiary,
		"released", ev.Released.String(),
		"chunk", ev.Chunk,
	)
}

// ──────────────────────────────────────────────────
// Custody hooks
// ──────────────────────────────────────────────────

// OnDeposit implements plugin.OnDeposit.
func (e *Extension) OnDeposit(ctx context.Context, ev plugin.ReserveEvent) error {
	return e.record(ctx, ActionReserveDeposited, SeverityInfo, OutcomeSuccess,
		ResourceReserve, "", CategoryCustody, nil,
		"actor", ev.Actor,
		"amount", ev.Amount.String(),
		"deposited", ev.Deposited.String(),
	)
}

// OnWithdraw implements plugin.OnWithdraw.
func (e *Extension) OnWithdraw(ctx context.Context, ev plugin.ReserveEvent) error {
	return e.record(ctx, ActionReserveWithdrawn, SeverityWarning, OutcomeSuccess,
		ResourceReserve, "", CategoryCustody, nil,
		"actor", ev.Actor,
		"to", ev.To,
		"amount", ev.Amount.String(),
		"deposited", ev.Deposited.String(),
	)
}

// OnExtract implements plugin.OnExtract.
func (e *Extension) OnExtract(ctx context.Context, ev plugin.ReserveEvent) error {
	return e.record(ctx, ActionReserveExtracted, SeverityWarning, OutcomeSuccess,
		ResourceReserve, "", CategoryCustody, nil,
		"actor", ev.Actor,
		"to", ev.To,
		"token", ev.Token,
		"amount", ev.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Configuration hooks
// ──────────────────────────────────────────────────

// OnConfigChanged implements plugin.OnConfigChanged.
func (e *Extension) OnConfigChanged(ctx context.Context, ev plugin.ConfigChangeEvent) error {
	return e.record(ctx, ActionConfigChanged, SeverityInfo, OutcomeSuccess,
		ResourceCampaign, "", CategoryConfig, nil,
		"actor", ev.Actor,
		"field", ev.Field,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
