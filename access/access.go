// Package access defines the collaborator interfaces Raise consumes for
// authorization, whitelisting, and time.
//
// Raise never decides who may call an operation — it asks these interfaces
// and treats a negative answer as an admission failure. Implementations are
// injected at engine construction so the surrounding application keeps full
// control over its permission model.
package access

import (
	"context"
	"time"
)

// Capability names a privileged operation class an actor may hold.
type Capability string

// Capability constants for all privileged Raise operations.
const (
	// CapabilityConfigure covers campaign initialization and every
	// configuration change (windows, caps, channel pause toggles).
	CapabilityConfigure Capability = "configure"

	// CapabilityDistribute covers direct entitlement grants through the
	// distributor channel.
	CapabilityDistribute Capability = "distribute"

	// CapabilityCustody covers reserve withdrawal and foreign-token sweeps.
	CapabilityCustody Capability = "custody"
)

// Authorizer answers capability checks for privileged operations.
type Authorizer interface {
	IsAuthorized(ctx context.Context, actor string, c Capability) (bool, error)
}

// AuthorizerFunc is an adapter to use a plain function as an Authorizer.
type AuthorizerFunc func(ctx context.Context, actor string, c Capability) (bool, error)

// IsAuthorized implements Authorizer.
func (f AuthorizerFunc) IsAuthorized(ctx context.Context, actor string, c Capability) (bool, error) {
	return f(ctx, actor, c)
}

// AllowAll authorizes every actor for every capability. Intended for tests
// and single-operator deployments.
type AllowAll struct{}

// IsAuthorized implements Authorizer.
func (AllowAll) IsAuthorized(context.Context, string, Capability) (bool, error) {
	return true, nil
}

// Whitelist answers whether a user may contribute during the whitelist
// window of a sale.
type Whitelist interface {
	IsWhitelisted(ctx context.Context, user string) (bool, error)
}

// WhitelistFunc is an adapter to use a plain function as a Whitelist.
type WhitelistFunc func(ctx context.Context, user string) (bool, error)

// IsWhitelisted implements Whitelist.
func (f WhitelistFunc) IsWhitelisted(ctx context.Context, user string) (bool, error) {
	return f(ctx, user)
}

// Open whitelists every user.
type Open struct{}

// IsWhitelisted implements Whitelist.
func (Open) IsWhitelisted(context.Context, string) (bool, error) {
	return true, nil
}

// Clock is the time source for window and vesting arithmetic. Injecting it
// keeps chunk math deterministic under test.
type Clock interface {
	Now() time.Time
}

// ClockFunc is an adapter to use a plain function as a Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now().UTC() }
