package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit          []OnInit
	onShutdown      []OnShutdown
	onPurchase      []OnPurchase
	onGrant         []OnGrant
	onRefund        []OnRefund
	onGoalReached   []OnGoalReached
	onClaim         []OnClaim
	onDeposit       []OnDeposit
	onWithdraw      []OnWithdraw
	onExtract       []OnExtract
	onConfigChanged []OnConfigChanged
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPurchase); ok {
		r.onPurchase = append(r.onPurchase, v)
	}
	if v, ok := p.(OnGrant); ok {
		r.onGrant = append(r.onGrant, v)
	}
	if v, ok := p.(OnRefund); ok {
		r.onRefund = append(r.onRefund, v)
	}
	if v, ok := p.(OnGoalReached); ok {
		r.onGoalReached = append(r.onGoalReached, v)
	}
	if v, ok := p.(OnClaim); ok {
		r.onClaim = append(r.onClaim, v)
	}
	if v, ok := p.(OnDeposit); ok {
		r.onDeposit = append(r.onDeposit, v)
	}
	if v, ok := p.(OnWithdraw); ok {
		r.onWithdraw = append(r.onWithdraw, v)
	}
	if v, ok := p.(OnExtract); ok {
		r.onExtract = append(r.onExtract, v)
	}
	if v, ok := p.(OnConfigChanged); ok {
		r.onConfigChanged = append(r.onConfigChanged, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPurchase)(nil)).Elem(), "OnPurchase")
	checkInterface(reflect.TypeOf((*OnGrant)(nil)).Elem(), "OnGrant")
	checkInterface(reflect.TypeOf((*OnRefund)(nil)).Elem(), "OnRefund")
	checkInterface(reflect.TypeOf((*OnGoalReached)(nil)).Elem(), "OnGoalReached")
	checkInterface(reflect.TypeOf((*OnClaim)(nil)).Elem(), "OnClaim")
	checkInterface(reflect.TypeOf((*OnDeposit)(nil)).Elem(), "OnDeposit")
	checkInterface(reflect.TypeOf((*OnWithdraw)(nil)).Elem(), "OnWithdraw")
	checkInterface(reflect.TypeOf((*OnExtract)(nil)).Elem(), "OnExtract")
	checkInterface(reflect.TypeOf((*OnConfigChanged)(nil)).Elem(), "OnConfigChanged")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, c interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPurchase emits a committed purchase event.
func (r *Registry) EmitPurchase(ctx context.Context, ev PurchaseEvent) {
	r.mu.RLock()
	plugins := r.onPurchase
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPurchase(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnPurchase failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGrant emits a committed distributor grant event.
func (r *Registry) EmitGrant(ctx context.Context, ev GrantEvent) {
	r.mu.RLock()
	plugins := r.onGrant
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGrant(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnGrant failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRefund emits an overflow refund event for a partial-fill purchase.
func (r *Registry) EmitRefund(ctx context.Context, ev RefundEvent) {
	r.mu.RLock()
	plugins := r.onRefund
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRefund(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnRefund failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGoalReached emits a goal reached event.
func (r *Registry) EmitGoalReached(ctx context.Context, ev GoalReachedEvent) {
	r.mu.RLock()
	plugins := r.onGoalReached
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGoalReached(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnGoalReached failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitClaim emits a released claim event.
func (r *Registry) EmitClaim(ctx context.Context, ev ClaimEvent) {
	r.mu.RLock()
	plugins := r.onClaim
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnClaim(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnClaim failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDeposit emits a reserve deposit event.
func (r *Registry) EmitDeposit(ctx context.Context, ev ReserveEvent) {
	r.mu.RLock()
	plugins := r.onDeposit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDeposit(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnDeposit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitWithdraw emits an operator withdrawal event.
func (r *Registry) EmitWithdraw(ctx context.Context, ev ReserveEvent) {
	r.mu.RLock()
	plugins := r.onWithdraw
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnWithdraw(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnWithdraw failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitExtract emits a foreign-token extraction event.
func (r *Registry) EmitExtract(ctx context.Context, ev ReserveEvent) {
	r.mu.RLock()
	plugins := r.onExtract
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnExtract(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnExtract failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitConfigChanged emits a configuration change event.
func (r *Registry) EmitConfigChanged(ctx context.Context, ev ConfigChangeEvent) {
	r.mu.RLock()
	plugins := r.onConfigChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnConfigChanged(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnConfigChanged failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the contribution pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
