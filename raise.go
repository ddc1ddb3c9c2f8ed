package raise

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xraph/raise/access"
	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/contribution"
	"github.com/xraph/raise/custody"
	"github.com/xraph/raise/id"
	"github.com/xraph/raise/plugin"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/token"
	"github.com/xraph/raise/types"
	"github.com/xraph/raise/vesting"
)

// Campaign is the fundraising and vesting engine for one token sale.
//
// The engine keeps authoritative state in memory and writes through to its
// Store with a single Apply per committed operation. Every mutating
// operation runs checks first, pulls payment in before any bookkeeping,
// persists, and only then pushes value out; a failure at any step rolls
// the whole operation back.
type Campaign struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	auth      access.Authorizer
	whitelist access.Whitelist
	clock     access.Clock

	reserveToken token.Token
	reserveAddr  string
	native       token.Token
	tokens       map[string]token.Token

	// busy rejects reentrant mutation while an operation is in flight.
	busy atomic.Bool

	mu           sync.RWMutex
	cfg          *campaign.Config
	agg          *contribution.Aggregate
	contributors map[string]*contribution.Contributor
	accounts     map[string]*vesting.Account
	reserve      *custody.Reserve
}

// New creates a new Campaign instance.
func New(s store.Store, opts ...Option) *Campaign {
	c := &Campaign{
		store:        s,
		plugins:      plugin.NewRegistry(),
		logger:       slog.Default(),
		auth:         access.AllowAll{},
		whitelist:    access.Open{},
		clock:        access.SystemClock{},
		tokens:       make(map[string]token.Token),
		contributors: make(map[string]*contribution.Contributor),
		accounts:     make(map[string]*vesting.Account),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Option configures a Campaign instance.
type Option func(*Campaign)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Campaign) {
		c.logger = logger
		c.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(c *Campaign) {
		_ = c.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithAuthorizer sets the capability checker for privileged operations.
func WithAuthorizer(a access.Authorizer) Option {
	return func(c *Campaign) {
		c.auth = a
	}
}

// WithWhitelist sets the whitelist consulted during the whitelist window.
func WithWhitelist(w access.Whitelist) Option {
	return func(c *Campaign) {
		c.whitelist = w
	}
}

// WithClock sets the time source.
func WithClock(clk access.Clock) Option {
	return func(c *Campaign) {
		c.clock = clk
	}
}

// WithReserveToken sets the receivable token held in custody.
func WithReserveToken(addr string, t token.Token) Option {
	return func(c *Campaign) {
		c.reserveAddr = addr
		c.reserveToken = t
		c.tokens[addr] = t
	}
}

// WithNativeToken sets the payment medium for native-currency channels.
// Required when the campaign configures a channel of kind native.
func WithNativeToken(t token.Token) Option {
	return func(c *Campaign) {
		c.native = t
	}
}

// WithChannelToken registers the payment token behind a token channel.
func WithChannelToken(addr string, t token.Token) Option {
	return func(c *Campaign) {
		c.tokens[addr] = t
	}
}

// Start migrates the store and loads persisted campaign state.
func (c *Campaign) Start(ctx context.Context) error {
	if err := c.store.Migrate(ctx); err != nil {
		return err
	}

	snap, err := c.store.Load(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if snap.Campaign != nil {
		c.cfg = snap.Campaign
	}
	if snap.Aggregate != nil {
		c.agg = snap.Aggregate
	}
	if snap.Reserve != nil {
		c.reserve = snap.Reserve
	}
	if snap.Contributors != nil {
		c.contributors = snap.Contributors
	}
	if snap.Accounts != nil {
		c.accounts = snap.Accounts
	}
	initialized := c.cfg != nil
	c.mu.Unlock()

	// Initialize plugins
	c.plugins.EmitInit(ctx, c)

	c.logger.Info("campaign started",
		"initialized", initialized,
		"contributors", len(snap.Contributors),
		"accounts", len(snap.Accounts),
	)

	return nil
}

// Stop shuts down the Campaign.
func (c *Campaign) Stop() error {
	ctx := context.Background()
	c.plugins.EmitShutdown(ctx)

	return c.store.Close()
}

// Initialize writes the campaign configuration. It may be called exactly
// once; all later configuration changes go through the narrow privileged
// setters.
func (c *Campaign) Initialize(ctx context.Context, actor string, cfg *campaign.Config) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.authorize(ctx, actor, access.CapabilityConfigure); err != nil {
		return err
	}

	normalized, err := c.validateConfig(ctx, cfg)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.cfg != nil {
		c.mu.Unlock()
		return ErrAlreadyInitialized
	}

	agg := contribution.NewAggregate()
	reserve := custody.NewReserve()

	cs := &store.Changeset{
		Campaign:  normalized,
		Aggregate: agg,
		Reserve:   reserve,
	}
	if err := c.store.Apply(ctx, cs); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}

	c.cfg = normalized
	c.agg = agg
	c.reserve = reserve
	c.mu.Unlock()

	c.logger.Info("campaign initialized",
		"campaign", normalized.ID,
		"goal", normalized.Goal,
		"channels", len(normalized.Channels),
	)

	c.plugins.EmitConfigChanged(ctx, plugin.ConfigChangeEvent{
		Actor: actor,
		Field: "campaign",
		At:    c.clock.Now(),
	})

	return nil
}

// validateConfig checks a campaign configuration and returns a normalized
// deep copy with derived fields filled in. Purchase channels get their
// PayDecimals read from the medium, so a configured value never disagrees
// with what the token actually reports.
func (c *Campaign) validateConfig(ctx context.Context, cfg *campaign.Config) (*campaign.Config, error) {
	if cfg == nil {
		return nil, ValidationError{Field: "config", Message: "nil configuration"}
	}
	if cfg.Goal.IsZero() {
		return nil, ErrZeroGoal
	}
	if !cfg.SaleEnd.After(cfg.SaleStart) {
		return nil, fmt.Errorf("%w: sale end not after sale start", ErrInvalidWindow)
	}
	if !cfg.WhitelistEnd.IsZero() && !cfg.WhitelistEnd.After(cfg.SaleStart) {
		return nil, fmt.Errorf("%w: whitelist end not after sale start", ErrInvalidWindow)
	}

	schedule, err := vesting.NewSchedule(
		cfg.Vesting.FirstRelease,
		cfg.Vesting.SecondRelease,
		cfg.Vesting.ChunkInterval,
		cfg.Vesting.InitialNum,
		cfg.Vesting.ChunkNum,
		cfg.Vesting.Scale,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}

	normalized := cfg.Clone()
	normalized.Vesting = schedule
	if normalized.ID.IsNil() {
		normalized.ID = id.NewCampaignID()
	}
	normalized.Entity = types.NewEntity()

	channels := make(map[string]*campaign.Channel, len(cfg.Channels))
	for _, ch := range normalized.Channels {
		if ch.ID.IsNil() {
			ch.ID = id.NewChannelID()
		}
		switch ch.Kind {
		case campaign.KindNative, campaign.KindToken:
			if ch.Rate.IsZero() {
				return nil, ErrZeroRate
			}
			if ch.RateScale == 0 {
				return nil, ErrZeroScale
			}
			if !ch.MaxPaid.IsZero() && ch.MinPaid.GreaterThan(ch.MaxPaid) {
				return nil, ValidationError{Field: "channel." + ch.Name, Message: "min above max"}
			}
			var medium token.Token
			if ch.Kind == campaign.KindToken {
				if ch.Token == "" {
					return nil, ValidationError{Field: "channel." + ch.Name, Message: "missing token address"}
				}
				t, ok := c.tokens[ch.Token]
				if !ok {
					return nil, fmt.Errorf("%w: %s", ErrUnknownToken, ch.Token)
				}
				medium = t
			} else {
				if c.native == nil {
					return nil, ValidationError{Field: "channel." + ch.Name, Message: "no native payment medium configured"}
				}
				medium = c.native
			}
			dec, err := medium.Decimals(ctx)
			if err != nil {
				return nil, fmt.Errorf("raise: decimals for channel %s: %w", ch.Name, err)
			}
			ch.PayDecimals = dec
		case campaign.KindDistributor:
			// No rate or bounds; grants validate a non-zero amount instead.
		default:
			return nil, ValidationError{Field: "channel." + ch.Name, Message: "unknown kind"}
		}
		channels[ch.ID.String()] = ch
	}
	normalized.Channels = channels

	return normalized, nil
}

// begin takes the reentrancy guard.
func (c *Campaign) begin() error {
	if !c.busy.CompareAndSwap(false, true) {
		return ErrReentrantCall
	}
	return nil
}

// end releases the reentrancy guard.
func (c *Campaign) end() { c.busy.Store(false) }

// persist wraps a store Apply failure in the persist sentinel.
func (c *Campaign) persist(ctx context.Context, cs *store.Changeset) error {
	if err := c.store.Apply(ctx, cs); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistFailed, err)
	}
	return nil
}

// channelToken resolves the payment medium behind a purchase channel.
func (c *Campaign) channelToken(ch *campaign.Channel) (token.Token, error) {
	if ch.Kind == campaign.KindNative {
		if c.native == nil {
			return nil, fmt.Errorf("%w: native", ErrUnknownToken)
		}
		return c.native, nil
	}
	t, ok := c.tokens[ch.Token]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, ch.Token)
	}
	return t, nil
}

// authorize checks the actor against the capability interface and maps a
// denial to ErrUnauthorized.
func (c *Campaign) authorize(ctx context.Context, actor string, capability access.Capability) error {
	ok, err := c.auth.IsAuthorized(ctx, actor, capability)
	if err != nil {
		return fmt.Errorf("raise: authorize %s: %w", actor, err)
	}
	if !ok {
		return ErrUnauthorized
	}
	return nil
}

// admit runs the shared admission checks for a contribution at the given
// time: sale window, channel pause state, and the whitelist window.
func (c *Campaign) admit(ctx context.Context, ch *campaign.Channel, user string, now time.Time) error {
	if !c.cfg.InSaleWindow(now) {
		return ErrSaleClosed
	}
	if ch.Paused {
		return ErrChannelPaused
	}
	if c.cfg.InWhitelistWindow(now) {
		ok, err := c.whitelist.IsWhitelisted(ctx, user)
		if err != nil {
			return fmt.Errorf("raise: whitelist %s: %w", user, err)
		}
		if !ok {
			return ErrNotWhitelisted
		}
	}
	return nil
}

// goalReachedEvent returns the event to emit when issued entitlement first
// reaches the goal, or nil.
func goalReachedEvent(before, after *contribution.Aggregate, cfg *campaign.Config, at time.Time) *plugin.GoalReachedEvent {
	if before.Issued.GreaterThan(cfg.Goal) || before.Issued.Equal(cfg.Goal) {
		return nil
	}
	if !after.Issued.Equal(cfg.Goal) {
		return nil
	}
	return &plugin.GoalReachedEvent{
		Goal:   cfg.Goal,
		Issued: after.Issued,
		At:     at,
	}
}

// requireInitialized returns the current config or ErrNotInitialized.
// Callers must hold c.mu.
func (c *Campaign) requireInitialized() error {
	if c.cfg == nil {
		return ErrNotInitialized
	}
	return nil
}
