package extension

import (
	raise "github.com/xraph/raise"
	"github.com/xraph/raise/plugin"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/token"
)

// Option configures the Raise Forge extension.
type Option func(*Extension)

// WithStore sets the store for the campaign engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithCampaignOption passes a raise.Option through to the underlying engine.
func WithCampaignOption(opt raise.Option) Option {
	return func(e *Extension) {
		e.campaignOpts = append(e.campaignOpts, opt)
	}
}

// WithPlugin registers a campaign plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.campaignOpts = append(e.campaignOpts, raise.WithPlugin(p))
	}
}

// WithReserveToken sets the vested token the reserve is held in.
func WithReserveToken(addr string, t token.Token) Option {
	return func(e *Extension) {
		e.campaignOpts = append(e.campaignOpts, raise.WithReserveToken(addr, t))
	}
}

// WithNativeToken sets the payment medium for native channels.
func WithNativeToken(t token.Token) Option {
	return func(e *Extension) {
		e.campaignOpts = append(e.campaignOpts, raise.WithNativeToken(t))
	}
}

// WithChannelToken registers a payment token by address.
func WithChannelToken(addr string, t token.Token) Option {
	return func(e *Extension) {
		e.campaignOpts = append(e.campaignOpts, raise.WithChannelToken(addr, t))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
