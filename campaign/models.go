// Package campaign holds the immutable-ish configuration of a token sale:
// the funding goal, the payment channels with their rates and bounds, the
// sale and whitelist windows, and the shared vesting timetable. Runtime
// counters live in the contribution package; nothing here changes during a
// purchase.
package campaign

import (
	"time"

	"github.com/xraph/raise/id"
	"github.com/xraph/raise/types"
	"github.com/xraph/raise/vesting"
)

// ChannelKind identifies the payment medium behind a channel.
type ChannelKind string

const (
	// KindNative accepts the chain's native currency.
	KindNative ChannelKind = "native"

	// KindToken accepts a specific external token.
	KindToken ChannelKind = "token"

	// KindDistributor issues entitlement directly against an off-chain
	// reference, with no payment conversion.
	KindDistributor ChannelKind = "distributor"
)

// Channel is one payment medium with its own exchange rate and purchase
// bounds. Rate converts paid units into receivable units as
// Rate/RateScale after decimal normalization; distributor channels carry
// no rate or bounds.
type Channel struct {
	ID    id.ChannelID `json:"id" bun:"id,pk"`
	Kind  ChannelKind  `json:"kind" bun:"kind"`
	Name  string       `json:"name" bun:"name"`
	Token string       `json:"token,omitempty" bun:"token"`

	Rate      types.Amount `json:"rate" bun:"rate"`
	RateScale uint64       `json:"rate_scale" bun:"rate_scale"`

	// PayDecimals is the precision of the paid unit, read from the
	// channel's payment medium at initialization. A configured value is
	// overwritten with what the medium reports.
	PayDecimals uint8 `json:"pay_decimals" bun:"pay_decimals"`

	MinPaid types.Amount `json:"min_paid" bun:"min_paid"`
	MaxPaid types.Amount `json:"max_paid" bun:"max_paid"`

	Paused bool `json:"paused" bun:"paused"`
}

// Clone returns a deep copy of the channel.
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}
	dup := *c
	return &dup
}

// Config is the campaign-wide configuration. It is written once at
// initialization; only the sale window, whitelist window, per-user cap,
// and channel pause flags may be changed afterwards, through privileged
// operations.
type Config struct {
	types.Entity

	ID id.CampaignID `json:"id" bun:"id,pk"`

	// Goal is the total entitlement the campaign may issue, in receivable
	// token units.
	Goal types.Amount `json:"goal" bun:"goal"`

	// ReceiveDecimals is the precision of the receivable token.
	ReceiveDecimals uint8 `json:"receive_decimals" bun:"receive_decimals"`

	SaleStart time.Time `json:"sale_start" bun:"sale_start"`
	SaleEnd   time.Time `json:"sale_end" bun:"sale_end"`

	// WhitelistEnd closes the whitelist-only window that opens at
	// SaleStart. Zero means no whitelist window.
	WhitelistEnd time.Time `json:"whitelist_end,omitempty" bun:"whitelist_end"`

	// UserCap bounds cumulative entitlement per user across all channels.
	// Zero means uncapped.
	UserCap types.Amount `json:"user_cap" bun:"user_cap"`

	// Channels is keyed by channel ID string.
	Channels map[string]*Channel `json:"channels" bun:"channels,type:jsonb"`

	Vesting vesting.Schedule `json:"vesting" bun:"vesting,type:jsonb"`
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	dup := *c
	dup.Channels = make(map[string]*Channel, len(c.Channels))
	for key, ch := range c.Channels {
		dup.Channels[key] = ch.Clone()
	}
	return &dup
}

// Channel returns the channel with the given ID, or nil.
func (c *Config) Channel(cid id.ChannelID) *Channel {
	if c == nil {
		return nil
	}
	return c.Channels[cid.String()]
}

// InSaleWindow reports whether now falls inside [SaleStart, SaleEnd).
func (c *Config) InSaleWindow(now time.Time) bool {
	return !now.Before(c.SaleStart) && now.Before(c.SaleEnd)
}

// InWhitelistWindow reports whether now falls inside the whitelist-only
// portion of the sale, [SaleStart, WhitelistEnd).
func (c *Config) InWhitelistWindow(now time.Time) bool {
	if c.WhitelistEnd.IsZero() {
		return false
	}
	return !now.Before(c.SaleStart) && now.Before(c.WhitelistEnd)
}
