package raise

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/raise/access"
	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/id"
	"github.com/xraph/raise/plugin"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/types"
)

// SetSaleWindow moves the sale window.
func (c *Campaign) SetSaleWindow(ctx context.Context, actor string, start, end time.Time) error {
	return c.updateConfig(ctx, actor, "sale_window", func(cfg *campaign.Config) error {
		if !end.After(start) {
			return fmt.Errorf("%w: sale end not after sale start", ErrInvalidWindow)
		}
		cfg.SaleStart = start
		cfg.SaleEnd = end
		return nil
	})
}

// SetWhitelistWindow moves the end of the whitelist-only window. A zero
// time removes the window entirely.
func (c *Campaign) SetWhitelistWindow(ctx context.Context, actor string, end time.Time) error {
	return c.updateConfig(ctx, actor, "whitelist_window", func(cfg *campaign.Config) error {
		if !end.IsZero() && !end.After(cfg.SaleStart) {
			return fmt.Errorf("%w: whitelist end not after sale start", ErrInvalidWindow)
		}
		cfg.WhitelistEnd = end
		return nil
	})
}

// SetUserCap changes the per-user entitlement cap. Zero removes the cap.
// Lowering the cap does not claw back entitlement already issued; it only
// constrains future admission.
func (c *Campaign) SetUserCap(ctx context.Context, actor string, cap types.Amount) error {
	return c.updateConfig(ctx, actor, "user_cap", func(cfg *campaign.Config) error {
		cfg.UserCap = cap
		return nil
	})
}

// PauseChannel stops admission through one channel without touching the
// sale window.
func (c *Campaign) PauseChannel(ctx context.Context, actor string, channel id.ChannelID) error {
	return c.updateConfig(ctx, actor, "channel_paused", func(cfg *campaign.Config) error {
		ch := cfg.Channel(channel)
		if ch == nil {
			return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
		}
		ch.Paused = true
		return nil
	})
}

// ResumeChannel reopens a paused channel.
func (c *Campaign) ResumeChannel(ctx context.Context, actor string, channel id.ChannelID) error {
	return c.updateConfig(ctx, actor, "channel_resumed", func(cfg *campaign.Config) error {
		ch := cfg.Channel(channel)
		if ch == nil {
			return fmt.Errorf("%w: %s", ErrUnknownChannel, channel)
		}
		ch.Paused = false
		return nil
	})
}

// updateConfig runs one privileged configuration change: mutate a clone,
// persist it, swap it in, and emit the config-change event.
func (c *Campaign) updateConfig(ctx context.Context, actor, field string, mutate func(*campaign.Config) error) error {
	if err := c.begin(); err != nil {
		return err
	}
	defer c.end()

	if err := c.authorize(ctx, actor, access.CapabilityConfigure); err != nil {
		return err
	}

	c.mu.Lock()
	if err := c.requireInitialized(); err != nil {
		c.mu.Unlock()
		return err
	}

	next := c.cfg.Clone()
	if err := mutate(next); err != nil {
		c.mu.Unlock()
		return err
	}
	next.Touch()

	if err := c.persist(ctx, &store.Changeset{Campaign: next}); err != nil {
		c.mu.Unlock()
		return err
	}

	c.cfg = next
	c.mu.Unlock()

	c.logger.Info("campaign config changed",
		"actor", actor,
		"field", field,
	)

	c.plugins.EmitConfigChanged(ctx, plugin.ConfigChangeEvent{
		Actor: actor,
		Field: field,
		At:    c.clock.Now(),
	})

	return nil
}
