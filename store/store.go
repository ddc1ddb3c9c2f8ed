// Package store defines the persistence contract for a campaign. The
// engine keeps authoritative state in memory and writes through with one
// Apply call per committed operation, so a backend never sees a half-done
// operation.
package store

import (
	"context"

	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/contribution"
	"github.com/xraph/raise/custody"
	"github.com/xraph/raise/id"
	"github.com/xraph/raise/vesting"
)

// Snapshot is the full persisted state of one campaign, loaded at startup.
type Snapshot struct {
	Campaign     *campaign.Config
	Aggregate    *contribution.Aggregate
	Contributors map[string]*contribution.Contributor
	Accounts     map[string]*vesting.Account
	Reserve      *custody.Reserve
}

// Changeset is the write set of one committed operation. Nil fields are
// untouched; map entries are upserts keyed by user. Entries are appended
// to the log; DropEntries removes previously appended entries during a
// compensating write.
type Changeset struct {
	Campaign     *campaign.Config
	Aggregate    *contribution.Aggregate
	Contributors map[string]*contribution.Contributor
	Accounts     map[string]*vesting.Account
	Reserve      *custody.Reserve

	Entries     []*contribution.Entry
	DropEntries []id.EntryID
}

// Empty reports whether the changeset carries no writes.
func (c *Changeset) Empty() bool {
	return c == nil || (c.Campaign == nil && c.Aggregate == nil &&
		len(c.Contributors) == 0 && len(c.Accounts) == 0 &&
		c.Reserve == nil && len(c.Entries) == 0 && len(c.DropEntries) == 0)
}

// Store is the storage interface for campaign state.
type Store interface {
	// Load returns the persisted snapshot, or a snapshot with a nil
	// Campaign when nothing has been persisted yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Apply persists one changeset. Backends apply it as atomically as
	// they can; the engine retains pre-images and issues a compensating
	// Apply if a later step of the operation fails.
	Apply(ctx context.Context, cs *Changeset) error

	// ListEntries returns committed log entries, newest first.
	ListEntries(ctx context.Context, opts contribution.ListOpts) ([]*contribution.Entry, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
