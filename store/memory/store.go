// Package memory provides an in-memory Store for tests and ephemeral use.
package memory

import (
	"context"
	"sync"

	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/contribution"
	"github.com/xraph/raise/custody"
	"github.com/xraph/raise/store"
	"github.com/xraph/raise/vesting"
)

type Store struct {
	mu sync.RWMutex

	campaign     *campaign.Config
	aggregate    *contribution.Aggregate
	contributors map[string]*contribution.Contributor
	accounts     map[string]*vesting.Account
	reserve      *custody.Reserve
	entries      []*contribution.Entry
}

func New() *Store {
	return &Store{
		contributors: make(map[string]*contribution.Contributor),
		accounts:     make(map[string]*vesting.Account),
		entries:      make([]*contribution.Entry, 0),
	}
}

func (s *Store) Load(_ context.Context) (*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &store.Snapshot{
		Campaign:     s.campaign.Clone(),
		Aggregate:    s.aggregate.Clone(),
		Reserve:      s.reserve.Clone(),
		Contributors: make(map[string]*contribution.Contributor, len(s.contributors)),
		Accounts:     make(map[string]*vesting.Account, len(s.accounts)),
	}
	for user, c := range s.contributors {
		snap.Contributors[user] = c.Clone()
	}
	for user, a := range s.accounts {
		snap.Accounts[user] = a.Clone()
	}
	return snap, nil
}

func (s *Store) Apply(_ context.Context, cs *store.Changeset) error {
	if cs.Empty() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.Campaign != nil {
		s.campaign = cs.Campaign.Clone()
	}
	if cs.Aggregate != nil {
		s.aggregate = cs.Aggregate.Clone()
	}
	if cs.Reserve != nil {
		s.reserve = cs.Reserve.Clone()
	}
	for user, c := range cs.Contributors {
		s.contributors[user] = c.Clone()
	}
	for user, a := range cs.Accounts {
		s.accounts[user] = a.Clone()
	}
	for _, e := range cs.Entries {
		s.entries = append(s.entries, e.Clone())
	}
	for _, drop := range cs.DropEntries {
		for i := len(s.entries) - 1; i >= 0; i-- {
			if s.entries[i].ID.String() == drop.String() {
				s.entries = append(s.entries[:i], s.entries[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (s *Store) ListEntries(_ context.Context, opts contribution.ListOpts) ([]*contribution.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*contribution.Entry, 0)
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if opts.User != "" && e.User != opts.User {
			continue
		}
		if !opts.Channel.IsNil() && e.Channel.String() != opts.Channel.String() {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		result = append(result, e.Clone())
	}

	if opts.Offset > 0 {
		if opts.Offset >= len(result) {
			return []*contribution.Entry{}, nil
		}
		result = result[opts.Offset:]
	}
	if opts.Limit > 0 && len(result) > opts.Limit {
		result = result[:opts.Limit]
	}
	return result, nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error { return nil }

func (s *Store) Close() error { return nil }

var _ store.Store = (*Store)(nil)
