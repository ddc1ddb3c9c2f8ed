// Package sqlite implements the Raise store on SQLite via Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/raise/contribution"
	raisestore "github.com/xraph/raise/store"
	"github.com/xraph/raise/vesting"
)

// compile-time interface check
var _ raisestore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("raise/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("raise/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Load(ctx context.Context) (*raisestore.Snapshot, error) {
	snap := &raisestore.Snapshot{
		Contributors: make(map[string]*contribution.Contributor),
		Accounts:     make(map[string]*vesting.Account),
	}

	cm := new(campaignModel)
	err := s.sdb.NewSelect(cm).Limit(1).Scan(ctx)
	switch {
	case isNoRows(err):
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("raise/sqlite: load campaign: %w", err)
	}
	cfg, err := fromCampaignModel(cm)
	if err != nil {
		return nil, fmt.Errorf("raise/sqlite: decode campaign: %w", err)
	}
	snap.Campaign = cfg

	am := new(aggregateModel)
	if err := s.sdb.NewSelect(am).Where("id = ?", 1).Scan(ctx); err != nil {
		if !isNoRows(err) {
			return nil, fmt.Errorf("raise/sqlite: load aggregate: %w", err)
		}
	} else {
		agg, err := fromAggregateModel(am)
		if err != nil {
			return nil, fmt.Errorf("raise/sqlite: decode aggregate: %w", err)
		}
		snap.Aggregate = agg
	}

	rm := new(reserveModel)
	if err := s.sdb.NewSelect(rm).Where("id = ?", 1).Scan(ctx); err != nil {
		if !isNoRows(err) {
			return nil, fmt.Errorf("raise/sqlite: load reserve: %w", err)
		}
	} else {
		reserve, err := fromReserveModel(rm)
		if err != nil {
			return nil, fmt.Errorf("raise/sqlite: decode reserve: %w", err)
		}
		snap.Reserve = reserve
	}

	var contributors []contributorModel
	if err := s.sdb.NewSelect(&contributors).Scan(ctx); err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("raise/sqlite: load contributors: %w", err)
	}
	for i := range contributors {
		c, err := fromContributorModel(&contributors[i])
		if err != nil {
			return nil, fmt.Errorf("raise/sqlite: decode contributor: %w", err)
		}
		snap.Contributors[c.User] = c
	}

	var accounts []accountModel
	if err := s.sdb.NewSelect(&accounts).Scan(ctx); err != nil && !isNoRows(err) {
		return nil, fmt.Errorf("raise/sqlite: load accounts: %w", err)
	}
	for i := range accounts {
		a, err := fromAccountModel(&accounts[i])
		if err != nil {
			return nil, fmt.Errorf("raise/sqlite: decode account: %w", err)
		}
		snap.Accounts[a.Beneficiary] = a
	}
	return snap, nil
}

func (s *Store) Apply(ctx context.Context, cs *raisestore.Changeset) error {
	if cs.Empty() {
		return nil
	}

	if cs.Campaign != nil {
		m := toCampaignModel(cs.Campaign)
		_, err := s.sdb.NewInsert(m).
			OnConflict("(id) DO UPDATE").
			Set("goal = EXCLUDED.goal").
			Set("receive_decimals = EXCLUDED.receive_decimals").
			Set("sale_start = EXCLUDED.sale_start").
			Set("sale_end = EXCLUDED.sale_end").
			Set("whitelist_end = EXCLUDED.whitelist_end").
			Set("user_cap = EXCLUDED.user_cap").
			Set("channels = EXCLUDED.channels").
			Set("vesting = EXCLUDED.vesting").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/sqlite: apply campaign: %w", err)
		}
	}

	if cs.Aggregate != nil {
		m := toAggregateModel(cs.Aggregate)
		_, err := s.sdb.NewInsert(m).
			OnConflict("(id) DO UPDATE").
			Set("issued = EXCLUDED.issued").
			Set("raised_native = EXCLUDED.raised_native").
			Set("raised_by_token = EXCLUDED.raised_by_token").
			Set("raised_by_channel = EXCLUDED.raised_by_channel").
			Set("issued_by_channel = EXCLUDED.issued_by_channel").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/sqlite: apply aggregate: %w", err)
		}
	}

	if cs.Reserve != nil {
		m := toReserveModel(cs.Reserve)
		_, err := s.sdb.NewInsert(m).
			OnConflict("(id) DO UPDATE").
			Set("deposited = EXCLUDED.deposited").
			Set("locked = EXCLUDED.locked").
			Set("released = EXCLUDED.released").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/sqlite: apply reserve: %w", err)
		}
	}

	for _, c := range cs.Contributors {
		m := toContributorModel(c)
		_, err := s.sdb.NewInsert(m).
			OnConflict("(contributor) DO UPDATE").
			Set("paid_by_channel = EXCLUDED.paid_by_channel").
			Set("entitlement = EXCLUDED.entitlement").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/sqlite: apply contributor %s: %w", c.User, err)
		}
	}

	for _, a := range cs.Accounts {
		m := toAccountModel(a)
		_, err := s.sdb.NewInsert(m).
			OnConflict("(beneficiary) DO UPDATE").
			Set("entitlement = EXCLUDED.entitlement").
			Set("claimed = EXCLUDED.claimed").
			Set("initial_share = EXCLUDED.initial_share").
			Set("last_chunk = EXCLUDED.last_chunk").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/sqlite: apply account %s: %w", a.Beneficiary, err)
		}
	}

	for _, e := range cs.Entries {
		m := toEntryModel(e)
		if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("raise/sqlite: append entry %s: %w", e.ID, err)
		}
	}

	for _, drop := range cs.DropEntries {
		_, err := s.sdb.NewDelete((*entryModel)(nil)).
			Where("id = ?", drop.String()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/sqlite: drop entry %s: %w", drop, err)
		}
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, opts contribution.ListOpts) ([]*contribution.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).OrderExpr("at DESC")

	if opts.User != "" {
		q = q.Where("contributor = ?", opts.User)
	}
	if !opts.Channel.IsNil() {
		q = q.Where("channel = ?", opts.Channel.String())
	}
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		if isNoRows(err) {
			return []*contribution.Entry{}, nil
		}
		return nil, fmt.Errorf("raise/sqlite: list entries: %w", err)
	}

	entries := make([]*contribution.Entry, 0, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("raise/sqlite: decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
