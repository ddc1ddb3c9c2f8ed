// Package mongo implements the Raise store on MongoDB via Grove ORM.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/raise/contribution"
	raisestore "github.com/xraph/raise/store"
	"github.com/xraph/raise/vesting"
)

// Collection name constants.
const (
	colCampaign     = "raise_campaign"
	colAggregate    = "raise_aggregate"
	colContributors = "raise_contributors"
	colAccounts     = "raise_accounts"
	colReserve      = "raise_reserve"
	colEntries      = "raise_entries"
)

// compile-time interface check
var _ raisestore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all raise collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("raise/mongo: migrate %s indexes: %w", col, err)
		}
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

	var cm campaignModel
	err := s.mdb.NewFind(&cm).Filter(bson.M{}).Scan(ctx)
	switch {
	case isNoDocuments(err):
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("raise/mongo: load campaign: %w", err)
	}
	cfg, err := fromCampaignModel(&cm)
	if err != nil {
		return nil, fmt.Errorf("raise/mongo: decode campaign: %w", err)
	}
	snap.Campaign = cfg

	var am aggregateModel
	if err := s.mdb.NewFind(&am).Filter(bson.M{"_id": 1}).Scan(ctx); err != nil {
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("raise/mongo: load aggregate: %w", err)
		}
	} else {
		agg, err := fromAggregateModel(&am)
		if err != nil {
			return nil, fmt.Errorf("raise/mongo: decode aggregate: %w", err)
		}
		snap.Aggregate = agg
	}

	var rm reserveModel
	if err := s.mdb.NewFind(&rm).Filter(bson.M{"_id": 1}).Scan(ctx); err != nil {
		if !isNoDocuments(err) {
			return nil, fmt.Errorf("raise/mongo: load reserve: %w", err)
		}
	} else {
		reserve, err := fromReserveModel(&rm)
		if err != nil {
			return nil, fmt.Errorf("raise/mongo: decode reserve: %w", err)
		}
		snap.Reserve = reserve
	}

	var contributors []contributorModel
	if err := s.mdb.NewFind(&contributors).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("raise/mongo: load contributors: %w", err)
	}
	for i := range contributors {
		c, err := fromContributorModel(&contributors[i])
		if err != nil {
			return nil, fmt.Errorf("raise/mongo: decode contributor: %w", err)
		}
		snap.Contributors[c.User] = c
	}

	var accounts []accountModel
	if err := s.mdb.NewFind(&accounts).Filter(bson.M{}).Scan(ctx); err != nil && !isNoDocuments(err) {
		return nil, fmt.Errorf("raise/mongo: load accounts: %w", err)
	}
	for i := range accounts {
		a, err := fromAccountModel(&accounts[i])
		if err != nil {
			return nil, fmt.Errorf("raise/mongo: decode account: %w", err)
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
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.ID}).
			SetUpdate(bson.M{"$set": bson.M{
				"_id":              m.ID,
				"goal":             m.Goal,
				"receive_decimals": m.ReceiveDecimals,
				"sale_start":       m.SaleStart,
				"sale_end":         m.SaleEnd,
				"whitelist_end":    m.WhitelistEnd,
				"user_cap":         m.UserCap,
				"channels":         m.Channels,
				"vesting":          m.Vesting,
				"created_at":       m.CreatedAt,
				"updated_at":       m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/mongo: apply campaign: %w", err)
		}
	}

	if cs.Aggregate != nil {
		m := toAggregateModel(cs.Aggregate)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": 1}).
			SetUpdate(bson.M{"$set": bson.M{
				"_id":               1,
				"issued":            m.Issued,
				"raised_native":     m.RaisedNative,
				"raised_by_token":   m.RaisedByToken,
				"raised_by_channel": m.RaisedByChannel,
				"issued_by_channel": m.IssuedByChannel,
				"created_at":        m.CreatedAt,
				"updated_at":        m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/mongo: apply aggregate: %w", err)
		}
	}

	if cs.Reserve != nil {
		m := toReserveModel(cs.Reserve)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": 1}).
			SetUpdate(bson.M{"$set": bson.M{
				"_id":        1,
				"deposited":  m.Deposited,
				"locked":     m.Locked,
				"released":   m.Released,
				"created_at": m.CreatedAt,
				"updated_at": m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/mongo: apply reserve: %w", err)
		}
	}

	for _, c := range cs.Contributors {
		m := toContributorModel(c)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.User}).
			SetUpdate(bson.M{"$set": bson.M{
				"_id":             m.User,
				"paid_by_channel": m.PaidByChannel,
				"entitlement":     m.Entitlement,
				"created_at":      m.CreatedAt,
				"updated_at":      m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/mongo: apply contributor %s: %w", c.User, err)
		}
	}

	for _, a := range cs.Accounts {
		m := toAccountModel(a)
		_, err := s.mdb.NewUpdate(m).
			Filter(bson.M{"_id": m.Beneficiary}).
			SetUpdate(bson.M{"$set": bson.M{
				"_id":           m.Beneficiary,
				"id":            m.ID,
				"entitlement":   m.Entitlement,
				"claimed":       m.Claimed,
				"initial_share": m.InitialShare,
				"last_chunk":    m.LastChunk,
				"created_at":    m.CreatedAt,
				"updated_at":    m.UpdatedAt,
			}}).
			Upsert().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/mongo: apply account %s: %w", a.Beneficiary, err)
		}
	}

	for _, e := range cs.Entries {
		m := toEntryModel(e)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("raise/mongo: append entry %s: %w", e.ID, err)
		}
	}

	for _, drop := range cs.DropEntries {
		_, err := s.mdb.NewDelete((*entryModel)(nil)).
			Filter(bson.M{"_id": drop.String()}).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("raise/mongo: drop entry %s: %w", drop, err)
		}
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, opts contribution.ListOpts) ([]*contribution.Entry, error) {
	filter := bson.M{}
	if opts.User != "" {
		filter["contributor"] = opts.User
	}
	if !opts.Channel.IsNil() {
		filter["channel"] = opts.Channel.String()
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	var models []entryModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "at", Value: -1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return []*contribution.Entry{}, nil
		}
		return nil, fmt.Errorf("raise/mongo: list entries: %w", err)
	}

	entries := make([]*contribution.Entry, 0, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("raise/mongo: decode entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// migrationIndexes returns the index definitions for all raise collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCampaign:     {},
		colAggregate:    {},
		colContributors: {},
		colAccounts:     {},
		colReserve:      {},
		colEntries: {
			{Keys: bson.D{{Key: "contributor", Value: 1}, {Key: "at", Value: -1}}},
			{Keys: bson.D{{Key: "channel", Value: 1}, {Key: "at", Value: -1}}},
			{Keys: bson.D{{Key: "kind", Value: 1}, {Key: "at", Value: -1}}},
		},
	}
}

// isNoDocuments checks for the standard mongo.ErrNoDocuments sentinel.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
