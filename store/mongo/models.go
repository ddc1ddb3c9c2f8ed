package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/contribution"
	"github.com/xraph/raise/custody"
	"github.com/xraph/raise/id"
	"github.com/xraph/raise/types"
	"github.com/xraph/raise/vesting"
)

// Amounts are persisted as decimal strings to keep full 256-bit precision.

func toAmountMap(in map[string]types.Amount) map[string]string {
	out := make(map[string]string, len(in))
	for key, amt := range in {
		out[key] = amt.String()
	}
	return out
}

func fromAmountMap(in map[string]string) (map[string]types.Amount, error) {
	out := make(map[string]types.Amount, len(in))
	for key, raw := range in {
		amt, err := types.ParseAmount(raw)
		if err != nil {
			return nil, err
		}
		out[key] = amt
	}
	return out, nil
}

// ==================== Campaign models ====================

type campaignModel struct {
	grove.BaseModel `grove:"table:raise_campaign"`

	ID              string                  `grove:"id,pk"            bson:"_id"`
	Goal            string                  `grove:"goal"             bson:"goal"`
	ReceiveDecimals int                     `grove:"receive_decimals" bson:"receive_decimals"`
	SaleStart       time.Time               `grove:"sale_start"       bson:"sale_start"`
	SaleEnd         time.Time               `grove:"sale_end"         bson:"sale_end"`
	WhitelistEnd    time.Time               `grove:"whitelist_end"    bson:"whitelist_end"`
	UserCap         string                  `grove:"user_cap"         bson:"user_cap"`
	Channels        map[string]channelModel `grove:"channels"         bson:"channels"`
	Vesting         scheduleModel           `grove:"vesting"          bson:"vesting"`
	CreatedAt       time.Time               `grove:"created_at"       bson:"created_at"`
	UpdatedAt       time.Time               `grove:"updated_at"       bson:"updated_at"`
}

type channelModel struct {
	ID          string `bson:"id"`
	Kind        string `bson:"kind"`
	Name        string `bson:"name"`
	Token       string `bson:"token,omitempty"`
	Rate        string `bson:"rate"`
	RateScale   int64  `bson:"rate_scale"`
	PayDecimals int    `bson:"pay_decimals"`
	MinPaid     string `bson:"min_paid"`
	MaxPaid     string `bson:"max_paid"`
	Paused      bool   `bson:"paused"`
}

type scheduleModel struct {
	FirstRelease  time.Time `bson:"first_release"`
	SecondRelease time.Time `bson:"second_release"`
	ChunkInterval int64     `bson:"chunk_interval_ns"`
	InitialNum    int64     `bson:"initial_num"`
	ChunkNum      int64     `bson:"chunk_num"`
	Scale         int64     `bson:"scale"`
	MaxChunk      int64     `bson:"max_chunk"`
}

func toCampaignModel(c *campaign.Config) *campaignModel {
	channels := make(map[string]channelModel, len(c.Channels))
	for key, ch := range c.Channels {
		channels[key] = channelModel{
			ID:          ch.ID.String(),
			Kind:        string(ch.Kind),
			Name:        ch.Name,
			Token:       ch.Token,
			Rate:        ch.Rate.String(),
			RateScale:   int64(ch.RateScale),
			PayDecimals: int(ch.PayDecimals),
			MinPaid:     ch.MinPaid.String(),
			MaxPaid:     ch.MaxPaid.String(),
			Paused:      ch.Paused,
		}
	}

	return &campaignModel{
		ID:              c.ID.String(),
		Goal:            c.Goal.String(),
		ReceiveDecimals: int(c.ReceiveDecimals),
		SaleStart:       c.SaleStart,
		SaleEnd:         c.SaleEnd,
		WhitelistEnd:    c.WhitelistEnd,
		UserCap:         c.UserCap.String(),
		Channels:        channels,
		Vesting: scheduleModel{
			FirstRelease:  c.Vesting.FirstRelease,
			SecondRelease: c.Vesting.SecondRelease,
			ChunkInterval: int64(c.Vesting.ChunkInterval),
			InitialNum:    int64(c.Vesting.InitialNum),
			ChunkNum:      int64(c.Vesting.ChunkNum),
			Scale:         int64(c.Vesting.Scale),
			MaxChunk:      int64(c.Vesting.MaxChunk),
		},
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func fromCampaignModel(m *campaignModel) (*campaign.Config, error) {
	campaignID, err := id.ParseCampaignID(m.ID)
	if err != nil {
		return nil, err
	}
	goal, err := types.ParseAmount(m.Goal)
	if err != nil {
		return nil, err
	}
	userCap, err := types.ParseAmount(m.UserCap)
	if err != nil {
		return nil, err
	}

	channels := make(map[string]*campaign.Channel, len(m.Channels))
	for key, cm := range m.Channels {
		channelID, err := id.ParseChannelID(cm.ID)
		if err != nil {
			return nil, err
		}
		rate, err := types.ParseAmount(cm.Rate)
		if err != nil {
			return nil, err
		}
		minPaid, err := types.ParseAmount(cm.MinPaid)
		if err != nil {
			return nil, err
		}
		maxPaid, err := types.ParseAmount(cm.MaxPaid)
		if err != nil {
			return nil, err
		}
		channels[key] = &campaign.Channel{
			ID:          channelID,
			Kind:        campaign.ChannelKind(cm.Kind),
			Name:        cm.Name,
			Token:       cm.Token,
			Rate:        rate,
			RateScale:   uint64(cm.RateScale),
			PayDecimals: uint8(cm.PayDecimals),
			MinPaid:     minPaid,
			MaxPaid:     maxPaid,
			Paused:      cm.Paused,
		}
	}

	return &campaign.Config{
		Entity:          types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:              campaignID,
		Goal:            goal,
		ReceiveDecimals: uint8(m.ReceiveDecimals),
		SaleStart:       m.SaleStart,
		SaleEnd:         m.SaleEnd,
		WhitelistEnd:    m.WhitelistEnd,
		UserCap:         userCap,
		Channels:        channels,
		Vesting: vesting.Schedule{
			FirstRelease:  m.Vesting.FirstRelease,
			SecondRelease: m.Vesting.SecondRelease,
			ChunkInterval: time.Duration(m.Vesting.ChunkInterval),
			InitialNum:    uint64(m.Vesting.InitialNum),
			ChunkNum:      uint64(m.Vesting.ChunkNum),
			Scale:         uint64(m.Vesting.Scale),
			MaxChunk:      uint64(m.Vesting.MaxChunk),
		},
	}, nil
}

// ==================== Aggregate models ====================

type aggregateModel struct {
	grove.BaseModel `grove:"table:raise_aggregate"`

	ID              int               `grove:"id,pk"             bson:"_id"`
	Issued          string            `grove:"issued"            bson:"issued"`
	RaisedNative    string            `grove:"raised_native"     bson:"raised_native"`
	RaisedByToken   map[string]string `grove:"raised_by_token"   bson:"raised_by_token"`
	RaisedByChannel map[string]string `grove:"raised_by_channel" bson:"raised_by_channel"`
	IssuedByChannel map[string]string `grove:"issued_by_channel" bson:"issued_by_channel"`
	CreatedAt       time.Time         `grove:"created_at"        bson:"created_at"`
	UpdatedAt       time.Time         `grove:"updated_at"        bson:"updated_at"`
}

func toAggregateModel(a *contribution.Aggregate) *aggregateModel {
	return &aggregateModel{
		ID:              1,
		Issued:          a.Issued.String(),
		RaisedNative:    a.RaisedNative.String(),
		RaisedByToken:   toAmountMap(a.RaisedByToken),
		RaisedByChannel: toAmountMap(a.RaisedByChannel),
		IssuedByChannel: toAmountMap(a.IssuedByChannel),
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

func fromAggregateModel(m *aggregateModel) (*contribution.Aggregate, error) {
	issued, err := types.ParseAmount(m.Issued)
	if err != nil {
		return nil, err
	}
	raisedNative, err := types.ParseAmount(m.RaisedNative)
	if err != nil {
		return nil, err
	}
	raisedByToken, err := fromAmountMap(m.RaisedByToken)
	if err != nil {
		return nil, err
	}
	raisedByChannel, err := fromAmountMap(m.RaisedByChannel)
	if err != nil {
		return nil, err
	}
	issuedByChannel, err := fromAmountMap(m.IssuedByChannel)
	if err != nil {
		return nil, err
	}

	agg := contribution.NewAggregate()
	agg.Entity = types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
	agg.Issued = issued
	agg.RaisedNative = raisedNative
	agg.RaisedByToken = raisedByToken
	agg.RaisedByChannel = raisedByChannel
	agg.IssuedByChannel = issuedByChannel
	return agg, nil
}

// ==================== Contributor models ====================

type contributorModel struct {
	grove.BaseModel `grove:"table:raise_contributors"`

	User          string            `grove:"contributor,pk"  bson:"_id"`
	PaidByChannel map[string]string `grove:"paid_by_channel" bson:"paid_by_channel"`
	Entitlement   string            `grove:"entitlement"     bson:"entitlement"`
	CreatedAt     time.Time         `grove:"created_at"      bson:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"      bson:"updated_at"`
}

func toContributorModel(c *contribution.Contributor) *contributorModel {
	return &contributorModel{
		User:          c.User,
		PaidByChannel: toAmountMap(c.PaidByChannel),
		Entitlement:   c.Entitlement.String(),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

func fromContributorModel(m *contributorModel) (*contribution.Contributor, error) {
	entitlement, err := types.ParseAmount(m.Entitlement)
	if err != nil {
		return nil, err
	}
	paid, err := fromAmountMap(m.PaidByChannel)
	if err != nil {
		return nil, err
	}

	c := contribution.NewContributor(m.User)
	c.Entity = types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
	c.Entitlement = entitlement
	c.PaidByChannel = paid
	return c, nil
}

// ==================== Vesting account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:raise_accounts"`

	Beneficiary  string    `grove:"beneficiary,pk" bson:"_id"`
	ID           string    `grove:"id"             bson:"id"`
	Entitlement  string    `grove:"entitlement"    bson:"entitlement"`
	Claimed      string    `grove:"claimed"        bson:"claimed"`
	InitialShare string    `grove:"initial_share"  bson:"initial_share"`
	LastChunk    int64     `grove:"last_chunk"     bson:"last_chunk"`
	CreatedAt    time.Time `grove:"created_at"     bson:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"     bson:"updated_at"`
}

func toAccountModel(a *vesting.Account) *accountModel {
	return &accountModel{
		Beneficiary:  a.Beneficiary,
		ID:           a.ID.String(),
		Entitlement:  a.Entitlement.String(),
		Claimed:      a.Claimed.String(),
		InitialShare: a.InitialShare.String(),
		LastChunk:    int64(a.LastChunk),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*vesting.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	entitlement, err := types.ParseAmount(m.Entitlement)
	if err != nil {
		return nil, err
	}
	claimed, err := types.ParseAmount(m.Claimed)
	if err != nil {
		return nil, err
	}
	initialShare, err := types.ParseAmount(m.InitialShare)
	if err != nil {
		return nil, err
	}

	return &vesting.Account{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:           accountID,
		Beneficiary:  m.Beneficiary,
		Entitlement:  entitlement,
		Claimed:      claimed,
		InitialShare: initialShare,
		LastChunk:    uint64(m.LastChunk),
	}, nil
}

// ==================== Reserve models ====================

type reserveModel struct {
	grove.BaseModel `grove:"table:raise_reserve"`

	ID        int       `grove:"id,pk"      bson:"_id"`
	Deposited string    `grove:"deposited"  bson:"deposited"`
	Locked    string    `grove:"locked"     bson:"locked"`
	Released  string    `grove:"released"   bson:"released"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time `grove:"updated_at" bson:"updated_at"`
}

func toReserveModel(r *custody.Reserve) *reserveModel {
	return &reserveModel{
		ID:        1,
		Deposited: r.Deposited.String(),
		Locked:    r.Locked.String(),
		Released:  r.Released.String(),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromReserveModel(m *reserveModel) (*custody.Reserve, error) {
	deposited, err := types.ParseAmount(m.Deposited)
	if err != nil {
		return nil, err
	}
	locked, err := types.ParseAmount(m.Locked)
	if err != nil {
		return nil, err
	}
	released, err := types.ParseAmount(m.Released)
	if err != nil {
		return nil, err
	}

	return &custody.Reserve{
		Entity:    types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Deposited: deposited,
		Locked:    locked,
		Released:  released,
	}, nil
}

// ==================== Entry models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:raise_entries"`

	ID          string    `grove:"id,pk"       bson:"_id"`
	Kind        string    `grove:"kind"        bson:"kind"`
	User        string    `grove:"contributor" bson:"contributor"`
	Channel     string    `grove:"channel"     bson:"channel"`
	Paid        string    `grove:"paid"        bson:"paid"`
	Refunded    string    `grove:"refunded"    bson:"refunded"`
	Entitlement string    `grove:"entitlement" bson:"entitlement"`
	Ref         string    `grove:"ref"         bson:"ref,omitempty"`
	At          time.Time `grove:"at"          bson:"at"`
	CreatedAt   time.Time `grove:"created_at"  bson:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"  bson:"updated_at"`
}

func toEntryModel(e *contribution.Entry) *entryModel {
	return &entryModel{
		ID:          e.ID.String(),
		Kind:        string(e.Kind),
		User:        e.User,
		Channel:     e.Channel.String(),
		Paid:        e.Paid.String(),
		Refunded:    e.Refunded.String(),
		Entitlement: e.Entitlement.String(),
		Ref:         e.Ref,
		At:          e.At,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*contribution.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	paid, err := types.ParseAmount(m.Paid)
	if err != nil {
		return nil, err
	}
	refunded, err := types.ParseAmount(m.Refunded)
	if err != nil {
		return nil, err
	}
	entitlement, err := types.ParseAmount(m.Entitlement)
	if err != nil {
		return nil, err
	}

	e := &contribution.Entry{
		Entity:      types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:          entryID,
		Kind:        contribution.EntryKind(m.Kind),
		User:        m.User,
		Paid:        paid,
		Refunded:    refunded,
		Entitlement: entitlement,
		Ref:         m.Ref,
		At:          m.At,
	}
	if m.Channel != "" {
		channelID, err := id.ParseChannelID(m.Channel)
		if err != nil {
			return nil, err
		}
		e.Channel = channelID
	}
	return e, nil
}
