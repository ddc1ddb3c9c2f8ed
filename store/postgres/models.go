package postgres

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/raise/campaign"
	"github.com/xraph/raise/contribution"
	"github.com/xraph/raise/custody"
	"github.com/xraph/raise/id"
	"github.com/xraph/raise/types"
	"github.com/xraph/raise/vesting"
)

// ==================== Campaign models ====================

type campaignModel struct {
	grove.BaseModel `grove:"table:raise_campaign"`

	ID              string          `grove:"id,pk"`
	Goal            string          `grove:"goal"`
	ReceiveDecimals int             `grove:"receive_decimals"`
	SaleStart       time.Time       `grove:"sale_start"`
	SaleEnd         time.Time       `grove:"sale_end"`
	WhitelistEnd    time.Time       `grove:"whitelist_end"`
	UserCap         string          `grove:"user_cap"`
	Channels        json.RawMessage `grove:"channels,type:jsonb"`
	Vesting         json.RawMessage `grove:"vesting,type:jsonb"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toCampaignModel(c *campaign.Config) *campaignModel {
	channels, _ := json.Marshal(c.Channels) //nolint:errcheck // best-effort
	schedule, _ := json.Marshal(c.Vesting)  //nolint:errcheck // best-effort

	return &campaignModel{
		ID:              c.ID.String(),
		Goal:            c.Goal.String(),
		ReceiveDecimals: int(c.ReceiveDecimals),
		SaleStart:       c.SaleStart,
		SaleEnd:         c.SaleEnd,
		WhitelistEnd:    c.WhitelistEnd,
		UserCap:         c.UserCap.String(),
		Channels:        channels,
		Vesting:         schedule,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
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

	channels := make(map[string]*campaign.Channel)
	if len(m.Channels) > 0 {
		if err := json.Unmarshal(m.Channels, &channels); err != nil {
			return nil, err
		}
	}
	var schedule vesting.Schedule
	if len(m.Vesting) > 0 {
		if err := json.Unmarshal(m.Vesting, &schedule); err != nil {
			return nil, err
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
		Vesting:         schedule,
	}, nil
}

// ==================== Aggregate models ====================

type aggregateModel struct {
	grove.BaseModel `grove:"table:raise_aggregate"`

	ID              int             `grove:"id,pk"`
	Issued          string          `grove:"issued"`
	RaisedNative    string          `grove:"raised_native"`
	RaisedByToken   json.RawMessage `grove:"raised_by_token,type:jsonb"`
	RaisedByChannel json.RawMessage `grove:"raised_by_channel,type:jsonb"`
	IssuedByChannel json.RawMessage `grove:"issued_by_channel,type:jsonb"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toAggregateModel(a *contribution.Aggregate) *aggregateModel {
	raisedByToken, _ := json.Marshal(a.RaisedByToken)     //nolint:errcheck // best-effort
	raisedByChannel, _ := json.Marshal(a.RaisedByChannel) //nolint:errcheck // best-effort
	issuedByChannel, _ := json.Marshal(a.IssuedByChannel) //nolint:errcheck // best-effort

	return &aggregateModel{
		ID:              1,
		Issued:          a.Issued.String(),
		RaisedNative:    a.RaisedNative.String(),
		RaisedByToken:   raisedByToken,
		RaisedByChannel: raisedByChannel,
		IssuedByChannel: issuedByChannel,
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

	agg := contribution.NewAggregate()
	agg.Entity = types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
	agg.Issued = issued
	agg.RaisedNative = raisedNative
	if len(m.RaisedByToken) > 0 {
		if err := json.Unmarshal(m.RaisedByToken, &agg.RaisedByToken); err != nil {
			return nil, err
		}
	}
	if len(m.RaisedByChannel) > 0 {
		if err := json.Unmarshal(m.RaisedByChannel, &agg.RaisedByChannel); err != nil {
			return nil, err
		}
	}
	if len(m.IssuedByChannel) > 0 {
		if err := json.Unmarshal(m.IssuedByChannel, &agg.IssuedByChannel); err != nil {
			return nil, err
		}
	}
	return agg, nil
}

// ==================== Contributor models ====================

type contributorModel struct {
	grove.BaseModel `grove:"table:raise_contributors"`

	User          string          `grove:"contributor,pk"`
	PaidByChannel json.RawMessage `grove:"paid_by_channel,type:jsonb"`
	Entitlement   string          `grove:"entitlement"`
	CreatedAt     time.Time       `grove:"created_at"`
	UpdatedAt     time.Time       `grove:"updated_at"`
}

func toContributorModel(c *contribution.Contributor) *contributorModel {
	paid, _ := json.Marshal(c.PaidByChannel) //nolint:errcheck // best-effort

	return &contributorModel{
		User:          c.User,
		PaidByChannel: paid,
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

	c := contribution.NewContributor(m.User)
	c.Entity = types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt}
	c.Entitlement = entitlement
	if len(m.PaidByChannel) > 0 {
		if err := json.Unmarshal(m.PaidByChannel, &c.PaidByChannel); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ==================== Vesting account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:raise_accounts"`

	Beneficiary  string    `grove:"beneficiary,pk"`
	ID           string    `grove:"id"`
	Entitlement  string    `grove:"entitlement"`
	Claimed      string    `grove:"claimed"`
	InitialShare string    `grove:"initial_share"`
	LastChunk    int64     `grove:"last_chunk"`
	CreatedAt    time.Time `grove:"created_at"`
	UpdatedAt    time.Time `grove:"updated_at"`
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

	ID        int       `grove:"id,pk"`
	Deposited string    `grove:"deposited"`
	Locked    string    `grove:"locked"`
	Released  string    `grove:"released"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
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

	ID          string    `grove:"id,pk"`
	Kind        string    `grove:"kind"`
	User        string    `grove:"contributor"`
	Channel     string    `grove:"channel"`
	Paid        string    `grove:"paid"`
	Refunded    string    `grove:"refunded"`
	Entitlement string    `grove:"entitlement"`
	Ref         string    `grove:"ref"`
	At          time.Time `grove:"at"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
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
