package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Raise store.
var Migrations = migrate.NewGroup("raise")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_raise_campaign",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS raise_campaign (
    id               TEXT PRIMARY KEY,
    goal             TEXT NOT NULL DEFAULT '0',
    receive_decimals INT NOT NULL DEFAULT 0,
    sale_start       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    sale_end         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    whitelist_end    TIMESTAMPTZ,
    user_cap         TEXT NOT NULL DEFAULT '0',
    channels         JSONB NOT NULL DEFAULT '{}',
    vesting          JSONB NOT NULL DEFAULT '{}',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS raise_campaign`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_raise_aggregate",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS raise_aggregate (
    id                INT PRIMARY KEY,
    issued            TEXT NOT NULL DEFAULT '0',
    raised_native     TEXT NOT NULL DEFAULT '0',
    raised_by_token   JSONB NOT NULL DEFAULT '{}',
    raised_by_channel JSONB NOT NULL DEFAULT '{}',
    issued_by_channel JSONB NOT NULL DEFAULT '{}',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS raise_aggregate`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_raise_contributors",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS raise_contributors (
    contributor     TEXT PRIMARY KEY,
    paid_by_channel JSONB NOT NULL DEFAULT '{}',
    entitlement     TEXT NOT NULL DEFAULT '0',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS raise_contributors`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_raise_accounts",
			Version: "20250101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS raise_accounts (
    beneficiary   TEXT PRIMARY KEY,
    id            TEXT NOT NULL DEFAULT '',
    entitlement   TEXT NOT NULL DEFAULT '0',
    claimed       TEXT NOT NULL DEFAULT '0',
    initial_share TEXT NOT NULL DEFAULT '0',
    last_chunk    BIGINT NOT NULL DEFAULT 0,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS raise_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_raise_reserve",
			Version: "20250101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS raise_reserve (
    id         INT PRIMARY KEY,
    deposited  TEXT NOT NULL DEFAULT '0',
    locked     TEXT NOT NULL DEFAULT '0',
    released   TEXT NOT NULL DEFAULT '0',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS raise_reserve`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_raise_entries",
			Version: "20250101000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS raise_entries (
    id          TEXT PRIMARY KEY,
    kind        TEXT NOT NULL DEFAULT '',
    contributor TEXT NOT NULL DEFAULT '',
    channel     TEXT NOT NULL DEFAULT '',
    paid        TEXT NOT NULL DEFAULT '0',
    refunded    TEXT NOT NULL DEFAULT '0',
    entitlement TEXT NOT NULL DEFAULT '0',
    ref         TEXT NOT NULL DEFAULT '',
    at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_raise_entries_contributor ON raise_entries (contributor, at);
CREATE INDEX IF NOT EXISTS idx_raise_entries_channel ON raise_entries (channel, at);
CREATE INDEX IF NOT EXISTS idx_raise_entries_kind ON raise_entries (kind, at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS raise_entries`)
				return err
			},
		},
	)
}
