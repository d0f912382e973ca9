package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the PostgreSQL store.
var Migrations = migrate.NewGroup("pandda")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_pandda_plans",
			Version: "20240501000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_plans (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    duration_months INTEGER NOT NULL DEFAULT 1,
    created_at      TIMESTAMPTZ NOT NULL,
    updated_at      TIMESTAMPTZ NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_plans`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_pandda_servers",
			Version: "20240501000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_servers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_servers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_pandda_apps",
			Version: "20240501000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_apps (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    server_id    TEXT NOT NULL,
    kind         TEXT NOT NULL DEFAULT 'other',
    multi_access BOOLEAN NOT NULL DEFAULT FALSE,
    created_at   TIMESTAMPTZ NOT NULL,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pandda_apps_server ON pandda_apps (server_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_apps`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_pandda_customers",
			Version: "20240501000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_customers (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    phone      TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL DEFAULT '',
    plan_id    TEXT NOT NULL,
    server1_id TEXT NOT NULL,
    server2_id TEXT NOT NULL DEFAULT '',
    blocked    BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pandda_customers_plan ON pandda_customers (plan_id);
CREATE INDEX IF NOT EXISTS idx_pandda_customers_server1 ON pandda_customers (server1_id);
CREATE INDEX IF NOT EXISTS idx_pandda_customers_server2 ON pandda_customers (server2_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_customers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_pandda_subscriptions",
			Version: "20240501000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_subscriptions (
    id             TEXT PRIMARY KEY,
    customer_id    TEXT NOT NULL,
    plan_id        TEXT NOT NULL,
    due_date       TIMESTAMPTZ NOT NULL,
    paid_at        TIMESTAMPTZ,
    payment_method TEXT NOT NULL DEFAULT '',
    screens        INTEGER NOT NULL,
    value_amount   BIGINT NOT NULL DEFAULT 0,
    value_currency TEXT NOT NULL DEFAULT 'brl',
    created_at     TIMESTAMPTZ NOT NULL,
    updated_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pandda_subscriptions_customer ON pandda_subscriptions (customer_id);
CREATE INDEX IF NOT EXISTS idx_pandda_subscriptions_due ON pandda_subscriptions (due_date);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_pandda_access_points",
			Version: "20240501000006",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_access_points (
    id          TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL,
    server_id   TEXT NOT NULL,
    app_id      TEXT NOT NULL,
    slots       INTEGER NOT NULL,
    username    TEXT NOT NULL,
    secret      TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pandda_access_points_customer ON pandda_access_points (customer_id);
CREATE INDEX IF NOT EXISTS idx_pandda_access_points_app_user ON pandda_access_points (app_id, username);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_access_points`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_pandda_admins",
			Version: "20240501000007",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_admins (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    master        BOOLEAN NOT NULL DEFAULT FALSE,
    created_at    TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_pandda_admins_email ON pandda_admins (lower(email));
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_admins`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_pandda_activities",
			Version: "20240501000008",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS pandda_activities (
    seq       BIGSERIAL,
    id        TEXT PRIMARY KEY,
    actor_id  TEXT NOT NULL DEFAULT '',
    action    TEXT NOT NULL,
    target    TEXT NOT NULL DEFAULT '',
    detail    TEXT NOT NULL DEFAULT '',
    occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pandda_activities_occurred ON pandda_activities (occurred_at DESC, seq DESC);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS pandda_activities`)
				return err
			},
		},
	)
}
