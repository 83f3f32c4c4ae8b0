package postgres

import (
	"context"
	"fmt"
)

// InitSchema creates the tables when they don't exist. The users table is the
// mutable funnel snapshot; events is append-only and never updated;
// trader_id_audit keeps overwritten trader ids for audit.
func (c *Client) InitSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY,
			subscriber_id UUID,
			clickid TEXT,
			trader_id TEXT,
			sub_id TEXT,
			first_message_at TIMESTAMPTZ,
			registered_at TIMESTAMPTZ,
			first_deposit_at TIMESTAMPTZ,
			redeposit_at TIMESTAMPTZ,
			deposits_sum DOUBLE PRECISION NOT NULL DEFAULT 0,
			redeposits_sum DOUBLE PRECISION NOT NULL DEFAULT 0,
			revenue DOUBLE PRECISION,
			campaign_name TEXT,
			campaign_id BIGINT,
			landing_name TEXT,
			landing_id BIGINT,
			country TEXT,
			manager TEXT,
			balance DOUBLE PRECISION,
			pocket_status TEXT,
			pocket_total_deposits DOUBLE PRECISION,
			pocket_ftd_amount DOUBLE PRECISION,
			pocket_country TEXT,
			pocket_registered_at TIMESTAMPTZ,
			pocket_synced_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_users_subscriber_id ON users (subscriber_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_clickid ON users (clickid)`,
		`CREATE INDEX IF NOT EXISTS idx_users_trader_id ON users (trader_id)`,
		`CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users (id),
			kind TEXT NOT NULL,
			amount DOUBLE PRECISION,
			commission DOUBLE PRECISION,
			raw JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_kind_created ON events (user_id, kind, created_at)`,
		`CREATE TABLE IF NOT EXISTS trader_id_audit (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL,
			old_trader_id TEXT,
			new_trader_id TEXT NOT NULL,
			changed_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range statements {
		if _, err := c.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}

	c.log.Info("Postgres schema initialized")
	return nil
}
