package postgres

import (
	"context"
	"fmt"
)

// schema is applied at startup. Every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS wallets (
		owner       TEXT PRIMARY KEY,
		private_key TEXT NOT NULL,
		mints       TEXT[] NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL,
		updated_at  TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS proofs (
		owner      TEXT NOT NULL,
		keyset_id  TEXT NOT NULL,
		secret     TEXT NOT NULL,
		amount     BIGINT NOT NULL CHECK (amount > 0),
		c          TEXT NOT NULL,
		mint_url   TEXT NOT NULL,
		provenance TEXT NOT NULL,
		PRIMARY KEY (owner, keyset_id, secret)
	)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id              UUID PRIMARY KEY,
		owner           TEXT NOT NULL,
		kind            TEXT NOT NULL,
		mint_url        TEXT NOT NULL,
		quote_id        TEXT NOT NULL,
		payment_request TEXT NOT NULL,
		amount          BIGINT NOT NULL,
		state           TEXT NOT NULL,
		fee             BIGINT,
		created_at      TIMESTAMPTZ NOT NULL,
		expires_at      TIMESTAMPTZ,
		checked_at      TIMESTAMPTZ,
		paid_at         TIMESTAMPTZ,
		issued_at       TIMESTAMPTZ,
		updated_at      TIMESTAMPTZ NOT NULL,
		change_outputs  JSONB,
		UNIQUE (owner, mint_url, quote_id)
	)`,
	`ALTER TABLE invoices ADD COLUMN IF NOT EXISTS change_outputs JSONB`,
	`CREATE TABLE IF NOT EXISTS history (
		id            UUID PRIMARY KEY,
		owner         TEXT NOT NULL,
		type          TEXT NOT NULL,
		amount        BIGINT NOT NULL,
		fee           BIGINT NOT NULL DEFAULT 0,
		status        TEXT NOT NULL,
		balance_after BIGINT NOT NULL,
		mint_url      TEXT NOT NULL DEFAULT '',
		provider      TEXT NOT NULL DEFAULT '',
		model         TEXT NOT NULL DEFAULT '',
		request_id    TEXT NOT NULL DEFAULT '',
		message       TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS history_owner_created_idx ON history (owner, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id            UUID PRIMARY KEY,
		owner         TEXT NOT NULL,
		action        TEXT NOT NULL,
		resource_type TEXT NOT NULL,
		resource_id   TEXT NOT NULL DEFAULT '',
		details       TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist.
func Migrate(ctx context.Context, pool Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
