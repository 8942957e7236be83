package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS pairing_requests (
		code       TEXT PRIMARY KEY,
		created_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pairing_requests_expires_at ON pairing_requests (expires_at)`,
	`CREATE TABLE IF NOT EXISTS pairing_codes (
		code              TEXT PRIMARY KEY,
		created_at        BIGINT NOT NULL,
		expires_at        BIGINT NOT NULL,
		gateway_url       TEXT NOT NULL,
		gateway_token_enc TEXT NOT NULL,
		agent_name        TEXT NOT NULL,
		max_claims        INTEGER NOT NULL DEFAULT 1,
		claims_used       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pairing_codes_expires_at ON pairing_codes (expires_at)`,
	`CREATE TABLE IF NOT EXISTS pairing_sessions (
		token_hash        TEXT PRIMARY KEY,
		created_at        BIGINT NOT NULL,
		expires_at        BIGINT NOT NULL,
		gateway_url       TEXT NOT NULL,
		gateway_token_enc TEXT NOT NULL,
		agent_name        TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pairing_sessions_expires_at ON pairing_sessions (expires_at)`,
}

// Migrate creates the pairing tables if they do not exist. The DDL is valid for
// both postgres and sqlite.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
