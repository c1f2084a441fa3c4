// internal/repository/postgres/schema.go
package postgres

import (
	"fmt"

	"github.com/jmoiron/sqlx"
)

// InitSchema ensures all tables and constraints exist. The unique indexes
// below are load-bearing: movement-per-transaction, one wallet per driver,
// one adjustment per (order, seq) and one claim per (key, method, endpoint)
// are what the services' re-read-on-conflict logic relies on.
func InitSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallet_accounts (
			id BIGSERIAL PRIMARY KEY,
			driver_id BIGINT NOT NULL UNIQUE,
			current_balance NUMERIC(20, 2) NOT NULL DEFAULT 0,
			held_balance NUMERIC(20, 2) NOT NULL DEFAULT 0,
			total_earned_from_trips NUMERIC(20, 2) NOT NULL DEFAULT 0,
			currency CHAR(3) NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			blocked_at TIMESTAMPTZ,
			blocked_reason TEXT,
			unblocked_at TIMESTAMPTZ,
			unblocked_by BIGINT,
			min_payout_threshold NUMERIC(20, 2) NOT NULL DEFAULT 0,
			allowed_negative_limit NUMERIC(20, 2) NOT NULL DEFAULT 0,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS transactions (
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			gross_amount NUMERIC(20, 2) NOT NULL,
			platform_fee_amount NUMERIC(20, 2) NOT NULL DEFAULT 0,
			net_amount NUMERIC(20, 2) NOT NULL,
			currency CHAR(3) NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			order_id BIGINT,
			trip_id BIGINT,
			from_user_id BIGINT,
			to_user_id BIGINT,
			processed_at TIMESTAMPTZ,
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_commission_trip
			ON transactions (type, order_id, trip_id, to_user_id)
			WHERE type = 'PLATFORM_COMMISSION'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_transactions_refund_order
			ON transactions (type, order_id)
			WHERE type = 'REFUND'`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_order ON transactions (order_id)`,

		`CREATE TABLE IF NOT EXISTS wallet_movements (
			id BIGSERIAL PRIMARY KEY,
			wallet_id BIGINT NOT NULL REFERENCES wallet_accounts(id),
			transaction_id BIGINT UNIQUE REFERENCES transactions(id),
			amount NUMERIC(20, 2) NOT NULL,
			previous_balance NUMERIC(20, 2) NOT NULL,
			new_balance NUMERIC(20, 2) NOT NULL,
			note TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT chk_movement_delta CHECK (new_balance - previous_balance = amount)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_movements_wallet ON wallet_movements (wallet_id, created_at DESC)`,

		`CREATE TABLE IF NOT EXISTS commission_adjustments (
			id BIGSERIAL PRIMARY KEY,
			order_id BIGINT NOT NULL,
			adjustment_seq TEXT NOT NULL,
			transaction_id BIGINT REFERENCES transactions(id),
			delta_fee NUMERIC(20, 2) NOT NULL,
			original_fee NUMERIC(20, 2) NOT NULL,
			new_fee NUMERIC(20, 2) NOT NULL,
			reason TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (order_id, adjustment_seq)
		)`,

		`CREATE TABLE IF NOT EXISTS idempotency_claims (
			id BIGSERIAL PRIMARY KEY,
			key TEXT NOT NULL,
			method TEXT NOT NULL,
			endpoint TEXT NOT NULL,
			user_id BIGINT,
			request_hash TEXT,
			status TEXT NOT NULL DEFAULT 'IN_PROGRESS',
			locked_until TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			attempt_count INT NOT NULL DEFAULT 1,
			response_code INT,
			response_body JSONB,
			response_headers JSONB,
			error_code TEXT,
			error_details TEXT,
			first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_seen_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (key, method, endpoint)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_claims_expires ON idempotency_claims (expires_at)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			trip_id BIGINT NOT NULL,
			driver_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			payment_method TEXT NOT NULL DEFAULT 'CASH',
			paid_amount NUMERIC(20, 2) NOT NULL DEFAULT 0,
			currency CHAR(3) NOT NULL,
			paid_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS collection_points (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		`CREATE TABLE IF NOT EXISTS cash_collections (
			id BIGSERIAL PRIMARY KEY,
			transaction_id BIGINT NOT NULL UNIQUE REFERENCES transactions(id),
			collection_point_id BIGINT NOT NULL REFERENCES collection_points(id),
			wallet_id BIGINT NOT NULL REFERENCES wallet_accounts(id),
			driver_id BIGINT NOT NULL,
			amount NUMERIC(20, 2) NOT NULL,
			currency CHAR(3) NOT NULL,
			status TEXT NOT NULL DEFAULT 'PENDING',
			collected_by BIGINT,
			completed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS refund_notes (
			id BIGSERIAL PRIMARY KEY,
			collection_point_id BIGINT NOT NULL REFERENCES collection_points(id),
			order_id BIGINT NOT NULL,
			amount NUMERIC(20, 2) NOT NULL,
			note TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}
