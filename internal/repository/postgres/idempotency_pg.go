// internal/repository/postgres/idempotency_pg.go
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
)

const claimColumns = `id, key, method, endpoint, user_id, request_hash, status,
	locked_until, expires_at, attempt_count, response_code, response_body,
	response_headers, error_code, error_details, first_seen_at, last_seen_at`

// IdempotencyRepository implements repository.IdempotencyRepository for PostgreSQL.
type IdempotencyRepository struct{}

// NewIdempotencyRepository creates a new IdempotencyRepository.
func NewIdempotencyRepository(db *sqlx.DB) repository.IdempotencyRepository {
	return &IdempotencyRepository{}
}

// Get retrieves a claim by (key, method, endpoint).
func (r *IdempotencyRepository) Get(ctx context.Context, q repository.DBExecutor, key, method, endpoint string) (*domain.IdempotencyClaim, error) {
	var c domain.IdempotencyClaim
	query := `SELECT ` + claimColumns + ` FROM idempotency_claims
		WHERE key = $1 AND method = $2 AND endpoint = $3`
	if err := q.GetContext(ctx, &c, query, key, method, endpoint); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get idempotency claim %q: %w", key, err)
	}
	return &c, nil
}

// Insert creates a first-generation claim.
func (r *IdempotencyRepository) Insert(ctx context.Context, q repository.DBExecutor, c *domain.IdempotencyClaim) error {
	query := `INSERT INTO idempotency_claims
		(key, method, endpoint, user_id, request_hash, status, locked_until, expires_at,
		 attempt_count, first_seen_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		c.Key, c.Method, c.Endpoint, c.UserID, c.RequestHash, c.Status,
		c.LockedUntil, c.ExpiresAt, c.AttemptCount, c.FirstSeenAt, c.LastSeenAt,
	).Scan(&c.ID)
	if err != nil {
		if translated := translateInsertErr(err); translated == util.ErrDuplicateEntry {
			return translated
		}
		return fmt.Errorf("failed to insert idempotency claim %q: %w", c.Key, err)
	}
	return nil
}

// Steal re-claims an expired lease. The WHERE clause repeats the expiry
// conditions so that only one of several concurrent stealers wins; the losers
// see zero rows and get ErrNotFound.
func (r *IdempotencyRepository) Steal(ctx context.Context, q repository.DBExecutor, id int64, lockedUntil, expiresAt, now time.Time) (*domain.IdempotencyClaim, error) {
	var c domain.IdempotencyClaim
	query := `UPDATE idempotency_claims
		SET status = $1, locked_until = $2, expires_at = $3,
		    attempt_count = attempt_count + 1,
		    response_code = NULL, response_body = NULL, response_headers = NULL,
		    error_code = NULL, error_details = NULL,
		    last_seen_at = $4
		WHERE id = $5
		  AND ((status = $1 AND locked_until <= $4) OR expires_at <= $4)
		RETURNING ` + claimColumns
	if err := q.GetContext(ctx, &c, query, domain.ClaimStatusInProgress, lockedUntil, expiresAt, now, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to steal idempotency claim %d: %w", id, err)
	}
	return &c, nil
}

// MarkSucceeded records the canonical response and releases the lease.
func (r *IdempotencyRepository) MarkSucceeded(ctx context.Context, q repository.DBExecutor, key, method, endpoint string, code int, body, headers json.RawMessage, at time.Time) error {
	query := `UPDATE idempotency_claims
		SET status = $1, response_code = $2, response_body = $3, response_headers = $4,
		    locked_until = $5, last_seen_at = $5
		WHERE key = $6 AND method = $7 AND endpoint = $8`
	result, err := q.ExecContext(ctx, query, domain.ClaimStatusSucceeded, code, body, headers, at, key, method, endpoint)
	if err != nil {
		return fmt.Errorf("failed to mark idempotency claim %q succeeded: %w", key, err)
	}
	return requireOneRow(result, util.ErrNotFound)
}

// MarkFailed records the cached error and releases the lease.
func (r *IdempotencyRepository) MarkFailed(ctx context.Context, q repository.DBExecutor, key, method, endpoint string, errCode, details *string, at time.Time) error {
	query := `UPDATE idempotency_claims
		SET status = $1, error_code = $2, error_details = $3,
		    locked_until = $4, last_seen_at = $4
		WHERE key = $5 AND method = $6 AND endpoint = $7`
	result, err := q.ExecContext(ctx, query, domain.ClaimStatusFailed, errCode, details, at, key, method, endpoint)
	if err != nil {
		return fmt.Errorf("failed to mark idempotency claim %q failed: %w", key, err)
	}
	return requireOneRow(result, util.ErrNotFound)
}

// DeleteExpired purges claims past their retention window.
func (r *IdempotencyRepository) DeleteExpired(ctx context.Context, q repository.DBExecutor, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM idempotency_claims WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired idempotency claims: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n, nil
}
