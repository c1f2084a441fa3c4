// internal/repository/idempotency_repo.go
package repository

import (
	"context"
	"encoding/json"
	"time"

	"driverpay/internal/domain"
)

// IdempotencyRepository defines data operations on idempotency claims.
type IdempotencyRepository interface {
	// Get retrieves a claim by its identity, or ErrNotFound.
	Get(ctx context.Context, q DBExecutor, key, method, endpoint string) (*domain.IdempotencyClaim, error)
	// Insert creates a first-generation claim; returns ErrDuplicateEntry when
	// a concurrent inserter won the race.
	Insert(ctx context.Context, q DBExecutor, claim *domain.IdempotencyClaim) error
	// Steal re-claims an expired lease: bumps the attempt count, resets the
	// status to in-progress and installs new lease/window bounds. The update
	// is conditional on the lease (or window) actually having expired; it
	// returns ErrNotFound when another caller got there first.
	Steal(ctx context.Context, q DBExecutor, id int64, lockedUntil, expiresAt, now time.Time) (*domain.IdempotencyClaim, error)
	// MarkSucceeded records the canonical response and clears the lease.
	MarkSucceeded(ctx context.Context, q DBExecutor, key, method, endpoint string, code int, body, headers json.RawMessage, at time.Time) error
	// MarkFailed records the cached error and clears the lease.
	MarkFailed(ctx context.Context, q DBExecutor, key, method, endpoint string, errCode, details *string, at time.Time) error
	// DeleteExpired purges rows whose retention window has passed and returns
	// how many were removed. Safe to run concurrently and repeatedly.
	DeleteExpired(ctx context.Context, q DBExecutor, now time.Time) (int64, error)
}
