// internal/domain/idempotency.go
package domain

import (
	"encoding/json"
	"time"
)

// ClaimStatus defines the lifecycle state of an idempotency claim.
type ClaimStatus string

const (
	ClaimStatusInProgress ClaimStatus = "IN_PROGRESS"
	ClaimStatusSucceeded  ClaimStatus = "SUCCEEDED"
	ClaimStatusFailed     ClaimStatus = "FAILED"
)

// IdempotencyClaim is a time-bounded reservation that a given retried request
// is being handled or was already handled. Identity is (key, method, endpoint).
// The lease (LockedUntil) bounds how long a crashed holder can block retries;
// an expired lease is always stealable. Rows may be purged after ExpiresAt.
type IdempotencyClaim struct {
	ID              int64           `db:"id" json:"id"`
	Key             string          `db:"key" json:"key"`
	Method          string          `db:"method" json:"method"`
	Endpoint        string          `db:"endpoint" json:"endpoint"`
	UserID          *int64          `db:"user_id" json:"user_id,omitempty"`
	RequestHash     *string         `db:"request_hash" json:"request_hash,omitempty"`
	Status          ClaimStatus     `db:"status" json:"status"`
	LockedUntil     time.Time       `db:"locked_until" json:"locked_until"`
	ExpiresAt       time.Time       `db:"expires_at" json:"expires_at"`
	AttemptCount    int             `db:"attempt_count" json:"attempt_count"`
	ResponseCode    *int            `db:"response_code" json:"response_code,omitempty"`
	ResponseBody    json.RawMessage `db:"response_body" json:"response_body,omitempty"`
	ResponseHeaders json.RawMessage `db:"response_headers" json:"response_headers,omitempty"`
	ErrorCode       *string         `db:"error_code" json:"error_code,omitempty"`
	ErrorDetails    *string         `db:"error_details" json:"error_details,omitempty"`
	FirstSeenAt     time.Time       `db:"first_seen_at" json:"first_seen_at"`
	LastSeenAt      time.Time       `db:"last_seen_at" json:"last_seen_at"`
}

// NewIdempotencyClaim builds a first-generation in-progress claim.
func NewIdempotencyClaim(key, method, endpoint string, userID *int64, requestHash *string, lease, window time.Duration) *IdempotencyClaim {
	now := time.Now().UTC()
	return &IdempotencyClaim{
		Key:          key,
		Method:       method,
		Endpoint:     endpoint,
		UserID:       userID,
		RequestHash:  requestHash,
		Status:       ClaimStatusInProgress,
		LockedUntil:  now.Add(lease),
		ExpiresAt:    now.Add(window),
		AttemptCount: 1,
		FirstSeenAt:  now,
		LastSeenAt:   now,
	}
}

// LeaseExpired reports whether the holder's lease has lapsed at the given time.
func (c *IdempotencyClaim) LeaseExpired(now time.Time) bool {
	return !now.Before(c.LockedUntil)
}

// WindowExpired reports whether the retention window has lapsed.
func (c *IdempotencyClaim) WindowExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
