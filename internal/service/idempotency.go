// internal/service/idempotency.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
)

// ClaimDecision tells the caller how to proceed after ClaimOrGet.
type ClaimDecision int

const (
	// DecisionProceed means the caller holds the lease and must run its work,
	// then call Succeed or Fail exactly once.
	DecisionProceed ClaimDecision = iota
	// DecisionStoredSuccess means a cached response must be replayed verbatim.
	DecisionStoredSuccess
	// DecisionInProgress means another holder owns an unexpired lease.
	DecisionInProgress
	// DecisionStoredFailure means a cached error must be replayed.
	DecisionStoredFailure
)

// ClaimOutcome is the result of ClaimOrGet.
type ClaimOutcome struct {
	Decision      ClaimDecision
	Claim         *domain.IdempotencyClaim
	RetryAfterSec int
}

// ClaimParams identifies and configures one claim attempt.
type ClaimParams struct {
	Key         string
	Method      string
	Endpoint    string
	UserID      *int64
	RequestHash *string
	// Lease defaults to 30 seconds when zero; Window to 24 hours.
	Lease  time.Duration
	Window time.Duration
}

const (
	defaultLease  = 30 * time.Second
	defaultWindow = 24 * time.Hour
)

// IdempotencyService deduplicates externally retried write requests using a
// leased-claim protocol. It is a leaf component: claims live outside the
// financial transaction scope, so a crash between a financial commit and the
// Succeed call is benign: the lease expires and the retry re-discovers the
// committed state through the services' own idempotent lookups.
type IdempotencyService struct {
	db     repository.DBExecutor
	claims repository.IdempotencyRepository
	logger *slog.Logger
	now    func() time.Time
}

// NewIdempotencyService creates a new IdempotencyService.
func NewIdempotencyService(db repository.DBExecutor, claims repository.IdempotencyRepository, logger *slog.Logger) *IdempotencyService {
	return &IdempotencyService{
		db:     db,
		claims: claims,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ClaimOrGet looks up or creates the claim for (key, method, endpoint) and
// decides whether the caller may proceed, must replay a stored outcome, or
// must wait.
func (s *IdempotencyService) ClaimOrGet(ctx context.Context, p ClaimParams) (*ClaimOutcome, error) {
	if p.Key == "" || p.Method == "" || p.Endpoint == "" {
		return nil, util.ErrInvalidInput
	}
	lease := p.Lease
	if lease <= 0 {
		lease = defaultLease
	}
	window := p.Window
	if window <= 0 {
		window = defaultWindow
	}

	// Two passes: the first may lose an insert or steal race, in which case
	// the re-read on the second pass settles on the winner's row.
	for attempt := 0; attempt < 2; attempt++ {
		claim, err := s.claims.Get(ctx, s.db, p.Key, p.Method, p.Endpoint)
		if util.IsError(err, util.ErrNotFound) {
			fresh := domain.NewIdempotencyClaim(p.Key, p.Method, p.Endpoint, p.UserID, p.RequestHash, lease, window)
			if insertErr := s.claims.Insert(ctx, s.db, fresh); insertErr != nil {
				if util.IsError(insertErr, util.ErrDuplicateEntry) {
					continue // concurrent inserter won; re-read
				}
				return nil, fmt.Errorf("claim insert failed: %w", insertErr)
			}
			return &ClaimOutcome{Decision: DecisionProceed, Claim: fresh}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("claim lookup failed: %w", err)
		}

		now := s.now()
		if !claim.WindowExpired(now) {
			switch claim.Status {
			case domain.ClaimStatusSucceeded:
				return &ClaimOutcome{Decision: DecisionStoredSuccess, Claim: claim}, nil
			case domain.ClaimStatusFailed:
				return &ClaimOutcome{Decision: DecisionStoredFailure, Claim: claim}, nil
			case domain.ClaimStatusInProgress:
				if !claim.LeaseExpired(now) {
					return &ClaimOutcome{
						Decision:      DecisionInProgress,
						Claim:         claim,
						RetryAfterSec: retryAfterSeconds(claim.LockedUntil, now),
					}, nil
				}
			}
		}

		// Lease expired with no terminal status, or the whole window lapsed:
		// the holder is presumed dead, steal the lease.
		stolen, stealErr := s.claims.Steal(ctx, s.db, claim.ID, now.Add(lease), now.Add(window), now)
		if stealErr != nil {
			if util.IsError(stealErr, util.ErrNotFound) {
				continue // another stealer won; re-read
			}
			return nil, fmt.Errorf("claim steal failed: %w", stealErr)
		}
		s.logger.Info("stole expired idempotency lease", "key", p.Key, "attempt", stolen.AttemptCount)
		return &ClaimOutcome{Decision: DecisionProceed, Claim: stolen}, nil
	}

	// Lost both passes to concurrent claimers; tell the caller to retry soon.
	return &ClaimOutcome{Decision: DecisionInProgress, RetryAfterSec: 1}, nil
}

// Succeed records the canonical response for replay. Must be called exactly
// once per accepted proceed outcome, after the caller's own work committed.
func (s *IdempotencyService) Succeed(ctx context.Context, key, method, endpoint string, code int, body, headers json.RawMessage) error {
	return s.claims.MarkSucceeded(ctx, s.db, key, method, endpoint, code, body, headers, s.now())
}

// Fail records the cached error outcome for replay.
func (s *IdempotencyService) Fail(ctx context.Context, key, method, endpoint string, errCode, details *string) error {
	return s.claims.MarkFailed(ctx, s.db, key, method, endpoint, errCode, details, s.now())
}

// CleanupExpired purges claims past their retention window. Pure garbage
// collection; safe to run concurrently and repeatedly.
func (s *IdempotencyService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.claims.DeleteExpired(ctx, s.db, s.now())
}

func retryAfterSeconds(lockedUntil, now time.Time) int {
	remaining := lockedUntil.Sub(now)
	sec := int((remaining + time.Second - 1) / time.Second)
	if sec < 1 {
		sec = 1
	}
	return sec
}
