// internal/util/errors.go
package util

import "errors"

// Application-level errors, grouped by how callers must react to them.
//
// Validation and not-found errors map to client errors and are never retried.
// Conflict errors mean the request contradicts current financial state.
// ErrDuplicateEntry marks a unique-constraint violation; services recover from
// it locally by re-reading the winning row and never surface it to callers.
var (
	// Validation
	ErrInvalidInput     = errors.New("invalid input provided")
	ErrInvalidAmount    = errors.New("amount must be a positive 2-decimal value")
	ErrMissingReference = errors.New("required correlation id is missing")

	// Not found
	ErrNotFound            = errors.New("resource not found")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCollectionNotFound  = errors.New("cash collection not found")

	// Conflict
	ErrWalletBlocked           = errors.New("wallet is blocked")
	ErrCurrencyMismatch        = errors.New("wallet currency mismatch")
	ErrAmountMismatch          = errors.New("existing transaction amount mismatch")
	ErrOrderNotPaid            = errors.New("order is not in paid state")
	ErrRefundExceedsPaid       = errors.New("refund amount exceeds paid amount")
	ErrDeltaExceedsLimit       = errors.New("adjustment delta exceeds allowed limit")
	ErrCollectionPointInactive = errors.New("collection point is not active")
	ErrCollectionNotPending    = errors.New("cash collection is not pending")

	// Race (recovered internally by re-reading the winning row)
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// IsError checks if the given error matches the target error using errors.Is.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
