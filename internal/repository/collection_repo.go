// internal/repository/collection_repo.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
)

// CollectionRepository defines data operations on cash collections.
type CollectionRepository interface {
	// Create inserts a pending collection; returns ErrDuplicateEntry when the
	// transaction already has one.
	Create(ctx context.Context, q DBExecutor, collection *domain.CashCollection) error
	// LockByID acquires an exclusive row lock on the collection record so a
	// confirmation cannot run twice concurrently. q must be a transaction.
	LockByID(ctx context.Context, q DBExecutor, id int64) (*domain.CashCollection, error)
	// Complete marks the collection completed and attributes it to a collector.
	Complete(ctx context.Context, q DBExecutor, id int64, collectedBy int64, at time.Time) error
	// IsPointActive reports whether a collection point currently accepts cash.
	IsPointActive(ctx context.Context, q DBExecutor, pointID int64) (bool, error)
	// CreateRefundNote records an off-platform refund note for finance,
	// addressed to a collection point.
	CreateRefundNote(ctx context.Context, q DBExecutor, pointID, orderID int64, amount decimal.Decimal, note string) error
}
