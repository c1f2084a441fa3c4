// internal/repository/adjustment_repo.go
package repository

import (
	"context"

	"driverpay/internal/domain"
)

// AdjustmentRepository defines data operations on commission adjustments.
type AdjustmentRepository interface {
	// Create inserts an adjustment; returns ErrDuplicateEntry when the
	// (order, adjustment_seq) pair is already taken.
	Create(ctx context.Context, q DBExecutor, adjustment *domain.CommissionAdjustment) error
	// GetByOrderAndSeq retrieves an adjustment by its idempotency key.
	GetByOrderAndSeq(ctx context.Context, q DBExecutor, orderID int64, seq string) (*domain.CommissionAdjustment, error)
	// ListByOrder returns all adjustments recorded for an order, oldest first.
	ListByOrder(ctx context.Context, q DBExecutor, orderID int64) ([]domain.CommissionAdjustment, error)
}
