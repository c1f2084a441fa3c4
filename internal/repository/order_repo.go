// internal/repository/order_repo.go
package repository

import (
	"context"

	"driverpay/internal/domain"
)

// OrderRepository defines the payment module's view of trip orders. The order
// lifecycle itself is owned elsewhere; refunds only need to lock an order row
// and move it between paid, pending and refunded.
type OrderRepository interface {
	// GetByID retrieves an order without locking it.
	GetByID(ctx context.Context, q DBExecutor, id int64) (*domain.Order, error)
	// LockByID acquires an exclusive row lock on the order. q must be a
	// transaction.
	LockByID(ctx context.Context, q DBExecutor, id int64) (*domain.Order, error)
	// SetStatus moves the order to the given status. Reverting to pending
	// also clears paid_at (the immediate-refund "undo" path).
	SetStatus(ctx context.Context, q DBExecutor, id int64, status domain.OrderStatus) error
}
