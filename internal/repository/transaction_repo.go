// internal/repository/transaction_repo.go
package repository

import (
	"context"
	"time"

	"driverpay/internal/domain"
)

// TransactionRepository defines data operations on the transaction ledger.
type TransactionRepository interface {
	// Create inserts a ledger record; returns ErrDuplicateEntry when a natural
	// business key collides with an existing row.
	Create(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// GetByID retrieves a single transaction.
	GetByID(ctx context.Context, q DBExecutor, id int64) (*domain.Transaction, error)
	// FindByTypeAndOrder finds the (at most one) transaction of the given type
	// recorded for an order.
	FindByTypeAndOrder(ctx context.Context, q DBExecutor, txType domain.TransactionType, orderID int64) (*domain.Transaction, error)
	// FindCommissionForTrip finds the platform commission recorded for a
	// (driver, trip, order) tuple.
	FindCommissionForTrip(ctx context.Context, q DBExecutor, driverID, tripID, orderID int64) (*domain.Transaction, error)
	// MarkProcessed promotes a transaction to processed. The transition is
	// monotonic; processed and reversed rows are left untouched.
	MarkProcessed(ctx context.Context, q DBExecutor, id int64, at time.Time) error
}
