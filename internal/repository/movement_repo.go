// internal/repository/movement_repo.go
package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
)

// MovementRepository defines data operations on the append-only wallet
// movement log. Movements are never updated or deleted.
type MovementRepository interface {
	// Create appends a movement; returns ErrDuplicateEntry if a movement for
	// the same transaction already exists.
	Create(ctx context.Context, q DBExecutor, movement *domain.WalletMovement) error
	// GetByTransactionID returns the movement backing a transaction, or
	// ErrNotFound when the transaction has not touched a balance yet.
	GetByTransactionID(ctx context.Context, q DBExecutor, transactionID int64) (*domain.WalletMovement, error)
	// ListByWalletID returns a page of movements, newest first, plus the total.
	ListByWalletID(ctx context.Context, q DBExecutor, walletID int64, limit, offset int) ([]domain.WalletMovement, int64, error)
	// SumByWalletID returns the running sum of all movement amounts for a
	// wallet; used to reconcile against the stored balance.
	SumByWalletID(ctx context.Context, q DBExecutor, walletID int64) (decimal.Decimal, error)
}
