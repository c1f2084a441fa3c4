// internal/repository/wallet_repo.go
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
)

// WalletRepository defines data operations on driver wallet accounts.
// Balance-mutating methods assume the caller already holds the row lock
// acquired through LockByDriverID inside the enclosing transaction.
type WalletRepository interface {
	// CreateWallet inserts a new wallet row; returns ErrDuplicateEntry if the
	// driver already has one.
	CreateWallet(ctx context.Context, q DBExecutor, wallet *domain.WalletAccount) error
	// GetByDriverID retrieves a wallet without locking it.
	GetByDriverID(ctx context.Context, q DBExecutor, driverID int64) (*domain.WalletAccount, error)
	// LockByDriverID acquires an exclusive row lock (SELECT ... FOR UPDATE)
	// held until the enclosing transaction ends. q must be a transaction.
	LockByDriverID(ctx context.Context, q DBExecutor, driverID int64) (*domain.WalletAccount, error)
	// UpdateBalanceLocked writes the new balance (and optionally bumps the
	// lifetime trip earnings) and increments the optimistic version.
	UpdateBalanceLocked(ctx context.Context, q DBExecutor, walletID int64, newBalance decimal.Decimal, earnedDelta decimal.Decimal) error
	// Block marks the wallet blocked with a reason.
	Block(ctx context.Context, q DBExecutor, walletID int64, reason string, at time.Time) error
	// Unblock reactivates the wallet, attributing the action to an actor.
	Unblock(ctx context.Context, q DBExecutor, walletID int64, by *int64, at time.Time) error
}
