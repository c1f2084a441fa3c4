// internal/repository/postgres/wallet_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
)

const walletColumns = `id, driver_id, current_balance, held_balance, total_earned_from_trips,
	currency, status, blocked_at, blocked_reason, unblocked_at, unblocked_by,
	min_payout_threshold, allowed_negative_limit, version, created_at, updated_at`

// WalletRepository implements repository.WalletRepository for PostgreSQL.
type WalletRepository struct {
	// Stateless; methods receive a DBExecutor directly.
}

// NewWalletRepository creates a new WalletRepository.
func NewWalletRepository(db *sqlx.DB) repository.WalletRepository {
	return &WalletRepository{}
}

// CreateWallet inserts a new wallet row using the provided DBExecutor.
func (r *WalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, w *domain.WalletAccount) error {
	query := `INSERT INTO wallet_accounts
		(driver_id, current_balance, held_balance, total_earned_from_trips, currency, status,
		 min_payout_threshold, allowed_negative_limit, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		w.DriverID, w.CurrentBalance, w.HeldBalance, w.TotalEarnedFromTrips, w.Currency, w.Status,
		w.MinPayoutThreshold, w.AllowedNegativeLimit, w.Version, w.CreatedAt, w.UpdatedAt,
	).Scan(&w.ID)
	if err != nil {
		if translated := translateInsertErr(err); translated == util.ErrDuplicateEntry {
			return translated
		}
		return fmt.Errorf("failed to create wallet for driver %d: %w", w.DriverID, err)
	}
	return nil
}

// GetByDriverID retrieves a wallet without locking it.
func (r *WalletRepository) GetByDriverID(ctx context.Context, q repository.DBExecutor, driverID int64) (*domain.WalletAccount, error) {
	var w domain.WalletAccount
	query := `SELECT ` + walletColumns + ` FROM wallet_accounts WHERE driver_id = $1`
	if err := q.GetContext(ctx, &w, query, driverID); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet for driver %d: %w", driverID, err)
	}
	return &w, nil
}

// LockByDriverID acquires an exclusive row lock on the wallet. The lock is
// held for the duration of the transaction behind q.
func (r *WalletRepository) LockByDriverID(ctx context.Context, q repository.DBExecutor, driverID int64) (*domain.WalletAccount, error) {
	var w domain.WalletAccount
	query := `SELECT ` + walletColumns + ` FROM wallet_accounts WHERE driver_id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &w, query, driverID); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet for driver %d: %w", driverID, err)
	}
	return &w, nil
}

// UpdateBalanceLocked writes the rounded balance under an already-held row
// lock. The caller is responsible for having written the corresponding
// movement with matching previous/new balances.
func (r *WalletRepository) UpdateBalanceLocked(ctx context.Context, q repository.DBExecutor, walletID int64, newBalance, earnedDelta decimal.Decimal) error {
	query := `UPDATE wallet_accounts
		SET current_balance = $1,
		    total_earned_from_trips = total_earned_from_trips + $2,
		    version = version + 1,
		    updated_at = $3
		WHERE id = $4`
	result, err := q.ExecContext(ctx, query, newBalance.Round(2), earnedDelta.Round(2), time.Now().UTC(), walletID)
	if err != nil {
		return fmt.Errorf("failed to update balance for wallet %d: %w", walletID, err)
	}
	return requireOneRow(result, util.ErrWalletNotFound)
}

// Block marks the wallet blocked with a reason.
func (r *WalletRepository) Block(ctx context.Context, q repository.DBExecutor, walletID int64, reason string, at time.Time) error {
	query := `UPDATE wallet_accounts
		SET status = $1, blocked_at = $2, blocked_reason = $3, version = version + 1, updated_at = $2
		WHERE id = $4`
	result, err := q.ExecContext(ctx, query, domain.WalletStatusBlocked, at, reason, walletID)
	if err != nil {
		return fmt.Errorf("failed to block wallet %d: %w", walletID, err)
	}
	return requireOneRow(result, util.ErrWalletNotFound)
}

// Unblock reactivates the wallet.
func (r *WalletRepository) Unblock(ctx context.Context, q repository.DBExecutor, walletID int64, by *int64, at time.Time) error {
	query := `UPDATE wallet_accounts
		SET status = $1, unblocked_at = $2, unblocked_by = $3, version = version + 1, updated_at = $2
		WHERE id = $4`
	result, err := q.ExecContext(ctx, query, domain.WalletStatusActive, at, by, walletID)
	if err != nil {
		return fmt.Errorf("failed to unblock wallet %d: %w", walletID, err)
	}
	return requireOneRow(result, util.ErrWalletNotFound)
}

func requireOneRow(result sql.Result, missing error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return missing
	}
	return nil
}
