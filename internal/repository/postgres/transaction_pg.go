// internal/repository/postgres/transaction_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
)

const transactionColumns = `id, type, gross_amount, platform_fee_amount, net_amount, currency,
	status, order_id, trip_id, from_user_id, to_user_id, processed_at, metadata, created_at`

// TransactionRepository implements repository.TransactionRepository for PostgreSQL.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *sqlx.DB) repository.TransactionRepository {
	return &TransactionRepository{}
}

// Create inserts a ledger record using the provided DBExecutor.
func (r *TransactionRepository) Create(ctx context.Context, q repository.DBExecutor, t *domain.Transaction) error {
	query := `INSERT INTO transactions
		(type, gross_amount, platform_fee_amount, net_amount, currency, status,
		 order_id, trip_id, from_user_id, to_user_id, processed_at, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		t.Type, t.GrossAmount, t.PlatformFeeAmount, t.NetAmount, t.Currency, t.Status,
		t.OrderID, t.TripID, t.FromUserID, t.ToUserID, t.ProcessedAt, t.Metadata, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		if translated := translateInsertErr(err); translated == util.ErrDuplicateEntry {
			return translated
		}
		return fmt.Errorf("failed to create %s transaction: %w", t.Type, err)
	}
	return nil
}

// GetByID retrieves a single transaction.
func (r *TransactionRepository) GetByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Transaction, error) {
	var t domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	if err := q.GetContext(ctx, &t, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return &t, nil
}

// FindByTypeAndOrder finds the transaction of the given type for an order.
func (r *TransactionRepository) FindByTypeAndOrder(ctx context.Context, q repository.DBExecutor, txType domain.TransactionType, orderID int64) (*domain.Transaction, error) {
	var t domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE type = $1 AND order_id = $2
		ORDER BY id LIMIT 1`
	if err := q.GetContext(ctx, &t, query, txType, orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find %s transaction for order %d: %w", txType, orderID, err)
	}
	return &t, nil
}

// FindCommissionForTrip finds the platform commission for a (driver, trip, order) tuple.
func (r *TransactionRepository) FindCommissionForTrip(ctx context.Context, q repository.DBExecutor, driverID, tripID, orderID int64) (*domain.Transaction, error) {
	var t domain.Transaction
	query := `SELECT ` + transactionColumns + ` FROM transactions
		WHERE type = $1 AND to_user_id = $2 AND trip_id = $3 AND order_id = $4
		ORDER BY id LIMIT 1`
	if err := q.GetContext(ctx, &t, query, domain.TransactionTypePlatformCommission, driverID, tripID, orderID); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to find commission for trip %d: %w", tripID, err)
	}
	return &t, nil
}

// MarkProcessed promotes a pending transaction to processed. Rows already in
// a terminal status are left untouched, keeping the transition monotonic.
func (r *TransactionRepository) MarkProcessed(ctx context.Context, q repository.DBExecutor, id int64, at time.Time) error {
	query := `UPDATE transactions SET status = $1, processed_at = $2
		WHERE id = $3 AND status = $4`
	if _, err := q.ExecContext(ctx, query, domain.TransactionStatusProcessed, at, id, domain.TransactionStatusPending); err != nil {
		return fmt.Errorf("failed to mark transaction %d processed: %w", id, err)
	}
	return nil
}
