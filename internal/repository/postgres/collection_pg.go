// internal/repository/postgres/collection_pg.go
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

const collectionColumns = `id, transaction_id, collection_point_id, wallet_id, driver_id,
	amount, currency, status, collected_by, completed_at, created_at`

// CollectionRepository implements repository.CollectionRepository for PostgreSQL.
type CollectionRepository struct{}

// NewCollectionRepository creates a new CollectionRepository.
func NewCollectionRepository(db *sqlx.DB) repository.CollectionRepository {
	return &CollectionRepository{}
}

// Create inserts a pending collection tied to a topup transaction.
func (r *CollectionRepository) Create(ctx context.Context, q repository.DBExecutor, c *domain.CashCollection) error {
	query := `INSERT INTO cash_collections
		(transaction_id, collection_point_id, wallet_id, driver_id, amount, currency, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		c.TransactionID, c.CollectionPointID, c.WalletID, c.DriverID, c.Amount, c.Currency, c.Status, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		if translated := translateInsertErr(err); translated == util.ErrDuplicateEntry {
			return translated
		}
		return fmt.Errorf("failed to create cash collection for transaction %d: %w", c.TransactionID, err)
	}
	return nil
}

// LockByID acquires an exclusive row lock on the collection record.
func (r *CollectionRepository) LockByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.CashCollection, error) {
	var c domain.CashCollection
	query := `SELECT ` + collectionColumns + ` FROM cash_collections WHERE id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &c, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to lock cash collection %d: %w", id, err)
	}
	return &c, nil
}

// Complete marks the collection completed.
func (r *CollectionRepository) Complete(ctx context.Context, q repository.DBExecutor, id int64, collectedBy int64, at time.Time) error {
	query := `UPDATE cash_collections
		SET status = $1, collected_by = $2, completed_at = $3
		WHERE id = $4 AND status = $5`
	result, err := q.ExecContext(ctx, query, domain.CollectionStatusCompleted, collectedBy, at, id, domain.CollectionStatusPending)
	if err != nil {
		return fmt.Errorf("failed to complete cash collection %d: %w", id, err)
	}
	return requireOneRow(result, util.ErrCollectionNotPending)
}

// IsPointActive reports whether a collection point currently accepts cash.
func (r *CollectionRepository) IsPointActive(ctx context.Context, q repository.DBExecutor, pointID int64) (bool, error) {
	var active bool
	if err := q.GetContext(ctx, &active, `SELECT active FROM collection_points WHERE id = $1`, pointID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check collection point %d: %w", pointID, err)
	}
	return active, nil
}

// CreateRefundNote records an off-platform refund note for finance.
func (r *CollectionRepository) CreateRefundNote(ctx context.Context, q repository.DBExecutor, pointID, orderID int64, amount decimal.Decimal, note string) error {
	query := `INSERT INTO refund_notes (collection_point_id, order_id, amount, note, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := q.ExecContext(ctx, query, pointID, orderID, amount.Round(2), note, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create refund note for order %d: %w", orderID, err)
	}
	return nil
}
