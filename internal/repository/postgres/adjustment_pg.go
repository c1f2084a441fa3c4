// internal/repository/postgres/adjustment_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
)

const adjustmentColumns = `id, order_id, adjustment_seq, transaction_id, delta_fee, original_fee, new_fee, reason, created_at`

// AdjustmentRepository implements repository.AdjustmentRepository for PostgreSQL.
type AdjustmentRepository struct{}

// NewAdjustmentRepository creates a new AdjustmentRepository.
func NewAdjustmentRepository(db *sqlx.DB) repository.AdjustmentRepository {
	return &AdjustmentRepository{}
}

// Create inserts an adjustment row; the (order_id, adjustment_seq) unique
// constraint resolves concurrent identical requests.
func (r *AdjustmentRepository) Create(ctx context.Context, q repository.DBExecutor, a *domain.CommissionAdjustment) error {
	query := `INSERT INTO commission_adjustments
		(order_id, adjustment_seq, transaction_id, delta_fee, original_fee, new_fee, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		a.OrderID, a.AdjustmentSeq, a.TransactionID, a.DeltaFee, a.OriginalFee, a.NewFee, a.Reason, a.CreatedAt,
	).Scan(&a.ID)
	if err != nil {
		if translated := translateInsertErr(err); translated == util.ErrDuplicateEntry {
			return translated
		}
		return fmt.Errorf("failed to create adjustment for order %d seq %s: %w", a.OrderID, a.AdjustmentSeq, err)
	}
	return nil
}

// GetByOrderAndSeq retrieves an adjustment by its idempotency key.
func (r *AdjustmentRepository) GetByOrderAndSeq(ctx context.Context, q repository.DBExecutor, orderID int64, seq string) (*domain.CommissionAdjustment, error) {
	var a domain.CommissionAdjustment
	query := `SELECT ` + adjustmentColumns + ` FROM commission_adjustments
		WHERE order_id = $1 AND adjustment_seq = $2`
	if err := q.GetContext(ctx, &a, query, orderID, seq); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get adjustment for order %d seq %s: %w", orderID, seq, err)
	}
	return &a, nil
}

// ListByOrder returns all adjustments for an order, oldest first.
func (r *AdjustmentRepository) ListByOrder(ctx context.Context, q repository.DBExecutor, orderID int64) ([]domain.CommissionAdjustment, error) {
	adjustments := []domain.CommissionAdjustment{}
	query := `SELECT ` + adjustmentColumns + ` FROM commission_adjustments
		WHERE order_id = $1 ORDER BY created_at, id`
	if err := q.SelectContext(ctx, &adjustments, query, orderID); err != nil {
		return nil, fmt.Errorf("failed to list adjustments for order %d: %w", orderID, err)
	}
	return adjustments, nil
}
