// internal/repository/postgres/order_pg.go
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

const orderColumns = `id, trip_id, driver_id, status, payment_method, paid_amount, currency, paid_at, created_at, updated_at`

// OrderRepository implements repository.OrderRepository for PostgreSQL.
type OrderRepository struct{}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(db *sqlx.DB) repository.OrderRepository {
	return &OrderRepository{}
}

// GetByID retrieves an order without locking it.
func (r *OrderRepository) GetByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	var o domain.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if err := q.GetContext(ctx, &o, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return &o, nil
}

// LockByID acquires an exclusive row lock on the order.
func (r *OrderRepository) LockByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	var o domain.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	if err := q.GetContext(ctx, &o, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", id, err)
	}
	return &o, nil
}

// SetStatus moves the order to the given status. A revert to pending also
// clears paid_at, restoring the pre-paid shape of the row.
func (r *OrderRepository) SetStatus(ctx context.Context, q repository.DBExecutor, id int64, status domain.OrderStatus) error {
	var query string
	if status == domain.OrderStatusPending {
		query = `UPDATE orders SET status = $1, paid_at = NULL, updated_at = $2 WHERE id = $3`
	} else {
		query = `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`
	}
	result, err := q.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set order %d status to %s: %w", id, status, err)
	}
	return requireOneRow(result, util.ErrOrderNotFound)
}
