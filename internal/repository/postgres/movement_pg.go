// internal/repository/postgres/movement_pg.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
)

const movementColumns = `id, wallet_id, transaction_id, amount, previous_balance, new_balance, note, created_at`

// MovementRepository implements repository.MovementRepository for PostgreSQL.
type MovementRepository struct{}

// NewMovementRepository creates a new MovementRepository.
func NewMovementRepository(db *sqlx.DB) repository.MovementRepository {
	return &MovementRepository{}
}

// Create appends a movement to the log. The unique constraint on
// transaction_id is what makes per-transaction application replay-safe.
func (r *MovementRepository) Create(ctx context.Context, q repository.DBExecutor, m *domain.WalletMovement) error {
	query := `INSERT INTO wallet_movements
		(wallet_id, transaction_id, amount, previous_balance, new_balance, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := q.QueryRowContext(ctx, query,
		m.WalletID, m.TransactionID, m.Amount, m.PreviousBalance, m.NewBalance, m.Note, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		if translated := translateInsertErr(err); translated == util.ErrDuplicateEntry {
			return translated
		}
		return fmt.Errorf("failed to create movement for wallet %d: %w", m.WalletID, err)
	}
	return nil
}

// GetByTransactionID returns the movement backing a transaction.
func (r *MovementRepository) GetByTransactionID(ctx context.Context, q repository.DBExecutor, transactionID int64) (*domain.WalletMovement, error) {
	var m domain.WalletMovement
	query := `SELECT ` + movementColumns + ` FROM wallet_movements WHERE transaction_id = $1`
	if err := q.GetContext(ctx, &m, query, transactionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get movement for transaction %d: %w", transactionID, err)
	}
	return &m, nil
}

// ListByWalletID returns a page of movements, newest first, plus the total count.
func (r *MovementRepository) ListByWalletID(ctx context.Context, q repository.DBExecutor, walletID int64, limit, offset int) ([]domain.WalletMovement, int64, error) {
	movements := []domain.WalletMovement{}
	query := `SELECT ` + movementColumns + `
		FROM wallet_movements
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	if err := q.SelectContext(ctx, &movements, query, walletID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list movements for wallet %d: %w", walletID, err)
	}

	var totalCount int64
	countQuery := `SELECT COUNT(*) FROM wallet_movements WHERE wallet_id = $1`
	if err := q.GetContext(ctx, &totalCount, countQuery, walletID); err != nil {
		return nil, 0, fmt.Errorf("failed to count movements for wallet %d: %w", walletID, err)
	}
	return movements, totalCount, nil
}

// SumByWalletID returns the running sum of all movement amounts.
func (r *MovementRepository) SumByWalletID(ctx context.Context, q repository.DBExecutor, walletID int64) (decimal.Decimal, error) {
	var sum decimal.Decimal
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_movements WHERE wallet_id = $1`
	if err := q.GetContext(ctx, &sum, query, walletID); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum movements for wallet %d: %w", walletID, err)
	}
	return sum, nil
}
