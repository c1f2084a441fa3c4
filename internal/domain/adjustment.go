// internal/domain/adjustment.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionAdjustment is a post-facto, sequenced correction to a previously
// charged platform fee. One row per accepted request, unique on
// (order, adjustment_seq). Zero-delta requests are persisted too so that a
// replay with the same sequence token is recognized as already applied.
type CommissionAdjustment struct {
	ID            int64           `db:"id" json:"id"`
	OrderID       int64           `db:"order_id" json:"order_id"`
	AdjustmentSeq string          `db:"adjustment_seq" json:"adjustment_seq"`
	TransactionID *int64          `db:"transaction_id" json:"transaction_id,omitempty"` // nil for zero-delta records
	DeltaFee      decimal.Decimal `db:"delta_fee" json:"delta_fee"`
	OriginalFee   decimal.Decimal `db:"original_fee" json:"original_fee"`
	NewFee        decimal.Decimal `db:"new_fee" json:"new_fee"`
	Reason        string          `db:"reason" json:"reason"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// NewCommissionAdjustment snapshots the fee before and after the correction.
func NewCommissionAdjustment(orderID int64, seq string, delta, originalFee decimal.Decimal, reason string) *CommissionAdjustment {
	return &CommissionAdjustment{
		OrderID:       orderID,
		AdjustmentSeq: seq,
		DeltaFee:      delta.Round(2),
		OriginalFee:   originalFee.Round(2),
		NewFee:        originalFee.Add(delta).Round(2),
		Reason:        reason,
		CreatedAt:     time.Now().UTC(),
	}
}

// IsNoOp reports whether the correction carries no monetary change.
func (a *CommissionAdjustment) IsNoOp() bool {
	return a.DeltaFee.IsZero()
}
