// internal/domain/transaction.go
package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// TransactionType defines the business event behind a ledger record.
type TransactionType string

const (
	TransactionTypeCharge              TransactionType = "CHARGE"
	TransactionTypePlatformCommission  TransactionType = "PLATFORM_COMMISSION"
	TransactionTypeWalletTopup         TransactionType = "WALLET_TOPUP"
	TransactionTypePayout              TransactionType = "PAYOUT"
	TransactionTypeBonus               TransactionType = "BONUS"
	TransactionTypePenalty             TransactionType = "PENALTY"
	TransactionTypeRefund              TransactionType = "REFUND"
	TransactionTypePlanPurchase        TransactionType = "PLAN_PURCHASE"
	TransactionTypeCommissionDeduction TransactionType = "COMMISSION_DEDUCTION"
)

// TransactionStatus defines the status of a ledger record.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusProcessed TransactionStatus = "PROCESSED"
	TransactionStatusFailed    TransactionStatus = "FAILED"
	TransactionStatusReversed  TransactionStatus = "REVERSED"
)

// Transaction is the ledger record of a money-moving business event,
// independent of which wallets it touches. A CHARGE and a PLATFORM_COMMISSION
// are each unique per (order, trip, driver) tuple by business rule; callers
// must re-derive existing rows before inserting.
type Transaction struct {
	ID                int64             `db:"id" json:"id"`
	Type              TransactionType   `db:"type" json:"type"`
	GrossAmount       decimal.Decimal   `db:"gross_amount" json:"gross_amount"`
	PlatformFeeAmount decimal.Decimal   `db:"platform_fee_amount" json:"platform_fee_amount"`
	NetAmount         decimal.Decimal   `db:"net_amount" json:"net_amount"`
	Currency          string            `db:"currency" json:"currency"`
	Status            TransactionStatus `db:"status" json:"status"`
	OrderID           *int64            `db:"order_id" json:"order_id,omitempty"`
	TripID            *int64            `db:"trip_id" json:"trip_id,omitempty"`
	FromUserID        *int64            `db:"from_user_id" json:"from_user_id,omitempty"`
	ToUserID          *int64            `db:"to_user_id" json:"to_user_id,omitempty"`
	ProcessedAt       *time.Time        `db:"processed_at" json:"processed_at,omitempty"`
	Metadata          json.RawMessage   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time         `db:"created_at" json:"created_at"`
}

// NewTransaction creates a ledger record in the given status. Amounts are
// rounded to 2 decimals on entry so stored values match the wire contract.
func NewTransaction(txType TransactionType, gross, fee decimal.Decimal, currency string, status TransactionStatus) *Transaction {
	now := time.Now().UTC()
	t := &Transaction{
		Type:              txType,
		GrossAmount:       gross.Round(2),
		PlatformFeeAmount: fee.Round(2),
		NetAmount:         gross.Sub(fee).Round(2),
		Currency:          currency,
		Status:            status,
		CreatedAt:         now,
	}
	if status == TransactionStatusProcessed {
		t.ProcessedAt = &now
	}
	return t
}

// IsTerminal reports whether the status may no longer change.
// Processed and reversed records are never reverted.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusProcessed || t.Status == TransactionStatusReversed
}
