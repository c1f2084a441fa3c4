// internal/service/types.go
package service

import (
	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
)

// CommissionInput carries the parameters for applying a cash-trip commission
// on trip closure.
type CommissionInput struct {
	TripID           int64
	OrderID          int64
	CommissionAmount decimal.Decimal
	// GrossAmount, when positive, is added to the wallet's lifetime trip
	// earnings alongside the commission debit.
	GrossAmount decimal.Decimal
	Currency    string
	Note        string
}

// CommissionResult is what a commission application (or its replay) returns.
type CommissionResult struct {
	Wallet      *domain.WalletAccount
	Transaction *domain.Transaction
	Movement    *domain.WalletMovement
	// AlreadyApplied is true when a movement for this commission already
	// existed and no balance was touched.
	AlreadyApplied bool
	// WalletBlocked is true when this application pushed the balance below
	// zero and blocked the wallet.
	WalletBlocked bool
}

// TopupInput carries the parameters for creating a pending cash top-up.
type TopupInput struct {
	CollectionPointID int64
	Amount            decimal.Decimal
	Currency          string
}

// TopupResult is the outcome of the create or confirm phase of a top-up.
type TopupResult struct {
	Collection  *domain.CashCollection
	Transaction *domain.Transaction
	Wallet      *domain.WalletAccount
	Movement    *domain.WalletMovement
	// AlreadyConfirmed is true when the collection was completed earlier and
	// the stored movement is returned unchanged.
	AlreadyConfirmed bool
	// WalletUnblocked is true when the credit lifted a blocked wallet back to
	// a non-negative balance.
	WalletUnblocked bool
}

// ImmediateRefundInput parameterizes the in-window "undo" refund path. The
// policy window itself is service configuration, not caller input.
type ImmediateRefundInput struct {
	AdminID int64
	Reason  string
}

// NormalRefundInput parameterizes the off-platform refund path.
type NormalRefundInput struct {
	AdminID           int64
	CollectionPointID int64
	// Amount defaults to the full paid amount when zero.
	Amount decimal.Decimal
	Reason string
}

// RefundResult is what either refund path returns.
type RefundResult struct {
	Refund           *domain.Transaction
	CommissionRevert *domain.Transaction
	RevertMovement   *domain.WalletMovement
	// AlreadyRefunded is true when a refund transaction existed and nothing
	// was mutated.
	AlreadyRefunded bool
	// UseNormalFlow is true when the immediate path was requested outside the
	// policy window; the caller should retry through the normal path.
	UseNormalFlow bool
}

// AdjustmentInput parameterizes a post-facto commission correction. Exactly
// one of DeltaFee or NewFee must be set.
type AdjustmentInput struct {
	AdjustmentSeq string
	DeltaFee      *decimal.Decimal
	NewFee        *decimal.Decimal
	Reason        string
	// MaxAbsDelta, when set, rejects corrections whose magnitude exceeds it.
	MaxAbsDelta *decimal.Decimal
}

// AdjustmentResult is what an adjustment (or its replay) returns.
type AdjustmentResult struct {
	Adjustment  *domain.CommissionAdjustment
	Transaction *domain.Transaction
	Movement    *domain.WalletMovement
	Wallet      *domain.WalletAccount
	// AlreadyExisted is true when the (order, seq) pair was seen before and
	// the stored adjustment is returned unchanged.
	AlreadyExisted bool
	// NoOp is true when the delta rounded to zero and only the adjustment
	// record was persisted.
	NoOp bool
}

// StatusChangeResult reports an idempotent manual block/unblock.
type StatusChangeResult struct {
	Wallet *domain.WalletAccount
	// Changed is false when the wallet was already in the requested status
	// and no timestamps were touched.
	Changed bool
}

func decimalZeroIfNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d.Round(2)
}
