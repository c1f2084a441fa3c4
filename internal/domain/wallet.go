// internal/domain/wallet.go
package domain

import (
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations
)

// WalletStatus defines the lifecycle state of a driver wallet.
type WalletStatus string

const (
	WalletStatusActive  WalletStatus = "ACTIVE"
	WalletStatusBlocked WalletStatus = "BLOCKED"
)

// BlockReasonNegativeBalance is set when a commission debit pushes the
// balance below zero.
const BlockReasonNegativeBalance = "negative_balance_on_commission"

// WalletAccount is a driver's running cash balance held by the platform.
// There is exactly one wallet per driver. The current balance must always
// equal the running sum of all WalletMovement amounts for the account;
// mutations happen only while the row is exclusively locked.
type WalletAccount struct {
	ID                   int64           `db:"id" json:"id"`
	DriverID             int64           `db:"driver_id" json:"driver_id"` // Unique per driver
	CurrentBalance       decimal.Decimal `db:"current_balance" json:"current_balance"`
	HeldBalance          decimal.Decimal `db:"held_balance" json:"held_balance"`
	TotalEarnedFromTrips decimal.Decimal `db:"total_earned_from_trips" json:"total_earned_from_trips"`
	Currency             string          `db:"currency" json:"currency"`
	Status               WalletStatus    `db:"status" json:"status"`
	BlockedAt            *time.Time      `db:"blocked_at" json:"blocked_at,omitempty"`
	BlockedReason        *string         `db:"blocked_reason" json:"blocked_reason,omitempty"`
	UnblockedAt          *time.Time      `db:"unblocked_at" json:"unblocked_at,omitempty"`
	UnblockedBy          *int64          `db:"unblocked_by" json:"unblocked_by,omitempty"`
	MinPayoutThreshold   decimal.Decimal `db:"min_payout_threshold" json:"min_payout_threshold"`
	// AllowedNegativeLimit exists for product experimentation; no code path
	// enforces it today. Any crossing below zero blocks the wallet.
	AllowedNegativeLimit decimal.Decimal `db:"allowed_negative_limit" json:"allowed_negative_limit"`
	Version              int64           `db:"version" json:"version"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// NewWalletAccount creates a fresh wallet for driver onboarding: zero
// balances, active status.
func NewWalletAccount(driverID int64, currency string) *WalletAccount {
	now := time.Now().UTC()
	return &WalletAccount{
		DriverID:             driverID,
		CurrentBalance:       decimal.Zero,
		HeldBalance:          decimal.Zero,
		TotalEarnedFromTrips: decimal.Zero,
		Currency:             currency,
		Status:               WalletStatusActive,
		MinPayoutThreshold:   decimal.Zero,
		AllowedNegativeLimit: decimal.Zero,
		Version:              1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// IsBlocked reports whether the wallet currently rejects commission debits.
func (w *WalletAccount) IsBlocked() bool {
	return w.Status == WalletStatusBlocked
}

// CrossesBelowZero reports whether moving from the current balance to
// newBalance crosses from non-negative into negative territory. Only this
// transition triggers an automatic block; a wallet that is already negative
// stays in its current state.
func (w *WalletAccount) CrossesBelowZero(newBalance decimal.Decimal) bool {
	return w.CurrentBalance.GreaterThanOrEqual(decimal.Zero) && newBalance.IsNegative()
}
