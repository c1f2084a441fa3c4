// internal/domain/movement.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletMovement is one immutable, signed delta applied to a wallet balance.
// At most one movement may reference a given transaction; that uniqueness is
// what makes commission application and top-up confirmation replay-safe.
// NewBalance - PreviousBalance = Amount is a standing invariant.
type WalletMovement struct {
	ID              int64           `db:"id" json:"id"`
	WalletID        int64           `db:"wallet_id" json:"wallet_id"`
	TransactionID   *int64          `db:"transaction_id" json:"transaction_id,omitempty"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	PreviousBalance decimal.Decimal `db:"previous_balance" json:"previous_balance"`
	NewBalance      decimal.Decimal `db:"new_balance" json:"new_balance"`
	Note            *string         `db:"note" json:"note,omitempty"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
}

// NewWalletMovement builds a movement from the locked wallet's current
// balance and a signed amount.
func NewWalletMovement(walletID int64, transactionID *int64, previous, amount decimal.Decimal, note *string) *WalletMovement {
	return &WalletMovement{
		WalletID:        walletID,
		TransactionID:   transactionID,
		Amount:          amount,
		PreviousBalance: previous,
		NewBalance:      previous.Add(amount).Round(2),
		Note:            note,
		CreatedAt:       time.Now().UTC(),
	}
}

// Consistent reports whether the recorded balances agree with the amount.
func (m *WalletMovement) Consistent() bool {
	return m.NewBalance.Sub(m.PreviousBalance).Equal(m.Amount)
}
