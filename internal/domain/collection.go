// internal/domain/collection.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CollectionStatus is the lifecycle of a cash hand-over at a collection point.
type CollectionStatus string

const (
	CollectionStatusPending   CollectionStatus = "PENDING"
	CollectionStatusCompleted CollectionStatus = "COMPLETED"
	CollectionStatusCancelled CollectionStatus = "CANCELLED"
)

// CashCollection records a driver bringing cash to a collection point to top
// up their wallet. One collection per topup transaction; confirmation is
// idempotent on the record's status.
type CashCollection struct {
	ID                int64            `db:"id" json:"id"`
	TransactionID     int64            `db:"transaction_id" json:"transaction_id"` // Unique
	CollectionPointID int64            `db:"collection_point_id" json:"collection_point_id"`
	WalletID          int64            `db:"wallet_id" json:"wallet_id"`
	DriverID          int64            `db:"driver_id" json:"driver_id"`
	Amount            decimal.Decimal  `db:"amount" json:"amount"`
	Currency          string           `db:"currency" json:"currency"`
	Status            CollectionStatus `db:"status" json:"status"`
	CollectedBy       *int64           `db:"collected_by" json:"collected_by,omitempty"`
	CompletedAt       *time.Time       `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}

// NewCashCollection creates a pending collection tied to a topup transaction.
func NewCashCollection(transactionID, pointID, walletID, driverID int64, amount decimal.Decimal, currency string) *CashCollection {
	return &CashCollection{
		TransactionID:     transactionID,
		CollectionPointID: pointID,
		WalletID:          walletID,
		DriverID:          driverID,
		Amount:            amount.Round(2),
		Currency:          currency,
		Status:            CollectionStatusPending,
		CreatedAt:         time.Now().UTC(),
	}
}
