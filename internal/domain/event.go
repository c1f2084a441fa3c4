// internal/domain/event.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event names emitted after a transactional scope commits.
const (
	EventWalletUpdated        = "wallet.updated"
	EventWalletBlocked        = "wallet.blocked"
	EventWalletUnblocked      = "wallet.unblocked"
	EventTransactionProcessed = "transaction.processed"
)

// Event is a post-commit notification. Delivery is fire-and-forget; an
// emission failure must never roll back the already-committed financial state.
type Event struct {
	Name       string          `json:"name"`
	DriverID   int64           `json:"driver_id"`
	Amount     decimal.Decimal `json:"amount"`
	Balance    decimal.Decimal `json:"balance"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// NewEvent stamps an event with the current UTC time.
func NewEvent(name string, driverID int64, amount, balance decimal.Decimal) Event {
	return Event{
		Name:       name,
		DriverID:   driverID,
		Amount:     amount,
		Balance:    balance,
		OccurredAt: time.Now().UTC(),
	}
}
