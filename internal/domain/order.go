// internal/domain/order.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the slice of the trip/order lifecycle this module cares
// about. The full state machine lives in the order service; payments only
// need to know whether an order is paid and how refunds terminate it.
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusPaid     OrderStatus = "PAID"
	OrderStatusRefunded OrderStatus = "REFUNDED"
)

// PaymentMethod describes how the rider settled the order.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

// Order is the payment-relevant projection of a trip order.
type Order struct {
	ID            int64           `db:"id" json:"id"`
	TripID        int64           `db:"trip_id" json:"trip_id"`
	DriverID      int64           `db:"driver_id" json:"driver_id"`
	Status        OrderStatus     `db:"status" json:"status"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	PaidAmount    decimal.Decimal `db:"paid_amount" json:"paid_amount"`
	Currency      string          `db:"currency" json:"currency"`
	PaidAt        *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// IsPaid reports whether refund and adjustment flows may run on the order.
func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// WithinPolicyWindow reports whether the immediate-refund path is still
// permitted at the given time.
func (o *Order) WithinPolicyWindow(now time.Time, window time.Duration) bool {
	if o.PaidAt == nil {
		return false
	}
	return now.Sub(*o.PaidAt) <= window
}
