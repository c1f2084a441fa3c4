// internal/domain/money_test.go
package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidAmount(t *testing.T) {
	assert.True(t, ValidAmount(decimal.NewFromFloat(0.01)))
	assert.True(t, ValidAmount(decimal.NewFromFloat(20.50)))
	assert.False(t, ValidAmount(decimal.Zero))
	assert.False(t, ValidAmount(decimal.NewFromFloat(-5)))
	// More than two decimal places never round silently.
	assert.False(t, ValidAmount(decimal.RequireFromString("10.005")))
}

func TestNormalizeCurrency(t *testing.T) {
	c, ok := NormalizeCurrency(" usd ")
	assert.True(t, ok)
	assert.Equal(t, "USD", c)

	_, ok = NormalizeCurrency("")
	assert.False(t, ok)
	_, ok = NormalizeCurrency("DOLLARS")
	assert.False(t, ok)
}

func TestNewTransactionRounding(t *testing.T) {
	tr := NewTransaction(TransactionTypePlatformCommission,
		decimal.RequireFromString("100.004"), decimal.RequireFromString("20.004"),
		"USD", TransactionStatusProcessed)

	assert.True(t, tr.GrossAmount.Equal(decimal.NewFromFloat(100.00)))
	assert.True(t, tr.PlatformFeeAmount.Equal(decimal.NewFromFloat(20.00)))
	assert.True(t, tr.NetAmount.Equal(decimal.NewFromFloat(80.00)))
	assert.NotNil(t, tr.ProcessedAt)
	assert.True(t, tr.IsTerminal())

	pending := NewTransaction(TransactionTypeWalletTopup,
		decimal.NewFromFloat(50), decimal.Zero, "USD", TransactionStatusPending)
	assert.Nil(t, pending.ProcessedAt)
	assert.False(t, pending.IsTerminal())
}

func TestCommissionAdjustmentNoOp(t *testing.T) {
	a := NewCommissionAdjustment(201, "adj-1", decimal.Zero, decimal.NewFromFloat(20.00), "audit")
	assert.True(t, a.IsNoOp())
	assert.True(t, a.NewFee.Equal(decimal.NewFromFloat(20.00)))

	b := NewCommissionAdjustment(201, "adj-2", decimal.NewFromFloat(-5.00), decimal.NewFromFloat(20.00), "promo")
	assert.False(t, b.IsNoOp())
	assert.True(t, b.NewFee.Equal(decimal.NewFromFloat(15.00)))
}

func TestOrderPolicyWindow(t *testing.T) {
	now := time.Now().UTC()
	paidAt := now.Add(-10 * time.Minute)
	order := &Order{Status: OrderStatusPaid, PaidAt: &paidAt}

	assert.True(t, order.WithinPolicyWindow(now, 15*time.Minute))
	assert.False(t, order.WithinPolicyWindow(now, 5*time.Minute))

	order.PaidAt = nil
	assert.False(t, order.WithinPolicyWindow(now, 15*time.Minute))
}
