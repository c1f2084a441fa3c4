// internal/service/payment_service_test.go
package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"driverpay/internal/domain"
	"driverpay/internal/util"
)

func TestApplyCashTripCommission(t *testing.T) {
	driverID := int64(7)
	input := CommissionInput{
		TripID:           101,
		OrderID:          201,
		CommissionAmount: decimal.NewFromFloat(20.00),
		GrossAmount:      decimal.NewFromFloat(100.00),
		Currency:         "usd",
	}

	t.Run("SuccessfulCommission", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.CurrentBalance = decimal.NewFromFloat(100.00)

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.ledger.On("FindCommissionForTrip", ctx, mock.Anything, driverID, input.TripID, input.OrderID).
			Return(nil, util.ErrTransactionNotFound).Once()
		f.ledger.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Run(func(args mock.Arguments) {
				args.Get(2).(*domain.Transaction).ID = 42
			}).Return(nil).Once()
		f.movements.On("GetByTransactionID", ctx, mock.Anything, int64(42)).
			Return(nil, util.ErrNotFound).Once()
		f.movements.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.WalletMovement")).
			Return(nil).Once()
		f.wallets.On("UpdateBalanceLocked", ctx, mock.Anything, wallet.ID, mock.Anything, mock.Anything).
			Return(nil).Once()

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, input)

		require.NoError(t, err)
		assert.False(t, result.AlreadyApplied)
		assert.False(t, result.WalletBlocked)
		assert.Equal(t, int64(42), result.Transaction.ID)
		assert.True(t, result.Movement.Amount.Equal(decimal.NewFromFloat(-20.00)))
		assert.True(t, result.Movement.NewBalance.Equal(decimal.NewFromFloat(80.00)))
		assert.True(t, result.Wallet.CurrentBalance.Equal(decimal.NewFromFloat(80.00)))
		assert.True(t, result.Wallet.TotalEarnedFromTrips.Equal(decimal.NewFromFloat(100.00)))
		assert.True(t, result.Movement.Consistent())

		// Events only after commit: a balance change and a processed transaction.
		require.Len(t, f.publisher.events, 2)
		assert.Equal(t, domain.EventWalletUpdated, f.publisher.events[0].Name)
		assert.Equal(t, domain.EventTransactionProcessed, f.publisher.events[1].Name)

		mock.AssertExpectationsForObjects(t, f.tx, f.wallets, f.ledger, f.movements)
	})

	t.Run("ReplayReturnsExistingState", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.CurrentBalance = decimal.NewFromFloat(80.00)

		existing := domain.NewTransaction(domain.TransactionTypePlatformCommission,
			input.GrossAmount, input.CommissionAmount, "USD", domain.TransactionStatusProcessed)
		existing.ID = 42
		movement := &domain.WalletMovement{ID: 9, WalletID: 1, Amount: decimal.NewFromFloat(-20.00)}

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.ledger.On("FindCommissionForTrip", ctx, mock.Anything, driverID, input.TripID, input.OrderID).
			Return(existing, nil).Once()
		f.movements.On("GetByTransactionID", ctx, mock.Anything, int64(42)).Return(movement, nil).Once()

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, input)

		require.NoError(t, err)
		assert.True(t, result.AlreadyApplied)
		assert.Equal(t, movement, result.Movement)
		assert.Empty(t, f.publisher.events)

		f.wallets.AssertNotCalled(t, "UpdateBalanceLocked", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.movements.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		mock.AssertExpectationsForObjects(t, f.tx, f.wallets, f.ledger, f.movements)
	})

	t.Run("BlockedWalletRejected", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.Status = domain.WalletStatusBlocked

		f.tx.On("Rollback").Return(nil).Once()
		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, input)

		assert.ErrorIs(t, err, util.ErrWalletBlocked)
		assert.Nil(t, result)
		f.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("CurrencyMismatchRejected", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "KES")
		wallet.ID = 1

		f.tx.On("Rollback").Return(nil).Once()
		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, input)

		assert.ErrorIs(t, err, util.ErrCurrencyMismatch)
		assert.Nil(t, result)
	})

	t.Run("ExistingRowWithDifferentAmountConflicts", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.CurrentBalance = decimal.NewFromFloat(100.00)

		existing := domain.NewTransaction(domain.TransactionTypePlatformCommission,
			input.GrossAmount, decimal.NewFromFloat(25.00), "USD", domain.TransactionStatusProcessed)
		existing.ID = 42

		f.tx.On("Rollback").Return(nil).Once()
		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.ledger.On("FindCommissionForTrip", ctx, mock.Anything, driverID, input.TripID, input.OrderID).
			Return(existing, nil).Once()

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, input)

		assert.ErrorIs(t, err, util.ErrAmountMismatch)
		assert.Nil(t, result)
		f.tx.AssertNotCalled(t, "Commit")
	})

	t.Run("NegativeCrossingBlocksWallet", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.CurrentBalance = decimal.NewFromFloat(10.00)

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.ledger.On("FindCommissionForTrip", ctx, mock.Anything, driverID, input.TripID, input.OrderID).
			Return(nil, util.ErrTransactionNotFound).Once()
		f.ledger.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Run(func(args mock.Arguments) {
				args.Get(2).(*domain.Transaction).ID = 43
			}).Return(nil).Once()
		f.movements.On("GetByTransactionID", ctx, mock.Anything, int64(43)).
			Return(nil, util.ErrNotFound).Once()
		f.movements.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.WalletMovement")).
			Return(nil).Once()
		f.wallets.On("UpdateBalanceLocked", ctx, mock.Anything, wallet.ID, mock.Anything, mock.Anything).
			Return(nil).Once()
		f.wallets.On("Block", ctx, mock.Anything, wallet.ID, domain.BlockReasonNegativeBalance, mock.Anything).
			Return(nil).Once()

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, input)

		require.NoError(t, err)
		assert.True(t, result.WalletBlocked)
		assert.Equal(t, domain.WalletStatusBlocked, result.Wallet.Status)
		assert.True(t, result.Movement.NewBalance.Equal(decimal.NewFromFloat(-10.00)))

		require.Len(t, f.publisher.events, 3)
		assert.Equal(t, domain.EventWalletBlocked, f.publisher.events[0].Name)

		mock.AssertExpectationsForObjects(t, f.tx, f.wallets, f.ledger, f.movements)
	})

	t.Run("InvalidAmountRejectedBeforeTransaction", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		bad := input
		bad.CommissionAmount = decimal.NewFromFloat(-5.00)

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, bad)

		assert.ErrorIs(t, err, util.ErrInvalidAmount)
		assert.Nil(t, result)
		f.tx.AssertNotCalled(t, "Commit")
		f.tx.AssertNotCalled(t, "Rollback")
	})

	t.Run("InsertRaceReusesWinnerRow", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.CurrentBalance = decimal.NewFromFloat(100.00)

		winner := domain.NewTransaction(domain.TransactionTypePlatformCommission,
			input.GrossAmount, input.CommissionAmount, "USD", domain.TransactionStatusProcessed)
		winner.ID = 77
		winnerMovement := &domain.WalletMovement{ID: 11, WalletID: 1, Amount: decimal.NewFromFloat(-20.00)}

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.ledger.On("FindCommissionForTrip", ctx, mock.Anything, driverID, input.TripID, input.OrderID).
			Return(nil, util.ErrTransactionNotFound).Once()
		f.ledger.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Return(util.ErrDuplicateEntry).Once()
		f.ledger.On("FindCommissionForTrip", ctx, mock.Anything, driverID, input.TripID, input.OrderID).
			Return(winner, nil).Once()
		f.movements.On("GetByTransactionID", ctx, mock.Anything, int64(77)).Return(winnerMovement, nil).Once()

		result, err := f.service.ApplyCashTripCommission(ctx, driverID, input)

		require.NoError(t, err)
		assert.True(t, result.AlreadyApplied)
		assert.Equal(t, int64(77), result.Transaction.ID)
		mock.AssertExpectationsForObjects(t, f.tx, f.wallets, f.ledger, f.movements)
	})
}
