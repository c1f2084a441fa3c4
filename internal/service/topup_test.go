// internal/service/topup_test.go
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

func TestCreateCashTopupPending(t *testing.T) {
	driverID := int64(7)
	input := TopupInput{
		CollectionPointID: 3,
		Amount:            decimal.NewFromFloat(50.00),
		Currency:          "USD",
	}

	t.Run("SuccessfulCreate", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.collections.On("IsPointActive", ctx, mock.Anything, input.CollectionPointID).Return(true, nil).Once()
		f.wallets.On("GetByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.ledger.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).
			Run(func(args mock.Arguments) {
				args.Get(2).(*domain.Transaction).ID = 55
			}).Return(nil).Once()
		f.collections.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.CashCollection")).
			Run(func(args mock.Arguments) {
				args.Get(2).(*domain.CashCollection).ID = 8
			}).Return(nil).Once()

		result, err := f.service.CreateCashTopupPending(ctx, driverID, input)

		require.NoError(t, err)
		assert.Equal(t, int64(55), result.Transaction.ID)
		assert.Equal(t, domain.TransactionStatusPending, result.Transaction.Status)
		assert.Equal(t, domain.CollectionStatusPending, result.Collection.Status)
		assert.Equal(t, int64(55), result.Collection.TransactionID)
		mock.AssertExpectationsForObjects(t, f.tx, f.wallets, f.ledger, f.collections)
	})

	t.Run("BlockedWalletMayCreateTopup", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.Status = domain.WalletStatusBlocked
		wallet.CurrentBalance = decimal.NewFromFloat(-15.00)

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.collections.On("IsPointActive", ctx, mock.Anything, input.CollectionPointID).Return(true, nil).Once()
		f.wallets.On("GetByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.ledger.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.Transaction")).Return(nil).Once()
		f.collections.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.CashCollection")).Return(nil).Once()

		_, err := f.service.CreateCashTopupPending(ctx, driverID, input)

		require.NoError(t, err)
	})

	t.Run("InactivePointRejected", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		f.tx.On("Rollback").Return(nil).Once()
		f.collections.On("IsPointActive", ctx, mock.Anything, input.CollectionPointID).Return(false, nil).Once()

		result, err := f.service.CreateCashTopupPending(ctx, driverID, input)

		assert.ErrorIs(t, err, util.ErrCollectionPointInactive)
		assert.Nil(t, result)
		f.ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestConfirmCashTopup(t *testing.T) {
	driverID := int64(7)
	collectorID := int64(99)

	pendingCollection := func() *domain.CashCollection {
		c := domain.NewCashCollection(55, 3, 1, driverID, decimal.NewFromFloat(50.00), "USD")
		c.ID = 8
		return c
	}

	t.Run("SuccessfulConfirmation", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		collection := pendingCollection()
		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.CurrentBalance = decimal.NewFromFloat(10.00)

		processed := domain.NewTransaction(domain.TransactionTypeWalletTopup,
			collection.Amount, decimal.Zero, "USD", domain.TransactionStatusProcessed)
		processed.ID = 55

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.collections.On("LockByID", ctx, mock.Anything, collection.ID).Return(collection, nil).Once()
		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.movements.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.WalletMovement")).Return(nil).Once()
		f.wallets.On("UpdateBalanceLocked", ctx, mock.Anything, wallet.ID, mock.Anything, mock.Anything).Return(nil).Once()
		f.collections.On("Complete", ctx, mock.Anything, collection.ID, collectorID, mock.Anything).Return(nil).Once()
		f.ledger.On("MarkProcessed", ctx, mock.Anything, int64(55), mock.Anything).Return(nil).Once()
		f.ledger.On("GetByID", ctx, mock.Anything, int64(55)).Return(processed, nil).Once()

		result, err := f.service.ConfirmCashTopup(ctx, collection.ID, collectorID)

		require.NoError(t, err)
		assert.False(t, result.AlreadyConfirmed)
		assert.False(t, result.WalletUnblocked)
		assert.Equal(t, domain.CollectionStatusCompleted, result.Collection.Status)
		assert.True(t, result.Wallet.CurrentBalance.Equal(decimal.NewFromFloat(60.00)))
		assert.True(t, result.Movement.Consistent())

		require.Len(t, f.publisher.events, 2)
		assert.Equal(t, domain.EventWalletUpdated, f.publisher.events[0].Name)
		mock.AssertExpectationsForObjects(t, f.tx, f.wallets, f.ledger, f.movements, f.collections)
	})

	t.Run("ReplayOfCompletedCollection", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		collection := pendingCollection()
		collection.Status = domain.CollectionStatusCompleted

		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.CurrentBalance = decimal.NewFromFloat(60.00)

		transaction := domain.NewTransaction(domain.TransactionTypeWalletTopup,
			collection.Amount, decimal.Zero, "USD", domain.TransactionStatusProcessed)
		transaction.ID = 55
		movement := &domain.WalletMovement{ID: 12, WalletID: 1, Amount: collection.Amount}

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.collections.On("LockByID", ctx, mock.Anything, collection.ID).Return(collection, nil).Once()
		f.ledger.On("GetByID", ctx, mock.Anything, int64(55)).Return(transaction, nil).Once()
		f.movements.On("GetByTransactionID", ctx, mock.Anything, int64(55)).Return(movement, nil).Once()
		f.wallets.On("GetByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()

		result, err := f.service.ConfirmCashTopup(ctx, collection.ID, collectorID)

		require.NoError(t, err)
		assert.True(t, result.AlreadyConfirmed)
		assert.Empty(t, f.publisher.events)
		f.wallets.AssertNotCalled(t, "UpdateBalanceLocked", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.collections.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CreditLiftsBlockAtZero", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		collection := pendingCollection()
		wallet := domain.NewWalletAccount(driverID, "USD")
		wallet.ID = 1
		wallet.Status = domain.WalletStatusBlocked
		wallet.CurrentBalance = decimal.NewFromFloat(-50.00)

		f.tx.On("Commit").Return(nil).Once()
		f.tx.On("Rollback").Return(nil).Maybe()

		f.collections.On("LockByID", ctx, mock.Anything, collection.ID).Return(collection, nil).Once()
		f.wallets.On("LockByDriverID", ctx, mock.Anything, driverID).Return(wallet, nil).Once()
		f.movements.On("Create", ctx, mock.Anything, mock.AnythingOfType("*domain.WalletMovement")).Return(nil).Once()
		f.wallets.On("UpdateBalanceLocked", ctx, mock.Anything, wallet.ID, mock.Anything, mock.Anything).Return(nil).Once()
		f.collections.On("Complete", ctx, mock.Anything, collection.ID, collectorID, mock.Anything).Return(nil).Once()
		f.ledger.On("MarkProcessed", ctx, mock.Anything, int64(55), mock.Anything).Return(nil).Once()
		f.wallets.On("Unblock", ctx, mock.Anything, wallet.ID, &collectorID, mock.Anything).Return(nil).Once()
		f.ledger.On("GetByID", ctx, mock.Anything, int64(55)).
			Return(domain.NewTransaction(domain.TransactionTypeWalletTopup, collection.Amount, decimal.Zero, "USD", domain.TransactionStatusProcessed), nil).Once()

		result, err := f.service.ConfirmCashTopup(ctx, collection.ID, collectorID)

		require.NoError(t, err)
		assert.True(t, result.WalletUnblocked)
		assert.Equal(t, domain.WalletStatusActive, result.Wallet.Status)
		assert.True(t, result.Wallet.CurrentBalance.Equal(decimal.Zero))

		require.Len(t, f.publisher.events, 3)
		assert.Equal(t, domain.EventWalletUnblocked, f.publisher.events[0].Name)
		mock.AssertExpectationsForObjects(t, f.tx, f.wallets, f.ledger, f.movements, f.collections)
	})

	t.Run("CancelledCollectionRejected", func(t *testing.T) {
		ctx := context.Background()
		f := newPaymentFixture()

		collection := pendingCollection()
		collection.Status = domain.CollectionStatusCancelled

		f.tx.On("Rollback").Return(nil).Once()
		f.collections.On("LockByID", ctx, mock.Anything, collection.ID).Return(collection, nil).Once()

		result, err := f.service.ConfirmCashTopup(ctx, collection.ID, collectorID)

		assert.ErrorIs(t, err, util.ErrCollectionNotPending)
		assert.Nil(t, result)
	})
}
