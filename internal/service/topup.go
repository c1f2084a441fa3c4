// internal/service/topup.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
	"driverpay/internal/util"
)

// CreateCashTopupPending registers a driver's intent to bring cash to a
// collection point: a PENDING topup transaction plus a pending collection
// record. No balance changes here; the credit happens on confirmation.
// Blocked wallets may create top-ups; paying in cash is the designed way
// out of a negative-balance block.
func (s *PaymentService) CreateCashTopupPending(ctx context.Context, driverID int64, input TopupInput) (*TopupResult, error) {
	if input.CollectionPointID == 0 {
		return nil, util.ErrMissingReference
	}
	if !domain.ValidAmount(input.Amount) {
		return nil, util.ErrInvalidAmount
	}
	currency, ok := domain.NormalizeCurrency(input.Currency)
	if !ok {
		return nil, util.ErrInvalidInput
	}

	txController, q, err := s.txExecutor(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	active, err := s.collections.IsPointActive(ctx, q, input.CollectionPointID)
	if err != nil {
		return nil, fmt.Errorf("create topup: %w", err)
	}
	if !active {
		return nil, util.ErrCollectionPointInactive
	}

	wallet, err := s.wallets.GetByDriverID(ctx, q, driverID)
	if err != nil {
		return nil, fmt.Errorf("create topup: %w", err)
	}
	if wallet.Currency != currency {
		return nil, util.ErrCurrencyMismatch
	}

	transaction := domain.NewTransaction(domain.TransactionTypeWalletTopup, input.Amount, decimal.Zero, currency, domain.TransactionStatusPending)
	transaction.ToUserID = &driverID
	if err := s.ledger.Create(ctx, q, transaction); err != nil {
		return nil, fmt.Errorf("create topup: insert transaction: %w", err)
	}

	collection := domain.NewCashCollection(transaction.ID, input.CollectionPointID, wallet.ID, driverID, input.Amount, currency)
	if err := s.collections.Create(ctx, q, collection); err != nil {
		return nil, fmt.Errorf("create topup: insert collection: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	return &TopupResult{
		Collection:  collection,
		Transaction: transaction,
		Wallet:      wallet,
	}, nil
}

// ConfirmCashTopup credits the wallet once an operator at the collection
// point has counted the cash. Confirming an already-completed collection is a
// harmless replay returning the stored state. A credit that lifts a blocked
// wallet back to a non-negative balance unblocks it, attributed to the
// confirming operator.
func (s *PaymentService) ConfirmCashTopup(ctx context.Context, collectionID, collectorID int64) (*TopupResult, error) {
	if collectionID == 0 || collectorID == 0 {
		return nil, util.ErrMissingReference
	}

	ob := newOutbox()
	txController, q, err := s.txExecutor(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	collection, err := s.collections.LockByID(ctx, q, collectionID)
	if err != nil {
		return nil, fmt.Errorf("confirm topup: %w", err)
	}

	switch collection.Status {
	case domain.CollectionStatusCompleted:
		transaction, getErr := s.ledger.GetByID(ctx, q, collection.TransactionID)
		if getErr != nil {
			return nil, fmt.Errorf("confirm topup: %w", getErr)
		}
		movement, getErr := s.movements.GetByTransactionID(ctx, q, collection.TransactionID)
		if getErr != nil {
			return nil, fmt.Errorf("confirm topup: %w", getErr)
		}
		wallet, getErr := s.wallets.GetByDriverID(ctx, q, collection.DriverID)
		if getErr != nil {
			return nil, fmt.Errorf("confirm topup: %w", getErr)
		}
		if commitErr := s.commitTx(txController); commitErr != nil {
			return nil, commitErr
		}
		return &TopupResult{
			Collection:       collection,
			Transaction:      transaction,
			Wallet:           wallet,
			Movement:         movement,
			AlreadyConfirmed: true,
		}, nil
	case domain.CollectionStatusCancelled:
		return nil, util.ErrCollectionNotPending
	}

	wallet, err := s.wallets.LockByDriverID(ctx, q, collection.DriverID)
	if err != nil {
		return nil, fmt.Errorf("confirm topup: %w", err)
	}

	note := fmt.Sprintf("cash topup at collection point %d", collection.CollectionPointID)
	movement := domain.NewWalletMovement(wallet.ID, &collection.TransactionID, wallet.CurrentBalance, collection.Amount, &note)
	if err := s.movements.Create(ctx, q, movement); err != nil {
		return nil, fmt.Errorf("confirm topup: create movement: %w", err)
	}
	if err := s.wallets.UpdateBalanceLocked(ctx, q, wallet.ID, movement.NewBalance, decimal.Zero); err != nil {
		return nil, fmt.Errorf("confirm topup: update balance: %w", err)
	}

	now := time.Now().UTC()
	if err := s.collections.Complete(ctx, q, collection.ID, collectorID, now); err != nil {
		return nil, fmt.Errorf("confirm topup: %w", err)
	}
	if err := s.ledger.MarkProcessed(ctx, q, collection.TransactionID, now); err != nil {
		return nil, fmt.Errorf("confirm topup: %w", err)
	}

	unblocked := false
	if wallet.IsBlocked() && !movement.NewBalance.IsNegative() {
		if err := s.wallets.Unblock(ctx, q, wallet.ID, &collectorID, now); err != nil {
			return nil, fmt.Errorf("confirm topup: unblock wallet: %w", err)
		}
		unblocked = true
		ob.add(domain.NewEvent(domain.EventWalletUnblocked, collection.DriverID, collection.Amount, movement.NewBalance))
	}

	ob.add(domain.NewEvent(domain.EventWalletUpdated, collection.DriverID, collection.Amount, movement.NewBalance))
	ob.add(domain.NewEvent(domain.EventTransactionProcessed, collection.DriverID, collection.Amount, movement.NewBalance))

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	ob.flush(s.publisher, s.logger)

	collection.Status = domain.CollectionStatusCompleted
	collection.CollectedBy = &collectorID
	collection.CompletedAt = &now
	wallet.CurrentBalance = movement.NewBalance
	if unblocked {
		wallet.Status = domain.WalletStatusActive
		wallet.UnblockedAt = &now
		wallet.UnblockedBy = &collectorID
	}

	transaction, err := s.ledger.GetByID(ctx, s.dbExecutor, collection.TransactionID)
	if err != nil {
		// The credit committed; the read-back is cosmetic.
		s.logger.Warn("topup confirmed but transaction read-back failed", "transaction_id", collection.TransactionID, "error", err)
	}
	return &TopupResult{
		Collection:      collection,
		Transaction:     transaction,
		Wallet:          wallet,
		Movement:        movement,
		WalletUnblocked: unblocked,
	}, nil
}
