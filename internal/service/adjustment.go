// internal/service/adjustment.go
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
	"driverpay/pkg/db"
)

// AdjustCommission applies a sequenced, post-facto correction to the
// commission charged for an order. A positive delta debits the driver
// further (PENALTY), a negative one credits back (BONUS). The whole scope
// runs serializable: the effective fee is derived from the commission record
// plus every prior adjustment, and two racing corrections must not both read
// the same baseline.
func (s *PaymentService) AdjustCommission(ctx context.Context, orderID int64, input AdjustmentInput) (*AdjustmentResult, error) {
	if orderID == 0 || input.AdjustmentSeq == "" {
		return nil, util.ErrMissingReference
	}
	if (input.DeltaFee == nil) == (input.NewFee == nil) {
		return nil, util.ErrInvalidInput
	}

	ob := newOutbox()
	txController, q, err := s.txExecutor(ctx, db.Serializable())
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	order, err := s.orders.LockByID(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("adjust commission: %w", err)
	}

	if existing, err := s.adjustments.GetByOrderAndSeq(ctx, q, orderID, input.AdjustmentSeq); err == nil {
		result, replayErr := s.replayAdjustment(ctx, q, existing)
		if replayErr != nil {
			return nil, replayErr
		}
		if commitErr := s.commitTx(txController); commitErr != nil {
			return nil, commitErr
		}
		return result, nil
	} else if !util.IsError(err, util.ErrNotFound) {
		return nil, fmt.Errorf("adjust commission: replay lookup: %w", err)
	}

	if !order.IsPaid() {
		return nil, util.ErrOrderNotPaid
	}

	effectiveFee, err := s.effectiveCommissionFee(ctx, q, orderID)
	if err != nil {
		return nil, err
	}

	var delta decimal.Decimal
	if input.DeltaFee != nil {
		delta = input.DeltaFee.Round(2)
	} else {
		delta = input.NewFee.Round(2).Sub(effectiveFee)
	}
	if input.MaxAbsDelta != nil && delta.Abs().GreaterThan(*input.MaxAbsDelta) {
		return nil, util.ErrDeltaExceedsLimit
	}

	adjustment := domain.NewCommissionAdjustment(orderID, input.AdjustmentSeq, delta, effectiveFee, input.Reason)

	if adjustment.IsNoOp() {
		// Persist the record anyway so the sequence token is spent and a
		// replay is recognized.
		if err := s.adjustments.Create(ctx, q, adjustment); err != nil {
			return s.settleAdjustmentRace(ctx, txController, orderID, input.AdjustmentSeq, err)
		}
		if err := s.commitTx(txController); err != nil {
			return nil, err
		}
		return &AdjustmentResult{Adjustment: adjustment, NoOp: true}, nil
	}

	wallet, err := s.wallets.LockByDriverID(ctx, q, order.DriverID)
	if err != nil {
		return nil, fmt.Errorf("adjust commission: %w", err)
	}
	if delta.IsPositive() && wallet.IsBlocked() {
		// Extra debits against a blocked wallet would dig the hole deeper;
		// credits are always welcome.
		return nil, util.ErrWalletBlocked
	}
	if wallet.Currency != order.Currency {
		return nil, util.ErrCurrencyMismatch
	}

	txType := domain.TransactionTypePenalty
	if delta.IsNegative() {
		txType = domain.TransactionTypeBonus
	}
	transaction := domain.NewTransaction(txType, delta.Abs(), decimal.Zero, order.Currency, domain.TransactionStatusProcessed)
	transaction.OrderID = &orderID
	transaction.TripID = &order.TripID
	transaction.ToUserID = &order.DriverID
	if err := s.ledger.Create(ctx, q, transaction); err != nil {
		return nil, fmt.Errorf("adjust commission: insert transaction: %w", err)
	}
	adjustment.TransactionID = &transaction.ID

	// The wallet moves opposite to the fee: charging more commission means
	// debiting the driver.
	moveAmount := delta.Neg()
	note := fmt.Sprintf("commission adjustment %s for order %d", input.AdjustmentSeq, orderID)
	movement := domain.NewWalletMovement(wallet.ID, &transaction.ID, wallet.CurrentBalance, moveAmount, &note)
	if err := s.movements.Create(ctx, q, movement); err != nil {
		return nil, fmt.Errorf("adjust commission: create movement: %w", err)
	}
	if err := s.wallets.UpdateBalanceLocked(ctx, q, wallet.ID, movement.NewBalance, decimal.Zero); err != nil {
		return nil, fmt.Errorf("adjust commission: update balance: %w", err)
	}

	blocked := false
	if delta.IsPositive() && wallet.CrossesBelowZero(movement.NewBalance) {
		if err := s.wallets.Block(ctx, q, wallet.ID, domain.BlockReasonNegativeBalance, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("adjust commission: block wallet: %w", err)
		}
		blocked = true
		ob.add(domain.NewEvent(domain.EventWalletBlocked, order.DriverID, moveAmount, movement.NewBalance))
	}

	if err := s.adjustments.Create(ctx, q, adjustment); err != nil {
		return s.settleAdjustmentRace(ctx, txController, orderID, input.AdjustmentSeq, err)
	}

	ob.add(domain.NewEvent(domain.EventWalletUpdated, order.DriverID, moveAmount, movement.NewBalance))
	ob.add(domain.NewEvent(domain.EventTransactionProcessed, order.DriverID, delta.Abs(), movement.NewBalance))

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	ob.flush(s.publisher, s.logger)

	wallet.CurrentBalance = movement.NewBalance
	if blocked {
		wallet.Status = domain.WalletStatusBlocked
		reason := domain.BlockReasonNegativeBalance
		wallet.BlockedReason = &reason
	}
	return &AdjustmentResult{
		Adjustment:  adjustment,
		Transaction: transaction,
		Movement:    movement,
		Wallet:      wallet,
	}, nil
}

// effectiveCommissionFee is the commission currently charged for the order:
// the original commission (falling back to the charge record's fee when the
// commission ledger entry is absent) plus every prior adjustment delta.
func (s *PaymentService) effectiveCommissionFee(ctx context.Context, q repository.DBExecutor, orderID int64) (decimal.Decimal, error) {
	base := decimal.Zero
	commission, err := s.ledger.FindByTypeAndOrder(ctx, q, domain.TransactionTypePlatformCommission, orderID)
	switch {
	case err == nil:
		base = commission.PlatformFeeAmount
	case util.IsError(err, util.ErrTransactionNotFound):
		charge, chargeErr := s.ledger.FindByTypeAndOrder(ctx, q, domain.TransactionTypeCharge, orderID)
		if chargeErr == nil {
			base = charge.PlatformFeeAmount
		} else if !util.IsError(chargeErr, util.ErrTransactionNotFound) {
			return decimal.Zero, fmt.Errorf("effective fee lookup failed: %w", chargeErr)
		}
	default:
		return decimal.Zero, fmt.Errorf("effective fee lookup failed: %w", err)
	}

	prior, err := s.adjustments.ListByOrder(ctx, q, orderID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("effective fee lookup failed: %w", err)
	}
	for _, a := range prior {
		base = base.Add(a.DeltaFee)
	}
	return base.Round(2), nil
}

// settleAdjustmentRace handles losing the (order, seq) insert race: the whole
// scope rolls back and the winner's committed record is read outside it.
func (s *PaymentService) settleAdjustmentRace(ctx context.Context, txController db.TxController, orderID int64, seq string, insertErr error) (*AdjustmentResult, error) {
	if !util.IsError(insertErr, util.ErrDuplicateEntry) {
		return nil, fmt.Errorf("adjust commission: insert adjustment: %w", insertErr)
	}
	s.rollbackTx(txController)
	winner, err := s.adjustments.GetByOrderAndSeq(ctx, s.dbExecutor, orderID, seq)
	if err != nil {
		return nil, fmt.Errorf("adjustment re-read after conflict failed: %w", err)
	}
	return s.replayAdjustment(ctx, s.dbExecutor, winner)
}

func (s *PaymentService) replayAdjustment(ctx context.Context, q repository.DBExecutor, adjustment *domain.CommissionAdjustment) (*AdjustmentResult, error) {
	result := &AdjustmentResult{
		Adjustment:     adjustment,
		AlreadyExisted: true,
		NoOp:           adjustment.IsNoOp(),
	}
	if adjustment.TransactionID != nil {
		transaction, err := s.ledger.GetByID(ctx, q, *adjustment.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("adjustment replay: %w", err)
		}
		result.Transaction = transaction
		movement, err := s.movements.GetByTransactionID(ctx, q, *adjustment.TransactionID)
		if err == nil {
			result.Movement = movement
		} else if !util.IsError(err, util.ErrNotFound) {
			return nil, fmt.Errorf("adjustment replay: %w", err)
		}
	}
	return result, nil
}
