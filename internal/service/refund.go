// internal/service/refund.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
)

const defaultRefundPolicyWindow = 15 * time.Minute

// ProcessImmediateRefund undoes a cash payment shortly after it happened: the
// order reverts to pending as if never paid, and any commission already
// debited for it is credited back to the driver. Outside the policy window
// nothing is mutated and the caller is told to use the normal refund path.
func (s *PaymentService) ProcessImmediateRefund(ctx context.Context, orderID int64, input ImmediateRefundInput) (*RefundResult, error) {
	if orderID == 0 || input.AdminID == 0 {
		return nil, util.ErrMissingReference
	}

	ob := newOutbox()
	txController, q, err := s.txExecutor(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	order, err := s.orders.LockByID(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("immediate refund: %w", err)
	}

	if existing, found, lookErr := s.findRefund(ctx, q, orderID); lookErr != nil {
		return nil, lookErr
	} else if found {
		if commitErr := s.commitTx(txController); commitErr != nil {
			return nil, commitErr
		}
		return &RefundResult{Refund: existing, AlreadyRefunded: true}, nil
	}

	if !order.IsPaid() {
		return nil, util.ErrOrderNotPaid
	}
	if !order.WithinPolicyWindow(time.Now().UTC(), s.refundWindow) {
		// Not an error: the payment stands, only the undo shortcut is closed.
		return &RefundResult{UseNormalFlow: true}, nil
	}

	refund, err := s.createRefundTransaction(ctx, q, order, order.PaidAmount, input.AdminID, input.Reason)
	if err != nil {
		if util.IsError(err, util.ErrDuplicateEntry) {
			winner, _, lookErr := s.findRefund(ctx, q, orderID)
			if lookErr != nil {
				return nil, lookErr
			}
			if commitErr := s.commitTx(txController); commitErr != nil {
				return nil, commitErr
			}
			return &RefundResult{Refund: winner, AlreadyRefunded: true}, nil
		}
		return nil, err
	}

	revert, revertMovement, err := s.revertCommission(ctx, q, order, input.AdminID, ob)
	if err != nil {
		return nil, err
	}

	if err := s.orders.SetStatus(ctx, q, order.ID, domain.OrderStatusPending); err != nil {
		return nil, fmt.Errorf("immediate refund: revert order: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	ob.flush(s.publisher, s.logger)

	return &RefundResult{
		Refund:           refund,
		CommissionRevert: revert,
		RevertMovement:   revertMovement,
	}, nil
}

// ProcessNormalRefund records an off-platform cash refund: the ledger gets a
// REFUND record, the chosen collection point gets a payout note for the
// rider, the commission already debited for the order is credited back to the
// driver, and the order terminates as refunded.
func (s *PaymentService) ProcessNormalRefund(ctx context.Context, orderID int64, input NormalRefundInput) (*RefundResult, error) {
	if orderID == 0 || input.AdminID == 0 || input.CollectionPointID == 0 {
		return nil, util.ErrMissingReference
	}

	ob := newOutbox()
	txController, q, err := s.txExecutor(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	order, err := s.orders.LockByID(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("normal refund: %w", err)
	}

	if existing, found, lookErr := s.findRefund(ctx, q, orderID); lookErr != nil {
		return nil, lookErr
	} else if found {
		if commitErr := s.commitTx(txController); commitErr != nil {
			return nil, commitErr
		}
		return &RefundResult{Refund: existing, AlreadyRefunded: true}, nil
	}

	if !order.IsPaid() {
		return nil, util.ErrOrderNotPaid
	}

	amount := input.Amount
	if amount.IsZero() {
		amount = order.PaidAmount
	}
	if !domain.ValidAmount(amount) {
		return nil, util.ErrInvalidAmount
	}
	if amount.GreaterThan(order.PaidAmount) {
		return nil, util.ErrRefundExceedsPaid
	}

	active, err := s.collections.IsPointActive(ctx, q, input.CollectionPointID)
	if err != nil {
		return nil, fmt.Errorf("normal refund: %w", err)
	}
	if !active {
		return nil, util.ErrCollectionPointInactive
	}

	refund, err := s.createRefundTransaction(ctx, q, order, amount, input.AdminID, input.Reason)
	if err != nil {
		if util.IsError(err, util.ErrDuplicateEntry) {
			winner, _, lookErr := s.findRefund(ctx, q, orderID)
			if lookErr != nil {
				return nil, lookErr
			}
			if commitErr := s.commitTx(txController); commitErr != nil {
				return nil, commitErr
			}
			return &RefundResult{Refund: winner, AlreadyRefunded: true}, nil
		}
		return nil, err
	}

	revert, revertMovement, err := s.revertCommission(ctx, q, order, input.AdminID, ob)
	if err != nil {
		return nil, err
	}

	note := input.Reason
	if note == "" {
		note = fmt.Sprintf("cash refund for order %d", order.ID)
	}
	if err := s.collections.CreateRefundNote(ctx, q, input.CollectionPointID, order.ID, amount, note); err != nil {
		return nil, fmt.Errorf("normal refund: %w", err)
	}

	if err := s.orders.SetStatus(ctx, q, order.ID, domain.OrderStatusRefunded); err != nil {
		return nil, fmt.Errorf("normal refund: terminate order: %w", err)
	}

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	ob.flush(s.publisher, s.logger)

	return &RefundResult{
		Refund:           refund,
		CommissionRevert: revert,
		RevertMovement:   revertMovement,
	}, nil
}

// findRefund looks up the at-most-one refund recorded for an order.
func (s *PaymentService) findRefund(ctx context.Context, q repository.DBExecutor, orderID int64) (*domain.Transaction, bool, error) {
	existing, err := s.ledger.FindByTypeAndOrder(ctx, q, domain.TransactionTypeRefund, orderID)
	if err == nil {
		return existing, true, nil
	}
	if util.IsError(err, util.ErrTransactionNotFound) {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("refund lookup failed: %w", err)
}

func (s *PaymentService) createRefundTransaction(ctx context.Context, q repository.DBExecutor, order *domain.Order, amount decimal.Decimal, adminID int64, reason string) (*domain.Transaction, error) {
	refund := domain.NewTransaction(domain.TransactionTypeRefund, amount, decimal.Zero, order.Currency, domain.TransactionStatusProcessed)
	refund.OrderID = &order.ID
	refund.TripID = &order.TripID
	refund.FromUserID = &adminID
	if reason != "" {
		meta, err := json.Marshal(map[string]string{"reason": reason})
		if err == nil {
			refund.Metadata = meta
		}
	}
	if err := s.ledger.Create(ctx, q, refund); err != nil {
		if util.IsError(err, util.ErrDuplicateEntry) {
			return nil, err
		}
		return nil, fmt.Errorf("refund insert failed: %w", err)
	}
	return refund, nil
}

// revertCommission credits back the commission debited for the order, if it
// was actually applied. The credit is a BONUS record pointing at the original
// commission through its metadata; replay safety rides on the refund record
// existing, so no second revert can ever be reached.
func (s *PaymentService) revertCommission(ctx context.Context, q repository.DBExecutor, order *domain.Order, adminID int64, ob *outbox) (*domain.Transaction, *domain.WalletMovement, error) {
	commission, err := s.ledger.FindByTypeAndOrder(ctx, q, domain.TransactionTypePlatformCommission, order.ID)
	if util.IsError(err, util.ErrTransactionNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("commission revert lookup failed: %w", err)
	}

	if _, movErr := s.movements.GetByTransactionID(ctx, q, commission.ID); movErr != nil {
		if util.IsError(movErr, util.ErrNotFound) {
			return nil, nil, nil // commission never hit the balance
		}
		return nil, nil, fmt.Errorf("commission revert movement lookup failed: %w", movErr)
	}

	revert := domain.NewTransaction(domain.TransactionTypeBonus, commission.PlatformFeeAmount, decimal.Zero, order.Currency, domain.TransactionStatusProcessed)
	revert.OrderID = &order.ID
	revert.TripID = &order.TripID
	revert.FromUserID = &adminID
	revert.ToUserID = &order.DriverID
	if meta, marshalErr := json.Marshal(map[string]int64{"reverts_transaction_id": commission.ID}); marshalErr == nil {
		revert.Metadata = meta
	}
	if err := s.ledger.Create(ctx, q, revert); err != nil {
		return nil, nil, fmt.Errorf("commission revert insert failed: %w", err)
	}

	wallet, err := s.wallets.LockByDriverID(ctx, q, order.DriverID)
	if err != nil {
		return nil, nil, fmt.Errorf("commission revert: %w", err)
	}

	note := fmt.Sprintf("commission revert for refunded order %d", order.ID)
	movement := domain.NewWalletMovement(wallet.ID, &revert.ID, wallet.CurrentBalance, commission.PlatformFeeAmount, &note)
	if err := s.movements.Create(ctx, q, movement); err != nil {
		return nil, nil, fmt.Errorf("commission revert: create movement: %w", err)
	}
	if err := s.wallets.UpdateBalanceLocked(ctx, q, wallet.ID, movement.NewBalance, decimal.Zero); err != nil {
		return nil, nil, fmt.Errorf("commission revert: update balance: %w", err)
	}

	ob.add(domain.NewEvent(domain.EventWalletUpdated, order.DriverID, commission.PlatformFeeAmount, movement.NewBalance))
	return revert, movement, nil
}
