// internal/service/payment_service.go
package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
	"driverpay/pkg/db"
)

// PaymentService composes the wallet, movement, transaction, adjustment and
// collection stores to realize the money-moving use cases: commission on trip
// closure, cash top-up, refunds and post-facto commission adjustment. It is
// the only component that opens a transactional scope spanning the ledger
// stores; every scope follows lock wallet → write ledger → write movement →
// update balance, with events flushed only after commit.
type PaymentService struct {
	dbBeginner  db.DBTxBeginner
	dbExecutor  repository.DBExecutor
	wallets     repository.WalletRepository
	movements   repository.MovementRepository
	ledger      repository.TransactionRepository
	adjustments repository.AdjustmentRepository
	orders      repository.OrderRepository
	collections repository.CollectionRepository
	beginTx     db.BeginTxFunc
	commitTx    db.CommitTxFunc
	rollbackTx  db.RollbackTxFunc
	publisher   EventPublisher
	logger      *slog.Logger
	// refundWindow bounds the immediate ("undo") refund path.
	refundWindow time.Duration
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	wallets repository.WalletRepository,
	movements repository.MovementRepository,
	ledger repository.TransactionRepository,
	adjustments repository.AdjustmentRepository,
	orders repository.OrderRepository,
	collections repository.CollectionRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	publisher EventPublisher,
	logger *slog.Logger,
	refundWindow time.Duration,
) *PaymentService {
	if refundWindow <= 0 {
		refundWindow = defaultRefundPolicyWindow
	}
	return &PaymentService{
		dbBeginner:   dbBeginner,
		dbExecutor:   dbExecutor,
		wallets:      wallets,
		movements:    movements,
		ledger:       ledger,
		adjustments:  adjustments,
		orders:       orders,
		collections:  collections,
		beginTx:      beginTx,
		commitTx:     commitTx,
		rollbackTx:   rollbackTx,
		publisher:    publisher,
		logger:       logger,
		refundWindow: refundWindow,
	}
}

// txExecutor begins a transaction and returns it both as a controller and as
// a DBExecutor for the repositories.
func (s *PaymentService) txExecutor(ctx context.Context, opts *sql.TxOptions) (db.TxController, repository.DBExecutor, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	executor, ok := txController.(repository.DBExecutor)
	if !ok {
		s.rollbackTx(txController)
		return nil, nil, fmt.Errorf("transaction controller does not implement DBExecutor")
	}
	return txController, executor, nil
}

// ApplyCashTripCommission debits the platform commission for a closed cash
// trip from the driver's wallet. Replays with the same (driver, trip, order)
// are pure reads returning the already-applied state.
func (s *PaymentService) ApplyCashTripCommission(ctx context.Context, driverID int64, input CommissionInput) (*CommissionResult, error) {
	if input.TripID == 0 || input.OrderID == 0 {
		return nil, util.ErrMissingReference
	}
	if !domain.ValidAmount(input.CommissionAmount) {
		return nil, util.ErrInvalidAmount
	}
	currency, ok := domain.NormalizeCurrency(input.Currency)
	if !ok {
		return nil, util.ErrInvalidInput
	}

	ob := newOutbox()
	txController, q, err := s.txExecutor(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	wallet, err := s.wallets.LockByDriverID(ctx, q, driverID)
	if err != nil {
		return nil, fmt.Errorf("apply commission: %w", err)
	}
	if wallet.IsBlocked() {
		return nil, util.ErrWalletBlocked
	}
	if wallet.Currency != currency {
		return nil, util.ErrCurrencyMismatch
	}

	transaction, err := s.ensureCommissionTransaction(ctx, q, driverID, input, currency)
	if err != nil {
		return nil, err
	}

	// A movement referencing this transaction means the balance was already
	// debited; return the current state untouched.
	movement, err := s.movements.GetByTransactionID(ctx, q, transaction.ID)
	if err == nil {
		if commitErr := s.commitTx(txController); commitErr != nil {
			return nil, commitErr
		}
		return &CommissionResult{
			Wallet:         wallet,
			Transaction:    transaction,
			Movement:       movement,
			AlreadyApplied: true,
		}, nil
	}
	if !util.IsError(err, util.ErrNotFound) {
		return nil, fmt.Errorf("apply commission: movement lookup: %w", err)
	}

	amount := input.CommissionAmount.Neg()
	note := input.Note
	if note == "" {
		note = fmt.Sprintf("commission for trip %d", input.TripID)
	}
	movement = domain.NewWalletMovement(wallet.ID, &transaction.ID, wallet.CurrentBalance, amount, &note)
	if err := s.movements.Create(ctx, q, movement); err != nil {
		return nil, fmt.Errorf("apply commission: create movement: %w", err)
	}

	earned := decimalZeroIfNegative(input.GrossAmount)
	if err := s.wallets.UpdateBalanceLocked(ctx, q, wallet.ID, movement.NewBalance, earned); err != nil {
		return nil, fmt.Errorf("apply commission: update balance: %w", err)
	}

	blocked := false
	if wallet.CrossesBelowZero(movement.NewBalance) {
		if err := s.wallets.Block(ctx, q, wallet.ID, domain.BlockReasonNegativeBalance, time.Now().UTC()); err != nil {
			return nil, fmt.Errorf("apply commission: block wallet: %w", err)
		}
		blocked = true
		ob.add(domain.NewEvent(domain.EventWalletBlocked, driverID, amount, movement.NewBalance))
	}

	ob.add(domain.NewEvent(domain.EventWalletUpdated, driverID, amount, movement.NewBalance))
	ob.add(domain.NewEvent(domain.EventTransactionProcessed, driverID, input.CommissionAmount, movement.NewBalance))

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	ob.flush(s.publisher, s.logger)

	wallet.CurrentBalance = movement.NewBalance
	wallet.TotalEarnedFromTrips = wallet.TotalEarnedFromTrips.Add(earned)
	if blocked {
		wallet.Status = domain.WalletStatusBlocked
		reason := domain.BlockReasonNegativeBalance
		wallet.BlockedReason = &reason
	}
	return &CommissionResult{
		Wallet:        wallet,
		Transaction:   transaction,
		Movement:      movement,
		WalletBlocked: blocked,
	}, nil
}

// ensureCommissionTransaction finds or creates the PLATFORM_COMMISSION ledger
// record for a (driver, trip, order) tuple. An existing row with a different
// amount or currency is a conflict: financial records are never silently
// overwritten. Insert races are resolved by re-reading the winner.
func (s *PaymentService) ensureCommissionTransaction(ctx context.Context, q repository.DBExecutor, driverID int64, input CommissionInput, currency string) (*domain.Transaction, error) {
	existing, err := s.ledger.FindCommissionForTrip(ctx, q, driverID, input.TripID, input.OrderID)
	if err == nil {
		return s.verifyCommissionRow(ctx, q, existing, input, currency)
	}
	if !util.IsError(err, util.ErrTransactionNotFound) {
		return nil, fmt.Errorf("commission lookup failed: %w", err)
	}

	gross := input.GrossAmount
	if !gross.IsPositive() {
		gross = input.CommissionAmount
	}
	transaction := domain.NewTransaction(domain.TransactionTypePlatformCommission, gross, input.CommissionAmount, currency, domain.TransactionStatusProcessed)
	transaction.OrderID = &input.OrderID
	transaction.TripID = &input.TripID
	transaction.ToUserID = &driverID
	if err := s.ledger.Create(ctx, q, transaction); err != nil {
		if util.IsError(err, util.ErrDuplicateEntry) {
			// Lost the insert race; the winner's row is authoritative.
			winner, readErr := s.ledger.FindCommissionForTrip(ctx, q, driverID, input.TripID, input.OrderID)
			if readErr != nil {
				return nil, fmt.Errorf("commission re-read after conflict failed: %w", readErr)
			}
			return s.verifyCommissionRow(ctx, q, winner, input, currency)
		}
		return nil, fmt.Errorf("commission insert failed: %w", err)
	}
	return transaction, nil
}

func (s *PaymentService) verifyCommissionRow(ctx context.Context, q repository.DBExecutor, existing *domain.Transaction, input CommissionInput, currency string) (*domain.Transaction, error) {
	if !existing.PlatformFeeAmount.Equal(input.CommissionAmount.Round(2)) || existing.Currency != currency {
		return nil, util.ErrAmountMismatch
	}
	if existing.Status == domain.TransactionStatusPending {
		now := time.Now().UTC()
		if err := s.ledger.MarkProcessed(ctx, q, existing.ID, now); err != nil {
			return nil, err
		}
		existing.Status = domain.TransactionStatusProcessed
		existing.ProcessedAt = &now
	}
	return existing, nil
}
