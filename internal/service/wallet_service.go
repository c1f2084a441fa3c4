// internal/service/wallet_service.go
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/internal/util"
	"driverpay/pkg/db"
)

// WalletService covers wallet lifecycle and read paths: onboarding, manual
// block/unblock by operations staff, balance queries, movement history and
// reconciliation. Balance mutations live in PaymentService.
type WalletService struct {
	dbBeginner db.DBTxBeginner
	dbExecutor repository.DBExecutor
	wallets    repository.WalletRepository
	movements  repository.MovementRepository
	beginTx    db.BeginTxFunc
	commitTx   db.CommitTxFunc
	rollbackTx db.RollbackTxFunc
	publisher  EventPublisher
	logger     *slog.Logger
}

// NewWalletService creates a new WalletService.
func NewWalletService(
	dbBeginner db.DBTxBeginner,
	dbExecutor repository.DBExecutor,
	wallets repository.WalletRepository,
	movements repository.MovementRepository,
	beginTx db.BeginTxFunc,
	commitTx db.CommitTxFunc,
	rollbackTx db.RollbackTxFunc,
	publisher EventPublisher,
	logger *slog.Logger,
) *WalletService {
	return &WalletService{
		dbBeginner: dbBeginner,
		dbExecutor: dbExecutor,
		wallets:    wallets,
		movements:  movements,
		beginTx:    beginTx,
		commitTx:   commitTx,
		rollbackTx: rollbackTx,
		publisher:  publisher,
		logger:     logger,
	}
}

// CreateWallet provisions the single wallet a driver gets at onboarding.
// A second call for the same driver returns the existing wallet unchanged.
func (s *WalletService) CreateWallet(ctx context.Context, driverID int64, currency string) (*domain.WalletAccount, error) {
	if driverID == 0 {
		return nil, util.ErrMissingReference
	}
	normalized, ok := domain.NormalizeCurrency(currency)
	if !ok {
		return nil, util.ErrInvalidInput
	}

	wallet := domain.NewWalletAccount(driverID, normalized)
	if err := s.wallets.CreateWallet(ctx, s.dbExecutor, wallet); err != nil {
		if util.IsError(err, util.ErrDuplicateEntry) {
			existing, readErr := s.wallets.GetByDriverID(ctx, s.dbExecutor, driverID)
			if readErr != nil {
				return nil, fmt.Errorf("wallet re-read after conflict failed: %w", readErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	s.logger.Info("wallet created", "driver_id", driverID, "currency", normalized)
	return wallet, nil
}

// GetWallet returns the driver's wallet.
func (s *WalletService) GetWallet(ctx context.Context, driverID int64) (*domain.WalletAccount, error) {
	return s.wallets.GetByDriverID(ctx, s.dbExecutor, driverID)
}

// GetMovements returns a page of the driver's movement history, newest first.
func (s *WalletService) GetMovements(ctx context.Context, driverID int64, limit, offset int) ([]domain.WalletMovement, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	wallet, err := s.wallets.GetByDriverID(ctx, s.dbExecutor, driverID)
	if err != nil {
		return nil, 0, err
	}
	return s.movements.ListByWalletID(ctx, s.dbExecutor, wallet.ID, limit, offset)
}

// BlockWallet manually blocks a driver's wallet. Blocking an already-blocked
// wallet changes nothing and reports Changed=false.
func (s *WalletService) BlockWallet(ctx context.Context, driverID int64, reason string) (*StatusChangeResult, error) {
	if reason == "" {
		return nil, util.ErrInvalidInput
	}

	ob := newOutbox()
	txController, q, err := s.txExecutor(ctx)
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	wallet, err := s.wallets.LockByDriverID(ctx, q, driverID)
	if err != nil {
		return nil, fmt.Errorf("block wallet: %w", err)
	}
	if wallet.IsBlocked() {
		if commitErr := s.commitTx(txController); commitErr != nil {
			return nil, commitErr
		}
		return &StatusChangeResult{Wallet: wallet}, nil
	}

	now := time.Now().UTC()
	if err := s.wallets.Block(ctx, q, wallet.ID, reason, now); err != nil {
		return nil, fmt.Errorf("block wallet: %w", err)
	}
	ob.add(domain.NewEvent(domain.EventWalletBlocked, driverID, decimal.Zero, wallet.CurrentBalance))

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	ob.flush(s.publisher, s.logger)

	wallet.Status = domain.WalletStatusBlocked
	wallet.BlockedAt = &now
	wallet.BlockedReason = &reason
	return &StatusChangeResult{Wallet: wallet, Changed: true}, nil
}

// UnblockWallet manually reactivates a driver's wallet, attributing the
// action to the acting operator. Idempotent like BlockWallet.
func (s *WalletService) UnblockWallet(ctx context.Context, driverID int64, by *int64) (*StatusChangeResult, error) {
	ob := newOutbox()
	txController, q, err := s.txExecutor(ctx)
	if err != nil {
		return nil, err
	}
	defer s.rollbackTx(txController)

	wallet, err := s.wallets.LockByDriverID(ctx, q, driverID)
	if err != nil {
		return nil, fmt.Errorf("unblock wallet: %w", err)
	}
	if !wallet.IsBlocked() {
		if commitErr := s.commitTx(txController); commitErr != nil {
			return nil, commitErr
		}
		return &StatusChangeResult{Wallet: wallet}, nil
	}

	now := time.Now().UTC()
	if err := s.wallets.Unblock(ctx, q, wallet.ID, by, now); err != nil {
		return nil, fmt.Errorf("unblock wallet: %w", err)
	}
	ob.add(domain.NewEvent(domain.EventWalletUnblocked, driverID, decimal.Zero, wallet.CurrentBalance))

	if err := s.commitTx(txController); err != nil {
		return nil, err
	}
	ob.flush(s.publisher, s.logger)

	wallet.Status = domain.WalletStatusActive
	wallet.UnblockedAt = &now
	wallet.UnblockedBy = by
	wallet.BlockedReason = nil
	return &StatusChangeResult{Wallet: wallet, Changed: true}, nil
}

// ReconcileBalance compares the stored balance with the running sum of all
// movements. A false result means an invariant was broken and the wallet
// needs manual investigation; nothing is mutated.
func (s *WalletService) ReconcileBalance(ctx context.Context, driverID int64) (bool, decimal.Decimal, error) {
	wallet, err := s.wallets.GetByDriverID(ctx, s.dbExecutor, driverID)
	if err != nil {
		return false, decimal.Zero, err
	}
	sum, err := s.movements.SumByWalletID(ctx, s.dbExecutor, wallet.ID)
	if err != nil {
		return false, decimal.Zero, err
	}
	diff := wallet.CurrentBalance.Sub(sum)
	if !diff.IsZero() {
		s.logger.Error("wallet balance out of sync with movement log",
			"driver_id", driverID, "stored", wallet.CurrentBalance, "movements_sum", sum)
		return false, diff, nil
	}
	return true, decimal.Zero, nil
}

func (s *WalletService) txExecutor(ctx context.Context) (db.TxController, repository.DBExecutor, error) {
	txController, err := s.beginTx(ctx, s.dbBeginner, nil)
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
