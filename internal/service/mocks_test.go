// internal/service/mocks_test.go
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"driverpay/internal/domain"
	"driverpay/internal/repository"
	"driverpay/pkg/db"
)

// MockDBExecutor is a mock implementation of repository.DBExecutor.
type MockDBExecutor struct {
	mock.Mock
}

func (m *MockDBExecutor) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	argsCalled := m.Called(ctx, dest, query, args)
	return argsCalled.Error(0)
}

func (m *MockDBExecutor) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	argsCalled := m.Called(ctx, query, args)
	return argsCalled.Get(0).(sql.Result), argsCalled.Error(1)
}

func (m *MockDBExecutor) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	m.Called(ctx, query, args)
	return &sql.Row{}
}

// MockWalletRepository is a mock implementation of repository.WalletRepository.
type MockWalletRepository struct {
	mock.Mock
}

func (m *MockWalletRepository) CreateWallet(ctx context.Context, q repository.DBExecutor, wallet *domain.WalletAccount) error {
	args := m.Called(ctx, q, wallet)
	return args.Error(0)
}

func (m *MockWalletRepository) GetByDriverID(ctx context.Context, q repository.DBExecutor, driverID int64) (*domain.WalletAccount, error) {
	args := m.Called(ctx, q, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WalletAccount), args.Error(1)
}

func (m *MockWalletRepository) LockByDriverID(ctx context.Context, q repository.DBExecutor, driverID int64) (*domain.WalletAccount, error) {
	args := m.Called(ctx, q, driverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WalletAccount), args.Error(1)
}

func (m *MockWalletRepository) UpdateBalanceLocked(ctx context.Context, q repository.DBExecutor, walletID int64, newBalance, earnedDelta decimal.Decimal) error {
	args := m.Called(ctx, q, walletID, newBalance, earnedDelta)
	return args.Error(0)
}

func (m *MockWalletRepository) Block(ctx context.Context, q repository.DBExecutor, walletID int64, reason string, at time.Time) error {
	args := m.Called(ctx, q, walletID, reason, at)
	return args.Error(0)
}

func (m *MockWalletRepository) Unblock(ctx context.Context, q repository.DBExecutor, walletID int64, by *int64, at time.Time) error {
	args := m.Called(ctx, q, walletID, by, at)
	return args.Error(0)
}

// MockMovementRepository is a mock implementation of repository.MovementRepository.
type MockMovementRepository struct {
	mock.Mock
}

func (m *MockMovementRepository) Create(ctx context.Context, q repository.DBExecutor, movement *domain.WalletMovement) error {
	args := m.Called(ctx, q, movement)
	return args.Error(0)
}

func (m *MockMovementRepository) GetByTransactionID(ctx context.Context, q repository.DBExecutor, transactionID int64) (*domain.WalletMovement, error) {
	args := m.Called(ctx, q, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WalletMovement), args.Error(1)
}

func (m *MockMovementRepository) ListByWalletID(ctx context.Context, q repository.DBExecutor, walletID int64, limit, offset int) ([]domain.WalletMovement, int64, error) {
	args := m.Called(ctx, q, walletID, limit, offset)
	return args.Get(0).([]domain.WalletMovement), args.Get(1).(int64), args.Error(2)
}

func (m *MockMovementRepository) SumByWalletID(ctx context.Context, q repository.DBExecutor, walletID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, q, walletID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// MockTransactionRepository is a mock implementation of repository.TransactionRepository.
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	args := m.Called(ctx, q, transaction)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Transaction, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindByTypeAndOrder(ctx context.Context, q repository.DBExecutor, txType domain.TransactionType, orderID int64) (*domain.Transaction, error) {
	args := m.Called(ctx, q, txType, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindCommissionForTrip(ctx context.Context, q repository.DBExecutor, driverID, tripID, orderID int64) (*domain.Transaction, error) {
	args := m.Called(ctx, q, driverID, tripID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkProcessed(ctx context.Context, q repository.DBExecutor, id int64, at time.Time) error {
	args := m.Called(ctx, q, id, at)
	return args.Error(0)
}

// MockAdjustmentRepository is a mock implementation of repository.AdjustmentRepository.
type MockAdjustmentRepository struct {
	mock.Mock
}

func (m *MockAdjustmentRepository) Create(ctx context.Context, q repository.DBExecutor, adjustment *domain.CommissionAdjustment) error {
	args := m.Called(ctx, q, adjustment)
	return args.Error(0)
}

func (m *MockAdjustmentRepository) GetByOrderAndSeq(ctx context.Context, q repository.DBExecutor, orderID int64, seq string) (*domain.CommissionAdjustment, error) {
	args := m.Called(ctx, q, orderID, seq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommissionAdjustment), args.Error(1)
}

func (m *MockAdjustmentRepository) ListByOrder(ctx context.Context, q repository.DBExecutor, orderID int64) ([]domain.CommissionAdjustment, error) {
	args := m.Called(ctx, q, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CommissionAdjustment), args.Error(1)
}

// MockOrderRepository is a mock implementation of repository.OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) GetByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) LockByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Order, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) SetStatus(ctx context.Context, q repository.DBExecutor, id int64, status domain.OrderStatus) error {
	args := m.Called(ctx, q, id, status)
	return args.Error(0)
}

// MockCollectionRepository is a mock implementation of repository.CollectionRepository.
type MockCollectionRepository struct {
	mock.Mock
}

func (m *MockCollectionRepository) Create(ctx context.Context, q repository.DBExecutor, collection *domain.CashCollection) error {
	args := m.Called(ctx, q, collection)
	return args.Error(0)
}

func (m *MockCollectionRepository) LockByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.CashCollection, error) {
	args := m.Called(ctx, q, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CashCollection), args.Error(1)
}

func (m *MockCollectionRepository) Complete(ctx context.Context, q repository.DBExecutor, id int64, collectedBy int64, at time.Time) error {
	args := m.Called(ctx, q, id, collectedBy, at)
	return args.Error(0)
}

func (m *MockCollectionRepository) IsPointActive(ctx context.Context, q repository.DBExecutor, pointID int64) (bool, error) {
	args := m.Called(ctx, q, pointID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCollectionRepository) CreateRefundNote(ctx context.Context, q repository.DBExecutor, pointID, orderID int64, amount decimal.Decimal, note string) error {
	args := m.Called(ctx, q, pointID, orderID, amount, note)
	return args.Error(0)
}

// MockIdempotencyRepository is a mock implementation of repository.IdempotencyRepository.
type MockIdempotencyRepository struct {
	mock.Mock
}

func (m *MockIdempotencyRepository) Get(ctx context.Context, q repository.DBExecutor, key, method, endpoint string) (*domain.IdempotencyClaim, error) {
	args := m.Called(ctx, q, key, method, endpoint)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyClaim), args.Error(1)
}

func (m *MockIdempotencyRepository) Insert(ctx context.Context, q repository.DBExecutor, claim *domain.IdempotencyClaim) error {
	args := m.Called(ctx, q, claim)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) Steal(ctx context.Context, q repository.DBExecutor, id int64, lockedUntil, expiresAt, now time.Time) (*domain.IdempotencyClaim, error) {
	args := m.Called(ctx, q, id, lockedUntil, expiresAt, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.IdempotencyClaim), args.Error(1)
}

func (m *MockIdempotencyRepository) MarkSucceeded(ctx context.Context, q repository.DBExecutor, key, method, endpoint string, code int, body, headers json.RawMessage, at time.Time) error {
	args := m.Called(ctx, q, key, method, endpoint, code, body, headers, at)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) MarkFailed(ctx context.Context, q repository.DBExecutor, key, method, endpoint string, errCode, details *string, at time.Time) error {
	args := m.Called(ctx, q, key, method, endpoint, errCode, details, at)
	return args.Error(0)
}

func (m *MockIdempotencyRepository) DeleteExpired(ctx context.Context, q repository.DBExecutor, now time.Time) (int64, error) {
	args := m.Called(ctx, q, now)
	return args.Get(0).(int64), args.Error(1)
}

// MockDBBeginner is a mock implementation of db.DBTxBeginner.
type MockDBBeginner struct {
	mock.Mock
}

func (m *MockDBBeginner) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	args := m.Called(ctx, opts)
	return &sqlx.Tx{}, args.Error(1)
}

// MockTxController is a mock implementation of db.TxController.
// It also implicitly implements repository.DBExecutor for testing purposes
// by embedding MockDBExecutor.
type MockTxController struct {
	mock.Mock
	MockDBExecutor // Embed MockDBExecutor to satisfy repository.DBExecutor interface
}

func (m *MockTxController) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTxController) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	events []domain.Event
}

func (p *capturePublisher) Publish(event domain.Event) error {
	p.events = append(p.events, event)
	return nil
}

// paymentFixture bundles every mock a PaymentService test needs.
type paymentFixture struct {
	wallets     *MockWalletRepository
	movements   *MockMovementRepository
	ledger      *MockTransactionRepository
	adjustments *MockAdjustmentRepository
	orders      *MockOrderRepository
	collections *MockCollectionRepository
	beginner    *MockDBBeginner
	executor    *MockDBExecutor
	tx          *MockTxController
	publisher   *capturePublisher
	service     *PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		wallets:     new(MockWalletRepository),
		movements:   new(MockMovementRepository),
		ledger:      new(MockTransactionRepository),
		adjustments: new(MockAdjustmentRepository),
		orders:      new(MockOrderRepository),
		collections: new(MockCollectionRepository),
		beginner:    new(MockDBBeginner),
		executor:    new(MockDBExecutor),
		tx:          new(MockTxController),
		publisher:   &capturePublisher{},
	}
	f.service = NewPaymentService(
		f.beginner,
		f.executor,
		f.wallets,
		f.movements,
		f.ledger,
		f.adjustments,
		f.orders,
		f.collections,
		func(ctx context.Context, dbConn db.DBTxBeginner, opts *sql.TxOptions) (db.TxController, error) {
			return f.tx, nil
		},
		func(tx db.TxController) error {
			return f.tx.Commit()
		},
		func(tx db.TxController) {
			_ = f.tx.Rollback()
		},
		f.publisher,
		testLogger(),
		defaultRefundPolicyWindow,
	)
	return f
}
