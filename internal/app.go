// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "driverpay/internal/api"
	"driverpay/internal/api/handler"
	"driverpay/internal/config"
	"driverpay/internal/repository"
	"driverpay/internal/repository/postgres"
	"driverpay/internal/service"
	"driverpay/internal/util"
	"driverpay/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	WalletRepository      repository.WalletRepository
	MovementRepository    repository.MovementRepository
	TransactionRepository repository.TransactionRepository
	AdjustmentRepository  repository.AdjustmentRepository
	IdempotencyRepository repository.IdempotencyRepository
	OrderRepository       repository.OrderRepository
	CollectionRepository  repository.CollectionRepository

	// Services
	PaymentService     *service.PaymentService
	WalletService      *service.WalletService
	IdempotencyService *service.IdempotencyService

	// Event delivery
	Publisher *service.ChannelPublisher

	// HTTP API
	HTTPHandler http.Handler

	stopBackground context.CancelFunc
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Connect to Database
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database connection established.")

	if err := postgres.InitSchema(app.DB); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	// 4. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository(app.DB)
	app.MovementRepository = postgres.NewMovementRepository(app.DB)
	app.TransactionRepository = postgres.NewTransactionRepository(app.DB)
	app.AdjustmentRepository = postgres.NewAdjustmentRepository(app.DB)
	app.IdempotencyRepository = postgres.NewIdempotencyRepository(app.DB)
	app.OrderRepository = postgres.NewOrderRepository(app.DB)
	app.CollectionRepository = postgres.NewCollectionRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Initialize Services
	app.Publisher = service.NewChannelPublisher(app.Config.EventBufferSize, app.Logger)

	app.IdempotencyService = service.NewIdempotencyService(app.DB, app.IdempotencyRepository, app.Logger)

	// Pass the concrete db.BeginTx, db.CommitTx, db.RollbackTx functions from pkg/db
	app.PaymentService = service.NewPaymentService(
		app.DB, // This is the DBTxBeginner
		app.DB, // This is the DBExecutor
		app.WalletRepository,
		app.MovementRepository,
		app.TransactionRepository,
		app.AdjustmentRepository,
		app.OrderRepository,
		app.CollectionRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Publisher,
		app.Logger,
		app.Config.RefundPolicyWindow,
	)
	app.WalletService = service.NewWalletService(
		app.DB,
		app.DB,
		app.WalletRepository,
		app.MovementRepository,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Publisher,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 6. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.WalletService, app.Logger)
	paymentHandler := handler.NewPaymentHandler(app.PaymentService, app.Logger)
	app.HTTPHandler = router.NewRouter(
		walletHandler,
		paymentHandler,
		app.IdempotencyService,
		app.Config.IdempotencyLease,
		app.Config.IdempotencyWindow,
		app.Logger,
	)
	app.Logger.Info("HTTP router and handlers initialized.")

	// 7. Background workers: claim janitor and event drain
	bgCtx, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel
	go app.runClaimJanitor(bgCtx)
	go app.drainEvents(bgCtx)

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.stopBackground != nil {
		app.stopBackground()
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
