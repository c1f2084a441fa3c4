// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"driverpay/internal/api/handler"
	"driverpay/internal/service"
)

// NewRouter sets up and returns a new HTTP router. Every write route runs
// behind the idempotency middleware; reads, health and metrics do not.
func NewRouter(
	walletHandler *handler.WalletHandler,
	paymentHandler *handler.PaymentHandler,
	idem *service.IdempotencyService,
	idemLease time.Duration,
	idemWindow time.Duration,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middlewares
	r.Use(middleware.RequestID)                       // Add a request ID to the context
	r.Use(middleware.RealIP)                          // Use the real IP address
	r.Use(middleware.Logger)                          // Log HTTP requests
	r.Use(middleware.Recoverer)                       // Recover from panics and return 500
	r.Use(middleware.Timeout(handler.DefaultTimeout)) // Set a default timeout for requests
	r.Use(MetricsMiddleware)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	idempotent := IdempotencyMiddleware(idem, idemLease, idemWindow, logger)

	// Wallet lifecycle and reads
	r.Route("/drivers/{driverID}", func(r chi.Router) {
		r.Get("/wallet", walletHandler.GetWallet)
		r.Get("/wallet/movements", walletHandler.GetMovements)

		r.Group(func(r chi.Router) {
			r.Use(idempotent)
			r.Post("/wallet", walletHandler.CreateWallet)
			r.Post("/wallet/block", walletHandler.BlockWallet)
			r.Post("/wallet/unblock", walletHandler.UnblockWallet)
			r.Post("/commissions", paymentHandler.ApplyCommission)
			r.Post("/topups", paymentHandler.CreateTopup)
		})
	})

	// Collection-point confirmation is keyed by the collection, not the driver
	r.Group(func(r chi.Router) {
		r.Use(idempotent)
		r.Post("/topups/{collectionID}/confirm", paymentHandler.ConfirmTopup)
		r.Post("/orders/{orderID}/refund", paymentHandler.RefundOrder)
		r.Post("/orders/{orderID}/commission-adjustments", paymentHandler.AdjustCommission)
	})

	return r
}
