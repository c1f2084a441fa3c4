// internal/api/handler/respond.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"driverpay/internal/util"
)

// DefaultTimeout bounds every request handled by the router.
const DefaultTimeout = 60 * time.Second

// Helper function to send JSON responses.
func respondWithJSON(logger *slog.Logger, w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

// Helper function to map service errors onto HTTP responses.
func respondWithError(logger *slog.Logger, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case util.IsError(err, util.ErrInvalidInput),
		util.IsError(err, util.ErrInvalidAmount),
		util.IsError(err, util.ErrMissingReference):
		statusCode = http.StatusBadRequest
		message = err.Error()
	case util.IsError(err, util.ErrNotFound),
		util.IsError(err, util.ErrWalletNotFound),
		util.IsError(err, util.ErrOrderNotFound),
		util.IsError(err, util.ErrTransactionNotFound),
		util.IsError(err, util.ErrCollectionNotFound):
		statusCode = http.StatusNotFound
		message = "Resource not found"
	case util.IsError(err, util.ErrWalletBlocked):
		statusCode = http.StatusConflict
		message = "Wallet is blocked"
	case util.IsError(err, util.ErrCurrencyMismatch):
		statusCode = http.StatusConflict
		message = "Currency mismatch"
	case util.IsError(err, util.ErrAmountMismatch):
		statusCode = http.StatusConflict
		message = "Amount differs from the recorded transaction"
	case util.IsError(err, util.ErrOrderNotPaid):
		statusCode = http.StatusConflict
		message = "Order is not paid"
	case util.IsError(err, util.ErrRefundExceedsPaid):
		statusCode = http.StatusUnprocessableEntity
		message = "Refund amount exceeds paid amount"
	case util.IsError(err, util.ErrDeltaExceedsLimit):
		statusCode = http.StatusUnprocessableEntity
		message = "Adjustment exceeds the allowed threshold"
	case util.IsError(err, util.ErrCollectionPointInactive):
		statusCode = http.StatusUnprocessableEntity
		message = "Collection point is not active"
	case util.IsError(err, util.ErrCollectionNotPending):
		statusCode = http.StatusConflict
		message = "Collection is not pending"
	default:
		logger.Error("Unhandled service error", "error", err)
	}

	respondWithJSON(logger, w, statusCode, map[string]string{"error": message})
}
