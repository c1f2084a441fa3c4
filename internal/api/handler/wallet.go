// internal/api/handler/wallet.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"driverpay/internal/api/types"
	"driverpay/internal/domain"
	"driverpay/internal/service"
	"driverpay/internal/util" // For custom errors
)

// WalletHandler handles HTTP requests for wallet lifecycle and reads.
type WalletHandler struct {
	service *service.WalletService
	logger  *slog.Logger
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(svc *service.WalletService, logger *slog.Logger) *WalletHandler {
	return &WalletHandler{
		service: svc,
		logger:  logger,
	}
}

func driverIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "driverID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, util.ErrInvalidInput
	}
	return id, nil
}

// CreateWalletRequest represents the request body for wallet creation.
type CreateWalletRequest struct {
	Currency string `json:"currency"`
}

// CreateWallet provisions the driver's wallet at onboarding.
// POST /drivers/{driverID}/wallet
func (h *WalletHandler) CreateWallet(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	wallet, err := h.service.CreateWallet(r.Context(), driverID, req.Currency)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusCreated, wallet)
}

// GetWallet returns the driver's wallet.
// GET /drivers/{driverID}/wallet
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	wallet, err := h.service.GetWallet(r.Context(), driverID)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, wallet)
}

// GetMovements returns a page of the driver's movement history.
// GET /drivers/{driverID}/wallet/movements?limit=20&offset=0
func (h *WalletHandler) GetMovements(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	movements, total, err := h.service.GetMovements(r.Context(), driverID, limit, offset)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, types.PaginatedResponse[domain.WalletMovement]{
		Data:       movements,
		Limit:      limit,
		Offset:     offset,
		TotalCount: total,
	})
}

// BlockRequest represents the request body for a manual block.
type BlockRequest struct {
	Reason string `json:"reason"`
}

// BlockWallet manually blocks a driver's wallet.
// POST /drivers/{driverID}/wallet/block
func (h *WalletHandler) BlockWallet(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.BlockWallet(r.Context(), driverID, req.Reason)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"wallet":  result.Wallet,
		"changed": result.Changed,
	})
}

// UnblockRequest represents the request body for a manual unblock.
type UnblockRequest struct {
	UnblockedBy *int64 `json:"unblocked_by,omitempty"`
}

// UnblockWallet manually reactivates a driver's wallet.
// POST /drivers/{driverID}/wallet/unblock
func (h *WalletHandler) UnblockWallet(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	var req UnblockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.UnblockWallet(r.Context(), driverID, req.UnblockedBy)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"wallet":  result.Wallet,
		"changed": result.Changed,
	})
}
