// internal/api/handler/payment.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"driverpay/internal/service"
	"driverpay/internal/util"
)

// PaymentHandler handles HTTP requests for the money-moving flows:
// commission, cash top-up, refunds and commission adjustment.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// CommissionRequest represents the request body for applying a commission.
type CommissionRequest struct {
	TripID           int64           `json:"trip_id"`
	OrderID          int64           `json:"order_id"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	GrossAmount      decimal.Decimal `json:"gross_amount"`
	Currency         string          `json:"currency"`
	Note             string          `json:"note,omitempty"`
}

// ApplyCommission debits the platform commission for a closed cash trip.
// POST /drivers/{driverID}/commissions
func (h *PaymentHandler) ApplyCommission(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	var req CommissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.ApplyCashTripCommission(r.Context(), driverID, service.CommissionInput{
		TripID:           req.TripID,
		OrderID:          req.OrderID,
		CommissionAmount: req.CommissionAmount,
		GrossAmount:      req.GrossAmount,
		Currency:         req.Currency,
		Note:             req.Note,
	})
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	code := http.StatusCreated
	if result.AlreadyApplied {
		code = http.StatusOK
	}
	respondWithJSON(h.logger, w, code, map[string]interface{}{
		"transaction_id":  result.Transaction.ID,
		"movement_id":     result.Movement.ID,
		"new_balance":     result.Movement.NewBalance,
		"already_applied": result.AlreadyApplied,
		"wallet_blocked":  result.WalletBlocked,
	})
}

// TopupRequest represents the request body for creating a pending top-up.
type TopupRequest struct {
	CollectionPointID int64           `json:"collection_point_id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
}

// CreateTopup registers a pending cash top-up at a collection point.
// POST /drivers/{driverID}/topups
func (h *PaymentHandler) CreateTopup(w http.ResponseWriter, r *http.Request) {
	driverID, err := driverIDParam(r)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	var req TopupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.CreateCashTopupPending(r.Context(), driverID, service.TopupInput{
		CollectionPointID: req.CollectionPointID,
		Amount:            req.Amount,
		Currency:          req.Currency,
	})
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusCreated, map[string]interface{}{
		"collection_id":  result.Collection.ID,
		"transaction_id": result.Transaction.ID,
		"status":         result.Collection.Status,
	})
}

// ConfirmTopupRequest represents the request body for confirming a top-up.
type ConfirmTopupRequest struct {
	CollectorID int64 `json:"collector_id"`
}

// ConfirmTopup credits the wallet once the cash has been counted.
// POST /topups/{collectionID}/confirm
func (h *PaymentHandler) ConfirmTopup(w http.ResponseWriter, r *http.Request) {
	collectionID, err := strconv.ParseInt(chi.URLParam(r, "collectionID"), 10, 64)
	if err != nil || collectionID <= 0 {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	var req ConfirmTopupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.ConfirmCashTopup(r.Context(), collectionID, req.CollectorID)
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}
	respondWithJSON(h.logger, w, http.StatusOK, map[string]interface{}{
		"collection_id":     result.Collection.ID,
		"status":            result.Collection.Status,
		"new_balance":       result.Wallet.CurrentBalance,
		"already_confirmed": result.AlreadyConfirmed,
		"wallet_unblocked":  result.WalletUnblocked,
	})
}

// RefundRequest represents the request body for refunding an order. Mode is
// "immediate" (undo within the policy window) or "normal" (off-platform cash
// refund through a collection point).
type RefundRequest struct {
	Mode              string          `json:"mode"`
	AdminID           int64           `json:"admin_id"`
	Reason            string          `json:"reason,omitempty"`
	CollectionPointID int64           `json:"collection_point_id,omitempty"`
	Amount            decimal.Decimal `json:"amount,omitempty"`
}

// RefundOrder runs one of the two refund paths for a paid order.
// POST /orders/{orderID}/refund
func (h *PaymentHandler) RefundOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	var result *service.RefundResult
	switch req.Mode {
	case "immediate":
		result, err = h.service.ProcessImmediateRefund(r.Context(), orderID, service.ImmediateRefundInput{
			AdminID: req.AdminID,
			Reason:  req.Reason,
		})
	case "normal":
		result, err = h.service.ProcessNormalRefund(r.Context(), orderID, service.NormalRefundInput{
			AdminID:           req.AdminID,
			CollectionPointID: req.CollectionPointID,
			Amount:            req.Amount,
			Reason:            req.Reason,
		})
	default:
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	if result.UseNormalFlow {
		respondWithJSON(h.logger, w, http.StatusUnprocessableEntity, map[string]interface{}{
			"use_normal_flow": true,
			"message":         "Policy window elapsed; use the normal refund flow",
		})
		return
	}

	payload := map[string]interface{}{
		"refund_transaction_id": result.Refund.ID,
		"already_refunded":      result.AlreadyRefunded,
	}
	if result.CommissionRevert != nil {
		payload["commission_revert_transaction_id"] = result.CommissionRevert.ID
	}
	code := http.StatusCreated
	if result.AlreadyRefunded {
		code = http.StatusOK
	}
	respondWithJSON(h.logger, w, code, payload)
}

// AdjustmentRequest represents the request body for a commission adjustment.
// Exactly one of delta_fee or new_fee must be present.
type AdjustmentRequest struct {
	AdjustmentSeq string           `json:"adjustment_seq"`
	DeltaFee      *decimal.Decimal `json:"delta_fee,omitempty"`
	NewFee        *decimal.Decimal `json:"new_fee,omitempty"`
	Reason        string           `json:"reason"`
	MaxAbsDelta   *decimal.Decimal `json:"max_abs_delta,omitempty"`
}

// AdjustCommission applies a sequenced post-facto commission correction.
// POST /orders/{orderID}/commission-adjustments
func (h *PaymentHandler) AdjustCommission(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil || orderID <= 0 {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	var req AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(h.logger, w, util.ErrInvalidInput)
		return
	}

	result, err := h.service.AdjustCommission(r.Context(), orderID, service.AdjustmentInput{
		AdjustmentSeq: req.AdjustmentSeq,
		DeltaFee:      req.DeltaFee,
		NewFee:        req.NewFee,
		Reason:        req.Reason,
		MaxAbsDelta:   req.MaxAbsDelta,
	})
	if err != nil {
		respondWithError(h.logger, w, err)
		return
	}

	payload := map[string]interface{}{
		"adjustment_id":   result.Adjustment.ID,
		"delta_fee":       result.Adjustment.DeltaFee,
		"new_fee":         result.Adjustment.NewFee,
		"already_existed": result.AlreadyExisted,
		"no_op":           result.NoOp,
	}
	if result.Transaction != nil {
		payload["transaction_id"] = result.Transaction.ID
	}
	code := http.StatusCreated
	if result.AlreadyExisted {
		code = http.StatusOK
	}
	respondWithJSON(h.logger, w, code, payload)
}
