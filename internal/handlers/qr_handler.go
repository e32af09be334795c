package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/fieldforce/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type QRHandler struct {
	payments *services.PaymentService
	service  *services.QRService
	log      *zap.Logger
}

func NewQRHandler(payments *services.PaymentService, service *services.QRService, log *zap.Logger) *QRHandler {
	return &QRHandler{
		payments: payments,
		service:  service,
		log:      log.Named("receipts"),
	}
}

// GenerateReceipt issues a QR receipt for a payment batch
// @Summary Generate payment receipt
// @Description Issue a QR code that verifies a finalized payment batch
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param batchId path string true "Payment batch ID"
// @Success 201 {object} object{success=bool,code=string,qrImage=string}
// @Failure 404 {object} services.ErrorResponse
// @Failure 503 {object} services.ErrorResponse "Receipts unavailable"
// @Router /payments/batches/{batchId}/receipt [post]
func (h *QRHandler) GenerateReceipt(w http.ResponseWriter, r *http.Request) {
	_, batch, ok := h.payments.BatchFromRequest(w, r)
	if !ok {
		return
	}

	code, qrImage, err := h.service.GenerateReceipt(r.Context(), batch)
	if err != nil {
		services.WriteError(w, h.log, err)
		return
	}

	h.log.Info("payment receipt issued", zap.String("batch_id", batch.ID))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"code":    code,
		"qrImage": qrImage,
	})
}

// VerifyReceipt resolves a scanned receipt code
// @Summary Verify payment receipt
// @Description Resolve a receipt code to the payment it proves
// @Tags payments
// @Produce json
// @Param code path string true "Receipt code"
// @Success 200 {object} object{success=bool,data=services.Receipt}
// @Failure 404 {object} services.ErrorResponse
// @Router /payments/receipts/{code} [get]
func (h *QRHandler) VerifyReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.VerifyReceipt(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		services.WriteError(w, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"data":    receipt,
	})
}
