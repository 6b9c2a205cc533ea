package handler

import (
	"strconv"

	"chainpay-gateway/internal/adapter/http/dto"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the three-phase payment handshake and the
// merchant's transaction history.
type PaymentHandler struct {
	handshake ports.HandshakeService
	txRepo    ports.TransactionRepository
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(handshake ports.HandshakeService, txRepo ports.TransactionRepository) *PaymentHandler {
	return &PaymentHandler{handshake: handshake, txRepo: txRepo}
}

// Create handles POST /payments.
func (h *PaymentHandler) Create(c *gin.Context) {
	merchantID, err := merchantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("amount is required"))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	intent, err := h.handshake.CreateIntent(c.Request.Context(), ports.CreateIntentRequest{
		MerchantID: merchantID,
		BaseAmount: amount,
		Currency:   req.Currency,
		Memo:       req.Memo,
		Metadata:   req.Metadata,
		Payer:      req.Payer,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromPaymentIntent(intent))
}

// Approve handles POST /payments/approve, the onReadyForServerApproval
// callback.
func (h *PaymentHandler) Approve(c *gin.Context) {
	merchantID, err := merchantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.ApprovePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("payment_id, intent_id and amount are required"))
		return
	}

	intentID, err := parseUUID(req.IntentID, "intent_id")
	if err != nil {
		response.Error(c, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	intent, err := h.handshake.ApprovePayment(c.Request.Context(), ports.ApprovePaymentRequest{
		ExternalPaymentID: req.PaymentID,
		IntentID:          intentID,
		ReportedAmount:    amount,
		MerchantID:        merchantID,
		Payer:             req.Payer,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Complete handles POST /payments/complete, the
// onReadyForServerCompletion callback.
func (h *PaymentHandler) Complete(c *gin.Context) {
	var req dto.CompletePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("payment_id and tx_hash are required"))
		return
	}

	intent, err := h.handshake.CompletePayment(c.Request.Context(), ports.CompletePaymentRequest{
		ExternalPaymentID: req.PaymentID,
		TxHash:            req.TxHash,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Cancel handles POST /payments/:id/cancel.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	intentID, err := parseUUID(c.Param("id"), "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	intent, err := h.handshake.CancelPayment(c.Request.Context(), intentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Fail handles POST /payments/fail, the SDK onError callback.
func (h *PaymentHandler) Fail(c *gin.Context) {
	var req dto.FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("payment_id is required"))
		return
	}

	if err := h.handshake.FailPayment(c.Request.Context(), req.PaymentID, req.Reason); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"acknowledged": true})
}

// ListTransactions handles GET /transactions.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	merchantID, err := merchantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	txns, err := h.txRepo.ListByMerchant(c.Request.Context(), merchantID, limit, offset)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	out := make([]dto.TransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, dto.FromTransaction(&txns[i]))
	}
	response.OK(c, out)
}
