package handler

import (
	"strconv"

	"chainpay-gateway/internal/adapter/http/dto"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WithdrawalHandler serves merchant payout requests and the admin
// approval queue.
type WithdrawalHandler struct {
	withdrawals    ports.WithdrawalService
	withdrawalRepo ports.WithdrawalRepository
}

// NewWithdrawalHandler creates a new WithdrawalHandler.
func NewWithdrawalHandler(withdrawals ports.WithdrawalService, withdrawalRepo ports.WithdrawalRepository) *WithdrawalHandler {
	return &WithdrawalHandler{withdrawals: withdrawals, withdrawalRepo: withdrawalRepo}
}

// Request handles POST /withdrawals.
func (h *WithdrawalHandler) Request(c *gin.Context) {
	merchantID, err := merchantFromContext(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("amount and destination are required"))
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	w, err := h.withdrawals.Request(c.Request.Context(), ports.WithdrawalRequestInput{
		MerchantID:  merchantID,
		Amount:      amount,
		Destination: req.Destination,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromWithdrawal(w))
}

// ListPending handles GET /admin/withdrawals.
func (h *WithdrawalHandler) ListPending(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	ws, err := h.withdrawalRepo.ListPending(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}

	out := make([]dto.WithdrawalResponse, 0, len(ws))
	for i := range ws {
		out = append(out, dto.FromWithdrawal(&ws[i]))
	}
	response.OK(c, out)
}

// Approve handles POST /admin/withdrawals/:id/approve.
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	withdrawalID, err := parseUUID(c.Param("id"), "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	// Body is optional: approving without a reference generates a
	// placeholder.
	var req dto.ApproveWithdrawalRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.withdrawals.Approve(c.Request.Context(), withdrawalID, req.ExternalTxRef)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromApprovalResult(res))
}

// Reject handles POST /admin/withdrawals/:id/reject.
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	withdrawalID, err := parseUUID(c.Param("id"), "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var req dto.RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("reason is required"))
		return
	}

	w, err := h.withdrawals.Reject(c.Request.Context(), withdrawalID, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromWithdrawal(w))
}
