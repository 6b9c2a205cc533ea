package handler

import (
	"chainpay-gateway/internal/adapter/http/dto"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler serves the reconciliation view of raw ledger
// operations.
type LedgerHandler struct {
	recon ports.ReconciliationService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(recon ports.ReconciliationService) *LedgerHandler {
	return &LedgerHandler{recon: recon}
}

// Operations handles GET /ledger/operations?account=...&cursor=...
// A mid-walk upstream failure still returns 200: the payload carries
// what was collected, with partial=true and the resume cursor.
func (h *LedgerHandler) Operations(c *gin.Context) {
	account := c.Query("account")
	if account == "" {
		response.Error(c, apperror.Validation("account query parameter is required"))
		return
	}
	cursor := c.Query("cursor")

	res, err := h.recon.SyncOperations(c.Request.Context(), account, cursor)
	if err != nil && (res == nil || !res.Partial) {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromSyncResult(res))
}
