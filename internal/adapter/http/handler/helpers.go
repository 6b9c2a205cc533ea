package handler

import (
	"chainpay-gateway/internal/adapter/http/middleware"
	"chainpay-gateway/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// merchantFromContext returns the authenticated merchant id set by the
// JWT middleware.
func merchantFromContext(c *gin.Context) (uuid.UUID, error) {
	v, ok := c.Get(middleware.CtxMerchantID)
	if !ok {
		return uuid.Nil, apperror.ErrInvalidToken()
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return uuid.Nil, apperror.ErrInvalidToken()
	}
	return id, nil
}

// parseAmount parses a decimal-string amount from a request body.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, apperror.Validation("amount must be a decimal string")
	}
	return d, nil
}

// parseUUID parses a uuid path or body parameter.
func parseUUID(s, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.Validation(name + " must be a valid uuid")
	}
	return id, nil
}
