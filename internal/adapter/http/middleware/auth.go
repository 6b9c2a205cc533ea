package middleware

import (
	"strings"

	"chainpay-gateway/internal/core/domain"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWTAuth.
const (
	CtxMerchantID = "merchant_id"
	CtxRole       = "role"
)

// JWTAuth validates the bearer token and stores the merchant identity
// on the context.
func JWTAuth(tokens ports.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Abort()
			response.Error(c, apperror.ErrInvalidToken())
			return
		}

		claims, err := tokens.Validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.Abort()
			response.Error(c, apperror.ErrInvalidToken())
			return
		}

		c.Set(CtxMerchantID, claims.MerchantID)
		c.Set(CtxRole, claims.Role)
		c.Next()
	}
}

// AdminOnly rejects requests whose token does not carry the admin role.
// Must run after JWTAuth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(CtxRole)
		if !ok || role.(domain.MerchantRole) != domain.MerchantRoleAdmin {
			c.Abort()
			response.Error(c, apperror.ErrAdminRequired())
			return
		}
		c.Next()
	}
}
