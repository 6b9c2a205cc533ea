package handler

import (
	"chainpay-gateway/internal/adapter/http/dto"
	"chainpay-gateway/internal/core/ports"
	"chainpay-gateway/pkg/apperror"
	"chainpay-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler serves authentication endpoints.
type AuthHandler struct {
	auth ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth ports.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("username and password are required"))
		return
	}

	token, expiresAt, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.LoginResponse{Token: token, ExpiresAt: expiresAt})
}
