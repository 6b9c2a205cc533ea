package http

import (
	"chainpay-gateway/config"
	"chainpay-gateway/internal/adapter/http/handler"
	"chainpay-gateway/internal/adapter/http/middleware"
	"chainpay-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	Auth           *handler.AuthHandler
	Payments       *handler.PaymentHandler
	Withdrawals    *handler.WithdrawalHandler
	Ledger         *handler.LedgerHandler
	Health         *handler.HealthHandler
	Tokens         ports.TokenService
	RateLimitStore middleware.RateLimitStore
	Log            zerolog.Logger
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(cfg config.ServerConfig, deps RouterDeps) *gin.Engine {
	gin.SetMode(cfg.Mode)

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(deps.Log),
		middleware.Recovery(deps.Log),
		middleware.MaxBodySize(maxBodyBytes),
	)

	r.GET("/healthz", deps.Health.Live)
	r.GET("/readyz", deps.Health.Ready)

	rules := middleware.DefaultRateLimitRules()
	authed := middleware.JWTAuth(deps.Tokens)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		auth.Use(middleware.RateLimiter(deps.RateLimitStore, rules["auth"], deps.Log))
		{
			auth.POST("/login", deps.Auth.Login)
		}

		payments := api.Group("/payments")
		payments.Use(authed, middleware.RateLimiter(deps.RateLimitStore, rules["payment"], deps.Log))
		{
			payments.POST("", deps.Payments.Create)
			payments.POST("/approve", deps.Payments.Approve)
			payments.POST("/complete", deps.Payments.Complete)
			payments.POST("/fail", deps.Payments.Fail)
			payments.POST("/:id/cancel", deps.Payments.Cancel)
		}

		merchant := api.Group("")
		merchant.Use(authed, middleware.RateLimiter(deps.RateLimitStore, rules["default"], deps.Log))
		{
			merchant.GET("/transactions", deps.Payments.ListTransactions)
			merchant.POST("/withdrawals", deps.Withdrawals.Request)
			merchant.GET("/ledger/operations", deps.Ledger.Operations)
		}

		admin := api.Group("/admin")
		admin.Use(authed, middleware.AdminOnly(), middleware.RateLimiter(deps.RateLimitStore, rules["default"], deps.Log))
		{
			admin.GET("/withdrawals", deps.Withdrawals.ListPending)
			admin.POST("/withdrawals/:id/approve", deps.Withdrawals.Approve)
			admin.POST("/withdrawals/:id/reject", deps.Withdrawals.Reject)
		}
	}

	return r
}
