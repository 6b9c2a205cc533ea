package handler

import (
	"context"
	"net/http"
	"time"

	"chainpay-gateway/internal/core/ports"

	"github.com/gin-gonic/gin"
)

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checkers []ports.HealthChecker
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(checkers ...ports.HealthChecker) *HealthHandler {
	return &HealthHandler{checkers: checkers}
}

// Live handles GET /healthz: the process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /readyz: every dependency answers a ping.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := gin.H{}
	for _, checker := range h.checkers {
		if err := checker.Ping(ctx); err != nil {
			deps[checker.Name()] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[checker.Name()] = "ok"
		}
	}

	c.JSON(status, gin.H{"status": statusWord(status), "dependencies": deps})
}

func statusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
