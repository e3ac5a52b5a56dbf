// Package handler holds the admin surface's gin handlers.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kpopdotlink/fleetcron/internal/health"
)

// HealthHandler serves /healthz and /readyz from a *health.Checker.
type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, h.checker.Liveness(c.Request.Context()))
}

func (h *HealthHandler) Readiness(c *gin.Context) {
	result := h.checker.Readiness(c.Request.Context())
	status := http.StatusOK
	if result.Status != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, result)
}
