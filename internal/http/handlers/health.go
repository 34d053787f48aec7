package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/mumble-backend/internal/services"
)

type HealthHandler struct {
	health services.HealthService
}

func NewHealthHandler(health services.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// GET /api/v1/health. Degraded dependencies are reported in the body; the
// status code stays 200.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.health == nil {
		c.String(http.StatusOK, "ok")
		return
	}
	c.JSON(http.StatusOK, h.health.Check(c.Request.Context()))
}
