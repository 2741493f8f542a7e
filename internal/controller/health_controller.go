package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ingestion-gateway/internal/database"
	"ingestion-gateway/internal/middleware"
)

type HealthResponse struct {
	Status    string                      `json:"status"`
	Timestamp time.Time                   `json:"timestamp"`
	Service   string                      `json:"service"`
	Version   string                      `json:"version"`
	Store     *database.HealthCheckResult `json:"store"`
}

type HealthController struct {
	healthChecker *database.HealthChecker
	version       string
}

func NewHealthController(healthChecker *database.HealthChecker, version string) *HealthController {
	return &HealthController{
		healthChecker: healthChecker,
		version:       version,
	}
}

// HealthCheck godoc
// @Summary Liveness including a store ping
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (hc *HealthController) HealthCheck(c *gin.Context) {
	result := hc.healthChecker.Check(c.Request.Context())
	middleware.UpdateStoreHealth(result.Driver, result.Healthy(), result.Pool.InUse, result.Pool.Idle)

	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   "ingestion-gateway",
		Version:   hc.version,
		Store:     result,
	}

	statusCode := http.StatusOK
	if !result.Healthy() {
		resp.Status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}
	c.JSON(statusCode, resp)
}
