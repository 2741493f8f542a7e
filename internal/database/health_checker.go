package database

import (
	"context"
	"fmt"
	"time"
)

// HealthChecker reports whether the configured store is reachable
type HealthChecker struct {
	connPool *ConnectionPool
}

// NewHealthChecker creates a new HealthChecker instance
func NewHealthChecker(connPool *ConnectionPool) *HealthChecker {
	return &HealthChecker{connPool: connPool}
}

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Driver    string          `json:"driver"`
	Status    string          `json:"status"`
	Message   string          `json:"message,omitempty"`
	Latency   time.Duration   `json:"latency"`
	Pool      ConnectionStats `json:"pool"`
	CheckedAt time.Time       `json:"checkedAt"`
}

// Healthy reports whether the last check reached the store.
func (r *HealthCheckResult) Healthy() bool {
	return r.Status == "healthy"
}

// Check pings the store with the configured credentials.
func (hc *HealthChecker) Check(ctx context.Context) *HealthCheckResult {
	startTime := time.Now()

	result := &HealthCheckResult{
		Driver:    hc.connPool.Dialect().Name,
		CheckedAt: startTime,
	}

	_, err := hc.connPool.Acquire(ctx, "")
	result.Latency = time.Since(startTime)
	result.Pool = hc.connPool.Stats()

	if err != nil {
		result.Status = "unhealthy"
		result.Message = fmt.Sprintf("Connection test failed: %v", err)
	} else {
		result.Status = "healthy"
		result.Message = "Connection successful"
	}
	return result
}
