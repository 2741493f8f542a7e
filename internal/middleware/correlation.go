package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ingestion-gateway/internal/logger"
)

const CorrelationIDKey = "correlation_id"

type correlationKey struct{}

// CorrelationID propagates or generates X-Correlation-ID and attaches a
// request-scoped logger carrying it to the request context.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader("X-Correlation-ID")
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		c.Set(CorrelationIDKey, correlationID)
		c.Header("X-Correlation-ID", correlationID)

		ctx := context.WithValue(c.Request.Context(), correlationKey{}, correlationID)
		ctx, _ = logger.WithFields(ctx, map[string]any{CorrelationIDKey: correlationID})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CorrelationIDFromContext returns the ID set by CorrelationID, if any.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// GetCorrelationID reads the correlation ID from a gin context.
func GetCorrelationID(c *gin.Context) string {
	if correlationID, exists := c.Get(CorrelationIDKey); exists {
		if id, ok := correlationID.(string); ok {
			return id
		}
	}
	return ""
}
