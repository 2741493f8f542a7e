package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingestion-gateway/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withTestMetrics(t *testing.T) *PrometheusMetrics {
	t.Helper()
	prev := metrics
	metrics = newMetrics(promauto.With(prometheus.NewRegistry()))
	t.Cleanup(func() { metrics = prev })
	return metrics
}

func TestCorrelationIDPropagatesAndGenerates(t *testing.T) {
	r := gin.New()
	r.Use(CorrelationID())
	var fromCtx string
	var hasLogger bool
	r.GET("/x", func(c *gin.Context) {
		fromCtx = CorrelationIDFromContext(c.Request.Context())
		hasLogger = logger.FromContext(c.Request.Context()) != nil
		c.String(http.StatusOK, GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Correlation-ID", "given-id")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given-id", w.Body.String())
	assert.Equal(t, "given-id", w.Header().Get("X-Correlation-ID"))
	assert.Equal(t, "given-id", fromCtx)
	assert.True(t, hasLogger)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Len(t, w.Header().Get("X-Correlation-ID"), 36)
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RPM: 1, Burst: 2})
	defer rl.Stop()

	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	for i := range codes {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
		codes[i] = w.Code
		if i == 0 {
			assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 1, rl.ActiveClients())

	// a different API key is a different client
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-API-Key", "other")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPrometheusMiddlewareRecordsRoute(t *testing.T) {
	m := withTestMetrics(t)

	r := gin.New()
	r.Use(PrometheusMiddleware())
	r.GET("/ingestion/tables", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ingestion/tables", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HttpRequestsTotal.WithLabelValues("GET", "/ingestion/tables", "200")))
}

func TestRecordTransfer(t *testing.T) {
	m := withTestMetrics(t)

	RecordTransfer("export", nil, time.Second, 42)
	RecordTransfer("export", errors.New("boom"), time.Second, 0)
	RecordPreview("flatfile", nil)
	UpdateStoreHealth("clickhouse", true, 1, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersTotal.WithLabelValues("export", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TransfersTotal.WithLabelValues("export", "failure")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.TransferRows.WithLabelValues("export")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PreviewsTotal.WithLabelValues("flatfile", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreUp.WithLabelValues("clickhouse")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ConnectionPoolIdle.WithLabelValues("clickhouse")))
}
