package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics holds all Prometheus metrics
type PrometheusMetrics struct {
	// HTTP request metrics
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec
	HttpRequestSize     *prometheus.HistogramVec

	// Transfer metrics
	TransfersTotal   *prometheus.CounterVec
	TransferDuration *prometheus.HistogramVec
	TransferRows     *prometheus.CounterVec
	PreviewsTotal    *prometheus.CounterVec

	// Store metrics
	StoreUp              *prometheus.GaugeVec
	ConnectionPoolActive *prometheus.GaugeVec
	ConnectionPoolIdle   *prometheus.GaugeVec
}

var (
	metrics     *PrometheusMetrics
	metricsOnce sync.Once
)

// InitMetrics registers all Prometheus metrics with the default registry.
// Calling it more than once is a no-op.
func InitMetrics() {
	metricsOnce.Do(func() {
		metrics = newMetrics(promauto.With(prometheus.DefaultRegisterer))
	})
}

func newMetrics(factory promauto.Factory) *PrometheusMetrics {
	return &PrometheusMetrics{
		HttpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		HttpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingestion_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		HttpRequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingestion_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 100000000},
			},
			[]string{"method", "endpoint"},
		),

		TransfersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_transfers_total",
				Help: "Total number of transfers by direction and outcome",
			},
			[]string{"direction", "status"},
		),
		TransferDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingestion_transfer_duration_seconds",
				Help:    "Transfer duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
			},
			[]string{"direction"},
		),
		TransferRows: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_transfer_rows_total",
				Help: "Total number of rows moved by successful transfers",
			},
			[]string{"direction"},
		),
		PreviewsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingestion_previews_total",
				Help: "Total number of previews by source and outcome",
			},
			[]string{"source", "status"},
		),

		StoreUp: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ingestion_store_up",
				Help: "Whether the store answered the last health check (1=up, 0=down)",
			},
			[]string{"driver"},
		),
		ConnectionPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ingestion_connection_pool_active",
				Help: "Number of in-use store connections",
			},
			[]string{"driver"},
		),
		ConnectionPoolIdle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ingestion_connection_pool_idle",
				Help: "Number of idle store connections",
			},
			[]string{"driver"},
		),
	}
}

// GetMetrics returns the initialized metrics
func GetMetrics() *PrometheusMetrics {
	return metrics
}

// PrometheusMiddleware is a Gin middleware that records HTTP metrics
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}

		metrics.HttpRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
		metrics.HttpRequestDuration.WithLabelValues(method, endpoint).Observe(duration)
		if c.Request.ContentLength > 0 {
			metrics.HttpRequestSize.WithLabelValues(method, endpoint).Observe(float64(c.Request.ContentLength))
		}
	}
}

func statusLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordTransfer records the outcome of an export or import
func RecordTransfer(direction string, err error, duration time.Duration, rows int64) {
	if metrics == nil {
		return
	}

	metrics.TransfersTotal.WithLabelValues(direction, statusLabel(err)).Inc()
	metrics.TransferDuration.WithLabelValues(direction).Observe(duration.Seconds())
	if err == nil && rows > 0 {
		metrics.TransferRows.WithLabelValues(direction).Add(float64(rows))
	}
}

// RecordPreview records the outcome of a preview
func RecordPreview(source string, err error) {
	if metrics == nil {
		return
	}
	metrics.PreviewsTotal.WithLabelValues(source, statusLabel(err)).Inc()
}

// UpdateStoreHealth updates store health and pool metrics
func UpdateStoreHealth(driver string, up bool, active, idle int) {
	if metrics == nil {
		return
	}

	upValue := 0.0
	if up {
		upValue = 1.0
	}
	metrics.StoreUp.WithLabelValues(driver).Set(upValue)
	metrics.ConnectionPoolActive.WithLabelValues(driver).Set(float64(active))
	metrics.ConnectionPoolIdle.WithLabelValues(driver).Set(float64(idle))
}
