package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"ingestion-gateway/internal/utils"
	"ingestion-gateway/pkg/response"
)

// RateLimiterConfig configuration for rate limiting
type RateLimiterConfig struct {
	// Requests per minute
	RPM int `json:"rpm"`
	// Burst size
	Burst int `json:"burst"`
	// Cleanup interval for inactive clients
	CleanupInterval time.Duration `json:"cleanupInterval"`
}

// DefaultRateLimiterConfig returns default configuration
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		RPM:             60,
		Burst:           10,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimiter implements per-client rate limiting middleware
type RateLimiter struct {
	config  RateLimiterConfig
	clients map[string]*ClientLimiter
	mutex   sync.Mutex
	done    chan struct{}
}

// ClientLimiter represents rate limiter for a specific client
type ClientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter and starts its cleanup loop.
// Call Stop to end the loop.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.RPM <= 0 {
		config.RPM = 60
	}
	if config.Burst <= 0 {
		config.Burst = 10
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}

	rl := &RateLimiter{
		config:  config,
		clients: make(map[string]*ClientLimiter),
		done:    make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// RateLimit creates a rate limiting middleware
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := rl.getClientID(c)

		rl.mutex.Lock()
		client, exists := rl.clients[clientID]
		if !exists {
			client = &ClientLimiter{
				limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.config.RPM)), rl.config.Burst),
			}
			rl.clients[clientID] = client
		}
		client.lastSeen = time.Now()
		rl.mutex.Unlock()

		if !client.limiter.Allow() {
			rl.rateLimitExceeded(c)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.RPM))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(int(client.limiter.Tokens())))

		c.Next()
	}
}

// getClientID keys clients by API key when present, otherwise by IP
func (rl *RateLimiter) getClientID(c *gin.Context) string {
	if apiKey := c.GetHeader("X-API-Key"); apiKey != "" {
		return "apikey:" + apiKey
	}

	clientIP := c.ClientIP()
	if clientIP == "" {
		clientIP = "unknown"
	}
	return "ip:" + clientIP
}

func (rl *RateLimiter) rateLimitExceeded(c *gin.Context) {
	c.JSON(http.StatusTooManyRequests, response.ErrorResponse(
		utils.ErrCodeRateLimitExceeded,
		"Rate limit exceeded. Please try again later.",
		"Maximum "+strconv.Itoa(rl.config.RPM)+" requests per minute allowed",
		GetCorrelationID(c),
	))
	c.Abort()
}

// cleanup removes inactive clients
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case <-ticker.C:
			rl.mutex.Lock()
			now := time.Now()
			for clientID, client := range rl.clients {
				if now.Sub(client.lastSeen) > rl.config.CleanupInterval {
					delete(rl.clients, clientID)
				}
			}
			rl.mutex.Unlock()
		}
	}
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// ActiveClients returns how many clients are currently tracked
func (rl *RateLimiter) ActiveClients() int {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	return len(rl.clients)
}
