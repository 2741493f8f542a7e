package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"ingestion-gateway/internal/app"
	"ingestion-gateway/internal/config"
	"ingestion-gateway/internal/controller"
	"ingestion-gateway/internal/logger"
	"ingestion-gateway/internal/middleware"
)

var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.InitMetrics()

	// Initialize transfer engine
	application, err := app.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize transfer engine")
	}
	defer application.Close()

	// Initialize rate limiting
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RPM:             cfg.Security.RateLimitPerMinute,
		Burst:           cfg.Security.RateLimitBurst,
		CleanupInterval: 5 * time.Minute,
	})
	defer rateLimiter.Stop()

	// Initialize controllers
	ingestionController := controller.NewIngestionController(application.Transfers, application.Uploads)
	healthController := controller.NewHealthController(application.HealthChecker, version)

	// Create Gin router
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.PrometheusMiddleware())

	// Health and metrics stay outside the rate limit
	router.GET("/health", healthController.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/ingestion")
	if cfg.Security.EnableRateLimit {
		api.Use(rateLimiter.RateLimit())
	}
	ingestionController.RegisterRoutes(api)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store.Driver).
			Str("output_dir", cfg.Transfer.OutputDir).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
}
