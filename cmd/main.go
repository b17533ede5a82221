package main

import (
	"strconv"
	"time"

	"offer-service/internal/handler"
	"offer-service/internal/middleware"
	"offer-service/internal/service"
	"offer-service/pkg/config"
	"offer-service/pkg/database"
	"offer-service/pkg/gotenberg"
	"offer-service/pkg/jwtutil"
	"offer-service/pkg/llm"
	"offer-service/pkg/logger"
	"offer-service/pkg/raynet"
	"offer-service/pkg/storage"
	"offer-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting offer service...", cfg.LogConfig()...)

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	if jwtutil.Enabled() {
		log.Info("JWT utilities initialized")
	} else {
		log.Info("No JWT signing key configured, requests stay anonymous")
	}

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize database and run migrations
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_host", cfg.DB.Host), zap.String("db_name", cfg.DB.DBName))

	// Artifact storage for description uploads and rendered PDFs
	store := storage.NewFileStore(cfg.Storage.DataDir)

	// External collaborators
	aiClient := llm.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout)
	pdfClient := gotenberg.NewClient(cfg.Gotenberg.URL)
	crmClient := raynet.NewClient(cfg.Raynet.BaseURL, cfg.Raynet.Login, cfg.Raynet.APIKey, cfg.Raynet.Timeout, log)
	if !crmClient.IsConfigured() {
		log.Warn("Raynet credentials not configured, CRM reads return empty and writes fail")
	}

	// Services. Generation and write-back share one lock set so concurrent
	// runs on the same offer are serialized across both flows.
	locks := service.NewOfferLocks()
	offers := service.NewOfferService(db, store, log)
	pipeline := service.NewGenerationPipeline(db, offers, store, aiClient, pdfClient, locks, log)
	writeback := service.NewWritebackService(db, offers, store, crmClient, locks, log)
	sync := service.NewSyncService(db, crmClient, log)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(middleware.IdentityMiddleware)

	// Request logging middleware
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Process request
			err := next(c)

			// Calculate duration
			duration := time.Since(start).Seconds()
			status := c.Response().Status

			// Log request details
			log := logger.FromContext(c)
			log.Info("HTTP Request",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Int("status", status),
				zap.Float64("duration_s", duration),
				zap.String("ip", c.RealIP()),
			)

			// Update Prometheus metrics
			prometheus.HttpRequestsTotal.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Inc()

			prometheus.HttpRequestDuration.WithLabelValues(
				c.Request().Method,
				c.Path(),
				strconv.Itoa(status),
			).Observe(duration)

			return err
		}
	})

	// Routes
	// Public routes that don't require authentication
	e.GET("/", handler.Hello)
	e.GET("/health", handler.Hello)

	// Prometheus metrics endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")

	// Offer lifecycle endpoints
	offerHandler := handler.NewOfferHandler(offers, pipeline, writeback)
	offerHandler.Register(api.Group("/offers"))

	// CRM read-cache endpoints
	crmHandler := handler.NewCRMHandler(sync)
	crmHandler.Register(api.Group("/crm"))

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
