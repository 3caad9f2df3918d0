package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dashboard-service/internal/config"
	"dashboard-service/internal/events"
	"dashboard-service/internal/handlers"
	"dashboard-service/internal/importer"
	"dashboard-service/internal/middleware"
	"dashboard-service/internal/models"
	"dashboard-service/internal/repository"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize logrus logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Auto-migrate models
	if err := db.AutoMigrate(
		&models.ImportBatch{},
		&models.ImportHistory{},
		&models.ImportMetadata{},
		&models.DuplicateCheckLog{},
		&models.Sale{},
		&models.Product{},
		&models.StockMovement{},
		&models.AdvertisingRecord{},
		&models.SettlementRecord{},
	); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis (optional - caching is disabled without it)
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			log.Printf("Warning: Redis unavailable at %s: %v", cfg.RedisAddr, err)
			log.Println("Continuing without caching...")
			redisClient = nil
		} else {
			log.Println("✓ Connected to Redis")
		}
		cancel()
	} else {
		log.Println("REDIS_ADDR not configured, caching disabled")
	}

	// Initialize Kafka event publisher (optional - graceful degradation)
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	if publisher != nil {
		log.Printf("✓ Kafka publisher initialized for topic %s", cfg.KafkaTopic)
		defer publisher.Close()
	} else {
		log.Println("KAFKA_BROKERS not configured, event publishing disabled")
	}

	// Initialize repositories
	importRepo := repository.NewImportRepository(db, redisClient)
	recordRepo := repository.NewRecordRepository(db)

	// Initialize import pipeline
	checker := importer.NewDuplicateChecker(importRepo, logger)
	var eventSink importer.EventPublisher
	if publisher != nil {
		eventSink = publisher
	}
	importService := importer.NewService(cfg, importRepo, recordRepo, eventSink, logger)

	// Initialize handlers
	importHandler := handlers.NewImportHandler(cfg, importService, importRepo, checker, logger)
	historyHandler := handlers.NewHistoryHandler(cfg, importRepo)
	reportHandler := handlers.NewReportHandler(recordRepo)
	readinessHandler := handlers.NewReadinessHandler(importRepo)

	// Initialize Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.CORSOrigins))

	// Health and metrics endpoints
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", readinessHandler.ReadinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")

	imports := api.Group("/imports")
	{
		imports.GET("/history", historyHandler.ListHistory)
		imports.GET("/history/:id", historyHandler.GetHistory)
		imports.GET("/batches/:id", historyHandler.GetBatch)

		imports.POST("/:type", importHandler.ImportFile)
		imports.POST("/:type/check-duplicate", importHandler.CheckDuplicate)
		imports.GET("/:type/template", importHandler.GetTemplate)
	}

	reports := api.Group("/reports")
	{
		reports.GET("/sales/summary", reportHandler.SalesSummary)
		reports.GET("/advertising/summary", reportHandler.AdvertisingSummary)
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Dashboard service starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down dashboard-service...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Dashboard service stopped")
}
