package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatherly/backend/internal/domain/event"
	"github.com/gatherly/backend/internal/domain/events"
	"github.com/gatherly/backend/internal/domain/notification"
	"github.com/gatherly/backend/internal/infrastructure/cache"
	"github.com/gatherly/backend/internal/infrastructure/persistence/postgres/connection"
	"github.com/gatherly/backend/internal/infrastructure/persistence/postgres/migrations"
	"github.com/gatherly/backend/internal/infrastructure/scheduler"
	"github.com/gatherly/backend/pkg/config"
	"github.com/gatherly/backend/pkg/logger"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

// RequestLoggerMiddleware logs all incoming HTTP requests
func RequestLoggerMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("Request completed",
			zap.String("path", path),
			zap.String("method", method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		stdlog.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	log := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	log.Info("Configuration loaded successfully")
	log.Info("Server mode: " + cfg.Server.Mode)

	// Set up Gin
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}
	gin.DefaultWriter = os.Stdout

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(log))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	// Add Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Connect to database
	db, err := connection.NewDatabase(cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if err := migrations.AutoMigrate(db, log.Logger); err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize Redis
	redisConfig := cache.NewConfigFromEnv(cfg)
	redisClient, err := cache.NewRedisClient(redisConfig)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Fan dashboard events out to the cache invalidator so cached views are
	// dropped as soon as the underlying event changes. The subscriber exits
	// when the shutdown context is cancelled.
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	go func() {
		err := redisClient.SubscribeToDashboardEvents(subCtx, func(ev *events.DashboardEvent) error {
			if ev.EventType != events.DashboardEventCacheInvalidate {
				log.Info("Dashboard event received",
					zap.String("event_type", ev.EventType),
					zap.String("user_id", ev.UserID.String()),
				)
			}
			return redisClient.InvalidateDashboardCache(subCtx, ev.UserID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Dashboard subscription ended", zap.Error(err))
		}
	}()

	// Initialize logrus logger for the notification domain
	notificationLogger := logrus.New()
	notificationLogger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Server.Mode == "production" {
		notificationLogger.SetLevel(logrus.InfoLevel)
	} else {
		notificationLogger.SetLevel(logrus.DebugLevel)
	}

	// Initialize repositories and services
	eventRepo := event.NewRepository(db.DB)
	notificationRepo := notification.NewRepository(db.DB)

	// Real email delivery is opt-in; with it disabled every send lands in the
	// log instead.
	var mailer notification.Mailer
	if cfg.Notification.EmailEnabled {
		mailer = notification.NewSMTPMailer(
			cfg.Notification.SMTPHost,
			cfg.Notification.SMTPPort,
			cfg.Notification.SMTPUsername,
			cfg.Notification.SMTPPassword,
			cfg.Notification.FromAddress,
		)
	} else {
		mailer = notification.NewLogMailer(notificationLogger, cfg.Notification.FromAddress)
	}
	notificationService := notification.NewService(notification.ServiceConfig{
		Repository: notificationRepo,
		Mailer:     mailer,
		Logger:     notificationLogger,
	})

	tally := event.NewTally(eventRepo)
	eventService := event.NewService(eventRepo, tally, notificationService, redisClient, log.Logger)
	recurrenceEngine := event.NewRecurrenceEngine(eventRepo, redisClient, log.Logger)

	// Initialize and start the scheduler
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(
			eventService,
			eventRepo,
			notificationService,
			recurrenceEngine,
			scheduler.IntervalsFromConfig(cfg.Scheduler),
			log,
		)
		sched.Start()
	} else {
		log.Warn("Scheduler is disabled; no background workers will run")
	}

	// Health check routes
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC(),
		})
	})
	router.GET("/health/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
		})
	})
	router.GET("/health/cache", func(c *gin.Context) {
		if err := redisClient.HealthCheck(c); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"component": "cache",
				"error":     err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"component": "cache",
			"metrics":   redisClient.GetMetrics(),
		})
	})

	// Start server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info(fmt.Sprintf("Server starting on port %d", cfg.Server.Port))
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")

	// Stop workers first so no cycle starts against a closing database.
	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited properly")
}
