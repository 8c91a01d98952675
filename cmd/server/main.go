package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mentorkita/service-booking/internal/application"
	"github.com/mentorkita/service-booking/internal/authz"
	"github.com/mentorkita/service-booking/internal/config"
	bookingDomain "github.com/mentorkita/service-booking/internal/domain/booking"
	"github.com/mentorkita/service-booking/internal/events"
	"github.com/mentorkita/service-booking/internal/handler"
	"github.com/mentorkita/service-booking/internal/notify"
	"github.com/mentorkita/service-booking/internal/platform/auth"
	"github.com/mentorkita/service-booking/internal/platform/database"
	"github.com/mentorkita/service-booking/internal/platform/health"
	"github.com/mentorkita/service-booking/internal/platform/kafka"
	"github.com/mentorkita/service-booking/internal/platform/logger"
	"github.com/mentorkita/service-booking/internal/platform/middleware"
	"github.com/mentorkita/service-booking/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-booking")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-booking",
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(
			&repository.MentorProfileModel{},
			&repository.AvailabilityWindowModel{},
			&repository.BookingModel{},
			&repository.PaymentModel{},
			&repository.ReviewModel{},
		); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.URL(), "migrations", log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		15*time.Minute,
		7*24*time.Hour,
	)

	// Initialize Kafka producer and notifier
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()
	notifier := notify.NewKafkaNotifier(kafkaProducer, "service-booking", log)

	// Initialize repositories
	bookingRepo := repository.NewGormBookingRepository(db)
	mentorRepo := repository.NewGormMentorRepository(db)
	availabilityRepo := repository.NewGormAvailabilityRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)
	reviewRepo := repository.NewGormReviewRepository(db)

	// Initialize policy and pricing strategy
	policy := authz.NewPolicy()
	pricingStrategy := bookingDomain.NewHourlyPricingStrategy()

	// Initialize application services
	bookingService := application.NewBookingService(
		bookingRepo,
		mentorRepo,
		pricingStrategy,
		policy,
		notifier,
		log,
	)
	paymentService := application.NewPaymentService(
		paymentRepo,
		bookingRepo,
		mentorRepo,
		policy,
		notifier,
		log,
	)
	reviewService := application.NewReviewService(reviewRepo, bookingRepo, policy, log)
	availabilityService := application.NewAvailabilityService(availabilityRepo, mentorRepo, policy, log)
	mentorService := application.NewMentorService(mentorRepo, log)

	// Initialize and start gateway event consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	groupID := cfg.KafkaConfig.GroupPrefix + "booking-service"
	gatewayConsumer := events.NewGatewayEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		paymentService,
		log,
	)
	defer func() { _ = gatewayConsumer.Close() }()

	go func() {
		log.Info("starting gateway event consumer")
		if err := gatewayConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("gateway event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	bookingHandler := handler.NewBookingHandler(bookingService)
	paymentHandler := handler.NewPaymentHandler(paymentService, cfg.GatewayConfig.WebhookSecret)
	reviewHandler := handler.NewReviewHandler(reviewService)
	mentorHandler := handler.NewMentorHandler(mentorService, availabilityService)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-booking")
	healthHandler.RegisterRoutes(router)

	// Register routes
	bookingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	paymentHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	reviewHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	mentorHandler.RegisterRoutes(&router.RouterGroup, jwtManager)

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-booking...")

	// Cancel the consumer context
	cancel()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-booking stopped")
}
