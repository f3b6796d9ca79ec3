package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/application/middleware"
	"github.com/bivex/payment-recovery/internal/clock"
	"github.com/bivex/payment-recovery/internal/domain/service"
	"github.com/bivex/payment-recovery/internal/infrastructure/config"
	"github.com/bivex/payment-recovery/internal/infrastructure/external/mailer"
	"github.com/bivex/payment-recovery/internal/infrastructure/external/processor"
	"github.com/bivex/payment-recovery/internal/infrastructure/logging"
	"github.com/bivex/payment-recovery/internal/infrastructure/persistence/pool"
	"github.com/bivex/payment-recovery/internal/infrastructure/persistence/repository"
	app_handler "github.com/bivex/payment-recovery/internal/interfaces/http/handlers"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logging.Init(cfg.Environment); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Sync()

	logging.Logger.Info("Starting payment recovery API server",
		zap.Int("port", cfg.Server.Port),
		zap.String("environment", cfg.Environment),
	)

	// Initialize database connection
	ctx := context.Background()
	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close(dbPool)

	if err := pool.Ping(ctx, dbPool); err != nil {
		logging.Logger.Fatal("Failed to ping database", zap.Error(err))
	}

	// Initialize Redis
	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logging.Logger.Fatal("Failed to parse Redis URL", zap.Error(err))
	}
	opts.PoolSize = cfg.Redis.PoolSize
	redisClient := redis.NewClient(opts)
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logging.Logger.Fatal("Failed to ping Redis", zap.Error(err))
	}

	// Initialize repositories
	paymentRepo := repository.NewFailedPaymentRepository(dbPool)
	workflowRepo := repository.NewDunningWorkflowRepository(dbPool)
	cancellationRepo := repository.NewPendingCancellationRepository(dbPool)
	subscriptionRepo := repository.NewSubscriptionRepository(dbPool)
	memberRepo := repository.NewMemberRepository(dbPool)

	// Initialize external clients
	gatewayClient := processor.NewClient(processor.Config{
		BaseURL: cfg.Processor.BaseURL,
		APIKey:  cfg.Processor.APIKey,
		Timeout: cfg.Processor.Timeout,
	}, logging.Logger)
	defer gatewayClient.Close()

	mailerClient := mailer.NewClient(mailer.Config{
		BaseURL:     cfg.Mailer.BaseURL,
		APIKey:      cfg.Mailer.APIKey,
		Timeout:     cfg.Mailer.Timeout,
		FromAddress: cfg.Mailer.FromAddress,
	}, logging.Logger)
	defer mailerClient.Close()

	// Initialize services
	clk := clock.SystemClock{}
	policy := service.DefaultRetryPolicy()
	scheduler := service.NewRetryScheduler(policy)
	executor := service.NewRetryExecutor(paymentRepo, gatewayClient, scheduler, logging.Logger)
	cancellationService := service.NewCancellationService(
		cancellationRepo, subscriptionRepo, workflowRepo, paymentRepo, gatewayClient,
		cfg.Recovery.SweepBatchSize, logging.Logger,
	)
	dunningService := service.NewDunningService(
		workflowRepo, paymentRepo, memberRepo, mailerClient, cancellationService,
		cfg.Recovery.SweepBatchSize, logging.Logger,
	)
	recoveryService := service.NewRecoveryService(
		service.NewFailureClassifier(), paymentRepo, subscriptionRepo,
		executor, dunningService, cancellationService,
		policy, cfg.Recovery.SweepBatchSize, clk, logging.Logger,
	)

	// Initialize middleware
	jwtMiddleware := middleware.NewJWTMiddleware(
		cfg.JWT.Secret,
		redisClient,
		cfg.JWT.AccessTTL,
	)
	rateLimiter := middleware.NewRateLimiter(redisClient, true) // fail open

	// Initialize handlers
	webhookHandler := app_handler.NewWebhookHandler(cfg.Processor.WebhookSecret, recoveryService)
	recoveryHandler := app_handler.NewRecoveryHandler(recoveryService, paymentRepo)
	authHandler := app_handler.NewAuthHandler(jwtMiddleware)

	// Setup Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.RequestMiddleware(logging.Logger),
	)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Webhook routes (no auth, verified by signature)
	webhooks := router.Group("/webhook")
	webhooks.Use(rateLimiter.Middleware(middleware.ByIP, middleware.WebhookConfig))
	{
		webhooks.POST("/processor", webhookHandler.PaymentFailed)
	}

	// Admin routes
	v1 := router.Group("/v1")
	{
		admin := v1.Group("/admin")
		admin.Use(jwtMiddleware.Authenticate())
		admin.Use(middleware.RequireOperator())
		admin.Use(rateLimiter.Middleware(middleware.ByIPAndEndpoint, middleware.DefaultConfig))
		{
			admin.GET("/payments/:id", recoveryHandler.GetPayment)
			admin.POST("/payments/:id/retry", recoveryHandler.ManualRetry)
			admin.POST("/logout", authHandler.Logout)
		}
	}

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	go func() {
		logging.Logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logging.Logger.Info("Server exited")
}
