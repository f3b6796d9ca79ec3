package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/clock"
	"github.com/bivex/payment-recovery/internal/domain/service"
	"github.com/bivex/payment-recovery/internal/infrastructure/config"
	"github.com/bivex/payment-recovery/internal/infrastructure/external/mailer"
	"github.com/bivex/payment-recovery/internal/infrastructure/external/processor"
	"github.com/bivex/payment-recovery/internal/infrastructure/logging"
	"github.com/bivex/payment-recovery/internal/infrastructure/persistence/pool"
	"github.com/bivex/payment-recovery/internal/infrastructure/persistence/repository"
	worker_tasks "github.com/bivex/payment-recovery/internal/worker/tasks"
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

	logging.Logger.Info("Starting payment recovery worker")

	// Initialize database for worker tasks
	ctx := context.Background()
	dbPool, err := pool.NewPool(ctx, cfg.Database)
	if err != nil {
		logging.Logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close(dbPool)

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

	jobHandlers := worker_tasks.NewRecoveryJobHandler(recoveryService, clk)

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

	// Initialize Asynq server
	server := asynq.NewServerFromRedisClient(redisClient, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
			// Exponential backoff: 2^n seconds
			return time.Duration(1<<uint(n)) * time.Second
		},
	})

	// Register task handlers
	mux := asynq.NewServeMux()
	worker_tasks.RegisterHandlers(mux, jobHandlers)

	// Start server in background
	if err := server.Start(mux); err != nil {
		logging.Logger.Fatal("Failed to start worker", zap.Error(err))
	}

	// Register scheduled tasks
	taskScheduler := asynq.NewSchedulerFromRedisClient(redisClient, nil)
	worker_tasks.RegisterScheduledTasks(taskScheduler)

	// Start scheduler
	if err := taskScheduler.Start(); err != nil {
		logging.Logger.Fatal("Failed to start scheduler", zap.Error(err))
	}

	logging.Logger.Info("Worker started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("Shutting down worker...")

	taskScheduler.Shutdown()
	server.Shutdown()

	logging.Logger.Info("Worker exited")
}
