package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/clock"
	"github.com/bivex/payment-recovery/internal/domain/entity"
	"github.com/bivex/payment-recovery/internal/domain/repository"
	"github.com/bivex/payment-recovery/internal/domain/valueobject"
)

// FailureEvent is a processor-reported decline entering the engine
type FailureEvent struct {
	ProcessorEventID string
	PayerID          uuid.UUID
	AmountMinor      int64
	Currency         string
	RawReason        string
	Message          string
	PaymentMethodRef string
	SubscriptionRef  *string
	InvoiceRef       *string
	OccurredAt       time.Time
}

// RetrySweepResult summarizes one pass over due retries
type RetrySweepResult struct {
	Succeeded int
	Failed    int
	Deferred  int
	Skipped   int
}

// RecoveryService is the façade external callers invoke: the webhook handler
// funnels declines into RecordFailure, a scheduled job drives the three
// RunDue operations, and the admin surface calls ManualRetry.
type RecoveryService struct {
	classifier    *FailureClassifier
	payments      repository.FailedPaymentRepository
	subscriptions repository.SubscriptionRepository
	executor      *RetryExecutor
	dunning       *DunningService
	cancellations *CancellationService
	policy        RetryPolicy
	batchSize     int
	clk           clock.Clock
	logger        *zap.Logger
}

// NewRecoveryService creates the recovery coordinator
func NewRecoveryService(
	classifier *FailureClassifier,
	payments repository.FailedPaymentRepository,
	subscriptions repository.SubscriptionRepository,
	executor *RetryExecutor,
	dunning *DunningService,
	cancellations *CancellationService,
	policy RetryPolicy,
	batchSize int,
	clk clock.Clock,
	logger *zap.Logger,
) *RecoveryService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RecoveryService{
		classifier:    classifier,
		payments:      payments,
		subscriptions: subscriptions,
		executor:      executor,
		dunning:       dunning,
		cancellations: cancellations,
		policy:        policy,
		batchSize:     batchSize,
		clk:           clk,
		logger:        logger,
	}
}

// RecordFailure classifies a decline, creates the failed payment record and
// starts its dunning workflow. The initial notification is sent before this
// returns. Redelivered processor events surface ErrDuplicateEvent.
func (s *RecoveryService) RecordFailure(ctx context.Context, event FailureEvent) (*entity.FailedPayment, error) {
	kind := s.classifier.Classify(event.RawReason)

	amount, err := valueobject.NewMoney(event.AmountMinor, event.Currency)
	if err != nil {
		return nil, fmt.Errorf("invalid failure event amount: %w", err)
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.clk.Now()
	}

	payment := entity.NewFailedPayment(
		event.ProcessorEventID,
		event.PayerID,
		*amount,
		kind,
		event.Message,
		event.PaymentMethodRef,
		event.SubscriptionRef,
		event.InvoiceRef,
		occurredAt,
	)
	firstRetry := occurredAt.Add(s.policy.Delay(0))
	payment.NextRetryAt = &firstRetry

	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	if event.SubscriptionRef != nil {
		if err := s.subscriptions.MarkPastDue(ctx, *event.SubscriptionRef); err != nil {
			s.logger.Warn("failed to mark subscription past due",
				zap.String("subscription_ref", *event.SubscriptionRef),
				zap.Error(err),
			)
		}
	}

	if _, err := s.dunning.StartWorkflow(ctx, payment, occurredAt); err != nil {
		return nil, fmt.Errorf("failed to start dunning workflow: %w", err)
	}

	s.logger.Info("payment failure recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("payer_id", payment.PayerID.String()),
		zap.String("failure_kind", string(kind)),
		zap.String("amount", payment.Amount.String()),
	)
	return payment, nil
}

// RunDueRetries executes every due retry attempt. Failures local to one
// payment never abort the sweep.
func (s *RecoveryService) RunDueRetries(ctx context.Context, now time.Time) (RetrySweepResult, error) {
	var result RetrySweepResult

	due, err := s.payments.ListDueForRetry(ctx, now, s.batchSize)
	if err != nil {
		return result, err
	}

	for _, payment := range due {
		outcome, err := s.executor.ExecuteDueRetry(ctx, payment, now)
		if err != nil {
			s.logger.Error("retry execution failed",
				zap.String("payment_id", payment.ID.String()),
				zap.Error(err),
			)
			continue
		}
		switch outcome {
		case OutcomeSucceeded:
			result.Succeeded++
		case OutcomeFailed:
			result.Failed++
		case OutcomeDeferred:
			result.Deferred++
		default:
			result.Skipped++
		}
	}

	return result, nil
}

// RunDueNotifications delegates to the dunning engine
func (s *RecoveryService) RunDueNotifications(ctx context.Context, now time.Time) (NotificationSweepResult, error) {
	return s.dunning.RunDueNotifications(ctx, now)
}

// RunDueCancellations delegates to the cancellation scheduler
func (s *RecoveryService) RunDueCancellations(ctx context.Context, now time.Time) (CancellationSweepResult, error) {
	return s.cancellations.RunDueCancellations(ctx, now)
}

// ManualRetry executes an out-of-band retry for an operator. It bypasses the
// backoff schedule but goes through the same claim step as the sweep, so a
// human-triggered retry cannot race a scheduled one into a double charge.
func (s *RecoveryService) ManualRetry(ctx context.Context, paymentID uuid.UUID) (*entity.RetryAttempt, ExecutionOutcome, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		return nil, "", err
	}
	return s.executor.ExecuteManualRetry(ctx, payment, s.clk.Now())
}
