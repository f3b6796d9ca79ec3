package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
	"github.com/bivex/payment-recovery/internal/domain/gateway"
	"github.com/bivex/payment-recovery/internal/domain/repository"
)

// CancelReason is passed to the gateway and stamped on the subscription record
const CancelReason = "dunning exhausted: payment not recovered"

// CancellationSweepResult summarizes one pass over due cancellations
type CancellationSweepResult struct {
	Processed int
	Voided    int // payment recovered inside the window, no cancellation executed
}

// CancellationService schedules and later executes subscription cancellation.
// The 7 day delay between final notice and execution is the window retries
// and manual intervention get before the only irreversible side effect runs:
// a payment that recovers inside the window voids the pending cancellation.
type CancellationService struct {
	cancellations repository.PendingCancellationRepository
	subscriptions repository.SubscriptionRepository
	workflows     repository.DunningWorkflowRepository
	payments      repository.FailedPaymentRepository
	gw            gateway.PaymentGateway
	batchSize     int
	logger        *zap.Logger
}

// NewCancellationService creates a new cancellation service
func NewCancellationService(
	cancellations repository.PendingCancellationRepository,
	subscriptions repository.SubscriptionRepository,
	workflows repository.DunningWorkflowRepository,
	payments repository.FailedPaymentRepository,
	gw gateway.PaymentGateway,
	batchSize int,
	logger *zap.Logger,
) *CancellationService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &CancellationService{
		cancellations: cancellations,
		subscriptions: subscriptions,
		workflows:     workflows,
		payments:      payments,
		gw:            gw,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// ScheduleCancellation creates one pending cancellation 7 days out. The
// subscription_canceled notification is appended only when the cancellation
// actually executes, so a recovered account never receives it. A second call
// for the same subscription while one is outstanding is a no-op.
func (s *CancellationService) ScheduleCancellation(ctx context.Context, payerID, paymentID uuid.UUID, subscriptionRef string, workflowID uuid.UUID, now time.Time) error {
	pending := entity.NewPendingCancellation(payerID, paymentID, workflowID, subscriptionRef, now.Add(entity.CancellationDelay))
	if err := s.cancellations.Create(ctx, pending); err != nil {
		if errors.Is(err, domainErrors.ErrCancellationPending) {
			return nil
		}
		return err
	}

	s.logger.Info("subscription cancellation scheduled",
		zap.String("subscription_ref", subscriptionRef),
		zap.Time("scheduled_at", pending.ScheduledAt),
	)
	return nil
}

// RunDueCancellations executes every due unprocessed cancellation. A payment
// recovered since the final notice voids its cancellation instead of
// executing it. Failures local to one cancellation leave it unprocessed for
// the next sweep; there is no separate backoff because cancellation failures
// are expected to be rare and operator-visible.
func (s *CancellationService) RunDueCancellations(ctx context.Context, now time.Time) (CancellationSweepResult, error) {
	var result CancellationSweepResult

	due, err := s.cancellations.ListDue(ctx, now, s.batchSize)
	if err != nil {
		return result, err
	}

	for _, c := range due {
		payment, err := s.payments.GetByID(ctx, c.PaymentID)
		if err != nil {
			// Without the payment we cannot tell whether it recovered;
			// leave the row for the next sweep.
			s.logger.Warn("payment not resolvable, cancellation deferred",
				zap.String("payment_id", c.PaymentID.String()),
				zap.Error(err),
			)
			continue
		}

		if payment.Recovered() {
			if err := s.cancellations.MarkProcessed(ctx, c.ID, now); err != nil {
				s.logger.Error("failed to void cancellation",
					zap.String("cancellation_id", c.ID.String()),
					zap.Error(err),
				)
				continue
			}
			s.logger.Info("cancellation voided, payment recovered inside the window",
				zap.String("subscription_ref", c.SubscriptionRef),
				zap.String("payment_id", c.PaymentID.String()),
			)
			result.Voided++
			continue
		}

		sub, err := s.subscriptions.GetByProcessorRef(ctx, c.SubscriptionRef)
		if err != nil {
			// The record may appear later; do not mark processed.
			s.logger.Warn("subscription not resolvable, cancellation deferred",
				zap.String("subscription_ref", c.SubscriptionRef),
				zap.Error(err),
			)
			continue
		}

		cancelled := false
		if sub.IsActive() {
			if err := s.gw.CancelSubscription(ctx, c.SubscriptionRef, CancelReason); err != nil {
				s.logger.Error("gateway cancellation failed, will retry next sweep",
					zap.String("subscription_ref", c.SubscriptionRef),
					zap.Error(err),
				)
				continue
			}
			if err := s.subscriptions.Cancel(ctx, c.SubscriptionRef, CancelReason, now); err != nil {
				s.logger.Error("failed to mark subscription cancelled",
					zap.String("subscription_ref", c.SubscriptionRef),
					zap.Error(err),
				)
				continue
			}
			cancelled = true
		}

		if err := s.cancellations.MarkProcessed(ctx, c.ID, now); err != nil {
			s.logger.Error("failed to mark cancellation processed",
				zap.String("cancellation_id", c.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if cancelled {
			// The canceled notification goes out with the next sweep.
			notice := entity.NewCancellationNotice(c.WorkflowID, now)
			if err := s.workflows.AppendNotification(ctx, notice); err != nil {
				s.logger.Error("failed to append cancellation notice",
					zap.String("workflow_id", c.WorkflowID.String()),
					zap.Error(err),
				)
			}
			s.logger.Info("subscription cancelled",
				zap.String("subscription_ref", c.SubscriptionRef),
				zap.String("payer_id", c.PayerID.String()),
			)
		}
		result.Processed++
	}

	return result, nil
}
