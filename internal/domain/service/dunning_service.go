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

// NotificationSweepResult summarizes one pass over due notifications
type NotificationSweepResult struct {
	Sent   int
	Failed int
}

// DunningService runs the time-boxed notification campaign attached to a
// failed payment. Sending is at-most-once per notification: a worker must win
// the pending -> sending claim before dispatching, and a failed send never
// aborts the rest of the batch.
type DunningService struct {
	workflows     repository.DunningWorkflowRepository
	payments      repository.FailedPaymentRepository
	members       repository.MemberRepository
	notifier      gateway.Notifier
	cancellations *CancellationService
	batchSize     int
	logger        *zap.Logger
}

// NewDunningService creates a new dunning service
func NewDunningService(
	workflows repository.DunningWorkflowRepository,
	payments repository.FailedPaymentRepository,
	members repository.MemberRepository,
	notifier gateway.Notifier,
	cancellations *CancellationService,
	batchSize int,
	logger *zap.Logger,
) *DunningService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &DunningService{
		workflows:     workflows,
		payments:      payments,
		members:       members,
		notifier:      notifier,
		cancellations: cancellations,
		batchSize:     batchSize,
		logger:        logger,
	}
}

// StartWorkflow materializes the four fixed stages for a freshly recorded
// failure and sends the initial notification synchronously, so the payer is
// informed without waiting for the next sweep.
func (s *DunningService) StartWorkflow(ctx context.Context, payment *entity.FailedPayment, now time.Time) (*entity.DunningWorkflow, error) {
	workflow := entity.NewDunningWorkflow(payment.ID, payment.PayerID, payment.SubscriptionRef, now)
	if err := s.workflows.Create(ctx, workflow); err != nil {
		return nil, err
	}

	initial := workflow.Notification(entity.StageInitialFailure)
	due := &repository.DueNotification{
		Notification:    initial,
		WorkflowID:      workflow.ID,
		PaymentID:       payment.ID,
		PayerID:         payment.PayerID,
		SubscriptionRef: payment.SubscriptionRef,
	}
	claimed, err := s.workflows.ClaimNotification(ctx, initial.ID)
	if err != nil {
		s.logger.Error("failed to claim initial notification",
			zap.String("workflow_id", workflow.ID.String()),
			zap.Error(err),
		)
		return workflow, nil
	}
	if claimed {
		s.dispatchClaimed(ctx, due, payment, now)
	}
	return workflow, nil
}

// RunDueNotifications sends every claimed-due notification across all
// workflows. Failures local to one notification never abort the sweep; only a
// failure to read the due list itself does.
func (s *DunningService) RunDueNotifications(ctx context.Context, now time.Time) (NotificationSweepResult, error) {
	var result NotificationSweepResult

	due, err := s.workflows.ListDueNotifications(ctx, now, s.batchSize)
	if err != nil {
		return result, err
	}

	for _, d := range due {
		claimed, err := s.workflows.ClaimNotification(ctx, d.Notification.ID)
		if err != nil {
			s.logger.Error("failed to claim notification",
				zap.String("notification_id", d.Notification.ID.String()),
				zap.Error(err),
			)
			continue
		}
		if !claimed {
			continue
		}

		payment, err := s.payments.GetByID(ctx, d.PaymentID)
		if err != nil {
			// A failed lookup is a data problem, not a transient send problem.
			s.markFailed(ctx, d.Notification.ID, "payment lookup failed: "+err.Error())
			result.Failed++
			continue
		}

		if s.dispatchClaimed(ctx, d, payment, now) {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	return result, nil
}

// dispatchClaimed resolves, renders and sends one claimed notification.
// Returns true when the notification was marked sent.
func (s *DunningService) dispatchClaimed(ctx context.Context, d *repository.DueNotification, payment *entity.FailedPayment, now time.Time) bool {
	member, err := s.members.GetByID(ctx, d.PayerID)
	if err != nil {
		s.markFailed(ctx, d.Notification.ID, "member lookup failed: "+err.Error())
		return false
	}
	if !member.HasEmail() {
		s.markFailed(ctx, d.Notification.ID, "member has no email address")
		return false
	}

	content := ContentFor(d.Notification.Stage, ContentParams{
		MemberName:    member.FullName(),
		AmountDisplay: payment.Amount.String(),
		Reason:        payment.FailureKind.HumanReadable(),
	})

	err = s.notifier.Send(ctx, gateway.Message{
		To:       member.Email,
		Subject:  content.Subject,
		HTMLBody: content.HTMLBody,
		TextBody: content.TextBody,
	})
	if err != nil {
		s.markFailed(ctx, d.Notification.ID, err.Error())
		s.logger.Warn("notification dispatch failed",
			zap.String("notification_id", d.Notification.ID.String()),
			zap.String("stage", string(d.Notification.Stage)),
			zap.Error(err),
		)
		return false
	}

	if err := s.workflows.MarkNotificationSent(ctx, d.Notification.ID, now); err != nil {
		s.logger.Error("failed to mark notification sent",
			zap.String("notification_id", d.Notification.ID.String()),
			zap.Error(err),
		)
		return false
	}

	s.logger.Info("dunning notification sent",
		zap.String("payment_id", d.PaymentID.String()),
		zap.String("stage", string(d.Notification.Stage)),
	)

	if d.Notification.Stage == entity.StageFinalNotice && d.SubscriptionRef != nil {
		if err := s.cancellations.ScheduleCancellation(ctx, d.PayerID, d.PaymentID, *d.SubscriptionRef, d.WorkflowID, now); err != nil {
			s.logger.Error("failed to schedule cancellation after final notice",
				zap.String("payment_id", d.PaymentID.String()),
				zap.Error(err),
			)
		}
	}
	return true
}

func (s *DunningService) markFailed(ctx context.Context, notificationID uuid.UUID, reason string) {
	if err := s.workflows.MarkNotificationFailed(ctx, notificationID, reason); err != nil && !errors.Is(err, domainErrors.ErrWorkflowNotFound) {
		s.logger.Error("failed to mark notification failed",
			zap.String("notification_id", notificationID.String()),
			zap.Error(err),
		)
	}
}
