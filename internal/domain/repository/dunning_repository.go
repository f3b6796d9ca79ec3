package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// DueNotification is one pending notification joined with the workflow
// context a sweep needs to resolve payer and payment.
type DueNotification struct {
	Notification    *entity.DunningNotification
	WorkflowID      uuid.UUID
	PaymentID       uuid.UUID
	PayerID         uuid.UUID
	SubscriptionRef *string
}

// DunningWorkflowRepository defines data access for dunning workflows.
// ClaimNotification is the conditional-update primitive that makes a
// notification go to sent at most once under overlapping sweeps.
type DunningWorkflowRepository interface {
	// Create persists a workflow with its pre-materialized stages
	Create(ctx context.Context, workflow *entity.DunningWorkflow) error

	// GetByPaymentID retrieves the workflow for a failed payment
	GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.DunningWorkflow, error)

	// ListDueNotifications retrieves pending notifications scheduled at or before now
	ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]*DueNotification, error)

	// ClaimNotification transitions a notification pending -> sending. Returns
	// false without error when another worker already claimed it.
	ClaimNotification(ctx context.Context, notificationID uuid.UUID) (bool, error)

	// MarkNotificationSent finalizes a claimed notification as sent
	MarkNotificationSent(ctx context.Context, notificationID uuid.UUID, sentAt time.Time) error

	// MarkNotificationFailed finalizes a notification as failed with a reason
	MarkNotificationFailed(ctx context.Context, notificationID uuid.UUID, reason string) error

	// AppendNotification adds a late stage (subscription_canceled) to a workflow
	AppendNotification(ctx context.Context, notification *entity.DunningNotification) error
}
