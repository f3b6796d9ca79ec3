package entity

import (
	"time"

	"github.com/google/uuid"
)

// DunningStage identifies one step of the notification campaign
type DunningStage string

const (
	StageInitialFailure       DunningStage = "initial_failure"
	StageFirstReminder        DunningStage = "first_reminder"
	StageSecondReminder       DunningStage = "second_reminder"
	StageFinalNotice          DunningStage = "final_notice"
	StageSubscriptionCanceled DunningStage = "subscription_canceled"
)

// Fixed offsets of the pre-materialized stages from the triggering failure
const (
	FirstReminderOffset  = 3 * 24 * time.Hour
	SecondReminderOffset = 7 * 24 * time.Hour
	FinalNoticeOffset    = 14 * 24 * time.Hour
	CancellationDelay    = 7 * 24 * time.Hour
)

// DunningNotificationStatus represents the delivery state of one notification
type DunningNotificationStatus string

const (
	NotificationStatusPending DunningNotificationStatus = "pending"
	NotificationStatusSending DunningNotificationStatus = "sending" // claimed by a worker
	NotificationStatusSent    DunningNotificationStatus = "sent"
	NotificationStatusFailed  DunningNotificationStatus = "failed"
)

// DunningNotification is one time-stamped step of a dunning workflow
type DunningNotification struct {
	ID            uuid.UUID
	WorkflowID    uuid.UUID
	Stage         DunningStage
	Status        DunningNotificationStatus
	ScheduledAt   time.Time
	SentAt        *time.Time
	FailureReason string
	CreatedAt     time.Time
}

// DunningWorkflow is the notification campaign attached to one failed payment.
// Its timeline is independent from the retry timeline: a payment recovered by
// a retry does not stop notifications already scheduled.
type DunningWorkflow struct {
	ID              uuid.UUID
	PaymentID       uuid.UUID
	PayerID         uuid.UUID
	SubscriptionRef *string
	StartedAt       time.Time
	Notifications   []*DunningNotification // ordered by scheduled time
	CreatedAt       time.Time
}

// NewDunningWorkflow materializes the four fixed stages, all pending.
// The subscription_canceled stage is appended later by the cancellation
// scheduler and is deliberately not created here.
func NewDunningWorkflow(paymentID, payerID uuid.UUID, subscriptionRef *string, startedAt time.Time) *DunningWorkflow {
	w := &DunningWorkflow{
		ID:              uuid.New(),
		PaymentID:       paymentID,
		PayerID:         payerID,
		SubscriptionRef: subscriptionRef,
		StartedAt:       startedAt,
		CreatedAt:       startedAt,
	}

	stages := []struct {
		stage  DunningStage
		offset time.Duration
	}{
		{StageInitialFailure, 0},
		{StageFirstReminder, FirstReminderOffset},
		{StageSecondReminder, SecondReminderOffset},
		{StageFinalNotice, FinalNoticeOffset},
	}
	for _, s := range stages {
		w.Notifications = append(w.Notifications, &DunningNotification{
			ID:          uuid.New(),
			WorkflowID:  w.ID,
			Stage:       s.stage,
			Status:      NotificationStatusPending,
			ScheduledAt: startedAt.Add(s.offset),
			CreatedAt:   startedAt,
		})
	}
	return w
}

// NewCancellationNotice builds the subscription_canceled stage for a workflow
func NewCancellationNotice(workflowID uuid.UUID, scheduledAt time.Time) *DunningNotification {
	return &DunningNotification{
		ID:          uuid.New(),
		WorkflowID:  workflowID,
		Stage:       StageSubscriptionCanceled,
		Status:      NotificationStatusPending,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}
}

// Notification returns the workflow's notification for the given stage, if any
func (w *DunningWorkflow) Notification(stage DunningStage) *DunningNotification {
	for _, n := range w.Notifications {
		if n.Stage == stage {
			return n
		}
	}
	return nil
}

// Completed returns true once no notification remains pending or claimed
func (w *DunningWorkflow) Completed() bool {
	for _, n := range w.Notifications {
		if n.Status == NotificationStatusPending || n.Status == NotificationStatusSending {
			return false
		}
	}
	return true
}
