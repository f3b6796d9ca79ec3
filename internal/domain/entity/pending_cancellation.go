package entity

import (
	"time"

	"github.com/google/uuid"
)

// PendingCancellation bridges a dunning workflow's final notice to the actual
// subscription mutation. Cancellation is delayed to leave a window for retries
// and manual intervention.
type PendingCancellation struct {
	ID              uuid.UUID
	PayerID         uuid.UUID
	PaymentID       uuid.UUID
	WorkflowID      uuid.UUID
	SubscriptionRef string
	ScheduledAt     time.Time
	Processed       bool
	ProcessedAt     *time.Time
	CreatedAt       time.Time
}

// NewPendingCancellation schedules a cancellation at the given time
func NewPendingCancellation(payerID, paymentID, workflowID uuid.UUID, subscriptionRef string, scheduledAt time.Time) *PendingCancellation {
	return &PendingCancellation{
		ID:              uuid.New(),
		PayerID:         payerID,
		PaymentID:       paymentID,
		WorkflowID:      workflowID,
		SubscriptionRef: subscriptionRef,
		ScheduledAt:     scheduledAt,
		CreatedAt:       time.Now(),
	}
}

// IsDue returns true if the cancellation should be executed now
func (c *PendingCancellation) IsDue(now time.Time) bool {
	return !c.Processed && !c.ScheduledAt.After(now)
}

// MarkProcessed records the cancellation as executed
func (c *PendingCancellation) MarkProcessed(at time.Time) {
	c.Processed = true
	c.ProcessedAt = &at
}
