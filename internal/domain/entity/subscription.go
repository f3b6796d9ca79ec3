package entity

import (
	"time"

	"github.com/google/uuid"
)

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "active"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
)

// Subscription is the member's recurring plan record. Pricing and invoicing
// live in the billing system; this core only flips status on recovery outcomes.
type Subscription struct {
	ID           uuid.UUID
	MemberID     uuid.UUID
	ProcessorRef string // the processor-side subscription object
	PlanName     string
	Status       SubscriptionStatus
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSubscription creates an active subscription entity
func NewSubscription(memberID uuid.UUID, processorRef, planName string) *Subscription {
	now := time.Now()
	return &Subscription{
		ID:           uuid.New(),
		MemberID:     memberID,
		ProcessorRef: processorRef,
		PlanName:     planName,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive returns true if the subscription has not been cancelled
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusPastDue
}

// MarkPastDue flags the subscription after a failed renewal charge
func (s *Subscription) MarkPastDue() {
	if s.Status == StatusActive {
		s.Status = StatusPastDue
		s.UpdatedAt = time.Now()
	}
}

// Cancel marks the subscription cancelled with the given reason
func (s *Subscription) Cancel(reason string, at time.Time) {
	s.Status = StatusCancelled
	s.CancelledAt = &at
	s.CancelReason = reason
	s.UpdatedAt = at
}
