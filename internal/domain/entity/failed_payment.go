package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/bivex/payment-recovery/internal/domain/valueobject"
)

// RetryAttemptStatus represents the status of a single retry attempt
type RetryAttemptStatus string

const (
	AttemptStatusScheduled  RetryAttemptStatus = "scheduled"
	AttemptStatusProcessing RetryAttemptStatus = "processing"
	AttemptStatusSucceeded  RetryAttemptStatus = "succeeded"
	AttemptStatusFailed     RetryAttemptStatus = "failed"
)

// RetryAttempt is one scheduled or executed try against the payment gateway
type RetryAttempt struct {
	ID             uuid.UUID
	PaymentID      uuid.UUID
	Status         RetryAttemptStatus
	ScheduledAt    time.Time
	ExecutedAt     *time.Time
	ResultMessage  string
	TransactionRef string
	Manual         bool // out-of-band attempt triggered by an operator
	CreatedAt      time.Time
}

// NewRetryAttempt creates a scheduled retry attempt
func NewRetryAttempt(paymentID uuid.UUID, scheduledAt time.Time) *RetryAttempt {
	return &RetryAttempt{
		ID:          uuid.New(),
		PaymentID:   paymentID,
		Status:      AttemptStatusScheduled,
		ScheduledAt: scheduledAt,
		CreatedAt:   time.Now(),
	}
}

// NewManualRetryAttempt creates an out-of-band attempt due immediately
func NewManualRetryAttempt(paymentID uuid.UUID, now time.Time) *RetryAttempt {
	a := NewRetryAttempt(paymentID, now)
	a.Manual = true
	return a
}

// IsOpen returns true while the attempt has not reached a terminal status
func (a *RetryAttempt) IsOpen() bool {
	return a.Status == AttemptStatusScheduled || a.Status == AttemptStatusProcessing
}

// IsDue returns true if the attempt is scheduled and its time has come
func (a *RetryAttempt) IsDue(now time.Time) bool {
	return a.Status == AttemptStatusScheduled && !a.ScheduledAt.After(now)
}

// FailedPayment is the append-only record of one declined charge and its retry history
type FailedPayment struct {
	ID               uuid.UUID
	ProcessorEventID string // dedupe key for webhook redelivery
	PayerID          uuid.UUID
	Amount           valueobject.Money
	FailureKind      valueobject.FailureKind
	FailureMessage   string
	PaymentMethodRef string
	SubscriptionRef  *string
	InvoiceRef       *string
	MaxRetries       int
	RetryAttempts    []*RetryAttempt // ordered by creation
	NextRetryAt      *time.Time      // sweep index, maintained by the executor
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// DefaultMaxRetries is the retry budget applied to new failed payments
const DefaultMaxRetries = 3

// NewFailedPayment creates a failed payment record from a processor decline
func NewFailedPayment(
	processorEventID string,
	payerID uuid.UUID,
	amount valueobject.Money,
	kind valueobject.FailureKind,
	message, paymentMethodRef string,
	subscriptionRef, invoiceRef *string,
	occurredAt time.Time,
) *FailedPayment {
	return &FailedPayment{
		ID:               uuid.New(),
		ProcessorEventID: processorEventID,
		PayerID:          payerID,
		Amount:           amount,
		FailureKind:      kind,
		FailureMessage:   message,
		PaymentMethodRef: paymentMethodRef,
		SubscriptionRef:  subscriptionRef,
		InvoiceRef:       invoiceRef,
		MaxRetries:       DefaultMaxRetries,
		CreatedAt:        occurredAt,
		UpdatedAt:        occurredAt,
	}
}

// Recovered returns true once any attempt has succeeded
func (p *FailedPayment) Recovered() bool {
	for _, a := range p.RetryAttempts {
		if a.Status == AttemptStatusSucceeded {
			return true
		}
	}
	return false
}

// Processing returns true while an attempt is claimed by a worker
func (p *FailedPayment) Processing() bool {
	for _, a := range p.RetryAttempts {
		if a.Status == AttemptStatusProcessing {
			return true
		}
	}
	return false
}

// ConsumedAttempts counts attempts that ended in a recorded decline.
// Attempts released after a transient gateway fault stay scheduled and
// do not consume retry budget.
func (p *FailedPayment) ConsumedAttempts() int {
	n := 0
	for _, a := range p.RetryAttempts {
		if a.Status == AttemptStatusFailed {
			n++
		}
	}
	return n
}

// Exhausted returns true once the retry budget is spent without a recovery
func (p *FailedPayment) Exhausted() bool {
	return !p.Recovered() && p.ConsumedAttempts() >= p.MaxRetries
}

// Retryable reports whether a manual retry may be executed right now
func (p *FailedPayment) Retryable() bool {
	return !p.Recovered() && !p.Processing()
}

// OpenAttempt returns the attempt currently scheduled or processing, if any
func (p *FailedPayment) OpenAttempt() *RetryAttempt {
	for _, a := range p.RetryAttempts {
		if a.IsOpen() {
			return a
		}
	}
	return nil
}

// LastFailedAt returns the execution time of the most recent declined attempt
func (p *FailedPayment) LastFailedAt() *time.Time {
	for i := len(p.RetryAttempts) - 1; i >= 0; i-- {
		a := p.RetryAttempts[i]
		if a.Status == AttemptStatusFailed && a.ExecutedAt != nil {
			return a.ExecutedAt
		}
	}
	return nil
}

// Attempt returns the attempt with the given id, if present
func (p *FailedPayment) Attempt(id uuid.UUID) *RetryAttempt {
	for _, a := range p.RetryAttempts {
		if a.ID == id {
			return a
		}
	}
	return nil
}
