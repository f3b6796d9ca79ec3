package service

import (
	"time"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// RetryScheduler computes the next due retry attempt for a failed payment.
// It is pure with respect to the supplied payment snapshot and never touches
// storage; the executor persists whatever the scheduler materializes.
type RetryScheduler struct {
	policy RetryPolicy
}

// NewRetryScheduler creates a retry scheduler with the given policy
func NewRetryScheduler(policy RetryPolicy) *RetryScheduler {
	return &RetryScheduler{policy: policy}
}

// NextDueAttempt returns the attempt that should be executed now, or nil.
//
// Returns nil when the payment has recovered, when an attempt is already
// claimed, when the retry budget is exhausted, or when the next attempt's
// scheduled time is still in the future. When an open scheduled attempt
// exists (left behind by a transient gateway fault) it is returned as-is so
// the same attempt is retried without consuming an extra slot.
func (s *RetryScheduler) NextDueAttempt(payment *entity.FailedPayment, now time.Time) *entity.RetryAttempt {
	if payment.Recovered() || payment.Processing() {
		return nil
	}

	if open := payment.OpenAttempt(); open != nil {
		if open.IsDue(now) {
			return open
		}
		return nil
	}

	consumed := payment.ConsumedAttempts()
	if consumed >= s.maxRetries(payment) {
		return nil
	}

	base := payment.CreatedAt
	if lastFailed := payment.LastFailedAt(); lastFailed != nil {
		base = *lastFailed
	}
	due := base.Add(s.policy.Delay(consumed))
	if due.After(now) {
		return nil
	}
	return entity.NewRetryAttempt(payment.ID, due)
}

// NextRetryTime computes when the payment becomes due again after a decline
// recorded at failedAt, or nil when the budget is spent.
func (s *RetryScheduler) NextRetryTime(payment *entity.FailedPayment, consumed int, failedAt time.Time) *time.Time {
	if consumed >= s.maxRetries(payment) {
		return nil
	}
	next := failedAt.Add(s.policy.Delay(consumed))
	return &next
}

func (s *RetryScheduler) maxRetries(payment *entity.FailedPayment) int {
	if payment.MaxRetries > 0 {
		return payment.MaxRetries
	}
	return s.policy.MaxRetries
}
