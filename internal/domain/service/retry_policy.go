package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RetryPolicy is the deterministic backoff table for retry attempts.
// Offsets are measured from the preceding failure (the initial decline for
// the first attempt). The table is intentionally distinct from the dunning
// stage offsets: retries front-load within the first three days while
// notifications escalate over two weeks.
type RetryPolicy struct {
	MaxRetries int
	Delays     []time.Duration
}

// DefaultRetryPolicy returns the standard backoff table: 6h, 24h, 72h
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: 3,
		Delays: []time.Duration{
			6 * time.Hour,
			24 * time.Hour,
			72 * time.Hour,
		},
	}
}

// Delay returns the backoff delay for the attempt with the given zero-based
// ordinal. Ordinals past the table reuse the last entry.
func (p RetryPolicy) Delay(ordinal int) time.Duration {
	if ordinal < 0 {
		ordinal = 0
	}
	if ordinal >= len(p.Delays) {
		return p.Delays[len(p.Delays)-1]
	}
	return p.Delays[ordinal]
}

// IdempotencyKey derives the token passed to the gateway so a retried network
// call after a timeout collapses into a single real charge.
func IdempotencyKey(paymentID, attemptID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", paymentID, attemptID)
}
