package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// FailedPaymentRepository defines data access for failed payments and their
// retry history. Claim/Release/Complete are the conditional-update primitives
// that keep concurrent sweep workers from double-charging a payer.
type FailedPaymentRepository interface {
	// Create persists a new failed payment. Returns ErrDuplicateEvent when a
	// record with the same processor event id already exists.
	Create(ctx context.Context, payment *entity.FailedPayment) error

	// GetByID retrieves a failed payment with its full attempt history
	GetByID(ctx context.Context, id uuid.UUID) (*entity.FailedPayment, error)

	// ListDueForRetry retrieves payments whose next retry is due
	ListDueForRetry(ctx context.Context, now time.Time, limit int) ([]*entity.FailedPayment, error)

	// AppendAttempt inserts a new scheduled attempt. Returns ErrAttemptConflict
	// when another open attempt exists for the payment.
	AppendAttempt(ctx context.Context, attempt *entity.RetryAttempt) error

	// ClaimAttempt transitions an attempt scheduled -> processing. Returns
	// false without error when the attempt was already claimed or resolved.
	ClaimAttempt(ctx context.Context, paymentID, attemptID uuid.UUID) (bool, error)

	// ReleaseAttempt transitions processing -> scheduled after a transient
	// gateway fault, so the same attempt is retried on the next sweep.
	ReleaseAttempt(ctx context.Context, paymentID, attemptID uuid.UUID) error

	// MarkAttemptSucceeded finalizes a processing attempt with the gateway's
	// transaction reference and clears the payment's retry schedule.
	MarkAttemptSucceeded(ctx context.Context, paymentID, attemptID uuid.UUID, transactionRef string, executedAt time.Time) error

	// MarkAttemptFailed finalizes a processing attempt with the decline message
	MarkAttemptFailed(ctx context.Context, paymentID, attemptID uuid.UUID, resultMessage string, executedAt time.Time) error

	// SetNextRetryAt updates the payment's sweep index; nil clears it
	SetNextRetryAt(ctx context.Context, paymentID uuid.UUID, nextRetryAt *time.Time) error
}
