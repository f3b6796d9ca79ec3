package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
	"github.com/bivex/payment-recovery/internal/domain/gateway"
	"github.com/bivex/payment-recovery/internal/domain/repository"
)

// ExecutionOutcome summarizes one pass of the executor over a payment
type ExecutionOutcome string

const (
	OutcomeSucceeded        ExecutionOutcome = "succeeded"
	OutcomeFailed           ExecutionOutcome = "failed"
	OutcomeDeferred         ExecutionOutcome = "deferred" // transient gateway fault, attempt released
	OutcomeSkippedNotDue    ExecutionOutcome = "skipped_not_due"
	OutcomeSkippedExhausted ExecutionOutcome = "skipped_exhausted"
)

// RetryExecutor executes one due retry attempt against the payment gateway.
// Exclusivity under concurrent sweep workers comes from the store's claim
// primitives: a worker that loses the claim race skips the attempt.
type RetryExecutor struct {
	payments  repository.FailedPaymentRepository
	gw        gateway.PaymentGateway
	scheduler *RetryScheduler
	logger    *zap.Logger
}

// NewRetryExecutor creates a new retry executor
func NewRetryExecutor(
	payments repository.FailedPaymentRepository,
	gw gateway.PaymentGateway,
	scheduler *RetryScheduler,
	logger *zap.Logger,
) *RetryExecutor {
	return &RetryExecutor{
		payments:  payments,
		gw:        gw,
		scheduler: scheduler,
		logger:    logger,
	}
}

// ExecuteDueRetry runs the scheduled retry path for one payment snapshot
func (e *RetryExecutor) ExecuteDueRetry(ctx context.Context, payment *entity.FailedPayment, now time.Time) (ExecutionOutcome, error) {
	attempt := e.scheduler.NextDueAttempt(payment, now)
	if attempt == nil {
		if payment.Recovered() || payment.Exhausted() {
			return OutcomeSkippedExhausted, nil
		}
		return OutcomeSkippedNotDue, nil
	}

	if payment.Attempt(attempt.ID) == nil {
		if err := e.payments.AppendAttempt(ctx, attempt); err != nil {
			if errors.Is(err, domainErrors.ErrAttemptConflict) {
				// Another worker materialized the attempt first.
				return OutcomeSkippedNotDue, nil
			}
			return "", err
		}
	}

	claimed, err := e.payments.ClaimAttempt(ctx, payment.ID, attempt.ID)
	if err != nil {
		return "", err
	}
	if !claimed {
		return OutcomeSkippedNotDue, nil
	}

	return e.executeClaimed(ctx, payment, attempt, now)
}

// ExecuteManualRetry runs an operator-triggered retry, bypassing the backoff
// schedule but funneling through the same claim step as the sweep.
func (e *RetryExecutor) ExecuteManualRetry(ctx context.Context, payment *entity.FailedPayment, now time.Time) (*entity.RetryAttempt, ExecutionOutcome, error) {
	if !payment.Retryable() {
		return nil, "", domainErrors.ErrPaymentNotRetryable
	}

	attempt := payment.OpenAttempt()
	if attempt == nil {
		attempt = entity.NewManualRetryAttempt(payment.ID, now)
		if err := e.payments.AppendAttempt(ctx, attempt); err != nil {
			if errors.Is(err, domainErrors.ErrAttemptConflict) {
				return nil, "", domainErrors.ErrPaymentNotRetryable
			}
			return nil, "", err
		}
	}

	claimed, err := e.payments.ClaimAttempt(ctx, payment.ID, attempt.ID)
	if err != nil {
		return nil, "", err
	}
	if !claimed {
		// A sweep worker claimed the attempt first; the retry is running.
		return nil, "", domainErrors.ErrPaymentNotRetryable
	}

	outcome, err := e.executeClaimed(ctx, payment, attempt, now)
	return attempt, outcome, err
}

func (e *RetryExecutor) executeClaimed(ctx context.Context, payment *entity.FailedPayment, attempt *entity.RetryAttempt, now time.Time) (ExecutionOutcome, error) {
	key := IdempotencyKey(payment.ID, attempt.ID)

	var result gateway.ChargeResult
	var err error
	if payment.InvoiceRef != nil && *payment.InvoiceRef != "" {
		result, err = e.gw.RetryInvoice(ctx, *payment.InvoiceRef, key)
	} else {
		result, err = e.gw.CreateAndConfirmCharge(ctx, gateway.ChargeRequest{
			AmountMinor:      payment.Amount.Amount,
			Currency:         payment.Amount.Currency,
			PaymentMethodRef: payment.PaymentMethodRef,
			CustomerRef:      payment.PayerID.String(),
			IdempotencyKey:   key,
		})
	}

	if err != nil || result.Outcome == gateway.OutcomeTransient {
		// Infrastructure fault, not a decline: release the claim so the same
		// attempt is retried on the next sweep without consuming a slot.
		if relErr := e.payments.ReleaseAttempt(ctx, payment.ID, attempt.ID); relErr != nil {
			e.logger.Error("failed to release attempt after transient fault",
				zap.String("payment_id", payment.ID.String()),
				zap.String("attempt_id", attempt.ID.String()),
				zap.Error(relErr),
			)
		}
		e.logger.Warn("gateway transient fault, retry deferred",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err),
			zap.String("gateway_message", result.Message),
		)
		return OutcomeDeferred, nil
	}

	if result.Outcome == gateway.OutcomeSucceeded {
		if err := e.payments.MarkAttemptSucceeded(ctx, payment.ID, attempt.ID, result.TransactionRef, now); err != nil {
			return "", err
		}
		e.logger.Info("payment recovered",
			zap.String("payment_id", payment.ID.String()),
			zap.String("transaction_ref", result.TransactionRef),
			zap.Bool("manual", attempt.Manual),
		)
		return OutcomeSucceeded, nil
	}

	// Business decline: record it and move the sweep index to the next slot.
	if err := e.payments.MarkAttemptFailed(ctx, payment.ID, attempt.ID, result.Message, now); err != nil {
		return "", err
	}
	consumed := payment.ConsumedAttempts() + 1
	next := e.scheduler.NextRetryTime(payment, consumed, now)
	if err := e.payments.SetNextRetryAt(ctx, payment.ID, next); err != nil {
		return "", err
	}
	e.logger.Info("retry attempt declined",
		zap.String("payment_id", payment.ID.String()),
		zap.String("decline_code", result.DeclineCode),
		zap.Int("consumed_attempts", consumed),
		zap.Bool("exhausted", next == nil),
	)
	return OutcomeFailed, nil
}
