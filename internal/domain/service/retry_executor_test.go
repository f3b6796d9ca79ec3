package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
	"github.com/bivex/payment-recovery/internal/domain/gateway"
	"github.com/bivex/payment-recovery/internal/domain/service"
	"github.com/bivex/payment-recovery/tests/mocks"
)

func newExecutor(payments *mocks.MockFailedPaymentRepository, gw *mocks.MockPaymentGateway) *service.RetryExecutor {
	scheduler := service.NewRetryScheduler(service.DefaultRetryPolicy())
	return service.NewRetryExecutor(payments, gw, scheduler, zap.NewNop())
}

func TestRetryExecutor_ExecuteDueRetry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := start.Add(6 * time.Hour)

	t.Run("due invoice retry succeeds", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		invoiceRef := "in_123"
		p.InvoiceRef = &invoiceRef

		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("RetryInvoice", ctx, "in_123", mock.AnythingOfType("string")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_1"}, nil)
		payments.On("MarkAttemptSucceeded", ctx, p.ID, mock.AnythingOfType("uuid.UUID"), "txn_1", due).Return(nil)

		outcome, err := executor.ExecuteDueRetry(ctx, p, due)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSucceeded, outcome)
		payments.AssertExpectations(t)
		gw.AssertExpectations(t)
	})

	t.Run("without invoice ref a fresh charge is confirmed", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)

		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.MatchedBy(func(req gateway.ChargeRequest) bool {
			return req.AmountMinor == p.Amount.Amount &&
				req.Currency == p.Amount.Currency &&
				req.PaymentMethodRef == p.PaymentMethodRef &&
				req.CustomerRef == p.PayerID.String() &&
				req.IdempotencyKey != ""
		})).Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_2"}, nil)
		payments.On("MarkAttemptSucceeded", ctx, p.ID, mock.AnythingOfType("uuid.UUID"), "txn_2", due).Return(nil)

		outcome, err := executor.ExecuteDueRetry(ctx, p, due)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSucceeded, outcome)
		gw.AssertExpectations(t)
	})

	t.Run("decline records the attempt and moves the sweep index", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)

		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeDeclined, DeclineCode: "insufficient_funds", Message: "card declined"}, nil)
		payments.On("MarkAttemptFailed", ctx, p.ID, mock.AnythingOfType("uuid.UUID"), "card declined", due).Return(nil)
		payments.On("SetNextRetryAt", ctx, p.ID, mock.MatchedBy(func(next *time.Time) bool {
			// First consumed attempt: next slot is the 24h delay.
			return next != nil && next.Equal(due.Add(24*time.Hour))
		})).Return(nil)

		outcome, err := executor.ExecuteDueRetry(ctx, p, due)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeFailed, outcome)
		payments.AssertExpectations(t)
	})

	t.Run("final decline clears the sweep index", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		declinedAt(p, start.Add(6*time.Hour))
		declinedAt(p, start.Add(30*time.Hour))
		now := start.Add(30*time.Hour + 72*time.Hour)

		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeDeclined, Message: "card declined"}, nil)
		payments.On("MarkAttemptFailed", ctx, p.ID, mock.AnythingOfType("uuid.UUID"), "card declined", now).Return(nil)
		payments.On("SetNextRetryAt", ctx, p.ID, (*time.Time)(nil)).Return(nil)

		outcome, err := executor.ExecuteDueRetry(ctx, p, now)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeFailed, outcome)
		payments.AssertExpectations(t)
	})

	t.Run("transient gateway outcome releases the claim", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)

		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeTransient, Message: "issuer timeout"}, nil)
		payments.On("ReleaseAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(nil)

		outcome, err := executor.ExecuteDueRetry(ctx, p, due)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeDeferred, outcome)
		payments.AssertNotCalled(t, "MarkAttemptFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		payments.AssertExpectations(t)
	})

	t.Run("transport error releases the claim", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)

		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{}, errors.New("connection reset"))
		payments.On("ReleaseAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(nil)

		outcome, err := executor.ExecuteDueRetry(ctx, p, due)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeDeferred, outcome)
		payments.AssertExpectations(t)
	})

	t.Run("append conflict means another worker got there first", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(domainErrors.ErrAttemptConflict)

		outcome, err := executor.ExecuteDueRetry(ctx, p, due)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSkippedNotDue, outcome)
		gw.AssertNotCalled(t, "CreateAndConfirmCharge", mock.Anything, mock.Anything)
	})

	t.Run("lost claim race skips without charging", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(false, nil)

		outcome, err := executor.ExecuteDueRetry(ctx, p, due)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSkippedNotDue, outcome)
		gw.AssertNotCalled(t, "CreateAndConfirmCharge", mock.Anything, mock.Anything)
	})

	t.Run("not yet due skips without touching the store", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		outcome, err := executor.ExecuteDueRetry(ctx, p, start.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSkippedNotDue, outcome)
		payments.AssertNotCalled(t, "AppendAttempt", mock.Anything, mock.Anything)
	})

	t.Run("recovered payment is reported exhausted", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		a := entity.NewRetryAttempt(p.ID, start)
		a.Status = entity.AttemptStatusSucceeded
		p.RetryAttempts = append(p.RetryAttempts, a)

		outcome, err := executor.ExecuteDueRetry(ctx, p, start.Add(1000*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSkippedExhausted, outcome)
	})
}

func TestRetryExecutor_ExecuteManualRetry(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(time.Hour)

	t.Run("recovered payment is not retryable", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		a := entity.NewRetryAttempt(p.ID, start)
		a.Status = entity.AttemptStatusSucceeded
		p.RetryAttempts = append(p.RetryAttempts, a)

		_, _, err := executor.ExecuteManualRetry(ctx, p, now)
		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotRetryable)
	})

	t.Run("reuses the open scheduled attempt", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		open := entity.NewRetryAttempt(p.ID, start.Add(6*time.Hour))
		p.RetryAttempts = append(p.RetryAttempts, open)

		payments.On("ClaimAttempt", ctx, p.ID, open.ID).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_m"}, nil)
		payments.On("MarkAttemptSucceeded", ctx, p.ID, open.ID, "txn_m", now).Return(nil)

		attempt, outcome, err := executor.ExecuteManualRetry(ctx, p, now)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSucceeded, outcome)
		assert.Equal(t, open.ID, attempt.ID)
		payments.AssertNotCalled(t, "AppendAttempt", mock.Anything, mock.Anything)
	})

	t.Run("materializes a manual attempt when none is open", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		declinedAt(p, start.Add(6*time.Hour))

		payments.On("AppendAttempt", ctx, mock.MatchedBy(func(a *entity.RetryAttempt) bool {
			return a.Manual && a.PaymentID == p.ID
		})).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_m2"}, nil)
		payments.On("MarkAttemptSucceeded", ctx, p.ID, mock.AnythingOfType("uuid.UUID"), "txn_m2", now).Return(nil)

		attempt, outcome, err := executor.ExecuteManualRetry(ctx, p, now)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSucceeded, outcome)
		assert.True(t, attempt.Manual)
	})

	t.Run("exhausted payment may still be retried manually", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		for i := 0; i < entity.DefaultMaxRetries; i++ {
			declinedAt(p, start.Add(time.Duration(i+1)*time.Hour))
		}
		require.True(t, p.Exhausted())

		payments.On("AppendAttempt", ctx, mock.AnythingOfType("*entity.RetryAttempt")).Return(nil)
		payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_m3"}, nil)
		payments.On("MarkAttemptSucceeded", ctx, p.ID, mock.AnythingOfType("uuid.UUID"), "txn_m3", now).Return(nil)

		_, outcome, err := executor.ExecuteManualRetry(ctx, p, now)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSucceeded, outcome)
	})

	t.Run("lost claim race surfaces as not retryable", func(t *testing.T) {
		payments := mocks.NewMockFailedPaymentRepository()
		gw := mocks.NewMockPaymentGateway()
		executor := newExecutor(payments, gw)

		p := newPayment(t, start)
		open := entity.NewRetryAttempt(p.ID, start.Add(6*time.Hour))
		p.RetryAttempts = append(p.RetryAttempts, open)

		payments.On("ClaimAttempt", ctx, p.ID, open.ID).Return(false, nil)

		_, _, err := executor.ExecuteManualRetry(ctx, p, now)
		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotRetryable)
		gw.AssertNotCalled(t, "CreateAndConfirmCharge", mock.Anything, mock.Anything)
	})
}
