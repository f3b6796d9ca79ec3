package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/clock"
	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
	"github.com/bivex/payment-recovery/internal/domain/gateway"
	"github.com/bivex/payment-recovery/internal/domain/service"
	"github.com/bivex/payment-recovery/internal/domain/valueobject"
	"github.com/bivex/payment-recovery/tests/mocks"
)

type recoveryFixture struct {
	payments      *mocks.MockFailedPaymentRepository
	subscriptions *mocks.MockSubscriptionRepository
	workflows     *mocks.MockDunningWorkflowRepository
	cancellations *mocks.MockPendingCancellationRepository
	members       *mocks.MockMemberRepository
	gw            *mocks.MockPaymentGateway
	notifier      *mocks.MockNotifier
	svc           *service.RecoveryService
}

func newRecoveryFixture(now time.Time) *recoveryFixture {
	f := &recoveryFixture{
		payments:      mocks.NewMockFailedPaymentRepository(),
		subscriptions: mocks.NewMockSubscriptionRepository(),
		workflows:     mocks.NewMockDunningWorkflowRepository(),
		cancellations: mocks.NewMockPendingCancellationRepository(),
		members:       mocks.NewMockMemberRepository(),
		gw:            mocks.NewMockPaymentGateway(),
		notifier:      mocks.NewMockNotifier(),
	}
	logger := zap.NewNop()
	policy := service.DefaultRetryPolicy()
	scheduler := service.NewRetryScheduler(policy)
	executor := service.NewRetryExecutor(f.payments, f.gw, scheduler, logger)
	cancelSvc := service.NewCancellationService(f.cancellations, f.subscriptions, f.workflows, f.payments, f.gw, 100, logger)
	dunning := service.NewDunningService(f.workflows, f.payments, f.members, f.notifier, cancelSvc, 100, logger)
	f.svc = service.NewRecoveryService(
		service.NewFailureClassifier(), f.payments, f.subscriptions,
		executor, dunning, cancelSvc, policy, 100, clock.Fixed{T: now}, logger,
	)
	return f
}

func failureEvent(occurredAt time.Time) service.FailureEvent {
	return service.FailureEvent{
		ProcessorEventID: "evt_" + uuid.NewString(),
		PayerID:          uuid.New(),
		AmountMinor:      2999,
		Currency:         "USD",
		RawReason:        "insufficient_funds",
		Message:          "Your card has insufficient funds.",
		PaymentMethodRef: "pm_test_visa",
		OccurredAt:       occurredAt,
	}
}

func TestRecoveryService_RecordFailure(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("records, classifies and starts the workflow", func(t *testing.T) {
		f := newRecoveryFixture(now)
		event := failureEvent(now)
		subRef := "sub_1"
		event.SubscriptionRef = &subRef

		f.payments.On("Create", ctx, mock.MatchedBy(func(p *entity.FailedPayment) bool {
			return p.ProcessorEventID == event.ProcessorEventID &&
				p.FailureKind == valueobject.FailureInsufficientFunds &&
				p.NextRetryAt != nil && p.NextRetryAt.Equal(now.Add(6*time.Hour))
		})).Return(nil)
		f.subscriptions.On("MarkPastDue", ctx, "sub_1").Return(nil)
		f.workflows.On("Create", ctx, mock.AnythingOfType("*entity.DunningWorkflow")).Return(nil)
		// Let another worker win the initial send so this test stays focused.
		f.workflows.On("ClaimNotification", ctx, mock.AnythingOfType("uuid.UUID")).Return(false, nil)

		payment, err := f.svc.RecordFailure(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, event.PayerID, payment.PayerID)
		f.payments.AssertExpectations(t)
		f.subscriptions.AssertExpectations(t)
		f.workflows.AssertExpectations(t)
	})

	t.Run("redelivered event surfaces the duplicate error", func(t *testing.T) {
		f := newRecoveryFixture(now)
		f.payments.On("Create", ctx, mock.Anything).Return(domainErrors.ErrDuplicateEvent)

		_, err := f.svc.RecordFailure(ctx, failureEvent(now))
		assert.ErrorIs(t, err, domainErrors.ErrDuplicateEvent)
		f.workflows.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("invalid amount is rejected before any write", func(t *testing.T) {
		f := newRecoveryFixture(now)
		event := failureEvent(now)
		event.AmountMinor = -1

		_, err := f.svc.RecordFailure(ctx, event)
		assert.Error(t, err)
		f.payments.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("past due marking is best effort", func(t *testing.T) {
		f := newRecoveryFixture(now)
		event := failureEvent(now)
		subRef := "sub_2"
		event.SubscriptionRef = &subRef

		f.payments.On("Create", ctx, mock.Anything).Return(nil)
		f.subscriptions.On("MarkPastDue", ctx, "sub_2").Return(errors.New("row locked"))
		f.workflows.On("Create", ctx, mock.Anything).Return(nil)
		f.workflows.On("ClaimNotification", ctx, mock.AnythingOfType("uuid.UUID")).Return(false, nil)

		_, err := f.svc.RecordFailure(ctx, event)
		assert.NoError(t, err)
	})

	t.Run("zero event time falls back to the clock", func(t *testing.T) {
		f := newRecoveryFixture(now)
		event := failureEvent(time.Time{})

		f.payments.On("Create", ctx, mock.MatchedBy(func(p *entity.FailedPayment) bool {
			return p.CreatedAt.Equal(now) && p.NextRetryAt.Equal(now.Add(6*time.Hour))
		})).Return(nil)
		f.workflows.On("Create", ctx, mock.Anything).Return(nil)
		f.workflows.On("ClaimNotification", ctx, mock.AnythingOfType("uuid.UUID")).Return(false, nil)

		_, err := f.svc.RecordFailure(ctx, event)
		assert.NoError(t, err)
		f.payments.AssertExpectations(t)
	})
}

func TestRecoveryService_RunDueRetries(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	now := start.Add(6 * time.Hour)

	t.Run("buckets outcomes per payment", func(t *testing.T) {
		f := newRecoveryFixture(now)
		due := newPayment(t, start)     // will succeed
		notDue := newPayment(t, start)  // 6h slot not reached from a later failure
		declinedAt(notDue, now.Add(-time.Hour))

		f.payments.On("ListDueForRetry", ctx, now, 100).Return([]*entity.FailedPayment{due, notDue}, nil)
		f.payments.On("AppendAttempt", ctx, mock.MatchedBy(func(a *entity.RetryAttempt) bool {
			return a.PaymentID == due.ID
		})).Return(nil)
		f.payments.On("ClaimAttempt", ctx, due.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		f.gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_1"}, nil)
		f.payments.On("MarkAttemptSucceeded", ctx, due.ID, mock.AnythingOfType("uuid.UUID"), "txn_1", now).Return(nil)

		result, err := f.svc.RunDueRetries(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
		assert.Equal(t, 1, result.Skipped)
		assert.Equal(t, 0, result.Failed)
	})

	t.Run("one failing payment never aborts the sweep", func(t *testing.T) {
		f := newRecoveryFixture(now)
		broken := newPayment(t, start)
		fine := newPayment(t, start)

		f.payments.On("ListDueForRetry", ctx, now, 100).Return([]*entity.FailedPayment{broken, fine}, nil)
		f.payments.On("AppendAttempt", ctx, mock.MatchedBy(func(a *entity.RetryAttempt) bool {
			return a.PaymentID == broken.ID
		})).Return(errors.New("insert failed"))
		f.payments.On("AppendAttempt", ctx, mock.MatchedBy(func(a *entity.RetryAttempt) bool {
			return a.PaymentID == fine.ID
		})).Return(nil)
		f.payments.On("ClaimAttempt", ctx, fine.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		f.gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_2"}, nil)
		f.payments.On("MarkAttemptSucceeded", ctx, fine.ID, mock.AnythingOfType("uuid.UUID"), "txn_2", now).Return(nil)

		result, err := f.svc.RunDueRetries(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Succeeded)
	})

	t.Run("list failure aborts the sweep", func(t *testing.T) {
		f := newRecoveryFixture(now)
		f.payments.On("ListDueForRetry", ctx, now, 100).Return(nil, errors.New("db down"))

		_, err := f.svc.RunDueRetries(ctx, now)
		assert.Error(t, err)
	})
}

func TestRecoveryService_ManualRetry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	t.Run("unknown payment passes the lookup error through", func(t *testing.T) {
		f := newRecoveryFixture(now)
		id := uuid.New()
		f.payments.On("GetByID", ctx, id).Return(nil, domainErrors.ErrPaymentNotFound)

		_, _, err := f.svc.ManualRetry(ctx, id)
		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
	})

	t.Run("executes through the claim step at the clock's now", func(t *testing.T) {
		f := newRecoveryFixture(now)
		p := newPayment(t, now.Add(-2*time.Hour))

		f.payments.On("GetByID", ctx, p.ID).Return(p, nil)
		f.payments.On("AppendAttempt", ctx, mock.MatchedBy(func(a *entity.RetryAttempt) bool {
			return a.Manual && a.ScheduledAt.Equal(now)
		})).Return(nil)
		f.payments.On("ClaimAttempt", ctx, p.ID, mock.AnythingOfType("uuid.UUID")).Return(true, nil)
		f.gw.On("CreateAndConfirmCharge", ctx, mock.AnythingOfType("gateway.ChargeRequest")).
			Return(gateway.ChargeResult{Outcome: gateway.OutcomeSucceeded, TransactionRef: "txn_m"}, nil)
		f.payments.On("MarkAttemptSucceeded", ctx, p.ID, mock.AnythingOfType("uuid.UUID"), "txn_m", now).Return(nil)

		attempt, outcome, err := f.svc.ManualRetry(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, service.OutcomeSucceeded, outcome)
		assert.True(t, attempt.Manual)
	})
}
