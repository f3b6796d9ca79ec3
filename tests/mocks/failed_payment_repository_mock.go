package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// MockFailedPaymentRepository is a mock implementation of FailedPaymentRepository
type MockFailedPaymentRepository struct {
	mock.Mock
}

// NewMockFailedPaymentRepository creates a new mock failed payment repository
func NewMockFailedPaymentRepository() *MockFailedPaymentRepository {
	return &MockFailedPaymentRepository{}
}

func (m *MockFailedPaymentRepository) Create(ctx context.Context, p *entity.FailedPayment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockFailedPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.FailedPayment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.FailedPayment), args.Error(1)
}

func (m *MockFailedPaymentRepository) ListDueForRetry(ctx context.Context, now time.Time, limit int) ([]*entity.FailedPayment, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.FailedPayment), args.Error(1)
}

func (m *MockFailedPaymentRepository) AppendAttempt(ctx context.Context, a *entity.RetryAttempt) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockFailedPaymentRepository) ClaimAttempt(ctx context.Context, paymentID, attemptID uuid.UUID) (bool, error) {
	args := m.Called(ctx, paymentID, attemptID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFailedPaymentRepository) ReleaseAttempt(ctx context.Context, paymentID, attemptID uuid.UUID) error {
	args := m.Called(ctx, paymentID, attemptID)
	return args.Error(0)
}

func (m *MockFailedPaymentRepository) MarkAttemptSucceeded(ctx context.Context, paymentID, attemptID uuid.UUID, transactionRef string, executedAt time.Time) error {
	args := m.Called(ctx, paymentID, attemptID, transactionRef, executedAt)
	return args.Error(0)
}

func (m *MockFailedPaymentRepository) MarkAttemptFailed(ctx context.Context, paymentID, attemptID uuid.UUID, resultMessage string, executedAt time.Time) error {
	args := m.Called(ctx, paymentID, attemptID, resultMessage, executedAt)
	return args.Error(0)
}

func (m *MockFailedPaymentRepository) SetNextRetryAt(ctx context.Context, paymentID uuid.UUID, nextRetryAt *time.Time) error {
	args := m.Called(ctx, paymentID, nextRetryAt)
	return args.Error(0)
}
