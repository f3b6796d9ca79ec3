package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	"github.com/bivex/payment-recovery/internal/domain/repository"
)

// MockDunningWorkflowRepository is a mock implementation of DunningWorkflowRepository
type MockDunningWorkflowRepository struct {
	mock.Mock
}

// NewMockDunningWorkflowRepository creates a new mock dunning workflow repository
func NewMockDunningWorkflowRepository() *MockDunningWorkflowRepository {
	return &MockDunningWorkflowRepository{}
}

func (m *MockDunningWorkflowRepository) Create(ctx context.Context, w *entity.DunningWorkflow) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockDunningWorkflowRepository) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.DunningWorkflow, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DunningWorkflow), args.Error(1)
}

func (m *MockDunningWorkflowRepository) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]*repository.DueNotification, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*repository.DueNotification), args.Error(1)
}

func (m *MockDunningWorkflowRepository) ClaimNotification(ctx context.Context, notificationID uuid.UUID) (bool, error) {
	args := m.Called(ctx, notificationID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDunningWorkflowRepository) MarkNotificationSent(ctx context.Context, notificationID uuid.UUID, sentAt time.Time) error {
	args := m.Called(ctx, notificationID, sentAt)
	return args.Error(0)
}

func (m *MockDunningWorkflowRepository) MarkNotificationFailed(ctx context.Context, notificationID uuid.UUID, reason string) error {
	args := m.Called(ctx, notificationID, reason)
	return args.Error(0)
}

func (m *MockDunningWorkflowRepository) AppendNotification(ctx context.Context, n *entity.DunningNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
