package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// MockSubscriptionRepository is a mock implementation of SubscriptionRepository
type MockSubscriptionRepository struct {
	mock.Mock
}

// NewMockSubscriptionRepository creates a new mock subscription repository
func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{}
}

func (m *MockSubscriptionRepository) GetByProcessorRef(ctx context.Context, processorRef string) (*entity.Subscription, error) {
	args := m.Called(ctx, processorRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) MarkPastDue(ctx context.Context, processorRef string) error {
	args := m.Called(ctx, processorRef)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Cancel(ctx context.Context, processorRef, reason string, at time.Time) error {
	args := m.Called(ctx, processorRef, reason, at)
	return args.Error(0)
}
