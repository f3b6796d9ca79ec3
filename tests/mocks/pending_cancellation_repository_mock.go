package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// MockPendingCancellationRepository is a mock implementation of PendingCancellationRepository
type MockPendingCancellationRepository struct {
	mock.Mock
}

// NewMockPendingCancellationRepository creates a new mock pending cancellation repository
func NewMockPendingCancellationRepository() *MockPendingCancellationRepository {
	return &MockPendingCancellationRepository{}
}

func (m *MockPendingCancellationRepository) Create(ctx context.Context, c *entity.PendingCancellation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockPendingCancellationRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.PendingCancellation, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.PendingCancellation), args.Error(1)
}

func (m *MockPendingCancellationRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	args := m.Called(ctx, id, processedAt)
	return args.Error(0)
}
