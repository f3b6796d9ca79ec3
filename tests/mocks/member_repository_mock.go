package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// MockMemberRepository is a mock implementation of MemberRepository
type MockMemberRepository struct {
	mock.Mock
}

// NewMockMemberRepository creates a new mock member repository
func NewMockMemberRepository() *MockMemberRepository {
	return &MockMemberRepository{}
}

func (m *MockMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Member), args.Error(1)
}
