package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// MemberRepository defines the member data access this core needs
type MemberRepository interface {
	// GetByID retrieves a member by id
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error)
}
