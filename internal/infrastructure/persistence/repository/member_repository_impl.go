package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
)

// MemberRepositoryImpl implements MemberRepository using pgxpool
type MemberRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepositoryImpl {
	return &MemberRepositoryImpl{
		pool: pool,
	}
}

// GetByID retrieves a member by id
func (r *MemberRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entity.Member, error) {
	m := &entity.Member{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, first_name, last_name, email, created_at, deleted_at
		FROM members
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&m.ID, &m.FirstName, &m.LastName, &m.Email, &m.CreatedAt, &m.DeletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainErrors.ErrMemberNotFound
	}
	return m, err
}
