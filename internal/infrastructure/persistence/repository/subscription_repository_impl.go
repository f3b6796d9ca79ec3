package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
)

// SubscriptionRepositoryImpl implements SubscriptionRepository using pgxpool
type SubscriptionRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{
		pool: pool,
	}
}

// GetByProcessorRef retrieves a subscription by its processor-side reference
func (r *SubscriptionRepositoryImpl) GetByProcessorRef(ctx context.Context, processorRef string) (*entity.Subscription, error) {
	s := &entity.Subscription{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, member_id, processor_ref, plan_name, status, cancelled_at, cancel_reason, created_at, updated_at
		FROM subscriptions
		WHERE processor_ref = $1
	`, processorRef).Scan(
		&s.ID, &s.MemberID, &s.ProcessorRef, &s.PlanName, &s.Status, &s.CancelledAt, &s.CancelReason, &s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainErrors.ErrSubscriptionNotFound
	}
	return s, err
}

// MarkPastDue flags an active subscription after a failed renewal charge
func (r *SubscriptionRepositoryImpl) MarkPastDue(ctx context.Context, processorRef string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'past_due', updated_at = NOW()
		WHERE processor_ref = $1 AND status = 'active'
	`, processorRef)
	return err
}

// Cancel marks the subscription record cancelled
func (r *SubscriptionRepositoryImpl) Cancel(ctx context.Context, processorRef, reason string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = 'cancelled', cancelled_at = $2, cancel_reason = $3, updated_at = $2
		WHERE processor_ref = $1 AND status != 'cancelled'
	`, processorRef, at, reason)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Already cancelled or unknown; callers treat cancellation as idempotent.
		return nil
	}
	return nil
}
