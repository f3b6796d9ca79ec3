package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	"github.com/bivex/payment-recovery/internal/domain/valueobject"
)

// InsertMember inserts a member row and returns its id
func InsertMember(ctx context.Context, pool *pgxpool.Pool, email string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := pool.Exec(ctx, `
		INSERT INTO members (id, first_name, last_name, email)
		VALUES ($1, 'Test', 'Member', $2)
	`, id, email)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to insert member: %w", err)
	}
	return id, nil
}

// InsertSubscription inserts an active subscription row for a member
func InsertSubscription(ctx context.Context, pool *pgxpool.Pool, memberID uuid.UUID, processorRef string) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO subscriptions (id, member_id, processor_ref, plan_name, status)
		VALUES ($1, $2, $3, 'premium', 'active')
	`, uuid.New(), memberID, processorRef)
	if err != nil {
		return fmt.Errorf("failed to insert subscription: %w", err)
	}
	return nil
}

// NewFailedPayment builds an unsaved failed payment for a member
func NewFailedPayment(payerID uuid.UUID, eventID string, occurredAt time.Time) *entity.FailedPayment {
	amount, _ := valueobject.NewMoney(2999, "USD")
	return entity.NewFailedPayment(
		eventID, payerID, *amount, valueobject.FailureCardDeclined,
		"Your card was declined", "pm_test_visa", nil, nil, occurredAt,
	)
}
