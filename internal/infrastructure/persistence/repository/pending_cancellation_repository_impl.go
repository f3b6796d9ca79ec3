package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
)

// PendingCancellationRepositoryImpl implements PendingCancellationRepository using pgxpool
type PendingCancellationRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewPendingCancellationRepository creates a new pending cancellation repository
func NewPendingCancellationRepository(pool *pgxpool.Pool) *PendingCancellationRepositoryImpl {
	return &PendingCancellationRepositoryImpl{
		pool: pool,
	}
}

// Create persists a pending cancellation. A partial unique index on
// unprocessed rows enforces at most one outstanding cancellation per
// subscription; losing that race surfaces as ErrCancellationPending.
func (r *PendingCancellationRepositoryImpl) Create(ctx context.Context, c *entity.PendingCancellation) error {
	query := `
		INSERT INTO pending_cancellations (
			id, payer_id, payment_id, workflow_id, subscription_ref, scheduled_at, processed, processed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		c.ID, c.PayerID, c.PaymentID, c.WorkflowID, c.SubscriptionRef, c.ScheduledAt, c.Processed, c.ProcessedAt, c.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domainErrors.ErrCancellationPending
	}
	return err
}

// ListDue retrieves unprocessed cancellations scheduled at or before now
func (r *PendingCancellationRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.PendingCancellation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, payer_id, payment_id, workflow_id, subscription_ref, scheduled_at, processed, processed_at, created_at
		FROM pending_cancellations
		WHERE processed = FALSE AND scheduled_at <= $1
		ORDER BY scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*entity.PendingCancellation
	for rows.Next() {
		c := &entity.PendingCancellation{}
		err := rows.Scan(&c.ID, &c.PayerID, &c.PaymentID, &c.WorkflowID, &c.SubscriptionRef, &c.ScheduledAt, &c.Processed, &c.ProcessedAt, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// MarkProcessed records a cancellation as executed
func (r *PendingCancellationRepositoryImpl) MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE pending_cancellations
		SET processed = TRUE, processed_at = $2
		WHERE id = $1 AND processed = FALSE
	`, id, processedAt)
	return err
}
