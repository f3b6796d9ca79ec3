package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
	"github.com/bivex/payment-recovery/internal/domain/repository"
)

// DunningWorkflowRepositoryImpl implements DunningWorkflowRepository using pgxpool
type DunningWorkflowRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewDunningWorkflowRepository creates a new dunning workflow repository
func NewDunningWorkflowRepository(pool *pgxpool.Pool) *DunningWorkflowRepositoryImpl {
	return &DunningWorkflowRepositoryImpl{
		pool: pool,
	}
}

// Create persists a workflow together with its pre-materialized stages
func (r *DunningWorkflowRepositoryImpl) Create(ctx context.Context, w *entity.DunningWorkflow) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO dunning_workflows (id, payment_id, payer_id, subscription_ref, started_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, w.ID, w.PaymentID, w.PayerID, w.SubscriptionRef, w.StartedAt, w.CreatedAt)
	if err != nil {
		return err
	}

	for _, n := range w.Notifications {
		_, err = tx.Exec(ctx, `
			INSERT INTO dunning_notifications (id, workflow_id, stage, status, scheduled_at, sent_at, failure_reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, n.ID, n.WorkflowID, n.Stage, n.Status, n.ScheduledAt, n.SentAt, n.FailureReason, n.CreatedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByPaymentID retrieves the workflow for a failed payment
func (r *DunningWorkflowRepositoryImpl) GetByPaymentID(ctx context.Context, paymentID uuid.UUID) (*entity.DunningWorkflow, error) {
	w := &entity.DunningWorkflow{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, payment_id, payer_id, subscription_ref, started_at, created_at
		FROM dunning_workflows
		WHERE payment_id = $1
	`, paymentID).Scan(&w.ID, &w.PaymentID, &w.PayerID, &w.SubscriptionRef, &w.StartedAt, &w.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainErrors.ErrWorkflowNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, workflow_id, stage, status, scheduled_at, sent_at, failure_reason, created_at
		FROM dunning_notifications
		WHERE workflow_id = $1
		ORDER BY scheduled_at, created_at
	`, w.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		n := &entity.DunningNotification{}
		err := rows.Scan(&n.ID, &n.WorkflowID, &n.Stage, &n.Status, &n.ScheduledAt, &n.SentAt, &n.FailureReason, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		w.Notifications = append(w.Notifications, n)
	}
	return w, rows.Err()
}

// ListDueNotifications retrieves pending notifications scheduled at or before now
func (r *DunningWorkflowRepositoryImpl) ListDueNotifications(ctx context.Context, now time.Time, limit int) ([]*repository.DueNotification, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT n.id, n.workflow_id, n.stage, n.status, n.scheduled_at, n.sent_at, n.failure_reason, n.created_at,
		       w.payment_id, w.payer_id, w.subscription_ref
		FROM dunning_notifications n
		JOIN dunning_workflows w ON w.id = n.workflow_id
		WHERE n.status = 'pending' AND n.scheduled_at <= $1
		ORDER BY n.scheduled_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*repository.DueNotification
	for rows.Next() {
		n := &entity.DunningNotification{}
		d := &repository.DueNotification{Notification: n}
		err := rows.Scan(
			&n.ID, &n.WorkflowID, &n.Stage, &n.Status, &n.ScheduledAt, &n.SentAt, &n.FailureReason, &n.CreatedAt,
			&d.PaymentID, &d.PayerID, &d.SubscriptionRef,
		)
		if err != nil {
			return nil, err
		}
		d.WorkflowID = n.WorkflowID
		results = append(results, d)
	}
	return results, rows.Err()
}

// ClaimNotification transitions a notification pending -> sending
func (r *DunningWorkflowRepositoryImpl) ClaimNotification(ctx context.Context, notificationID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dunning_notifications
		SET status = 'sending'
		WHERE id = $1 AND status = 'pending'
	`, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkNotificationSent finalizes a claimed notification as sent
func (r *DunningWorkflowRepositoryImpl) MarkNotificationSent(ctx context.Context, notificationID uuid.UUID, sentAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE dunning_notifications
		SET status = 'sent', sent_at = $2
		WHERE id = $1 AND status = 'sending'
	`, notificationID, sentAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return domainErrors.ErrWorkflowNotFound
	}
	return nil
}

// MarkNotificationFailed finalizes a notification as failed with a reason
func (r *DunningWorkflowRepositoryImpl) MarkNotificationFailed(ctx context.Context, notificationID uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE dunning_notifications
		SET status = 'failed', failure_reason = $2
		WHERE id = $1 AND status IN ('pending', 'sending')
	`, notificationID, reason)
	return err
}

// AppendNotification adds a late stage (subscription_canceled) to a workflow
func (r *DunningWorkflowRepositoryImpl) AppendNotification(ctx context.Context, n *entity.DunningNotification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO dunning_notifications (id, workflow_id, stage, status, scheduled_at, sent_at, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, n.ID, n.WorkflowID, n.Stage, n.Status, n.ScheduledAt, n.SentAt, n.FailureReason, n.CreatedAt)
	return err
}
