package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
)

// FailedPaymentRepositoryImpl implements FailedPaymentRepository using pgxpool.
// The claim/release/complete methods are conditional updates: concurrency
// control lives in the WHERE clause, not in application locks.
type FailedPaymentRepositoryImpl struct {
	pool *pgxpool.Pool
}

// NewFailedPaymentRepository creates a new failed payment repository
func NewFailedPaymentRepository(pool *pgxpool.Pool) *FailedPaymentRepositoryImpl {
	return &FailedPaymentRepositoryImpl{
		pool: pool,
	}
}

// Create persists a new failed payment record
func (r *FailedPaymentRepositoryImpl) Create(ctx context.Context, p *entity.FailedPayment) error {
	query := `
		INSERT INTO failed_payments (
			id, processor_event_id, payer_id, amount_minor, currency, failure_kind,
			failure_message, payment_method_ref, subscription_ref, invoice_ref,
			max_retries, next_retry_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.pool.Exec(ctx, query,
		p.ID, p.ProcessorEventID, p.PayerID, p.Amount.Amount, p.Amount.Currency, p.FailureKind,
		p.FailureMessage, p.PaymentMethodRef, p.SubscriptionRef, p.InvoiceRef,
		p.MaxRetries, p.NextRetryAt, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return domainErrors.ErrDuplicateEvent
	}
	return err
}

// GetByID retrieves a failed payment with its full attempt history
func (r *FailedPaymentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entity.FailedPayment, error) {
	query := `
		SELECT
			id, processor_event_id, payer_id, amount_minor, currency, failure_kind,
			failure_message, payment_method_ref, subscription_ref, invoice_ref,
			max_retries, next_retry_at, created_at, updated_at
		FROM failed_payments
		WHERE id = $1
	`
	p := &entity.FailedPayment{}
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.ProcessorEventID, &p.PayerID, &p.Amount.Amount, &p.Amount.Currency, &p.FailureKind,
		&p.FailureMessage, &p.PaymentMethodRef, &p.SubscriptionRef, &p.InvoiceRef,
		&p.MaxRetries, &p.NextRetryAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domainErrors.ErrPaymentNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadAttempts(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListDueForRetry retrieves payments whose next retry is due
func (r *FailedPaymentRepositoryImpl) ListDueForRetry(ctx context.Context, now time.Time, limit int) ([]*entity.FailedPayment, error) {
	query := `
		SELECT
			id, processor_event_id, payer_id, amount_minor, currency, failure_kind,
			failure_message, payment_method_ref, subscription_ref, invoice_ref,
			max_retries, next_retry_at, created_at, updated_at
		FROM failed_payments
		WHERE next_retry_at IS NOT NULL AND next_retry_at <= $1
		ORDER BY next_retry_at
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*entity.FailedPayment
	for rows.Next() {
		p := &entity.FailedPayment{}
		err := rows.Scan(
			&p.ID, &p.ProcessorEventID, &p.PayerID, &p.Amount.Amount, &p.Amount.Currency, &p.FailureKind,
			&p.FailureMessage, &p.PaymentMethodRef, &p.SubscriptionRef, &p.InvoiceRef,
			&p.MaxRetries, &p.NextRetryAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, p := range results {
		if err := r.loadAttempts(ctx, p); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// AppendAttempt inserts a new scheduled attempt. A partial unique index on
// open attempts enforces at most one scheduled-or-processing attempt per
// payment; losing that race surfaces as ErrAttemptConflict.
func (r *FailedPaymentRepositoryImpl) AppendAttempt(ctx context.Context, a *entity.RetryAttempt) error {
	query := `
		INSERT INTO retry_attempts (
			id, payment_id, status, scheduled_at, executed_at, result_message,
			transaction_ref, manual, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.pool.Exec(ctx, query,
		a.ID, a.PaymentID, a.Status, a.ScheduledAt, a.ExecutedAt, a.ResultMessage,
		a.TransactionRef, a.Manual, a.CreatedAt,
	)
	if isUniqueViolation(err) {
		return domainErrors.ErrAttemptConflict
	}
	return err
}

// ClaimAttempt transitions an attempt scheduled -> processing
func (r *FailedPaymentRepositoryImpl) ClaimAttempt(ctx context.Context, paymentID, attemptID uuid.UUID) (bool, error) {
	query := `
		UPDATE retry_attempts
		SET status = 'processing'
		WHERE id = $1 AND payment_id = $2 AND status = 'scheduled'
	`
	tag, err := r.pool.Exec(ctx, query, attemptID, paymentID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseAttempt transitions processing -> scheduled after a transient fault
func (r *FailedPaymentRepositoryImpl) ReleaseAttempt(ctx context.Context, paymentID, attemptID uuid.UUID) error {
	query := `
		UPDATE retry_attempts
		SET status = 'scheduled'
		WHERE id = $1 AND payment_id = $2 AND status = 'processing'
	`
	_, err := r.pool.Exec(ctx, query, attemptID, paymentID)
	return err
}

// MarkAttemptSucceeded finalizes a processing attempt and clears the sweep index
func (r *FailedPaymentRepositoryImpl) MarkAttemptSucceeded(ctx context.Context, paymentID, attemptID uuid.UUID, transactionRef string, executedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE retry_attempts
		SET status = 'succeeded', transaction_ref = $3, executed_at = $4
		WHERE id = $1 AND payment_id = $2 AND status = 'processing'
	`, attemptID, paymentID, transactionRef, executedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return domainErrors.ErrAttemptConflict
	}

	_, err = tx.Exec(ctx, `
		UPDATE failed_payments
		SET next_retry_at = NULL, updated_at = $2
		WHERE id = $1
	`, paymentID, executedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// MarkAttemptFailed finalizes a processing attempt with the decline message
func (r *FailedPaymentRepositoryImpl) MarkAttemptFailed(ctx context.Context, paymentID, attemptID uuid.UUID, resultMessage string, executedAt time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE retry_attempts
		SET status = 'failed', result_message = $3, executed_at = $4
		WHERE id = $1 AND payment_id = $2 AND status = 'processing'
	`, attemptID, paymentID, resultMessage, executedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return domainErrors.ErrAttemptConflict
	}
	return nil
}

// SetNextRetryAt updates the payment's sweep index; nil clears it
func (r *FailedPaymentRepositoryImpl) SetNextRetryAt(ctx context.Context, paymentID uuid.UUID, nextRetryAt *time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE failed_payments
		SET next_retry_at = $2, updated_at = NOW()
		WHERE id = $1
	`, paymentID, nextRetryAt)
	return err
}

func (r *FailedPaymentRepositoryImpl) loadAttempts(ctx context.Context, p *entity.FailedPayment) error {
	rows, err := r.pool.Query(ctx, `
		SELECT id, payment_id, status, scheduled_at, executed_at, result_message,
		       transaction_ref, manual, created_at
		FROM retry_attempts
		WHERE payment_id = $1
		ORDER BY created_at
	`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		a := &entity.RetryAttempt{}
		err := rows.Scan(
			&a.ID, &a.PaymentID, &a.Status, &a.ScheduledAt, &a.ExecutedAt, &a.ResultMessage,
			&a.TransactionRef, &a.Manual, &a.CreatedAt,
		)
		if err != nil {
			return err
		}
		p.RetryAttempts = append(p.RetryAttempts, a)
	}
	return rows.Err()
}

// isUniqueViolation reports whether err is a Postgres unique constraint violation
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
