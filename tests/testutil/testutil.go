package testutil

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the schema on the test database. Kept in sync with
// the SQL files under migrations/.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	schema := `
	CREATE EXTENSION IF NOT EXISTS "uuid-ossp";

	CREATE TABLE IF NOT EXISTS members (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		first_name VARCHAR(255) NOT NULL DEFAULT '',
		last_name VARCHAR(255) NOT NULL DEFAULT '',
		email VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS subscriptions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		member_id UUID NOT NULL REFERENCES members(id),
		processor_ref VARCHAR(255) NOT NULL UNIQUE,
		plan_name VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(50) NOT NULL DEFAULT 'active',
		cancelled_at TIMESTAMPTZ,
		cancel_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS failed_payments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		processor_event_id VARCHAR(255) NOT NULL UNIQUE,
		payer_id UUID NOT NULL REFERENCES members(id),
		amount_minor BIGINT NOT NULL,
		currency VARCHAR(3) NOT NULL,
		failure_kind VARCHAR(50) NOT NULL,
		failure_message TEXT NOT NULL DEFAULT '',
		payment_method_ref VARCHAR(255) NOT NULL DEFAULT '',
		subscription_ref VARCHAR(255),
		invoice_ref VARCHAR(255),
		max_retries INT NOT NULL DEFAULT 3,
		next_retry_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_failed_payments_next_retry_at
		ON failed_payments(next_retry_at) WHERE next_retry_at IS NOT NULL;

	CREATE TABLE IF NOT EXISTS retry_attempts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		payment_id UUID NOT NULL REFERENCES failed_payments(id) ON DELETE CASCADE,
		status VARCHAR(50) NOT NULL DEFAULT 'scheduled',
		scheduled_at TIMESTAMPTZ NOT NULL,
		executed_at TIMESTAMPTZ,
		result_message TEXT NOT NULL DEFAULT '',
		transaction_ref VARCHAR(255) NOT NULL DEFAULT '',
		manual BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_retry_attempts_open
		ON retry_attempts(payment_id) WHERE status IN ('scheduled', 'processing');

	CREATE TABLE IF NOT EXISTS dunning_workflows (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		payment_id UUID NOT NULL UNIQUE REFERENCES failed_payments(id) ON DELETE CASCADE,
		payer_id UUID NOT NULL REFERENCES members(id),
		subscription_ref VARCHAR(255),
		started_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS dunning_notifications (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		workflow_id UUID NOT NULL REFERENCES dunning_workflows(id) ON DELETE CASCADE,
		stage VARCHAR(50) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'pending',
		scheduled_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ,
		failure_reason TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_dunning_notifications_stage
		ON dunning_notifications(workflow_id, stage);

	CREATE TABLE IF NOT EXISTS pending_cancellations (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		payer_id UUID NOT NULL REFERENCES members(id),
		payment_id UUID NOT NULL REFERENCES failed_payments(id) ON DELETE CASCADE,
		workflow_id UUID NOT NULL REFERENCES dunning_workflows(id) ON DELETE CASCADE,
		subscription_ref VARCHAR(255) NOT NULL,
		scheduled_at TIMESTAMPTZ NOT NULL,
		processed BOOLEAN NOT NULL DEFAULT FALSE,
		processed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_pending_cancellations_open
		ON pending_cancellations(subscription_ref) WHERE processed = FALSE;
	`

	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// TruncateAll clears all tables between test cases
func TruncateAll(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		TRUNCATE pending_cancellations, dunning_notifications, dunning_workflows,
			retry_attempts, failed_payments, subscriptions, members CASCADE
	`)
	if err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}
