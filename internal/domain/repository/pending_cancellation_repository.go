package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// PendingCancellationRepository defines data access for scheduled cancellations
type PendingCancellationRepository interface {
	// Create persists a pending cancellation. Returns ErrCancellationPending
	// when an unprocessed one already exists for the same subscription.
	Create(ctx context.Context, cancellation *entity.PendingCancellation) error

	// ListDue retrieves unprocessed cancellations scheduled at or before now
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.PendingCancellation, error)

	// MarkProcessed records a cancellation as executed
	MarkProcessed(ctx context.Context, id uuid.UUID, processedAt time.Time) error
}
