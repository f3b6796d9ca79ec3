package repository

import (
	"context"
	"time"

	"github.com/bivex/payment-recovery/internal/domain/entity"
)

// SubscriptionRepository defines the subscription data access this core needs
type SubscriptionRepository interface {
	// GetByProcessorRef retrieves a subscription by its processor-side reference
	GetByProcessorRef(ctx context.Context, processorRef string) (*entity.Subscription, error)

	// MarkPastDue flags an active subscription after a failed renewal charge
	MarkPastDue(ctx context.Context, processorRef string) error

	// Cancel marks the subscription record cancelled
	Cancel(ctx context.Context, processorRef, reason string, at time.Time) error
}
