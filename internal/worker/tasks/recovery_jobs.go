package tasks

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/clock"
	"github.com/bivex/payment-recovery/internal/domain/service"
	"github.com/bivex/payment-recovery/internal/infrastructure/logging"
)

// RecoveryJobHandler handles the periodic recovery sweeps
type RecoveryJobHandler struct {
	recovery *service.RecoveryService
	clk      clock.Clock
	logger   *zap.Logger
}

// NewRecoveryJobHandler creates a new recovery job handler
func NewRecoveryJobHandler(recovery *service.RecoveryService, clk clock.Clock) *RecoveryJobHandler {
	return &RecoveryJobHandler{
		recovery: recovery,
		clk:      clk,
		logger:   logging.Logger,
	}
}

// HandleRunDueRetries executes all retry attempts that have come due
func (h *RecoveryJobHandler) HandleRunDueRetries(ctx context.Context, t *asynq.Task) error {
	result, err := h.recovery.RunDueRetries(ctx, h.clk.Now())
	if err != nil {
		return err
	}

	if result.Succeeded+result.Failed+result.Deferred > 0 {
		h.logger.Info("Retry sweep completed",
			zap.Int("succeeded", result.Succeeded),
			zap.Int("failed", result.Failed),
			zap.Int("deferred", result.Deferred),
			zap.Int("skipped", result.Skipped),
		)
	}
	return nil
}

// HandleRunDueNotifications sends all dunning notifications that have come due
func (h *RecoveryJobHandler) HandleRunDueNotifications(ctx context.Context, t *asynq.Task) error {
	result, err := h.recovery.RunDueNotifications(ctx, h.clk.Now())
	if err != nil {
		return err
	}

	if result.Sent+result.Failed > 0 {
		h.logger.Info("Notification sweep completed",
			zap.Int("sent", result.Sent),
			zap.Int("failed", result.Failed),
		)
	}
	return nil
}

// HandleRunDueCancellations executes all subscription cancellations that have come due
func (h *RecoveryJobHandler) HandleRunDueCancellations(ctx context.Context, t *asynq.Task) error {
	result, err := h.recovery.RunDueCancellations(ctx, h.clk.Now())
	if err != nil {
		return err
	}

	if result.Processed+result.Voided > 0 {
		h.logger.Info("Cancellation sweep completed",
			zap.Int("processed", result.Processed),
			zap.Int("voided", result.Voided),
		)
	}
	return nil
}
