package tasks

import (
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/infrastructure/logging"
)

// Task names
const (
	TypeRunDueRetries       = "recovery:run_due_retries"
	TypeRunDueNotifications = "recovery:run_due_notifications"
	TypeRunDueCancellations = "recovery:run_due_cancellations"
)

// RegisterHandlers registers all task handlers with the server mux.
func RegisterHandlers(mux *asynq.ServeMux, h *RecoveryJobHandler) {
	mux.HandleFunc(TypeRunDueRetries, h.HandleRunDueRetries)
	mux.HandleFunc(TypeRunDueNotifications, h.HandleRunDueNotifications)
	mux.HandleFunc(TypeRunDueCancellations, h.HandleRunDueCancellations)
}

// RegisterScheduledTasks registers all scheduled (cron) tasks
func RegisterScheduledTasks(scheduler *asynq.Scheduler) {
	// Sweep due retries every minute
	_, err := scheduler.Register("* * * * *", asynq.NewTask(TypeRunDueRetries, nil))
	if err != nil {
		logging.Logger.Error("Failed to schedule retry sweep", zap.Error(err))
	}

	// Sweep due dunning notifications every minute
	_, err = scheduler.Register("* * * * *", asynq.NewTask(TypeRunDueNotifications, nil))
	if err != nil {
		logging.Logger.Error("Failed to schedule notification sweep", zap.Error(err))
	}

	// Sweep due cancellations every 5 minutes
	_, err = scheduler.Register("*/5 * * * *", asynq.NewTask(TypeRunDueCancellations, nil))
	if err != nil {
		logging.Logger.Error("Failed to schedule cancellation sweep", zap.Error(err))
	}
}
