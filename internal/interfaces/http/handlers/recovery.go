package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bivex/payment-recovery/internal/domain/entity"
	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
	"github.com/bivex/payment-recovery/internal/domain/repository"
	"github.com/bivex/payment-recovery/internal/domain/service"
	"github.com/bivex/payment-recovery/internal/interfaces/http/response"
)

// RecoveryHandler exposes operator endpoints for failed payment recovery
type RecoveryHandler struct {
	recovery *service.RecoveryService
	payments repository.FailedPaymentRepository
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(recovery *service.RecoveryService, payments repository.FailedPaymentRepository) *RecoveryHandler {
	return &RecoveryHandler{
		recovery: recovery,
		payments: payments,
	}
}

type attemptView struct {
	ID            uuid.UUID  `json:"id"`
	Status        string     `json:"status"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	ResultMessage string     `json:"result_message,omitempty"`
	Manual        bool       `json:"manual"`
}

type paymentView struct {
	ID               uuid.UUID     `json:"id"`
	ProcessorEventID string        `json:"processor_event_id"`
	PayerID          uuid.UUID     `json:"payer_id"`
	Amount           string        `json:"amount"`
	FailureKind      string        `json:"failure_kind"`
	FailureMessage   string        `json:"failure_message,omitempty"`
	Recovered        bool          `json:"recovered"`
	Exhausted        bool          `json:"exhausted"`
	NextRetryAt      *time.Time    `json:"next_retry_at,omitempty"`
	Attempts         []attemptView `json:"attempts"`
	CreatedAt        time.Time     `json:"created_at"`
}

// GetPayment returns a failed payment with its attempt history
// @Summary Get failed payment
// @Tags recovery
// @Produce json
// @Router /admin/payments/{id} [get]
func (h *RecoveryHandler) GetPayment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid payment ID")
		return
	}

	payment, err := h.payments.GetByID(c.Request.Context(), id)
	if errors.Is(err, domainErrors.ErrPaymentNotFound) {
		response.NotFound(c, "Payment not found")
		return
	}
	if err != nil {
		response.InternalError(c, "Failed to load payment")
		return
	}

	response.OK(c, toPaymentView(payment))
}

// ManualRetry triggers an immediate retry for a failed payment
// @Summary Manually retry a failed payment
// @Tags recovery
// @Produce json
// @Router /admin/payments/{id}/retry [post]
func (h *RecoveryHandler) ManualRetry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "Invalid payment ID")
		return
	}

	attempt, outcome, err := h.recovery.ManualRetry(c.Request.Context(), id)
	switch {
	case errors.Is(err, domainErrors.ErrPaymentNotFound):
		response.NotFound(c, "Payment not found")
		return
	case errors.Is(err, domainErrors.ErrPaymentNotRetryable):
		response.Conflict(c, "Payment is not retryable")
		return
	case err != nil:
		response.InternalError(c, "Retry failed")
		return
	}

	response.OK(c, gin.H{
		"attempt_id": attempt.ID,
		"outcome":    string(outcome),
	})
}

func toPaymentView(p *entity.FailedPayment) paymentView {
	view := paymentView{
		ID:               p.ID,
		ProcessorEventID: p.ProcessorEventID,
		PayerID:          p.PayerID,
		Amount:           p.Amount.String(),
		FailureKind:      string(p.FailureKind),
		FailureMessage:   p.FailureMessage,
		Recovered:        p.Recovered(),
		Exhausted:        p.Exhausted(),
		NextRetryAt:      p.NextRetryAt,
		CreatedAt:        p.CreatedAt,
	}
	for _, a := range p.RetryAttempts {
		view.Attempts = append(view.Attempts, attemptView{
			ID:            a.ID,
			Status:        string(a.Status),
			ScheduledAt:   a.ScheduledAt,
			ExecutedAt:    a.ExecutedAt,
			ResultMessage: a.ResultMessage,
			Manual:        a.Manual,
		})
	}
	return view
}
