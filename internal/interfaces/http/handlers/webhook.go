package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/bivex/payment-recovery/internal/domain/errors"
	"github.com/bivex/payment-recovery/internal/domain/service"
	"github.com/bivex/payment-recovery/internal/infrastructure/logging"
	"github.com/bivex/payment-recovery/internal/interfaces/http/response"
)

// WebhookHandler handles payment failure events pushed by the processor
type WebhookHandler struct {
	webhookSecret string
	recovery      *service.RecoveryService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(webhookSecret string, recovery *service.RecoveryService) *WebhookHandler {
	return &WebhookHandler{
		webhookSecret: webhookSecret,
		recovery:      recovery,
	}
}

type paymentFailedEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		PayerID          string  `json:"payer_id"`
		AmountMinor      int64   `json:"amount_minor"`
		Currency         string  `json:"currency"`
		FailureReason    string  `json:"failure_reason"`
		FailureMessage   string  `json:"failure_message"`
		PaymentMethodRef string  `json:"payment_method_ref"`
		SubscriptionRef  *string `json:"subscription_ref"`
		InvoiceRef       *string `json:"invoice_ref"`
	} `json:"data"`
	CreatedAt time.Time `json:"created_at"`
}

// PaymentFailed handles processor payment_failed webhook events
// @Summary Payment failed webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Router /webhook/processor [post]
func (h *WebhookHandler) PaymentFailed(c *gin.Context) {
	signature := c.GetHeader("Processor-Signature")
	if h.webhookSecret != "" && signature == "" {
		response.Unauthorized(c, "Missing signature")
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.BadRequest(c, "Failed to read body")
		return
	}

	if h.webhookSecret != "" && !h.verifyHMAC(body, signature) {
		response.Unauthorized(c, "Invalid signature")
		return
	}

	var event paymentFailedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.BadRequest(c, "Invalid event body")
		return
	}
	if event.ID == "" || event.Type != "payment_failed" {
		response.BadRequest(c, "Unsupported event")
		return
	}

	payerID, err := uuid.Parse(event.Data.PayerID)
	if err != nil {
		response.BadRequest(c, "Invalid payer ID")
		return
	}

	payment, err := h.recovery.RecordFailure(c.Request.Context(), service.FailureEvent{
		ProcessorEventID: event.ID,
		PayerID:          payerID,
		AmountMinor:      event.Data.AmountMinor,
		Currency:         event.Data.Currency,
		RawReason:        event.Data.FailureReason,
		Message:          event.Data.FailureMessage,
		PaymentMethodRef: event.Data.PaymentMethodRef,
		SubscriptionRef:  event.Data.SubscriptionRef,
		InvoiceRef:       event.Data.InvoiceRef,
		OccurredAt:       event.CreatedAt,
	})
	if errors.Is(err, domainErrors.ErrDuplicateEvent) {
		// Processors redeliver; the first delivery already won.
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}
	if err != nil {
		logging.Logger.Error("Failed to record payment failure",
			zap.String("event_id", event.ID),
			zap.Error(err),
		)
		response.InternalError(c, "Failed to record failure")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received", "payment_id": payment.ID})
}

// verifyHMAC verifies the processor webhook signature
func (h *WebhookHandler) verifyHMAC(body []byte, signature string) bool {
	// Signature format: t=timestamp,v1=hmac
	parts := strings.Split(signature, ",")
	if len(parts) != 2 {
		return false
	}

	timestamp := strings.TrimPrefix(parts[0], "t=")
	v1 := strings.TrimPrefix(parts[1], "v1=")

	payload := []byte(timestamp + "." + string(body))
	mac := hmac.New(sha256.New, []byte(h.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(v1), []byte(expected))
}
