package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bivex/payment-recovery/internal/domain/gateway"
)

const (
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 30 * time.Second
)

// Config represents payment processor configuration
type Config struct {
	BaseURL string        `json:"base_url"`
	APIKey  string        `json:"api_key"`
	Timeout time.Duration `json:"timeout"`
}

// Client represents a payment processor HTTP client implementing
// gateway.PaymentGateway. Every charge request carries an Idempotency-Key
// header so a repeated request after a network fault cannot double-charge.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new payment processor HTTP client
func NewClient(config Config, logger *zap.Logger) *Client {
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

type chargeResponse struct {
	Status         string `json:"status"`
	TransactionRef string `json:"transaction_ref"`
	DeclineCode    string `json:"decline_code"`
	Message        string `json:"message"`
}

// RetryInvoice asks the processor to re-attempt collection of an open invoice
func (c *Client) RetryInvoice(ctx context.Context, invoiceRef, idempotencyKey string) (gateway.ChargeResult, error) {
	path := fmt.Sprintf("/v1/invoices/%s/pay", invoiceRef)
	return c.doCharge(ctx, path, nil, idempotencyKey)
}

// CreateAndConfirmCharge creates a fresh charge against a stored payment method
func (c *Client) CreateAndConfirmCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	payload := map[string]interface{}{
		"amount":             req.AmountMinor,
		"currency":           req.Currency,
		"payment_method_ref": req.PaymentMethodRef,
		"customer_ref":       req.CustomerRef,
		"confirm":            true,
	}
	return c.doCharge(ctx, "/v1/charges", payload, req.IdempotencyKey)
}

// CancelSubscription cancels a subscription on the processor side
func (c *Client) CancelSubscription(ctx context.Context, subscriptionRef, reason string) error {
	payload := map[string]interface{}{
		"reason": reason,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	path := fmt.Sprintf("/v1/subscriptions/%s/cancel", subscriptionRef)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	// Cancelling an already-cancelled subscription is not an error.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusConflict {
		c.logger.Warn("Subscription already gone on processor side",
			zap.String("subscription_ref", subscriptionRef),
			zap.Int("status", resp.StatusCode),
		)
		return nil
	}

	respBody, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("processor returned status %d: %s", resp.StatusCode, string(respBody))
}

func (c *Client) doCharge(ctx context.Context, path string, payload map[string]interface{}, idempotencyKey string) (gateway.ChargeResult, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return gateway.ChargeResult{}, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+path, reqBody)
	if err != nil {
		return gateway.ChargeResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network faults are indistinguishable from a charge that went
		// through; callers must re-drive with the same idempotency key.
		return gateway.ChargeResult{}, fmt.Errorf("processor request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return gateway.ChargeResult{}, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var parsed chargeResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return gateway.ChargeResult{}, fmt.Errorf("failed to parse response: %w", err)
		}
		return c.toResult(parsed), nil

	case resp.StatusCode == http.StatusPaymentRequired:
		var parsed chargeResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return gateway.ChargeResult{}, fmt.Errorf("failed to parse decline response: %w", err)
		}
		return gateway.ChargeResult{
			Outcome:     gateway.OutcomeDeclined,
			DeclineCode: parsed.DeclineCode,
			Message:     parsed.Message,
		}, nil

	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		c.logger.Warn("Processor returned transient status",
			zap.Int("status", resp.StatusCode),
			zap.String("response", string(body)),
		)
		return gateway.ChargeResult{
			Outcome: gateway.OutcomeTransient,
			Message: fmt.Sprintf("processor status %d", resp.StatusCode),
		}, nil

	default:
		return gateway.ChargeResult{}, fmt.Errorf("processor returned status %d: %s", resp.StatusCode, string(body))
	}
}

func (c *Client) toResult(parsed chargeResponse) gateway.ChargeResult {
	result := gateway.ChargeResult{
		TransactionRef: parsed.TransactionRef,
		DeclineCode:    parsed.DeclineCode,
		Message:        parsed.Message,
	}
	switch parsed.Status {
	case "succeeded", "paid":
		result.Outcome = gateway.OutcomeSucceeded
	case "declined", "failed":
		result.Outcome = gateway.OutcomeDeclined
	default:
		result.Outcome = gateway.OutcomeTransient
	}
	return result
}

func (c *Client) setHeaders(req *http.Request, idempotencyKey string) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
}

// Close closes the HTTP client
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
