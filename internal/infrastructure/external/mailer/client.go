package mailer

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
	DefaultTimeout = 15 * time.Second
	// MaxRetries for failed requests
	MaxRetries = 3
	// RetryDelay for retries
	RetryDelay = 500 * time.Millisecond
)

// Config represents mailer configuration
type Config struct {
	BaseURL     string        `json:"base_url"`
	APIKey      string        `json:"api_key"`
	Timeout     time.Duration `json:"timeout"`
	FromAddress string        `json:"from_address"`
}

// Client represents a transactional email HTTP client implementing gateway.Notifier
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new mailer HTTP client
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

type sendRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body,omitempty"`
	TextBody string `json:"text_body,omitempty"`
}

// Send delivers a single transactional message, retrying transient failures
func (c *Client) Send(ctx context.Context, msg gateway.Message) error {
	payload := sendRequest{
		From:     c.config.FromAddress,
		To:       msg.To,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < MaxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/messages", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			c.logger.Warn("Mailer request failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			time.Sleep(RetryDelay * time.Duration(attempt+1))
			continue
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			// Bad recipient or payload; retrying will not help.
			return fmt.Errorf("mailer rejected message with status %d: %s", resp.StatusCode, string(respBody))
		}

		lastErr = fmt.Errorf("mailer returned status %d: %s", resp.StatusCode, string(respBody))
		c.logger.Warn("Mailer returned error status, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("status", resp.StatusCode),
		)
		time.Sleep(RetryDelay * time.Duration(attempt+1))
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Close closes the HTTP client
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
