package gateway

import (
	"context"
)

// ChargeOutcome is the tri-state result of a gateway charge operation.
// Transient faults (timeouts, 5xx) are reported distinctly from business
// declines so that the executor never conflates an outage with a decline.
type ChargeOutcome string

const (
	OutcomeSucceeded ChargeOutcome = "succeeded"
	OutcomeDeclined  ChargeOutcome = "declined"
	OutcomeTransient ChargeOutcome = "transient_error"
)

// ChargeResult carries the gateway's verdict on a retry attempt
type ChargeResult struct {
	Outcome        ChargeOutcome
	TransactionRef string // set when the charge succeeded
	DeclineCode    string // raw processor reason when declined
	Message        string
}

// ChargeRequest describes a fresh charge against a stored payment method
type ChargeRequest struct {
	AmountMinor      int64
	Currency         string
	PaymentMethodRef string
	CustomerRef      string
	IdempotencyKey   string
}

// PaymentGateway is the payment processor capability consumed by the engine.
// Every charge call carries an idempotency key so a retried network call
// after a timeout cannot produce two real charges.
type PaymentGateway interface {
	// RetryInvoice re-attempts payment of an existing subscription invoice
	RetryInvoice(ctx context.Context, invoiceRef, idempotencyKey string) (ChargeResult, error)

	// CreateAndConfirmCharge creates and confirms a new charge attempt
	CreateAndConfirmCharge(ctx context.Context, req ChargeRequest) (ChargeResult, error)

	// CancelSubscription cancels the processor-side subscription
	CancelSubscription(ctx context.Context, subscriptionRef, reason string) error
}
