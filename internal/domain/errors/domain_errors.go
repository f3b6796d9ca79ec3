package errors

import (
	"errors"
	"fmt"
)

var (
	// Lookup errors
	ErrPaymentNotFound      = errors.New("failed payment not found")
	ErrMemberNotFound       = errors.New("member not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrWorkflowNotFound     = errors.New("dunning workflow not found")

	// Retry errors
	ErrPaymentNotRetryable = errors.New("payment is not in a retryable state")
	ErrAttemptConflict     = errors.New("another retry attempt is already open for this payment")
	ErrDuplicateEvent      = errors.New("processor event has already been recorded")

	// Cancellation errors
	ErrCancellationPending = errors.New("an unprocessed cancellation already exists for this subscription")

	// Gateway errors
	ErrGatewayTransient = errors.New("transient payment gateway fault")

	// Notification errors
	ErrNotifierFailure = errors.New("notification dispatch failed")
)

// NotFoundError wraps an error with not found context
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id '%s' not found: %v", e.Entity, e.ID, e.Err)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// ConflictError wraps an error with conflict context
type ConflictError struct {
	Entity string
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s - %v", e.Entity, e.Reason, e.Err)
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
