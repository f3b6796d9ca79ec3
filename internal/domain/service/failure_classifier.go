package service

import (
	"strings"

	"github.com/bivex/payment-recovery/internal/domain/valueobject"
)

// failureKindByReason maps normalized processor decline codes to the closed
// failure taxonomy. Codes observed across Stripe-style processors; anything
// unrecognized maps to unknown so classification never blocks recording.
var failureKindByReason = map[string]valueobject.FailureKind{
	"insufficient_funds":      valueobject.FailureInsufficientFunds,
	"card_declined":           valueobject.FailureCardDeclined,
	"generic_decline":         valueobject.FailureCardDeclined,
	"do_not_honor":            valueobject.FailureCardDeclined,
	"transaction_not_allowed": valueobject.FailureCardDeclined,
	"pickup_card":             valueobject.FailureCardDeclined,
	"expired_card":            valueobject.FailureExpiredCard,
	"card_expired":            valueobject.FailureExpiredCard,
	"invalid_cvc":             valueobject.FailureInvalidCVC,
	"incorrect_cvc":           valueobject.FailureInvalidCVC,
	"invalid_cvv":             valueobject.FailureInvalidCVC,
	"processing_error":        valueobject.FailureProcessingError,
	"processor_error":         valueobject.FailureProcessingError,
	"issuer_timeout":          valueobject.FailureProcessingError,
	"try_again_later":         valueobject.FailureProcessingError,
}

// FailureClassifier maps raw processor decline reasons to FailureKind
type FailureClassifier struct{}

// NewFailureClassifier creates a new failure classifier
func NewFailureClassifier() *FailureClassifier {
	return &FailureClassifier{}
}

// Classify maps a raw decline reason to a FailureKind. Unrecognized reasons
// map to FailureUnknown rather than erroring.
func (c *FailureClassifier) Classify(rawReason string) valueobject.FailureKind {
	normalized := strings.ToLower(strings.TrimSpace(rawReason))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	if kind, ok := failureKindByReason[normalized]; ok {
		return kind
	}
	return valueobject.FailureUnknown
}
