package valueobject

// FailureKind is the closed taxonomy of payment decline reasons
type FailureKind string

const (
	FailureInsufficientFunds FailureKind = "insufficient_funds"
	FailureCardDeclined      FailureKind = "card_declined"
	FailureExpiredCard       FailureKind = "expired_card"
	FailureInvalidCVC        FailureKind = "invalid_cvc"
	FailureProcessingError   FailureKind = "processing_error"
	FailureUnknown           FailureKind = "unknown"
)

// HumanReadable returns the payer-facing description of the failure kind
func (k FailureKind) HumanReadable() string {
	switch k {
	case FailureInsufficientFunds:
		return "your card had insufficient funds"
	case FailureCardDeclined:
		return "your card was declined"
	case FailureExpiredCard:
		return "your card has expired"
	case FailureInvalidCVC:
		return "your card's security code was rejected"
	case FailureProcessingError:
		return "a temporary processing error occurred"
	default:
		return "the payment could not be processed"
	}
}
