package gateway

import "context"

// Message is one outbound payer notification
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Notifier is the email transport capability consumed by the dunning engine
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
