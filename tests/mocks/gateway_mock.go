package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bivex/payment-recovery/internal/domain/gateway"
)

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

// NewMockPaymentGateway creates a new mock payment gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) RetryInvoice(ctx context.Context, invoiceRef, idempotencyKey string) (gateway.ChargeResult, error) {
	args := m.Called(ctx, invoiceRef, idempotencyKey)
	return args.Get(0).(gateway.ChargeResult), args.Error(1)
}

func (m *MockPaymentGateway) CreateAndConfirmCharge(ctx context.Context, req gateway.ChargeRequest) (gateway.ChargeResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.ChargeResult), args.Error(1)
}

func (m *MockPaymentGateway) CancelSubscription(ctx context.Context, subscriptionRef, reason string) error {
	args := m.Called(ctx, subscriptionRef, reason)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	mock.Mock
}

// NewMockNotifier creates a new mock notifier
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Send(ctx context.Context, msg gateway.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
