package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bivex/payment-recovery/internal/domain/valueobject"
)

func newTestPayment(t *testing.T) *FailedPayment {
	t.Helper()
	amount, err := valueobject.NewMoney(4999, "EUR")
	require.NoError(t, err)
	return NewFailedPayment(
		"evt_123", uuid.New(), *amount, valueobject.FailureInsufficientFunds,
		"insufficient funds", "pm_abc", nil, nil, time.Now(),
	)
}

func failedAttempt(paymentID uuid.UUID, executedAt time.Time) *RetryAttempt {
	a := NewRetryAttempt(paymentID, executedAt.Add(-time.Hour))
	a.Status = AttemptStatusFailed
	a.ExecutedAt = &executedAt
	return a
}

func TestFailedPayment_Recovered(t *testing.T) {
	p := newTestPayment(t)
	assert.False(t, p.Recovered())

	a := NewRetryAttempt(p.ID, time.Now())
	a.Status = AttemptStatusSucceeded
	p.RetryAttempts = append(p.RetryAttempts, a)
	assert.True(t, p.Recovered())
}

func TestFailedPayment_ConsumedAttempts(t *testing.T) {
	p := newTestPayment(t)
	now := time.Now()

	p.RetryAttempts = append(p.RetryAttempts, failedAttempt(p.ID, now))
	p.RetryAttempts = append(p.RetryAttempts, failedAttempt(p.ID, now.Add(time.Hour)))

	// Open attempts do not consume budget.
	p.RetryAttempts = append(p.RetryAttempts, NewRetryAttempt(p.ID, now.Add(2*time.Hour)))

	assert.Equal(t, 2, p.ConsumedAttempts())
	assert.False(t, p.Exhausted())
}

func TestFailedPayment_Exhausted(t *testing.T) {
	p := newTestPayment(t)
	now := time.Now()
	for i := 0; i < DefaultMaxRetries; i++ {
		p.RetryAttempts = append(p.RetryAttempts, failedAttempt(p.ID, now.Add(time.Duration(i)*time.Hour)))
	}
	assert.True(t, p.Exhausted())

	t.Run("recovered payment is never exhausted", func(t *testing.T) {
		a := NewRetryAttempt(p.ID, now)
		a.Status = AttemptStatusSucceeded
		p.RetryAttempts = append(p.RetryAttempts, a)
		assert.False(t, p.Exhausted())
	})
}

func TestFailedPayment_Retryable(t *testing.T) {
	p := newTestPayment(t)
	assert.True(t, p.Retryable())

	t.Run("not retryable while processing", func(t *testing.T) {
		a := NewRetryAttempt(p.ID, time.Now())
		a.Status = AttemptStatusProcessing
		p.RetryAttempts = append(p.RetryAttempts, a)
		assert.False(t, p.Retryable())
	})

	t.Run("exhausted payments stay manually retryable", func(t *testing.T) {
		p := newTestPayment(t)
		now := time.Now()
		for i := 0; i < DefaultMaxRetries; i++ {
			p.RetryAttempts = append(p.RetryAttempts, failedAttempt(p.ID, now))
		}
		require.True(t, p.Exhausted())
		assert.True(t, p.Retryable())
	})
}

func TestFailedPayment_OpenAttempt(t *testing.T) {
	p := newTestPayment(t)
	assert.Nil(t, p.OpenAttempt())

	open := NewRetryAttempt(p.ID, time.Now())
	p.RetryAttempts = append(p.RetryAttempts, failedAttempt(p.ID, time.Now()), open)

	found := p.OpenAttempt()
	require.NotNil(t, found)
	assert.Equal(t, open.ID, found.ID)
}

func TestFailedPayment_LastFailedAt(t *testing.T) {
	p := newTestPayment(t)
	assert.Nil(t, p.LastFailedAt())

	first := time.Now().Add(-2 * time.Hour)
	second := time.Now().Add(-1 * time.Hour)
	p.RetryAttempts = append(p.RetryAttempts, failedAttempt(p.ID, first), failedAttempt(p.ID, second))

	got := p.LastFailedAt()
	require.NotNil(t, got)
	assert.Equal(t, second, *got)
}

func TestRetryAttempt_IsDue(t *testing.T) {
	now := time.Now()
	a := NewRetryAttempt(uuid.New(), now.Add(-time.Minute))
	assert.True(t, a.IsDue(now))

	future := NewRetryAttempt(uuid.New(), now.Add(time.Minute))
	assert.False(t, future.IsDue(now))

	a.Status = AttemptStatusProcessing
	assert.False(t, a.IsDue(now))
}
