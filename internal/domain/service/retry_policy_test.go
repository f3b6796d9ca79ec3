package service_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/bivex/payment-recovery/internal/domain/service"
)

func TestRetryPolicy_Delay(t *testing.T) {
	policy := service.DefaultRetryPolicy()

	assert.Equal(t, 6*time.Hour, policy.Delay(0))
	assert.Equal(t, 24*time.Hour, policy.Delay(1))
	assert.Equal(t, 72*time.Hour, policy.Delay(2))

	t.Run("ordinal past the table reuses the last entry", func(t *testing.T) {
		assert.Equal(t, 72*time.Hour, policy.Delay(3))
		assert.Equal(t, 72*time.Hour, policy.Delay(10))
	})

	t.Run("negative ordinal clamps to first", func(t *testing.T) {
		assert.Equal(t, 6*time.Hour, policy.Delay(-1))
	})
}

func TestIdempotencyKey(t *testing.T) {
	paymentID := uuid.New()
	attemptID := uuid.New()

	key := service.IdempotencyKey(paymentID, attemptID)
	assert.Equal(t, fmt.Sprintf("%s:%s", paymentID, attemptID), key)

	// Same pair always yields the same key; another attempt yields a new one.
	assert.Equal(t, key, service.IdempotencyKey(paymentID, attemptID))
	assert.NotEqual(t, key, service.IdempotencyKey(paymentID, uuid.New()))
}
