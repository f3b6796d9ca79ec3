package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDunningWorkflow(t *testing.T) {
	startedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	w := NewDunningWorkflow(uuid.New(), uuid.New(), nil, startedAt)

	require.Len(t, w.Notifications, 4)

	expected := map[DunningStage]time.Time{
		StageInitialFailure: startedAt,
		StageFirstReminder:  startedAt.Add(3 * 24 * time.Hour),
		StageSecondReminder: startedAt.Add(7 * 24 * time.Hour),
		StageFinalNotice:    startedAt.Add(14 * 24 * time.Hour),
	}
	for stage, at := range expected {
		n := w.Notification(stage)
		require.NotNil(t, n, "missing stage %s", stage)
		assert.Equal(t, at, n.ScheduledAt)
		assert.Equal(t, NotificationStatusPending, n.Status)
	}

	// The cancellation stage is appended later, never pre-materialized.
	assert.Nil(t, w.Notification(StageSubscriptionCanceled))
}

func TestDunningWorkflow_Completed(t *testing.T) {
	w := NewDunningWorkflow(uuid.New(), uuid.New(), nil, time.Now())
	assert.False(t, w.Completed())

	for _, n := range w.Notifications {
		n.Status = NotificationStatusSent
	}
	assert.True(t, w.Completed())

	t.Run("failed counts as terminal", func(t *testing.T) {
		w.Notifications[1].Status = NotificationStatusFailed
		assert.True(t, w.Completed())
	})

	t.Run("claimed notification keeps workflow open", func(t *testing.T) {
		w.Notifications[2].Status = NotificationStatusSending
		assert.False(t, w.Completed())
	})
}

func TestNewCancellationNotice(t *testing.T) {
	workflowID := uuid.New()
	at := time.Now().Add(CancellationDelay)
	n := NewCancellationNotice(workflowID, at)

	assert.Equal(t, workflowID, n.WorkflowID)
	assert.Equal(t, StageSubscriptionCanceled, n.Stage)
	assert.Equal(t, NotificationStatusPending, n.Status)
	assert.Equal(t, at, n.ScheduledAt)
}

func TestPendingCancellation(t *testing.T) {
	scheduledAt := time.Now().Add(CancellationDelay)
	c := NewPendingCancellation(uuid.New(), uuid.New(), uuid.New(), "sub_123", scheduledAt)

	assert.False(t, c.Processed)
	assert.False(t, c.IsDue(scheduledAt.Add(-time.Minute)))
	assert.True(t, c.IsDue(scheduledAt))

	processedAt := scheduledAt.Add(time.Minute)
	c.MarkProcessed(processedAt)
	assert.True(t, c.Processed)
	require.NotNil(t, c.ProcessedAt)
	assert.Equal(t, processedAt, *c.ProcessedAt)
}
