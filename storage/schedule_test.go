package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"

	"mailhaven/models"
	"mailhaven/utils"
)

func TestCreateScheduledEmail(t *testing.T) {
	store := NewScheduleStore(newTestDB(t))

	t.Run("new records start pending", func(t *testing.T) {
		record, err := store.CreateScheduledEmail("user-1", ScheduleInput{
			To:          "b@y.com",
			Subject:     "hi",
			Body:        "yo",
			ScheduledAt: time.Now().Add(time.Hour),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, record.ID)
		assert.Equal(t, models.SchedulePending, record.Status)
		assert.False(t, record.CreatedAt.IsZero())
	})

	t.Run("a past scheduledAt is allowed", func(t *testing.T) {
		record, err := store.CreateScheduledEmail("user-1", ScheduleInput{
			To:          "b@y.com",
			ScheduledAt: time.Now().Add(-time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, models.SchedulePending, record.Status)
	})

	t.Run("recipient is required", func(t *testing.T) {
		_, err := store.CreateScheduledEmail("user-1", ScheduleInput{Subject: "hi"})
		assert.Error(t, err)
	})
}

func TestGetScheduledEmails(t *testing.T) {
	store := NewScheduleStore(newTestDB(t))
	now := time.Now()

	later, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "a@y.com", ScheduledAt: now.Add(2 * time.Hour)})
	require.NoError(t, err)
	sooner, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "b@y.com", ScheduledAt: now.Add(time.Hour)})
	require.NoError(t, err)
	_, err = store.CreateScheduledEmail("user-2", ScheduleInput{To: "c@y.com", ScheduledAt: now})
	require.NoError(t, err)

	sent, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "d@y.com", ScheduledAt: now})
	require.NoError(t, err)
	require.NoError(t, store.MarkSent(sent.ID, now))

	records, err := store.GetScheduledEmails("user-1")
	require.NoError(t, err)

	// Only user-1's still-pending records, soonest first.
	require.Len(t, records, 2)
	assert.Equal(t, sooner.ID, records[0].ID)
	assert.Equal(t, later.ID, records[1].ID)
}

func TestDueScheduledEmails(t *testing.T) {
	store := NewScheduleStore(newTestDB(t))
	now := time.Now()

	oldest, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "a@y.com", ScheduledAt: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	newer, err := store.CreateScheduledEmail("user-2", ScheduleInput{To: "b@y.com", ScheduledAt: now.Add(-time.Minute)})
	require.NoError(t, err)
	_, err = store.CreateScheduledEmail("user-1", ScheduleInput{To: "c@y.com", ScheduledAt: now.Add(time.Hour)})
	require.NoError(t, err)

	t.Run("selects only due records, oldest first", func(t *testing.T) {
		due, err := store.DueScheduledEmails(now, 50)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, oldest.ID, due[0].ID)
		assert.Equal(t, newer.ID, due[1].ID)
	})

	t.Run("future records are never selected early", func(t *testing.T) {
		due, err := store.DueScheduledEmails(now.Add(-3*time.Hour), 50)
		require.NoError(t, err)
		assert.Empty(t, due)
	})

	t.Run("batch cap is honored", func(t *testing.T) {
		due, err := store.DueScheduledEmails(now, 1)
		require.NoError(t, err)
		require.Len(t, due, 1)
		assert.Equal(t, oldest.ID, due[0].ID)
	})

	t.Run("terminal records are not selected", func(t *testing.T) {
		require.NoError(t, store.MarkSent(oldest.ID, now))
		require.NoError(t, store.MarkFailed(newer.ID, "boom"))

		due, err := store.DueScheduledEmails(now, 50)
		require.NoError(t, err)
		assert.Empty(t, due)
	})
}

func TestMarkTransitions(t *testing.T) {
	store := NewScheduleStore(newTestDB(t))
	now := time.Now()

	record, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "a@y.com", ScheduledAt: now})
	require.NoError(t, err)

	require.NoError(t, store.MarkSent(record.ID, now))
	records, err := store.GetScheduledEmails("user-1")
	require.NoError(t, err)
	assert.Empty(t, records) // sent records leave the pending list

	failed, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "b@y.com", ScheduledAt: now})
	require.NoError(t, err)
	require.NoError(t, store.MarkFailed(failed.ID, "connection refused"))

	// The failed record keeps its error string for inspection.
	err = store.db.View(func(tx *bbolt.Tx) error {
		stored, err := loadSchedule(tx, failed.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ScheduleFailed, stored.Status)
		assert.Equal(t, "connection refused", stored.Error)
		return nil
	})
	require.NoError(t, err)
}

func TestCancelScheduledEmail(t *testing.T) {
	store := NewScheduleStore(newTestDB(t))
	now := time.Now()

	record, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "a@y.com", ScheduledAt: now})
	require.NoError(t, err)

	t.Run("foreign cancel is rejected", func(t *testing.T) {
		err := store.CancelScheduledEmail("user-2", record.ID)
		assert.ErrorIs(t, err, utils.ErrUnauthorized)
	})

	t.Run("owner cancel deletes the record", func(t *testing.T) {
		require.NoError(t, store.CancelScheduledEmail("user-1", record.ID))
		err := store.CancelScheduledEmail("user-1", record.ID)
		assert.ErrorIs(t, err, utils.ErrNotFound)
	})

	t.Run("cancelling a sent record removes history", func(t *testing.T) {
		sent, err := store.CreateScheduledEmail("user-1", ScheduleInput{To: "b@y.com", ScheduledAt: now})
		require.NoError(t, err)
		require.NoError(t, store.MarkSent(sent.ID, now))
		assert.NoError(t, store.CancelScheduledEmail("user-1", sent.ID))
	})
}
