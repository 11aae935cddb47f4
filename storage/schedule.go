package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"mailhaven/models"
	"mailhaven/utils"
)

// ScheduleStore manages deferred-delivery records.
type ScheduleStore struct {
	db *bbolt.DB
}

// NewScheduleStore creates a schedule store on the shared database.
func NewScheduleStore(db *bbolt.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

// ScheduleInput describes a message to send later. A ScheduledAt in
// the past is allowed and means "send on the next poll tick".
type ScheduleInput struct {
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// CreateScheduledEmail persists a new pending record.
func (s *ScheduleStore) CreateScheduledEmail(userID string, in ScheduleInput) (*models.ScheduledEmail, error) {
	if in.To == "" {
		return nil, utils.BadRequestError("recipient is required", nil)
	}

	record := &models.ScheduledEmail{
		ID:          uuid.New().String(),
		UserID:      userID,
		To:          in.To,
		Subject:     in.Subject,
		Body:        in.Body,
		ScheduledAt: in.ScheduledAt,
		Status:      models.SchedulePending,
		CreatedAt:   time.Now(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return saveSchedule(tx, record)
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetScheduledEmails returns the user's still-pending records ordered
// by ScheduledAt ascending.
func (s *ScheduleStore) GetScheduledEmails(userID string) ([]*models.ScheduledEmail, error) {
	var records []*models.ScheduledEmail
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSchedules).ForEach(func(_, v []byte) error {
			var record models.ScheduledEmail
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal scheduled email: %v", err)
			}
			if record.UserID == userID && record.Status == models.SchedulePending {
				r := record
				records = append(records, &r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ScheduledAt.Before(records[j].ScheduledAt)
	})
	return records, nil
}

// CancelScheduledEmail deletes a record after an ownership check.
// Cancelling an already-sent record is allowed and simply removes
// history. A cancel racing an in-flight send is unsynchronized; the
// message may still go out.
func (s *ScheduleStore) CancelScheduledEmail(userID, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		record, err := loadSchedule(tx, id)
		if err != nil {
			return err
		}
		if record.UserID != userID {
			return utils.ErrUnauthorized
		}
		return tx.Bucket(bucketSchedules).Delete([]byte(id))
	})
}

// DueScheduledEmails returns pending records whose ScheduledAt has
// passed, oldest-due first, capped at limit. Large backlogs drain over
// multiple ticks.
func (s *ScheduleStore) DueScheduledEmails(now time.Time, limit int) ([]*models.ScheduledEmail, error) {
	var due []*models.ScheduledEmail
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSchedules).ForEach(func(_, v []byte) error {
			var record models.ScheduledEmail
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("failed to unmarshal scheduled email: %v", err)
			}
			if record.Status == models.SchedulePending && !record.ScheduledAt.After(now) {
				r := record
				due = append(due, &r)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].ScheduledAt.Before(due[j].ScheduledAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// MarkSent transitions a record to its terminal sent state.
func (s *ScheduleStore) MarkSent(id string, at time.Time) error {
	return s.updateSchedule(id, func(record *models.ScheduledEmail) {
		record.Status = models.ScheduleSent
		record.SentAt = at
	})
}

// MarkFailed transitions a record to its terminal failed state,
// keeping the transport error for operator inspection. There is no
// automatic retry; the user cancels and reschedules manually.
func (s *ScheduleStore) MarkFailed(id string, errMsg string) error {
	return s.updateSchedule(id, func(record *models.ScheduledEmail) {
		record.Status = models.ScheduleFailed
		record.Error = errMsg
	})
}

func (s *ScheduleStore) updateSchedule(id string, mutate func(*models.ScheduledEmail)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		record, err := loadSchedule(tx, id)
		if err != nil {
			return err
		}
		mutate(record)
		return saveSchedule(tx, record)
	})
}

func saveSchedule(tx *bbolt.Tx, record *models.ScheduledEmail) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal scheduled email: %v", err)
	}
	return tx.Bucket(bucketSchedules).Put([]byte(record.ID), data)
}

func loadSchedule(tx *bbolt.Tx, id string) (*models.ScheduledEmail, error) {
	data := tx.Bucket(bucketSchedules).Get([]byte(id))
	if data == nil {
		return nil, utils.ErrNotFound
	}
	var record models.ScheduledEmail
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scheduled email: %v", err)
	}
	return &record, nil
}
