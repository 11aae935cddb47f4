package models

import "time"

// Scheduled email delivery states. Sent and Failed are terminal; there
// is no automatic retry.
const (
	SchedulePending = "pending"
	ScheduleSent    = "sent"
	ScheduleFailed  = "failed"
)

// ScheduledEmail is a deferred-delivery request. The record becomes
// eligible for sending once ScheduledAt has passed.
type ScheduledEmail struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	To          string    `json:"to"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	SentAt      time.Time `json:"sentAt,omitempty"`
	Error       string    `json:"error,omitempty"`
}
