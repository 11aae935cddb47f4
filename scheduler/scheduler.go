// Package scheduler runs the deferred-delivery loop: it polls for
// scheduled emails whose time has come and dispatches them through the
// shared SMTP relay.
package scheduler

import (
	"context"
	"sync"
	"time"

	"mailhaven/mail"
	"mailhaven/models"
	"mailhaven/storage"
	"mailhaven/utils"
)

const (
	// PollInterval is the fixed gap between poll ticks. The next tick
	// is armed only after the previous batch has fully drained, so two
	// ticks never overlap and a due record is never double-sent by
	// this process.
	PollInterval = 60 * time.Second

	// BatchSize caps how many due records one tick processes. A larger
	// backlog simply takes multiple ticks.
	BatchSize = 50

	// SendTimeout bounds a single transport send. A timeout surfaces
	// as a failed record with a descriptive error.
	SendTimeout = 30 * time.Second
)

// Scheduler owns the background delivery loop. Scheduled sends go out
// through the process-wide relay sender, not the record owner's
// connected account.
type Scheduler struct {
	store  *storage.ScheduleStore
	sender mail.Sender
	logger *utils.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New wires a scheduler around the schedule store and a transport.
func New(store *storage.ScheduleStore, sender mail.Sender, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		store:  store,
		sender: sender,
		logger: logger.WithField("component", "scheduler"),
	}
}

// Start launches the polling loop. Calling Start on a running
// scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.run(s.stopCh, s.doneCh)
	s.logger.Info("delivery scheduler started, polling every %s", PollInterval)
}

// Stop halts the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	s.logger.Info("delivery scheduler stopped")
}

// run is the self-rescheduling loop: the timer for the next tick is
// armed only once the current tick has completed.
func (s *Scheduler) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	timer := time.NewTimer(PollInterval)
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			s.Tick(time.Now())
			timer.Reset(PollInterval)
		}
	}
}

// Tick processes one poll cycle: every pending record whose
// ScheduledAt has passed, oldest-due first, sequentially. Sequential
// dispatch bounds concurrent transport connections from this process.
func (s *Scheduler) Tick(now time.Time) {
	due, err := s.store.DueScheduledEmails(now, BatchSize)
	if err != nil {
		s.logger.Error("failed to query due emails: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	s.logger.Debug("processing %d due scheduled emails", len(due))
	for _, record := range due {
		s.dispatch(record)
	}
}

// dispatch sends one record and moves it to its terminal state. Either
// outcome is final; failed records are never retried, they stay
// inspectable with their error string until the owner cancels them.
func (s *Scheduler) dispatch(record *models.ScheduledEmail) {
	ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
	defer cancel()

	err := s.sender.Send(ctx, mail.Message{
		To:      record.To,
		Subject: record.Subject,
		Text:    record.Body,
	})
	if err != nil {
		s.logger.WithField("id", record.ID).Error("scheduled send failed: %v", err)
		if markErr := s.store.MarkFailed(record.ID, err.Error()); markErr != nil {
			s.logger.Error("failed to mark %s failed: %v", record.ID, markErr)
		}
		return
	}

	if err := s.store.MarkSent(record.ID, time.Now()); err != nil {
		s.logger.Error("failed to mark %s sent: %v", record.ID, err)
		return
	}
	s.logger.WithField("id", record.ID).Info("scheduled email sent")
}
