// Package remind schedules and delivers the daily entry reminder.
//
// Registrations are persisted as store work rows. A long-running dispatcher
// (`daytracker remind daemon`) executes them, so scheduling from the TUI or
// CLI only writes the registration.
package remind

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/sadopc/daytracker/internal/store"
)

const (
	// WorkID names the reminder's unique periodic registration.
	WorkID = "entry_reminder_worker"
	// Period is the interval between reminder checks.
	Period = 24 * time.Hour
)

// NextDelay is the time from now until the next occurrence of at: later
// today if at is still ahead, otherwise tomorrow. It is always positive.
func NextDelay(now time.Time, at store.TimeOfDay) time.Duration {
	next := at.On(now, now.Location())
	if !next.After(now) {
		next = at.On(now.AddDate(0, 0, 1), now.Location())
	}
	return next.Sub(now)
}

// Scheduler registers and cancels the reminder.
type Scheduler struct {
	store *store.Store
	log   *log.Logger
	now   func() time.Time
}

func NewScheduler(s *store.Store, logger *log.Logger) *Scheduler {
	return &Scheduler{store: s, log: logger, now: time.Now}
}

// Schedule registers the reminder for at, replacing any earlier
// registration.
func (s *Scheduler) Schedule(at store.TimeOfDay) (*store.Work, error) {
	delay := NextDelay(s.now(), at)
	w, err := s.store.EnqueueUniquePeriodic(WorkID, delay, Period)
	if err != nil {
		return nil, err
	}
	s.log.Info("reminder scheduled", "at", at, "delay", delay.Round(time.Second))
	return w, nil
}

// Cancel removes the reminder registration, if any.
func (s *Scheduler) Cancel() error {
	if err := s.store.CancelUniqueWork(WorkID); err != nil {
		return err
	}
	s.log.Info("reminder cancelled")
	return nil
}

// Apply schedules or cancels according to settings.
func (s *Scheduler) Apply(settings store.Settings) error {
	if settings.ReminderEnabled {
		_, err := s.Schedule(settings.ReminderTime)
		return err
	}
	return s.Cancel()
}
