package remind

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
	"github.com/sadopc/daytracker/internal/store"
)

// Result is the outcome of one job run.
type Result int

const (
	Success Result = iota
	Retry
)

func (r Result) String() string {
	if r == Retry {
		return "retry"
	}
	return "success"
}

// Notification channel and slot. Posting again replaces the shown reminder.
const (
	Channel        = "entry_reminder"
	NotificationID = 1
)

// Notification is one desktop notification.
type Notification struct {
	Channel string
	ID      int
	Title   string
	Body    string
}

// Notifier shows notifications. Permitted false means the user has not
// allowed them; callers skip silently.
type Notifier interface {
	Permitted() bool
	Notify(n Notification) error
}

// DesktopNotifier posts through the desktop notification service.
type DesktopNotifier struct {
	AppName string
	Enabled bool
	Icon    string
}

func (d DesktopNotifier) Permitted() bool { return d.Enabled }

func (d DesktopNotifier) Notify(n Notification) error {
	if d.AppName != "" {
		beeep.AppName = d.AppName
	}
	if err := beeep.Notify(n.Title, n.Body, d.Icon); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// Worker is the reminder job: it notifies when today has unrecorded
// notifiable configurations.
type Worker struct {
	store    *store.Store
	notifier Notifier
	log      *log.Logger
	now      func() time.Time
}

func NewWorker(s *store.Store, n Notifier, logger *log.Logger) *Worker {
	return &Worker{store: s, notifier: n, log: logger, now: time.Now}
}

// Run checks today's missing count. Skipped or failed notifications still
// succeed; only a failed query asks for a retry.
func (w *Worker) Run(ctx context.Context) Result {
	if ctx.Err() != nil {
		return Retry
	}
	today := store.Day(w.now())
	missing, err := w.store.MissingCount(today)
	if err != nil {
		w.log.Error("reminder check failed", "err", err)
		return Retry
	}
	if missing == 0 {
		w.log.Debug("nothing missing", "date", store.FormatDate(today))
		return Success
	}
	if !w.notifier.Permitted() {
		w.log.Debug("notifications not permitted, skipping", "missing", missing)
		return Success
	}

	n := Notification{
		Channel: Channel,
		ID:      NotificationID,
		Title:   "Time to track your day",
		Body:    body(missing),
	}
	if err := w.notifier.Notify(n); err != nil {
		w.log.Warn("notification failed", "err", err)
		return Success
	}
	w.log.Info("reminder shown", "missing", missing)
	return Success
}

func body(missing int) string {
	if missing == 1 {
		return "1 item has not been recorded today."
	}
	return fmt.Sprintf("%d items have not been recorded today.", missing)
}
