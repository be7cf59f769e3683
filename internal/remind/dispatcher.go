package remind

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sadopc/daytracker/internal/store"
)

// DefaultBackoff is the first retry delay; it doubles per attempt up to the
// registration's period.
const DefaultBackoff = 30 * time.Second

// Job is work a dispatcher can run.
type Job interface {
	Run(ctx context.Context) Result
}

// JobFunc adapts a function to Job.
type JobFunc func(ctx context.Context) Result

func (f JobFunc) Run(ctx context.Context) Result { return f(ctx) }

// Dispatcher runs due work registrations.
type Dispatcher struct {
	store   *store.Store
	jobs    map[string]Job
	log     *log.Logger
	poll    time.Duration
	backoff time.Duration
	now     func() time.Time
}

func NewDispatcher(s *store.Store, logger *log.Logger, poll time.Duration) *Dispatcher {
	if poll <= 0 {
		poll = 30 * time.Second
	}
	return &Dispatcher{
		store:   s,
		jobs:    make(map[string]Job),
		log:     logger,
		poll:    poll,
		backoff: DefaultBackoff,
		now:     time.Now,
	}
}

// Register binds a work id to the job that runs it.
func (d *Dispatcher) Register(id string, j Job) {
	d.jobs[id] = j
}

// Run polls until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	t := time.NewTicker(d.poll)
	defer t.Stop()

	for {
		if _, err := d.Tick(ctx); err != nil {
			d.log.Error("dispatch failed", "err", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
		}
	}
}

// Tick runs every due registration once and returns how many ran.
func (d *Dispatcher) Tick(ctx context.Context) (int, error) {
	due, err := d.store.DueWork(d.now())
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, w := range due {
		job, ok := d.jobs[w.ID]
		if !ok {
			d.log.Debug("no job registered", "work", w.ID)
			continue
		}
		res := job.Run(ctx)
		ran++

		now := d.now()
		next, attempts := nextRun(w, now), 0
		if res == Retry {
			attempts = w.Attempts + 1
			next = now.Add(d.backoffFor(attempts, w.Period))
		}
		updated, err := d.store.RescheduleWork(w.ID, w.Token, next, attempts)
		if err != nil {
			return ran, err
		}
		if !updated {
			d.log.Debug("registration replaced during run", "work", w.ID)
			continue
		}
		d.log.Info("work ran", "work", w.ID, "result", res, "next", next.Local().Format(time.DateTime))
	}
	return ran, nil
}

// nextRun advances w.NextRun by whole periods until it is after now.
func nextRun(w store.Work, now time.Time) time.Time {
	if w.Period <= 0 {
		return now
	}
	next := w.NextRun
	if !next.After(now) {
		skips := now.Sub(next)/w.Period + 1
		next = next.Add(skips * w.Period)
	}
	return next
}

func (d *Dispatcher) backoffFor(attempts int, period time.Duration) time.Duration {
	b := d.backoff
	for i := 1; i < attempts && (period <= 0 || b < period); i++ {
		b *= 2
	}
	if period > 0 && b > period {
		b = period
	}
	return b
}

// Daemon keeps the reminder registration in line with settings and
// dispatches it.
type Daemon struct {
	store      *store.Store
	scheduler  *Scheduler
	dispatcher *Dispatcher
	log        *log.Logger
	poll       time.Duration
}

func NewDaemon(s *store.Store, sched *Scheduler, disp *Dispatcher, logger *log.Logger, poll time.Duration) *Daemon {
	return &Daemon{store: s, scheduler: sched, dispatcher: disp, log: logger, poll: poll}
}

type reminderSettings struct {
	enabled bool
	at      store.TimeOfDay
}

// Run re-registers the reminder from current settings, then dispatches
// until ctx is done, re-applying whenever the reminder settings change.
func (d *Daemon) Run(ctx context.Context) error {
	settings, err := d.store.Settings()
	if err != nil {
		return err
	}
	if err := d.scheduler.Apply(settings); err != nil {
		return err
	}
	applied := reminderSettings{settings.ReminderEnabled, settings.ReminderTime}
	d.log.Info("reminder daemon started", "enabled", applied.enabled, "at", applied.at)

	updates := d.store.WatchSettings(store.WithPoll(d.poll)).Subscribe(ctx)
	go func() {
		for u := range updates {
			if u.Err != nil {
				d.log.Error("read settings", "err", u.Err)
				continue
			}
			cur := reminderSettings{u.Value.ReminderEnabled, u.Value.ReminderTime}
			if cur == applied {
				continue
			}
			if err := d.scheduler.Apply(u.Value); err != nil {
				d.log.Error("apply reminder settings", "err", err)
				continue
			}
			applied = cur
		}
	}()

	return d.dispatcher.Run(ctx)
}
