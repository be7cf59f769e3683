package store

import (
	"context"
	"sync"
	"time"
)

// DefaultGrace is how long a live query keeps its upstream after the last
// observer leaves, so quick screen switches reuse it.
const DefaultGrace = 5 * time.Second

// hub fans write notifications out to live queries.
type hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan struct{}]struct{})}
}

func (h *hub) subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
	}
}

func (h *hub) broadcast() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Update is one emission of a live query.
type Update[T any] struct {
	Value T
	Err   error
}

// LiveOption configures a live query.
type LiveOption func(*liveConfig)

type liveConfig struct {
	grace time.Duration
	poll  time.Duration
}

// WithGrace sets how long the upstream outlives its last observer.
func WithGrace(d time.Duration) LiveOption {
	return func(c *liveConfig) { c.grace = d }
}

// WithPoll also re-runs the query when another process commits, checked
// every d.
func WithPoll(d time.Duration) LiveOption {
	return func(c *liveConfig) { c.poll = d }
}

// Query is a shared, push-based subscription to a store read. Observers
// receive the latest result; intermediate results may be skipped.
type Query[T any] struct {
	store *Store
	fetch func() (T, error)
	cfg   liveConfig

	mu        sync.Mutex
	observers map[chan Update[T]]struct{}
	latest    *Update[T]
	stop      context.CancelFunc
	release   *time.Timer
}

// Watch builds a live query over fetch.
func Watch[T any](s *Store, fetch func() (T, error), opts ...LiveOption) *Query[T] {
	cfg := liveConfig{grace: DefaultGrace}
	for _, o := range opts {
		o(&cfg)
	}
	return &Query[T]{
		store:     s,
		fetch:     fetch,
		cfg:       cfg,
		observers: make(map[chan Update[T]]struct{}),
	}
}

// Subscribe registers an observer until ctx is done, then closes the
// returned channel. A new observer immediately receives the latest value
// when one is known.
func (q *Query[T]) Subscribe(ctx context.Context) <-chan Update[T] {
	ch := make(chan Update[T], 1)

	q.mu.Lock()
	q.observers[ch] = struct{}{}
	if q.release != nil {
		q.release.Stop()
		q.release = nil
	}
	if q.stop == nil {
		upstream, cancel := context.WithCancel(context.Background())
		q.stop = cancel
		go q.run(upstream)
	} else if q.latest != nil {
		ch <- *q.latest
	}
	q.mu.Unlock()

	go func() {
		<-ctx.Done()
		q.unsubscribe(ch)
	}()
	return ch
}

// Observers reports the current observer count.
func (q *Query[T]) Observers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.observers)
}

// Active reports whether the upstream is running.
func (q *Query[T]) Active() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stop != nil
}

func (q *Query[T]) unsubscribe(ch chan Update[T]) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.observers[ch]; !ok {
		return
	}
	delete(q.observers, ch)
	close(ch)

	if len(q.observers) > 0 || q.stop == nil {
		return
	}
	if q.cfg.grace <= 0 {
		q.shutdownLocked()
		return
	}
	q.release = time.AfterFunc(q.cfg.grace, func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if len(q.observers) == 0 {
			q.shutdownLocked()
		}
	})
}

func (q *Query[T]) shutdownLocked() {
	if q.stop != nil {
		q.stop()
		q.stop = nil
	}
	q.latest = nil
	q.release = nil
}

func (q *Query[T]) run(ctx context.Context) {
	changes, done := q.store.hub.subscribe()
	defer done()

	var tick <-chan time.Time
	var version int64
	if q.cfg.poll > 0 {
		t := time.NewTicker(q.cfg.poll)
		defer t.Stop()
		tick = t.C
		version, _ = q.store.dataVersion()
	}

	q.emit(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			q.emit(ctx)
		case <-tick:
			v, err := q.store.dataVersion()
			if err == nil && v != version {
				version = v
				q.emit(ctx)
			}
		}
	}
}

func (q *Query[T]) emit(ctx context.Context) {
	v, err := q.fetch()
	u := Update[T]{Value: v, Err: err}

	q.mu.Lock()
	defer q.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	q.latest = &u
	for ch := range q.observers {
		// Replace any undelivered value with the newer one.
		select {
		case <-ch:
		default:
		}
		ch <- u
	}
}

// WatchConfigurations is a live ListConfigurations.
func (s *Store) WatchConfigurations(opts ...LiveOption) *Query[[]Configuration] {
	return Watch(s, s.ListConfigurations, opts...)
}

// WatchFull is a live ListFull.
func (s *Store) WatchFull(min, max time.Time, opts ...LiveOption) *Query[[]ItemWithConfiguration] {
	return Watch(s, func() ([]ItemWithConfiguration, error) { return s.ListFull(min, max) }, opts...)
}

// WatchFullForDate is a live ListFullForDate.
func (s *Store) WatchFullForDate(date time.Time, opts ...LiveOption) *Query[[]ItemWithConfiguration] {
	return s.WatchFull(date, date, opts...)
}

// Earliest is the result of EarliestDate.
type Earliest struct {
	Date time.Time
	OK   bool
}

// WatchEarliestDate is a live EarliestDate.
func (s *Store) WatchEarliestDate(opts ...LiveOption) *Query[Earliest] {
	return Watch(s, func() (Earliest, error) {
		d, ok, err := s.EarliestDate()
		return Earliest{Date: d, OK: ok}, err
	}, opts...)
}

// WatchSettings is a live Settings.
func (s *Store) WatchSettings(opts ...LiveOption) *Query[Settings] {
	return Watch(s, s.Settings, opts...)
}
