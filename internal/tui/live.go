package tui

import (
	"context"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/daytracker/internal/store"
)

var generation atomic.Int64

// nextGen numbers subscriptions uniquely across screens, so a screen can
// tell its own emissions apart from another screen's of the same type.
func nextGen() int {
	return int(generation.Add(1))
}

// subscription is one screen-scoped live query observer.
type subscription struct {
	gen    int
	cancel context.CancelFunc
}

func (s *subscription) stop() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// subscribe replaces sub with a new observer of q and returns the command
// that delivers its emissions.
func subscribe[T any](parent context.Context, sub *subscription, q *store.Query[T]) tea.Cmd {
	sub.stop()
	ctx, cancel := context.WithCancel(parent)
	sub.cancel = cancel
	sub.gen = nextGen()
	return listen(sub.gen, q.Subscribe(ctx))
}

// queryCache keeps the live queries a screen has used, so returning to a
// day or range within the grace period reuses the running upstream.
type queryCache[K comparable, T any] struct {
	queries map[K]*store.Query[T]
	order   []K
	limit   int
}

func newQueryCache[K comparable, T any](limit int) *queryCache[K, T] {
	return &queryCache[K, T]{queries: make(map[K]*store.Query[T]), limit: limit}
}

func (c *queryCache[K, T]) get(key K, build func() *store.Query[T]) *store.Query[T] {
	if q, ok := c.queries[key]; ok {
		return q
	}
	q := build()
	c.queries[key] = q
	c.order = append(c.order, key)
	for len(c.order) > c.limit {
		oldest := c.order[0]
		c.order = c.order[1:]
		// An evicted query still tears itself down after its grace period.
		delete(c.queries, oldest)
	}
	return q
}

func liveOptions(grace time.Duration) []store.LiveOption {
	if grace <= 0 {
		return nil
	}
	return []store.LiveOption{store.WithGrace(grace)}
}
