package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/daytracker/internal/tracking"
)

// ErrNotFound is returned when a row lookup by id matches nothing.
var ErrNotFound = errors.New("not found")

const (
	dateLayout = "2006-01-02"
	// Millisecond precision keeps last_modified ordering stable across
	// rapid edits; SQLite's strftime('%f') produces the same shape.
	timeLayout = "2006-01-02T15:04:05.000Z"
)

// Configuration is a user-defined trackable metric.
type Configuration struct {
	ID            int64
	Name          string
	TrackingType  tracking.Type
	Active        bool
	OrderOverride *int
	LastModified  time.Time
}

// NewConfiguration returns an unsaved, active configuration.
func NewConfiguration(name string, t tracking.Type) Configuration {
	return Configuration{Name: name, TrackingType: t, Active: true}
}

// Order is the effective sort position: the manual override if present,
// otherwise the identity.
func (c Configuration) Order() int64 {
	if c.OrderOverride != nil {
		return int64(*c.OrderOverride)
	}
	return c.ID
}

// Compare orders configurations by effective order, then identity.
func Compare(a, b Configuration) int {
	switch {
	case a.Order() < b.Order():
		return -1
	case a.Order() > b.Order():
		return 1
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}

// Item is one recorded value of one configuration on one day.
type Item struct {
	ID              int64
	Date            time.Time
	ConfigurationID int64
	Value           *int
	Comment         *string
}

// Recorded reports whether the item carries a value.
func (i Item) Recorded() bool { return i.Value != nil }

type ItemWithConfiguration struct {
	Item          Item
	Configuration Configuration
}

// Day truncates t to its calendar day in t's location, returned as UTC
// midnight so dates compare with ==.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar day.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a calendar day as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

type Setting struct {
	Key   string
	Value string
}

// Work is a unique periodic job registration, the persisted stand-in for an
// OS alarm.
type Work struct {
	ID           string
	Token        uuid.UUID
	NextRun      time.Time
	Period       time.Duration
	Attempts     int
	RegisteredAt time.Time
}
