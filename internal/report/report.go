// Package report turns recorded items into calendar grids.
//
// Everything here is pure: callers fetch items from the store and pass them
// in, which keeps the grid logic testable without a database.
package report

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
)

// DisplayOption selects the span a report covers.
type DisplayOption int

const (
	Month DisplayOption = iota
	Week
)

func (o DisplayOption) String() string {
	switch o {
	case Month:
		return "month"
	case Week:
		return "week"
	}
	return fmt.Sprintf("DisplayOption(%d)", int(o))
}

// ParseDisplayOption accepts "month" or "week".
func ParseDisplayOption(s string) (DisplayOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "month":
		return Month, nil
	case "week":
		return Week, nil
	}
	return 0, fmt.Errorf("invalid display option %q (want month or week)", s)
}

// DateRange is an inclusive span of calendar days.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Days is the number of calendar days in r.
func (r DateRange) Days() int {
	return int(store.Day(r.End).Sub(store.Day(r.Start)).Hours()/24) + 1
}

// Contains reports whether d falls on a day within r.
func (r DateRange) Contains(d time.Time) bool {
	d = store.Day(d)
	return !d.Before(store.Day(r.Start)) && !d.After(store.Day(r.End))
}

func (r DateRange) String() string {
	return store.FormatDate(r.Start) + ".." + store.FormatDate(r.End)
}

// RangeFor is the month or week containing anchor.
func RangeFor(o DisplayOption, anchor time.Time, weekStart time.Weekday) DateRange {
	anchor = store.Day(anchor)
	switch o {
	case Week:
		start := anchor.AddDate(0, 0, -leading(anchor.Weekday(), weekStart))
		return DateRange{Start: start, End: start.AddDate(0, 0, 6)}
	default:
		start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		return DateRange{Start: start, End: start.AddDate(0, 1, -1)}
	}
}

// Shift moves anchor by delta months or weeks. Month steps clamp the day to
// the target month's length, so Jan 31 + 1 month is the last day of February.
func Shift(o DisplayOption, anchor time.Time, delta int) time.Time {
	anchor = store.Day(anchor)
	if o == Week {
		return anchor.AddDate(0, 0, 7*delta)
	}
	first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, delta, 0)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(anchor.Day(), last)-1)
}

// Group is one configuration and its items within the report range.
type Group struct {
	Configuration store.Configuration
	Items         []store.Item
}

// GroupItems groups joined items by configuration, in configuration order.
func GroupItems(full []store.ItemWithConfiguration) []Group {
	index := make(map[int64]int)
	var groups []Group
	for _, f := range full {
		i, ok := index[f.Configuration.ID]
		if !ok {
			i = len(groups)
			index[f.Configuration.ID] = i
			groups = append(groups, Group{Configuration: f.Configuration})
		}
		groups[i].Items = append(groups[i].Items, f.Item)
	}
	slices.SortStableFunc(groups, func(a, b Group) int {
		return store.Compare(a.Configuration, b.Configuration)
	})
	return groups
}

// Options tune Aggregate.
type Options struct {
	ShowValues bool
	WeekStart  time.Weekday
	Today      time.Time
}

// Day is one cell of a calendar grid.
type Day struct {
	Date      time.Time
	InRange   bool
	Recorded  bool
	Colored   bool
	Position  float64 // 0..1 along the low→high gradient, valid when Colored
	Label     string
	Comment   string
	Clickable bool
}

// Calendar is the grid for one configuration. Every week has seven days.
type Calendar struct {
	Configuration store.Configuration
	Weeks         [][]Day
}

// Aggregate lays out each group over r. The grid is padded on both ends to
// whole weeks beginning on opts.WeekStart; padding cells are out of range
// and never clickable.
func Aggregate(r DateRange, groups []Group, opts Options) []Calendar {
	start, end := store.Day(r.Start), store.Day(r.End)
	if end.Before(start) {
		start, end = end, start
	}
	today := store.Day(opts.Today)
	first := start.AddDate(0, 0, -leading(start.Weekday(), opts.WeekStart))
	last := end.AddDate(0, 0, trailing(end.Weekday(), opts.WeekStart))

	calendars := make([]Calendar, 0, len(groups))
	for _, g := range groups {
		byDate := make(map[time.Time]store.Item, len(g.Items))
		for _, it := range g.Items {
			d := store.Day(it.Date)
			// Prefer an item carrying a value over an empty duplicate.
			if prev, ok := byDate[d]; ok && prev.Recorded() && !it.Recorded() {
				continue
			}
			byDate[d] = it
		}

		var weeks [][]Day
		week := make([]Day, 0, 7)
		for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
			day := Day{Date: d}
			if !d.Before(start) && !d.After(end) {
				day.InRange = true
				day.Clickable = !d.After(today)
				if it, ok := byDate[d]; ok {
					fill(&day, g.Configuration.TrackingType, it, opts.ShowValues)
				}
			}
			week = append(week, day)
			if len(week) == 7 {
				weeks = append(weeks, week)
				week = make([]Day, 0, 7)
			}
		}
		calendars = append(calendars, Calendar{Configuration: g.Configuration, Weeks: weeks})
	}
	return calendars
}

func fill(day *Day, t tracking.Type, it store.Item, showValues bool) {
	if it.Comment != nil {
		day.Comment = *it.Comment
	}
	if it.Value == nil {
		return
	}
	day.Recorded = true

	switch t := t.(type) {
	case *tracking.Options:
		day.Colored = true
		day.Position = Position(t, *it.Value)
		if showValues {
			day.Label, _ = tracking.Label(t, *it.Value)
		}
	case tracking.TextEntry:
		day.Label, _ = tracking.Label(t, *it.Value)
	default:
		panic(fmt.Sprintf("report: unhandled tracking type %T", t))
	}
}

// Position normalises value against the largest option value of t.
func Position(t *tracking.Options, value int) float64 {
	m := t.MaxValue()
	if m <= 0 {
		return 0
	}
	p := float64(value) / float64(m)
	return max(0, min(1, p))
}

// leading is how many days precede wd in a week starting on weekStart.
func leading(wd, weekStart time.Weekday) int {
	return (int(wd) - int(weekStart) + 7) % 7
}

// trailing is how many days follow wd in a week starting on weekStart.
func trailing(wd, weekStart time.Weekday) int {
	return 6 - leading(wd, weekStart)
}

// Padding counts the out-of-range cells of a calendar.
func (c Calendar) Padding() int {
	n := 0
	for _, w := range c.Weeks {
		for _, d := range w {
			if !d.InRange {
				n++
			}
		}
	}
	return n
}

// Average is the mean gradient position of one configuration's recorded
// days.
type Average struct {
	Configuration store.Configuration
	Value         float64
	Count         int
}

// Averages summarises each calendar. Text configurations and calendars with
// nothing recorded are skipped.
func Averages(calendars []Calendar) []Average {
	var out []Average
	for _, c := range calendars {
		var sum float64
		var n int
		for _, w := range c.Weeks {
			for _, d := range w {
				if d.InRange && d.Colored {
					sum += d.Position
					n++
				}
			}
		}
		if n == 0 {
			continue
		}
		out = append(out, Average{Configuration: c.Configuration, Value: sum / float64(n), Count: n})
	}
	return out
}

// Weekdays lists the seven weekdays in grid column order.
func Weekdays(weekStart time.Weekday) []time.Weekday {
	days := make([]time.Weekday, 7)
	for i := range days {
		days[i] = time.Weekday((int(weekStart) + i) % 7)
	}
	return days
}
