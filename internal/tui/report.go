package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/sadopc/daytracker/internal/report"
	"github.com/sadopc/daytracker/internal/store"
)

const calendarWidth = 7 * 3

type reportModel struct {
	store  *store.Store
	log    *log.Logger
	grace  time.Duration
	now    func() time.Time
	ctx    context.Context
	width  int
	height int

	option   report.DisplayOption
	anchor   time.Time
	cursor   time.Time
	rng      report.DateRange
	settings store.Settings
	earliest store.Earliest

	full      []store.ItemWithConfiguration
	calendars []report.Calendar
	loaded    bool

	sub     subscription
	queries *queryCache[report.DateRange, []store.ItemWithConfiguration]

	chart barchart.Model
}

func newReportModel(ctx context.Context, s *store.Store, logger *log.Logger, grace time.Duration) reportModel {
	return reportModel{
		store:    s,
		log:      logger,
		grace:    grace,
		now:      time.Now,
		ctx:      ctx,
		settings: store.DefaultSettings(),
		queries:  newQueryCache[report.DateRange, []store.ItemWithConfiguration](8),
		chart:    barchart.New(60, 8),
	}
}

func (r *reportModel) setSize(w, h int) {
	r.width = w
	r.height = h
	r.buildChart()
}

func (r reportModel) today() time.Time {
	return store.Day(r.now())
}

// open subscribes to the range containing the anchor, starting at today
// on first use.
func (r reportModel) open() (reportModel, tea.Cmd) {
	if r.anchor.IsZero() {
		r.anchor = r.today()
		r.cursor = r.anchor
	}
	r.rng = report.RangeFor(r.option, r.anchor, r.settings.WeekStart)
	rng := r.rng
	q := r.queries.get(rng, func() *store.Query[[]store.ItemWithConfiguration] {
		return r.store.WatchFull(rng.Start, rng.End, liveOptions(r.grace)...)
	})
	return r, subscribe(r.ctx, &r.sub, q)
}

func (r *reportModel) suspend() {
	r.sub.stop()
}

// setSettings applies a new settings snapshot. A different week start moves
// the range, so the subscription follows.
func (r reportModel) setSettings(s store.Settings) (reportModel, tea.Cmd) {
	weekStart := r.settings.WeekStart
	r.settings = s
	r.aggregate()
	if r.sub.cancel != nil && weekStart != s.WeekStart && r.option == report.Week {
		return r.open()
	}
	return r, nil
}

func (r reportModel) setEarliest(e store.Earliest) reportModel {
	r.earliest = e
	return r
}

func (r reportModel) update(msg tea.Msg) (reportModel, tea.Cmd) {
	switch msg := msg.(type) {
	case liveMsg[[]store.ItemWithConfiguration]:
		if msg.gen != r.sub.gen {
			return r, nil
		}
		if msg.update.Err != nil {
			return r, tea.Batch(listen(msg.gen, msg.ch), statusCmd("Report error: "+msg.update.Err.Error(), true))
		}
		r.full = msg.update.Value
		r.loaded = true
		r.aggregate()
		return r, listen(msg.gen, msg.ch)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			return r.moveCursor(-1)
		case key.Matches(msg, keys.Right):
			return r.moveCursor(1)
		case key.Matches(msg, keys.Up):
			return r.moveCursor(-7)
		case key.Matches(msg, keys.Down):
			return r.moveCursor(7)
		case key.Matches(msg, keys.PrevSpan):
			return r.shift(-1)
		case key.Matches(msg, keys.NextSpan):
			return r.shift(1)
		case key.Matches(msg, keys.Today):
			r.anchor = r.today()
			r.cursor = r.anchor
			return r.open()
		case key.Matches(msg, keys.Span):
			if r.option == report.Month {
				r.option = report.Week
			} else {
				r.option = report.Month
			}
			r.anchor = r.cursor
			return r.open()
		case key.Matches(msg, keys.Enter):
			if !r.cursor.After(r.today()) {
				date := r.cursor
				return r, func() tea.Msg { return openDayMsg{date: date} }
			}
		}
	}
	return r, nil
}

// moveCursor steps the selected day, following it into the neighbouring
// range when it leaves the current one.
func (r reportModel) moveCursor(days int) (reportModel, tea.Cmd) {
	next := r.cursor.AddDate(0, 0, days)
	if next.After(r.today()) || r.beforeEarliest(next) {
		return r, nil
	}
	r.cursor = next
	if !r.rng.Contains(next) {
		r.anchor = next
		return r.open()
	}
	return r, nil
}

// shift pages the range by one month or week. Ranges entirely after today
// or before the first recorded day are out of reach.
func (r reportModel) shift(delta int) (reportModel, tea.Cmd) {
	anchor := report.Shift(r.option, r.anchor, delta)
	rng := report.RangeFor(r.option, anchor, r.settings.WeekStart)
	if rng.Start.After(r.today()) || r.beforeEarliest(rng.End) {
		return r, nil
	}
	r.anchor = anchor
	r.cursor = anchor
	if r.cursor.After(r.today()) {
		r.cursor = r.today()
	}
	if r.beforeEarliest(r.cursor) {
		r.cursor = r.earliest.Date
	}
	return r.open()
}

func (r reportModel) beforeEarliest(d time.Time) bool {
	return r.earliest.OK && d.Before(store.Day(r.earliest.Date))
}

func (r *reportModel) aggregate() {
	if r.rng.Start.IsZero() {
		return
	}
	r.calendars = report.Aggregate(r.rng, report.GroupItems(r.full), report.Options{
		ShowValues: r.settings.ShowRecordedValues,
		WeekStart:  r.settings.WeekStart,
		Today:      r.today(),
	})
	r.buildChart()
}

func (r *reportModel) buildChart() {
	chartWidth := max(20, r.width-8)
	r.chart = barchart.New(chartWidth, 8)

	var bars []barchart.BarData
	for _, avg := range report.Averages(r.calendars) {
		color := report.Hex(r.settings.LowValueColor, r.settings.HighValueColor, avg.Value)
		bars = append(bars, barchart.BarData{
			Label: truncate(avg.Configuration.Name, 8),
			Values: []barchart.BarValue{{
				Name:  avg.Configuration.Name,
				Value: avg.Value * 100,
				Style: lipgloss.NewStyle().Foreground(lipgloss.Color(color)),
			}},
		})
	}
	if len(bars) == 0 {
		return
	}
	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportModel) view() string {
	w := r.width - 4

	monthTab := inactiveTabStyle.Render("Month")
	weekTab := inactiveTabStyle.Render("Week")
	if r.option == report.Month {
		monthTab = activeTabStyle.Render("Month")
	} else {
		weekTab = activeTabStyle.Render("Week")
	}
	modeTabs := lipgloss.JoinHorizontal(lipgloss.Bottom, monthTab, weekTab)

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Report"), "  ", modeTabs, "  ", mutedStyle.Render(r.rangeLabel()),
	)

	nav := mutedStyle.Render("  ←/→/↑/↓: day  [/]: page  m: month/week  t: today  enter: open day")

	parts := []string{header, ""}
	switch {
	case !r.loaded:
		parts = append(parts, mutedStyle.Render("  Loading..."))
	case len(r.calendars) == 0:
		parts = append(parts, mutedStyle.Render("  Nothing recorded in this period"))
	default:
		parts = append(parts, r.renderCalendars(w), "")
		if len(report.Averages(r.calendars)) > 0 {
			parts = append(parts, titleStyle.Render("Average"), r.chart.View(), "")
		}
		parts = append(parts, r.renderComments(w))
	}
	parts = append(parts, "", nav)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (r reportModel) rangeLabel() string {
	if r.option == report.Month {
		return r.rng.Start.Format("January 2006")
	}
	return fmt.Sprintf("%s – %s", r.rng.Start.Format("Jan 02"), r.rng.End.Format("Jan 02, 2006"))
}

// renderCalendars lays the grids out left to right, wrapping to the width.
func (r reportModel) renderCalendars(w int) string {
	colWidth := calendarWidth + 3
	perRow := max(1, (w-4)/colWidth)

	var rows, row []string
	for _, c := range r.calendars {
		block := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render(truncate(c.Configuration.Name, calendarWidth)),
			RenderCalendar(c, r.settings, r.cursor, true),
		)
		row = append(row, lipgloss.NewStyle().Width(colWidth).Render(block))
		if len(row) == perRow {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return strings.Join(rows, "\n\n")
}

// renderComments lists the comments written on the selected day.
func (r reportModel) renderComments(w int) string {
	title := titleStyle.Render(formatDay(r.cursor, r.today()))
	var lines []string
	for _, c := range r.calendars {
		for _, week := range c.Weeks {
			for _, d := range week {
				if d.InRange && d.Date.Equal(r.cursor) && d.Comment != "" {
					lines = append(lines, fmt.Sprintf("  %s %s",
						highlightStyle.Render(truncate(c.Configuration.Name, 16)+":"),
						truncate(d.Comment, max(10, w-24))))
				}
			}
		}
	}
	if len(lines) == 0 {
		lines = append(lines, mutedStyle.Render("  No comments"))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append([]string{title}, lines...)...)
}
