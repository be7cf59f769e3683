package tui

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/daytracker/internal/report"
	"github.com/sadopc/daytracker/internal/store"
)

// RenderCalendar draws one configuration's grid: a weekday header row then
// one row per week. Recorded option days are filled along the settings'
// low→high gradient. When focused, the cell on cursor is underlined.
func RenderCalendar(c report.Calendar, settings store.Settings, cursor time.Time, focused bool) string {
	cursor = store.Day(cursor)

	var header []string
	for _, wd := range report.Weekdays(settings.WeekStart) {
		header = append(header, weekdayStyle.Render(wd.String()[:2]))
	}

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}
	for _, week := range c.Weeks {
		cells := make([]string, 0, len(week))
		for _, d := range week {
			cells = append(cells, renderCell(d, settings, focused && d.Date.Equal(cursor)))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return strings.Join(rows, "\n")
}

func renderCell(d report.Day, settings store.Settings, selected bool) string {
	if !d.InRange {
		return cellStyle.Render("")
	}

	text := strconv.Itoa(d.Date.Day())
	if d.Label != "" {
		text = d.Label
	}

	style := cellStyle
	switch {
	case d.Colored:
		bg := report.Hex(settings.LowValueColor, settings.HighValueColor, d.Position)
		style = style.Background(lipgloss.Color(bg)).Foreground(colorOnCell)
	case d.Recorded:
		style = style.Foreground(colorHighlight)
	default:
		style = style.Foreground(colorMuted)
	}
	if selected {
		style = style.Inherit(cursorCellStyle)
	}
	return style.Render(text)
}
