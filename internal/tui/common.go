package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/daytracker/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewEntry viewState = iota
	viewReport
	viewSettings
)

var viewNames = []string{"Entries", "Report", "Settings"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
	n    int
}

// openDayMsg asks the app to show the entry screen for date.
type openDayMsg struct {
	date time.Time
}

// savedMsg reports the outcome of a background write.
type savedMsg struct {
	what string
	err  error
}

// liveMsg carries one emission of a live query subscription. gen lets a
// screen drop emissions from a subscription it has since replaced.
type liveMsg[T any] struct {
	gen    int
	update store.Update[T]
	ch     <-chan store.Update[T]
}

// listen waits for the next emission on ch. A closed channel ends the
// loop with no message.
func listen[T any](gen int, ch <-chan store.Update[T]) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return nil
		}
		return liveMsg[T]{gen: gen, update: u, ch: ch}
	}
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

// --- Helpers ---

func formatDay(d time.Time, today time.Time) string {
	switch {
	case d.Equal(today):
		return "Today"
	case d.Equal(today.AddDate(0, 0, -1)):
		return "Yesterday"
	case d.Year() == today.Year():
		return d.Format("Mon, Jan 2")
	}
	return d.Format("Mon, Jan 2 2006")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
