package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/sadopc/daytracker/internal/entry"
	"github.com/sadopc/daytracker/internal/export"
	"github.com/sadopc/daytracker/internal/remind"
	"github.com/sadopc/daytracker/internal/store"
)

// startMsg starts the app-lifetime subscriptions once the program runs.
type startMsg struct{}

// App is the root Bubble Tea model.
type App struct {
	store  *store.Store
	log    *log.Logger
	grace  time.Duration
	ctx    context.Context
	cancel context.CancelFunc
	width  int
	height int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	entry    entryModel
	report   reportModel
	settings settingsModel

	settingsSub subscription
	earliestSub subscription

	help        help.Model
	status      string
	statusError bool
}

// NewApp builds the tracker UI over s. grace is how long an unobserved live
// query keeps running before it shuts down.
func NewApp(s *store.Store, sched *remind.Scheduler, logger *log.Logger, grace time.Duration) App {
	h := help.New()
	h.ShowAll = false

	ctx, cancel := context.WithCancel(context.Background())
	return App{
		store:      s,
		log:        logger,
		grace:      grace,
		ctx:        ctx,
		cancel:     cancel,
		activeView: viewEntry,
		entry:      newEntryModel(ctx, s, entry.NewService(s, logger), logger, grace),
		report:     newReportModel(ctx, s, logger, grace),
		settings:   newSettingsModel(s, sched),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return func() tea.Msg { return startMsg{} }
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case startMsg:
		var cmd tea.Cmd
		a.entry, cmd = a.entry.open(a.entry.today())
		return a, tea.Batch(
			cmd,
			subscribe(a.ctx, &a.settingsSub, a.store.WatchSettings(liveOptions(a.grace)...)),
			subscribe(a.ctx, &a.earliestSub, a.store.WatchEarliestDate(liveOptions(a.grace)...)),
		)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.entry.setSize(a.width, contentHeight)
		a.report.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			a.cancel()
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewEntry)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewReport)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		}

	case liveMsg[store.Settings]:
		if msg.gen != a.settingsSub.gen {
			return a, nil
		}
		if msg.update.Err != nil {
			a.setStatus("Settings error: "+msg.update.Err.Error(), true)
			return a, listen(msg.gen, msg.ch)
		}
		a.settings.settings = msg.update.Value
		var cmd tea.Cmd
		a.report, cmd = a.report.setSettings(msg.update.Value)
		return a, tea.Batch(cmd, listen(msg.gen, msg.ch))

	case liveMsg[store.Earliest]:
		if msg.gen != a.earliestSub.gen {
			return a, nil
		}
		if msg.update.Err == nil {
			a.report = a.report.setEarliest(msg.update.Value)
		}
		return a, listen(msg.gen, msg.ch)

	case liveMsg[[]store.ItemWithConfiguration]:
		// Entry and report both watch joined items; each keeps its own.
		var c1, c2 tea.Cmd
		a.entry, c1 = a.entry.update(msg)
		a.report, c2 = a.report.update(msg)
		return a, tea.Batch(c1, c2)

	case liveMsg[[]store.Configuration]:
		var cmd tea.Cmd
		a.entry, cmd = a.entry.update(msg)
		return a, cmd

	case openDayMsg:
		a.report.suspend()
		a.activeView = viewEntry
		var cmd tea.Cmd
		a.entry, cmd = a.entry.open(msg.date)
		return a, cmd

	case statusMsg:
		a.setStatus(msg.text, msg.isError)
		return a, nil

	case savedMsg:
		if msg.err != nil {
			a.log.Error("save failed", "what", msg.what, "err", msg.err)
			a.setStatus(fmt.Sprintf("Could not save %s: %v", msg.what, msg.err), true)
		} else {
			a.setStatus("Saved "+msg.what, false)
		}
		return a, nil

	case exportDoneMsg:
		a.setStatus(fmt.Sprintf("Exported %d entries to %s", msg.n, msg.path), false)
		a.exportPicking = false
		return a, nil
	}

	return a.updateActiveView(msg)
}

func (a *App) setStatus(text string, isError bool) {
	a.status = text
	a.statusError = isError
}

// switchView suspends the current screen's subscriptions and resumes the
// target's.
func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	if v == a.activeView {
		return a, nil
	}
	switch a.activeView {
	case viewEntry:
		a.entry.suspend()
	case viewReport:
		a.report.suspend()
	}
	a.activeView = v

	var cmd tea.Cmd
	switch v {
	case viewEntry:
		date := a.entry.state.Date
		if date.IsZero() {
			date = a.entry.today()
		}
		a.entry, cmd = a.entry.open(date)
	case viewReport:
		a.report, cmd = a.report.open()
	case viewSettings:
		cmd = a.settings.refresh()
	}
	return a, cmd
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewEntry:
		a.entry, cmd = a.entry.update(msg)
	case viewReport:
		a.report, cmd = a.report.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewEntry:
		return a.entry.formActive
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch a.activeView {
	case viewEntry:
		content = a.entry.view()
	case viewReport:
		content = a.report.view()
	case viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(1, a.height-headerHeight-footerHeight)

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker(contentHeight)
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		MaxHeight(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("daytracker")
	gap := max(1, a.width-lipgloss.Width(title)-lipgloss.Width(tabRow)-4)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	left := footerStyle.Render(helpView)
	gap := max(1, a.width-lipgloss.Width(left)-lipgloss.Width(status)-2)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, status)
}

func (a App) renderExportPicker(_ int) string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range export.Formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(f)))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(export.Formats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(export.Formats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes every recorded entry to the home directory.
func (a App) doExport(format string) tea.Cmd {
	s := a.store
	return func() tea.Msg {
		today := store.Day(time.Now())
		earliest, ok, err := s.EarliestDate()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		if !ok {
			return statusMsg{text: "Nothing to export yet"}
		}

		full, err := s.ListFull(earliest, today)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		items := full[:0]
		for _, it := range full {
			if it.Item.Recorded() || (it.Item.Comment != nil && *it.Item.Comment != "") {
				items = append(items, it)
			}
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Export error: %v", err), isError: true}
		}
		path := filepath.Join(home, fmt.Sprintf("daytracker-export-%s.%s", store.FormatDate(today), format))
		if err := export.Write(format, items, path); err != nil {
			return statusMsg{text: fmt.Sprintf("%s error: %v", strings.ToUpper(format), err), isError: true}
		}
		return exportDoneMsg{path: path, n: len(items)}
	}
}
