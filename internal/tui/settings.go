package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/daytracker/internal/remind"
	"github.com/sadopc/daytracker/internal/store"
)

type settingsModel struct {
	store     *store.Store
	scheduler *remind.Scheduler
	width     int
	height    int

	settings store.Settings
	work     *store.Work

	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	reminderEnabled *bool
	reminderTime    *string
	showValues      *bool
	lowColor        *string
	highColor       *string
	weekStart       *time.Weekday
}

func newSettingsModel(s *store.Store, sched *remind.Scheduler) settingsModel {
	re, sv := false, false
	rt, lc, hc := "", "", ""
	ws := time.Monday
	return settingsModel{
		store:           s,
		scheduler:       sched,
		settings:        store.DefaultSettings(),
		reminderEnabled: &re,
		reminderTime:    &rt,
		showValues:      &sv,
		lowColor:        &lc,
		highColor:       &hc,
		weekStart:       &ws,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type workStatusMsg struct {
	work *store.Work
	err  error
}

// refresh reads the reminder registration.
func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		w, err := s.store.GetWork(remind.WorkID)
		if errors.Is(err, store.ErrNotFound) {
			return workStatusMsg{}
		}
		return workStatusMsg{work: w, err: err}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case workStatusMsg:
		s.work = msg.work
		if msg.err != nil {
			return s, statusCmd("Reminder status: "+msg.err.Error(), true)
		}
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.reminderEnabled = s.settings.ReminderEnabled
	*s.reminderTime = s.settings.ReminderTime.String()
	*s.showValues = s.settings.ShowRecordedValues
	*s.lowColor = s.settings.LowValueColor.Hex()
	*s.highColor = s.settings.HighValueColor.Hex()
	*s.weekStart = s.settings.WeekStart

	weekdays := make([]huh.Option[time.Weekday], 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		weekdays = append(weekdays, huh.NewOption(d.String(), d))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title("Daily reminder").
				Description("Notify when something is still missing").
				Value(s.reminderEnabled),
			huh.NewInput().Title("Reminder time (HH:MM)").
				Value(s.reminderTime).
				Validate(func(v string) error {
					_, err := store.ParseTimeOfDay(v)
					return err
				}),
		).Title("Reminder"),
		huh.NewGroup(
			huh.NewConfirm().Title("Show recorded values in the report").Value(s.showValues),
			huh.NewInput().Title("Low value colour").Value(s.lowColor).Validate(validateColor),
			huh.NewInput().Title("High value colour").Value(s.highColor).Validate(validateColor),
			huh.NewSelect[time.Weekday]().Title("Week starts on").
				Options(weekdays...).
				Value(s.weekStart),
		).Title("Report"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func validateColor(v string) error {
	_, err := store.ParseColor(v)
	return err
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, tea.Sequence(s.saveSettings(), s.refresh())
	}

	return s, cmd
}

// saveSettings writes the form and brings the reminder registration in
// line with it.
func (s settingsModel) saveSettings() tea.Cmd {
	next := s.settings
	next.ReminderEnabled = *s.reminderEnabled
	next.ShowRecordedValues = *s.showValues
	next.WeekStart = *s.weekStart
	var err error
	if next.ReminderTime, err = store.ParseTimeOfDay(*s.reminderTime); err != nil {
		return statusCmd(err.Error(), true)
	}
	if next.LowValueColor, err = store.ParseColor(*s.lowColor); err != nil {
		return statusCmd(err.Error(), true)
	}
	if next.HighValueColor, err = store.ParseColor(*s.highColor); err != nil {
		return statusCmd(err.Error(), true)
	}

	st, sched := s.store, s.scheduler
	return func() tea.Msg {
		return savedMsg{what: "settings", err: saveSettings(st, sched, next)}
	}
}

func saveSettings(st *store.Store, sched *remind.Scheduler, next store.Settings) error {
	steps := []func() error{
		func() error { return st.SetReminderTime(next.ReminderTime) },
		func() error { return st.SetReminderEnabled(next.ReminderEnabled) },
		func() error { return st.SetShowRecordedValues(next.ShowRecordedValues) },
		func() error { return st.SetLowValueColor(next.LowValueColor) },
		func() error { return st.SetHighValueColor(next.HighValueColor) },
		func() error { return st.SetWeekStart(next.WeekStart) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	if err := sched.Apply(next); err != nil {
		return fmt.Errorf("apply reminder: %w", err)
	}
	return nil
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return activePanelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	rows := []string{title, ""}
	add := func(label, value string) {
		rows = append(rows, fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(24).Render(label), value))
	}

	st := s.settings
	add("Daily reminder", highlightStyle.Render(onOff(st.ReminderEnabled)+" at "+st.ReminderTime.String()))
	add("Reminder registration", s.workStatus())
	add("Show recorded values", highlightStyle.Render(onOff(st.ShowRecordedValues)))
	add("Low value colour", swatch(st.LowValueColor))
	add("High value colour", swatch(st.HighValueColor))
	add("Week starts on", highlightStyle.Render(st.WeekStart.String()))

	rows = append(rows, "", hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (s settingsModel) workStatus() string {
	if s.work == nil {
		return mutedStyle.Render("not registered")
	}
	text := "next run " + s.work.NextRun.Local().Format("Mon Jan 2 15:04")
	if s.work.Attempts > 0 {
		return warningStyle.Render(fmt.Sprintf("%s (retry %d)", text, s.work.Attempts))
	}
	return successStyle.Render(text)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func swatch(c store.Color) string {
	hex := c.Hex()
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("███") + " " + highlightStyle.Render(hex)
}
