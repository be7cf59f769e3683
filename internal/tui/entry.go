package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/sadopc/daytracker/internal/entry"
	"github.com/sadopc/daytracker/internal/store"
	"github.com/sadopc/daytracker/internal/tracking"
)

type entryFormType int

const (
	formValue entryFormType = iota
	formNew
	formEdit
)

type entryModel struct {
	store   *store.Store
	entries *entry.Service
	log     *log.Logger
	grace   time.Duration
	now     func() time.Time
	ctx     context.Context
	width   int
	height  int

	state   entry.State
	configs []store.Configuration
	loaded  bool
	cursor  int

	items   subscription
	config  subscription
	queries *queryCache[time.Time, []store.ItemWithConfiguration]

	formActive bool
	form       *huh.Form
	formType   entryFormType
	editingID  int64

	// Form field pointers (survive value copies)
	formOption  *int
	formComment *string
	formName    *string
	formTag     *string
	formEnabled *bool
}

func newEntryModel(ctx context.Context, s *store.Store, svc *entry.Service, logger *log.Logger, grace time.Duration) entryModel {
	option, comment, name, tag, enabled := 0, "", "", tracking.TagOneToTen, true
	return entryModel{
		store:       s,
		entries:     svc,
		log:         logger,
		grace:       grace,
		now:         time.Now,
		ctx:         ctx,
		queries:     newQueryCache[time.Time, []store.ItemWithConfiguration](8),
		formOption:  &option,
		formComment: &comment,
		formName:    &name,
		formTag:     &tag,
		formEnabled: &enabled,
	}
}

func (e *entryModel) setSize(w, h int) {
	e.width = w
	e.height = h
}

func (e entryModel) today() time.Time {
	return store.Day(e.now())
}

// open shows date, ensuring its items exist and subscribing to them.
func (e entryModel) open(date time.Time) (entryModel, tea.Cmd) {
	date = store.Day(date)
	if !date.Equal(e.state.Date) {
		e.state = entry.State{Date: date}
		e.loaded = false
		e.cursor = 0
	}
	q := e.queries.get(date, func() *store.Query[[]store.ItemWithConfiguration] {
		return e.store.WatchFullForDate(date, liveOptions(e.grace)...)
	})
	cmds := []tea.Cmd{
		e.ensure(date),
		subscribe(e.ctx, &e.items, q),
	}
	if e.config.cancel == nil {
		cmds = append(cmds, subscribe(e.ctx, &e.config, e.store.WatchConfigurations(liveOptions(e.grace)...)))
	}
	return e, tea.Batch(cmds...)
}

// suspend drops the screen's subscriptions when it is hidden.
func (e *entryModel) suspend() {
	e.items.stop()
	e.config.stop()
}

func (e entryModel) ensure(date time.Time) tea.Cmd {
	return func() tea.Msg {
		if _, err := e.entries.EnsureItems(date); err != nil {
			return savedMsg{what: "entries", err: err}
		}
		return nil
	}
}

func (e entryModel) update(msg tea.Msg) (entryModel, tea.Cmd) {
	switch msg := msg.(type) {
	case liveMsg[[]store.ItemWithConfiguration]:
		if msg.gen != e.items.gen {
			return e, nil
		}
		if msg.update.Err != nil {
			return e, tea.Batch(listen(msg.gen, msg.ch), statusCmd("Load error: "+msg.update.Err.Error(), true))
		}
		e.state = e.state.Apply(msg.update.Value)
		e.loaded = true
		e.cursor = min(e.cursor, max(0, len(e.state.Items)-1))
		return e, listen(msg.gen, msg.ch)

	case liveMsg[[]store.Configuration]:
		if msg.gen != e.config.gen {
			return e, nil
		}
		if msg.update.Err == nil {
			e.configs = msg.update.Value
		}
		return e, listen(msg.gen, msg.ch)
	}

	if e.formActive && e.form != nil {
		return e.updateForm(msg)
	}
	if msg, ok := msg.(tea.KeyMsg); ok {
		return e.updateKeys(msg)
	}
	return e, nil
}

func (e entryModel) updateKeys(msg tea.KeyMsg) (entryModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if e.cursor > 0 {
			e.cursor--
		}
	case key.Matches(msg, keys.Down):
		if e.cursor < len(e.state.Items)-1 {
			e.cursor++
		}
	case key.Matches(msg, keys.Left):
		return e.open(e.state.Date.AddDate(0, 0, -1))
	case key.Matches(msg, keys.Right):
		if e.state.Date.Before(e.today()) {
			return e.open(e.state.Date.AddDate(0, 0, 1))
		}
	case key.Matches(msg, keys.Today):
		return e.open(e.today())
	case key.Matches(msg, keys.MoveUp):
		return e.swap(-1)
	case key.Matches(msg, keys.MoveDown):
		return e.swap(1)
	case key.Matches(msg, keys.New):
		return e.showNewForm()
	case key.Matches(msg, keys.Edit):
		if it, ok := e.selected(); ok {
			return e.showEditForm(it.Configuration)
		}
	case key.Matches(msg, keys.Enter):
		if it, ok := e.selected(); ok {
			return e.showValueForm(it)
		}
	case key.Matches(msg, keys.Cycle):
		if it, ok := e.selected(); ok {
			if opts, isOpts := it.Configuration.TrackingType.(*tracking.Options); isOpts {
				v := opts.Next(it.Item.Value)
				return e.record(it, &v, nil)
			}
			return e.showValueForm(it)
		}
	case key.Matches(msg, keys.Clear):
		if it, ok := e.selected(); ok {
			return e.clear(it)
		}
	}
	return e, nil
}

func (e entryModel) selected() (store.ItemWithConfiguration, bool) {
	if e.cursor < 0 || e.cursor >= len(e.state.Items) {
		return store.ItemWithConfiguration{}, false
	}
	return e.state.Items[e.cursor], true
}

// record updates the row in place and writes it through the entry service.
// A nil value or comment keeps what the row holds. The live query replaces
// the optimistic row once the write lands.
func (e entryModel) record(it store.ItemWithConfiguration, value *int, comment *string) (entryModel, tea.Cmd) {
	if e.state.Date.After(e.today()) {
		return e, statusCmd("Cannot record entries for a future day", true)
	}

	row := it
	if comment != nil {
		row.Item.Comment = comment
	}
	if _, isText := it.Configuration.TrackingType.(tracking.TextEntry); isText {
		row.Item.Value = nil
		if row.Item.Comment != nil && strings.TrimSpace(*row.Item.Comment) != "" {
			v := tracking.TextRecorded
			row.Item.Value = &v
		}
	} else if value != nil {
		row.Item.Value = value
	}
	e.replace(row)

	date, id, name := e.state.Date, it.Configuration.ID, it.Configuration.Name
	svc := e.entries
	return e, func() tea.Msg {
		_, err := svc.Record(date, id, value, comment)
		return savedMsg{what: name, err: err}
	}
}

// clear removes the row's value, and a text row's text with it.
func (e entryModel) clear(it store.ItemWithConfiguration) (entryModel, tea.Cmd) {
	row := it
	row.Item.Value = nil
	if _, isText := it.Configuration.TrackingType.(tracking.TextEntry); isText {
		row.Item.Comment = nil
	}
	e.replace(row)

	date, id, name := e.state.Date, it.Configuration.ID, it.Configuration.Name
	svc := e.entries
	return e, func() tea.Msg {
		_, err := svc.Clear(date, id)
		return savedMsg{what: name, err: err}
	}
}

func (e *entryModel) replace(row store.ItemWithConfiguration) {
	for i := range e.state.Items {
		if e.state.Items[i].Configuration.ID == row.Configuration.ID {
			e.state.Items[i] = row
		}
	}
}

// swap exchanges the selected configuration with its neighbour delta rows
// away, optimistically, then persists both.
func (e entryModel) swap(delta int) (entryModel, tea.Cmd) {
	j := e.cursor + delta
	if j < 0 || j >= len(e.state.Items) {
		return e, nil
	}
	a, b := e.state.Items[e.cursor].Configuration.ID, e.state.Items[j].Configuration.ID
	next, persist, ok := entry.Swap(e.state, a, b, time.Now().UTC())
	if !ok {
		return e, nil
	}
	e.state = next
	e.cursor = j

	s := e.store
	return e, func() tea.Msg {
		err := s.SaveConfigurations(&persist[0], &persist[1])
		return savedMsg{what: "order", err: err}
	}
}

func (e entryModel) showValueForm(it store.ItemWithConfiguration) (entryModel, tea.Cmd) {
	e.formType = formValue
	e.editingID = it.Configuration.ID
	*e.formComment = ""
	if it.Item.Comment != nil {
		*e.formComment = *it.Item.Comment
	}

	var fields []huh.Field
	switch t := it.Configuration.TrackingType.(type) {
	case *tracking.Options:
		*e.formOption = t.Options[0].Value
		if it.Item.Value != nil {
			*e.formOption = *it.Item.Value
		}
		opts := make([]huh.Option[int], len(t.Options))
		for i, o := range t.Options {
			opts[i] = huh.NewOption(o.Text, o.Value)
		}
		fields = append(fields,
			huh.NewSelect[int]().Title(it.Configuration.Name).Options(opts...).Value(e.formOption),
			huh.NewInput().Title("Comment").Value(e.formComment),
		)
	case tracking.TextEntry:
		fields = append(fields,
			huh.NewText().Title(it.Configuration.Name).Value(e.formComment),
		)
	default:
		panic(fmt.Sprintf("tui: unhandled tracking type %T", t))
	}

	e.form = huh.NewForm(huh.NewGroup(fields...)).WithShowHelp(true).WithShowErrors(true)
	e.formActive = true
	return e, e.form.Init()
}

func (e entryModel) showNewForm() (entryModel, tea.Cmd) {
	*e.formName = ""
	*e.formTag = tracking.TagOneToTen
	e.formType = formNew
	draft := store.NewConfiguration("", tracking.OneToTen)
	e.state.Unsaved = &draft

	typeOptions := make([]huh.Option[string], 0, len(tracking.All()))
	for _, t := range tracking.All() {
		typeOptions = append(typeOptions, huh.NewOption(tracking.Name(t), t.Tag()))
	}

	e.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("What do you want to track?").Value(e.formName).Validate(requireName),
			huh.NewSelect[string]().Title("Tracked as").Options(typeOptions...).Value(e.formTag),
		),
	).WithShowHelp(true).WithShowErrors(true)

	e.formActive = true
	return e, e.form.Init()
}

func (e entryModel) showEditForm(c store.Configuration) (entryModel, tea.Cmd) {
	*e.formName = c.Name
	*e.formEnabled = c.Active
	e.formType = formEdit
	e.editingID = c.ID

	e.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Name").Value(e.formName).Validate(requireName),
			huh.NewConfirm().Title("Track every day?").
				Description("Tracked as "+tracking.Name(c.TrackingType)).
				Affirmative("Active").Negative("Inactive").
				Value(e.formEnabled),
		),
	).WithShowHelp(true).WithShowErrors(true)

	e.formActive = true
	return e, e.form.Init()
}

func requireName(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func (e entryModel) updateForm(msg tea.Msg) (entryModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			e.formActive = false
			e.form = nil
			e.state.Unsaved = nil
			return e, nil
		}
	}

	form, cmd := e.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		e.form = f
	}

	if e.form.State == huh.StateCompleted {
		e.formActive = false
		return e.submit()
	}

	return e, cmd
}

// submit applies the completed form.
func (e entryModel) submit() (entryModel, tea.Cmd) {
	switch e.formType {
	case formValue:
		for _, it := range e.state.Items {
			if it.Configuration.ID != e.editingID {
				continue
			}
			comment := *e.formComment
			if _, isOpts := it.Configuration.TrackingType.(*tracking.Options); isOpts {
				v := *e.formOption
				return e.record(it, &v, &comment)
			}
			return e.record(it, nil, &comment)
		}
	case formNew:
		t, err := tracking.Parse(*e.formTag)
		if err != nil {
			e.state.Unsaved = nil
			return e, statusCmd(err.Error(), true)
		}
		e.state.Unsaved.Name = strings.TrimSpace(*e.formName)
		e.state.Unsaved.TrackingType = t
		c := *e.state.Unsaved
		e.state.Unsaved = nil
		return e, e.saveNew(c)
	case formEdit:
		for _, it := range e.state.Items {
			if it.Configuration.ID != e.editingID {
				continue
			}
			c := it.Configuration
			c.Name = strings.TrimSpace(*e.formName)
			c.Active = *e.formEnabled
			s := e.store
			return e, func() tea.Msg {
				_, err := s.SaveConfiguration(&c)
				return savedMsg{what: c.Name, err: err}
			}
		}
	}
	return e, nil
}

func (e entryModel) saveNew(c store.Configuration) tea.Cmd {
	svc, date := e.entries, e.state.Date
	return func() tea.Msg {
		err := svc.SaveNewConfiguration(&c, date)
		return savedMsg{what: c.Name, err: err}
	}
}

func (e entryModel) view() string {
	w := e.width - 4

	if e.formActive && e.form != nil {
		title := titleStyle.Render("Record")
		switch e.formType {
		case formNew:
			title = titleStyle.Render("New Configuration")
		case formEdit:
			title = titleStyle.Render("Configure")
		}
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", e.form.View())
		return activePanelStyle.Width(w).Render(content)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		e.renderHeader(w),
		e.renderItems(w),
	)
}

func (e entryModel) renderHeader(w int) string {
	title := titleStyle.Render(formatDay(e.state.Date, e.today()))
	date := mutedStyle.Render(store.FormatDate(e.state.Date))

	done, missing := 0, 0
	for _, it := range e.state.Items {
		switch {
		case it.Item.Recorded():
			done++
		case it.Configuration.Active && tracking.Notifiable(it.Configuration.TrackingType):
			missing++
		}
	}
	progress := successStyle.Render(fmt.Sprintf("%d/%d recorded", done, len(e.state.Items)))
	if missing > 0 {
		progress += "  " + warningStyle.Render(fmt.Sprintf("%d missing", missing))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("%s  %s", title, date),
		progress,
	))
}

func (e entryModel) renderItems(w int) string {
	placeholders := entry.Loading(e.configs, e.state.Items)
	if !e.loaded && len(e.state.Items) == 0 && placeholders == 0 {
		return panelStyle.Width(w).Render(mutedStyle.Render("Loading..."))
	}

	if len(e.state.Items) == 0 && placeholders == 0 {
		content := lipgloss.JoinVertical(lipgloss.Left,
			titleStyle.Render("Nothing tracked yet"),
			"",
			mutedStyle.Render("Press n to add something to track."),
		)
		return panelStyle.Width(w).Render(content)
	}

	nameWidth := 24
	var rows []string
	for i, it := range e.state.Items {
		cursor := "  "
		style := normalItemStyle
		if i == e.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		name := truncate(it.Configuration.Name, nameWidth)
		if !it.Configuration.Active {
			style = mutedStyle
		}
		row := style.Render(fmt.Sprintf("%s%-*s", cursor, nameWidth, name)) + " " + renderValue(it)
		if it.Item.Comment != nil && *it.Item.Comment != "" {
			if _, isText := it.Configuration.TrackingType.(tracking.TextEntry); isText {
				row += " " + normalItemStyle.Render(truncate(*it.Item.Comment, max(10, w-nameWidth-12)))
			} else {
				row += mutedStyle.Render("  " + truncate(*it.Item.Comment, max(10, w-nameWidth-16)))
			}
		}
		rows = append(rows, row)
	}
	for range placeholders {
		rows = append(rows, mutedStyle.Render("  …"))
	}

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: record  space: next value  ⌫: clear  n: new  c: configure  K/J: reorder  ←/→: day"))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func renderValue(it store.ItemWithConfiguration) string {
	if it.Item.Value == nil {
		return mutedStyle.Render("·")
	}
	label, _ := tracking.Label(it.Configuration.TrackingType, *it.Item.Value)
	return highlightStyle.Render(label)
}
