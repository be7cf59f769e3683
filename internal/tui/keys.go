package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	New      key.Binding
	Edit     key.Binding
	Cycle    key.Binding
	Clear    key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Today    key.Binding
	PrevSpan key.Binding
	NextSpan key.Binding
	Span     key.Binding
	Export   key.Binding
	Tab1     key.Binding
	Tab2     key.Binding
	Tab3     key.Binding
	Tab      key.Binding
	Help     key.Binding
	Enter    key.Binding
	Back     key.Binding
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	New: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new"),
	),
	Edit: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "configure"),
	),
	Cycle: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "next value"),
	),
	Clear: key.NewBinding(
		key.WithKeys("backspace", "delete"),
		key.WithHelp("⌫", "clear"),
	),
	MoveUp: key.NewBinding(
		key.WithKeys("K", "shift+up"),
		key.WithHelp("K", "move up"),
	),
	MoveDown: key.NewBinding(
		key.WithKeys("J", "shift+down"),
		key.WithHelp("J", "move down"),
	),
	Today: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "today"),
	),
	PrevSpan: key.NewBinding(
		key.WithKeys("[", "pgup"),
		key.WithHelp("[", "previous"),
	),
	NextSpan: key.NewBinding(
		key.WithKeys("]", "pgdown"),
		key.WithHelp("]", "next"),
	),
	Span: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "month/week"),
	),
	Export: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "export"),
	),
	Tab1: key.NewBinding(
		key.WithKeys("1"),
		key.WithHelp("1", "entries"),
	),
	Tab2: key.NewBinding(
		key.WithKeys("2"),
		key.WithHelp("2", "report"),
	),
	Tab3: key.NewBinding(
		key.WithKeys("3"),
		key.WithHelp("3", "settings"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next view"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "left"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "right"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Enter, k.Cycle, k.New, k.Tab, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Enter, k.Cycle, k.Clear, k.New, k.Edit},
		{k.MoveUp, k.MoveDown, k.Today, k.Export},
		{k.PrevSpan, k.NextSpan, k.Span},
		{k.Tab1, k.Tab2, k.Tab3, k.Tab},
		{k.Up, k.Down, k.Left, k.Right, k.Back, k.Quit},
	}
}
