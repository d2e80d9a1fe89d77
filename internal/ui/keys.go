package ui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// Action is a globally bound shortcut
type Action int

const (
	ActionNone Action = iota
	ActionNewTask
	ActionQuickAdd
	ActionExport
	ActionBoard
	ActionList
	ActionSearch
)

// KeyMap defines all keybindings for the application
type KeyMap struct {
	// Global chords, matched before any input widget sees the key
	NewTask  key.Binding
	QuickAdd key.Binding
	Export   key.Binding
	Board    key.Binding
	List     key.Binding
	Search   key.Binding

	// Navigation
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding

	// Task actions
	Edit        key.Binding
	Delete      key.Binding
	Toggle      key.Binding
	Grab        key.Binding
	Timer       key.Binding
	Watch       key.Binding
	Category    key.Binding
	ColumnLeft  key.Binding
	ColumnRight key.Binding

	// Edit dialog, usable while typing
	SubtaskNext   key.Binding
	SubtaskToggle key.Binding
	React         key.Binding

	// General
	Stats   key.Binding
	Help    key.Binding
	Quit    key.Binding
	Back    key.Binding
	Confirm key.Binding
	Next    key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NewTask: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("C-n", "new task"),
		),
		QuickAdd: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("C-k", "quick add"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("C-e", "export csv"),
		),
		Board: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "board"),
		),
		List: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("C-l", "list"),
		),
		Search: key.NewBinding(
			key.WithKeys("ctrl+f", "/"),
			key.WithHelp("C-f", "search"),
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
			key.WithHelp("←/h", "column"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "column"),
		),

		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "toggle done"),
		),
		Grab: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "grab/drop"),
		),
		Timer: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "timer"),
		),
		Watch: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "watch"),
		),
		Category: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "category"),
		),
		ColumnLeft: key.NewBinding(
			key.WithKeys("H"),
			key.WithHelp("H", "column left"),
		),
		ColumnRight: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "column right"),
		),

		SubtaskNext: key.NewBinding(
			key.WithKeys("ctrl+o", "ctrl+down"),
			key.WithHelp("C-o", "next subtask"),
		),
		SubtaskToggle: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("C-x", "toggle subtask"),
		),
		React: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "👍 last comment"),
		),

		Stats: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stats"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "next field"),
		),
	}
}

// Global returns the action bound to a global chord. Plain "/" only counts
// as search outside text input.
func (k KeyMap) Global(msg tea.KeyMsg, typing bool) (Action, bool) {
	switch {
	case key.Matches(msg, k.NewTask):
		return ActionNewTask, true
	case key.Matches(msg, k.QuickAdd):
		return ActionQuickAdd, true
	case key.Matches(msg, k.Export):
		return ActionExport, true
	case key.Matches(msg, k.Board):
		return ActionBoard, true
	case key.Matches(msg, k.List):
		return ActionList, true
	case key.Matches(msg, k.Search):
		if typing && msg.String() != "ctrl+f" {
			return ActionNone, false
		}
		return ActionSearch, true
	}
	return ActionNone, false
}

// ShortHelp returns short help bindings (for status bar)
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.NewTask, k.QuickAdd, k.Search, k.Grab, k.Help, k.Quit}
}

// FullHelp returns full help bindings (for help view)
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NewTask, k.QuickAdd, k.Export, k.Search},
		{k.Board, k.List, k.Stats, k.Category},
		{k.Up, k.Down, k.Left, k.Right},
		{k.Grab, k.Edit, k.Delete, k.Toggle},
		{k.Timer, k.Watch, k.ColumnLeft, k.ColumnRight},
		{k.SubtaskNext, k.SubtaskToggle, k.React},
		{k.Help, k.Back, k.Quit},
	}
}
