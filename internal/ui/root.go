// Package ui is the terminal front end: the interaction controller and
// the bubbletea model that renders its projections.
package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/notify"
	"github.com/dori/taskdeck/internal/ui/theme"
	"github.com/dori/taskdeck/internal/ui/views"
	"github.com/dori/taskdeck/internal/view"
)

// RootModel is the main application model
type RootModel struct {
	ctrl   *Controller
	events *Events
	keys   KeyMap
	help   help.Model
	title  string
	now    func() time.Time

	width  int
	height int

	// Inputs of the open modal
	form      []formField
	formModal Modal
	focus     int

	status notify.Message
}

// NewRootModel creates a new root model. events may be nil when nothing
// outside the program changes the store. title is shown in the header,
// typically the signed-in user's name.
func NewRootModel(ctrl *Controller, events *Events, title string) RootModel {
	h := help.New()
	h.ShowAll = false

	return RootModel{
		ctrl:   ctrl,
		events: events,
		keys:   DefaultKeyMap(),
		help:   h,
		title:  title,
		now:    ctrl.opts.Now,
	}
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Init initializes the model
func (m RootModel) Init() tea.Cmd {
	return tea.Batch(tick(), m.events.listen())
}

// typing reports whether keys go to a text input
func (m RootModel) typing() bool {
	return len(m.form) > 0
}

// syncForm rebuilds the inputs when the controller opened another modal
func (m *RootModel) syncForm() {
	modal := m.ctrl.Modal()
	if modal == m.formModal {
		return
	}
	m.formModal = modal

	var task model.Task
	if modal == ModalEdit {
		task, _ = m.ctrl.tasks.Get(m.ctrl.EditTarget())
	}
	m.form = newForm(modal, task, m.now())
	m.focus = 0
	if modal == ModalSearch && len(m.form) > 0 {
		m.form[0].input.SetValue(m.ctrl.Filter().Search)
		m.form[0].input.CursorEnd()
	}
	m.focusField()
}

func (m *RootModel) focusField() {
	for i := range m.form {
		if i == m.focus {
			m.form[i].input.Focus()
		} else {
			m.form[i].input.Blur()
		}
	}
}

// Update handles messages
func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TasksChangedMsg:
		m.ctrl.clampCursor()
		return m, nil

	case StatusMsg:
		m.status = msg.Message
		return m, nil

	case eventMsg:
		next, cmd := m.Update(msg.msg)
		return next, tea.Batch(cmd, m.events.listen())

	case tickMsg:
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m RootModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Global chords win over whatever has focus
	if action, ok := m.keys.Global(msg, m.typing()); ok {
		m.ctrl.Shortcut(action)
		m.syncForm()
		return m, nil
	}

	switch m.ctrl.Modal() {
	case ModalAdd, ModalEdit, ModalQuickAdd, ModalSearch:
		return m.handleForm(msg)
	case ModalConfirmDelete:
		switch msg.String() {
		case "y", "Y":
			if err := m.ctrl.SubmitDelete(); err != nil {
				m.status = notify.Message{Text: err.Error(), Level: notify.LevelError}
			}
		case "n", "N", "esc":
			m.ctrl.Close()
		}
		m.syncForm()
		return m, nil
	case ModalStats, ModalHelp:
		if key.Matches(msg, m.keys.Back, m.keys.Stats, m.keys.Help) {
			m.ctrl.Close()
		} else if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		return m, nil
	}
	return m.handleBoard(msg)
}

func (m RootModel) handleForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		if m.ctrl.Modal() == ModalSearch {
			m.ctrl.SetSearch("")
		}
		m.ctrl.Close()
		m.syncForm()
		return m, nil

	case key.Matches(msg, m.keys.Next) && len(m.form) > 1:
		if msg.String() == "shift+tab" {
			m.focus = (m.focus - 1 + len(m.form)) % len(m.form)
		} else {
			m.focus = (m.focus + 1) % len(m.form)
		}
		m.focusField()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		m.submitForm()
		m.syncForm()
		return m, nil

	case m.ctrl.Modal() == ModalEdit && key.Matches(msg, m.keys.SubtaskNext):
		m.ctrl.MoveSubtask(1)
		return m, nil

	case m.ctrl.Modal() == ModalEdit && key.Matches(msg, m.keys.SubtaskToggle):
		m.ctrl.ToggleSubtask()
		return m, nil

	case m.ctrl.Modal() == ModalEdit && key.Matches(msg, m.keys.React):
		m.ctrl.React("👍")
		return m, nil
	}

	var cmd tea.Cmd
	m.form[m.focus].input, cmd = m.form[m.focus].input.Update(msg)
	if m.ctrl.Modal() == ModalSearch {
		m.ctrl.SetSearch(m.form[0].input.Value())
	}
	return m, cmd
}

// submitForm hands the inputs to the controller. Validation failures are
// reported by the store and leave the modal open.
func (m *RootModel) submitForm() {
	now := m.now()
	switch m.ctrl.Modal() {
	case ModalAdd:
		m.ctrl.SubmitAdd(formValues(m.form, false, now))
	case ModalEdit:
		m.ctrl.SubmitEdit(formValues(m.form, true, now))
	case ModalQuickAdd:
		m.ctrl.SubmitQuickAdd(m.form[0].input.Value())
	case ModalSearch:
		m.ctrl.Close()
	}
}

func (m RootModel) handleBoard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	p := m.ctrl.Projection()
	card, hasCard := m.ctrl.Selected(p)

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Back):
		if _, dragging := m.ctrl.Dragging(); dragging {
			m.ctrl.CancelDrag()
		} else {
			m.ctrl.ClearFilter()
		}
	case key.Matches(msg, m.keys.Up):
		m.ctrl.MoveCursor(0, -1)
	case key.Matches(msg, m.keys.Down):
		m.ctrl.MoveCursor(0, 1)
	case key.Matches(msg, m.keys.Left):
		m.ctrl.MoveCursor(-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.ctrl.MoveCursor(1, 0)
	case key.Matches(msg, m.keys.ColumnLeft), key.Matches(msg, m.keys.ColumnRight):
		delta := 1
		if key.Matches(msg, m.keys.ColumnLeft) {
			delta = -1
		}
		if status, ok := m.ctrl.SelectedStatus(p); ok {
			m.ctrl.MoveColumn(status, delta)
			m.ctrl.MoveCursor(delta, 0)
		}
	case key.Matches(msg, m.keys.Grab):
		if _, dragging := m.ctrl.Dragging(); dragging {
			if status, ok := m.ctrl.SelectedStatus(p); ok {
				m.ctrl.Drop(status)
			}
		} else if hasCard {
			m.ctrl.Grab(card.Task.ID)
		}
	case key.Matches(msg, m.keys.Confirm), key.Matches(msg, m.keys.Edit):
		if hasCard {
			m.ctrl.OpenEdit(card.Task.ID)
		}
	case key.Matches(msg, m.keys.Delete):
		if hasCard {
			m.ctrl.ConfirmDelete(card.Task.ID)
		}
	case key.Matches(msg, m.keys.Toggle):
		if hasCard {
			m.ctrl.ToggleDone(card.Task.ID)
		}
	case key.Matches(msg, m.keys.Timer):
		if hasCard {
			m.ctrl.ToggleTimer(card.Task.ID)
		}
	case key.Matches(msg, m.keys.Watch):
		if hasCard {
			m.ctrl.ToggleWatch(card.Task.ID)
		}
	case key.Matches(msg, m.keys.Category):
		m.ctrl.CycleCategory(1)
	case key.Matches(msg, m.keys.Stats):
		m.ctrl.OpenStats()
	case key.Matches(msg, m.keys.Help):
		m.ctrl.OpenHelp()
	}
	m.syncForm()
	return m, nil
}

// View renders the UI
func (m RootModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	p := m.ctrl.Projection()
	header := m.renderHeader(p)
	footer := m.renderFooter()
	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)

	col, row := m.ctrl.Cursor()
	sel := views.Selection{Col: col, Row: row}
	sel.Dragging, _ = m.ctrl.Dragging()

	var content string
	switch m.ctrl.Modal() {
	case ModalStats:
		content = views.Stats(p, m.width)
	case ModalHelp:
		m.help.ShowAll = true
		content = theme.Current.Styles.Panel.Render(m.help.View(m.keys))
	default:
		if p.Mode == view.ModeList {
			content = views.List(p, sel, m.now(), m.width, contentHeight)
		} else {
			content = views.Board(p, sel, m.width, contentHeight)
		}
	}

	if overlay := m.renderModal(p); overlay != "" {
		content = overlay
	}

	// Pad the content so the footer stays at the bottom
	if lines := lipgloss.Height(content); lines < contentHeight {
		content += strings.Repeat("\n", contentHeight-lines)
	}
	return strings.Join([]string{header, content, footer}, "\n")
}

func (m RootModel) renderHeader(p view.Projection) string {
	styles := theme.Current.Styles

	left := styles.Header.Render("taskdeck")
	info := fmt.Sprintf("[%s] %d/%d tasks", p.Mode, p.Visible, p.Total)
	if f := p.Filter; f.Active() {
		var parts []string
		if f.Search != "" {
			parts = append(parts, "search: "+f.Search)
		}
		if f.Category != "" {
			parts = append(parts, "category: "+f.Category)
		}
		info += " " + styles.StatusInfo.Render("("+strings.Join(parts, " | ")+")")
	}
	left = lipgloss.JoinHorizontal(lipgloss.Center, left, styles.Muted.Padding(0, 1).Render(info))

	right := styles.Muted.Padding(0, 1).Render(m.title)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m RootModel) renderFooter() string {
	styles := theme.Current.Styles

	var lines []string
	if m.status.Text != "" {
		style := styles.StatusInfo
		if m.status.Level == notify.LevelError {
			style = styles.StatusError
		}
		lines = append(lines, style.Render(m.status.Text))
	}

	k := func(keys, desc string) string {
		return styles.HelpKey.Render(keys) + styles.HelpDesc.Render(" "+desc)
	}
	sep := styles.HelpSeparator.Render(" │ ")

	switch m.ctrl.Modal() {
	case ModalAdd:
		lines = append(lines, k("tab", "next field")+sep+k("enter", "save")+sep+k("esc", "cancel"))
	case ModalEdit:
		lines = append(lines, k("tab", "next field")+sep+k("enter", "save")+sep+k("esc", "cancel")+sep+
			k("C-o", "subtask")+sep+k("C-x", "check")+sep+k("C-r", "react"))
	case ModalQuickAdd, ModalSearch:
		lines = append(lines, k("enter", "done")+sep+k("esc", "cancel"))
	case ModalConfirmDelete:
		lines = append(lines, k("y", "delete")+sep+k("n", "keep"))
	default:
		if _, dragging := m.ctrl.Dragging(); dragging {
			lines = append(lines, k("h/l", "pick column")+sep+k("space", "drop")+sep+k("esc", "cancel"))
		} else {
			lines = append(lines, m.help.ShortHelpView(m.keys.ShortHelp()))
		}
	}
	return strings.Join(lines, "\n")
}

func (m RootModel) renderModal(p view.Projection) string {
	styles := theme.Current.Styles
	modal := m.ctrl.Modal()

	switch modal {
	case ModalAdd, ModalEdit, ModalQuickAdd:
		var b strings.Builder
		b.WriteString(styles.PanelTitle.Render(modal.String()))
		b.WriteString("\n\n")
		for _, f := range m.form {
			b.WriteString(styles.HelpDesc.Width(13).Render(f.label))
			b.WriteString(f.input.View())
			b.WriteString("\n")
		}
		if modal == ModalEdit {
			if t, ok := m.ctrl.tasks.Get(m.ctrl.EditTarget()); ok {
				b.WriteString("\n")
				b.WriteString(renderDetails(t, m.ctrl.SubtaskCursor()))
			}
		}
		return styles.Panel.Render(b.String())

	case ModalSearch:
		board := views.Board(p, views.Selection{Col: -1}, m.width, m.height-8)
		if p.Mode == view.ModeList {
			board = views.List(p, views.Selection{Col: -1}, m.now(), m.width, m.height-8)
		}
		return styles.Input.Render("Search: "+m.form[0].input.View()) + "\n" + board

	case ModalConfirmDelete:
		t, _ := m.ctrl.tasks.Get(m.ctrl.EditTarget())
		return styles.Panel.Render(styles.StatusError.Render(fmt.Sprintf("Delete %q? (y/n)", t.Title)))
	}
	return ""
}

// renderDetails lists the parts of a task the form does not edit. cursor
// marks the selected subtask.
func renderDetails(t model.Task, cursor int) string {
	styles := theme.Current.Styles
	var lines []string

	if len(t.Subtasks) > 0 {
		lines = append(lines, styles.PanelTitle.Render("Subtasks"))
		for i, s := range t.Subtasks {
			box := "[ ]"
			if s.Completed {
				box = "[x]"
			}
			mark := "  "
			if i == cursor {
				mark = "> "
			}
			lines = append(lines, mark+box+" "+s.Text)
		}
	}
	if len(t.Attachments) > 0 {
		lines = append(lines, styles.PanelTitle.Render("Attachments"))
		for _, a := range t.Attachments {
			lines = append(lines, a.Name+" "+styles.Muted.Render(a.URL))
		}
	}
	if len(t.Comments) > 0 {
		lines = append(lines, styles.PanelTitle.Render("Comments"))
		for _, c := range t.Comments {
			line := styles.Muted.Render(c.Author+": ") + c.Text
			if r := formatReactions(c.Reactions); r != "" {
				line += "  " + r
			}
			lines = append(lines, line)
		}
	}
	if len(t.Activity) > 0 {
		lines = append(lines, styles.PanelTitle.Render("Activity"))
		start := max(len(t.Activity)-5, 0)
		for _, a := range t.Activity[start:] {
			lines = append(lines, styles.Muted.Render(a.Timestamp.Local().Format("Jan 2 15:04")+"  ")+a.Action)
		}
	}
	if t.TimeSpent > 0 || t.Estimate > 0 {
		lines = append(lines, styles.Muted.Render(fmt.Sprintf("Time: %.1fh of %.1fh estimated", t.TimeSpent, t.Estimate)))
	}
	return strings.Join(lines, "\n")
}

func formatReactions(r map[string]int) string {
	emojis := make([]string, 0, len(r))
	for e, n := range r {
		if n > 0 {
			emojis = append(emojis, e)
		}
	}
	sort.Strings(emojis)
	parts := make([]string, len(emojis))
	for i, e := range emojis {
		parts[i] = fmt.Sprintf("%s %d", e, r[e])
	}
	return strings.Join(parts, " ")
}
