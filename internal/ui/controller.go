package ui

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/prefs"
	"github.com/dori/taskdeck/internal/store"
	"github.com/dori/taskdeck/internal/view"
)

// Modal identifies the dialog currently covering the board
type Modal int

const (
	ModalNone Modal = iota
	ModalAdd
	ModalQuickAdd
	ModalEdit
	ModalSearch
	ModalConfirmDelete
	ModalStats
	ModalHelp
)

// String returns the display name for a modal
func (m Modal) String() string {
	switch m {
	case ModalAdd:
		return "New task"
	case ModalQuickAdd:
		return "Quick add"
	case ModalEdit:
		return "Edit task"
	case ModalSearch:
		return "Search"
	case ModalConfirmDelete:
		return "Delete"
	case ModalStats:
		return "Stats"
	case ModalHelp:
		return "Help"
	default:
		return ""
	}
}

// Tasks is the subset of the task store the controller drives
type Tasks interface {
	Tasks() []model.Task
	Get(id string) (model.Task, bool)
	Add(fields map[string]any) (model.Task, error)
	Update(id string, fields map[string]any) (model.Task, error)
	Delete(id string) error
	Move(id string, status model.Status) (model.Task, error)
	ToggleWatch(id string) (model.Task, error)
	ToggleSubtask(id, subtaskID string) (model.Task, error)
	AddAttachments(id string, files []model.Attachment) (model.Task, error)
	ReactToComment(id string, index int, emoji string) (model.Task, error)
	AddComment(id, text string) (model.Task, error)
	AddSubtask(id, text string) (model.Task, error)
}

// Timer is the per-task time tracker
type Timer interface {
	Start(id string) bool
	Stop(id string) (model.TimeEntry, bool, error)
	Running(id string) bool
}

// ControllerOptions wires the controller's collaborators. Everything but
// the store is optional.
type ControllerOptions struct {
	Timer     Timer
	Notifier  store.Notifier
	Logger    *log.Logger
	Now       func() time.Time
	LabelName func(id string) string

	// Prefs seeds the persisted UI state; SavePrefs stores it on change
	Prefs     prefs.Prefs
	SavePrefs func(prefs.Prefs) error

	// Export writes the tasks somewhere and returns a description of where
	Export func(tasks []model.Task) (string, error)
	// OnTimeEntry receives every finished timer session
	OnTimeEntry func(entry model.TimeEntry, task model.Task)
}

// Controller owns the UI-only state and translates user actions into task
// store calls. It never renders anything; Projection hands the renderer an
// immutable snapshot of what to draw.
type Controller struct {
	tasks Tasks
	opts  ControllerOptions

	modal  Modal
	editID string
	dragID string

	filter        view.Filter
	mode          view.Mode
	statusOrder   []model.Status
	categoryOrder []string

	// Cursor over the current projection
	col, row int
	// Cursor over the edit target's subtasks
	subtask int
}

// NewController creates a controller over tasks
func NewController(tasks Tasks, opts ControllerOptions) *Controller {
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	mode := view.Mode(opts.Prefs.ViewMode)
	if mode != view.ModeList {
		mode = view.ModeBoard
	}
	return &Controller{
		tasks:         tasks,
		opts:          opts,
		mode:          mode,
		filter:        view.Filter{Category: opts.Prefs.Category},
		statusOrder:   view.StatusOrder(opts.Prefs.StatusOrder),
		categoryOrder: append([]string(nil), opts.Prefs.CategoryOrder...),
	}
}

type discardNotifier struct{}

func (discardNotifier) Info(string)  {}
func (discardNotifier) Error(string) {}

func (c *Controller) Modal() Modal        { return c.modal }
func (c *Controller) EditTarget() string  { return c.editID }
func (c *Controller) Filter() view.Filter { return c.filter }
func (c *Controller) Mode() view.Mode     { return c.mode }
func (c *Controller) StatusOrder() []model.Status {
	return append([]model.Status(nil), c.statusOrder...)
}

// Dragging returns the id of the grabbed task
func (c *Controller) Dragging() (string, bool) {
	return c.dragID, c.dragID != ""
}

// Projection computes what to draw right now
func (c *Controller) Projection() view.Projection {
	opts := view.Options{
		Filter:        c.filter,
		Mode:          c.mode,
		StatusOrder:   c.statusOrder,
		CategoryOrder: c.categoryOrder,
		Now:           c.opts.Now(),
		LabelName:     c.opts.LabelName,
	}
	if c.opts.Timer != nil {
		opts.Running = c.opts.Timer.Running
	}
	return view.Project(c.tasks.Tasks(), opts)
}

// Shortcut dispatches one of the global key chords
func (c *Controller) Shortcut(a Action) {
	switch a {
	case ActionNewTask:
		c.OpenAdd()
	case ActionQuickAdd:
		c.OpenQuickAdd()
	case ActionExport:
		c.Export()
	case ActionBoard:
		c.SetMode(view.ModeBoard)
	case ActionList:
		c.SetMode(view.ModeList)
	case ActionSearch:
		c.OpenSearch()
	}
}

// Modals

func (c *Controller) open(m Modal) {
	c.modal = m
	c.editID = ""
}

func (c *Controller) OpenAdd()      { c.open(ModalAdd) }
func (c *Controller) OpenQuickAdd() { c.open(ModalQuickAdd) }
func (c *Controller) OpenSearch()   { c.open(ModalSearch) }
func (c *Controller) OpenStats()    { c.open(ModalStats) }
func (c *Controller) OpenHelp()     { c.open(ModalHelp) }

// OpenEdit opens the edit dialog for id
func (c *Controller) OpenEdit(id string) bool {
	if _, ok := c.tasks.Get(id); !ok {
		return false
	}
	c.modal = ModalEdit
	c.editID = id
	c.subtask = 0
	return true
}

// ConfirmDelete asks before deleting id
func (c *Controller) ConfirmDelete(id string) bool {
	if _, ok := c.tasks.Get(id); !ok {
		return false
	}
	c.modal = ModalConfirmDelete
	c.editID = id
	return true
}

// Close dismisses the open modal
func (c *Controller) Close() {
	c.modal = ModalNone
	c.editID = ""
}

// SubmitAdd creates a task from form fields. The modal stays open when the
// store rejects the input.
func (c *Controller) SubmitAdd(fields map[string]any) (model.Task, error) {
	t, err := c.tasks.Add(fields)
	if err != nil {
		return model.Task{}, err
	}
	c.Close()
	c.opts.Notifier.Info(fmt.Sprintf("Added %q", t.Title))
	return t, nil
}

// SubmitQuickAdd creates a task from a quick add line
func (c *Controller) SubmitQuickAdd(text string) (model.Task, error) {
	return c.SubmitAdd(ParseQuickAdd(text, c.opts.Now()))
}

// SubmitEdit applies form fields to the edit target. The pseudo fields
// "comment", "subtask" and "attach" append a comment, a checklist item or
// an attachment when set.
func (c *Controller) SubmitEdit(fields map[string]any) (model.Task, error) {
	if c.modal != ModalEdit || c.editID == "" {
		return model.Task{}, fmt.Errorf("%w: no task is being edited", store.ErrNotFound)
	}
	comment, _ := fields["comment"].(string)
	subtask, _ := fields["subtask"].(string)
	attach, _ := fields["attach"].(string)
	update := make(map[string]any, len(fields))
	for k, v := range fields {
		if k != "comment" && k != "subtask" && k != "attach" {
			update[k] = v
		}
	}

	var files []model.Attachment
	if attach = strings.TrimSpace(attach); attach != "" {
		f, ok := ParseAttachment(attach)
		if !ok {
			err := &store.ValidationError{Field: "attach", Message: fmt.Sprintf("Cannot attach %s", attach)}
			c.opts.Notifier.Error(err.Error())
			return model.Task{}, err
		}
		files = append(files, f)
	}

	t, err := c.tasks.Update(c.editID, update)
	if err != nil {
		return model.Task{}, err
	}
	if strings.TrimSpace(comment) != "" {
		if t, err = c.tasks.AddComment(c.editID, comment); err != nil {
			return model.Task{}, err
		}
	}
	if strings.TrimSpace(subtask) != "" {
		if t, err = c.tasks.AddSubtask(c.editID, subtask); err != nil {
			return model.Task{}, err
		}
	}
	if len(files) > 0 {
		if t, err = c.tasks.AddAttachments(c.editID, files); err != nil {
			return model.Task{}, err
		}
	}
	c.Close()
	return t, nil
}

// SubtaskCursor returns the index of the selected subtask of the edit
// target
func (c *Controller) SubtaskCursor() int {
	return c.subtask
}

// MoveSubtask moves the subtask cursor, wrapping around the checklist
func (c *Controller) MoveSubtask(delta int) {
	t, ok := c.tasks.Get(c.editID)
	if c.modal != ModalEdit || !ok || len(t.Subtasks) == 0 {
		c.subtask = 0
		return
	}
	n := len(t.Subtasks)
	c.subtask = ((c.subtask+delta)%n + n) % n
}

// ToggleSubtask flips the selected checklist item of the edit target
func (c *Controller) ToggleSubtask() (model.Task, error) {
	t, ok := c.tasks.Get(c.editID)
	if c.modal != ModalEdit || !ok {
		return model.Task{}, fmt.Errorf("%w: no task is being edited", store.ErrNotFound)
	}
	if c.subtask < 0 || c.subtask >= len(t.Subtasks) {
		return model.Task{}, fmt.Errorf("%w: no subtask selected", store.ErrNotFound)
	}
	return c.tasks.ToggleSubtask(t.ID, t.Subtasks[c.subtask].ID)
}

// React adds emoji to the newest comment of the edit target
func (c *Controller) React(emoji string) (model.Task, error) {
	t, ok := c.tasks.Get(c.editID)
	if c.modal != ModalEdit || !ok {
		return model.Task{}, fmt.Errorf("%w: no task is being edited", store.ErrNotFound)
	}
	if len(t.Comments) == 0 {
		return model.Task{}, fmt.Errorf("%w: no comment to react to", store.ErrNotFound)
	}
	return c.tasks.ReactToComment(t.ID, len(t.Comments)-1, emoji)
}

// Attach adds files or links to a task. refs are local paths or URLs.
func (c *Controller) Attach(id string, refs ...string) (model.Task, error) {
	var files []model.Attachment
	for _, ref := range refs {
		f, ok := ParseAttachment(ref)
		if !ok {
			err := &store.ValidationError{Field: "attach", Message: fmt.Sprintf("Cannot attach %s", ref)}
			c.opts.Notifier.Error(err.Error())
			return model.Task{}, err
		}
		files = append(files, f)
	}
	return c.tasks.AddAttachments(id, files)
}

// SubmitDelete deletes the task awaiting confirmation
func (c *Controller) SubmitDelete() error {
	if c.modal != ModalConfirmDelete {
		return nil
	}
	id := c.editID
	c.Close()
	if c.dragID == id {
		c.dragID = ""
	}
	return c.tasks.Delete(id)
}

// SetSearch changes the search text. The search modal stays open so the
// board filters while typing.
func (c *Controller) SetSearch(text string) {
	c.filter.Search = text
	c.clampCursor()
}

// ClearFilter drops the search text and category filter
func (c *Controller) ClearFilter() {
	c.filter = view.Filter{}
	c.savePrefs()
	c.clampCursor()
}

// SetCategory filters to one category; "" shows all
func (c *Controller) SetCategory(category string) {
	c.filter.Category = category
	c.savePrefs()
	c.clampCursor()
}

// CycleCategory steps the category filter through "all" and every known
// category
func (c *Controller) CycleCategory(delta int) {
	cats := append([]string{""}, view.Categories(c.tasks.Tasks(), c.categoryOrder)...)
	i := 0
	for j, cat := range cats {
		if cat == c.filter.Category {
			i = j
			break
		}
	}
	i = ((i+delta)%len(cats) + len(cats)) % len(cats)
	c.SetCategory(cats[i])
}

// SetMode switches between board and list
func (c *Controller) SetMode(m view.Mode) {
	if m != view.ModeBoard && m != view.ModeList {
		return
	}
	c.mode = m
	c.savePrefs()
}

// Drag and drop. One task may be grabbed at a time; dropping it on a
// column moves it there.

// Grab picks up id, replacing any earlier grab
func (c *Controller) Grab(id string) bool {
	if _, ok := c.tasks.Get(id); !ok {
		return false
	}
	c.dragID = id
	return true
}

// Drop releases the grabbed task on the column for status
func (c *Controller) Drop(status model.Status) (model.Task, error) {
	id := c.dragID
	c.dragID = ""
	if id == "" {
		return model.Task{}, nil
	}
	return c.tasks.Move(id, status)
}

// CancelDrag releases the grabbed task without moving it
func (c *Controller) CancelDrag() {
	c.dragID = ""
}

// MoveColumn shifts status left or right in the column order and remembers
// the new order
func (c *Controller) MoveColumn(status model.Status, delta int) {
	c.statusOrder = shift(c.statusOrder, status, delta)
	c.savePrefs()
}

// MoveCategory shifts a category in the category order
func (c *Controller) MoveCategory(category string, delta int) {
	if len(c.categoryOrder) == 0 {
		c.categoryOrder = view.Categories(c.tasks.Tasks(), nil)
	}
	c.categoryOrder = shift(c.categoryOrder, category, delta)
	c.savePrefs()
}

func shift[T comparable](list []T, item T, delta int) []T {
	out := append([]T(nil), list...)
	for i, v := range out {
		if v != item {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(out) {
			return out
		}
		out[i], out[j] = out[j], out[i]
		return out
	}
	return out
}

// Export writes the visible tasks through the configured exporter
func (c *Controller) Export() {
	if c.opts.Export == nil {
		c.opts.Notifier.Error("Export is not available")
		return
	}
	p := c.Projection()
	var tasks []model.Task
	for _, g := range p.Groups {
		for _, card := range g.Cards {
			tasks = append(tasks, card.Task)
		}
	}
	where, err := c.opts.Export(tasks)
	if err != nil {
		c.opts.Logger.Printf("export: %v", err)
		c.opts.Notifier.Error("Export failed")
		return
	}
	c.opts.Notifier.Info(fmt.Sprintf("Exported %d task(s) to %s", len(tasks), where))
}

// ToggleTimer starts or stops the timer on id
func (c *Controller) ToggleTimer(id string) {
	if c.opts.Timer == nil {
		return
	}
	t, ok := c.tasks.Get(id)
	if !ok {
		return
	}
	if c.opts.Timer.Start(id) {
		c.opts.Notifier.Info(fmt.Sprintf("Timer started on %q", t.Title))
		return
	}

	entry, _, err := c.opts.Timer.Stop(id)
	if err != nil {
		c.opts.Logger.Printf("timer: %v", err)
		c.opts.Notifier.Error("Failed to log time")
		return
	}
	if entry.Minutes == 0 {
		c.opts.Notifier.Info("Timer stopped (under a minute, nothing logged)")
		return
	}
	c.opts.Notifier.Info(fmt.Sprintf("Logged %d min on %q", entry.Minutes, t.Title))
	if c.opts.OnTimeEntry != nil {
		c.opts.OnTimeEntry(entry, t)
	}
}

// ToggleDone moves a task to done, or back to todo if already done
func (c *Controller) ToggleDone(id string) (model.Task, error) {
	t, ok := c.tasks.Get(id)
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", store.ErrNotFound, id)
	}
	if t.IsDone() {
		return c.tasks.Move(id, model.StatusTodo)
	}
	return c.tasks.Move(id, model.StatusDone)
}

// ToggleWatch follows or unfollows a task
func (c *Controller) ToggleWatch(id string) (model.Task, error) {
	return c.tasks.ToggleWatch(id)
}

func (c *Controller) savePrefs() {
	if c.opts.SavePrefs == nil {
		return
	}
	p := prefs.Prefs{
		StatusOrder:   c.statusOrder,
		CategoryOrder: c.categoryOrder,
		ViewMode:      string(c.mode),
		Category:      c.filter.Category,
	}
	if err := c.opts.SavePrefs(p); err != nil {
		c.opts.Logger.Printf("save prefs: %v", err)
	}
}

// Cursor

// Cursor returns the selected group and row
func (c *Controller) Cursor() (col, row int) {
	return c.col, c.row
}

// Selected returns the card under the cursor
func (c *Controller) Selected(p view.Projection) (view.Card, bool) {
	if c.col < 0 || c.col >= len(p.Groups) {
		return view.Card{}, false
	}
	cards := p.Groups[c.col].Cards
	if c.row < 0 || c.row >= len(cards) {
		return view.Card{}, false
	}
	return cards[c.row], true
}

// SelectedStatus returns the status of the group under the cursor
func (c *Controller) SelectedStatus(p view.Projection) (model.Status, bool) {
	if c.col < 0 || c.col >= len(p.Groups) {
		return "", false
	}
	return p.Groups[c.col].Status, true
}

// MoveCursor moves across groups (dCol) and within a group (dRow)
func (c *Controller) MoveCursor(dCol, dRow int) {
	c.col += dCol
	c.row += dRow
	c.clampCursor()
}

func (c *Controller) clampCursor() {
	p := c.Projection()
	if len(p.Groups) == 0 {
		c.col, c.row = 0, 0
		return
	}
	c.col = clamp(c.col, 0, len(p.Groups)-1)
	c.row = clamp(c.row, 0, max(len(p.Groups[c.col].Cards)-1, 0))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
