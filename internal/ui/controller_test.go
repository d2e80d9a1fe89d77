package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/taskdeck/internal/model"
	"github.com/dori/taskdeck/internal/prefs"
	"github.com/dori/taskdeck/internal/store"
	"github.com/dori/taskdeck/internal/view"
	"github.com/stretchr/testify/require"
)

// fakeTasks is an in-memory stand-in for the task store
type fakeTasks struct {
	tasks []model.Task
	moves []string
	next  int
}

func (f *fakeTasks) Tasks() []model.Task {
	return append([]model.Task(nil), f.tasks...)
}

func (f *fakeTasks) index(id string) int {
	for i, t := range f.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeTasks) Get(id string) (model.Task, bool) {
	if i := f.index(id); i >= 0 {
		return f.tasks[i], true
	}
	return model.Task{}, false
}

func (f *fakeTasks) Add(fields map[string]any) (model.Task, error) {
	if title, _ := fields["title"].(string); title == "" {
		return model.Task{}, &store.ValidationError{Field: "title", Message: "Task title is required"}
	}
	f.next++
	t := model.Normalize(fields)
	t.ID = fmt.Sprintf("t%d", f.next)
	f.tasks = append(f.tasks, t)
	return t, nil
}

func (f *fakeTasks) Update(id string, fields map[string]any) (model.Task, error) {
	i := f.index(id)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	doc := f.tasks[i].Document()
	for k, v := range fields {
		doc[k] = v
	}
	t := model.Normalize(doc)
	t.ID = id
	f.tasks[i] = t
	return t, nil
}

func (f *fakeTasks) Delete(id string) error {
	i := f.index(id)
	if i < 0 {
		return store.ErrNotFound
	}
	f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
	return nil
}

func (f *fakeTasks) Move(id string, status model.Status) (model.Task, error) {
	i := f.index(id)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	f.moves = append(f.moves, id+"->"+string(status))
	f.tasks[i].Status = status
	return f.tasks[i], nil
}

func (f *fakeTasks) ToggleWatch(id string) (model.Task, error) {
	t, _ := f.Get(id)
	return t, nil
}

func (f *fakeTasks) AddComment(id, text string) (model.Task, error) {
	i := f.index(id)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	f.tasks[i].Comments = append(f.tasks[i].Comments, model.Comment{Text: text})
	return f.tasks[i], nil
}

func (f *fakeTasks) AddSubtask(id, text string) (model.Task, error) {
	i := f.index(id)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	f.tasks[i].Subtasks = append(f.tasks[i].Subtasks, model.Subtask{ID: "s", Text: text})
	return f.tasks[i], nil
}

func (f *fakeTasks) ToggleSubtask(id, subtaskID string) (model.Task, error) {
	i := f.index(id)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	for j := range f.tasks[i].Subtasks {
		if f.tasks[i].Subtasks[j].ID == subtaskID {
			f.tasks[i].Subtasks[j].Completed = !f.tasks[i].Subtasks[j].Completed
			return f.tasks[i], nil
		}
	}
	return model.Task{}, store.ErrNotFound
}

func (f *fakeTasks) AddAttachments(id string, files []model.Attachment) (model.Task, error) {
	i := f.index(id)
	if i < 0 {
		return model.Task{}, store.ErrNotFound
	}
	f.tasks[i].Attachments = append(f.tasks[i].Attachments, files...)
	return f.tasks[i], nil
}

func (f *fakeTasks) ReactToComment(id string, index int, emoji string) (model.Task, error) {
	i := f.index(id)
	if i < 0 || index >= len(f.tasks[i].Comments) {
		return model.Task{}, store.ErrNotFound
	}
	c := &f.tasks[i].Comments[index]
	if c.Reactions == nil {
		c.Reactions = map[string]int{}
	}
	c.Reactions[emoji]++
	return f.tasks[i], nil
}

type fakeTimer struct {
	running map[string]bool
	minutes int
}

func (t *fakeTimer) Start(id string) bool {
	if t.running[id] {
		return false
	}
	t.running[id] = true
	return true
}

func (t *fakeTimer) Stop(id string) (model.TimeEntry, bool, error) {
	if !t.running[id] {
		return model.TimeEntry{}, false, nil
	}
	delete(t.running, id)
	return model.TimeEntry{TaskID: id, Minutes: t.minutes}, true, nil
}

func (t *fakeTimer) Running(id string) bool { return t.running[id] }

type messages struct {
	info, errs []string
}

func (m *messages) Info(s string)  { m.info = append(m.info, s) }
func (m *messages) Error(s string) { m.errs = append(m.errs, s) }

var fixedNow = time.Date(2024, 5, 15, 14, 0, 0, 0, time.UTC)

func seededTasks() *fakeTasks {
	return &fakeTasks{tasks: []model.Task{
		model.Normalize(map[string]any{"id": "a", "title": "Write report", "category": "Work", "priority": "high"}),
		model.Normalize(map[string]any{"id": "b", "title": "Buy milk", "category": "Personal", "priority": "low"}),
		model.Normalize(map[string]any{"id": "c", "title": "Review PR", "category": "Work", "status": "in-progress"}),
	}}
}

func newTestController(tasks Tasks, opts ControllerOptions) *Controller {
	opts.Now = func() time.Time { return fixedNow }
	return NewController(tasks, opts)
}

func TestDragAndDropMovesTask(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})

	require.True(t, c.Grab("a"))
	id, dragging := c.Dragging()
	require.True(t, dragging)
	require.Equal(t, "a", id)

	// Grabbing again replaces the source
	require.True(t, c.Grab("b"))
	_, err := c.Drop(model.StatusReview)
	require.NoError(t, err)

	require.Equal(t, []string{"b->review"}, tasks.moves)
	_, dragging = c.Dragging()
	require.False(t, dragging)

	// Dropping with nothing grabbed is a no-op
	_, err = c.Drop(model.StatusDone)
	require.NoError(t, err)
	require.Len(t, tasks.moves, 1)
}

func TestGrabUnknownTask(t *testing.T) {
	c := newTestController(seededTasks(), ControllerOptions{})
	require.False(t, c.Grab("missing"))
	_, dragging := c.Dragging()
	require.False(t, dragging)
}

func TestCancelDrag(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})
	c.Grab("a")
	c.CancelDrag()
	_, err := c.Drop(model.StatusDone)
	require.NoError(t, err)
	require.Empty(t, tasks.moves)
}

func TestShortcuts(t *testing.T) {
	exported := 0
	c := newTestController(seededTasks(), ControllerOptions{
		Export: func(tasks []model.Task) (string, error) {
			exported = len(tasks)
			return "tasks.csv", nil
		},
	})

	c.Shortcut(ActionNewTask)
	require.Equal(t, ModalAdd, c.Modal())
	c.Shortcut(ActionQuickAdd)
	require.Equal(t, ModalQuickAdd, c.Modal())
	c.Shortcut(ActionSearch)
	require.Equal(t, ModalSearch, c.Modal())
	c.Shortcut(ActionList)
	require.Equal(t, view.ModeList, c.Mode())
	c.Shortcut(ActionBoard)
	require.Equal(t, view.ModeBoard, c.Mode())
	c.Shortcut(ActionExport)
	require.Equal(t, 3, exported)
}

func TestGlobalKeysMatchBeforeInput(t *testing.T) {
	keys := DefaultKeyMap()

	action, ok := keys.Global(tea.KeyMsg{Type: tea.KeyCtrlK}, true)
	require.True(t, ok)
	require.Equal(t, ActionQuickAdd, action)

	action, ok = keys.Global(tea.KeyMsg{Type: tea.KeyCtrlF}, true)
	require.True(t, ok)
	require.Equal(t, ActionSearch, action)

	// A plain slash is text while typing
	_, ok = keys.Global(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}}, true)
	require.False(t, ok)
	action, ok = keys.Global(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'/'}}, false)
	require.True(t, ok)
	require.Equal(t, ActionSearch, action)

	_, ok = keys.Global(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}, false)
	require.False(t, ok)
}

func TestSubmitAddKeepsModalOnValidationError(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})
	c.OpenAdd()

	_, err := c.SubmitAdd(map[string]any{"title": ""})
	require.Error(t, err)
	require.True(t, store.IsValidation(err))
	require.Equal(t, ModalAdd, c.Modal())
	require.Len(t, tasks.tasks, 3)

	added, err := c.SubmitAdd(map[string]any{"title": "New"})
	require.NoError(t, err)
	require.Equal(t, ModalNone, c.Modal())
	require.Equal(t, "New", added.Title)
}

func TestSubmitQuickAdd(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})
	c.OpenQuickAdd()

	added, err := c.SubmitQuickAdd("Ship release @ops !critical #Engineering due:tomorrow")
	require.NoError(t, err)
	require.Equal(t, "Ship release", added.Title)
	require.Equal(t, model.PriorityCritical, added.Priority)
	require.Equal(t, "Engineering", added.Category)
	require.Equal(t, []string{"ops"}, added.Tags)
	require.NotNil(t, added.DueDate)
	require.Equal(t, 16, added.DueDate.Day())
}

func TestSubmitEdit(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})

	_, err := c.SubmitEdit(map[string]any{"title": "x"})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.True(t, c.OpenEdit("a"))
	require.Equal(t, "a", c.EditTarget())

	updated, err := c.SubmitEdit(map[string]any{
		"title":   "Write final report",
		"comment": "almost there",
		"subtask": "proofread",
	})
	require.NoError(t, err)
	require.Equal(t, "Write final report", updated.Title)
	require.Len(t, updated.Comments, 1)
	require.Len(t, updated.Subtasks, 1)
	require.Equal(t, ModalNone, c.Modal())
	require.Empty(t, c.EditTarget())
}

func TestConfirmDelete(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})

	require.True(t, c.ConfirmDelete("b"))
	require.Equal(t, ModalConfirmDelete, c.Modal())
	require.NoError(t, c.SubmitDelete())
	_, ok := tasks.Get("b")
	require.False(t, ok)
	require.Equal(t, ModalNone, c.Modal())
}

func TestSearchAndCategoryFilter(t *testing.T) {
	c := newTestController(seededTasks(), ControllerOptions{})

	c.SetSearch("re")
	p := c.Projection()
	require.Equal(t, 2, p.Visible) // Write report, Review PR

	c.SetCategory("Personal")
	p = c.Projection()
	require.Equal(t, 0, p.Visible)

	c.ClearFilter()
	require.False(t, c.Filter().Active())
	require.Equal(t, 3, c.Projection().Visible)
}

func TestCycleCategory(t *testing.T) {
	c := newTestController(seededTasks(), ControllerOptions{})

	var seen []string
	for i := 0; i < 3; i++ {
		c.CycleCategory(1)
		seen = append(seen, c.Filter().Category)
	}
	require.Equal(t, []string{"Personal", "Work", ""}, seen)
}

func TestPrefsPersisted(t *testing.T) {
	var saved []prefs.Prefs
	c := newTestController(seededTasks(), ControllerOptions{
		Prefs: prefs.Prefs{ViewMode: "list", Category: "Work"},
		SavePrefs: func(p prefs.Prefs) error {
			saved = append(saved, p)
			return nil
		},
	})
	require.Equal(t, view.ModeList, c.Mode())
	require.Equal(t, "Work", c.Filter().Category)

	c.MoveColumn(model.StatusInProgress, -1)
	require.Equal(t, model.StatusInProgress, c.StatusOrder()[0])
	require.Equal(t, model.StatusTodo, c.StatusOrder()[1])

	c.SetMode(view.ModeBoard)
	last := saved[len(saved)-1]
	require.Equal(t, "board", last.ViewMode)
	require.Equal(t, model.StatusInProgress, last.StatusOrder[0])

	// Moving past the edge keeps the order
	c.MoveColumn(model.StatusInProgress, -1)
	require.Equal(t, model.StatusInProgress, c.StatusOrder()[0])
}

func TestSavePrefsErrorIsNotFatal(t *testing.T) {
	c := newTestController(seededTasks(), ControllerOptions{
		SavePrefs: func(prefs.Prefs) error { return errors.New("disk full") },
	})
	c.SetMode(view.ModeList)
	require.Equal(t, view.ModeList, c.Mode())
}

func TestToggleTimer(t *testing.T) {
	tasks := seededTasks()
	tm := &fakeTimer{running: map[string]bool{}, minutes: 25}
	msgs := &messages{}
	var entries []model.TimeEntry
	c := newTestController(tasks, ControllerOptions{
		Timer:    tm,
		Notifier: msgs,
		OnTimeEntry: func(e model.TimeEntry, _ model.Task) {
			entries = append(entries, e)
		},
	})

	c.ToggleTimer("a")
	require.True(t, tm.Running("a"))
	require.True(t, c.Projection().Groups[0].Cards[0].Running)

	c.ToggleTimer("a")
	require.False(t, tm.Running("a"))
	require.Len(t, entries, 1)
	require.Equal(t, 25, entries[0].Minutes)
	require.Contains(t, msgs.info[len(msgs.info)-1], "Logged 25 min")

	// Sessions under a minute log nothing
	tm.minutes = 0
	c.ToggleTimer("a")
	c.ToggleTimer("a")
	require.Len(t, entries, 1)
}

func TestToggleDone(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})

	done, err := c.ToggleDone("a")
	require.NoError(t, err)
	require.Equal(t, model.StatusDone, done.Status)

	undone, err := c.ToggleDone("a")
	require.NoError(t, err)
	require.Equal(t, model.StatusTodo, undone.Status)
}

func TestCursorClamps(t *testing.T) {
	c := newTestController(seededTasks(), ControllerOptions{})

	c.MoveCursor(0, 10)
	p := c.Projection()
	card, ok := c.Selected(p)
	require.True(t, ok)
	require.Equal(t, "b", card.Task.ID) // last card in todo

	c.MoveCursor(-5, 0)
	col, _ := c.Cursor()
	require.Equal(t, 0, col)

	c.MoveCursor(1, 0)
	status, ok := c.SelectedStatus(c.Projection())
	require.True(t, ok)
	require.Equal(t, model.StatusInProgress, status)
}

func TestToggleSubtaskUnderCursor(t *testing.T) {
	tasks := seededTasks()
	tasks.tasks[0].Subtasks = []model.Subtask{{ID: "s1", Text: "outline"}, {ID: "s2", Text: "draft"}}
	c := newTestController(tasks, ControllerOptions{})

	_, err := c.ToggleSubtask()
	require.ErrorIs(t, err, store.ErrNotFound)

	require.True(t, c.OpenEdit("a"))
	c.MoveSubtask(1)
	require.Equal(t, 1, c.SubtaskCursor())

	updated, err := c.ToggleSubtask()
	require.NoError(t, err)
	require.False(t, updated.Subtasks[0].Completed)
	require.True(t, updated.Subtasks[1].Completed)

	// The cursor wraps around the checklist
	c.MoveSubtask(1)
	require.Equal(t, 0, c.SubtaskCursor())
	c.MoveSubtask(-1)
	require.Equal(t, 1, c.SubtaskCursor())

	// Opening another task resets it
	require.True(t, c.OpenEdit("b"))
	require.Equal(t, 0, c.SubtaskCursor())
	_, err = c.ToggleSubtask()
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestReactToNewestComment(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})

	require.True(t, c.OpenEdit("a"))
	_, err := c.React("👍")
	require.ErrorIs(t, err, store.ErrNotFound)

	tasks.tasks[0].Comments = []model.Comment{{Text: "first"}, {Text: "second"}}
	updated, err := c.React("👍")
	require.NoError(t, err)
	require.Equal(t, 1, updated.Comments[1].Reactions["👍"])
	require.Empty(t, updated.Comments[0].Reactions)
}

func TestAttach(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	tasks := seededTasks()
	msgs := &messages{}
	c := newTestController(tasks, ControllerOptions{Notifier: msgs})

	updated, err := c.Attach("a", path, "https://example.com/docs/design-v2.pdf")
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 2)
	require.Equal(t, "notes.txt", updated.Attachments[0].Name)
	require.Equal(t, int64(5), updated.Attachments[0].Size)
	require.True(t, strings.HasPrefix(updated.Attachments[0].URL, "file://"))
	require.Equal(t, "design-v2.pdf", updated.Attachments[1].Name)

	_, err = c.Attach("a", filepath.Join(dir, "missing.txt"))
	require.True(t, store.IsValidation(err))
	require.Len(t, msgs.errs, 1)
	require.Len(t, tasks.tasks[0].Attachments, 2)
}

func TestSubmitEditAttaches(t *testing.T) {
	tasks := seededTasks()
	c := newTestController(tasks, ControllerOptions{})
	require.True(t, c.OpenEdit("b"))

	_, err := c.SubmitEdit(map[string]any{"title": "Buy milk", "attach": "not a file"})
	require.True(t, store.IsValidation(err))
	require.Equal(t, ModalEdit, c.Modal())

	updated, err := c.SubmitEdit(map[string]any{"title": "Buy milk", "attach": "https://shop.example.com/list"})
	require.NoError(t, err)
	require.Len(t, updated.Attachments, 1)
	require.Equal(t, "list", updated.Attachments[0].Name)
	require.NotContains(t, updated.Document(), "attach")
}

func TestParseAttachment(t *testing.T) {
	a, ok := ParseAttachment("https://example.com")
	require.True(t, ok)
	require.Equal(t, "example.com", a.Name)

	_, ok = ParseAttachment("")
	require.False(t, ok)
	_, ok = ParseAttachment("https://")
	require.False(t, ok)
	_, ok = ParseAttachment(t.TempDir())
	require.False(t, ok)
}
