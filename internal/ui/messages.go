package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dori/taskdeck/internal/notify"
)

// Messages for inter-component communication

// TasksChangedMsg signals that the store or reference data changed
type TasksChangedMsg struct{}

// StatusMsg carries a transient status line message
type StatusMsg struct {
	Message notify.Message
}

// tickMsg refreshes time-dependent parts of the screen
type tickMsg time.Time

const tickInterval = 30 * time.Second

// eventMsg wraps a message that arrived through Events
type eventMsg struct {
	msg tea.Msg
}

// Events queues store and status notifications for the running program.
// Store callbacks fire on whatever goroutine mutated the store, including
// the program's own Update, so posting never blocks: change signals are
// dropped while one is already pending and status messages are dropped
// when the queue is full.
type Events struct {
	changed chan struct{}
	status  chan notify.Message
}

// NewEvents creates an empty event queue
func NewEvents() *Events {
	return &Events{
		changed: make(chan struct{}, 1),
		status:  make(chan notify.Message, 32),
	}
}

// TasksChanged records that the board needs a refresh
func (e *Events) TasksChanged() {
	select {
	case e.changed <- struct{}{}:
	default:
	}
}

// Status queues a status line message
func (e *Events) Status(m notify.Message) {
	select {
	case e.status <- m:
	default:
	}
}

// listen waits for the next event. Update re-issues it after each one.
func (e *Events) listen() tea.Cmd {
	if e == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-e.changed:
			return eventMsg{TasksChangedMsg{}}
		case m := <-e.status:
			return eventMsg{StatusMsg{Message: m}}
		}
	}
}
