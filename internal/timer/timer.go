// Package timer tracks open time-tracking sessions per task. Sessions live
// only in memory and are lost on restart.
package timer

import (
	"sort"
	"sync"
	"time"

	"github.com/dori/taskdeck/internal/model"
	"github.com/google/uuid"
)

// Sink receives the time folded into a task when a session stops
type Sink interface {
	AddTimeSpent(id string, hours float64) (model.Task, error)
}

// Timer maps task ids to the instant their session started
type Timer struct {
	sink   Sink
	userID string
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

// New creates an idle timer. now defaults to time.Now.
func New(sink Sink, userID string, now func() time.Time) *Timer {
	if now == nil {
		now = time.Now
	}
	return &Timer{
		sink:     sink,
		userID:   userID,
		now:      now,
		sessions: make(map[string]time.Time),
	}
}

// Start opens a session for id. It reports false if one is already running.
func (t *Timer) Start(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, running := t.sessions[id]; running {
		return false
	}
	t.sessions[id] = t.now()
	return true
}

// Stop closes the session for id and adds the whole elapsed minutes to the
// task. ok is false when no session was running. A session shorter than a
// minute is closed without touching the task.
func (t *Timer) Stop(id string) (entry model.TimeEntry, ok bool, err error) {
	t.mu.Lock()
	started, running := t.sessions[id]
	delete(t.sessions, id)
	t.mu.Unlock()

	if !running {
		return model.TimeEntry{}, false, nil
	}

	ended := t.now()
	entry = model.TimeEntry{
		ID:        uuid.NewString(),
		TaskID:    id,
		UserID:    t.userID,
		StartedAt: started.UTC(),
		EndedAt:   ended.UTC(),
		Minutes:   int(ended.Sub(started) / time.Minute),
	}
	if entry.Minutes <= 0 {
		entry.Minutes = 0
		return entry, true, nil
	}

	if _, err := t.sink.AddTimeSpent(id, entry.Hours()); err != nil {
		return entry, true, err
	}
	return entry, true, nil
}

// Running reports whether a session is open for id
func (t *Timer) Running(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[id]
	return ok
}

// Elapsed returns how long the session for id has been open
func (t *Timer) Elapsed(id string) time.Duration {
	t.mu.Lock()
	started, ok := t.sessions[id]
	t.mu.Unlock()
	if !ok {
		return 0
	}
	return t.now().Sub(started)
}

// Active lists the ids with open sessions
func (t *Timer) Active() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.sessions))
	for id := range t.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
