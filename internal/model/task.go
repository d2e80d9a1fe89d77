package model

import (
	"encoding/json"
	"time"
)

// Status represents the current state of a task
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
	StatusBlocked    Status = "blocked"
	StatusCancelled  Status = "cancelled"
)

// Statuses returns every known status in default board order
func Statuses() []Status {
	return []Status{
		StatusTodo,
		StatusInProgress,
		StatusReview,
		StatusDone,
		StatusBlocked,
		StatusCancelled,
	}
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	for _, known := range Statuses() {
		if s == known {
			return true
		}
	}
	return false
}

// Label returns the display name for a status
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusReview:
		return "Review"
	case StatusDone:
		return "Done"
	case StatusBlocked:
		return "Blocked"
	case StatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Priority represents task priority level
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Priorities returns the known priorities from lowest to highest
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Rank returns the sort rank of a priority. Lower ranks sort first;
// values outside the known set rank last.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

// Attachment is a file reference attached to a task
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Comment is a user comment on a task
type Comment struct {
	Text      string         `json:"text"`
	Author    string         `json:"author"`
	UserID    string         `json:"userId"`
	Timestamp time.Time      `json:"timestamp"`
	Reactions map[string]int `json:"reactions"`
}

// Subtask is a checklist item inside a task
type Subtask struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Activity is one entry of a task's audit trail
type Activity struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
}

// Task represents a work item owned by the signed-in principal
type Task struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Notes        string       `json:"notes"`
	Priority     Priority     `json:"priority"`
	Status       Status       `json:"status"`
	DueDate      *time.Time   `json:"dueDate"`
	Category     string       `json:"category"`
	Type         string       `json:"type"`
	ProjectID    string       `json:"projectId"`
	AssignedTo   string       `json:"assignedTo"`
	Dependencies []string     `json:"dependencies"`
	Estimate     float64      `json:"estimate"`  // Hours
	TimeSpent    float64      `json:"timeSpent"` // Hours
	Attachments  []Attachment `json:"attachments"`
	Comments     []Comment    `json:"comments"`
	Tags         []string     `json:"tags"`
	Watchers     []string     `json:"watchers"`
	Labels       []string     `json:"labels"`
	Subtasks     []Subtask    `json:"subtasks"`
	Activity     []Activity   `json:"activity"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
	ReminderSent bool         `json:"reminderSent"`
}

// Document returns the task as a plain document suitable for the
// document store. Normalize(t.Document()) yields t again.
func (t Task) Document() map[string]any {
	b, err := json.Marshal(t)
	if err != nil {
		return map[string]any{"id": t.ID, "title": t.Title}
	}
	var doc map[string]any
	if err := json.Unmarshal(b, &doc); err != nil {
		return map[string]any{"id": t.ID, "title": t.Title}
	}
	return doc
}

// Clone returns a deep copy of the task
func (t Task) Clone() Task {
	c := t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	c.Dependencies = append([]string{}, t.Dependencies...)
	c.Attachments = append([]Attachment{}, t.Attachments...)
	c.Comments = make([]Comment, len(t.Comments))
	for i, cm := range t.Comments {
		reactions := make(map[string]int, len(cm.Reactions))
		for k, v := range cm.Reactions {
			reactions[k] = v
		}
		cm.Reactions = reactions
		c.Comments[i] = cm
	}
	c.Tags = append([]string{}, t.Tags...)
	c.Watchers = append([]string{}, t.Watchers...)
	c.Labels = append([]string{}, t.Labels...)
	c.Subtasks = append([]Subtask{}, t.Subtasks...)
	c.Activity = append([]Activity{}, t.Activity...)
	return c
}

// IsDone returns true if the task is completed
func (t *Task) IsDone() bool {
	return t.Status == StatusDone
}

// IsOverdue returns true if the task is past its due date
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status == StatusDone || t.Status == StatusCancelled {
		return false
	}
	return now.After(*t.DueDate)
}

// IsDueOn returns true if the task is due on the calendar day of day
func (t *Task) IsDueOn(day time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	due := t.DueDate.In(day.Location())
	return due.Year() == day.Year() && due.YearDay() == day.YearDay()
}

// CompletedAt returns when the task was completed: the most recent
// "Moved to done" activity, falling back to updatedAt when it is set.
func (t *Task) CompletedAt() (time.Time, bool) {
	if t.Status != StatusDone {
		return time.Time{}, false
	}
	for i := len(t.Activity) - 1; i >= 0; i-- {
		if t.Activity[i].Action == MovedAction(StatusDone) {
			return t.Activity[i].Timestamp, true
		}
	}
	return t.UpdatedAt, !t.UpdatedAt.IsZero()
}

// SubtaskProgress returns (done, total) for the task's subtasks
func (t *Task) SubtaskProgress() (int, int) {
	done := 0
	for _, s := range t.Subtasks {
		if s.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// IsWatchedBy reports whether userID is in the watcher set
func (t *Task) IsWatchedBy(userID string) bool {
	for _, w := range t.Watchers {
		if w == userID {
			return true
		}
	}
	return false
}

// MovedAction is the activity text recorded when a task changes column
func MovedAction(s Status) string {
	return "Moved to " + string(s)
}
